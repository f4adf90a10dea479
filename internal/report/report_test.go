package report

import "testing"

func TestCanTransition(t *testing.T) {
	t.Parallel()
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusReviewing, true},
		{StatusPending, StatusResolved, true},
		{StatusPending, StatusDismissed, true},
		{StatusReviewing, StatusResolved, true},
		{StatusReviewing, StatusDismissed, true},
		{StatusReviewing, StatusPending, false},
		{StatusResolved, StatusReviewing, false},
		{StatusResolved, StatusDismissed, false},
		{StatusDismissed, StatusResolved, false},
		{StatusPending, StatusPending, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
