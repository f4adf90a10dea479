package moderation

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// fakeConfigRepo implements ConfigRepository in memory for evaluator tests.
type fakeConfigRepo struct {
	configs map[uuid.UUID][]FilterConfig
	listErr error
}

func (r *fakeConfigRepo) List(_ context.Context, guildID uuid.UUID) ([]FilterConfig, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.configs[guildID], nil
}

func (r *fakeConfigRepo) Upsert(_ context.Context, guildID uuid.UUID, filterType FilterType, params FilterConfigParams) (*FilterConfig, error) {
	cfg := FilterConfig{GuildID: guildID, FilterType: filterType}
	if params.Enabled != nil {
		cfg.Enabled = *params.Enabled
	}
	if params.Action != nil {
		cfg.Action = *params.Action
	}
	cfg.Patterns = params.Patterns
	r.configs[guildID] = append(r.configs[guildID], cfg)
	return &cfg, nil
}

// fakeAuditRepo implements AuditRepository in memory for evaluator tests.
type fakeAuditRepo struct {
	entries []Entry
}

func (r *fakeAuditRepo) Append(_ context.Context, entry Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeAuditRepo) ListForGuild(_ context.Context, guildID uuid.UUID, limit int) ([]Entry, error) {
	return r.entries, nil
}

func setupEvaluator(t *testing.T, repo *fakeConfigRepo, audit *fakeAuditRepo) *Evaluator {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewConfigCache(rdb, repo)
	return NewEvaluator(cache, audit, NewSubstringMatcher(), zerolog.Nop())
}

func TestEvaluator_MatchRejects(t *testing.T) {
	t.Parallel()
	guildID := uuid.New()
	repo := &fakeConfigRepo{configs: map[uuid.UUID][]FilterConfig{
		guildID: {{GuildID: guildID, FilterType: FilterHateSpeech, Enabled: true, Patterns: []string{"slur"}, Action: "delete_warn"}},
	}}
	audit := &fakeAuditRepo{}
	eval := setupEvaluator(t, repo, audit)

	verdict := eval.Evaluate(context.Background(), guildID, uuid.New(), "that contains a slur in it")

	if !verdict.Matched || !verdict.Rejected {
		t.Fatalf("verdict = %+v, want matched+rejected", verdict)
	}
	if len(audit.entries) != 1 || audit.entries[0].Kind != ActionFilterMatch {
		t.Fatalf("audit entries = %+v, want one filter_match entry", audit.entries)
	}
}

func TestEvaluator_LogActionMatchesButDoesNotReject(t *testing.T) {
	t.Parallel()
	guildID := uuid.New()
	repo := &fakeConfigRepo{configs: map[uuid.UUID][]FilterConfig{
		guildID: {{GuildID: guildID, FilterType: FilterHarassment, Enabled: true, Patterns: []string{"bully"}, Action: "log"}},
	}}
	audit := &fakeAuditRepo{}
	eval := setupEvaluator(t, repo, audit)

	verdict := eval.Evaluate(context.Background(), guildID, uuid.New(), "stop being a bully")

	if !verdict.Matched || verdict.Rejected {
		t.Fatalf("verdict = %+v, want matched, not rejected", verdict)
	}
	if len(audit.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(audit.entries))
	}
}

func TestEvaluator_NoMatchIsNotAudited(t *testing.T) {
	t.Parallel()
	guildID := uuid.New()
	repo := &fakeConfigRepo{configs: map[uuid.UUID][]FilterConfig{
		guildID: {{GuildID: guildID, FilterType: FilterHateSpeech, Enabled: true, Patterns: []string{"slur"}, Action: "delete_warn"}},
	}}
	audit := &fakeAuditRepo{}
	eval := setupEvaluator(t, repo, audit)

	verdict := eval.Evaluate(context.Background(), guildID, uuid.New(), "a perfectly ordinary message")

	if verdict.Matched {
		t.Fatalf("verdict = %+v, want not matched", verdict)
	}
	if len(audit.entries) != 0 {
		t.Fatalf("audit entries = %d, want 0", len(audit.entries))
	}
}

func TestEvaluator_DisabledFilterIsSkipped(t *testing.T) {
	t.Parallel()
	guildID := uuid.New()
	repo := &fakeConfigRepo{configs: map[uuid.UUID][]FilterConfig{
		guildID: {{GuildID: guildID, FilterType: FilterHateSpeech, Enabled: false, Patterns: []string{"slur"}, Action: "delete_warn"}},
	}}
	audit := &fakeAuditRepo{}
	eval := setupEvaluator(t, repo, audit)

	verdict := eval.Evaluate(context.Background(), guildID, uuid.New(), "contains a slur")

	if verdict.Matched {
		t.Fatalf("verdict = %+v, want not matched for disabled filter", verdict)
	}
}

func TestEvaluator_ConfigLookupFailureFailsOpen(t *testing.T) {
	t.Parallel()
	guildID := uuid.New()
	repo := &fakeConfigRepo{listErr: errors.New("store unavailable")}
	audit := &fakeAuditRepo{}
	eval := setupEvaluator(t, repo, audit)

	verdict := eval.Evaluate(context.Background(), guildID, uuid.New(), "contains a slur")

	if verdict.Matched || verdict.Rejected {
		t.Fatalf("verdict = %+v, want zero-value on lookup failure (fail open)", verdict)
	}
	if len(audit.entries) != 0 {
		t.Fatalf("audit entries = %d, want 0 on lookup failure", len(audit.entries))
	}
}

func TestConfigCache_UpsertInvalidatesCachedList(t *testing.T) {
	t.Parallel()
	guildID := uuid.New()
	repo := &fakeConfigRepo{configs: map[uuid.UUID][]FilterConfig{}}
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewConfigCache(rdb, repo)
	ctx := context.Background()

	if _, err := cache.List(ctx, guildID); err != nil {
		t.Fatalf("List() error = %v", err)
	}

	enabled := true
	action := "log"
	if _, err := cache.Upsert(ctx, guildID, FilterHateSpeech, FilterConfigParams{Enabled: &enabled, Action: &action, Patterns: []string{"x"}}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	configs, err := cache.List(ctx, guildID)
	if err != nil {
		t.Fatalf("List() after upsert error = %v", err)
	}
	if len(configs) != 1 || configs[0].FilterType != FilterHateSpeech {
		t.Fatalf("List() after upsert = %+v, want the newly upserted config visible", configs)
	}
}
