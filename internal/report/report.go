// Package report implements the user-report state machine: pending -> reviewing -> resolved|dismissed, with
// reviewing optional (an admin may jump straight to a terminal state).
package report

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for the report package.
var (
	ErrNotFound          = errors.New("report not found")
	ErrCannotReportSelf  = errors.New("cannot report yourself")
	ErrInvalidTarget     = errors.New("report must target a user or a message")
	ErrInvalidTransition = errors.New("invalid report status transition")
)

// Target types a report can name.
const (
	TargetUser    = "user"
	TargetMessage = "message"
)

// Status values, forming the state machine pending -> reviewing -> resolved|dismissed.
const (
	StatusPending   = "pending"
	StatusReviewing = "reviewing"
	StatusResolved  = "resolved"
	StatusDismissed = "dismissed"
)

// validTransitions maps each status to the set of statuses it may move to. Reviewing is optional: pending can jump
// straight to a terminal state.
var validTransitions = map[string]map[string]bool{
	StatusPending:   {StatusReviewing: true, StatusResolved: true, StatusDismissed: true},
	StatusReviewing: {StatusResolved: true, StatusDismissed: true},
}

// CanTransition reports whether moving from `from` to `to` is a legal state machine edge.
func CanTransition(from, to string) bool {
	return validTransitions[from][to]
}

// Report is a user-submitted complaint about a message or a member.
type Report struct {
	ID             uuid.UUID
	ReporterID     uuid.UUID
	TargetType     string
	TargetID       uuid.UUID
	GuildID        *uuid.UUID
	Reason         string
	Status         string
	ResolvedBy     *uuid.UUID
	ResolutionNote string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CreateParams groups the inputs for filing a new report.
type CreateParams struct {
	ReporterID uuid.UUID
	TargetType string
	TargetID   uuid.UUID
	GuildID    *uuid.UUID
	Reason     string
}

// Repository defines the data-access contract for reports.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Report, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)
	ListForGuild(ctx context.Context, guildID uuid.UUID, status string) ([]Report, error)
	// UpdateStatus transitions a report, validating the edge against the state machine. resolvedBy is recorded on
	// terminal transitions.
	UpdateStatus(ctx context.Context, id uuid.UUID, newStatus string, resolvedBy uuid.UUID, note string) (*Report, error)
}
