// Package moderation evaluates outbound message content against a guild's configured content filters and records the
// resulting actions. Evaluation is synchronous and fail-open: a filter lookup or matcher error never blocks message
// delivery, it only skips filtering for that message.
package moderation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for the moderation package.
var (
	ErrNotFound            = errors.New("filter config not found")
	ErrInvalidAction       = errors.New("invalid filter action")
	ErrInvalidFilterType   = errors.New("invalid filter type")
	ErrCannotModerateOwner = errors.New("cannot moderate the server owner")
)

// FilterType names a category of content a guild can filter on.
type FilterType string

// Supported filter types, unique per guild.
const (
	FilterHateSpeech     FilterType = "hate_speech"
	FilterDiscrimination FilterType = "discrimination"
	FilterHarassment     FilterType = "harassment"
)

// ValidFilterTypes are the accepted FilterConfig.FilterType values.
var ValidFilterTypes = map[FilterType]bool{
	FilterHateSpeech:     true,
	FilterDiscrimination: true,
	FilterHarassment:     true,
}

// ValidActions are the accepted FilterConfig.Action values.
var ValidActions = map[string]bool{
	"delete_warn": true,
	"shadow_ban":  true,
	"log":         true,
}

// RejectingActions are the actions that cause filter evaluation to reject the message outright, rather than allow it
// through with just an audit trail.
var RejectingActions = map[string]bool{
	"delete_warn": true,
	"shadow_ban":  true,
}

// FilterConfig is one of a guild's content filters, unique on (guild_id, filter_type).
type FilterConfig struct {
	GuildID    uuid.UUID
	FilterType FilterType
	Enabled    bool
	Patterns   []string
	Action     string
	UpdatedAt  time.Time
}

// FilterConfigParams groups the optional fields for an upsert.
type FilterConfigParams struct {
	Enabled  *bool
	Patterns []string
	Action   *string
}

// ConfigRepository persists per-guild, per-type filter configuration.
type ConfigRepository interface {
	// List returns every configured filter for a guild, enabled or not.
	List(ctx context.Context, guildID uuid.UUID) ([]FilterConfig, error)
	Upsert(ctx context.Context, guildID uuid.UUID, filterType FilterType, params FilterConfigParams) (*FilterConfig, error)
}

// Action kinds recorded in the audit log.
const (
	ActionFilterMatch   = "filter_match"
	ActionReportResolve = "report_resolve"
	ActionElevatedAdmin = "elevated_admin_action"
)

// Entry is an append-only audit-log row. It never stores the raw content that triggered it, only a reference and a
// reason, so moderators can review what happened without the pipeline itself becoming a content store.
type Entry struct {
	ID         uuid.UUID
	GuildID    uuid.UUID
	ActorID    *uuid.UUID
	TargetType string
	TargetID   uuid.UUID
	Kind       string
	Reason     string
	CreatedAt  time.Time
}

// AuditRepository appends and lists moderation actions.
type AuditRepository interface {
	Append(ctx context.Context, entry Entry) error
	ListForGuild(ctx context.Context, guildID uuid.UUID, limit int) ([]Entry, error)
}

// Verdict is the outcome of evaluating a message against a guild's filters.
type Verdict struct {
	Matched    bool
	Rejected   bool
	FilterType FilterType
	Action     string
	Pattern    string
}
