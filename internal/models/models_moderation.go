package models

// UserBlock describes a one-directional block relationship. The block is
// symmetric in effect (neither side sees the other) even though the
// underlying row is directional.
type UserBlock struct {
	BlockedUserID string `json:"blocked_user_id"`
	CreatedAt     string `json:"created_at"`
}

// BlockUserRequest blocks another user.
type BlockUserRequest struct {
	UserID string `json:"user_id"`
}

// Filter type identifiers. A guild may configure one FilterConfig per type.
const (
	FilterTypeHateSpeech     = "hate_speech"
	FilterTypeDiscrimination = "discrimination"
	FilterTypeHarassment     = "harassment"
)

// FilterConfig is one of a guild's content-moderation filters, unique on (guild_id, filter_type).
type FilterConfig struct {
	GuildID    string   `json:"guild_id"`
	FilterType string   `json:"filter_type"`
	Enabled    bool     `json:"enabled"`
	Patterns   []string `json:"patterns"`
	Action     string   `json:"action"`
	UpdatedAt  string   `json:"updated_at"`
}

// Moderation action kinds applied when a filter matches.
const (
	FilterActionDeleteWarn FilterActionKind = "delete_warn"
	FilterActionShadowBan  FilterActionKind = "shadow_ban"
	FilterActionLog        FilterActionKind = "log"
)

// FilterActionKind names what the moderation pipeline does when a filter matches.
type FilterActionKind string

// UpdateFilterConfigRequest carries PATCH filter-config fields.
type UpdateFilterConfigRequest struct {
	Enabled  *bool    `json:"enabled,omitempty"`
	Patterns []string `json:"patterns,omitempty"`
	Action   *string  `json:"action,omitempty"`
}

// ModerationAction is an append-only audit-log entry. It never stores the
// raw message content that triggered it, only a reference and a reason.
type ModerationAction struct {
	ID         string `json:"id"`
	GuildID    string `json:"guild_id"`
	ActorID    string `json:"actor_id,omitempty"`
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	Kind       string `json:"kind"`
	Reason     string `json:"reason,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// Report state machine values.
const (
	ReportStatusPending   = "pending"
	ReportStatusReviewing = "reviewing"
	ReportStatusResolved  = "resolved"
	ReportStatusDismissed = "dismissed"
)

// Report is a user-submitted complaint about a message or member.
type Report struct {
	ID           string `json:"id"`
	ReporterID   string `json:"reporter_id"`
	TargetType   string `json:"target_type"`
	TargetID     string `json:"target_id"`
	GuildID      string `json:"guild_id,omitempty"`
	Reason       string `json:"reason"`
	Status       string `json:"status"`
	ResolvedBy   *string `json:"resolved_by,omitempty"`
	ResolutionNote string `json:"resolution_note,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// CreateReportRequest files a new report.
type CreateReportRequest struct {
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	Reason     string `json:"reason"`
}

// UpdateReportStatusRequest transitions a report to a new state.
type UpdateReportStatusRequest struct {
	Status         string `json:"status"`
	ResolutionNote string `json:"resolution_note,omitempty"`
}

// ElevateSessionRequest begins an admin elevation with a fresh TOTP code.
type ElevateSessionRequest struct {
	Code string `json:"code"`
}

// ElevateSessionResponse carries the short-lived elevation token.
type ElevateSessionResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}
