// Package apierrors defines the machine-readable error codes returned in
// every API error envelope. Codes are stable strings so that clients can
// branch on them without parsing human-readable messages.
package apierrors

// Code is a stable, machine-readable error identifier.
type Code string

const (
	InternalError       Code = "internal_error"
	ServiceUnavailable  Code = "service_unavailable"
	ValidationError     Code = "validation_error"
	InvalidBody         Code = "invalid_body"
	InvalidChannelID    Code = "invalid_channel_id"
	InvalidCredentials  Code = "invalid_credentials"
	InvalidEmail        Code = "invalid_email"
	InvalidPassword     Code = "invalid_password"
	InvalidUsername     Code = "invalid_username"
	InvalidToken        Code = "invalid_token"
	TokenExpired        Code = "token_expired"
	Unauthorised        Code = "unauthorised"
	Unauthorized        Code = "unauthorized"
	MissingPermissions  Code = "missing_permissions"
	RoleHierarchy       Code = "role_hierarchy"
	RateLimited         Code = "rate_limited"
	PayloadTooLarge     Code = "payload_too_large"
	UnsupportedType     Code = "unsupported_content_type"
	NotFound            Code = "not_found"
	AlreadyExists       Code = "already_exists"
	AlreadyMember       Code = "already_member"
	Banned              Code = "banned"
	EmailNotVerified    Code = "email_not_verified"
	MFANotEnabled       Code = "mfa_not_enabled"
	MaxCategoriesReached Code = "max_categories_reached"
	MaxChannelsReached  Code = "max_channels_reached"
	MaxRolesReached     Code = "max_roles_reached"
	MembershipRequired  Code = "membership_required"
	OpenJoinDisabled    Code = "open_join_disabled"
	OwnerOnly           Code = "owner_only"
	ServerOwner         Code = "server_owner"
	SearchUnavailable   Code = "search_unavailable"
	UnknownAttachment   Code = "unknown_attachment"
	UnknownBan          Code = "unknown_ban"
	UnknownCategory     Code = "unknown_category"
	UnknownChannel      Code = "unknown_channel"
	UnknownInvite       Code = "unknown_invite"
	UnknownMember       Code = "unknown_member"
	UnknownMessage      Code = "unknown_message"
	UnknownOverride     Code = "unknown_override"
	UnknownRole         Code = "unknown_role"
	UnknownUser         Code = "unknown_user"
	UnsupportedContentType Code = "unsupported_content_type"

	// Added for the multi-tenant guild model, moderation pipeline and
	// voice coordinator.
	UnknownGuild        Code = "unknown_guild"
	GuildSuspended      Code = "guild_suspended"
	CannotEscalate      Code = "cannot_escalate"
	CannotModerateOwner Code = "cannot_moderate_owner"
	NotGuildMember      Code = "not_guild_member"
	ElevationRequired   Code = "elevation_required"
	NotSystemAdmin      Code = "not_system_admin"
	AlreadyBlocked      Code = "already_blocked"
	NotBlocked          Code = "not_blocked"
	CannotBlockSelf     Code = "cannot_block_self"
	UnknownReport       Code = "unknown_report"
	AlreadyReported      Code = "already_reported"
	CannotReportSelf    Code = "cannot_report_self"
	InvalidReportState  Code = "invalid_report_state"
	UnknownVoiceRoom    Code = "unknown_voice_room"
	DeviceCycle         Code = "device_cycle_detected"
	ContentViolation    Code = "content_violation"
)
