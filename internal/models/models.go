// Package models defines the JSON request and response shapes exchanged
// with API clients. Internal domain types (channel.Channel, role.Role, ...)
// never cross the wire directly; each carries a ToModel method that
// produces the corresponding type here.
package models

// User is the public profile of an account.
type User struct {
	ID                   string `json:"id"`
	Email                string `json:"email,omitempty"`
	Username             string `json:"username"`
	DisplayName          string `json:"display_name"`
	AvatarKey            *string `json:"avatar_key,omitempty"`
	Pronouns             string `json:"pronouns,omitempty"`
	BannerKey            *string `json:"banner_key,omitempty"`
	About                string `json:"about,omitempty"`
	ThemeColourPrimary   *string `json:"theme_colour_primary,omitempty"`
	ThemeColourSecondary *string `json:"theme_colour_secondary,omitempty"`
	MFAEnabled           bool   `json:"mfa_enabled"`
	EmailVerified        bool   `json:"email_verified"`
}

// UpdateUserRequest carries PATCH /users/@me fields. Nil means "no change".
type UpdateUserRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	Pronouns    *string `json:"pronouns,omitempty"`
	About       *string `json:"about,omitempty"`
}

// DeleteAccountRequest confirms account deletion with the current password.
type DeleteAccountRequest struct {
	Password string `json:"password"`
}

// MemberUser is the reduced user projection embedded in member/message/ban payloads.
type MemberUser struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	AvatarKey   *string `json:"avatar_key,omitempty"`
}

// Member status constants mirror the guild_members.status CHECK constraint.
const (
	MemberStatusPending MemberStatus = "pending"
	MemberStatusActive  MemberStatus = "active"
	MemberStatusTimedOut MemberStatus = "timed_out"
)

// MemberStatus is the onboarding/moderation state of a guild membership.
type MemberStatus string

// Member is a user's membership record within a guild.
type Member struct {
	User         MemberUser `json:"user"`
	Nickname     *string    `json:"nickname,omitempty"`
	JoinedAt     string     `json:"joined_at"`
	Roles        []string   `json:"roles"`
	Status       MemberStatus `json:"status"`
	TimeoutUntil *string    `json:"timeout_until,omitempty"`
}

// UpdateMemberRequest carries PATCH member fields (nickname, roles).
type UpdateMemberRequest struct {
	Nickname *string  `json:"nickname,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// TimeoutMemberRequest times a member out until the given RFC3339 instant, or clears it when nil.
type TimeoutMemberRequest struct {
	Until *string `json:"until,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// BanMemberRequest bans a member, optionally deleting their recent message history.
type BanMemberRequest struct {
	Reason            string `json:"reason,omitempty"`
	DeleteMessageDays int    `json:"delete_message_days,omitempty"`
	ExpiresAt         *string `json:"expires_at,omitempty"`
}

// MemberRemoveData is the gateway payload for a member leaving or being removed.
type MemberRemoveData struct {
	UserID string `json:"user_id"`
}

// Ban is a guild ban record.
type Ban struct {
	User      MemberUser `json:"user"`
	Reason    string     `json:"reason,omitempty"`
	BannedBy  *string    `json:"banned_by,omitempty"`
	ExpiresAt *string    `json:"expires_at,omitempty"`
	CreatedAt string     `json:"created_at"`
}

// Guild (spec name) / PublicServerInfo is the unauthenticated guild summary.
type PublicServerInfo struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	IconKey     *string `json:"icon_key,omitempty"`
}

// ServerConfig is the authenticated guild configuration view.
type ServerConfig struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	IconKey     *string `json:"icon_key,omitempty"`
	BannerKey   *string `json:"banner_key,omitempty"`
	OwnerID     string  `json:"owner_id"`
	Suspended   bool    `json:"suspended"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// UpdateServerConfigRequest carries PATCH guild-config fields.
type UpdateServerConfigRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IconKey     *string `json:"icon_key,omitempty"`
	BannerKey   *string `json:"banner_key,omitempty"`
}

// Channel type constants mirror internal/channel's CHECK-constraint values, with "dm" added for
// direct-message channels which have no owning guild.
const (
	ChannelTypeText         = "text"
	ChannelTypeVoice        = "voice"
	ChannelTypeAnnouncement = "announcement"
	ChannelTypeForum        = "forum"
	ChannelTypeStage        = "stage"
	ChannelTypeDM           = "dm"
)

// Channel is a channel within a guild, or a DM channel when GuildID is empty.
type Channel struct {
	ID              string  `json:"id"`
	GuildID         string  `json:"guild_id,omitempty"`
	CategoryID      *string `json:"category_id,omitempty"`
	Name            string  `json:"name,omitempty"`
	Type            string  `json:"type"`
	Topic           string  `json:"topic,omitempty"`
	Position        int     `json:"position"`
	SlowmodeSeconds int     `json:"slowmode_seconds"`
	NSFW            bool    `json:"nsfw"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// CreateChannelRequest creates a channel within a guild.
type CreateChannelRequest struct {
	Name       string  `json:"name"`
	Type       string  `json:"type,omitempty"`
	CategoryID *string `json:"category_id,omitempty"`
	Topic      string  `json:"topic,omitempty"`
	NSFW       bool    `json:"nsfw,omitempty"`
}

// UpdateChannelRequest carries PATCH channel fields. SetCategoryNull distinguishes "leave category
// unchanged" (CategoryID nil, SetCategoryNull false) from "remove from category" (SetCategoryNull true).
type UpdateChannelRequest struct {
	Name            *string `json:"name,omitempty"`
	CategoryID      *string `json:"category_id,omitempty"`
	SetCategoryNull bool    `json:"set_category_null,omitempty"`
	Topic           *string `json:"topic,omitempty"`
	Position        *int    `json:"position,omitempty"`
	SlowmodeSeconds *int    `json:"slowmode_seconds,omitempty"`
	NSFW            *bool   `json:"nsfw,omitempty"`
}

// ChannelDeleteData is the gateway payload for a deleted channel.
type ChannelDeleteData struct {
	ID      string `json:"id"`
	GuildID string `json:"guild_id,omitempty"`
}

// Category groups channels within a guild.
type Category struct {
	ID        string `json:"id"`
	GuildID   string `json:"guild_id"`
	Name      string `json:"name"`
	Position  int    `json:"position"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// CreateCategoryRequest creates a category.
type CreateCategoryRequest struct {
	Name string `json:"name"`
}

// UpdateCategoryRequest carries PATCH category fields.
type UpdateCategoryRequest struct {
	Name     *string `json:"name,omitempty"`
	Position *int    `json:"position,omitempty"`
}

// Role is a guild role.
type Role struct {
	ID          string `json:"id"`
	GuildID     string `json:"guild_id"`
	Name        string `json:"name"`
	Colour      int    `json:"colour"`
	Position    int    `json:"position"`
	Hoist       bool   `json:"hoist"`
	Permissions int64  `json:"permissions"`
	IsEveryone  bool   `json:"is_everyone"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// CreateRoleRequest creates a role.
type CreateRoleRequest struct {
	Name        string `json:"name"`
	Colour      *int   `json:"colour,omitempty"`
	Permissions *int64 `json:"permissions,omitempty"`
	Hoist       *bool  `json:"hoist,omitempty"`
}

// UpdateRoleRequest carries PATCH role fields.
type UpdateRoleRequest struct {
	Name        *string `json:"name,omitempty"`
	Colour      *int    `json:"colour,omitempty"`
	Position    *int    `json:"position,omitempty"`
	Permissions *int64  `json:"permissions,omitempty"`
	Hoist       *bool   `json:"hoist,omitempty"`
}

// RoleDeleteData is the gateway payload for a deleted role.
type RoleDeleteData struct {
	ID      string `json:"id"`
	GuildID string `json:"guild_id,omitempty"`
}

// PermissionOverride is a per-channel allow/deny override for a role or user.
type PermissionOverride struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	TargetID  string `json:"target_id"`
	Allow     int64  `json:"allow"`
	Deny      int64  `json:"deny"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// SetOverrideRequest sets a permission override.
type SetOverrideRequest struct {
	Type  string `json:"type"`
	Allow int64  `json:"allow"`
	Deny  int64  `json:"deny"`
}

// ResolvedPermissions is the caller's effective permission bitfield in a channel.
type ResolvedPermissions struct {
	Permissions int64 `json:"permissions"`
}

// Attachment is a file uploaded alongside a message.
type Attachment struct {
	ID           string  `json:"id"`
	Filename     string  `json:"filename"`
	URL          string  `json:"url"`
	ThumbnailURL *string `json:"thumbnail_url,omitempty"`
	Size         int64   `json:"size"`
	ContentType  string  `json:"content_type"`
	Width        int     `json:"width,omitempty"`
	Height       int     `json:"height,omitempty"`
}

// Message is a chat message. Encrypted is true when Content is an opaque end-to-end ciphertext
// payload that the moderation pipeline does not inspect.
type Message struct {
	ID          string       `json:"id"`
	ChannelID   string       `json:"channel_id"`
	Author      MemberUser   `json:"author"`
	Content     string       `json:"content"`
	Encrypted   bool         `json:"encrypted,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	ReplyToID   *string      `json:"reply_to_id,omitempty"`
	Pinned      bool         `json:"pinned"`
	EditedAt    *string      `json:"edited_at,omitempty"`
	CreatedAt   string       `json:"created_at"`
}

// CreateMessageRequest creates a message.
type CreateMessageRequest struct {
	Content     string   `json:"content"`
	Encrypted   bool     `json:"encrypted,omitempty"`
	ReplyToID   *string  `json:"reply_to_id,omitempty"`
	Attachments []string `json:"attachment_ids,omitempty"`
}

// UpdateMessageRequest edits a message's content.
type UpdateMessageRequest struct {
	Content string `json:"content"`
}

// MessageResponse is a generic human-readable confirmation envelope.
type MessageResponse struct {
	Message string `json:"message"`
}

// MessageDeleteData is the gateway payload for a deleted message.
type MessageDeleteData struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
}

// Invite is a redeemable guild invite code.
type Invite struct {
	ID            string  `json:"id"`
	GuildID       string  `json:"guild_id"`
	Code          string  `json:"code"`
	ChannelID     string  `json:"channel_id"`
	CreatorID     string  `json:"creator_id"`
	MaxUses       int     `json:"max_uses,omitempty"`
	UseCount      int     `json:"use_count"`
	MaxAgeSeconds int     `json:"max_age_seconds,omitempty"`
	ExpiresAt     *string `json:"expires_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// CreateInviteRequest creates a channel invite.
type CreateInviteRequest struct {
	MaxUses       int `json:"max_uses,omitempty"`
	MaxAgeSeconds int `json:"max_age_seconds,omitempty"`
}

// MFA setup/confirm/disable request and response shapes.
type MFAEnableRequest struct {
	Password string `json:"password"`
}

type MFASetupResponse struct {
	Secret string `json:"secret"`
	URI    string `json:"uri"`
}

type MFAConfirmRequest struct {
	Code string `json:"code"`
}

type MFAConfirmResponse struct {
	RecoveryCodes []string `json:"recovery_codes"`
}

type MFADisableRequest struct {
	Password string `json:"password"`
	Code     string `json:"code"`
}

type MFARegenerateCodesRequest struct {
	Password string `json:"password"`
}

type MFARegenerateCodesResponse struct {
	RecoveryCodes []string `json:"recovery_codes"`
}

// Onboarding step constants describe the gated sequence a pending member must complete.
const (
	OnboardingStepVerifyEmail      = "verify_email"
	OnboardingStepAcceptDocuments  = "accept_documents"
	OnboardingStepJoinServer       = "join_server"
	OnboardingStepComplete         = "complete"
)

type OnboardingConfig struct {
	RequireEmailVerification bool     `json:"require_email_verification"`
	DocumentIDs              []string `json:"document_ids,omitempty"`
	OpenJoinEnabled          bool     `json:"open_join_enabled"`
}

type UpdateOnboardingConfigRequest struct {
	RequireEmailVerification *bool    `json:"require_email_verification,omitempty"`
	DocumentIDs              []string `json:"document_ids,omitempty"`
	OpenJoinEnabled          *bool    `json:"open_join_enabled,omitempty"`
}

type OnboardingDocument struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type AcceptOnboardingRequest struct {
	DocumentIDs []string `json:"document_ids"`
}

type OnboardingStatusResponse struct {
	Step string `json:"step"`
}

// SearchMessageHit is one search result row.
type SearchMessageHit struct {
	Message Message `json:"message"`
	Score   float64 `json:"score"`
}

type SearchResponse struct {
	Hits  []SearchMessageHit `json:"hits"`
	Total int64              `json:"total"`
}

// Gateway presence payloads (also declared in package events; these are the REST-facing mirrors
// used by the presence snapshot endpoint).
type PresenceState struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

type PresenceUpdateRequest struct {
	Status string `json:"status"`
}
