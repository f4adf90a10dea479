package models

// Guild is a single tenant's top-level server. It supersedes the teacher's
// singleton ServerConfig: a deployment now hosts many guilds, each with its
// own owner, channels, roles and members.
type Guild struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Description       string  `json:"description,omitempty"`
	IconKey           *string `json:"icon_key,omitempty"`
	BannerKey         *string `json:"banner_key,omitempty"`
	OwnerID           string  `json:"owner_id"`
	Suspended         bool    `json:"suspended"`
	SuspensionReason  string  `json:"suspension_reason,omitempty"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

// CreateGuildRequest creates a new guild owned by the caller.
type CreateGuildRequest struct {
	Name string `json:"name"`
}

// UpdateGuildRequest carries PATCH guild fields.
type UpdateGuildRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IconKey     *string `json:"icon_key,omitempty"`
	BannerKey   *string `json:"banner_key,omitempty"`
}

// TransferOwnershipRequest names the member who becomes the new owner.
type TransferOwnershipRequest struct {
	NewOwnerID string `json:"new_owner_id"`
}

// SuspendGuildRequest records why an elevated admin suspended a guild.
type SuspendGuildRequest struct {
	Reason string `json:"reason"`
}
