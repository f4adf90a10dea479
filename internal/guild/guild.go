// Package guild holds the Guild entity: a single tenant's top-level
// server. This generalizes the teacher's singleton server_config row into
// one row per tenant, addressed by ID everywhere a caller previously
// assumed there was exactly one guild.
package guild

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Sentinel errors for the guild package.
var (
	ErrNotFound          = errors.New("guild not found")
	ErrNameLength        = errors.New("name must be between 1 and 100 characters")
	ErrDescriptionLength = errors.New("description must be 1024 characters or fewer")
	ErrSuspended         = errors.New("guild is suspended")
	ErrNotOwner          = errors.New("caller is not the guild owner")
	ErrNotMember         = errors.New("target user is not a guild member")
)

// Guild is a tenant's top-level server row.
type Guild struct {
	ID               uuid.UUID
	Name             string
	Description      string
	IconKey          *string
	BannerKey        *string
	OwnerID          uuid.UUID
	SuspendedAt      *time.Time
	SuspensionReason string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Suspended reports whether administrative action has disabled this guild.
func (g *Guild) Suspended() bool {
	return g.SuspendedAt != nil
}

// CreateParams groups the inputs for creating a new guild.
type CreateParams struct {
	Name    string
	OwnerID uuid.UUID
}

// UpdateParams groups the optional fields for updating a guild. A nil
// pointer means "no change".
type UpdateParams struct {
	Name        *string
	Description *string
	IconKey     *string
	BannerKey   *string
}

// ValidateName checks that a non-nil name is between 1 and 100 characters
// (runes) after trimming whitespace. A nil pointer means "no change"; a
// non-nil pointer is always validated. On success the pointed-to value is
// replaced with the trimmed result.
func ValidateName(name *string) error {
	if name == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*name)
	if utf8.RuneCountInString(trimmed) < 1 || utf8.RuneCountInString(trimmed) > 100 {
		return ErrNameLength
	}
	*name = trimmed
	return nil
}

// ValidateDescription checks that a non-nil description is 1024 characters
// (runes) or fewer. A nil pointer means "no change"; a pointer to an empty
// string means "clear the description."
func ValidateDescription(desc *string) error {
	if desc == nil {
		return nil
	}
	if utf8.RuneCountInString(*desc) > 1024 {
		return ErrDescriptionLength
	}
	return nil
}

// Repository defines the data-access contract for guild operations.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Guild, error)
	Get(ctx context.Context, id uuid.UUID) (*Guild, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]Guild, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Guild, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// TransferOwnership atomically reassigns ownership, requiring newOwnerID
	// to already be a member of the guild. It is a single transaction so a
	// crash mid-transfer can never leave a guild ownerless.
	TransferOwnership(ctx context.Context, id, newOwnerID uuid.UUID) (*Guild, error)
	// Suspend and Unsuspend are invoked only through the elevated-admin
	// path; callers outside internal/elevation must not call them directly.
	Suspend(ctx context.Context, id uuid.UUID, reason string) (*Guild, error)
	Unsuspend(ctx context.Context, id uuid.UUID) (*Guild, error)
}
