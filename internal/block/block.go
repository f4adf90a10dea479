// Package block implements one-directional user-block relationships. A block
// is symmetric in effect: neither side sees the other's messages, typing, or
// presence, even though the underlying row only records the blocker's intent.
package block

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for the block repository.
var (
	ErrAlreadyBlocked = errors.New("user already blocked")
	ErrNotBlocked     = errors.New("user is not blocked")
	ErrCannotBlockSelf = errors.New("cannot block yourself")
)

// Block is a single directional block row.
type Block struct {
	BlockerID uuid.UUID
	BlockedID uuid.UUID
	CreatedAt time.Time
}

// Repository defines the data-access contract for user blocks.
type Repository interface {
	// Block records that blockerID has blocked blockedID. Idempotent: blocking an already-blocked user succeeds
	// without adding a duplicate row. Blocking yourself returns ErrCannotBlockSelf.
	Block(ctx context.Context, blockerID, blockedID uuid.UUID) error

	// Unblock removes a block row. Returns ErrNotBlocked if none existed.
	Unblock(ctx context.Context, blockerID, blockedID uuid.UUID) error

	// List returns every user blockerID has blocked, most recent first.
	List(ctx context.Context, blockerID uuid.UUID) ([]Block, error)

	// IsBlocked reports whether a block exists in either direction between a and b (the effect is symmetric even
	// though the row is directional).
	IsBlocked(ctx context.Context, a, b uuid.UUID) (bool, error)

	// BlockedSet returns the set of user IDs that are blocked with respect to userID in either direction, restricted
	// to the candidates supplied. Used to filter message/typing/presence fan-out in bulk.
	BlockedSet(ctx context.Context, userID uuid.UUID, candidates []uuid.UUID) (map[uuid.UUID]bool, error)
}
