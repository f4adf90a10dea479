package block

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

// NewPGRepository creates a new PostgreSQL-backed block repository.
func NewPGRepository(db *pgxpool.Pool, logger zerolog.Logger) *PGRepository {
	return &PGRepository{db: db, log: logger}
}

func (r *PGRepository) Block(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	if blockerID == blockedID {
		return ErrCannotBlockSelf
	}
	_, err := r.db.Exec(ctx,
		"INSERT INTO user_blocks (blocker_id, blocked_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		blockerID, blockedID,
	)
	if err != nil {
		return fmt.Errorf("insert block: %w", err)
	}
	return nil
}

func (r *PGRepository) Unblock(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		"DELETE FROM user_blocks WHERE blocker_id = $1 AND blocked_id = $2",
		blockerID, blockedID,
	)
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotBlocked
	}
	return nil
}

func (r *PGRepository) List(ctx context.Context, blockerID uuid.UUID) ([]Block, error) {
	rows, err := r.db.Query(ctx,
		"SELECT blocker_id, blocked_id, created_at FROM user_blocks WHERE blocker_id = $1 ORDER BY created_at DESC",
		blockerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query blocks: %w", err)
	}
	defer rows.Close()

	var blocks []Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}
	return blocks, nil
}

func (r *PGRepository) IsBlocked(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM user_blocks
			WHERE (blocker_id = $1 AND blocked_id = $2) OR (blocker_id = $2 AND blocked_id = $1)
		)`, a, b,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check block: %w", err)
	}
	return exists, nil
}

// BlockedSet returns, for the candidates supplied, which ones are blocked with respect to userID in either direction.
func (r *PGRepository) BlockedSet(ctx context.Context, userID uuid.UUID, candidates []uuid.UUID) (map[uuid.UUID]bool, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT blocker_id, blocked_id FROM user_blocks
		 WHERE (blocker_id = $1 AND blocked_id = ANY($2)) OR (blocked_id = $1 AND blocker_id = ANY($2))`,
		userID, candidates,
	)
	if err != nil {
		return nil, fmt.Errorf("query blocked set: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID]bool, len(candidates))
	for rows.Next() {
		var blockerID, blockedID uuid.UUID
		if err := rows.Scan(&blockerID, &blockedID); err != nil {
			return nil, fmt.Errorf("scan blocked pair: %w", err)
		}
		other := blockerID
		if blockerID == userID {
			other = blockedID
		}
		result[other] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocked set: %w", err)
	}
	return result, nil
}

func scanBlock(row pgx.Row) (*Block, error) {
	var b Block
	if err := row.Scan(&b.BlockerID, &b.BlockedID, &b.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotBlocked
		}
		return nil, fmt.Errorf("scan block: %w", err)
	}
	return &b, nil
}
