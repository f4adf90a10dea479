package guild

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const selectColumns = "id, name, description, icon_key, banner_key, owner_id, suspended_at, suspension_reason, created_at, updated_at"

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

// NewPGRepository creates a new PostgreSQL-backed guild repository.
func NewPGRepository(db *pgxpool.Pool, logger zerolog.Logger) *PGRepository {
	return &PGRepository{db: db, log: logger}
}

// Create inserts a new guild row and makes the owner its first member in the
// same transaction, so a guild can never exist without its owner present in
// guild_members.
func (r *PGRepository) Create(ctx context.Context, params CreateParams) (*Guild, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create guild: %w", err)
	}
	defer tx.Rollback(ctx)

	id := uuid.New()
	row := tx.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO guilds (id, name, owner_id) VALUES ($1, $2, $3) RETURNING %s`, selectColumns),
		id, params.Name, params.OwnerID,
	)
	g, err := scanGuild(row)
	if err != nil {
		return nil, fmt.Errorf("insert guild: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO guild_members (guild_id, user_id, status) VALUES ($1, $2, 'active')`,
		g.ID, params.OwnerID,
	); err != nil {
		return nil, fmt.Errorf("insert owner membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create guild: %w", err)
	}
	return g, nil
}

// Get returns a single guild by ID.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*Guild, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM guilds WHERE id = $1", selectColumns), id)
	g, err := scanGuild(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query guild: %w", err)
	}
	return g, nil
}

// ListForUser returns every guild a user currently has an active membership in.
func (r *PGRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]Guild, error) {
	rows, err := r.db.Query(ctx,
		fmt.Sprintf(`SELECT g.%s FROM guilds g
			JOIN guild_members m ON m.guild_id = g.id
			WHERE m.user_id = $1 AND m.status = 'active'
			ORDER BY g.created_at`, strings.ReplaceAll(selectColumns, ", ", ", g.")),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query guilds for user: %w", err)
	}
	defer rows.Close()

	var out []Guild
	for rows.Next() {
		g, err := scanGuild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan guild: %w", err)
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// Update applies the non-nil fields in params to the guild row.
func (r *PGRepository) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Guild, error) {
	var setClauses []string
	namedArgs := pgx.NamedArgs{"id": id}

	if params.Name != nil {
		setClauses = append(setClauses, "name = @name")
		namedArgs["name"] = *params.Name
	}
	if params.Description != nil {
		setClauses = append(setClauses, "description = @description")
		namedArgs["description"] = *params.Description
	}
	if params.IconKey != nil {
		setClauses = append(setClauses, "icon_key = @icon_key")
		namedArgs["icon_key"] = *params.IconKey
	}
	if params.BannerKey != nil {
		setClauses = append(setClauses, "banner_key = @banner_key")
		namedArgs["banner_key"] = *params.BannerKey
	}

	if len(setClauses) == 0 {
		return r.Get(ctx, id)
	}

	query := "UPDATE guilds SET " + strings.Join(setClauses, ", ") +
		" WHERE id = @id RETURNING " + selectColumns

	row := r.db.QueryRow(ctx, query, namedArgs)
	g, err := scanGuild(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update guild: %w", err)
	}
	return g, nil
}

// Delete removes a guild. Child rows (channels, members, roles, ...) cascade
// via foreign key ON DELETE CASCADE.
func (r *PGRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM guilds WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete guild: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TransferOwnership reassigns the owner_id column, requiring the new owner
// to already hold active membership, in a single transaction.
func (r *PGRepository) TransferOwnership(ctx context.Context, id, newOwnerID uuid.UUID) (*Guild, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transfer ownership: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM guild_members WHERE guild_id = $1 AND user_id = $2`, id, newOwnerID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("check new owner membership: %w", err)
	}
	if status != "active" {
		return nil, ErrNotMember
	}

	row := tx.QueryRow(ctx,
		fmt.Sprintf(`UPDATE guilds SET owner_id = $1 WHERE id = $2 RETURNING %s`, selectColumns),
		newOwnerID, id,
	)
	g, err := scanGuild(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update owner: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transfer ownership: %w", err)
	}
	return g, nil
}

// Suspend marks a guild suspended with an audit reason.
func (r *PGRepository) Suspend(ctx context.Context, id uuid.UUID, reason string) (*Guild, error) {
	row := r.db.QueryRow(ctx,
		fmt.Sprintf(`UPDATE guilds SET suspended_at = now(), suspension_reason = $1 WHERE id = $2 RETURNING %s`, selectColumns),
		reason, id,
	)
	g, err := scanGuild(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("suspend guild: %w", err)
	}
	return g, nil
}

// Unsuspend clears a guild's suspension state.
func (r *PGRepository) Unsuspend(ctx context.Context, id uuid.UUID) (*Guild, error) {
	row := r.db.QueryRow(ctx,
		fmt.Sprintf(`UPDATE guilds SET suspended_at = NULL, suspension_reason = '' WHERE id = $1 RETURNING %s`, selectColumns),
		id,
	)
	g, err := scanGuild(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("unsuspend guild: %w", err)
	}
	return g, nil
}

// scanGuild scans a single row into a Guild struct.
func scanGuild(row pgx.Row) (*Guild, error) {
	var g Guild
	err := row.Scan(
		&g.ID, &g.Name, &g.Description, &g.IconKey, &g.BannerKey,
		&g.OwnerID, &g.SuspendedAt, &g.SuspensionReason, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan guild: %w", err)
	}
	return &g, nil
}
