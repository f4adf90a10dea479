package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const selectColumns = "id, reporter_id, target_type, target_id, guild_id, reason, status, resolved_by, resolution_note, created_at, updated_at"

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

// NewPGRepository creates a new PostgreSQL-backed report repository.
func NewPGRepository(db *pgxpool.Pool, logger zerolog.Logger) *PGRepository {
	return &PGRepository{db: db, log: logger}
}

// Create inserts a new report in the pending state. The reporter-cannot-target-self invariant is enforced by the
// caller (it needs the target's resolved user ID, which this package does not look up); the target-presence
// invariant (a user or a message, never neither) is enforced by the caller's target_type check before this is called.
func (r *PGRepository) Create(ctx context.Context, params CreateParams) (*Report, error) {
	row := r.db.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO reports (reporter_id, target_type, target_id, guild_id, reason, status)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING %s`, selectColumns),
		params.ReporterID, params.TargetType, params.TargetID, params.GuildID, params.Reason, StatusPending,
	)
	rep, err := scanReport(row)
	if err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}
	return rep, nil
}

// GetByID returns the report matching the given ID.
func (r *PGRepository) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM reports WHERE id = $1", selectColumns), id)
	rep, err := scanReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query report by id: %w", err)
	}
	return rep, nil
}

// ListForGuild returns reports scoped to a guild, optionally filtered by status ("" means all statuses).
func (r *PGRepository) ListForGuild(ctx context.Context, guildID uuid.UUID, status string) ([]Report, error) {
	query := fmt.Sprintf("SELECT %s FROM reports WHERE guild_id = $1", selectColumns)
	args := []any{guildID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

// UpdateStatus transitions a report inside a transaction, re-checking the state machine edge against the current row
// to avoid racing a concurrent resolver.
func (r *PGRepository) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus string, resolvedBy uuid.UUID, note string) (*Report, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin report tx: %w", err)
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			r.log.Warn().Err(rErr).Msg("report tx rollback failed")
		}
	}()

	var currentStatus string
	if err := tx.QueryRow(ctx, "SELECT status FROM reports WHERE id = $1 FOR UPDATE", id).Scan(&currentStatus); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock report: %w", err)
	}

	if !CanTransition(currentStatus, newStatus) {
		return nil, ErrInvalidTransition
	}

	var resolvedByArg any
	if newStatus == StatusResolved || newStatus == StatusDismissed {
		resolvedByArg = resolvedBy
	}

	row := tx.QueryRow(ctx,
		fmt.Sprintf(`UPDATE reports SET status = $1, resolved_by = $2, resolution_note = $3, updated_at = now()
		 WHERE id = $4 RETURNING %s`, selectColumns),
		newStatus, resolvedByArg, note, id,
	)
	rep, err := scanReport(row)
	if err != nil {
		return nil, fmt.Errorf("update report: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit report tx: %w", err)
	}
	return rep, nil
}

func scanReport(row pgx.Row) (*Report, error) {
	var rep Report
	err := row.Scan(
		&rep.ID, &rep.ReporterID, &rep.TargetType, &rep.TargetID, &rep.GuildID, &rep.Reason,
		&rep.Status, &rep.ResolvedBy, &rep.ResolutionNote, &rep.CreatedAt, &rep.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan report: %w", err)
	}
	return &rep, nil
}
