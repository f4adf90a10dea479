package moderation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const filterColumns = "guild_id, filter_type, enabled, patterns, action, updated_at"

// PGConfigRepository implements ConfigRepository using PostgreSQL.
type PGConfigRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

// NewPGConfigRepository creates a new PostgreSQL-backed filter config repository.
func NewPGConfigRepository(db *pgxpool.Pool, logger zerolog.Logger) *PGConfigRepository {
	return &PGConfigRepository{db: db, log: logger}
}

// List returns every configured filter for a guild.
func (r *PGConfigRepository) List(ctx context.Context, guildID uuid.UUID) ([]FilterConfig, error) {
	rows, err := r.db.Query(ctx,
		fmt.Sprintf("SELECT %s FROM filter_configs WHERE guild_id = $1", filterColumns), guildID,
	)
	if err != nil {
		return nil, fmt.Errorf("query filter configs: %w", err)
	}
	defer rows.Close()

	var configs []FilterConfig
	for rows.Next() {
		cfg, err := scanFilterConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate filter configs: %w", err)
	}
	return configs, nil
}

// Upsert creates or updates one (guild_id, filter_type) filter, merging non-nil fields over the existing row (or
// sane defaults if none exists).
func (r *PGConfigRepository) Upsert(ctx context.Context, guildID uuid.UUID, filterType FilterType, params FilterConfigParams) (*FilterConfig, error) {
	if !ValidFilterTypes[filterType] {
		return nil, ErrInvalidFilterType
	}

	var existing *FilterConfig
	existingRow := r.db.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM filter_configs WHERE guild_id = $1 AND filter_type = $2", filterColumns),
		guildID, filterType,
	)
	if cfg, err := scanFilterConfig(existingRow); err == nil {
		existing = cfg
	}

	enabled, patterns, action := false, []string(nil), "log"
	if existing != nil {
		enabled, patterns, action = existing.Enabled, existing.Patterns, existing.Action
	}
	if params.Enabled != nil {
		enabled = *params.Enabled
	}
	if params.Patterns != nil {
		patterns = params.Patterns
	}
	if params.Action != nil {
		action = *params.Action
	}
	if !ValidActions[action] {
		return nil, ErrInvalidAction
	}

	row := r.db.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO filter_configs (guild_id, filter_type, enabled, patterns, action)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (guild_id, filter_type) DO UPDATE SET enabled = $3, patterns = $4, action = $5, updated_at = now()
		 RETURNING %s`, filterColumns),
		guildID, filterType, enabled, patterns, action,
	)
	cfg, err := scanFilterConfig(row)
	if err != nil {
		return nil, fmt.Errorf("upsert filter config: %w", err)
	}
	return cfg, nil
}

func scanFilterConfig(row pgx.Row) (*FilterConfig, error) {
	var cfg FilterConfig
	if err := row.Scan(&cfg.GuildID, &cfg.FilterType, &cfg.Enabled, &cfg.Patterns, &cfg.Action, &cfg.UpdatedAt); err != nil {
		return nil, err
	}
	return &cfg, nil
}

const auditColumns = "id, guild_id, actor_id, target_type, target_id, kind, reason, created_at"

// PGAuditRepository implements AuditRepository using PostgreSQL.
type PGAuditRepository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

// NewPGAuditRepository creates a new PostgreSQL-backed moderation audit log.
func NewPGAuditRepository(db *pgxpool.Pool, logger zerolog.Logger) *PGAuditRepository {
	return &PGAuditRepository{db: db, log: logger}
}

// Append inserts an audit-log entry.
func (r *PGAuditRepository) Append(ctx context.Context, entry Entry) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO moderation_actions (guild_id, actor_id, target_type, target_id, kind, reason)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.GuildID, entry.ActorID, entry.TargetType, entry.TargetID, entry.Kind, entry.Reason,
	)
	if err != nil {
		return fmt.Errorf("insert moderation action: %w", err)
	}
	return nil
}

// ListForGuild returns the most recent moderation actions for a guild.
func (r *PGAuditRepository) ListForGuild(ctx context.Context, guildID uuid.UUID, limit int) ([]Entry, error) {
	rows, err := r.db.Query(ctx,
		fmt.Sprintf("SELECT %s FROM moderation_actions WHERE guild_id = $1 ORDER BY created_at DESC LIMIT $2", auditColumns),
		guildID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query moderation actions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.GuildID, &e.ActorID, &e.TargetType, &e.TargetID, &e.Kind, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan moderation action: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moderation actions: %w", err)
	}
	return entries, nil
}
