package block

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service combines the repository and cache into a single cache-first lookup surface, used by the gateway and
// message list queries to filter out blocked counterparts.
type Service struct {
	repo  Repository
	cache Cache
	log   zerolog.Logger
}

// NewService creates a block lookup service.
func NewService(repo Repository, cache Cache, logger zerolog.Logger) *Service {
	return &Service{repo: repo, cache: cache, log: logger}
}

// BlockedSet resolves, for each candidate, whether a block exists between userID and the candidate in either
// direction. Cache hits are served without touching the database; misses are resolved from the repository and
// backfilled into the cache.
func (s *Service) BlockedSet(ctx context.Context, userID uuid.UUID, candidates []uuid.UUID) (map[uuid.UUID]bool, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	hits, misses, err := s.cache.GetMany(ctx, userID, candidates)
	if err != nil {
		s.log.Warn().Err(err).Msg("block cache lookup failed, falling back to database")
		misses = candidates
		hits = nil
	}
	if len(misses) == 0 {
		return hits, nil
	}

	resolved, err := s.repo.BlockedSet(ctx, userID, misses)
	if err != nil {
		return nil, fmt.Errorf("resolve blocked set: %w", err)
	}

	toCache := make(map[uuid.UUID]bool, len(misses))
	for _, m := range misses {
		toCache[m] = resolved[m]
	}
	if err := s.cache.SetMany(ctx, userID, toCache); err != nil {
		s.log.Warn().Err(err).Msg("failed to backfill block cache")
	}

	if hits == nil {
		hits = make(map[uuid.UUID]bool, len(candidates))
	}
	for other, blocked := range toCache {
		hits[other] = blocked
	}
	return hits, nil
}

// IsBlocked is a single-pair convenience wrapper around BlockedSet.
func (s *Service) IsBlocked(ctx context.Context, userID, otherID uuid.UUID) (bool, error) {
	set, err := s.BlockedSet(ctx, userID, []uuid.UUID{otherID})
	if err != nil {
		return false, err
	}
	return set[otherID], nil
}

// Block records a new block and invalidates the cached pair so the change is visible immediately.
func (s *Service) Block(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	if err := s.repo.Block(ctx, blockerID, blockedID); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, blockerID, blockedID); err != nil {
		s.log.Warn().Err(err).Msg("failed to invalidate block cache")
	}
	return nil
}

// Unblock removes a block and invalidates the cached pair.
func (s *Service) Unblock(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	if err := s.repo.Unblock(ctx, blockerID, blockedID); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, blockerID, blockedID); err != nil {
		s.log.Warn().Err(err).Msg("failed to invalidate block cache")
	}
	return nil
}

// List returns every user blockerID has blocked.
func (s *Service) List(ctx context.Context, blockerID uuid.UUID) ([]Block, error) {
	return s.repo.List(ctx, blockerID)
}
