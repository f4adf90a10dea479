package api

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/driftline/driftline-server/internal/guild"
)

// fakeServerRepo implements guild.Repository for handler tests that only need a single
// fixed guild (the teacher's tests assumed a single-tenant deployment; this preserves
// that shape for tests that don't exercise multi-tenancy directly).
type fakeServerRepo struct {
	cfg *guild.Guild
}

func (r *fakeServerRepo) Create(_ context.Context, params guild.CreateParams) (*guild.Guild, error) {
	return &guild.Guild{ID: uuid.New(), Name: params.Name, OwnerID: params.OwnerID}, nil
}

func (r *fakeServerRepo) Get(_ context.Context, id uuid.UUID) (*guild.Guild, error) {
	if r.cfg == nil {
		return nil, guild.ErrNotFound
	}
	cpy := *r.cfg
	cpy.ID = id
	return &cpy, nil
}

func (r *fakeServerRepo) ListForUser(_ context.Context, userID uuid.UUID) ([]guild.Guild, error) {
	if r.cfg != nil && r.cfg.OwnerID == userID {
		return []guild.Guild{*r.cfg}, nil
	}
	return nil, nil
}

func (r *fakeServerRepo) Update(_ context.Context, id uuid.UUID, params guild.UpdateParams) (*guild.Guild, error) {
	if r.cfg == nil {
		return nil, guild.ErrNotFound
	}
	if params.Name != nil {
		r.cfg.Name = *params.Name
	}
	if params.Description != nil {
		r.cfg.Description = *params.Description
	}
	cpy := *r.cfg
	cpy.ID = id
	return &cpy, nil
}

func (r *fakeServerRepo) Delete(context.Context, uuid.UUID) error {
	return fmt.Errorf("not implemented")
}

func (r *fakeServerRepo) TransferOwnership(_ context.Context, id, newOwnerID uuid.UUID) (*guild.Guild, error) {
	if r.cfg == nil {
		return nil, guild.ErrNotFound
	}
	r.cfg.OwnerID = newOwnerID
	cpy := *r.cfg
	cpy.ID = id
	return &cpy, nil
}

func (r *fakeServerRepo) Suspend(_ context.Context, id uuid.UUID, reason string) (*guild.Guild, error) {
	if r.cfg == nil {
		return nil, guild.ErrNotFound
	}
	r.cfg.SuspensionReason = reason
	cpy := *r.cfg
	cpy.ID = id
	return &cpy, nil
}

func (r *fakeServerRepo) Unsuspend(_ context.Context, id uuid.UUID) (*guild.Guild, error) {
	if r.cfg == nil {
		return nil, guild.ErrNotFound
	}
	cpy := *r.cfg
	cpy.ID = id
	return &cpy, nil
}
