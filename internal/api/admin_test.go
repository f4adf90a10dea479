package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/driftline/driftline-server/internal/guild"
	"github.com/driftline/driftline-server/internal/moderation"
)

// fakeGuildRepo implements guild.Repository for admin handler tests; only Suspend/Unsuspend are exercised.
type fakeGuildRepo struct {
	guild.Repository
	guilds map[uuid.UUID]*guild.Guild
}

func newFakeGuildRepo(guilds ...*guild.Guild) *fakeGuildRepo {
	m := make(map[uuid.UUID]*guild.Guild, len(guilds))
	for _, g := range guilds {
		m[g.ID] = g
	}
	return &fakeGuildRepo{guilds: m}
}

func (r *fakeGuildRepo) Suspend(_ context.Context, id uuid.UUID, reason string) (*guild.Guild, error) {
	g, ok := r.guilds[id]
	if !ok {
		return nil, guild.ErrNotFound
	}
	now := time.Now()
	g.SuspendedAt = &now
	g.SuspensionReason = reason
	return g, nil
}

func (r *fakeGuildRepo) Unsuspend(_ context.Context, id uuid.UUID) (*guild.Guild, error) {
	g, ok := r.guilds[id]
	if !ok {
		return nil, guild.ErrNotFound
	}
	g.SuspendedAt = nil
	g.SuspensionReason = ""
	return g, nil
}

// fakeAuditRecorder implements moderation.AuditRepository for admin handler tests.
type fakeAuditRecorder struct {
	entries []moderation.Entry
}

func (r *fakeAuditRecorder) Append(_ context.Context, entry moderation.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeAuditRecorder) ListForGuild(_ context.Context, guildID uuid.UUID, limit int) ([]moderation.Entry, error) {
	return r.entries, nil
}

func testAdminApp(guilds *fakeGuildRepo, audit *fakeAuditRecorder, userID uuid.UUID) *fiber.App {
	handler := NewAdminHandler(guilds, audit, zerolog.Nop())
	app := fiber.New()
	app.Use(fakeAuth(userID))
	app.Post("/admin/guilds/:guildID/suspend", handler.SuspendGuild)
	app.Post("/admin/guilds/:guildID/unsuspend", handler.UnsuspendGuild)
	return app
}

func TestSuspendGuild_Success(t *testing.T) {
	t.Parallel()
	g := &guild.Guild{ID: uuid.New(), Name: "test guild"}
	guilds := newFakeGuildRepo(g)
	audit := &fakeAuditRecorder{}
	app := testAdminApp(guilds, audit, uuid.New())

	resp := doReq(t, app, jsonReq(http.MethodPost, "/admin/guilds/"+g.ID.String()+"/suspend", `{"reason":"spam"}`))

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}
	if !g.Suspended() {
		t.Fatal("guild was not suspended")
	}
	if len(audit.entries) != 1 || audit.entries[0].Kind != moderation.ActionElevatedAdmin {
		t.Fatalf("audit entries = %+v, want one elevated_admin_action entry", audit.entries)
	}
}

func TestSuspendGuild_NotFound(t *testing.T) {
	t.Parallel()
	guilds := newFakeGuildRepo()
	audit := &fakeAuditRecorder{}
	app := testAdminApp(guilds, audit, uuid.New())

	resp := doReq(t, app, jsonReq(http.MethodPost, "/admin/guilds/"+uuid.New().String()+"/suspend", `{"reason":"spam"}`))

	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusNotFound)
	}
}

func TestUnsuspendGuild_Success(t *testing.T) {
	t.Parallel()
	now := time.Now()
	g := &guild.Guild{ID: uuid.New(), Name: "test guild", SuspendedAt: &now, SuspensionReason: "spam"}
	guilds := newFakeGuildRepo(g)
	audit := &fakeAuditRecorder{}
	app := testAdminApp(guilds, audit, uuid.New())

	resp := doReq(t, app, jsonReq(http.MethodPost, "/admin/guilds/"+g.ID.String()+"/unsuspend", ``))

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}
	if g.Suspended() {
		t.Fatal("guild is still suspended")
	}
}
