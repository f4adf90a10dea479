package guild

import (
	"time"

	"github.com/driftline/driftline-server/internal/models"
)

// ToModel converts the internal guild struct to the protocol response type.
func (g *Guild) ToModel() models.Guild {
	m := models.Guild{
		ID:          g.ID.String(),
		Name:        g.Name,
		Description: g.Description,
		IconKey:     g.IconKey,
		BannerKey:   g.BannerKey,
		OwnerID:     g.OwnerID.String(),
		Suspended:   g.Suspended(),
		CreatedAt:   g.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   g.UpdatedAt.Format(time.RFC3339),
	}
	if g.SuspendedAt != nil {
		m.SuspensionReason = g.SuspensionReason
	}
	return m
}
