package channel

import (
	"time"

	"github.com/driftline/driftline-server/internal/models"
)

// ToModel converts a Channel to its API representation.
func (c *Channel) ToModel() models.Channel {
	var categoryID *string
	if c.CategoryID != nil {
		s := c.CategoryID.String()
		categoryID = &s
	}
	return models.Channel{
		ID:              c.ID.String(),
		GuildID:         c.GuildID.String(),
		CategoryID:      categoryID,
		Name:            c.Name,
		Type:            c.Type,
		Topic:           c.Topic,
		Position:        c.Position,
		SlowmodeSeconds: c.SlowmodeSeconds,
		NSFW:            c.NSFW,
		CreatedAt:       c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       c.UpdatedAt.Format(time.RFC3339),
	}
}
