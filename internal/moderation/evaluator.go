package moderation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Evaluator runs a guild's configured filters against message content and records the outcome. Filter evaluation
// order is: config lookup (cache-first), then pattern match per enabled filter type, then audit log append. Any
// failure along that chain fails open — the message is allowed through and the failure is logged, never the reverse.
// A message pipeline that silently dropped content on a filter-store outage would be worse than one that
// occasionally lets something through.
type Evaluator struct {
	configs *ConfigCache
	audit   AuditRepository
	matcher Matcher
	log     zerolog.Logger
}

// NewEvaluator creates a content filter evaluator.
func NewEvaluator(configs *ConfigCache, audit AuditRepository, matcher Matcher, logger zerolog.Logger) *Evaluator {
	return &Evaluator{configs: configs, audit: audit, matcher: matcher, log: logger}
}

// Evaluate checks content against guildID's enabled filters, in list order. It returns a zero-value Verdict (not
// matched, not rejected) on any internal error, since this path is fail-open by design.
func (e *Evaluator) Evaluate(ctx context.Context, guildID, messageID uuid.UUID, content string) Verdict {
	configs, err := e.configs.List(ctx, guildID)
	if err != nil {
		e.log.Warn().Err(err).Stringer("guild_id", guildID).Msg("filter config lookup failed, allowing message")
		return Verdict{}
	}

	lowered := strings.ToLower(content)

	for _, cfg := range configs {
		if !cfg.Enabled || len(cfg.Patterns) == 0 {
			continue
		}

		matched, pattern := e.matcher.Match(lowered, cfg.Patterns)
		if !matched {
			continue
		}

		verdict := Verdict{
			Matched:    true,
			Rejected:   RejectingActions[cfg.Action],
			FilterType: cfg.FilterType,
			Action:     cfg.Action,
			Pattern:    pattern,
		}

		// Never persist the raw content or a snippet, only its length and the filter that matched.
		e.appendAudit(ctx, guildID, messageID, cfg.FilterType, cfg.Action, len(content))
		return verdict
	}

	return Verdict{}
}

func (e *Evaluator) appendAudit(ctx context.Context, guildID, messageID uuid.UUID, filterType FilterType, action string, contentLength int) {
	entry := Entry{
		GuildID:    guildID,
		ActorID:    nil,
		TargetType: "message",
		TargetID:   messageID,
		Kind:       ActionFilterMatch,
		Reason:     fmt.Sprintf("filter_type=%s action=%s content_length=%d", filterType, action, contentLength),
	}
	if err := e.audit.Append(ctx, entry); err != nil {
		e.log.Warn().Err(err).Stringer("guild_id", guildID).Msg("failed to append moderation audit entry")
	}
}
