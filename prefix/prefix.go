// Package prefix resolves the command prefixes valid for a message.
package prefix

import (
	"context"
	"log/slog"

	"github.com/zephyrtronium/toothy/message"
)

// Resolver computes the ordered prefix list for a message.
// The result is never empty.
type Resolver interface {
	Resolve(ctx context.Context, msg *message.Received) []string
}

// Source supplies per-guild prefix overrides.
type Source interface {
	GuildPrefixes(ctx context.Context, guild string) ([]string, error)
}

// Guild resolves per-guild prefix overrides, falling back to global
// prefixes, followed by mentions of the bot.
type Guild struct {
	// Source is the store of guild overrides.
	Source Source
	// Global returns the process-wide prefixes.
	// The returned slice must not be modified.
	Global func() []string
	// Me is the bot's user ID.
	Me string
	// Log receives lookup failures.
	Log *slog.Logger
}

var _ Resolver = (*Guild)(nil)

// Resolve returns the prefixes for a message.
// If the guild override lookup fails, the global prefixes are used.
func (g *Guild) Resolve(ctx context.Context, msg *message.Received) []string {
	var p []string
	if !msg.Private() && g.Source != nil {
		r, err := g.Source.GuildPrefixes(ctx, msg.Guild)
		if err != nil {
			g.Log.WarnContext(ctx, "couldn't get guild prefixes",
				slog.String("guild", msg.Guild),
				slog.Any("err", err),
			)
		}
		p = nonempty(r)
	}
	if len(p) == 0 && g.Global != nil {
		p = nonempty(g.Global())
	}
	return append(p, Mentions(g.Me)...)
}

// Mentions returns the mention prefixes for a user ID: the raw mention
// followed by the display mention, each with a trailing space.
func Mentions(id string) []string {
	return []string{"<@!" + id + "> ", "<@" + id + "> "}
}

// nonempty returns a fresh copy of p without empty strings.
// An empty prefix would make every message match.
func nonempty(p []string) []string {
	r := make([]string, 0, len(p)+2)
	for _, s := range p {
		if s != "" {
			r = append(r, s)
		}
	}
	return r
}
