// Package general implements everyday commands: ping, about, help, and
// choose.
package general

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"gitlab.com/zephyrtronium/pick"

	"github.com/zephyrtronium/toothy/command"
	"github.com/zephyrtronium/toothy/extension"
)

// Name is the name of the extension.
const Name = "general"

// Cog is the general extension.
type Cog struct {
	deps extension.Deps
}

// New creates the general extension.
func New(deps extension.Deps) (extension.Extension, error) {
	return &Cog{deps: deps}, nil
}

func (c *Cog) Name() string { return Name }

func (c *Cog) Commands() []*command.Command {
	return []*command.Command{
		{
			Name:     "ping",
			Help:     "Check whether the bot is alive.",
			Cooldown: command.NewCooldown(3, 10*time.Second),
			Func:     c.ping,
		},
		{
			Name:     "about",
			Aliases:  []string{"info"},
			Help:     "Show information about the bot.",
			Cooldown: command.NewCooldown(1, 10*time.Second),
			Func:     c.about,
		},
		{
			Name:  "help",
			Usage: "[command]",
			Help:  "List commands or show help for one.",
			Func:  c.help,
		},
		{
			Name:     "choose",
			Usage:    "<option> <option...>",
			Help:     "Pick one of several options. Quote options containing spaces.",
			Args:     2,
			Cooldown: command.NewCooldown(5, 30*time.Second),
			Func:     choose,
		},
	}
}

var pongs = pick.New([]pick.Case[string]{
	{E: "Pong!", W: 40},
	{E: "Pong! 🏓", W: 5},
	{E: "pong", W: 2},
	{E: "I'm here!", W: 1},
})

func (c *Cog) ping(ctx context.Context, call *command.Context) error {
	s := pongs.Pick(rand.Uint32())
	if c.deps.Gateway != nil {
		if d := c.deps.Gateway.Latency(); d > 0 {
			s = fmt.Sprintf("%s (%dms)", s, d.Milliseconds())
		}
	}
	return call.Reply(ctx, s)
}

func (c *Cog) about(ctx context.Context, call *command.Context) error {
	var b strings.Builder
	if c.deps.Settings != nil {
		if d := c.deps.Settings.Description(); d != "" {
			b.WriteString(d)
			b.WriteString("\n")
		}
	}
	if c.deps.State != nil {
		fmt.Fprintf(&b, "Uptime: %v\n", time.Since(c.deps.State.Start).Round(time.Second))
		if c.deps.State.Owner != "" {
			fmt.Fprintf(&b, "Owner: <@%s>\n", c.deps.State.Owner)
		}
	}
	if c.deps.Gateway != nil {
		fmt.Fprintf(&b, "Servers: %d\n", c.deps.Gateway.GuildCount())
	}
	fmt.Fprintf(&b, "Extensions: %s", strings.Join(c.deps.Registry.Extensions(), ", "))
	if c.deps.Settings != nil {
		return call.SendColor(ctx, b.String(), c.deps.Settings.Color())
	}
	return call.Send(ctx, b.String())
}

func (c *Cog) help(ctx context.Context, call *command.Context) error {
	prefix := call.DisplayPrefix()
	if len(call.Args) != 0 {
		cmd := c.deps.Registry.Lookup(call.Args[0])
		if cmd == nil || !cmd.Visible() {
			return call.Send(ctx, fmt.Sprintf("No command named %q.", call.Args[0]))
		}
		return call.Send(ctx, command.Help(prefix, cmd))
	}
	byExt := make(map[string][]string)
	for _, cmd := range c.deps.Registry.All() {
		if cmd.Visible() {
			byExt[cmd.Extension] = append(byExt[cmd.Extension], cmd.Name)
		}
	}
	var b strings.Builder
	for _, ext := range c.deps.Registry.Extensions() {
		names := byExt[ext]
		if len(names) == 0 {
			continue
		}
		fmt.Fprintf(&b, "**%s**: %s\n", ext, strings.Join(names, ", "))
	}
	fmt.Fprintf(&b, "Use `%shelp <command>` for more about a command.", prefix)
	return call.Send(ctx, b.String())
}

func choose(ctx context.Context, call *command.Context) error {
	cases := make([]pick.Case[string], len(call.Args))
	for i, s := range call.Args {
		cases[i] = pick.Case[string]{E: s, W: 1}
	}
	d := pick.New(cases)
	return call.Send(ctx, d.Pick(rand.Uint32()))
}
