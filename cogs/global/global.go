// Package global implements the core extension: owner and administrator
// commands for availability, block lists, flags, prefixes, and command
// enablement.
package global

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/zephyrtronium/toothy/blocklist"
	"github.com/zephyrtronium/toothy/command"
	"github.com/zephyrtronium/toothy/extension"
	"github.com/zephyrtronium/toothy/store"
)

// Name is the name of the extension.
const Name = "global"

// Cog is the core extension.
type Cog struct {
	deps   extension.Deps
	blocks blocklist.Checker
}

// New creates the core extension.
func New(deps extension.Deps) (extension.Extension, error) {
	if deps.Store == nil || deps.Registry == nil || deps.State == nil || deps.Settings == nil {
		return nil, errors.New("global extension needs store, registry, state, and settings")
	}
	return &Cog{deps: deps, blocks: blocklist.Checker{Source: deps.Store}}, nil
}

func (c *Cog) Name() string { return Name }

func (c *Cog) Commands() []*command.Command {
	return []*command.Command{
		{
			Name:      "toggle",
			Help:      "Toggle whether the bot responds to anyone but its owner.",
			OwnerOnly: true,
			Func:      c.toggle,
		},
		{
			Name:      "blacklist",
			Usage:     "user|guild <id>",
			Help:      "Stop responding to a user or in a guild.",
			Args:      2,
			OwnerOnly: true,
			Func:      c.block(true),
		},
		{
			Name:      "unblacklist",
			Usage:     "user|guild <id>",
			Help:      "Resume responding to a user or in a guild.",
			Args:      2,
			OwnerOnly: true,
			Func:      c.block(false),
		},
		{
			Name:      "vip",
			Usage:     "<user> [on|off]",
			Help:      "Show or set whether a user ignores command cooldowns.",
			Args:      1,
			OwnerOnly: true,
			Func:      c.vip,
		},
		{
			Name:        "prefix",
			Usage:       "[prefix...|reset]",
			Help:        "Show or set the command prefixes for this server.",
			GuildOnly:   true,
			Permissions: []string{"manage_guild"},
			Func:        c.prefix,
		},
		{
			Name:      "globalprefix",
			Usage:     "<prefix...>",
			Help:      "Set the default command prefixes.",
			Args:      1,
			OwnerOnly: true,
			Func:      c.globalPrefix,
		},
		{
			Name:      "disable",
			Usage:     "<command>",
			Help:      "Disable a command.",
			Args:      1,
			OwnerOnly: true,
			Func:      c.enable(false),
		},
		{
			Name:      "enable",
			Usage:     "<command>",
			Help:      "Enable a disabled command.",
			Args:      1,
			OwnerOnly: true,
			Func:      c.enable(true),
		},
	}
}

func (c *Cog) toggle(ctx context.Context, call *command.Context) error {
	if c.deps.State.Toggle() {
		return call.Send(ctx, "I'm available to everyone again.")
	}
	return call.Send(ctx, "I'm now ignoring everyone except my owner.")
}

func (c *Cog) block(v bool) command.Func {
	return func(ctx context.Context, call *command.Context) error {
		kind, err := blocklist.ParseKind(call.Args[0])
		if err != nil {
			return &command.Error{Kind: command.BadArgument, Err: err}
		}
		id, err := snowflake(call.Args[1])
		if err != nil {
			return err
		}
		if err := c.blocks.Set(ctx, kind, id, v); err != nil {
			return err
		}
		if v {
			return call.Send(ctx, fmt.Sprintf("Blacklisted %v %s.", kind, id))
		}
		return call.Send(ctx, fmt.Sprintf("Removed %v %s from the blacklist.", kind, id))
	}
}

func (c *Cog) vip(ctx context.Context, call *command.Context) error {
	user, err := snowflake(call.Args[0])
	if err != nil {
		return err
	}
	if len(call.Args) == 1 {
		ok, err := c.deps.Store.Flag(ctx, user, store.FlagVIP)
		if err != nil {
			return err
		}
		if ok {
			return call.Send(ctx, fmt.Sprintf("<@%s> is a VIP.", user))
		}
		return call.Send(ctx, fmt.Sprintf("<@%s> is not a VIP.", user))
	}
	var v bool
	switch strings.ToLower(call.Args[1]) {
	case "on", "yes", "true":
		v = true
	case "off", "no", "false":
		v = false
	default:
		return command.Badf("expected on or off, got %q", call.Args[1])
	}
	if err := c.deps.Store.SetFlag(ctx, user, store.FlagVIP, v); err != nil {
		return err
	}
	if v {
		return call.Send(ctx, fmt.Sprintf("<@%s> is now a VIP.", user))
	}
	return call.Send(ctx, fmt.Sprintf("<@%s> is no longer a VIP.", user))
}

func (c *Cog) prefix(ctx context.Context, call *command.Context) error {
	guild := call.Message.Guild
	switch {
	case len(call.Args) == 0:
		p, err := c.deps.Store.GuildPrefixes(ctx, guild)
		if err != nil {
			return err
		}
		if len(p) == 0 {
			return call.Send(ctx, "This server uses the default prefixes: "+quote(c.deps.Settings.Prefixes()))
		}
		return call.Send(ctx, "This server's prefixes are: "+quote(p))
	case len(call.Args) == 1 && strings.EqualFold(call.Args[0], "reset"):
		if err := c.deps.Store.SetGuildPrefixes(ctx, guild, nil); err != nil {
			return err
		}
		return call.Send(ctx, "This server now uses the default prefixes.")
	}
	p, err := prefixes(call.Args)
	if err != nil {
		return err
	}
	if err := c.deps.Store.SetGuildPrefixes(ctx, guild, p); err != nil {
		return err
	}
	return call.Send(ctx, "This server's prefixes are now: "+quote(p))
}

func (c *Cog) globalPrefix(ctx context.Context, call *command.Context) error {
	p, err := prefixes(call.Args)
	if err != nil {
		return err
	}
	if err := c.deps.Settings.SetPrefixes(p); err != nil {
		return err
	}
	return call.Send(ctx, "Default prefixes are now: "+quote(p))
}

func (c *Cog) enable(v bool) command.Func {
	return func(ctx context.Context, call *command.Context) error {
		cmd := c.deps.Registry.Lookup(call.Args[0])
		if cmd == nil {
			return command.Badf("no command named %q", call.Args[0])
		}
		if cmd.Extension == c.deps.Core {
			return call.Send(ctx, "Commands from the core extension can't be disabled.")
		}
		cfg, err := c.deps.Store.CogConfig(ctx, c.deps.Core)
		if err != nil {
			return err
		}
		if cfg == nil {
			cfg = new(store.CogConfig)
		}
		cfg.DisabledCommands = slices.DeleteFunc(cfg.DisabledCommands, func(s string) bool { return s == cmd.Name })
		if !v {
			cfg.DisabledCommands = append(cfg.DisabledCommands, cmd.Name)
		}
		if err := c.deps.Store.SetCogConfig(ctx, c.deps.Core, cfg); err != nil {
			return err
		}
		cmd.SetEnabled(v)
		if v {
			return call.Send(ctx, fmt.Sprintf("Enabled %s.", cmd.Name))
		}
		return call.Send(ctx, fmt.Sprintf("Disabled %s.", cmd.Name))
	}
}

// snowflake parses a user or guild ID, possibly written as a mention.
func snowflake(s string) (string, error) {
	id := strings.TrimPrefix(s, "<@")
	if id != s {
		id = strings.TrimPrefix(id, "!")
		var ok bool
		id, ok = strings.CutSuffix(id, ">")
		if !ok {
			return "", command.Badf("malformed mention %q", s)
		}
	}
	if id == "" || strings.ContainsFunc(id, func(r rune) bool { return r < '0' || r > '9' }) {
		return "", command.Badf("%q is not an ID", s)
	}
	return id, nil
}

// prefixes validates a list of prefixes.
func prefixes(args []string) ([]string, error) {
	p := make([]string, 0, len(args))
	for _, s := range args {
		if strings.TrimSpace(s) == "" {
			return nil, command.Badf("prefixes can't be blank")
		}
		if !slices.Contains(p, s) {
			p = append(p, s)
		}
	}
	return p, nil
}

func quote(p []string) string {
	q := make([]string, len(p))
	for i, s := range p {
		q[i] = "`" + s + "`"
	}
	return strings.Join(q, ", ")
}
