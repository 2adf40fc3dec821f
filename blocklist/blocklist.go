// Package blocklist answers whether users and guilds are barred from using
// the bot.
package blocklist

import (
	"context"
	"fmt"
	"strings"
)

// Source is the persistence behind a [Checker].
type Source interface {
	UserBlacklisted(ctx context.Context, user string) (bool, error)
	SetUserBlacklisted(ctx context.Context, user string, blacklisted bool) error
	GuildBlacklisted(ctx context.Context, guild string) (bool, error)
	SetGuildBlacklisted(ctx context.Context, guild string, blacklisted bool) error
}

// Checker queries block lists.
type Checker struct {
	Source Source
}

// User reports whether a user is blocked.
// The empty ID is never blocked.
func (c *Checker) User(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	ok, err := c.Source.UserBlacklisted(ctx, id)
	if err != nil {
		return false, fmt.Errorf("couldn't check user %s: %w", id, err)
	}
	return ok, nil
}

// Guild reports whether a guild is blocked.
// The empty ID, i.e. a direct message, is never blocked.
func (c *Checker) Guild(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	ok, err := c.Source.GuildBlacklisted(ctx, id)
	if err != nil {
		return false, fmt.Errorf("couldn't check guild %s: %w", id, err)
	}
	return ok, nil
}

// Kind is the kind of entity on a block list.
type Kind int

const (
	User Kind = 1 + iota
	Guild
)

func (k Kind) String() string {
	switch k {
	case User:
		return "user"
	case Guild:
		return "guild"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind parses the name of a block list kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "user", "u":
		return User, nil
	case "guild", "server", "g":
		return Guild, nil
	default:
		return 0, fmt.Errorf("unknown block list %q (want user or guild)", s)
	}
}

// Set adds an entity to or removes one from a block list.
func (c *Checker) Set(ctx context.Context, kind Kind, id string, blocked bool) error {
	if id == "" {
		return fmt.Errorf("no %v id", kind)
	}
	var err error
	switch kind {
	case User:
		err = c.Source.SetUserBlacklisted(ctx, id, blocked)
	case Guild:
		err = c.Source.SetGuildBlacklisted(ctx, id, blocked)
	default:
		return fmt.Errorf("unknown block list %v", kind)
	}
	if err != nil {
		return fmt.Errorf("couldn't update %v %s: %w", kind, id, err)
	}
	return nil
}

// Check reports whether an entity is on a block list.
func (c *Checker) Check(ctx context.Context, kind Kind, id string) (bool, error) {
	switch kind {
	case User:
		return c.User(ctx, id)
	case Guild:
		return c.Guild(ctx, id)
	default:
		return false, fmt.Errorf("unknown block list %v", kind)
	}
}
