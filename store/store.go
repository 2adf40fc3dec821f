// Package store defines the persistence interface for per-guild and per-user
// bot state.
package store

import (
	"context"
	"errors"
)

// Store is the persistence collaborator. Lookups of records which do not
// exist return zero values with nil errors.
type Store interface {
	// GuildPrefixes returns the prefix override list for a guild, or nil if
	// the guild has none.
	GuildPrefixes(ctx context.Context, guild string) ([]string, error)
	// SetGuildPrefixes replaces the prefix override list for a guild.
	// An empty list removes the override.
	SetGuildPrefixes(ctx context.Context, guild string, prefixes []string) error

	// UserBlacklisted reports whether a user is blocked from using the bot.
	UserBlacklisted(ctx context.Context, user string) (bool, error)
	// SetUserBlacklisted sets whether a user is blocked from using the bot.
	SetUserBlacklisted(ctx context.Context, user string, blacklisted bool) error
	// GuildBlacklisted reports whether a guild is blocked from using the bot.
	GuildBlacklisted(ctx context.Context, guild string) (bool, error)
	// SetGuildBlacklisted sets whether a guild is blocked from using the bot.
	SetGuildBlacklisted(ctx context.Context, guild string, blacklisted bool) error

	// Flag reports whether a user holds a named flag, e.g. [FlagVIP].
	Flag(ctx context.Context, user, flag string) (bool, error)
	// SetFlag grants or revokes a named flag.
	SetFlag(ctx context.Context, user, flag string, v bool) error

	// CogConfig returns the configuration document for an extension, or nil
	// if there is none.
	CogConfig(ctx context.Context, name string) (*CogConfig, error)
	// SetCogConfig replaces the configuration document for an extension.
	SetCogConfig(ctx context.Context, name string, cfg *CogConfig) error

	// Close releases the store's resources.
	Close() error
}

// FlagVIP is the flag for users who bypass command cooldowns.
const FlagVIP = "vip"

// CogConfig is the persisted configuration document for an extension.
type CogConfig struct {
	// DisabledCommands is the list of commands to disable at startup.
	// Only the core extension's document is consulted.
	DisabledCommands []string `json:"disabled_commands,omitempty"`
}

// ErrEmptyKey is returned when an operation is given an empty ID or name.
var ErrEmptyKey = errors.New("empty key")
