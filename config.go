package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/zephyrtronium/toothy/store"
	"github.com/zephyrtronium/toothy/store/kvstore"
	"github.com/zephyrtronium/toothy/store/sqlstore"
)

// Config is the configuration for Toothy.
type Config struct {
	// Token is the Discord authentication token.
	Token string `toml:"token"`
	// Description is the bot's self-description.
	Description string `toml:"description"`
	// Selfbot runs the bot on a user account rather than a bot account.
	Selfbot bool `toml:"selfbot"`
	// Owner is the user ID of the bot's owner.
	Owner string `toml:"owner"`
	// CaseInsensitive makes command names match regardless of case.
	CaseInsensitive bool `toml:"case_insensitive"`
	// Color is the bot's accent color as a hexadecimal string.
	Color string `toml:"color"`
	// Prefixes is the list of global command prefixes.
	Prefixes []string `toml:"prefixes"`
	// Extensions is the path to the extension state file.
	Extensions string `toml:"extensions"`
	// DB is the configuration for the store.
	DB DBCfg `toml:"db"`
	// HTTP is the configuration for the HTTP API server.
	HTTP HTTPCfg `toml:"http"`
}

// DBCfg selects the store backend. Exactly one of SQLite and KV must be set.
type DBCfg struct {
	// SQLite is the DSN of an SQLite database.
	SQLite string `toml:"sqlite"`
	// KV is the directory of a Badger database.
	KV string `toml:"kv"`
	// KVFlag is the Badger super flag applied to the KV options.
	KVFlag string `toml:"kvflag"`
}

type HTTPCfg struct {
	Listen string `toml:"listen"`
}

// Load loads Toothy from a TOML configuration.
func Load(ctx context.Context, r io.Reader) (*Config, *toml.MetaData, error) {
	var cfg Config
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't decode config: %w", err)
	}
	expandcfg(&cfg, os.Getenv)
	if undec := md.Undecoded(); len(undec) != 0 {
		slog.WarnContext(ctx, "unknown config keys", slog.Any("keys", undec))
	}
	return &cfg, &md, nil
}

func expandcfg(cfg *Config, env func(string) string) {
	fields := []*string{
		&cfg.Token,
		&cfg.Description,
		&cfg.Owner,
		&cfg.Color,
		&cfg.Extensions,
		&cfg.DB.SQLite,
		&cfg.DB.KV,
		&cfg.DB.KVFlag,
		&cfg.HTTP.Listen,
	}
	for _, f := range fields {
		*f = os.Expand(*f, env)
	}
	for i, p := range cfg.Prefixes {
		cfg.Prefixes[i] = os.Expand(p, env)
	}
}

// Check reports the first reason the configuration cannot start the bot.
func (cfg *Config) Check() error {
	if cfg.Token == "" {
		return errors.New("token not set in config")
	}
	if cfg.Selfbot && cfg.Owner == "" {
		return errors.New("owner is required to use selfbot mode")
	}
	if cfg.Extensions == "" {
		return errors.New("extension state file not set in config")
	}
	if _, err := parseColor(cfg.Color); err != nil {
		return err
	}
	return nil
}

// parseColor parses a hexadecimal RGB color with an optional 0x or # prefix.
// An empty string is black.
func parseColor(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	t := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(s), "#"), "0x")
	c, err := strconv.ParseInt(t, 16, 32)
	if err != nil || c < 0 || c > 0xffffff {
		return 0, fmt.Errorf("bad color %q", s)
	}
	return int(c), nil
}

const selfbotWarning = "By using selfbot mode, you put your account at risk of getting banned. Use at your own risk. You have been warned.\n"

// confirmSelfbot warns about selfbot mode and requires the operator to type
// "I understand" before continuing.
func confirmSelfbot(r io.Reader, w io.Writer) error {
	fmt.Fprint(w, strings.Repeat(selfbotWarning, 3))
	fmt.Fprintln(w, `To proceed type "I understand"`)
	s := bufio.NewScanner(r)
	if !s.Scan() {
		if err := s.Err(); err != nil {
			return fmt.Errorf("couldn't read confirmation: %w", err)
		}
		return errors.New("selfbot mode not confirmed")
	}
	if !strings.EqualFold(strings.TrimSpace(s.Text()), "i understand") {
		return errors.New("selfbot mode not confirmed")
	}
	return nil
}

// loadStore opens the store backend named by the config.
func loadStore(ctx context.Context, cfg DBCfg) (store.Store, error) {
	if cfg.KV != "" && cfg.SQLite != "" {
		return nil, fmt.Errorf("multiple store backends requested; use exactly one")
	}
	if cfg.KV == "" && cfg.SQLite == "" {
		return nil, fmt.Errorf("no store backends requested; use exactly one")
	}

	if cfg.KV != "" {
		slog.DebugContext(ctx, "using kvstore", slog.String("path", cfg.KV), slog.String("flags", cfg.KVFlag))
		opts := badger.DefaultOptions(cfg.KV)
		opts = opts.WithLogger(nil)
		opts = opts.WithCompression(options.None)
		db, err := badger.Open(opts.FromSuperFlag(cfg.KVFlag))
		if err != nil {
			return nil, fmt.Errorf("couldn't open kvstore db: %w", err)
		}
		return kvstore.New(db), nil
	}
	slog.DebugContext(ctx, "using sqlstore", slog.String("path", cfg.SQLite))
	db, err := openSQLite(cfg.SQLite)
	if err != nil {
		return nil, err
	}
	s, err := sqlstore.Open(ctx, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("couldn't open sqlstore: %w", err)
	}
	return s, nil
}

func openSQLite(dsn string) (*sqlitex.Pool, error) {
	db, err := sqlitex.NewPool(dsn, sqlitex.PoolOptions{PrepareConn: sqlstore.RecommendedPrep})
	if err != nil {
		return nil, fmt.Errorf("couldn't open sqlstore db: %w", err)
	}
	return db, nil
}

// settings is the mutable part of the configuration. It is safe for
// concurrent use.
type settings struct {
	mu          sync.Mutex
	path        string
	prefixes    []string
	description string
	color       int
}

func newSettings(path string, cfg *Config) (*settings, error) {
	c, err := parseColor(cfg.Color)
	if err != nil {
		return nil, err
	}
	s := settings{
		path:        path,
		prefixes:    slices.Clone(cfg.Prefixes),
		description: cfg.Description,
		color:       c,
	}
	return &s, nil
}

// Prefixes returns the global prefixes. The result must not be modified.
func (s *settings) Prefixes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefixes
}

// SetPrefixes saves the config file with new global prefixes, then replaces
// the global prefixes. If the save fails, the prefixes are unchanged.
func (s *settings) SetPrefixes(p []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = slices.Clone(p)
	if err := Save(s.path, s.description, p); err != nil {
		return err
	}
	s.prefixes = p
	return nil
}

func (s *settings) Description() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.description
}

func (s *settings) Color() int {
	return s.color
}

// Save rewrites the description and prefixes in the config file at path.
// Other keys are kept as written, without environment expansion.
func Save(path, description string, prefixes []string) error {
	doc := make(map[string]any)
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return fmt.Errorf("couldn't read config for saving: %w", err)
	}
	doc["description"] = description
	doc["prefixes"] = prefixes
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("couldn't save config: %w", err)
	}
	defer os.Remove(f.Name())
	if err := toml.NewEncoder(f).Encode(doc); err != nil {
		f.Close()
		return fmt.Errorf("couldn't encode config: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("couldn't save config: %w", err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("couldn't save config: %w", err)
	}
	return nil
}
