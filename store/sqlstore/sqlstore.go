// Package sqlstore implements store.Store in an SQLite database.
package sqlstore

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/go-json-experiment/json"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/zephyrtronium/toothy/store"
)

// Store is a store.Store backed by an SQL database.
type Store struct {
	db *sqlitex.Pool
}

var _ store.Store = (*Store)(nil)

// Open opens an existing store in an SQL database.
// The store takes ownership of the pool.
func Open(ctx context.Context, db *sqlitex.Pool) (*Store, error) {
	// TODO(zeph): validate schema
	return &Store{db: db}, nil
}

// RecommendedPrep is an [sqlitex.ConnPrepareFunc] that sets options recommended
// for a store.
func RecommendedPrep(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, p, nil); err != nil {
			return fmt.Errorf("couldn't run %s: %w", p, err)
		}
	}
	return nil
}

//go:embed schema.sql
var schemaSQL string

// Init initializes the store schema in an SQL database. It is safe to call on
// a database that is already initialized.
// For convenience, it accepts either a single connection or a pool.
func Init[DB *sqlite.Conn | *sqlitex.Pool](ctx context.Context, db DB) error {
	var conn *sqlite.Conn
	switch db := any(db).(type) {
	case *sqlite.Conn:
		conn = db
	case *sqlitex.Pool:
		var err error
		conn, err = db.Take(ctx)
		defer db.Put(conn)
		if err != nil {
			return fmt.Errorf("couldn't get connection from pool: %w", err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schemaSQL, nil); err != nil {
		return fmt.Errorf("couldn't initialize store schema: %w", err)
	}
	return nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// GuildPrefixes returns the prefix override list for a guild.
func (s *Store) GuildPrefixes(ctx context.Context, guild string) ([]string, error) {
	if guild == "" {
		return nil, store.ErrEmptyKey
	}
	conn, err := s.db.Take(ctx)
	defer s.db.Put(conn)
	if err != nil {
		return nil, fmt.Errorf("couldn't get connection to read guild prefixes: %w", err)
	}
	var raw string
	opts := sqlitex.ExecOptions{
		Named: map[string]any{":id": guild},
		ResultFunc: func(st *sqlite.Stmt) error {
			raw = st.ColumnText(0)
			return nil
		},
	}
	err = sqlitex.Execute(conn, `SELECT prefixes FROM guilds WHERE id = :id AND prefixes IS NOT NULL`, &opts)
	if err != nil {
		return nil, fmt.Errorf("couldn't read guild prefixes: %w", err)
	}
	if raw == "" {
		return nil, nil
	}
	var r []string
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("couldn't decode prefixes for guild %s: %w", guild, err)
	}
	if len(r) == 0 {
		return nil, nil
	}
	return r, nil
}

// SetGuildPrefixes replaces the prefix override list for a guild.
func (s *Store) SetGuildPrefixes(ctx context.Context, guild string, prefixes []string) error {
	if guild == "" {
		return store.ErrEmptyKey
	}
	conn, err := s.db.Take(ctx)
	defer s.db.Put(conn)
	if err != nil {
		return fmt.Errorf("couldn't get connection to set guild prefixes: %w", err)
	}
	var v any // NULL
	if len(prefixes) != 0 {
		b, err := json.Marshal(prefixes)
		if err != nil {
			return fmt.Errorf("couldn't encode prefixes: %w", err)
		}
		v = string(b)
	}
	const upsert = `INSERT INTO guilds (id, prefixes) VALUES (:id, :p)
		ON CONFLICT (id) DO UPDATE SET prefixes = excluded.prefixes`
	opts := sqlitex.ExecOptions{Named: map[string]any{":id": guild, ":p": v}}
	if err := sqlitex.Execute(conn, upsert, &opts); err != nil {
		return fmt.Errorf("couldn't set guild prefixes: %w", err)
	}
	return nil
}

// UserBlacklisted reports whether a user is blocked.
func (s *Store) UserBlacklisted(ctx context.Context, user string) (bool, error) {
	return s.blacklisted(ctx, `SELECT blacklisted FROM users WHERE id = :id`, user)
}

// SetUserBlacklisted sets whether a user is blocked.
func (s *Store) SetUserBlacklisted(ctx context.Context, user string, blacklisted bool) error {
	const upsert = `INSERT INTO users (id, blacklisted) VALUES (:id, :b)
		ON CONFLICT (id) DO UPDATE SET blacklisted = excluded.blacklisted`
	return s.setBlacklisted(ctx, upsert, user, blacklisted)
}

// GuildBlacklisted reports whether a guild is blocked.
func (s *Store) GuildBlacklisted(ctx context.Context, guild string) (bool, error) {
	return s.blacklisted(ctx, `SELECT blacklisted FROM guilds WHERE id = :id`, guild)
}

// SetGuildBlacklisted sets whether a guild is blocked.
func (s *Store) SetGuildBlacklisted(ctx context.Context, guild string, blacklisted bool) error {
	const upsert = `INSERT INTO guilds (id, blacklisted) VALUES (:id, :b)
		ON CONFLICT (id) DO UPDATE SET blacklisted = excluded.blacklisted`
	return s.setBlacklisted(ctx, upsert, guild, blacklisted)
}

func (s *Store) blacklisted(ctx context.Context, query, id string) (bool, error) {
	if id == "" {
		return false, store.ErrEmptyKey
	}
	conn, err := s.db.Take(ctx)
	defer s.db.Put(conn)
	if err != nil {
		return false, fmt.Errorf("couldn't get connection to check block list: %w", err)
	}
	var r bool
	opts := sqlitex.ExecOptions{
		Named: map[string]any{":id": id},
		ResultFunc: func(st *sqlite.Stmt) error {
			r = st.ColumnInt64(0) != 0
			return nil
		},
	}
	if err := sqlitex.Execute(conn, query, &opts); err != nil {
		return false, fmt.Errorf("couldn't check block list: %w", err)
	}
	return r, nil
}

func (s *Store) setBlacklisted(ctx context.Context, query, id string, blacklisted bool) error {
	if id == "" {
		return store.ErrEmptyKey
	}
	conn, err := s.db.Take(ctx)
	defer s.db.Put(conn)
	if err != nil {
		return fmt.Errorf("couldn't get connection to update block list: %w", err)
	}
	opts := sqlitex.ExecOptions{Named: map[string]any{":id": id, ":b": sqlbool(blacklisted)}}
	if err := sqlitex.Execute(conn, query, &opts); err != nil {
		return fmt.Errorf("couldn't update block list: %w", err)
	}
	return nil
}

// Flag reports whether a user holds a flag.
func (s *Store) Flag(ctx context.Context, user, flag string) (bool, error) {
	if user == "" || flag == "" {
		return false, store.ErrEmptyKey
	}
	conn, err := s.db.Take(ctx)
	defer s.db.Put(conn)
	if err != nil {
		return false, fmt.Errorf("couldn't get connection to check user flag: %w", err)
	}
	st, err := conn.Prepare(`SELECT EXISTS (SELECT 1 FROM flags WHERE user = :user AND flag = :flag)`)
	if err != nil {
		return false, fmt.Errorf("couldn't prepare statement to check user flag: %w", err)
	}
	st.SetText(":user", user)
	st.SetText(":flag", flag)
	ok, err := sqlitex.ResultBool(st)
	if err != nil {
		return false, fmt.Errorf("couldn't check user flag: %w", err)
	}
	return ok, nil
}

// SetFlag grants or revokes a flag.
func (s *Store) SetFlag(ctx context.Context, user, flag string, v bool) error {
	if user == "" || flag == "" {
		return store.ErrEmptyKey
	}
	conn, err := s.db.Take(ctx)
	defer s.db.Put(conn)
	if err != nil {
		return fmt.Errorf("couldn't get connection to set user flag: %w", err)
	}
	q := `DELETE FROM flags WHERE user = :user AND flag = :flag`
	if v {
		q = `INSERT OR IGNORE INTO flags (user, flag) VALUES (:user, :flag)`
	}
	opts := sqlitex.ExecOptions{Named: map[string]any{":user": user, ":flag": flag}}
	if err := sqlitex.Execute(conn, q, &opts); err != nil {
		return fmt.Errorf("couldn't set user flag: %w", err)
	}
	return nil
}

// CogConfig returns the configuration document for an extension.
func (s *Store) CogConfig(ctx context.Context, name string) (*store.CogConfig, error) {
	if name == "" {
		return nil, store.ErrEmptyKey
	}
	conn, err := s.db.Take(ctx)
	defer s.db.Put(conn)
	if err != nil {
		return nil, fmt.Errorf("couldn't get connection to read cog config: %w", err)
	}
	var raw string
	opts := sqlitex.ExecOptions{
		Named: map[string]any{":name": name},
		ResultFunc: func(st *sqlite.Stmt) error {
			raw = st.ColumnText(0)
			return nil
		},
	}
	if err := sqlitex.Execute(conn, `SELECT config FROM cogs WHERE name = :name`, &opts); err != nil {
		return nil, fmt.Errorf("couldn't read cog config: %w", err)
	}
	if raw == "" {
		return nil, nil
	}
	var cfg store.CogConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("couldn't decode config for cog %s: %w", name, err)
	}
	return &cfg, nil
}

// SetCogConfig replaces the configuration document for an extension.
func (s *Store) SetCogConfig(ctx context.Context, name string, cfg *store.CogConfig) error {
	if name == "" {
		return store.ErrEmptyKey
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("couldn't encode cog config: %w", err)
	}
	conn, err := s.db.Take(ctx)
	defer s.db.Put(conn)
	if err != nil {
		return fmt.Errorf("couldn't get connection to set cog config: %w", err)
	}
	const upsert = `INSERT INTO cogs (name, config) VALUES (:name, :config)
		ON CONFLICT (name) DO UPDATE SET config = excluded.config`
	opts := sqlitex.ExecOptions{Named: map[string]any{":name": name, ":config": string(b)}}
	if err := sqlitex.Execute(conn, upsert, &opts); err != nil {
		return fmt.Errorf("couldn't set cog config: %w", err)
	}
	return nil
}

func sqlbool(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
