// Package kvstore implements store.Store in a badger key-value database.
package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-json-experiment/json"

	"github.com/zephyrtronium/toothy/store"
)

/*
Key structure:
- Guild prefixes:  'P' × guild ID. Value is a JSON array of strings.
- Guild blocks:    'G' × guild ID. Value is empty; presence means blocked.
- User blocks:     'U' × user ID. Value is empty; presence means blocked.
- User flags:      'F' × user ID × \x00 × flag name. Value is empty.
- Cog configs:     'C' × extension name. Value is a JSON document.

IDs are Discord snowflakes and extension names are identifiers, so neither
contains \x00.
*/

const (
	kindPrefixes = 'P'
	kindGuild    = 'G'
	kindUser     = 'U'
	kindFlag     = 'F'
	kindCog      = 'C'
)

// Store is a store.Store backed by badger.
type Store struct {
	db *badger.DB
}

var _ store.Store = (*Store)(nil)

// New wraps a badger database. The store takes ownership of the database.
func New(db *badger.DB) *Store {
	return &Store{db: db}
}

func key(kind byte, parts ...string) []byte {
	n := 1
	for _, p := range parts {
		n += len(p) + 1
	}
	b := make([]byte, 0, n)
	b = append(b, kind)
	for i, p := range parts {
		if i > 0 {
			b = append(b, 0)
		}
		b = append(b, p...)
	}
	return b
}

// get calls f with the value for k. If k does not exist, f is not called and
// the result is nil.
func (s *Store) get(k []byte, f func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(f)
	})
}

func (s *Store) has(k []byte) (bool, error) {
	var ok bool
	err := s.get(k, func([]byte) error {
		ok = true
		return nil
	})
	return ok, err
}

func (s *Store) put(k, v []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, v)
	})
}

func (s *Store) del(k []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(k)
	})
}

func (s *Store) presence(k []byte, v bool) error {
	if v {
		return s.put(k, nil)
	}
	return s.del(k)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GuildPrefixes returns the prefix override list for a guild.
func (s *Store) GuildPrefixes(ctx context.Context, guild string) ([]string, error) {
	if guild == "" {
		return nil, store.ErrEmptyKey
	}
	var r []string
	err := s.get(key(kindPrefixes, guild), func(val []byte) error {
		return json.Unmarshal(val, &r)
	})
	if err != nil {
		return nil, fmt.Errorf("couldn't read prefixes for guild %s: %w", guild, err)
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
	k := key(kindPrefixes, guild)
	if len(prefixes) == 0 {
		if err := s.del(k); err != nil {
			return fmt.Errorf("couldn't clear guild prefixes: %w", err)
		}
		return nil
	}
	b, err := json.Marshal(prefixes)
	if err != nil {
		return fmt.Errorf("couldn't encode prefixes: %w", err)
	}
	if err := s.put(k, b); err != nil {
		return fmt.Errorf("couldn't set guild prefixes: %w", err)
	}
	return nil
}

// UserBlacklisted reports whether a user is blocked.
func (s *Store) UserBlacklisted(ctx context.Context, user string) (bool, error) {
	if user == "" {
		return false, store.ErrEmptyKey
	}
	ok, err := s.has(key(kindUser, user))
	if err != nil {
		return false, fmt.Errorf("couldn't check user block list: %w", err)
	}
	return ok, nil
}

// SetUserBlacklisted sets whether a user is blocked.
func (s *Store) SetUserBlacklisted(ctx context.Context, user string, blacklisted bool) error {
	if user == "" {
		return store.ErrEmptyKey
	}
	if err := s.presence(key(kindUser, user), blacklisted); err != nil {
		return fmt.Errorf("couldn't update user block list: %w", err)
	}
	return nil
}

// GuildBlacklisted reports whether a guild is blocked.
func (s *Store) GuildBlacklisted(ctx context.Context, guild string) (bool, error) {
	if guild == "" {
		return false, store.ErrEmptyKey
	}
	ok, err := s.has(key(kindGuild, guild))
	if err != nil {
		return false, fmt.Errorf("couldn't check guild block list: %w", err)
	}
	return ok, nil
}

// SetGuildBlacklisted sets whether a guild is blocked.
func (s *Store) SetGuildBlacklisted(ctx context.Context, guild string, blacklisted bool) error {
	if guild == "" {
		return store.ErrEmptyKey
	}
	if err := s.presence(key(kindGuild, guild), blacklisted); err != nil {
		return fmt.Errorf("couldn't update guild block list: %w", err)
	}
	return nil
}

// Flag reports whether a user holds a flag.
func (s *Store) Flag(ctx context.Context, user, flag string) (bool, error) {
	if user == "" || flag == "" {
		return false, store.ErrEmptyKey
	}
	ok, err := s.has(key(kindFlag, user, flag))
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
	if err := s.presence(key(kindFlag, user, flag), v); err != nil {
		return fmt.Errorf("couldn't set user flag: %w", err)
	}
	return nil
}

// CogConfig returns the configuration document for an extension.
func (s *Store) CogConfig(ctx context.Context, name string) (*store.CogConfig, error) {
	if name == "" {
		return nil, store.ErrEmptyKey
	}
	var cfg *store.CogConfig
	err := s.get(key(kindCog, name), func(val []byte) error {
		cfg = new(store.CogConfig)
		return json.Unmarshal(val, cfg)
	})
	if err != nil {
		return nil, fmt.Errorf("couldn't read config for cog %s: %w", name, err)
	}
	return cfg, nil
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
	if err := s.put(key(kindCog, name), b); err != nil {
		return fmt.Errorf("couldn't set cog config: %w", err)
	}
	return nil
}
