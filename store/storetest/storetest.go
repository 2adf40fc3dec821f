// Package storetest provides integration testing facilities for stores.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/zephyrtronium/toothy/store"
)

// Test runs the integration test suite against stores produced by new.
//
// If a store cannot be created without error, new should call t.Fatal.
func Test(ctx context.Context, t *testing.T, new func(context.Context) store.Store) {
	t.Run("prefixes", testPrefixes(ctx, new(ctx)))
	t.Run("blacklist", testBlacklist(ctx, new(ctx)))
	t.Run("flags", testFlags(ctx, new(ctx)))
	t.Run("cogs", testCogs(ctx, new(ctx)))
	t.Run("empty", testEmpty(ctx, new(ctx)))
}

func testPrefixes(ctx context.Context, s store.Store) func(t *testing.T) {
	return func(t *testing.T) {
		t.Cleanup(func() { s.Close() })
		p, err := s.GuildPrefixes(ctx, "kessoku")
		if err != nil {
			t.Fatalf("couldn't get prefixes for unknown guild: %v", err)
		}
		if p != nil {
			t.Errorf("unknown guild has prefixes %q", p)
		}
		want := []string{"?", "b!"}
		if err := s.SetGuildPrefixes(ctx, "kessoku", want); err != nil {
			t.Fatalf("couldn't set prefixes: %v", err)
		}
		p, err = s.GuildPrefixes(ctx, "kessoku")
		if err != nil {
			t.Fatalf("couldn't get prefixes: %v", err)
		}
		if diff := cmp.Diff(want, p); diff != "" {
			t.Errorf("wrong prefixes (-want +got):\n%s", diff)
		}
		// Prefixes must not interfere with the guild block list.
		if err := s.SetGuildBlacklisted(ctx, "kessoku", true); err != nil {
			t.Fatalf("couldn't blacklist guild: %v", err)
		}
		p, err = s.GuildPrefixes(ctx, "kessoku")
		if err != nil {
			t.Fatalf("couldn't get prefixes after blacklisting: %v", err)
		}
		if diff := cmp.Diff(want, p); diff != "" {
			t.Errorf("wrong prefixes after blacklisting (-want +got):\n%s", diff)
		}
		// Other guilds are unaffected.
		p, err = s.GuildPrefixes(ctx, "sick hack")
		if err != nil {
			t.Fatalf("couldn't get prefixes for other guild: %v", err)
		}
		if p != nil {
			t.Errorf("other guild has prefixes %q", p)
		}
		if err := s.SetGuildPrefixes(ctx, "kessoku", nil); err != nil {
			t.Fatalf("couldn't clear prefixes: %v", err)
		}
		p, err = s.GuildPrefixes(ctx, "kessoku")
		if err != nil {
			t.Fatalf("couldn't get cleared prefixes: %v", err)
		}
		if p != nil {
			t.Errorf("cleared prefixes are %q", p)
		}
		b, err := s.GuildBlacklisted(ctx, "kessoku")
		if err != nil {
			t.Fatalf("couldn't check guild block list: %v", err)
		}
		if !b {
			t.Errorf("clearing prefixes removed guild from block list")
		}
	}
}

func testBlacklist(ctx context.Context, s store.Store) func(t *testing.T) {
	return func(t *testing.T) {
		t.Cleanup(func() { s.Close() })
		type op struct {
			guild bool
			id    string
			set   bool
		}
		ops := []op{
			{guild: false, id: "bocchi", set: true},
			{guild: false, id: "ryou", set: true},
			{guild: false, id: "ryou", set: false},
			{guild: true, id: "starry", set: true},
			{guild: true, id: "bocchi", set: false},
		}
		for _, o := range ops {
			var err error
			if o.guild {
				err = s.SetGuildBlacklisted(ctx, o.id, o.set)
			} else {
				err = s.SetUserBlacklisted(ctx, o.id, o.set)
			}
			if err != nil {
				t.Fatalf("couldn't apply %+v: %v", o, err)
			}
		}
		checks := []struct {
			guild bool
			id    string
			want  bool
		}{
			{guild: false, id: "bocchi", want: true},
			{guild: false, id: "ryou", want: false},
			{guild: false, id: "nijika", want: false},
			{guild: false, id: "starry", want: false},
			{guild: true, id: "starry", want: true},
			{guild: true, id: "bocchi", want: false},
			{guild: true, id: "ryou", want: false},
		}
		for _, c := range checks {
			var got bool
			var err error
			if c.guild {
				got, err = s.GuildBlacklisted(ctx, c.id)
			} else {
				got, err = s.UserBlacklisted(ctx, c.id)
			}
			if err != nil {
				t.Errorf("couldn't check %+v: %v", c, err)
				continue
			}
			if got != c.want {
				t.Errorf("wrong block status for %+v: got %t", c, got)
			}
		}
	}
}

func testFlags(ctx context.Context, s store.Store) func(t *testing.T) {
	return func(t *testing.T) {
		t.Cleanup(func() { s.Close() })
		if err := s.SetFlag(ctx, "bocchi", store.FlagVIP, true); err != nil {
			t.Fatalf("couldn't set flag: %v", err)
		}
		// Setting twice is fine.
		if err := s.SetFlag(ctx, "bocchi", store.FlagVIP, true); err != nil {
			t.Fatalf("couldn't set flag again: %v", err)
		}
		if err := s.SetFlag(ctx, "ryou", "bass", true); err != nil {
			t.Fatalf("couldn't set other flag: %v", err)
		}
		checks := []struct {
			user, flag string
			want       bool
		}{
			{"bocchi", store.FlagVIP, true},
			{"bocchi", "bass", false},
			{"ryou", store.FlagVIP, false},
			{"ryou", "bass", true},
			{"kita", store.FlagVIP, false},
		}
		for _, c := range checks {
			got, err := s.Flag(ctx, c.user, c.flag)
			if err != nil {
				t.Errorf("couldn't check %s/%s: %v", c.user, c.flag, err)
				continue
			}
			if got != c.want {
				t.Errorf("wrong flag %s/%s: want %t, got %t", c.user, c.flag, c.want, got)
			}
		}
		if err := s.SetFlag(ctx, "bocchi", store.FlagVIP, false); err != nil {
			t.Fatalf("couldn't revoke flag: %v", err)
		}
		got, err := s.Flag(ctx, "bocchi", store.FlagVIP)
		if err != nil {
			t.Fatalf("couldn't check revoked flag: %v", err)
		}
		if got {
			t.Errorf("revoked flag still set")
		}
	}
}

func testCogs(ctx context.Context, s store.Store) func(t *testing.T) {
	return func(t *testing.T) {
		t.Cleanup(func() { s.Close() })
		cfg, err := s.CogConfig(ctx, "global")
		if err != nil {
			t.Fatalf("couldn't get missing cog config: %v", err)
		}
		if cfg != nil {
			t.Errorf("missing cog config is %+v", cfg)
		}
		want := &store.CogConfig{DisabledCommands: []string{"ping", "about"}}
		if err := s.SetCogConfig(ctx, "global", want); err != nil {
			t.Fatalf("couldn't set cog config: %v", err)
		}
		cfg, err = s.CogConfig(ctx, "global")
		if err != nil {
			t.Fatalf("couldn't get cog config: %v", err)
		}
		if diff := cmp.Diff(want, cfg); diff != "" {
			t.Errorf("wrong cog config (-want +got):\n%s", diff)
		}
		if err := s.SetCogConfig(ctx, "global", &store.CogConfig{}); err != nil {
			t.Fatalf("couldn't replace cog config: %v", err)
		}
		cfg, err = s.CogConfig(ctx, "global")
		if err != nil {
			t.Fatalf("couldn't get replaced cog config: %v", err)
		}
		if diff := cmp.Diff(&store.CogConfig{}, cfg, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("wrong replaced cog config (-want +got):\n%s", diff)
		}
	}
}

func testEmpty(ctx context.Context, s store.Store) func(t *testing.T) {
	return func(t *testing.T) {
		t.Cleanup(func() { s.Close() })
		_, errGP := s.GuildPrefixes(ctx, "")
		_, errUB := s.UserBlacklisted(ctx, "")
		_, errGB := s.GuildBlacklisted(ctx, "")
		_, errF := s.Flag(ctx, "", store.FlagVIP)
		_, errC := s.CogConfig(ctx, "")
		errs := map[string]error{
			"GuildPrefixes":       errGP,
			"SetGuildPrefixes":    s.SetGuildPrefixes(ctx, "", []string{"!"}),
			"UserBlacklisted":     errUB,
			"SetUserBlacklisted":  s.SetUserBlacklisted(ctx, "", true),
			"GuildBlacklisted":    errGB,
			"SetGuildBlacklisted": s.SetGuildBlacklisted(ctx, "", true),
			"Flag":                errF,
			"SetFlag":             s.SetFlag(ctx, "bocchi", "", true),
			"CogConfig":           errC,
			"SetCogConfig":        s.SetCogConfig(ctx, "", &store.CogConfig{}),
		}
		for name, err := range errs {
			if !errors.Is(err, store.ErrEmptyKey) {
				t.Errorf("%s with empty key gave %v", name, err)
			}
		}
	}
}
