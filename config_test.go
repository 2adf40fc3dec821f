package main_test

import (
	"context"
	_ "embed"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	main "github.com/zephyrtronium/toothy"
)

//go:embed example.toml
var exampleToml string

func eqcase[T comparable](t *testing.T, name string, val T, eq T) {
	t.Helper()
	if val != eq {
		t.Errorf("wrong %s: want %#v, got %#v", name, eq, val)
	}
}

func TestExampleConfig(t *testing.T) {
	t.Setenv("TOOTHY_TOKEN", "bocchi")
	cfg, md, err := main.Load(context.Background(), strings.NewReader(exampleToml))
	if err != nil {
		t.Fatalf("failed to load example.toml: %v", err)
	}

	eqcase(t, "Token", cfg.Token, "bocchi")
	eqcase(t, "Description", cfg.Description, "A friendly Discord bot.")
	eqcase(t, "Selfbot", cfg.Selfbot, false)
	eqcase(t, "Owner", cfg.Owner, "119094696487288833")
	eqcase(t, "CaseInsensitive", cfg.CaseInsensitive, true)
	eqcase(t, "Color", cfg.Color, "0x1abc9c")
	eqcase(t, "Extensions", cfg.Extensions, "/var/toothy/extensions.json")
	eqcase(t, "DB.KV", cfg.DB.KV, "")
	eqcase(t, "DB.KVFlag", cfg.DB.KVFlag, "")
	eqcase(t, "HTTP.Listen", cfg.HTTP.Listen, "127.0.0.1:4959")
	eqcase(t, "http defined", md.IsDefined("http"), true)
	if diff := cmp.Diff([]string{"t!", "toothy "}, cfg.Prefixes); diff != "" {
		t.Errorf("wrong Prefixes (+got/-want):\n%s", diff)
	}
	if !strings.Contains(cfg.DB.SQLite, "file:") {
		t.Errorf("wrong DB.SQLite: %q does not contain %q", cfg.DB.SQLite, "file:")
	}
	if err := cfg.Check(); err != nil {
		t.Errorf("example config fails check: %v", err)
	}
}

func TestCheck(t *testing.T) {
	ok := func() main.Config {
		return main.Config{
			Token:      "tok",
			Owner:      "1",
			Color:      "0x1abc9c",
			Extensions: "extensions.json",
		}
	}
	cases := []struct {
		name string
		edit func(*main.Config)
		err  bool
	}{
		{"ok", func(c *main.Config) {}, false},
		{"no-token", func(c *main.Config) { c.Token = "" }, true},
		{"selfbot", func(c *main.Config) { c.Selfbot = true }, false},
		{"selfbot-no-owner", func(c *main.Config) { c.Selfbot, c.Owner = true, "" }, true},
		{"bot-no-owner", func(c *main.Config) { c.Owner = "" }, false},
		{"no-extensions", func(c *main.Config) { c.Extensions = "" }, true},
		{"no-color", func(c *main.Config) { c.Color = "" }, false},
		{"hash-color", func(c *main.Config) { c.Color = "#FFFFFF" }, false},
		{"bare-color", func(c *main.Config) { c.Color = "ff00ff" }, false},
		{"bad-color", func(c *main.Config) { c.Color = "teal" }, true},
		{"big-color", func(c *main.Config) { c.Color = "0x1000000" }, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			cfg := ok()
			c.edit(&cfg)
			err := cfg.Check()
			if (err != nil) != c.err {
				t.Errorf("wrong error: want error %t, got %v", c.err, err)
			}
		})
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toothy.toml")
	if err := os.WriteFile(path, []byte(exampleToml), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := main.Save(path, "new description", []string{"?", "!"}); err != nil {
		t.Fatalf("couldn't save: %v", err)
	}
	t.Setenv("TOOTHY_TOKEN", "")
	r, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	cfg, _, err := main.Load(context.Background(), r)
	if err != nil {
		t.Fatalf("couldn't reload saved config: %v", err)
	}
	eqcase(t, "Description", cfg.Description, "new description")
	eqcase(t, "Owner", cfg.Owner, "119094696487288833")
	eqcase(t, "HTTP.Listen", cfg.HTTP.Listen, "127.0.0.1:4959")
	if diff := cmp.Diff([]string{"?", "!"}, cfg.Prefixes); diff != "" {
		t.Errorf("wrong Prefixes (+got/-want):\n%s", diff)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Environment references are saved as written.
	if !strings.Contains(string(b), "$TOOTHY_TOKEN") {
		t.Errorf("token reference lost from saved config:\n%s", b)
	}
	ents, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(ents) != 1 {
		t.Errorf("leftover files after save: %v", ents)
	}
}

func TestSaveMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	if err := main.Save(path, "", nil); err == nil {
		t.Error("saving a missing config succeeded")
	}
}
