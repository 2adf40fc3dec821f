// Package extension loads extension modules at startup according to a
// persisted map of enabled states.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/zephyrtronium/toothy/command"
	"github.com/zephyrtronium/toothy/dispatch"
	"github.com/zephyrtronium/toothy/store"
)

// Extension is a loaded extension module.
type Extension interface {
	// Name is the extension's name in the state file.
	Name() string
	// Commands are the commands the extension provides.
	Commands() []*command.Command
}

// Settings is the mutable subset of bot configuration visible to extensions.
type Settings interface {
	// Prefixes returns the global prefixes.
	Prefixes() []string
	// SetPrefixes replaces the global prefixes and saves the configuration.
	SetPrefixes(p []string) error
	// Description returns the bot description.
	Description() string
	// Color returns the bot's accent color as 0xRRGGBB.
	Color() int
}

// Gateway reports on the chat service connection.
type Gateway interface {
	// Latency returns the most recent heartbeat latency.
	Latency() time.Duration
	// GuildCount returns the number of guilds the bot is in.
	GuildCount() int
}

// Deps are the dependencies available to extension factories.
type Deps struct {
	Store    store.Store
	Registry *command.Registry
	State    *dispatch.State
	Settings Settings
	Gateway  Gateway
	Log      *slog.Logger
	// Core is the name of the core extension.
	Core string
}

// Factory creates an extension.
type Factory func(Deps) (Extension, error)

// Catalog maps extension names to factories.
type Catalog map[string]Factory

// ErrNoCore is returned by [Manager.LoadAll] when the core extension did not
// load. The bot must not continue.
var ErrNoCore = errors.New("core extension not loaded")

// Manager loads extensions.
type Manager struct {
	// Catalog is the set of known extensions.
	Catalog Catalog
	// Core is the name of the extension that must load.
	Core string
	// Deps is passed to each factory. Its Core field is set to the
	// manager's.
	Deps Deps
	// Log receives load failures.
	Log *slog.Logger
}

// Report is the result of loading extensions.
type Report struct {
	// Loaded is the names of extensions that loaded, in order.
	Loaded []string
	// Failed maps extensions that failed to load to their errors.
	Failed map[string]error
}

// LoadAll loads each enabled extension in states in name order. Extensions
// which fail to load are logged and set to disabled in states. If the core
// extension is not loaded afterward, the result is [ErrNoCore]. Otherwise,
// commands listed as disabled in the core extension's configuration are
// disabled.
func (m *Manager) LoadAll(ctx context.Context, states States) (*Report, error) {
	r := &Report{Failed: make(map[string]error)}
	deps := m.Deps
	deps.Core = m.Core
	names := make([]string, 0, len(states))
	for name := range states {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if !states[name] {
			continue
		}
		if err := m.load(deps, name); err != nil {
			m.Log.ErrorContext(ctx, "couldn't load extension",
				slog.String("extension", name),
				slog.String("type", fmt.Sprintf("%T", errors.Unwrap(err))),
				slog.Any("err", err),
			)
			states[name] = false
			r.Failed[name] = err
			continue
		}
		m.Log.InfoContext(ctx, "loaded extension", slog.String("extension", name))
		r.Loaded = append(r.Loaded, name)
	}
	if !slices.Contains(r.Loaded, m.Core) {
		return r, fmt.Errorf("%w: %q", ErrNoCore, m.Core)
	}
	if err := m.disable(ctx); err != nil {
		return r, err
	}
	return r, nil
}

func (m *Manager) load(deps Deps, name string) (err error) {
	f := m.Catalog[name]
	if f == nil {
		return fmt.Errorf("no extension named %q: %w", name, errUnknown)
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("extension %q panicked: %w", name, &PanicError{Value: p})
		}
	}()
	ext, err := f(deps)
	if err != nil {
		return fmt.Errorf("couldn't create extension %q: %w", name, err)
	}
	if err := deps.Registry.Add(name, ext.Commands()...); err != nil {
		return fmt.Errorf("couldn't register extension %q: %w", name, err)
	}
	return nil
}

// disable applies the core extension's disabled command list.
func (m *Manager) disable(ctx context.Context) error {
	cfg, err := m.Deps.Store.CogConfig(ctx, m.Core)
	if err != nil {
		return fmt.Errorf("couldn't get disabled commands: %w", err)
	}
	if cfg == nil {
		return nil
	}
	for _, name := range cfg.DisabledCommands {
		c := m.Deps.Registry.Lookup(name)
		if c == nil {
			m.Log.WarnContext(ctx, "unknown disabled command", slog.String("command", name))
			continue
		}
		c.SetEnabled(false)
	}
	return nil
}

var errUnknown = errors.New("unknown extension")

// PanicError is an error from an extension which panicked while loading.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
