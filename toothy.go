package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zephyrtronium/toothy/blocklist"
	"github.com/zephyrtronium/toothy/cogs/general"
	"github.com/zephyrtronium/toothy/cogs/global"
	"github.com/zephyrtronium/toothy/command"
	"github.com/zephyrtronium/toothy/dispatch"
	"github.com/zephyrtronium/toothy/extension"
	"github.com/zephyrtronium/toothy/metrics"
	"github.com/zephyrtronium/toothy/prefix"
	"github.com/zephyrtronium/toothy/store"
)

// catalog is the set of extensions the bot knows how to load.
var catalog = extension.Catalog{
	global.Name:  global.New,
	general.Name: general.New,
}

// sweepInterval is how often elapsed cooldowns are forgotten.
const sweepInterval = 10 * time.Minute

// Toothy is the bot.
type Toothy struct {
	cfg      *Config
	settings *settings
	store    store.Store
	state    *dispatch.State
	registry *command.Registry
	metrics  *metrics.Metrics
	discord  *discord
	log      *slog.Logger
}

// New creates the bot. path is the config file, used to save settings.
// The bot takes ownership of st.
func New(cfg *Config, path string, st store.Store, log *slog.Logger) (*Toothy, error) {
	s, err := newSettings(path, cfg)
	if err != nil {
		return nil, err
	}
	d, err := newDiscord(cfg.Token, cfg.Selfbot, log)
	if err != nil {
		return nil, err
	}
	state := dispatch.NewState(cfg.Owner)
	t := Toothy{
		cfg:      cfg,
		settings: s,
		store:    st,
		state:    state,
		registry: &command.Registry{IsOwner: state.IsOwner, CaseInsensitive: cfg.CaseInsensitive},
		metrics:  newMetrics(),
		discord:  d,
		log:      log,
	}
	return &t, nil
}

// Run connects to Discord, loads extensions, and dispatches messages until
// ctx is canceled.
func (t *Toothy) Run(ctx context.Context) error {
	defer t.store.Close()
	me, err := t.discord.open()
	if err != nil {
		return err
	}
	defer t.discord.close()
	t.resolveOwner(ctx, t.discord.owner)
	t.state.Start = time.Now()
	if err := t.loadExtensions(ctx); err != nil {
		return err
	}

	blocks := &blocklist.Checker{Source: t.store}
	d := &dispatch.Dispatcher{
		State:  t.state,
		Blocks: blocks,
		Prefixes: &prefix.Guild{
			Source: t.store,
			Global: t.settings.Prefixes,
			Me:     me,
			Log:    t.log,
		},
		Registry: t.registry,
		Out:      t.discord,
		Errors: &dispatch.Translator{
			Registry: t.registry,
			Flags:    t.store,
			Log:      t.log,
			Metrics:  t.metrics,
		},
		Log:     t.log,
		Metrics: t.metrics,
	}
	detach := t.discord.handle(ctx, d.OnMessage)
	defer detach()
	t.log.InfoContext(ctx, "Toothy ready", slog.Int("guilds", t.discord.GuildCount()))

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		t.sweep(ctx)
		return nil
	})
	if t.cfg.HTTP.Listen != "" {
		group.Go(func() error {
			a := api{state: t.state, blocks: blocks, gateway: t.discord, registry: t.registry}
			return a.serve(ctx, t.cfg.HTTP.Listen, t.metrics.Collectors())
		})
	}
	return group.Wait()
}

// resolveOwner sets the owner to the application owner when the config names
// none. It must be called before messages are dispatched.
func (t *Toothy) resolveOwner(ctx context.Context, lookup func() (string, error)) {
	if t.state.Owner != "" {
		return
	}
	owner, err := lookup()
	if err != nil {
		t.log.WarnContext(ctx, "couldn't resolve owner; owner-only commands are unavailable", slog.Any("err", err))
		return
	}
	t.state.Owner = owner
	t.log.InfoContext(ctx, "owner", slog.String("id", owner))
}

// loadExtensions loads the extensions enabled in the state file and writes
// the resulting states back.
func (t *Toothy) loadExtensions(ctx context.Context) error {
	path := t.cfg.Extensions
	states, err := extension.ReadStates(path)
	if err != nil {
		return err
	}
	m := extension.Manager{
		Catalog: catalog,
		Core:    global.Name,
		Deps: extension.Deps{
			Store:    t.store,
			Registry: t.registry,
			State:    t.state,
			Settings: t.settings,
			Gateway:  t.discord,
			Log:      t.log,
		},
		Log: t.log,
	}
	r, err := m.LoadAll(ctx, states)
	if err != nil {
		return fmt.Errorf("couldn't load extensions: %w", err)
	}
	if err := extension.WriteStates(path, states); err != nil {
		return err
	}
	t.log.InfoContext(ctx, "extensions",
		slog.Any("loaded", r.Loaded),
		slog.Int("failed", len(r.Failed)),
	)
	return nil
}

// sweep periodically forgets elapsed cooldowns until ctx is done.
func (t *Toothy) sweep(ctx context.Context) {
	tick := time.NewTicker(sweepInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			n := t.registry.SweepCooldowns(now)
			t.log.DebugContext(ctx, "swept cooldowns", slog.Int("n", n))
		}
	}
}
