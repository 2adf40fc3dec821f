package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/zephyrtronium/toothy/message"
)

// discord is the Discord gateway and REST client.
type discord struct {
	session *discordgo.Session
	// works is the pool of idle message workers.
	works chan chan func(context.Context)
	log   *slog.Logger
}

// newDiscord creates a Discord session. It does not connect.
func newDiscord(token string, selfbot bool, log *slog.Logger) (*discord, error) {
	if !selfbot {
		token = "Bot " + token
	}
	session, err := discordgo.New(token)
	if err != nil {
		return nil, fmt.Errorf("couldn't create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	d := &discord{
		session: session,
		works:   make(chan chan func(context.Context), runtime.GOMAXPROCS(0)),
		log:     log,
	}
	session.AddHandler(d.onReady)
	return d, nil
}

// open connects to the gateway and returns the bot's user ID.
func (d *discord) open() (string, error) {
	if err := d.session.Open(); err != nil {
		return "", fmt.Errorf("couldn't connect to Discord: %w", err)
	}
	d.session.State.RLock()
	defer d.session.State.RUnlock()
	if d.session.State.User == nil {
		return "", fmt.Errorf("no user in Discord ready event")
	}
	return d.session.State.User.ID, nil
}

// owner returns the user ID of the owner of the bot's application.
func (d *discord) owner() (string, error) {
	app, err := d.session.Application("@me")
	if err != nil {
		return "", fmt.Errorf("couldn't get application info: %w", err)
	}
	return appOwner(app)
}

// appOwner returns the owner of an application. When a team owns the
// application, that is the team's owner.
func appOwner(app *discordgo.Application) (string, error) {
	switch {
	case app.Team != nil && app.Team.OwnerID != "":
		return app.Team.OwnerID, nil
	case app.Owner != nil && app.Owner.ID != "":
		return app.Owner.ID, nil
	default:
		return "", errors.New("application has no owner")
	}
}

func (d *discord) close() error {
	return d.session.Close()
}

func (d *discord) onReady(session *discordgo.Session, event *discordgo.Ready) {
	shards := 1
	if event.Shard != nil {
		shards = event.Shard[1]
	}
	d.log.Info("Discord ready",
		slog.String("user", event.User.Username),
		slog.String("id", event.User.ID),
		slog.Int("shards", shards),
		slog.Int("guilds", len(event.Guilds)),
	)
}

// handle attaches a message handler. Each message is handled on a worker
// with the given context. The returned function detaches the handler.
func (d *discord) handle(ctx context.Context, f func(context.Context, *message.Received)) func() {
	return d.session.AddHandler(func(session *discordgo.Session, event *discordgo.MessageCreate) {
		if event.Author == nil {
			return
		}
		var perms int64
		if event.GuildID != "" {
			p, err := session.State.MessagePermissions(event.Message)
			if err != nil {
				// Uncached guild or channel. Commands needing permissions
				// will report them missing.
				d.log.DebugContext(ctx, "couldn't compute permissions",
					slog.String("trace", event.ID),
					slog.String("in", event.GuildID),
					slog.Any("err", err),
				)
			}
			perms = p
		}
		msg := message.FromDiscord(event.Message, perms)
		d.enqueue(ctx, func(ctx context.Context) { f(ctx, msg) })
	})
}

func (d *discord) enqueue(ctx context.Context, work func(context.Context)) {
	var w chan func(context.Context)
	// Get a worker if one exists. Otherwise, spawn a new one.
	select {
	case w = <-d.works:
	default:
		w = make(chan func(context.Context), 1)
		go worker(ctx, d.works, w)
	}
	select {
	case <-ctx.Done():
		return
	case w <- work:
	}
}

// worker runs works for a while. The provided context is passed to each work.
func worker(ctx context.Context, works chan chan func(context.Context), ch chan func(context.Context)) {
	for {
		select {
		case <-ctx.Done():
			return
		case work := <-ch:
			work(ctx)
			// Replace ourselves in the pool if it needs additional capacity.
			// Otherwise, we're done.
			select {
			case works <- ch:
			default:
				return
			}
		}
	}
}

// Send sends a message to a channel.
func (d *discord) Send(ctx context.Context, msg message.Sent) error {
	_, err := d.session.ChannelMessageSendComplex(msg.To, message.ToDiscord(msg), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("couldn't send message to %s: %w", msg.To, err)
	}
	return nil
}

// Latency returns the most recent heartbeat latency.
func (d *discord) Latency() time.Duration {
	return d.session.HeartbeatLatency()
}

// GuildCount returns the number of guilds the bot is in.
func (d *discord) GuildCount() int {
	d.session.State.RLock()
	defer d.session.State.RUnlock()
	return len(d.session.State.Guilds)
}
