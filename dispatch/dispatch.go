// Package dispatch routes received messages to commands and turns command
// errors into responses.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/zephyrtronium/toothy/command"
	"github.com/zephyrtronium/toothy/message"
	"github.com/zephyrtronium/toothy/metrics"
	"github.com/zephyrtronium/toothy/prefix"
)

// Blocks reports whether users and guilds are blocked.
type Blocks interface {
	User(ctx context.Context, id string) (bool, error)
	Guild(ctx context.Context, id string) (bool, error)
}

// Dispatcher filters received messages and invokes the commands they name.
// It holds no per-message state, so OnMessage may be called concurrently.
type Dispatcher struct {
	State    *State
	Blocks   Blocks
	Prefixes prefix.Resolver
	Registry *command.Registry
	Out      command.Sender
	Errors   *Translator
	Log      *slog.Logger
	Metrics  *metrics.Metrics
}

// OnMessage handles a received message. At most one command is invoked.
// Filtered messages are dropped silently, and command errors go to the
// translator.
func (d *Dispatcher) OnMessage(ctx context.Context, msg *message.Received) {
	d.Metrics.MessagesCount.Observe(1)
	if reason := d.filter(ctx, msg); reason != "" {
		d.Metrics.FilteredCount.Observe(1, reason)
		return
	}
	p := d.Prefixes.Resolve(ctx, msg)
	call := d.Registry.Context(msg, p, d.Out)
	if !call.Valid() {
		return
	}
	name := call.Command.Name
	d.Log.InfoContext(ctx, "command",
		slog.String("name", name),
		slog.String("invoked", call.Invoked),
		slog.String("user", msg.Sender),
		slog.String("author", msg.Name),
		slog.String("guild", msg.Guild),
		slog.String("channel", msg.Channel),
		slog.Time("sent", msg.Time()),
	)
	d.Metrics.CommandCount.Observe(1, name)
	start := time.Now()
	err := d.Registry.Invoke(ctx, call)
	d.Metrics.CommandLatency.Observe(time.Since(start).Seconds(), name)
	if err != nil {
		d.Errors.Handle(ctx, call, err)
	}
}

// filter returns the reason to drop a message, or the empty string if it
// should be dispatched. Lookup failures drop the message.
func (d *Dispatcher) filter(ctx context.Context, msg *message.Received) string {
	if msg.Bot {
		return "bot"
	}
	if !d.State.Available() && !d.State.IsOwner(msg.Sender) {
		return "unavailable"
	}
	blocked, err := d.Blocks.User(ctx, msg.Sender)
	if err != nil {
		d.Log.ErrorContext(ctx, "couldn't check user block list",
			slog.String("user", msg.Sender),
			slog.Any("err", err),
		)
		return "error"
	}
	if blocked {
		return "user"
	}
	if msg.Private() {
		return ""
	}
	blocked, err = d.Blocks.Guild(ctx, msg.Guild)
	if err != nil {
		d.Log.ErrorContext(ctx, "couldn't check guild block list",
			slog.String("guild", msg.Guild),
			slog.Any("err", err),
		)
		return "error"
	}
	if blocked {
		return "guild"
	}
	return ""
}
