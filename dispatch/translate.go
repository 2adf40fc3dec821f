package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/zephyrtronium/toothy/command"
	"github.com/zephyrtronium/toothy/metrics"
	"github.com/zephyrtronium/toothy/store"
)

// Flags reports whether users hold named flags.
type Flags interface {
	Flag(ctx context.Context, user, flag string) (bool, error)
}

// Translator turns command errors into responses and side effects.
type Translator struct {
	Registry *command.Registry
	Flags    Flags
	Log      *slog.Logger
	Metrics  *metrics.Metrics
}

// Handle responds to an error from invoking a command.
func (t *Translator) Handle(ctx context.Context, call *command.Context, err error) {
	t.handle(ctx, call, err, false)
}

func (t *Translator) handle(ctx context.Context, call *command.Context, err error, reinvoked bool) {
	var e *command.Error
	if !errors.As(err, &e) {
		t.Log.WarnContext(ctx, "unhandled command error", slog.Any("err", err))
		return
	}
	t.Metrics.CommandErrors.Observe(1, e.Kind.String())
	user := call.Message.Sender
	switch e.Kind {
	case command.NoPrivateMessage:
		call.Command.ResetCooldown(user)
		t.send(ctx, call, "This command cannot be used in DMs")
	case command.OnCooldown:
		if !reinvoked && t.vip(ctx, user) {
			if err := t.Registry.Reinvoke(ctx, call); err != nil {
				t.handle(ctx, call, err, true)
			}
			return
		}
		t.send(ctx, call, fmt.Sprintf("You cannot use this command again for the next %.2f seconds", e.RetryAfter.Seconds()))
	case command.MissingArgument, command.BadArgument:
		call.Command.ResetCooldown(user)
		if err := call.SendHelp(ctx); err != nil {
			t.Log.ErrorContext(ctx, "couldn't send help", slog.String("command", e.Command), slog.Any("err", err))
		}
	case command.Disabled:
		t.send(ctx, call, "This command is disabled")
	case command.InvokeError:
		t.Log.ErrorContext(ctx, "command failed",
			slog.String("command", e.Command),
			slog.String("extension", call.Command.Extension),
			slog.Any("err", e.Err),
		)
		t.send(ctx, call, "Something went wrong. If the issue persists, please contact the author.")
	case command.MissingPermissions:
		names := make([]string, len(e.Missing))
		for i, p := range e.Missing {
			names[i] = Humanize(p)
		}
		t.send(ctx, call, fmt.Sprintf("You're missing the following permissions to use this command: `%s`", strings.Join(names, ", ")))
	case command.NotFound, command.CheckFailure:
		// Do nothing.
	default:
		t.Log.WarnContext(ctx, "unknown command error kind",
			slog.String("kind", e.Kind.String()),
			slog.String("command", e.Command),
			slog.Any("err", err),
		)
	}
}

// vip reports whether a user bypasses cooldowns.
// Lookup failures count as not VIP.
func (t *Translator) vip(ctx context.Context, user string) bool {
	ok, err := t.Flags.Flag(ctx, user, store.FlagVIP)
	if err != nil {
		t.Log.ErrorContext(ctx, "couldn't check vip flag", slog.String("user", user), slog.Any("err", err))
		return false
	}
	return ok
}

func (t *Translator) send(ctx context.Context, call *command.Context, text string) {
	if err := call.Send(ctx, text); err != nil {
		t.Log.ErrorContext(ctx, "couldn't send error response", slog.Any("err", err))
	}
}

// Humanize converts a permission name like "manage_guild" to the form shown
// to users, like "Manage Server".
func Humanize(perm string) string {
	s := strings.ReplaceAll(perm, "guild", "server")
	s = strings.ReplaceAll(s, "_", " ")
	// Casers are not safe for concurrent use.
	return cases.Title(language.English).String(s)
}
