// Package command implements prefix commands: their definitions, the
// registry that owns them, invocation with checks and cooldowns, and the
// closed set of errors invocation can produce.
package command

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/zephyrtronium/toothy/message"
)

// Func executes a command.
// An error which is not an [*Error] is reported as an [InvokeError].
type Func func(ctx context.Context, call *Context) error

// Check decides whether a command may run in a context.
// A check that rejects the invocation returns an [*Error], usually with kind
// [CheckFailure].
type Check func(ctx context.Context, call *Context) error

// Sender sends messages to the chat service.
type Sender interface {
	Send(ctx context.Context, msg message.Sent) error
}

// Command is a prefix command.
// Commands must not be copied after they are added to a registry.
type Command struct {
	// Name is the name used to invoke the command. It must not contain
	// whitespace.
	Name string
	// Aliases are alternative names for the command.
	Aliases []string
	// Usage is the argument synopsis shown in help, e.g. "<user> [on|off]".
	Usage string
	// Help is a short description of the command.
	Help string
	// Args is the minimum number of arguments the command requires.
	Args int
	// GuildOnly indicates that the command cannot be used in direct messages.
	GuildOnly bool
	// OwnerOnly indicates that only the bot owner may use the command.
	OwnerOnly bool
	// Hidden omits the command from help listings.
	Hidden bool
	// Permissions lists the member permissions the command requires, by
	// name, e.g. "manage_guild". See [LackingPermissions].
	Permissions []string
	// Checks are additional checks run after the owner and permission checks.
	Checks []Check
	// Cooldown limits how often each user may use the command.
	// If nil, there is no limit.
	Cooldown *Cooldown
	// Func is the command body.
	Func Func

	// Extension is the name of the extension which provides the command.
	// It is set when the command is added to a registry.
	Extension string

	disabled atomic.Bool
}

// Enabled reports whether the command may be invoked.
func (c *Command) Enabled() bool {
	return !c.disabled.Load()
}

// SetEnabled enables or disables the command.
func (c *Command) SetEnabled(v bool) {
	c.disabled.Store(!v)
}

// Visible reports whether the command should be listed in help.
// Disabled commands are hidden.
func (c *Command) Visible() bool {
	return !c.Hidden && c.Enabled()
}

// ResetCooldown forgets a user's cooldown for the command.
func (c *Command) ResetCooldown(user string) {
	if c != nil && c.Cooldown != nil {
		c.Cooldown.Reset(user)
	}
}

// Signature returns the command name followed by its usage.
func (c *Command) Signature() string {
	if c.Usage == "" {
		return c.Name
	}
	return c.Name + " " + c.Usage
}

// Context is the context of a single message. It is created for every
// message that passes filtering and discarded after dispatch.
type Context struct {
	// Message is the message being handled.
	Message *message.Received
	// Prefixes is the resolved prefix list for the message.
	Prefixes []string
	// Prefix is the prefix the message matched, if any.
	Prefix string
	// Invoked is the name the command was invoked with.
	Invoked string
	// Rest is the text following the command name.
	Rest string
	// Args is the parsed arguments. It is populated during invocation.
	Args []string
	// Command is the matched command, or nil if none matched.
	Command *Command
	// Out sends responses.
	Out Sender
}

// Valid reports whether the context names a command.
func (c *Context) Valid() bool {
	return c.Command != nil
}

// Send sends text to the channel where the message was received.
func (c *Context) Send(ctx context.Context, text string) error {
	return c.send(ctx, message.Format("", c.Message.Channel, "%s", text))
}

// Reply sends text as a reply to the message.
func (c *Context) Reply(ctx context.Context, text string) error {
	return c.send(ctx, message.Format(c.Message.ID, c.Message.Channel, "%s", text))
}

// SendColor sends text to the channel where the message was received as an
// embed with an accent color given as 0xRRGGBB.
func (c *Context) SendColor(ctx context.Context, text string, color int) error {
	msg := message.Format("", c.Message.Channel, "%s", text)
	msg.Color = color
	return c.send(ctx, msg)
}

func (c *Context) send(ctx context.Context, msg message.Sent) error {
	if err := c.Out.Send(ctx, msg); err != nil {
		return fmt.Errorf("couldn't send to %s: %w", msg.To, err)
	}
	return nil
}

// SendHelp sends the usage and help of the context's command.
func (c *Context) SendHelp(ctx context.Context) error {
	if c.Command == nil {
		return nil
	}
	return c.Send(ctx, Help(c.DisplayPrefix(), c.Command))
}

// DisplayPrefix returns a prefix suitable for showing to users.
// Mention prefixes are replaced with the first configured prefix.
func (c *Context) DisplayPrefix() string {
	if !strings.HasPrefix(c.Prefix, "<@") {
		return c.Prefix
	}
	for _, p := range c.Prefixes {
		if !strings.HasPrefix(p, "<@") {
			return p
		}
	}
	return c.Prefix
}

// Help formats the help text for a command.
func Help(prefix string, cmd *Command) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage: `%s%s`", prefix, cmd.Signature())
	if len(cmd.Aliases) != 0 {
		fmt.Fprintf(&b, "\nAliases: %s", strings.Join(cmd.Aliases, ", "))
	}
	if cmd.Help != "" {
		b.WriteString("\n")
		b.WriteString(cmd.Help)
	}
	return b.String()
}
