package command

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/zephyrtronium/toothy/message"
)

// Registry holds the commands provided by extensions.
// The zero value is an empty registry ready to use.
type Registry struct {
	// IsOwner reports whether a user is the bot owner. If it is nil, no user
	// may run owner-only commands.
	IsOwner func(user string) bool
	// CaseInsensitive makes command lookup ignore case.
	CaseInsensitive bool

	mu   sync.RWMutex
	cmds map[string]*Command
	exts map[string][]*Command
}

func (r *Registry) key(name string) string {
	if r.CaseInsensitive {
		return strings.ToLower(name)
	}
	return name
}

// Add registers the commands an extension provides. If any command is
// invalid or any name or alias is already taken, none are registered.
func (r *Registry) Add(ext string, cmds ...*Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.exts[ext]; ok {
		return fmt.Errorf("extension %q is already registered", ext)
	}
	taken := make(map[string]bool)
	for _, c := range cmds {
		if err := validate(c); err != nil {
			return err
		}
		for _, name := range append([]string{c.Name}, c.Aliases...) {
			k := r.key(name)
			if r.cmds[k] != nil || taken[k] {
				return fmt.Errorf("command name %q is already registered", name)
			}
			taken[k] = true
		}
	}
	if r.cmds == nil {
		r.cmds = make(map[string]*Command)
		r.exts = make(map[string][]*Command)
	}
	for _, c := range cmds {
		c.Extension = ext
		r.cmds[r.key(c.Name)] = c
		for _, a := range c.Aliases {
			r.cmds[r.key(a)] = c
		}
	}
	r.exts[ext] = slices.Clone(cmds)
	return nil
}

func validate(c *Command) error {
	if c == nil {
		return errors.New("nil command")
	}
	if c.Func == nil {
		return fmt.Errorf("command %q has no body", c.Name)
	}
	for _, name := range append([]string{c.Name}, c.Aliases...) {
		if name == "" || strings.ContainsFunc(name, unicode.IsSpace) {
			return fmt.Errorf("bad command name %q", name)
		}
	}
	for _, p := range c.Permissions {
		if !KnownPermission(p) {
			return fmt.Errorf("command %q requires unknown permission %q", c.Name, p)
		}
	}
	return nil
}

// Lookup returns the command with a given name or alias, or nil if there is
// none.
func (r *Registry) Lookup(name string) *Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cmds[r.key(name)]
}

// All returns all registered commands sorted by name.
func (r *Registry) All() []*Command {
	r.mu.RLock()
	var s []*Command
	for _, cmds := range r.exts {
		s = append(s, cmds...)
	}
	r.mu.RUnlock()
	slices.SortFunc(s, func(a, b *Command) int { return strings.Compare(a.Name, b.Name) })
	return s
}

// Extensions returns the names of extensions with registered commands,
// sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := make([]string, 0, len(r.exts))
	for ext := range r.exts {
		s = append(s, ext)
	}
	slices.Sort(s)
	return s
}

// Context builds the context for a message with its resolved prefixes.
// If the message names a registered command, the context is valid.
func (r *Registry) Context(msg *message.Received, prefixes []string, out Sender) *Context {
	call := &Context{
		Message:  msg,
		Prefixes: prefixes,
		Out:      out,
	}
	prefix, name, rest, ok := Parse(msg.Text, prefixes)
	if !ok {
		return call
	}
	call.Prefix = prefix
	call.Invoked = name
	call.Rest = rest
	if name != "" {
		call.Command = r.Lookup(name)
	}
	return call
}

// SweepCooldowns forgets cooldowns which have fully elapsed by now across all
// commands. It returns the number of entries forgotten.
func (r *Registry) SweepCooldowns(now time.Time) int {
	var n int
	for _, c := range r.All() {
		n += c.Cooldown.Sweep(now)
	}
	return n
}

// Invoke runs the context's command. Checks run in order: enabled, guild-only,
// owner, permissions, custom checks, cooldown, and argument count.
// A failed check or body error is returned as an [*Error].
func (r *Registry) Invoke(ctx context.Context, call *Context) error {
	return r.invoke(ctx, call, true)
}

// Reinvoke runs the context's command without applying its cooldown.
func (r *Registry) Reinvoke(ctx context.Context, call *Context) error {
	return r.invoke(ctx, call, false)
}

func (r *Registry) invoke(ctx context.Context, call *Context, cooldown bool) error {
	cmd := call.Command
	if cmd == nil {
		return &Error{Kind: NotFound, Command: call.Invoked}
	}
	if !cmd.Enabled() {
		return &Error{Kind: Disabled, Command: cmd.Name}
	}
	if cmd.GuildOnly && call.Message.Private() {
		return &Error{Kind: NoPrivateMessage, Command: cmd.Name}
	}
	if cmd.OwnerOnly && (r.IsOwner == nil || !r.IsOwner(call.Message.Sender)) {
		return &Error{Kind: CheckFailure, Command: cmd.Name, Err: errors.New("owner only")}
	}
	if m := LackingPermissions(call.Message.Permissions, cmd.Permissions); len(m) != 0 {
		return &Error{Kind: MissingPermissions, Command: cmd.Name, Missing: m}
	}
	for _, check := range cmd.Checks {
		if err := check(ctx, call); err != nil {
			return asError(cmd, CheckFailure, err)
		}
	}
	if cooldown {
		if d := cmd.Cooldown.Take(call.Message.Sender, time.Now()); d > 0 {
			return &Error{Kind: OnCooldown, Command: cmd.Name, RetryAfter: d}
		}
	}
	args, err := Split(call.Rest)
	if err != nil {
		return &Error{Kind: BadArgument, Command: cmd.Name, Err: err}
	}
	if len(args) < cmd.Args {
		return &Error{Kind: MissingArgument, Command: cmd.Name, Err: fmt.Errorf("need %d arguments, got %d", cmd.Args, len(args))}
	}
	call.Args = args
	return run(ctx, cmd, call)
}

func run(ctx context.Context, cmd *Command, call *Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &Error{Kind: InvokeError, Command: cmd.Name, Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	if err := cmd.Func(ctx, call); err != nil {
		return asError(cmd, InvokeError, err)
	}
	return nil
}

// asError converts err to an *Error, using kind if it is not one already.
func asError(cmd *Command, kind Kind, err error) error {
	var e *Error
	if errors.As(err, &e) {
		if e.Command == "" {
			e.Command = cmd.Name
		}
		return e
	}
	return &Error{Kind: kind, Command: cmd.Name, Err: err}
}
