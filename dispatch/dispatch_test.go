package dispatch_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"

	"github.com/zephyrtronium/toothy/command"
	"github.com/zephyrtronium/toothy/dispatch"
	"github.com/zephyrtronium/toothy/message"
	"github.com/zephyrtronium/toothy/metrics"
	"github.com/zephyrtronium/toothy/prefix"
)

type recorder struct {
	mu   sync.Mutex
	sent []message.Sent
}

func (r *recorder) Send(ctx context.Context, msg message.Sent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s []string
	for _, m := range r.sent {
		s = append(s, m.Text)
	}
	return s
}

type blocks struct {
	users, guilds map[string]bool
	err           error
}

func (b *blocks) User(ctx context.Context, id string) (bool, error) {
	return b.users[id], b.err
}

func (b *blocks) Guild(ctx context.Context, id string) (bool, error) {
	return b.guilds[id], b.err
}

type flags map[string]bool

func (f flags) Flag(ctx context.Context, user, flag string) (bool, error) {
	if user == "broken" {
		return false, errors.New("broken")
	}
	return f[user+"/"+flag], nil
}

type prefixes []string

func (p prefixes) Resolve(ctx context.Context, msg *message.Received) []string {
	return append([]string(nil), p...)
}

type fixture struct {
	d     *dispatch.Dispatcher
	out   *recorder
	calls map[string]int
	args  [][]string
	mu    sync.Mutex
}

func (f *fixture) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func newFixture(t *testing.T, b *blocks, fl flags) *fixture {
	t.Helper()
	f := &fixture{out: new(recorder), calls: make(map[string]int)}
	body := func(ctx context.Context, call *command.Context) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.calls[call.Command.Name]++
		f.args = append(f.args, call.Args)
		return nil
	}
	state := dispatch.NewState("owner")
	reg := &command.Registry{IsOwner: state.IsOwner}
	err := reg.Add("test",
		&command.Command{Name: "ping", Func: body},
		&command.Command{Name: "slow", Cooldown: command.NewCooldown(1, time.Hour), Func: body},
		&command.Command{Name: "ban", Permissions: []string{"manage_guild", "ban_members"}, Func: body},
		&command.Command{Name: "server", GuildOnly: true, Func: body},
		&command.Command{Name: "need", Args: 1, Usage: "<thing>", Func: body},
		&command.Command{Name: "off", Func: body},
		&command.Command{Name: "boom", Func: func(context.Context, *command.Context) error { return errors.New("boom") }},
		&command.Command{Name: "secret", OwnerOnly: true, Func: body},
	)
	if err != nil {
		t.Fatal(err)
	}
	reg.Lookup("off").SetEnabled(false)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.Discard()
	if b == nil {
		b = &blocks{}
	}
	f.d = &dispatch.Dispatcher{
		State:    state,
		Blocks:   b,
		Prefixes: prefixes{"!", "<@!bot> ", "<@bot> "},
		Registry: reg,
		Out:      f.out,
		Errors:   &dispatch.Translator{Registry: reg, Flags: fl, Log: log, Metrics: m},
		Log:      log,
		Metrics:  m,
	}
	return f
}

func msg(user, guild, text string) *message.Received {
	return &message.Received{
		ID:          "m",
		Sender:      user,
		Name:        user,
		Guild:       guild,
		Channel:     "c",
		Text:        text,
		Permissions: discordgo.PermissionSendMessages,
	}
}

func TestFilter(t *testing.T) {
	b := &blocks{
		users:  map[string]bool{"blocked": true},
		guilds: map[string]bool{"blockedguild": true},
	}
	cases := []struct {
		name  string
		msg   *message.Received
		avail bool
		want  int
	}{
		{"plain", msg("user", "g", "!ping"), true, 1},
		{"dm", msg("user", "", "!ping"), true, 1},
		{"bot", &message.Received{Sender: "b", Bot: true, Guild: "g", Text: "!ping"}, true, 0},
		{"blocked-user", msg("blocked", "g", "!ping"), true, 0},
		{"blocked-user-dm", msg("blocked", "", "!ping"), true, 0},
		{"blocked-guild", msg("user", "blockedguild", "!ping"), true, 0},
		{"blocked-owner", msg("owner", "blockedguild", "!ping"), true, 0},
		{"unavailable", msg("user", "g", "!ping"), false, 0},
		{"unavailable-owner", msg("owner", "g", "!ping"), false, 1},
		{"no-prefix", msg("user", "g", "ping"), true, 0},
		{"mention", msg("user", "g", "<@bot> ping"), true, 1},
		{"space", msg("user", "g", "! ping"), true, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, b, flags{})
			f.d.State.SetAvailable(c.avail)
			f.d.OnMessage(context.Background(), c.msg)
			if got := f.count("ping"); got != c.want {
				t.Errorf("wrong invocation count: want %d, got %d", c.want, got)
			}
			if len(f.out.sent) != 0 {
				t.Errorf("filtering sent messages: %q", f.out.texts())
			}
		})
	}
}

func TestBlockedNeverInvokes(t *testing.T) {
	b := &blocks{users: map[string]bool{"blocked": true}}
	f := newFixture(t, b, flags{})
	for _, c := range f.d.Registry.All() {
		for _, text := range []string{"!" + c.Name, "!" + c.Name + " x y", "<@bot> " + c.Name} {
			f.d.OnMessage(context.Background(), msg("blocked", "g", text))
		}
	}
	if len(f.calls) != 0 {
		t.Errorf("blocked user invoked commands: %v", f.calls)
	}
	if len(f.out.sent) != 0 {
		t.Errorf("blocked user got responses: %q", f.out.texts())
	}
}

func TestUnavailableSilent(t *testing.T) {
	f := newFixture(t, nil, flags{})
	f.d.State.SetAvailable(false)
	for _, text := range []string{"!ping", "!slow", "!ban", "!server", "!need", "!off", "!boom", "!secret", "!nothing", "hello"} {
		f.d.OnMessage(context.Background(), msg("user", "g", text))
		f.d.OnMessage(context.Background(), msg("user", "", text))
	}
	if len(f.calls) != 0 {
		t.Errorf("commands invoked while unavailable: %v", f.calls)
	}
	if len(f.out.sent) != 0 {
		t.Errorf("responses sent while unavailable: %q", f.out.texts())
	}
}

func TestBlockLookupFailure(t *testing.T) {
	f := newFixture(t, &blocks{err: errors.New("down")}, flags{})
	f.d.OnMessage(context.Background(), msg("user", "g", "!ping"))
	if got := f.count("ping"); got != 0 {
		t.Errorf("invoked %d times despite failed block check", got)
	}
}

func TestTranslate(t *testing.T) {
	cases := []struct {
		name string
		msg  *message.Received
		want []string
	}{
		{"unknown", msg("user", "g", "!nothing"), nil},
		{"dm", msg("user", "", "!server"), []string{"This command cannot be used in DMs"}},
		{"disabled", msg("user", "g", "!off"), []string{"This command is disabled"}},
		{"missing-arg", msg("user", "g", "!need"), []string{"Usage: `!need <thing>`"}},
		{"bad-arg", msg("user", "g", `!need "x`), []string{"Usage: `!need <thing>`"}},
		{"boom", msg("user", "g", "!boom"), []string{"Something went wrong. If the issue persists, please contact the author."}},
		{"perms", msg("user", "g", "!ban"), []string{"You're missing the following permissions to use this command: `Manage Server, Ban Members`"}},
		{"owner-only", msg("user", "g", "!secret"), nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, nil, flags{})
			f.d.OnMessage(context.Background(), c.msg)
			if diff := cmp.Diff(c.want, f.out.texts()); diff != "" {
				t.Errorf("wrong responses (+got/-want):\n%s", diff)
			}
			for _, m := range f.out.sent {
				if m.To != "c" {
					t.Errorf("response sent to %q", m.To)
				}
			}
		})
	}
}

func TestCooldownNonVIP(t *testing.T) {
	f := newFixture(t, nil, flags{})
	f.d.OnMessage(context.Background(), msg("user", "g", "!slow"))
	f.d.OnMessage(context.Background(), msg("user", "g", "!slow"))
	if got := f.count("slow"); got != 1 {
		t.Errorf("invoked %d times", got)
	}
	s := f.out.texts()
	if len(s) != 1 {
		t.Fatalf("wrong number of responses: %q", s)
	}
	if !strings.HasPrefix(s[0], "You cannot use this command again for the next ") || !strings.HasSuffix(s[0], " seconds") {
		t.Errorf("wrong cooldown message %q", s[0])
	}
	// 3599.99 or 3600.00 depending on timing; always two decimals.
	n := strings.TrimSuffix(strings.TrimPrefix(s[0], "You cannot use this command again for the next "), " seconds")
	if k := strings.IndexByte(n, '.'); k < 0 || len(n)-k-1 != 2 {
		t.Errorf("retry time %q not formatted to two decimals", n)
	}
}

func TestCooldownVIP(t *testing.T) {
	f := newFixture(t, nil, flags{"vip/vip": true})
	f.d.OnMessage(context.Background(), msg("vip", "g", "!slow a b"))
	f.d.OnMessage(context.Background(), msg("vip", "g", "!slow a b"))
	if got := f.count("slow"); got != 2 {
		t.Errorf("VIP invoked %d times", got)
	}
	if len(f.out.sent) != 0 {
		t.Errorf("VIP got responses: %q", f.out.texts())
	}
	want := [][]string{{"a", "b"}, {"a", "b"}}
	if diff := cmp.Diff(want, f.args); diff != "" {
		t.Errorf("wrong args (+got/-want):\n%s", diff)
	}
}

func TestCooldownVIPLookupFailure(t *testing.T) {
	f := newFixture(t, nil, flags{"broken/vip": true})
	f.d.OnMessage(context.Background(), msg("broken", "g", "!slow"))
	f.d.OnMessage(context.Background(), msg("broken", "g", "!slow"))
	if got := f.count("slow"); got != 1 {
		t.Errorf("invoked %d times", got)
	}
	if len(f.out.sent) != 1 {
		t.Errorf("wrong responses: %q", f.out.texts())
	}
}

func TestResetCooldownOnError(t *testing.T) {
	f := newFixture(t, nil, flags{})
	reg := f.d.Registry
	cmd := &command.Command{Name: "limited", Args: 1, GuildOnly: true, Cooldown: command.NewCooldown(1, time.Hour), Func: func(context.Context, *command.Context) error { return nil }}
	if err := reg.Add("more", cmd); err != nil {
		t.Fatal(err)
	}
	// Missing argument consumes the cooldown, then the translator resets it.
	f.d.OnMessage(context.Background(), msg("user", "g", "!limited"))
	if d := cmd.Cooldown.Take("user", time.Now()); d != 0 {
		t.Errorf("cooldown not reset after missing argument: %v", d)
	}
}

func TestNonCommandError(t *testing.T) {
	f := newFixture(t, nil, flags{})
	call := f.d.Registry.Context(msg("user", "g", "!ping"), []string{"!"}, f.out)
	f.d.Errors.Handle(context.Background(), call, errors.New("not a command error"))
	f.d.Errors.Handle(context.Background(), call, &command.Error{Kind: command.Kind(99)})
	if len(f.out.sent) != 0 {
		t.Errorf("unrecognized errors sent %q", f.out.texts())
	}
}

func TestHumanize(t *testing.T) {
	cases := map[string]string{
		"manage_guild":         "Manage Server",
		"ban_members":          "Ban Members",
		"administrator":        "Administrator",
		"read_message_history": "Read Message History",
	}
	for in, want := range cases {
		if got := dispatch.Humanize(in); got != want {
			t.Errorf("Humanize(%q): want %q, got %q", in, want, got)
		}
	}
}

func TestState(t *testing.T) {
	s := dispatch.NewState("o")
	if !s.Available() {
		t.Error("new state unavailable")
	}
	if got := s.Toggle(); got {
		t.Error("toggle reported available")
	}
	if s.Available() {
		t.Error("toggle didn't make unavailable")
	}
	if got := s.Toggle(); !got {
		t.Error("second toggle reported unavailable")
	}
	if !s.IsOwner("o") || s.IsOwner("x") {
		t.Error("wrong owner check")
	}
	if dispatch.NewState("").IsOwner("") {
		t.Error("empty owner matched")
	}
}

var _ prefix.Resolver = prefixes(nil)
