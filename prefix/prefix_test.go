package prefix_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zephyrtronium/toothy/message"
	"github.com/zephyrtronium/toothy/prefix"
)

type source map[string][]string

func (s source) GuildPrefixes(ctx context.Context, guild string) ([]string, error) {
	if guild == "broken" {
		return nil, errors.New("broken")
	}
	return s[guild], nil
}

func TestResolve(t *testing.T) {
	global := []string{"!", "?"}
	src := source{
		"override": {"$", "toothy "},
		"empty":    {},
		"blanks":   {"", "%"},
	}
	cases := []struct {
		name  string
		guild string
		want  []string
	}{
		{
			name:  "none",
			guild: "none",
			want:  []string{"!", "?", "<@!bot> ", "<@bot> "},
		},
		{
			name:  "override",
			guild: "override",
			want:  []string{"$", "toothy ", "<@!bot> ", "<@bot> "},
		},
		{
			name:  "empty",
			guild: "empty",
			want:  []string{"!", "?", "<@!bot> ", "<@bot> "},
		},
		{
			name:  "blanks",
			guild: "blanks",
			want:  []string{"%", "<@!bot> ", "<@bot> "},
		},
		{
			name:  "dm",
			guild: "",
			want:  []string{"!", "?", "<@!bot> ", "<@bot> "},
		},
		{
			name:  "broken",
			guild: "broken",
			want:  []string{"!", "?", "<@!bot> ", "<@bot> "},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			r := prefix.Guild{
				Source: src,
				Global: func() []string { return global },
				Me:     "bot",
				Log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
			}
			msg := message.Received{ID: "1", Sender: "2", Guild: c.guild, Channel: "3", Text: "!ping"}
			got := r.Resolve(context.Background(), &msg)
			if diff := cmp.Diff(c.want, got); diff != "" {
				t.Errorf("wrong prefixes (+got/-want):\n%s", diff)
			}
		})
	}
}

func TestResolveFresh(t *testing.T) {
	global := []string{"!"}
	src := source{"override": {"$"}}
	r := prefix.Guild{
		Source: src,
		Global: func() []string { return global },
		Me:     "bot",
		Log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, guild := range []string{"", "override"} {
		msg := message.Received{Guild: guild}
		p := r.Resolve(context.Background(), &msg)
		for i := range p {
			p[i] = "x"
		}
	}
	if diff := cmp.Diff([]string{"!"}, global); diff != "" {
		t.Errorf("global prefixes modified:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"$"}, src["override"]); diff != "" {
		t.Errorf("guild prefixes modified:\n%s", diff)
	}
}

func TestResolveNoGlobal(t *testing.T) {
	r := prefix.Guild{Me: "bot"}
	msg := message.Received{}
	got := r.Resolve(context.Background(), &msg)
	if len(got) == 0 {
		t.Fatal("no prefixes")
	}
	if diff := cmp.Diff(prefix.Mentions("bot"), got); diff != "" {
		t.Errorf("wrong prefixes (+got/-want):\n%s", diff)
	}
}
