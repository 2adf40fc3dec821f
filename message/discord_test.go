package message_test

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"

	"github.com/zephyrtronium/toothy/message"
)

func TestFromDiscord(t *testing.T) {
	ts := time.UnixMilli(1662882968379)
	cases := []struct {
		name  string
		msg   *discordgo.Message
		perms int64
		want  *message.Received
	}{
		{
			name: "guild",
			msg: &discordgo.Message{
				ID:        "1",
				ChannelID: "2",
				GuildID:   "3",
				Content:   "!ping",
				Timestamp: ts,
				Author:    &discordgo.User{ID: "4", Username: "bocchi"},
			},
			perms: 1 << 5,
			want: &message.Received{
				ID:          "1",
				Sender:      "4",
				Name:        "bocchi",
				Guild:       "3",
				Channel:     "2",
				Text:        "!ping",
				Timestamp:   1662882968379,
				Permissions: 1 << 5,
			},
		},
		{
			name: "nick",
			msg: &discordgo.Message{
				ID:        "1",
				ChannelID: "2",
				GuildID:   "3",
				Content:   "!ping",
				Timestamp: ts,
				Author:    &discordgo.User{ID: "4", Username: "ryou", GlobalName: "Ryou"},
				Member:    &discordgo.Member{Nick: "bassist"},
			},
			want: &message.Received{
				ID:        "1",
				Sender:    "4",
				Name:      "bassist",
				Guild:     "3",
				Channel:   "2",
				Text:      "!ping",
				Timestamp: 1662882968379,
			},
		},
		{
			name: "dm",
			msg: &discordgo.Message{
				ID:        "1",
				ChannelID: "2",
				Content:   "hello",
				Timestamp: ts,
				Author:    &discordgo.User{ID: "4", Username: "kita", GlobalName: "Kita"},
			},
			perms: 1 << 5,
			want: &message.Received{
				ID:        "1",
				Sender:    "4",
				Name:      "Kita",
				Channel:   "2",
				Text:      "hello",
				Timestamp: 1662882968379,
			},
		},
		{
			name: "bot",
			msg: &discordgo.Message{
				ID:        "1",
				ChannelID: "2",
				GuildID:   "3",
				Content:   "beep",
				Timestamp: ts,
				Author:    &discordgo.User{ID: "5", Username: "nightbot", Bot: true},
			},
			want: &message.Received{
				ID:        "1",
				Sender:    "5",
				Name:      "nightbot",
				Bot:       true,
				Guild:     "3",
				Channel:   "2",
				Text:      "beep",
				Timestamp: 1662882968379,
			},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := message.FromDiscord(c.msg, c.perms)
			if diff := cmp.Diff(c.want, got); diff != "" {
				t.Errorf("wrong message (-want +got):\n%s", diff)
			}
			if !got.Time().Equal(ts) {
				t.Errorf("wrong time: want %v, got %v", ts, got.Time())
			}
			if got.Private() != (c.want.Guild == "") {
				t.Errorf("wrong privacy: %t", got.Private())
			}
		})
	}
}

func TestToDiscord(t *testing.T) {
	cases := []struct {
		name string
		msg  message.Sent
		ref  *discordgo.MessageReference
	}{
		{
			name: "plain",
			msg:  message.Format("", "2", "hello %s", "world"),
		},
		{
			name: "reply",
			msg:  message.Format("1", "2", "pong"),
			ref:  &discordgo.MessageReference{MessageID: "1", ChannelID: "2"},
		},
		{
			name: "color",
			msg:  message.Sent{To: "2", Text: "about", Color: 0x1abc9c},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := message.ToDiscord(c.msg)
			if c.msg.Color != 0 {
				if got.Content != "" || len(got.Embeds) != 1 {
					t.Fatalf("colored message is not an embed: %+v", got)
				}
				if got.Embeds[0].Description != c.msg.Text || got.Embeds[0].Color != c.msg.Color {
					t.Errorf("wrong embed: want %q in %#x, got %+v", c.msg.Text, c.msg.Color, got.Embeds[0])
				}
			} else if got.Content != c.msg.Text {
				t.Errorf("wrong content: want %q, got %q", c.msg.Text, got.Content)
			}
			if diff := cmp.Diff(c.ref, got.Reference); diff != "" {
				t.Errorf("wrong reference (-want +got):\n%s", diff)
			}
			if got.AllowedMentions == nil || len(got.AllowedMentions.Parse) != 0 {
				t.Errorf("mentions allowed: %+v", got.AllowedMentions)
			}
		})
	}
}
