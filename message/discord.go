package message

import "github.com/bwmarrin/discordgo"

// FromDiscord adapts a Discord message. perms is the author's permission bits
// in the message's channel as computed from the session state.
func FromDiscord(m *discordgo.Message, perms int64) *Received {
	r := Received{
		ID:          m.ID,
		Guild:       m.GuildID,
		Channel:     m.ChannelID,
		Text:        m.Content,
		Timestamp:   m.Timestamp.UnixMilli(),
		Permissions: perms,
	}
	if m.Author != nil {
		r.Sender = m.Author.ID
		r.Name = displayName(m)
		r.Bot = m.Author.Bot
	}
	if r.Guild == "" {
		// Permissions only make sense in guild channels.
		r.Permissions = 0
	}
	return &r
}

func displayName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}

// ToDiscord creates a message to send to Discord. If msg.Reply is not empty,
// then the result is a reply to the message with that ID.
func ToDiscord(msg Sent) *discordgo.MessageSend {
	r := discordgo.MessageSend{
		Content: msg.Text,
		// Never let command output ping anyone.
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	if msg.Color != 0 {
		r.Content = ""
		r.Embeds = []*discordgo.MessageEmbed{{Description: msg.Text, Color: msg.Color}}
	}
	if msg.Reply != "" {
		r.Reference = &discordgo.MessageReference{
			MessageID: msg.Reply,
			ChannelID: msg.To,
		}
	}
	return &r
}
