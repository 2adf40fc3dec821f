package message

import (
	"fmt"
	"strings"
	"time"
)

// Received is a message received from the chat service.
type Received struct {
	// ID is the unique ID of the message.
	ID string
	// Sender is the user ID of the message author.
	Sender string
	// Name is the display name of the message author.
	Name string
	// Bot indicates whether the author is an automated account.
	Bot bool
	// Guild is the ID of the guild where the message was sent.
	// It is empty for direct messages.
	Guild string
	// Channel is the ID of the channel where the message was sent.
	Channel string
	// Text is the text of the message.
	Text string
	// Timestamp is the timestamp of the message as milliseconds since the
	// Unix epoch.
	Timestamp int64
	// Permissions is the author's permission bits in the channel.
	// It is zero for direct messages.
	Permissions int64
}

// Time returns the time the message was sent.
func (m *Received) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// Private reports whether the message was sent outside of any guild.
func (m *Received) Private() bool {
	return m.Guild == ""
}

// Sent is a message to be sent to the chat service.
type Sent struct {
	// Reply is a message to reply to. If empty, the message is not interpreted
	// as a reply.
	Reply string
	// To is the channel to which the message is sent.
	To string
	// Text is the message text.
	Text string
	// Color, if not zero, sends the text as an embed with this accent color
	// given as 0xRRGGBB.
	Color int
}

// formatString is a type to prevent misuse of format strings passed to [Format].
type formatString string

// Format constructs a message to send from a format string literal and
// formatting arguments.
func Format(reply, to string, f formatString, args ...any) Sent {
	return Sent{
		Reply: reply,
		To:    to,
		Text:  strings.TrimSpace(fmt.Sprintf(string(f), args...)),
	}
}
