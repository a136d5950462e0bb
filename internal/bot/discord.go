package bot

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

// MaxMessageLength is Discord's per-message content limit in characters.
const MaxMessageLength = 2000

// messageSender is the subset of *discordgo.Session used by DiscordSink.
type messageSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordSink delivers messages through the Discord REST API. No gateway
// connection is opened.
type DiscordSink struct {
	session messageSender
}

// NewDiscordSink creates a REST session authenticated with a bot token.
func NewDiscordSink(token string) (*DiscordSink, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	return &DiscordSink{session: session}, nil
}

// NewDiscordSinkWithSender constructs a DiscordSink with a custom sender (for tests).
func NewDiscordSinkWithSender(s messageSender) *DiscordSink {
	return &DiscordSink{session: s}
}

// Send posts content to channelID, split into as many messages as the length
// limit requires.
func (d *DiscordSink) Send(ctx context.Context, channelID, content string) error {
	for i, chunk := range splitMessage(content, MaxMessageLength) {
		if _, err := d.session.ChannelMessageSend(channelID, chunk, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("discord message part %d: %w", i+1, err)
		}
	}
	return nil
}

// splitMessage breaks content into chunks of at most limit runes, cutting on
// line boundaries. A single line longer than limit is hard-split. Discord trims
// leading and trailing whitespace from a message, so blank lines that fall on a
// chunk edge are dropped and the message break separates the blocks instead.
// Blank lines inside a chunk are kept.
func splitMessage(content string, limit int) []string {
	if utf8.RuneCountInString(content) <= limit {
		return []string{content}
	}

	var chunks []string
	var lines []string
	size := 0

	flush := func() {
		if text := strings.Trim(strings.Join(lines, "\n"), "\n"); text != "" {
			chunks = append(chunks, text)
		}
		lines = nil
		size = 0
	}

	for _, line := range strings.Split(content, "\n") {
		n := utf8.RuneCountInString(line)

		if n > limit {
			flush()
			runes := []rune(line)
			for len(runes) > limit {
				chunks = append(chunks, string(runes[:limit]))
				runes = runes[limit:]
			}
			lines = []string{string(runes)}
			size = len(runes)
			continue
		}

		sep := 0
		if len(lines) > 0 {
			sep = 1
		}
		if size+sep+n > limit {
			flush()
			sep = 0
		}
		if len(lines) == 0 && n == 0 {
			continue
		}
		lines = append(lines, line)
		size += sep + n
	}
	flush()

	return chunks
}
