package slackbot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/slack-go/slack"
)

// Poster publishes finished sprint reports to a Slack channel.
type Poster struct {
	api       *slack.Client
	channelID string
}

func NewPoster(token, channelID string, opts ...slack.Option) *Poster {
	return &Poster{
		api:       slack.New(token, opts...),
		channelID: channelID,
	}
}

// PostReport posts the rendered table as a code block, followed by an
// optional narrative.
func (p *Poster) PostReport(ctx context.Context, table, narrative string) error {
	text := FormatReportMessage(table, narrative)
	_, ts, err := p.api.PostMessageContext(ctx, p.channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("posting report to %s: %w", p.channelID, err)
	}
	log.Printf("slack report posted channel=%s ts=%s", p.channelID, ts)
	return nil
}

func FormatReportMessage(table, narrative string) string {
	var b strings.Builder
	b.WriteString("```\n")
	b.WriteString(strings.TrimRight(table, "\n"))
	b.WriteString("\n```")
	if n := strings.TrimSpace(narrative); n != "" {
		b.WriteString("\n")
		b.WriteString(n)
	}
	return b.String()
}
