package llm

import (
	"context"
	"fmt"
	"log"
	"strings"

	"sprintreport/internal/domain"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const summarySystemPrompt = `You write short sprint status notes for engineering managers.
You receive story-point totals per team, split into Not Started, Started and Done.
Write at most four sentences of plain text. Mention which teams are ahead or behind,
call out unestimated issues if any are listed, and compare with the previous snapshot
when one is given. Do not invent numbers that are not in the input.`

type SummaryInput struct {
	Sprint      domain.Sprint
	Choice      string
	Rows        []domain.ReportRow
	Previous    []domain.ReportRow // rows of the last stored run for the same sprint
	Unestimated []string
}

type LLMUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// Summarizer turns report rows into a short narrative using the Anthropic
// Messages API.
type Summarizer struct {
	client anthropic.Client
	model  string
}

func NewSummarizer(apiKey, model string, opts ...option.RequestOption) *Summarizer {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Summarizer{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

func (s *Summarizer) Summarize(ctx context.Context, in SummaryInput) (string, LLMUsage, error) {
	message, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: 512,
		System: []anthropic.TextBlockParam{
			{Text: summarySystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildSummaryPrompt(in))),
		},
	})
	if err != nil {
		log.Printf("llm anthropic error: %v", err)
		return "", LLMUsage{}, fmt.Errorf("Anthropic API error: %w", err)
	}
	usage := LLMUsage{
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("llm summary size=%d tokens_in=%d tokens_out=%d", len(block.Text), usage.InputTokens, usage.OutputTokens)
			return strings.TrimSpace(block.Text), usage, nil
		}
	}
	return "", usage, fmt.Errorf("no text content in Anthropic response")
}

func BuildSummaryPrompt(in SummaryInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sprint: %s (%s sprint)\n", in.Sprint.Name, in.Choice)
	if !in.Sprint.StartDate.IsZero() && !in.Sprint.EndDate.IsZero() {
		fmt.Fprintf(&b, "Dates: %s to %s\n", in.Sprint.StartDate.Format("2006-01-02"), in.Sprint.EndDate.Format("2006-01-02"))
	}
	if goal := strings.TrimSpace(in.Sprint.Goal); goal != "" {
		fmt.Fprintf(&b, "Goal: %s\n", goal)
	}

	b.WriteString("\nCurrent totals (label | total | not started | started | done):\n")
	writeRows(&b, in.Rows)

	if len(in.Previous) > 0 {
		b.WriteString("\nPrevious snapshot of the same sprint:\n")
		writeRows(&b, in.Previous)
	}
	if len(in.Unestimated) > 0 {
		fmt.Fprintf(&b, "\nUnestimated issues (%d): %s\n", len(in.Unestimated), strings.Join(in.Unestimated, ", "))
	}
	return b.String()
}

func writeRows(b *strings.Builder, rows []domain.ReportRow) {
	if len(rows) == 0 {
		b.WriteString("- (none)\n")
		return
	}
	for _, r := range rows {
		fmt.Fprintf(b, "- %s | %g | %g | %g | %g\n", r.Label, r.Points, r.NotStarted, r.Started, r.Done)
	}
}
