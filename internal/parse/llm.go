package parse

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"remind/internal/schema"
)

// DefaultModel is used when the configuration does not name one.
const DefaultModel = "claude-sonnet-4-5"

const systemPrompt = `You are a precise JSON parser for reminder requests.

Rules:
- "tomorrow" always means the next calendar day, never today's early morning.
- "tonight" means today's date if still evening, otherwise tomorrow.
- The trigger datetime must be after the current time; if ambiguous, choose
  the next future occurrence.

Return ONLY a JSON object, nothing else.

Success format:
{"title": "Brief title", "notes": "Additional details if any",
 "trigger_at_iso": "RFC 3339 datetime in the future",
 "timezone": "the user's timezone", "success": true}

Error format:
{"success": false, "error": "Reason why parsing failed"}`

// LLM parses requests with a language model and falls back to the
// rule-based parser when the model is unreachable or returns garbage.
type LLM struct {
	client   anthropic.Client
	model    anthropic.Model
	fallback Parser
	logger   *log.Logger

	// now is replaceable for tests.
	now func() time.Time
}

// NewLLM creates a model-backed parser. fallback may be nil, in which case
// model failures surface as errors.
//
// If logger is nil, a default logger writing to stderr is used.
func NewLLM(apiKey, model string, fallback Parser, logger *log.Logger) *LLM {
	if logger == nil {
		logger = log.New(os.Stderr, "[parse] ", log.LstdFlags)
	}
	if model == "" {
		model = DefaultModel
	}
	return &LLM{
		client:   anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:    anthropic.Model(model),
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// Parse implements Parser.Parse.
func (l *LLM) Parse(ctx context.Context, text, timezone string) (*schema.Draft, error) {
	draft, err := l.parseWithModel(ctx, text, timezone)
	if err != nil {
		if l.fallback == nil {
			return nil, err
		}
		l.logger.Printf("WARNING: model parse failed, using rule-based fallback: %v", err)
		return l.fallback.Parse(ctx, text, timezone)
	}
	return draft, nil
}

func (l *LLM) parseWithModel(ctx context.Context, text, timezone string) (*schema.Draft, error) {
	now := l.now()
	userContext := fmt.Sprintf(
		"Timezone: %s\nCurrent UTC time: %s\nCurrent day: %s\n\nRequest: %q",
		timezone,
		now.UTC().Format(time.RFC3339),
		now.UTC().Weekday(),
		text,
	)

	msg, err := l.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     l.model,
		MaxTokens: 1024,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userContext)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("model request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		sb.WriteString(block.Text)
	}

	draft, err := decodeDraft(sb.String())
	if err != nil {
		return nil, err
	}
	if draft.Timezone == "" {
		draft.Timezone = timezone
	}
	return draft, nil
}

// decodeDraft parses the model's JSON reply, tolerating markdown code
// fences around it.
func decodeDraft(reply string) (*schema.Draft, error) {
	cleaned := strings.TrimSpace(reply)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var draft schema.Draft
	if err := json.Unmarshal([]byte(cleaned), &draft); err != nil {
		return nil, fmt.Errorf("model reply is not valid JSON: %w", err)
	}
	return &draft, nil
}

var _ Parser = (*LLM)(nil)
