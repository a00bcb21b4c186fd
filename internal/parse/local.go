package parse

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"remind/internal/schema"
)

// Local is a rule-based parser. It recognizes English time expressions
// ("tomorrow at 9am", "in 2 hours") without any network dependency.
type Local struct {
	w      *when.Parser
	logger *log.Logger

	// now is replaceable for tests.
	now func() time.Time
}

// NewLocal creates a rule-based parser.
//
// If logger is nil, a default logger writing to stderr is used.
func NewLocal(logger *log.Logger) *Local {
	if logger == nil {
		logger = log.New(os.Stderr, "[parse] ", log.LstdFlags)
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Local{w: w, logger: logger, now: time.Now}
}

// Parse implements Parser.Parse.
func (l *Local) Parse(ctx context.Context, text, timezone string) (*schema.Draft, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
		timezone = "UTC"
	}
	now := l.now().In(loc)

	r, err := l.w.Parse(text, now)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return &schema.Draft{
			Success: false,
			Error:   "no time expression found in the request",
		}, nil
	}

	title := extractTitle(text, r.Index, r.Index+len(r.Text))
	if title == "" {
		return &schema.Draft{
			Success: false,
			Error:   "request contains a time but nothing to be reminded of",
		}, nil
	}

	return &schema.Draft{
		Title:        title,
		TriggerAtISO: r.Time.Format(time.RFC3339),
		Timezone:     timezone,
		Success:      true,
	}, nil
}

// leadIns are conversational prefixes that carry no content.
var leadIns = []string{
	"remind me to ",
	"remind me ",
	"reminder to ",
	"reminder: ",
	"to ",
}

// extractTitle removes the matched time fragment from the request and
// normalizes what remains into a title.
func extractTitle(text string, from, to int) string {
	rest := text[:from] + " " + text[to:]
	rest = strings.Join(strings.Fields(rest), " ")
	rest = strings.Trim(rest, " ,.-")

	lower := strings.ToLower(rest)
	for _, lead := range leadIns {
		if strings.HasPrefix(lower, lead) {
			rest = rest[len(lead):]
			break
		}
	}

	// A dangling preposition is left over when the time fragment sat at
	// the end ("call mom at 5pm" -> "call mom at").
	for _, tail := range []string{" at", " on", " in", " by"} {
		rest = strings.TrimSuffix(rest, tail)
	}
	return strings.TrimSpace(rest)
}

var _ Parser = (*Local)(nil)
