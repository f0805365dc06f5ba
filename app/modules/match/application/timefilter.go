package matchservice

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/en"
)

var sinceParser = newSinceParser()

func newSinceParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	return w
}

// ParseSince turns a since filter into an instant. It accepts RFC 3339
// timestamps, Go durations meaning "that long ago" ("90m") and English
// phrases ("5 pm", "yesterday"). An empty value yields the zero time.
func ParseSince(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("%w: negative duration %q", ErrInvalidSince, value)
		}
		return now.Add(-d).UTC(), nil
	}

	r, err := sinceParser.Parse(strings.ToLower(value), now)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidSince, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSince, value)
	}
	return r.Time.UTC(), nil
}
