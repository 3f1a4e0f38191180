package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
)

// RepairStats records what was done to make a model response parseable
type RepairStats struct {
	OriginalBytes int           `json:"original_bytes"`
	RepairedBytes int           `json:"repaired_bytes"`
	CommentsLost  int           `json:"comments_lost"`
	Strategies    []string      `json:"strategies"`
	Duration      time.Duration `json:"duration"`
	Repaired      bool          `json:"repaired"`
}

var (
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	blockComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// RepairJSON makes malformed model output parseable.
// Cheap structural fixes run first; anything still broken goes through jsonrepair.
func RepairJSON(raw string) (string, RepairStats, error) {
	start := time.Now()
	stats := RepairStats{OriginalBytes: len(raw)}

	done := func(out string, err error) (string, RepairStats, error) {
		stats.RepairedBytes = len(out)
		stats.Duration = time.Since(start)
		return out, stats, err
	}

	if json.Valid([]byte(raw)) {
		return done(raw, nil)
	}
	stats.Repaired = true
	out := raw

	if strings.Contains(out, "//") || strings.Contains(out, "/*") {
		var n int
		out, n = stripComments(out)
		if n > 0 {
			stats.CommentsLost = n
			stats.Strategies = append(stats.Strategies, "comments_removed")
		}
	}

	if trailingComma.MatchString(out) {
		out = trailingComma.ReplaceAllString(out, "$1")
		stats.Strategies = append(stats.Strategies, "trailing_commas")
	}

	if closed := closeOpenStructures(out); closed != out {
		out = closed
		stats.Strategies = append(stats.Strategies, "completion")
	}

	if json.Valid([]byte(out)) {
		return done(out, nil)
	}

	fixed, err := jsonrepair.JSONRepair(out)
	if err == nil && json.Valid([]byte(fixed)) {
		stats.Strategies = append(stats.Strategies, "jsonrepair_library")
		return done(fixed, nil)
	}

	return done(out, fmt.Errorf("json repair failed after %d strategies", len(stats.Strategies)))
}

// stripComments drops // line comments and /* */ blocks that sit outside string literals
func stripComments(s string) (string, int) {
	removed := 0

	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		if idx := lineCommentIndex(line); idx >= 0 {
			line = line[:idx]
			removed++
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	out := strings.TrimSuffix(b.String(), "\n")

	removed += len(blockComment.FindAllStringIndex(out, -1))
	return blockComment.ReplaceAllString(out, ""), removed
}

func lineCommentIndex(line string) int {
	inString := false
	for i := 0; i < len(line)-1; i++ {
		switch line[i] {
		case '\\':
			if inString {
				i++
			}
		case '"':
			inString = !inString
		case '/':
			if !inString && line[i+1] == '/' {
				return i
			}
		}
	}
	return -1
}

// closeOpenStructures appends the closers for any object or array left open by a truncated response
func closeOpenStructures(s string) string {
	var stack []byte
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	out := strings.TrimSpace(s)
	if inString {
		out += `"`
	}
	for i := len(stack) - 1; i >= 0; i-- {
		out += string(stack[i])
	}
	if out == strings.TrimSpace(s) {
		return s
	}
	return out
}
