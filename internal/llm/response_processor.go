package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrMalformedResponse is returned when a model response holds no usable JSON
var ErrMalformedResponse = errors.New("llm: malformed response")

// DecodeJSON extracts the JSON object from a model response, repairs it when needed and
// unmarshals it into target.
func DecodeJSON(raw string, target any) (RepairStats, error) {
	body := extractJSON(raw)
	if body == "" {
		log.Debug().Str("response", truncateForLog(raw, 200)).Msg("No JSON found in model response")
		return RepairStats{}, fmt.Errorf("%w: no JSON found", ErrMalformedResponse)
	}

	repaired, stats, err := RepairJSON(body)
	if stats.Repaired {
		log.Debug().
			Strs("strategies", stats.Strategies).
			Int("original_bytes", stats.OriginalBytes).
			Int("repaired_bytes", stats.RepairedBytes).
			Dur("duration", stats.Duration).
			Msg("Repaired model JSON")
	}
	if err != nil {
		return stats, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if err := json.Unmarshal([]byte(repaired), target); err != nil {
		log.Debug().Err(err).Str("json", truncateForLog(repaired, 500)).Msg("Model JSON did not match the expected shape")
		return stats, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return stats, nil
}

// extractJSON returns the first JSON object in a response that may wrap it in prose or code fences
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.Contains(raw, "```") {
		var inside []string
		inFence := false
		for _, line := range strings.Split(raw, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				if inFence {
					break
				}
				inFence = true
				continue
			}
			if inFence {
				inside = append(inside, line)
			}
		}
		if fenced := strings.TrimSpace(strings.Join(inside, "\n")); fenced != "" {
			raw = fenced
		}
	}

	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
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
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}

	// truncated; let the repair pass close it
	return raw[start:]
}

func truncateForLog(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}
