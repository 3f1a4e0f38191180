package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type offerPayload struct {
	Offer   float64 `json:"offer"`
	Message string  `json:"message"`
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"offer": 1}`, `{"offer": 1}`},
		{"prose around", `Sure! {"offer": 1, "message": "hi"} Thanks.`, `{"offer": 1, "message": "hi"}`},
		{"code fence", "```json\n{\"offer\": 1}\n```\nanything else", `{"offer": 1}`},
		{"braces inside strings", `x {"message": "a } b", "offer": 2} y`, `{"message": "a } b", "offer": 2}`},
		{"nothing", "no json here", ""},
		{"truncated", `{"offer": 1, "message": "abc`, `{"offer": 1, "message": "abc`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.in))
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Run("clean response", func(t *testing.T) {
		var p offerPayload
		stats, err := DecodeJSON(`{"offer": 950, "message": "Deal?"}`, &p)
		require.NoError(t, err)
		assert.False(t, stats.Repaired)
		assert.Equal(t, offerPayload{Offer: 950, Message: "Deal?"}, p)
	})

	t.Run("repaired response", func(t *testing.T) {
		var p offerPayload
		stats, err := DecodeJSON("Here you go:\n```json\n{\"offer\": 900, \"message\": \"Meet me\",}\n```", &p)
		require.NoError(t, err)
		assert.True(t, stats.Repaired)
		assert.Equal(t, 900.0, p.Offer)
	})

	t.Run("no json", func(t *testing.T) {
		var p offerPayload
		_, err := DecodeJSON("I refuse to answer", &p)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("wrong shape", func(t *testing.T) {
		var p offerPayload
		_, err := DecodeJSON(`{"offer": {"amount": 5}}`, &p)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})
}
