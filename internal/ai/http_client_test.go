package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
		{"unterminated fence", "```json\n{\"a\":1}", `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, StripCodeFences(tc.in))
		})
	}
}

func TestAggregateStreamedResponse(t *testing.T) {
	body := `{"model":"mistral","response":"Hello","done":false}
{"model":"mistral","response":" world","done":false}
not-json-noise
{"model":"mistral","response":"!","done":true}`

	require.Equal(t, "Hello world!", aggregateStreamedResponse(body))
}
