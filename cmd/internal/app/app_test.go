package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRuntimeBaseURL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"127.0.0.1:8080":     "http://127.0.0.1:8080",
		"0.0.0.0:8080":       "http://127.0.0.1:8080",
		":8080":              "http://127.0.0.1:8080",
		"[::]:9090":          "http://127.0.0.1:9090",
		"[2001:db8::1]:9090": "http://[2001:db8::1]:9090",
		"play.internal:80":   "http://play.internal:80",
	}
	for in, want := range cases {
		require.Equal(t, want, runtimeBaseURL(in), in)
	}
}

func TestWSBaseURL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"http://127.0.0.1:8080":    "ws://127.0.0.1:8080",
		"https://play.example.com": "wss://play.example.com",
		"127.0.0.1:8080":           "ws://127.0.0.1:8080",
	}
	for in, want := range cases {
		require.Equal(t, want, wsBaseURL(in), in)
	}
}
