package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPrettyHandler_PlainOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}, false))

	log.Info("http.request",
		"method", "post",
		"path", "/play/session_init",
		"status", 200,
		"status_class", "2xx",
		"duration_ms", int64(12),
		"user_agent", "curl/8.0 (x86_64)",
	)

	line := buf.String()
	require.True(t, strings.HasSuffix(line, "\n"))
	require.Contains(t, line, "lvl=[INFO]")
	require.Contains(t, line, "msg=http.request")
	require.Contains(t, line, "method=POST")
	require.Contains(t, line, "path=/play/session_init")
	require.Contains(t, line, "status=200")
	require.Contains(t, line, "class=2xx")
	require.Contains(t, line, "duration=12ms")
	require.Contains(t, line, `user_agent="curl/8.0 (x86_64)"`)
	require.NotContains(t, line, "\x1b[")
}

func TestPrettyHandler_LevelFilter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}, false))

	log.Info("dropped")
	require.Zero(t, buf.Len())

	log.Warn("kept")
	require.Contains(t, buf.String(), "lvl=[WARN]")
}

func TestPrettyHandler_GroupsAndAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, nil, false)).WithGroup("sweep")

	log.Info("session.sweep.done", "deleted", 3, slog.Group("cfg", "interval", time.Minute))

	line := buf.String()
	require.Contains(t, line, "sweep.deleted=3")
	require.Contains(t, line, "sweep.cfg.interval=1m0s")
}

func TestPrettyHandler_Colorized(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, nil, true))

	log.Error("play.init.store.fail", "status", 503, "result", "ErrorUnexpected")

	line := buf.String()
	require.Contains(t, line, ansiRed+"[ERROR]"+ansiReset)
	require.Contains(t, line, "\x1b[")
}

func TestQuoteIfNeeded(t *testing.T) {
	t.Parallel()

	require.Equal(t, `""`, quoteIfNeeded(""))
	require.Equal(t, "plain", quoteIfNeeded("plain"))
	require.Equal(t, `"a b"`, quoteIfNeeded("a b"))
	require.Equal(t, `"k=v"`, quoteIfNeeded("k=v"))
}

func TestShortIdentity(t *testing.T) {
	t.Parallel()

	require.Equal(t, "short", shortIdentity("short"))
	require.Equal(t, "0x52908…b7d1", shortIdentity("0x52908400098527886E0F7030069857D2E4169EE7b7d1"))
}
