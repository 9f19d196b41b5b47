package commands

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
	"github.com/vercel-eddie/deploy-check/pkg/greeter"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}

func TestNewLoggerTrimsSource(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, slog.LevelInfo).Info("hello")

	out := buf.String()
	assert.Contains(t, out, "msg=hello")
	assert.Contains(t, out, "source=commands/commands_test.go:")
	assert.NotContains(t, out, string(os.PathSeparator)+"commands"+string(os.PathSeparator)+"commands_test.go")
}

// resolvedPort runs the root command with args and returns the port the
// server would bind to, without starting it.
func resolvedPort(t *testing.T, args ...string) string {
	t.Helper()
	keepDefaultLogger(t)

	var got string
	root := Root("test")
	root.ErrWriter = io.Discard
	capture := func(ctx context.Context, c *cli.Command) error {
		got = greeter.NewServer(greeter.Config{Port: c.String("port")}).Port()
		return nil
	}
	root.Action = capture
	for _, sub := range root.Commands {
		sub.Action = capture
	}

	require.NoError(t, root.Run(context.Background(), append([]string{"deploy-check"}, args...)))
	return got
}

func keepDefaultLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func unsetEnv(t *testing.T, key string) {
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestPortResolution(t *testing.T) {
	t.Run("unset", func(t *testing.T) {
		unsetEnv(t, "PORT")
		assert.Equal(t, "3000", resolvedPort(t))
		assert.Equal(t, "3000", resolvedPort(t, "serve"))
	})

	t.Run("empty", func(t *testing.T) {
		t.Setenv("PORT", "")
		assert.Equal(t, "3000", resolvedPort(t))
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("PORT", "8080")
		assert.Equal(t, "8080", resolvedPort(t))
		assert.Equal(t, "8080", resolvedPort(t, "serve"))
	})

	t.Run("flag beats env", func(t *testing.T) {
		t.Setenv("PORT", "8080")
		assert.Equal(t, "9090", resolvedPort(t, "--port", "9090"))
	})
}

// lockedBuffer collects log output written from server goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func freePort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	_, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return port
}

func TestServeFromEnv(t *testing.T) {
	keepDefaultLogger(t)
	port := freePort(t)
	t.Setenv("PORT", port)
	unsetEnv(t, "LOG_LEVEL")

	var logs lockedBuffer
	root := Root("test")
	root.ErrWriter = &logs

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- root.Run(ctx, []string{"deploy-check", "serve"})
	}()

	url := "http://127.0.0.1:" + port + "/"
	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil || resp.StatusCode != http.StatusOK {
			return false
		}
		body = string(b)
		return true
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, greeter.Greeting, body)

	out := logs.String()
	assert.Equal(t, 1, strings.Count(out, "App running on port "+port))
	assert.NotContains(t, out, "request completed")

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServeBindFailure(t *testing.T) {
	keepDefaultLogger(t)
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()
	_, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)

	root := Root("test")
	root.ErrWriter = io.Discard

	err = root.Run(context.Background(), []string{"deploy-check", "--port", port})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen on port "+port)
}
