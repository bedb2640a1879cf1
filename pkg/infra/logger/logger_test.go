package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAsyncFileWriter_FlushesOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentinel.log")
	w, err := NewAsyncFileWriter(path, 1024)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		n, err := w.Write([]byte("line\n"))
		require.NoError(t, err)
		assert.Equal(t, 5, n)
	}
	w.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 10, strings.Count(string(data), "line\n"))
	assert.Zero(t, w.Dropped())
}

func TestAsyncConsoleHook_WritesEntries(t *testing.T) {
	out := &syncBuffer{}
	hook := newAsyncConsoleHook(out, 16)

	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.AddHook(hook)

	log.WithField("origin", "10.0.0.1").Warn("origin blocked")
	hook.Close()
	hook.Close()

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out.String())), &entry))
	assert.Equal(t, "origin blocked", entry["msg"])
	assert.Equal(t, "10.0.0.1", entry["origin"])
}

func TestParseLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	assert.Equal(t, logrus.DebugLevel, parseLevel(""))
	assert.Equal(t, logrus.WarnLevel, parseLevel("warn"))

	t.Setenv("LOG_LEVEL", "loud")
	assert.Equal(t, logrus.InfoLevel, parseLevel(""))
}

func TestNewLogger_ConsoleOnly(t *testing.T) {
	log, closer, err := NewLogger(Options{DisableFile: true, Level: "error"})
	require.NoError(t, err)
	defer closer()

	assert.Equal(t, logrus.ErrorLevel, log.GetLevel())
}
