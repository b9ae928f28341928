package eventlog

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestFileSinkRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chaff.log")

	sink, err := NewFileSink(path, "run-1234", zerolog.Nop())
	assert.NoError(t, err)

	sink.Record("dns_query", "8.8.8.8", "qtype=A name=abc.example.org")
	sink.Record("tcp_connect", "10.0.0.1:4444", "refused")
	assert.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	assert.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "run-1234")
	assert.Contains(t, lines[0], "dns_query")
	assert.Contains(t, lines[0], "8.8.8.8")
	assert.Contains(t, lines[1], "tcp_connect")

	// First field must parse as an RFC3339 timestamp.
	ts := strings.TrimSpace(strings.Split(lines[0], "|")[0])
	_, err = time.Parse(time.RFC3339, ts)
	assert.NoError(t, err)
}

func TestFileSinkConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chaff.log")

	sink, err := NewFileSink(path, "run-1234", zerolog.Nop())
	assert.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				sink.Record("udp_send", "192.168.1.5:5353", "payload=32B")
			}
		}()
	}
	wg.Wait()
	assert.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	assert.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 400)
	for _, line := range lines {
		// No interleaved partial lines: every line has the full field count.
		assert.Equal(t, 5, len(strings.Split(line, "|")), "malformed line: %q", line)
	}
}

func TestFileSinkReopensAfterRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chaff.log")

	sink, err := NewFileSink(path, "run-1234", zerolog.Nop())
	assert.NoError(t, err)
	defer sink.Close()

	sink.Record("dns_query", "8.8.8.8", "before rotation")

	// Simulate logrotate: move the file aside.
	assert.NoError(t, os.Rename(path, path+".1"))

	// Give the watcher a moment to observe the rename and reopen.
	assert.Eventually(t, func() bool {
		sink.Record("dns_query", "8.8.8.8", "after rotation")
		data, err := os.ReadFile(path)
		return err == nil && strings.Contains(string(data), "after rotation")
	}, 2*time.Second, 50*time.Millisecond)
}

func TestMemorySink(t *testing.T) {
	sink := NewMemorySink()
	sink.Record("dns_query", "8.8.8.8", "qtype=TXT")
	sink.Record("dns_query", "1.1.1.1", "qtype=A")
	sink.Record("http_beacon", "10.0.0.1:8080", "path=/x")

	assert.Equal(t, 2, sink.CountKind("dns_query"))
	assert.Equal(t, 1, sink.CountKind("http_beacon"))
	assert.Len(t, sink.Entries(), 3)
}
