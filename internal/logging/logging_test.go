package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/unkn0wn-root/feedcache"
	"github.com/unkn0wn-root/feedcache/internal/config"
)

func TestBackendsWriteJSONAndRespectLevel(t *testing.T) {
	for _, backend := range []string{"zap", "logrus", "slog"} {
		t.Run(backend, func(t *testing.T) {
			var buf bytes.Buffer
			l, sync, err := New(config.LogConfig{Backend: backend, Level: "warn"}, &buf, "test")
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			l.Info("dropped", feedcache.Fields{"a": 1})
			l.Warn("kept", feedcache.Fields{"key": "verified"})
			_ = sync()

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			if len(lines) != 1 {
				t.Fatalf("want 1 line, got %d: %q", len(lines), buf.String())
			}
			var m map[string]any
			if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
				t.Fatalf("not JSON: %v", err)
			}
			if m["msg"] != "kept" || m["key"] != "verified" {
				t.Fatalf("entry = %v", m)
			}
		})
	}
}

func TestUnknownBackend(t *testing.T) {
	if _, _, err := New(config.LogConfig{Backend: "glog"}, &bytes.Buffer{}, ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("debug") >= parseLevel("info") || parseLevel("WARNING") != parseLevel("warn") || parseLevel("?") != parseLevel("info") {
		t.Fatal("level parsing")
	}
}
