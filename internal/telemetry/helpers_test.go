package telemetry_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// observeInto enables emission into a fresh directory and returns it.
func observeInto(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CHATMEM_OBSERVE_JSON", "1")
	t.Setenv("CHATMEM_OBSERVE_DIR", dir)
	return dir
}

// readEvents decodes every line of dir/events.jsonl.
func readEvents(t *testing.T, dir string) []map[string]any {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatalf("open events: %v", err)
	}
	defer f.Close()

	var out []map[string]any
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, m)
	}
	if err := s.Err(); err != nil {
		t.Fatalf("scan events: %v", err)
	}
	return out
}
