package telemetry_test

import (
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/petasbytes/chatmem/internal/telemetry"
)

func TestEmit_Gating(t *testing.T) {
	// Run in a subprocess so startup-evaluated telemetry config sees CHATMEM_OBSERVE_JSON=0.
	tmpDir := t.TempDir()
	cmd := exec.Command(os.Args[0], "-test.run=TestEmitGatingProbe")
	cmd.Env = append(os.Environ(),
		"GO_WANT_HELPER_PROCESS=1",
		"CHATMEM_OBSERVE_JSON=0",
		"CHATMEM_OBSERVE_DIR="+tmpDir,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("subprocess error: %v\n%s", err, string(out))
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "events.jsonl")); !os.IsNotExist(err) {
		t.Fatalf("expected no events file with observe=0, got err=%v", err)
	}
}

func TestEmitGatingProbe(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	telemetry.Emit("test_event", map[string]any{"foo": "bar"})
}

func TestDir_Default(t *testing.T) {
	t.Setenv("CHATMEM_OBSERVE_DIR", "")
	if got := telemetry.Dir(); got != ".chatmem" {
		t.Fatalf("want .chatmem, got %q", got)
	}
}

func TestEmit_HappyPath(t *testing.T) {
	dir := observeInto(t)

	telemetry.Emit("test_event", map[string]any{"foo": "bar", "num": 42})

	events := readEvents(t, dir)
	if len(events) != 1 {
		t.Fatalf("expected 1 line, got %d", len(events))
	}
	ev := events[0]
	if ev["event"] != "test_event" || ev["foo"] != "bar" || ev["num"] != float64(42) {
		t.Fatalf("unexpected event: %#v", ev)
	}
	ts, ok := ev["time"].(string)
	if !ok {
		t.Fatal("expected time field as string")
	}
	if _, err := time.Parse(time.RFC3339Nano, ts); err != nil {
		t.Errorf("time field not valid RFC3339Nano: %v", err)
	}
}

func TestEmit_AppendsInOrder(t *testing.T) {
	dir := observeInto(t)

	for _, name := range []string{"event1", "event2", "event3"} {
		telemetry.Emit(name, nil)
	}

	events := readEvents(t, dir)
	if len(events) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(events))
	}
	for i, want := range []string{"event1", "event2", "event3"} {
		if events[i]["event"] != want {
			t.Errorf("line %d: expected %s, got %v", i+1, want, events[i]["event"])
		}
	}
	b, err := os.ReadFile(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if b[len(b)-1] != '\n' {
		t.Fatal("expected newline-terminated JSONL file")
	}
}

func TestEmit_CreatesNestedDir(t *testing.T) {
	base := filepath.Join(t.TempDir(), "dir with spaces", "nested")
	t.Setenv("CHATMEM_OBSERVE_JSON", "1")
	t.Setenv("CHATMEM_OBSERVE_DIR", base)

	telemetry.Emit("x", nil)

	if got := readEvents(t, base); len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
}

func TestEmit_MapIsolation(t *testing.T) {
	observeInto(t)

	fields := map[string]any{"key": "value"}
	telemetry.Emit("test", fields)

	if len(fields) != 1 || fields["key"] != "value" {
		t.Fatalf("caller map mutated: %#v", fields)
	}
}

func TestEmit_NilFields(t *testing.T) {
	dir := observeInto(t)

	telemetry.Emit("nil_fields", nil)

	ev := readEvents(t, dir)[0]
	if len(ev) != 2 || ev["event"] != "nil_fields" {
		t.Fatalf("expected exactly event and time, got %#v", ev)
	}
}

func TestEmit_MarshalErrorWritesNothing(t *testing.T) {
	dir := observeInto(t)

	// NaN cannot be marshaled by encoding/json.
	telemetry.Emit("bad", map[string]any{"x": math.NaN()})

	if _, err := os.Stat(filepath.Join(dir, "events.jsonl")); !os.IsNotExist(err) {
		t.Fatalf("expected no events file on marshal error, got err=%v", err)
	}
}

func TestEmit_ReadOnlyFileDoesNotPanic(t *testing.T) {
	dir := observeInto(t)
	path := filepath.Join(dir, "events.jsonl")
	if err := os.WriteFile(path, nil, 0o444); err != nil {
		t.Fatal(err)
	}

	telemetry.Emit("x", map[string]any{"a": 1})

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() != 0 && os.Geteuid() != 0 {
		t.Fatalf("expected read-only file to stay empty, got %d bytes", fi.Size())
	}
}
