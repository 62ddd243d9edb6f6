package windowing_test

import (
	"testing"

	"github.com/petasbytes/chatmem/memory"
	"github.com/petasbytes/chatmem/windowing"
)

func TestHeuristicCounter_RoundsUpAndAddsOverhead(t *testing.T) {
	h := windowing.HeuristicCounter{}
	// Derive per-entry overhead from an empty entry (0 runes => result equals overhead)
	overhead := h.CountEntry(memory.User(""))
	if overhead <= 0 {
		t.Fatalf("overhead must be positive, got %d", overhead)
	}

	cases := []struct {
		name    string
		content string
		want    int
	}{
		{"one rune", "a", 1 + overhead},
		{"exactly four", "abcd", 1 + overhead},
		{"five runes", "abcde", 2 + overhead},
		{"multibyte counted as runes", "héllö wörld!", 3 + overhead},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := h.CountEntry(memory.User(tc.content)); got != tc.want {
				t.Fatalf("got=%d want=%d", got, tc.want)
			}
		})
	}
}

func TestHeuristicCounter_OverheadGuard(t *testing.T) {
	// Budgets in configs and docs assume this value.
	if got := (windowing.HeuristicCounter{}).CountEntry(memory.User("")); got != 4 {
		t.Fatalf("per-entry overhead changed: got %d want 4", got)
	}
}

func TestHeuristicCounter_NeverZeroForContent(t *testing.T) {
	h := windowing.HeuristicCounter{}
	for _, s := range []string{"a", "ab", "世"} {
		if h.CountEntry(memory.Assistant(s)) == 0 {
			t.Fatalf("zero cost for %q", s)
		}
	}
}

func TestHeuristicCounter_CountSumsEntries(t *testing.T) {
	h := windowing.HeuristicCounter{}
	seq := []memory.Entry{memory.System("abcdefgh"), memory.User("a"), memory.Assistant("abcde")}
	overhead := h.CountEntry(memory.User(""))
	want := (2 + overhead) + (1 + overhead) + (2 + overhead)
	if got := h.Count(seq); got != want {
		t.Fatalf("got=%d want=%d", got, want)
	}
	if h.Count(nil) != 0 {
		t.Fatal("empty sequence should cost 0")
	}
}

func TestHeuristicCounter_Monotonic(t *testing.T) {
	counters := []windowing.TokenCounter{
		windowing.HeuristicCounter{},
		windowing.NewTiktokenCounter("words", wordEncoder{}),
	}
	additions := []memory.Entry{
		memory.System("sys prompt"),
		memory.User(""),
		memory.Assistant("a longer reply with several words"),
		memory.User("x"),
	}
	for _, c := range counters {
		var seq []memory.Entry
		prev := c.Count(seq)
		for _, e := range additions {
			seq = append(seq, e)
			got := c.Count(seq)
			if got < prev {
				t.Fatalf("%s: count decreased from %d to %d after %+v", c.Encoding(), prev, got, e)
			}
			prev = got
		}
	}
}
