package fastlane

import (
	"strings"
	"testing"
)

func TestIOOpLabels(t *testing.T) {
	cases := map[IOOp]string{
		OpRead:    "read",
		OpWrite:   "write",
		OpFlush:   "flush",
		OpDiscard: "discard",
		IOOp(99):  "unknown",
	}

	for op, want := range cases {
		if got := op.Label(); got != want {
			t.Errorf("Label(%d)=%q, want %q", op, got, want)
		}
	}
}

func TestTakeCompletionAtMostOnce(t *testing.T) {
	invoked := 0
	desc := NewIODesc(OpRead, 7, 2048, 16, IOFlags{}, func(error) { invoked++ })

	if !desc.HasCompletion() {
		t.Fatal("Expected completion handle attached")
	}

	c := desc.TakeCompletion()
	if c == nil {
		t.Fatal("First TakeCompletion returned nil")
	}
	if desc.HasCompletion() {
		t.Error("HasCompletion true after take")
	}
	if desc.TakeCompletion() != nil {
		t.Error("Second TakeCompletion returned a handle")
	}

	c(nil)
	if invoked != 1 {
		t.Errorf("Completion invoked %d times, want 1", invoked)
	}
}

func TestNilCompletion(t *testing.T) {
	desc := NewIODesc(OpFlush, 1, 0, 0, IOFlags{}, nil)

	if desc.HasCompletion() {
		t.Error("HasCompletion true for fire-and-forget descriptor")
	}
	if desc.TakeCompletion() != nil {
		t.Error("TakeCompletion returned a handle for nil completion")
	}
}

func TestDescString(t *testing.T) {
	desc := NewIODesc(OpWrite, 3, 4096, 8, IOFlags{FUA: true}, nil)

	s := desc.String()
	for _, want := range []string{"write", "ns=3", "lba=4096", "len=8", "fua=true"} {
		if !strings.Contains(s, want) {
			t.Errorf("String()=%q missing %q", s, want)
		}
	}
}
