package term

import (
	"strings"
	"testing"
)

func TestWriteTextAndFrame(t *testing.T) {
	s := NewScreen(10, 3)
	s.WriteText(0, 0, "hello")
	s.WriteText(2, 1, "world")
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	lines := strings.Split(s.Frame(), "\n")
	if len(lines) != 3 {
		t.Fatalf("frame has %d lines, want 3", len(lines))
	}
	if lines[0] != "hello" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "  world" {
		t.Errorf("line 1 = %q", lines[1])
	}
	if lines[2] != "" {
		t.Errorf("line 2 = %q, want empty", lines[2])
	}
}

func TestClipping(t *testing.T) {
	s := NewScreen(5, 2)
	s.WriteText(3, 0, "abcdef") // runs off the right edge
	s.WriteText(-2, 1, "xyz")   // starts left of the grid
	s.WriteText(0, 5, "gone")   // row out of range
	s.WriteText(0, -1, "gone")
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	lines := strings.Split(s.Frame(), "\n")
	if lines[0] != "   ab" {
		t.Errorf("clipped line = %q, want %q", lines[0], "   ab")
	}
	if lines[1] != "z" {
		t.Errorf("left-clipped line = %q, want %q", lines[1], "z")
	}
}

func TestClear(t *testing.T) {
	s := NewScreen(4, 2)
	s.WriteText(0, 0, "data")
	s.Clear()
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if s.Frame() != "\n" {
		t.Errorf("frame after clear = %q, want blank", s.Frame())
	}
}

func TestResize(t *testing.T) {
	s := NewScreen(10, 4)
	s.WriteText(0, 0, "old")
	s.Resize(6, 2)

	w, h := s.Size()
	if w != 6 || h != 2 {
		t.Errorf("size after resize = %dx%d, want 6x2", w, h)
	}

	// Resize clears previous content.
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if strings.Contains(s.Frame(), "old") {
		t.Error("resize kept stale content")
	}
}

func TestResizeClampsToMinimum(t *testing.T) {
	s := NewScreen(0, -3)
	w, h := s.Size()
	if w != 1 || h != 1 {
		t.Errorf("size = %dx%d, want 1x1", w, h)
	}
	s.WriteText(0, 0, "x") // must not panic
}

func TestFlushWritesToOutput(t *testing.T) {
	s := NewScreen(4, 1)
	var sb strings.Builder
	s.SetOutput(&sb)
	s.WriteText(0, 0, "ok")
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if !strings.Contains(sb.String(), "ok") {
		t.Errorf("output %q missing frame content", sb.String())
	}
	if !strings.HasPrefix(sb.String(), "\x1b[") {
		t.Error("output missing leading escape sequence")
	}
}

func TestUnicodeWidth(t *testing.T) {
	s := NewScreen(3, 1)
	s.WriteText(0, 0, "▁▂▃▄") // clipped at 3 runes, not bytes
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if s.Frame() != "▁▂▃" {
		t.Errorf("frame = %q, want %q", s.Frame(), "▁▂▃")
	}
}
