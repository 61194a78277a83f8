// Package term provides the cell-grid drawing surface the dashboard
// renders into. The surface holds plain text only; styling is applied by
// the TUI layer around it.
package term

import (
	"io"
	"strings"
)

// Screen is an in-memory grid of terminal cells implementing the
// dashboard's Renderer contract. WriteText places text at explicit
// coordinates; Flush composes the grid into a frame and optionally writes
// it to an output.
type Screen struct {
	width  int
	height int
	cells  [][]rune
	out    io.Writer
	frame  string
}

// NewScreen creates a Screen of the given size. Sizes below 1x1 are
// clamped.
func NewScreen(width, height int) *Screen {
	s := &Screen{}
	s.Resize(width, height)
	return s
}

// SetOutput directs Flush to also write the composed frame (preceded by a
// cursor-home escape) to w. Pass nil to keep frames in memory only.
func (s *Screen) SetOutput(w io.Writer) {
	s.out = w
}

// Resize reallocates the grid for a new terminal size and clears it.
func (s *Screen) Resize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	s.width = width
	s.height = height
	s.cells = make([][]rune, height)
	for y := range s.cells {
		s.cells[y] = blankRow(width)
	}
}

// Size returns the current grid dimensions.
func (s *Screen) Size() (int, int) {
	return s.width, s.height
}

// Clear blanks every cell.
func (s *Screen) Clear() {
	for y := range s.cells {
		s.cells[y] = blankRow(s.width)
	}
}

// WriteText places text at (x, y). Text outside the grid is clipped;
// out-of-range rows are ignored entirely.
func (s *Screen) WriteText(x, y int, text string) {
	if y < 0 || y >= s.height {
		return
	}
	for i, r := range []rune(text) {
		cx := x + i
		if cx < 0 {
			continue
		}
		if cx >= s.width {
			break
		}
		s.cells[y][cx] = r
	}
}

// Flush composes the grid into a frame string, retains it for Frame, and
// writes it to the configured output when one is set.
func (s *Screen) Flush() error {
	var b strings.Builder
	b.Grow(s.height * (s.width + 1))
	for y, row := range s.cells {
		b.WriteString(strings.TrimRight(string(row), " "))
		if y < s.height-1 {
			b.WriteByte('\n')
		}
	}
	s.frame = b.String()

	if s.out != nil {
		if _, err := io.WriteString(s.out, "\x1b[H\x1b[2J"+s.frame); err != nil {
			return err
		}
	}
	return nil
}

// Frame returns the most recently flushed frame.
func (s *Screen) Frame() string {
	return s.frame
}

func blankRow(width int) []rune {
	row := make([]rune, width)
	for i := range row {
		row[i] = ' '
	}
	return row
}
