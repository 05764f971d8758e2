package report

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/vbonduro/vistoria/internal/domain"
)

// textOp is one Text call captured by recordingCanvas.
type textOp struct {
	page  int
	x, y  float64
	text  string
	style string
	size  float64
	color domain.RGB
}

// recordingCanvas is a Canvas that remembers what was drawn. Glyphs are
// treated as fixed width so measurements are predictable.
type recordingCanvas struct {
	pages int
	style string
	size  float64
	color domain.RGB
	ops   []textOp
}

func newRecordingCanvas(Geometry) Canvas {
	return &recordingCanvas{size: 12}
}

func (c *recordingCanvas) AddPage() { c.pages++ }

func (c *recordingCanvas) SetFont(style string, size float64) {
	c.style = style
	c.size = size
}

func (c *recordingCanvas) SetTextColor(rgb domain.RGB) { c.color = rgb }

func (c *recordingCanvas) Text(x, y float64, s string) {
	c.ops = append(c.ops, textOp{page: c.pages, x: x, y: y, text: s, style: c.style, size: c.size, color: c.color})
}

func (c *recordingCanvas) TextWidth(s string) float64 {
	return float64(utf8.RuneCountInString(s)) * c.size * 0.18
}

func (c *recordingCanvas) Output(w io.Writer) error {
	for _, op := range c.ops {
		if _, err := fmt.Fprintf(w, "%d %.1f %.1f %s\n", op.page, op.x, op.y, op.text); err != nil {
			return err
		}
	}
	return nil
}

func (c *recordingCanvas) texts() []string {
	out := make([]string, len(c.ops))
	for i, op := range c.ops {
		out[i] = op.text
	}
	return out
}

// find returns the first op whose text equals s.
func (c *recordingCanvas) find(s string) (textOp, bool) {
	for _, op := range c.ops {
		if op.text == s {
			return op, true
		}
	}
	return textOp{}, false
}

// after returns the text drawn right after the first op equal to s.
func (c *recordingCanvas) after(s string) string {
	for i, op := range c.ops {
		if op.text == s && i+1 < len(c.ops) {
			return c.ops[i+1].text
		}
	}
	return ""
}
