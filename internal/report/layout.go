package report

import (
	"io"

	"github.com/vbonduro/vistoria/internal/domain"
)

// Geometry is the fixed page setup of a report, in millimetres.
type Geometry struct {
	PageWidth  float64
	PageHeight float64
	Margin     float64
	LineHeight float64
}

// A4 is the default report geometry.
var A4 = Geometry{PageWidth: 210, PageHeight: 297, Margin: 20, LineHeight: 6}

// ContentWidth is the usable width between the side margins.
func (g Geometry) ContentWidth() float64 {
	return g.PageWidth - 2*g.Margin
}

// Bottom is the lowest y a block may reach.
func (g Geometry) Bottom() float64 {
	return g.PageHeight - g.Margin
}

// Font styles understood by every Canvas.
const (
	Regular = ""
	Bold    = "B"
)

// Canvas is the drawing surface the layout writes onto. Coordinates are
// in the same units as Geometry, with y being the text baseline.
type Canvas interface {
	AddPage()
	SetFont(style string, size float64)
	SetTextColor(c domain.RGB)
	Text(x, y float64, s string)
	// TextWidth measures s in the current font.
	TextWidth(s string) float64
	// Output finalizes the document and writes it to w.
	Output(w io.Writer) error
}

// Minimum look-ahead, in units, before a line, a section title and an
// environment heading. Each grows with the line height.
const (
	defaultBreakSpace = 10
	titleBreakSpace   = 15
	headingBreakSpace = 20
)

var black = domain.RGB{}

// cursor tracks the vertical write position over a Canvas and starts a new
// page whenever the next block would cross the bottom margin.
type cursor struct {
	canvas Canvas
	geom   Geometry
	y      float64
	pages  int
}

func newCursor(c Canvas, g Geometry) *cursor {
	return &cursor{canvas: c, geom: g, y: g.Margin}
}

func (c *cursor) newPage() {
	c.canvas.AddPage()
	c.pages++
	c.y = c.geom.Margin
}

// ensureSpace breaks the page when h more units do not fit below y.
func (c *cursor) ensureSpace(h float64) {
	if c.pages == 0 || c.y+h > c.geom.Bottom() {
		c.newPage()
	}
}

// space is the look-ahead for a block of the given number of lines, never
// less than minimum.
func (c *cursor) space(minimum, lines float64) float64 {
	return max(minimum, lines*c.geom.LineHeight)
}

func (c *cursor) advance(lines float64) {
	c.y += c.geom.LineHeight * lines
}

// line writes s at x after making room for one block and moves down one
// line height.
func (c *cursor) line(x float64, s string) {
	c.ensureSpace(c.space(defaultBreakSpace, 1))
	c.canvas.Text(x, c.y, s)
	c.advance(1)
}

// centered writes s horizontally centered at the current y without moving
// the cursor.
func (c *cursor) centered(s string) {
	w := c.canvas.TextWidth(s)
	c.canvas.Text((c.geom.PageWidth-w)/2, c.y, s)
}

// paragraph wraps s to width and writes it line by line starting at x.
func (c *cursor) paragraph(x, width float64, s string) {
	for _, l := range Wrap(s, width, c.canvas.TextWidth) {
		c.line(x, l)
	}
}

// title writes a section heading, keeping it together with at least one
// following line.
func (c *cursor) title(s string) {
	c.ensureSpace(c.space(titleBreakSpace, 2))
	c.canvas.SetFont(Bold, 14)
	c.canvas.SetTextColor(black)
	c.canvas.Text(c.geom.Margin, c.y, s)
	c.advance(2)
}
