package report

import (
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/vbonduro/vistoria/internal/domain"
)

const fontFamily = "Helvetica"

// pdfCanvas draws onto an fpdf document using the core Helvetica font.
// Text is translated to cp1252 so Portuguese accents survive.
type pdfCanvas struct {
	pdf       *fpdf.Fpdf
	translate func(string) string
}

// NewPDFCanvas returns a Canvas producing a PDF with page size g.
func NewPDFCanvas(g Geometry) Canvas {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: g.PageWidth, Ht: g.PageHeight},
	})
	pdf.SetAutoPageBreak(false, g.Margin)
	pdf.SetMargins(g.Margin, g.Margin, g.Margin)
	pdf.SetTitle("Relatório de Vistoria", true)
	pdf.SetCreator("vistoria", true)
	pdf.SetFont(fontFamily, Regular, 12)
	return &pdfCanvas{
		pdf:       pdf,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

func (c *pdfCanvas) AddPage() {
	c.pdf.AddPage()
}

func (c *pdfCanvas) SetFont(style string, size float64) {
	c.pdf.SetFont(fontFamily, style, size)
}

func (c *pdfCanvas) SetTextColor(rgb domain.RGB) {
	c.pdf.SetTextColor(rgb.R, rgb.G, rgb.B)
}

func (c *pdfCanvas) Text(x, y float64, s string) {
	c.pdf.Text(x, y, c.translate(s))
}

func (c *pdfCanvas) TextWidth(s string) float64 {
	return c.pdf.GetStringWidth(c.translate(s))
}

func (c *pdfCanvas) Output(w io.Writer) error {
	return c.pdf.Output(w)
}
