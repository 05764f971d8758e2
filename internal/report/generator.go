package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vbonduro/vistoria/internal/domain"
)

// ErrNoDocument is returned when a document is saved or exported before
// Generate has produced one.
var ErrNoDocument = errors.New("no report has been generated")

const (
	dateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006, 15:04:05"
	valueColumn    = 40
	indent         = 5
)

var (
	gray      = domain.RGB{R: 100, G: 100, B: 100}
	lightGray = domain.RGB{R: 150, G: 150, B: 150}
)

// Document is a generated report.
type Document struct {
	Filename string
	Pages    int
	data     []byte
}

// Bytes returns the encoded PDF.
func (d *Document) Bytes() []byte {
	return d.data
}

func (d *Document) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(d.data)
	return int64(n), err
}

// Save writes the document to path.
func (d *Document) Save(path string) error {
	if err := os.WriteFile(path, d.data, 0o644); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

type Option func(*Generator)

// WithGeometry overrides the page setup.
func WithGeometry(g Geometry) Option {
	return func(gen *Generator) { gen.geom = g }
}

// WithClock sets the source of the generation date.
func WithClock(now func() time.Time) Option {
	return func(gen *Generator) { gen.now = now }
}

// WithLocation sets the time zone dates are printed in.
func WithLocation(loc *time.Location) Option {
	return func(gen *Generator) { gen.loc = loc }
}

// WithCanvas replaces the PDF backend.
func WithCanvas(newCanvas func(Geometry) Canvas) Option {
	return func(gen *Generator) { gen.newCanvas = newCanvas }
}

// Generator lays out inspection reports. Each Generate call builds a fresh
// document; a Generator must not be used from several goroutines at once.
type Generator struct {
	geom      Geometry
	now       func() time.Time
	loc       *time.Location
	newCanvas func(Geometry) Canvas
	doc       *Document
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		geom:      A4,
		now:       time.Now,
		loc:       time.Local,
		newCanvas: NewPDFCanvas,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate writes the cover, property data, executive summary, inspection
// details and conclusion for property. A nil property or profile renders
// blank fields.
func (g *Generator) Generate(property *domain.Property, inspections domain.InspectionMap, profile *domain.Profile) (*Document, error) {
	if property == nil {
		property = &domain.Property{}
	}
	if profile == nil {
		profile = &domain.Profile{}
	}

	canvas := g.newCanvas(g.geom)
	w := &writer{
		cursor:    newCursor(canvas, g.geom),
		loc:       g.loc,
		generated: g.now().In(g.loc),
	}
	stats := inspections.Count()

	w.cover(property, profile)
	w.newPage()
	w.propertyInfo(property)
	w.sectionGap()
	w.executiveSummary(stats)
	w.sectionGap()
	w.inspectionDetails(inspections)
	w.sectionGap()
	w.conclusion(stats)

	var buf bytes.Buffer
	if err := canvas.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	g.doc = &Document{
		Filename: Filename(property.Client, w.generated),
		Pages:    w.pages,
		data:     buf.Bytes(),
	}
	return g.doc, nil
}

// Save writes the last generated document into dir under its default name
// and returns the full path.
func (g *Generator) Save(dir string) (string, error) {
	if g.doc == nil {
		return "", ErrNoDocument
	}
	path := filepath.Join(dir, g.doc.Filename)
	if err := g.doc.Save(path); err != nil {
		return "", err
	}
	return path, nil
}

// Bytes returns the last generated document.
func (g *Generator) Bytes() ([]byte, error) {
	if g.doc == nil {
		return nil, ErrNoDocument
	}
	return g.doc.Bytes(), nil
}

var (
	whitespace     = regexp.MustCompile(`\s+`)
	pathSeparators = strings.NewReplacer("/", "", `\`, "")
)

// Filename is the default report name: vistoria-<client-slug>-<date>.pdf.
// Path separators are dropped from the client name.
func Filename(client string, day time.Time) string {
	slug := strings.ToLower(whitespace.ReplaceAllString(pathSeparators.Replace(client), "-"))
	return fmt.Sprintf("vistoria-%s-%s.pdf", slug, day.Format("2006-01-02"))
}

// writer holds the state of a single report generation.
type writer struct {
	*cursor
	loc       *time.Location
	generated time.Time
}

func (w *writer) sectionGap() {
	w.advance(2)
}

func (w *writer) date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(w.loc).Format(dateLayout)
}

func (w *writer) cover(p *domain.Property, profile *domain.Profile) {
	w.newPage()
	c := w.canvas

	c.SetTextColor(black)
	c.SetFont(Bold, 24)
	w.centered("RELATÓRIO DE VISTORIA")
	w.y += 15

	c.SetFont(Regular, 18)
	w.centered("IMOBILIÁRIA")
	w.y += 20

	c.SetFont(Bold, 14)
	w.centered("Cliente: " + p.Client)
	w.y += 8

	c.SetFont(Regular, 14)
	w.centered(fmt.Sprintf("Tipo: %s | Área: %sm²", domain.PropertyTypeLabel(p.PropertyType), formatArea(p.Area)))
	w.y += 6
	w.centered(fmt.Sprintf("Quartos: %d | Andares: %d", p.Rooms, p.Floors))
	w.y += 10

	c.SetFont(Regular, 12)
	w.centered(p.Address)
	w.y += 20

	c.SetFont(Bold, 12)
	w.centered("Data da Vistoria: " + w.date(p.InspectionDate))
	w.y += 6
	w.centered("Relatório gerado em: " + w.generated.Format(dateLayout))
	w.y += 30

	if profile.HasIdentity() {
		c.SetFont(Regular, 10)
		for _, l := range authorLines(profile) {
			w.centered(l)
			w.y += 5
		}
	}

	w.y = w.geom.PageHeight - 40
	c.SetFont(Regular, 8)
	c.SetTextColor(lightGray)
	w.centered("Relatório gerado pelo Sistema de Vistoria Digital")
	c.SetTextColor(black)
}

func authorLines(p *domain.Profile) []string {
	var lines []string
	if p.Company != "" {
		lines = append(lines, p.Company)
	}
	if p.Name != "" {
		lines = append(lines, "Responsável: "+p.Name)
	}
	if p.Email != "" {
		lines = append(lines, "E-mail: "+p.Email)
	}
	if p.Phone != "" {
		lines = append(lines, "Telefone: "+p.Phone)
	}
	return lines
}

func (w *writer) propertyInfo(p *domain.Property) {
	w.title("DADOS DO IMÓVEL")

	rows := [][2]string{
		{"Cliente:", p.Client},
		{"Tipo do Imóvel:", domain.PropertyTypeLabel(p.PropertyType)},
		{"Área Total:", formatArea(p.Area) + "m²"},
		{"Número de Quartos:", strconv.Itoa(p.Rooms)},
		{"Número de Andares:", strconv.Itoa(p.Floors)},
		{"Endereço:", p.Address},
		{"Data da Vistoria:", w.date(p.InspectionDate)},
		{"Data de Criação:", w.date(p.CreatedAt)},
	}
	for _, r := range rows {
		w.ensureSpace(w.space(defaultBreakSpace, 1))
		w.canvas.SetFont(Bold, 11)
		w.canvas.Text(w.geom.Margin, w.y, r[0])
		w.canvas.SetFont(Regular, 11)
		w.canvas.Text(w.geom.Margin+valueColumn, w.y, r[1])
		w.advance(1)
	}
}

func (w *writer) executiveSummary(s domain.Stats) {
	w.title("RESUMO EXECUTIVO")
	c := w.canvas

	c.SetFont(Regular, 11)
	w.line(w.geom.Margin, "Este relatório apresenta os resultados da vistoria realizada no imóvel,")
	w.line(w.geom.Margin, "identificando o estado geral dos ambientes e sistemas inspecionados.")
	w.advance(1)

	c.SetFont(Bold, 11)
	w.line(w.geom.Margin, "ESTATÍSTICAS GERAIS:")

	rows := [][2]string{
		{"Total de itens inspecionados:", strconv.Itoa(s.Total)},
		{"Itens aprovados:", fmt.Sprintf("%d (%d%%)", s.OK, s.OKPercent())},
		{"Itens com observações:", strconv.Itoa(s.Minor)},
		{"Itens que requerem atenção:", strconv.Itoa(s.Major)},
		{"Itens críticos:", strconv.Itoa(s.Critical)},
	}
	for _, r := range rows {
		w.ensureSpace(w.space(defaultBreakSpace, 1))
		c.SetFont(Regular, 11)
		c.Text(w.geom.Margin+indent, w.y, "• "+r[0])
		c.SetFont(Bold, 11)
		c.Text(w.geom.Margin+80, w.y, r[1])
		w.advance(1)
	}
	w.advance(1)

	rec := Recommend(s)
	c.SetFont(Bold, 11)
	c.SetTextColor(rec.color())
	w.line(w.geom.Margin, rec.Message())
	c.SetTextColor(black)
	w.advance(1)
}

func (w *writer) inspectionDetails(inspections domain.InspectionMap) {
	w.title("DETALHES DA INSPEÇÃO")
	c := w.canvas

	written := 0
	for _, entry := range inspections {
		env := domain.LookupEnvironment(entry.EnvironmentID)
		if env == nil || len(entry.Observations) == 0 {
			continue
		}
		written++

		w.ensureSpace(w.space(headingBreakSpace, 2.5))
		c.SetFont(Bold, 13)
		c.SetTextColor(black)
		c.Text(w.geom.Margin, w.y, strings.ToUpper(env.Name))
		w.advance(1.5)

		observations := make([]*domain.Observation, len(entry.Observations))
		copy(observations, entry.Observations)
		domain.SortNewestFirst(observations)

		for _, obs := range observations {
			w.observation(obs)
		}
		w.advance(1)
	}

	if written == 0 {
		c.SetFont(Regular, 11)
		c.SetTextColor(gray)
		w.line(w.geom.Margin, "Nenhuma inspeção registrada.")
		c.SetTextColor(black)
	}
}

func (w *writer) observation(obs *domain.Observation) {
	c := w.canvas
	x := w.geom.Margin + indent
	style := obs.Status.Style()

	w.ensureSpace(w.space(titleBreakSpace, 2))
	c.SetFont(Bold, 11)
	c.SetTextColor(style.TextColor)
	w.line(x, style.Label+" - "+domain.CategoryName(obs.CategoryID))

	c.SetFont(Regular, 9)
	c.SetTextColor(gray)
	var stamp string
	if !obs.CreatedAt.IsZero() {
		stamp = obs.CreatedAt.In(w.loc).Format(dateTimeLayout)
	}
	w.line(x, stamp)

	c.SetFont(Regular, 10)
	c.SetTextColor(black)
	w.paragraph(x, w.geom.ContentWidth()-10, obs.Description)

	if n := len(obs.Photos); n > 0 {
		c.SetFont(Regular, 9)
		c.SetTextColor(gray)
		w.line(x, photoNote(n))
		c.SetTextColor(black)
	}
	w.advance(0.5)
}

func (w *writer) conclusion(s domain.Stats) {
	w.title("CONCLUSÃO")
	c := w.canvas

	c.SetFont(Regular, 11)
	w.paragraph(w.geom.Margin, w.geom.ContentWidth(), Conclusion(s))
	w.advance(2)

	w.line(w.geom.Margin, strings.Repeat("_", 41))
	w.line(w.geom.Margin, "Responsável pela Vistoria")
	w.line(w.geom.Margin, "Data: "+w.generated.Format(dateLayout))
}

func formatArea(a float64) string {
	return strconv.FormatFloat(a, 'f', -1, 64)
}
