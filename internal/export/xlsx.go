package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/vbonduro/vistoria/internal/domain"
	"github.com/vbonduro/vistoria/internal/report"
)

const (
	SummarySheet      = "Resumo"
	ObservationsSheet = "Observações"

	dateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006 15:04:05"
)

// ObservationsHeader is the header row of the observations sheet.
var ObservationsHeader = []string{
	"Ambiente",
	"Categoria",
	"Status",
	"Descrição",
	"Fotos",
	"Registrado em",
	"Atualizado em",
}

var observationColumnWidths = []float64{22, 26, 14, 60, 8, 20, 20}

// Filename is the default spreadsheet name, matching the PDF report name.
func Filename(client string, day time.Time) string {
	return strings.TrimSuffix(report.Filename(client, day), ".pdf") + ".xlsx"
}

// Spreadsheet builds an XLSX workbook with a summary sheet and one row per
// observation. Dates are printed in loc.
func Spreadsheet(p *domain.Property, inspections domain.InspectionMap, loc *time.Location) ([]byte, error) {
	if p == nil {
		p = &domain.Property{}
	}
	if loc == nil {
		loc = time.Local
	}

	f := excelize.NewFile()
	w := &workbook{f: f, loc: loc}
	if err := w.build(p, inspections); err != nil {
		f.Close()
		return nil, err
	}

	// WriteTo needs the file open, so Close runs only after writing.
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

type workbook struct {
	f      *excelize.File
	loc    *time.Location
	header int
	label  int
	status map[domain.Severity]int
}

func (w *workbook) build(p *domain.Property, inspections domain.InspectionMap) error {
	index, err := w.f.NewSheet(SummarySheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := w.f.NewSheet(ObservationsSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := w.f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to delete default sheet: %w", err)
	}
	w.f.SetActiveSheet(index)

	if err := w.styles(); err != nil {
		return err
	}
	if err := w.summary(p, inspections.Count()); err != nil {
		return err
	}
	return w.observations(inspections)
}

func (w *workbook) styles() error {
	var err error
	w.header, err = w.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	w.label, err = w.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create label style: %w", err)
	}

	w.status = make(map[domain.Severity]int, len(domain.Severities))
	for _, sev := range domain.Severities {
		c := sev.Style().TextColor
		id, err := w.f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true, Color: fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B)},
		})
		if err != nil {
			return fmt.Errorf("failed to create status style: %w", err)
		}
		w.status[sev] = id
	}
	return nil
}

func (w *workbook) summary(p *domain.Property, s domain.Stats) error {
	rows := [][2]any{
		{"Cliente", p.Client},
		{"Tipo do Imóvel", domain.PropertyTypeLabel(p.PropertyType)},
		{"Área Total (m²)", p.Area},
		{"Número de Quartos", p.Rooms},
		{"Número de Andares", p.Floors},
		{"Endereço", p.Address},
		{"Data da Vistoria", w.date(p.InspectionDate)},
		{"Status", string(p.Status)},
		{"", ""},
		{"Total de itens inspecionados", s.Total},
		{"Itens aprovados", s.OK},
		{"Itens com observações", s.Minor},
		{"Itens que requerem atenção", s.Major},
		{"Itens críticos", s.Critical},
		{"Recomendação", report.Recommend(s).Message()},
	}

	for i, r := range rows {
		row := i + 1
		if r[0] == "" {
			continue
		}
		if err := setCellValue(w.f, SummarySheet, 1, row, r[0]); err != nil {
			return fmt.Errorf("failed to set summary label at row %d: %w", row, err)
		}
		if err := setCellValue(w.f, SummarySheet, 2, row, r[1]); err != nil {
			return fmt.Errorf("failed to set summary value at row %d: %w", row, err)
		}
	}

	last := fmt.Sprintf("A%d", len(rows))
	if err := w.f.SetCellStyle(SummarySheet, "A1", last, w.label); err != nil {
		return fmt.Errorf("failed to set label style: %w", err)
	}
	if err := w.f.SetColWidth(SummarySheet, "A", "A", 30); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := w.f.SetColWidth(SummarySheet, "B", "B", 70); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	return nil
}

func (w *workbook) observations(inspections domain.InspectionMap) error {
	sheet := ObservationsSheet
	for col, header := range ObservationsHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := w.f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := w.f.SetCellStyle(sheet, cell, cell, w.header); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := w.f.SetColWidth(sheet, name, name, observationColumnWidths[col]); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	row := 2
	for _, entry := range inspections {
		envName := entry.EnvironmentID
		if env := domain.LookupEnvironment(entry.EnvironmentID); env != nil {
			envName = env.Name
		}

		observations := make([]*domain.Observation, len(entry.Observations))
		copy(observations, entry.Observations)
		domain.SortNewestFirst(observations)

		for _, obs := range observations {
			sev := domain.NormalizeSeverity(string(obs.Status))
			var updated string
			if obs.UpdatedAt != nil {
				updated = w.dateTime(*obs.UpdatedAt)
			}
			values := []any{
				envName,
				domain.CategoryName(obs.CategoryID),
				sev.Label(),
				obs.Description,
				len(obs.Photos),
				w.dateTime(obs.CreatedAt),
				updated,
			}
			for col, v := range values {
				if err := setCellValue(w.f, sheet, col+1, row, v); err != nil {
					return fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, col+1, err)
				}
			}
			cell, _ := excelize.CoordinatesToCellName(3, row)
			if err := w.f.SetCellStyle(sheet, cell, cell, w.status[sev]); err != nil {
				return fmt.Errorf("failed to set status style: %w", err)
			}
			row++
		}
	}

	if err := w.f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}
	return nil
}

func (w *workbook) date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(w.loc).Format(dateLayout)
}

func (w *workbook) dateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(w.loc).Format(dateTimeLayout)
}

func setCellValue(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}
