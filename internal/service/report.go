package service

import (
	"context"
	"fmt"

	"github.com/vbonduro/vistoria/internal/export"
	"github.com/vbonduro/vistoria/internal/report"
)

// File is a generated download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

const (
	pdfContentType  = "application/pdf"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// GenerateReport renders the PDF inspection report of a property. The
// property status is left unchanged.
func (s *InspectionService) GenerateReport(ctx context.Context, propertyID string) (*File, error) {
	start := s.now()

	p, err := s.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	inspections, err := s.inspections(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	profile, err := s.settings.GetProfile(ctx)
	if err != nil {
		return nil, err
	}

	opts := append([]report.Option{report.WithClock(s.now), report.WithLocation(s.loc)}, s.reportOpts...)
	doc, err := report.NewGenerator(opts...).Generate(p, inspections, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report: %w", err)
	}

	s.metrics.ObserveReport("pdf", s.now().Sub(start))
	s.logger.Info("report generated", "property_id", propertyID, "pages", doc.Pages,
		"observations", inspections.Len())
	return &File{Name: doc.Filename, ContentType: pdfContentType, Data: doc.Bytes()}, nil
}

// ExportSpreadsheet builds the XLSX export of a property.
func (s *InspectionService) ExportSpreadsheet(ctx context.Context, propertyID string) (*File, error) {
	start := s.now()

	p, err := s.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	inspections, err := s.inspections(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	data, err := export.Spreadsheet(p, inspections, s.loc)
	if err != nil {
		return nil, fmt.Errorf("failed to export spreadsheet: %w", err)
	}

	s.metrics.ObserveReport("xlsx", s.now().Sub(start))
	s.logger.Info("spreadsheet exported", "property_id", propertyID, "observations", inspections.Len())
	return &File{
		Name:        export.Filename(p.Client, s.now().In(s.loc)),
		ContentType: xlsxContentType,
		Data:        data,
	}, nil
}
