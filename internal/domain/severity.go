package domain

import "strings"

// Severity is the finding level of an Observation.
type Severity string

const (
	SeverityOK       Severity = "ok"
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// Severities lists every severity from least to most serious.
var Severities = []Severity{SeverityOK, SeverityMinor, SeverityMajor, SeverityCritical}

// NormalizeSeverity maps a raw status value onto a known Severity. Anything
// unrecognized, including the empty string, is treated as ok.
func NormalizeSeverity(raw string) Severity {
	switch s := Severity(strings.ToLower(strings.TrimSpace(raw))); s {
	case SeverityOK, SeverityMinor, SeverityMajor, SeverityCritical:
		return s
	default:
		return SeverityOK
	}
}

// RGB is an 8-bit color used for PDF text.
type RGB struct {
	R, G, B int
}

// SeverityStyle is the presentation metadata of a severity, shared by the
// API payloads, the spreadsheet export and the PDF report.
type SeverityStyle struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	TextColor   RGB    `json:"-"`
}

var severityStyles = map[Severity]SeverityStyle{
	SeverityOK: {
		Label:       "Aprovado",
		Description: "Item sem problemas identificados",
		Icon:        "check-circle",
		Color:       "green",
		TextColor:   RGB{0, 150, 0},
	},
	SeverityMinor: {
		Label:       "Observação",
		Description: "Item com observações menores",
		Icon:        "info",
		Color:       "blue",
		TextColor:   RGB{0, 100, 200},
	},
	SeverityMajor: {
		Label:       "Atenção",
		Description: "Item que requer atenção",
		Icon:        "alert-triangle",
		Color:       "yellow",
		TextColor:   RGB{200, 100, 0},
	},
	SeverityCritical: {
		Label:       "Crítico",
		Description: "Problema grave identificado",
		Icon:        "alert-circle",
		Color:       "red",
		TextColor:   RGB{200, 0, 0},
	},
}

// Style returns the presentation metadata for s, falling back to ok.
func (s Severity) Style() SeverityStyle {
	return severityStyles[NormalizeSeverity(string(s))]
}

func (s Severity) Label() string {
	return s.Style().Label
}
