package report

import (
	"fmt"

	"github.com/vbonduro/vistoria/internal/domain"
)

// Recommendation is the overall verdict printed under the executive summary.
type Recommendation int

const (
	RecommendGoodCondition Recommendation = iota
	RecommendAttention
	RecommendUrgent
)

// Recommend picks the verdict for s. Only critical and major findings change
// the verdict; minor-only inspections stay in good condition.
func Recommend(s domain.Stats) Recommendation {
	switch {
	case s.Critical > 0:
		return RecommendUrgent
	case s.Major > 0:
		return RecommendAttention
	default:
		return RecommendGoodCondition
	}
}

func (r Recommendation) String() string {
	switch r {
	case RecommendUrgent:
		return "urgent"
	case RecommendAttention:
		return "attention"
	default:
		return "good_condition"
	}
}

// Message is the line written in the report for r.
func (r Recommendation) Message() string {
	switch r {
	case RecommendUrgent:
		return "ATENÇÃO: Foram identificados itens críticos que requerem ação imediata."
	case RecommendAttention:
		return "Alguns itens requerem atenção e acompanhamento."
	default:
		return "Imóvel em boas condições gerais."
	}
}

func (r Recommendation) color() domain.RGB {
	switch r {
	case RecommendUrgent:
		return domain.SeverityCritical.Style().TextColor
	case RecommendAttention:
		return domain.SeverityMajor.Style().TextColor
	default:
		return domain.SeverityOK.Style().TextColor
	}
}

// Conclusion returns the closing paragraph for s. Unlike Recommend it has a
// dedicated phrasing for minor-only inspections.
func Conclusion(s domain.Stats) string {
	switch {
	case s.Critical > 0:
		return fmt.Sprintf("A vistoria identificou %d %s que %s atenção imediata. "+
			"Recomenda-se a correção destes problemas antes da ocupação do imóvel.",
			s.Critical, plural(s.Critical, "item crítico", "itens críticos"), plural(s.Critical, "requer", "requerem"))
	case s.Major > 0:
		return fmt.Sprintf("A vistoria identificou %d %s que %s atenção. "+
			"Recomenda-se o acompanhamento e correção destes itens em prazo adequado.",
			s.Major, plural(s.Major, "item", "itens"), plural(s.Major, "requer", "requerem"))
	case s.Minor > 0:
		return fmt.Sprintf("A vistoria identificou %d %s. "+
			"O imóvel encontra-se em boas condições gerais.",
			s.Minor, plural(s.Minor, "observação menor", "observações menores"))
	default:
		return "O imóvel encontra-se em excelentes condições, sem problemas identificados na vistoria."
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func photoNote(n int) string {
	return fmt.Sprintf("%d %s", n, plural(n, "foto anexada", "fotos anexadas"))
}
