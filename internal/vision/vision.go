package vision

import (
	"context"
	"io"

	"github.com/vbonduro/vistoria/internal/domain"
)

// AssessmentPrompt is the shared prompt used by all vision adapters.
const AssessmentPrompt = `Você é um vistoriador de imóveis. Analise a foto e avalie o estado do item mostrado.
Classifique o estado como: ok (sem problemas), minor (observação menor),
major (requer atenção) ou critical (problema grave).
Responda com uma única linha no formato: status | descrição curta em português`

// Assessor suggests an observation for a photo of an inspected item.
type Assessor interface {
	Assess(ctx context.Context, r io.Reader, mimeType string) (*Assessment, error)
}

type Assessment struct {
	Status      domain.Severity `json:"status"`
	Description string          `json:"observation"`
	RawResponse string          `json:"-"`
}
