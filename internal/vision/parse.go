package vision

import (
	"strings"

	"github.com/vbonduro/vistoria/internal/domain"
)

// ParseLine parses a single "status | description" line. It returns nil
// for lines without a separator or without a description.
func ParseLine(line string) *Assessment {
	line = strings.TrimSpace(line)
	status, desc, ok := strings.Cut(line, "|")
	if !ok {
		return nil
	}

	desc = strings.TrimSpace(desc)
	if desc == "" {
		return nil
	}

	return &Assessment{
		Status:      domain.NormalizeSeverity(strings.Trim(strings.TrimSpace(status), "*`")),
		Description: desc,
	}
}

// ParseResponse returns the first assessment line found in a model
// response, skipping any preamble. Nil means nothing usable was found.
func ParseResponse(raw string) *Assessment {
	for _, line := range strings.Split(raw, "\n") {
		if a := ParseLine(line); a != nil {
			a.RawResponse = raw
			return a
		}
	}
	return nil
}
