package report

import "strings"

// Wrap splits text into lines no wider than maxWidth as measured by
// measure. Lines only break between words; a single word wider than
// maxWidth is placed alone on its own line. Explicit newlines start a new
// paragraph.
func Wrap(text string, maxWidth float64, measure func(string) float64) []string {
	var lines []string
	paragraphs := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, p := range paragraphs {
		words := strings.Fields(p)
		if len(words) == 0 {
			// Keep blank lines between paragraphs, drop leading/trailing ones.
			if i > 0 && i < len(paragraphs)-1 && len(lines) > 0 {
				lines = append(lines, "")
			}
			continue
		}

		current := words[0]
		for _, w := range words[1:] {
			candidate := current + " " + w
			if measure(candidate) <= maxWidth {
				current = candidate
				continue
			}
			lines = append(lines, current)
			current = w
		}
		lines = append(lines, current)
	}
	return lines
}
