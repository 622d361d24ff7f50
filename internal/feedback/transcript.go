// Package feedback holds the pure stages of the feedback pipeline: transcript
// pairing, prompt rendering and parsing of the model's tagged-line output.
package feedback

import (
	"github.com/fairyhunter13/interview-feedback/internal/domain"
	"github.com/fairyhunter13/interview-feedback/pkg/textx"
)

// Normalize pairs a flat turn list into exchanges. Turn 2i is the assistant's
// line and turn 2i+1, when present, the client's reply. Roles are not
// inspected; a missing reply becomes "". The result has ceil(n/2) entries.
func Normalize(turns []domain.Turn) []domain.Exchange {
	out := make([]domain.Exchange, 0, (len(turns)+1)/2)
	for i := 0; i < len(turns); i += 2 {
		ex := domain.Exchange{Assistant: textx.SanitizeText(turns[i].Text)}
		if i+1 < len(turns) {
			ex.Client = textx.SanitizeText(turns[i+1].Text)
		}
		out = append(out, ex)
	}
	return out
}
