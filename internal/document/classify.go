// Package document turns extracted page text into classified chunks.
package document

import (
	"strings"

	"github.com/abhisek/rounds/internal/store"
)

type kindRule struct {
	kind     store.ChunkKind
	keywords []string
}

// rules are evaluated in order; the first rule with any matching keyword wins.
var rules = []kindRule{
	{store.KindContraindication, []string{
		"contraindicated", "do not use", "should not", "must not",
		"avoid", "contraindication", "prohibited",
	}},
	{store.KindException, []string{
		"however", "exception", "in contrast", "alternatively", "but",
		"special case", "unique scenario",
	}},
	{store.KindSpecialPopulation, []string{
		"pregnancy", "pediatric", "geriatric", "renal impairment",
		"hepatic impairment", "dialysis", "elderly", "children",
	}},
}

// Classify assigns a chunk kind by case-insensitive substring match.
// Text matching no rule is standard.
func Classify(text string) store.ChunkKind {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.kind
			}
		}
	}
	return store.KindStandard
}
