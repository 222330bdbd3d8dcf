package classifier

import (
	"regexp"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
)

type structuralBoost struct {
	pattern *regexp.Regexp
	boost   float64
}

var structuralBoosts = map[domain.Label][]structuralBoost{
	domain.LabelFinance: {
		{regexp.MustCompile(`[$€£¥]\s?\d[\d,]*(?:\.\d+)?|\b\d[\d,]*(?:\.\d+)?\s?(?:USD|EUR|GBP|INR)\b`), 2},
		{regexp.MustCompile(`\b\d+(?:\.\d+)?\s?%`), 1},
	},
	domain.LabelTech: {
		{regexp.MustCompile(`\b(?:func|def|class|import|return|const|var|public|private|SELECT|INSERT)\s+\w+`), 2},
		{regexp.MustCompile(`(?i)\b(?:figure|fig\.|table)\s+\d+`), 1},
	},
	domain.LabelLegal: {
		{regexp.MustCompile(`(?i)(?:§\s?\d+|\b(?:section|article)\s+\d+(?:\.\d+)*)`), 2},
		{regexp.MustCompile(`(?i)\b(?:whereas|hereinafter|thereof)\b`), 2},
	},
	domain.LabelHR: {
		{regexp.MustCompile(`(?i)\b(?:date of (?:birth|joining)|start date|joining date)\s*:`), 1},
		{regexp.MustCompile(`(?i)\b(?:employee (?:id|no\.?|number)|emp\s?id)\s*[:#]?\s*\w+`), 1},
	},
	domain.LabelContracts: {
		{regexp.MustCompile(`(?i)\b(?:signature|witness(?:es)?|in witness whereof)\s*:?`), 2},
		{regexp.MustCompile(`(?i)\b(?:effective date|term of (?:this|the) (?:agreement|contract))\b`), 1},
	},
}

// KeywordScorer computes weighted indicator scores from a lexicon.
type KeywordScorer struct {
	lexicon *Lexicon
}

func NewKeywordScorer(lexicon *Lexicon) *KeywordScorer {
	if lexicon == nil {
		lexicon = DefaultLexicon()
	}
	return &KeywordScorer{lexicon: lexicon}
}

// Score returns a value in [0,1] for every label. Each phrase counts once.
func (s *KeywordScorer) Score(text string) map[string]float64 {
	out := make(map[string]float64, len(domain.Labels))
	for _, label := range domain.Labels {
		ceiling := s.lexicon.ceilings[label]
		if ceiling <= 0 {
			out[string(label)] = 0
			continue
		}

		var total float64
		for _, p := range s.lexicon.phrases[label] {
			if p.pattern.MatchString(text) {
				total += p.weight
			}
		}
		for _, b := range structuralBoosts[label] {
			if b.pattern.MatchString(text) {
				total += b.boost
			}
		}
		out[string(label)] = clamp(total / ceiling)
	}
	return out
}

// StrongHits reports the labels with at least one strong phrase in text.
func (s *KeywordScorer) StrongHits(text string) map[string]bool {
	out := make(map[string]bool)
	for _, label := range domain.Labels {
		for _, p := range s.lexicon.phrases[label] {
			if p.weight == weightStrong && p.pattern.MatchString(text) {
				out[string(label)] = true
				break
			}
		}
	}
	return out
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
