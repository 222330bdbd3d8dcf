package classifier

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
)

const (
	weightStrong = 3.0
	weightNormal = 1.0
	weightWeak   = 0.5
)

//go:embed lexicon.yaml
var defaultLexicon []byte

type indicatorTiers struct {
	Strong []string `yaml:"strong"`
	Normal []string `yaml:"normal"`
	Weak   []string `yaml:"weak"`
}

type phrase struct {
	text    string
	weight  float64
	pattern *regexp.Regexp
}

// Lexicon holds the compiled indicator phrases for every label.
type Lexicon struct {
	phrases  map[domain.Label][]phrase
	ceilings map[domain.Label]float64
}

// DefaultLexicon returns the embedded lexicon.
func DefaultLexicon() *Lexicon {
	lex, err := ParseLexicon(defaultLexicon)
	if err != nil {
		panic(fmt.Sprintf("embedded lexicon: %v", err))
	}
	return lex
}

// LoadLexicon reads a lexicon file, or the embedded default when path is empty.
func LoadLexicon(path string) (*Lexicon, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultLexicon(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	return ParseLexicon(raw)
}

// ParseLexicon compiles a YAML lexicon of strong, normal and weak phrases per
// label. A label's score ceiling is the sum of the weights of its non-empty
// tiers (at most 3+1+0.5), not the sum over every phrase, so a single strong
// match already gives a meaningful score.
func ParseLexicon(raw []byte) (*Lexicon, error) {
	var doc map[string]indicatorTiers
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}

	lex := &Lexicon{
		phrases:  make(map[domain.Label][]phrase, len(domain.Labels)),
		ceilings: make(map[domain.Label]float64, len(domain.Labels)),
	}
	for name, tiers := range doc {
		label := domain.Label(name)
		if domain.LabelIndex(label) < 0 {
			return nil, fmt.Errorf("parse lexicon: unknown label %q", name)
		}

		var compiled []phrase
		var ceiling float64
		for _, tier := range []struct {
			words  []string
			weight float64
		}{
			{tiers.Strong, weightStrong},
			{tiers.Normal, weightNormal},
			{tiers.Weak, weightWeak},
		} {
			if len(tier.words) == 0 {
				continue
			}
			ceiling += tier.weight
			for _, w := range tier.words {
				w = strings.ToLower(strings.TrimSpace(w))
				if w == "" {
					continue
				}
				compiled = append(compiled, phrase{
					text:    w,
					weight:  tier.weight,
					pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`),
				})
			}
		}
		lex.phrases[label] = compiled
		lex.ceilings[label] = ceiling
	}
	return lex, nil
}
