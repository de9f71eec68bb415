package analysis

// Lexicon maps a lowercase word to a signed sentiment weight. Positive
// entries sit in 0.5..0.95 by strength tier, negative ones in -0.5..-1.0.
// A Lexicon is built once and never mutated afterwards, so it is safe to
// share across goroutines.
type Lexicon map[string]float64

func buildLexicon(tiers map[float64][]string) Lexicon {
	lex := make(Lexicon)
	for weight, words := range tiers {
		for _, w := range words {
			lex[w] = weight
		}
	}
	return lex
}

// DefaultLexicon returns the built-in English sentiment lexicon. Callers
// that need a per-locale or per-tenant vocabulary pass their own Lexicon
// to NewAnalyzer instead.
func DefaultLexicon() Lexicon {
	return buildLexicon(map[float64][]string{
		0.95: {
			"amazing", "excellent", "outstanding", "wonderful", "fantastic",
			"exceptional", "superb", "phenomenal", "incredible", "perfect",
			"flawless",
		},
		0.8: {
			"great", "awesome", "brilliant", "delightful", "impressive",
			"lovely", "marvelous", "beautiful", "thrilled",
		},
		0.65: {
			"good", "nice", "pleasant", "happy", "satisfied", "helpful",
			"friendly", "professional", "reliable", "clean", "enjoyable",
			"comfortable", "responsive", "courteous",
		},
		0.5: {
			"fine", "okay", "decent", "fair", "adequate", "solid",
			"prompt", "polite", "timely",
		},
		-1.0: {
			"terrible", "horrible", "awful", "disgusting", "atrocious",
			"abysmal", "appalling", "dreadful", "disaster", "worst",
			"scam", "fraud", "nightmare",
		},
		-0.8: {
			"bad", "poor", "disappointing", "disappointed", "unacceptable",
			"rude", "unprofessional", "dirty", "broken", "useless", "waste",
			"incompetent", "dishonest",
		},
		-0.5: {
			"slow", "late", "mediocre", "overpriced", "noisy", "unhappy",
			"issue", "issues", "problem", "problems", "lacking", "subpar",
			"confusing",
		},
	})
}
