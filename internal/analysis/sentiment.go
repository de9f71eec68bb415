package analysis

import (
	"math"
	"sort"
	"time"
)

// Sentiment labels.
const (
	LabelPositive = "positive"
	LabelNeutral  = "neutral"
	LabelNegative = "negative"
)

// labelThreshold separates positive/negative from neutral on the final score.
const labelThreshold = 0.3

type SentimentResult struct {
	Score      float64
	Label      string
	Confidence float64
	Details    SentimentDetails
}

type SentimentDetails struct {
	PositiveCount int
	NegativeCount int
	TotalTokens   int
}

// Keyword is one distinct sentiment-bearing word found in a text.
type Keyword struct {
	Word      string
	Sentiment float64
	Frequency int
	Type      string // positive|negative
}

// Analyzer scores free text against an injected sentiment lexicon.
// It holds no mutable state; one Analyzer serves all requests.
type Analyzer struct {
	lex Lexicon
}

func NewAnalyzer(lex Lexicon) *Analyzer {
	if lex == nil {
		lex = DefaultLexicon()
	}
	return &Analyzer{lex: lex}
}

// AnalyzeSentiment tokenizes text and folds per-token lexicon weights into a
// bounded score in [-1,1]. The density multiplier min(ratio*3, 1) discounts
// texts where fewer than ~a third of tokens carry sentiment and saturates
// beyond that. No sentiment-bearing tokens at all yields score 0, label
// neutral, confidence 0.
func (a *Analyzer) AnalyzeSentiment(text string) SentimentResult {
	tokens := Tokenize(text)

	var (
		posScore, negScore float64
		posCount, negCount int
	)
	for _, tok := range tokens {
		w, ok := a.lex[tok]
		if !ok {
			continue
		}
		if w > 0 {
			posScore += w
			posCount++
		} else {
			negScore += w
			negCount++
		}
	}

	res := SentimentResult{
		Label: LabelNeutral,
		Details: SentimentDetails{
			PositiveCount: posCount,
			NegativeCount: negCount,
			TotalTokens:   len(tokens),
		},
	}
	if posCount == 0 && negCount == 0 {
		return res
	}

	var avgPos, avgNeg float64
	if posCount > 0 {
		avgPos = posScore / float64(posCount)
	}
	if negCount > 0 {
		avgNeg = math.Abs(negScore) / float64(negCount)
	}
	ratio := float64(posCount+negCount) / float64(len(tokens))
	res.Score = (avgPos - avgNeg) * math.Min(ratio*3, 1)

	switch {
	case res.Score > labelThreshold:
		res.Label = LabelPositive
	case res.Score < -labelThreshold:
		res.Label = LabelNegative
	}
	res.Confidence = math.Abs(res.Score)
	return res
}

// ExtractKeywords returns one entry per distinct sentiment-bearing token,
// sorted by descending frequency (ties alphabetically, for stable output).
func (a *Analyzer) ExtractKeywords(text string) []Keyword {
	freq := map[string]int{}
	for _, tok := range Tokenize(text) {
		if _, ok := a.lex[tok]; ok {
			freq[tok]++
		}
	}
	if len(freq) == 0 {
		return nil
	}

	out := make([]Keyword, 0, len(freq))
	for word, n := range freq {
		w := a.lex[word]
		typ := LabelPositive
		if w < 0 {
			typ = LabelNegative
		}
		out = append(out, Keyword{Word: word, Sentiment: w, Frequency: n, Type: typ})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Word < out[j].Word
	})
	return out
}

// Result bundles everything one analysis pass produces for a text. It is
// ephemeral; the creation pipeline folds it into the review record.
type Result struct {
	Sentiment  SentimentResult
	Keywords   []Keyword
	Spam       SpamResult
	Profanity  ProfanityResult
	AnalyzedAt time.Time
}

// Analyze runs sentiment scoring, keyword extraction, spam detection and the
// profanity check over the same text. Pure and deterministic apart from the
// timestamp.
func Analyze(a *Analyzer, d *SpamDetector, text string, now time.Time) Result {
	return Result{
		Sentiment:  a.AnalyzeSentiment(text),
		Keywords:   a.ExtractKeywords(text),
		Spam:       d.DetectSpam(text),
		Profanity:  d.CheckProfanity(text),
		AnalyzedAt: now,
	}
}
