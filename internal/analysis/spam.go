package analysis

import (
	"regexp"
	"strings"
	"unicode"
)

// spamThreshold: at or above this score the text is flagged as spam.
const spamThreshold = 0.5

var (
	urlRe      = regexp.MustCompile(`https?://\S+`)
	bareWebRe  = regexp.MustCompile(`(?i)\b(?:www\.[a-z0-9-]+|[a-z0-9-]+\.(?:com|net|org|info|biz|io))\b`)
	emailRe    = regexp.MustCompile(`\b[\w.+-]+@[\w-]+\.\w{2,}\b`)
	phoneRe    = regexp.MustCompile(`\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`)
	excessPunc = regexp.MustCompile(`[!?]{3,}`)
)

// hasRepeatedRun reports whether text contains the same non-newline rune
// repeated 5 or more times in a row (the backreference pattern `(.)\1{4,}`,
// which Go's RE2 engine cannot express).
func hasRepeatedRun(text string) bool {
	var prev rune
	count := 0
	for _, r := range text {
		if r == prev && r != '\n' {
			count++
			if count >= 5 {
				return true
			}
		} else {
			prev = r
			count = 1
		}
	}
	return false
}

// DefaultPromoPhrases is the built-in promotional phrase set; any single hit
// adds one fixed contribution to the spam score.
func DefaultPromoPhrases() []string {
	return []string{
		"buy now", "click here", "limited time", "special offer",
		"discount code", "promo code", "check out our", "visit my",
		"follow me", "free money", "make money fast", "act now",
		"best price", "dm me",
	}
}

// DefaultProfanity returns the built-in profanity list, matched
// case-insensitively as substrings.
func DefaultProfanity() []string {
	return []string{
		"damn", "hell", "crap", "shit", "fuck", "bitch", "bastard", "asshole",
	}
}

type SpamResult struct {
	IsSpam     bool
	SpamScore  float64
	Indicators []string
}

type ProfanityResult struct {
	HasProfanity bool
	Words        []string
}

// SpamDetector runs a fixed battery of independent spam checks, each
// contributing its weight at most once. Phrase lists are injected so tests
// and per-tenant deployments can swap them.
type SpamDetector struct {
	promoPhrases []string
	profanity    []string
}

func NewSpamDetector(promoPhrases, profanity []string) *SpamDetector {
	if promoPhrases == nil {
		promoPhrases = DefaultPromoPhrases()
	}
	if profanity == nil {
		profanity = DefaultProfanity()
	}
	return &SpamDetector{promoPhrases: promoPhrases, profanity: profanity}
}

// DetectSpam scores text against the indicator battery. The score is the
// capped sum of every check that fired; Indicators names each one so
// moderators can see why a review was flagged.
func (d *SpamDetector) DetectSpam(text string) SpamResult {
	var (
		score      float64
		indicators []string
	)
	add := func(w float64, label string) {
		score += w
		indicators = append(indicators, label)
	}

	lower := strings.ToLower(text)

	if urlRe.MatchString(text) {
		add(0.4, "Contains URLs")
	}
	if bareWebRe.MatchString(text) {
		add(0.3, "Contains web addresses")
	}
	if emailRe.MatchString(text) {
		add(0.3, "Contains email addresses")
	}
	if phoneRe.MatchString(text) {
		add(0.25, "Contains phone numbers")
	}
	for _, p := range d.promoPhrases {
		if strings.Contains(lower, p) {
			add(0.15, "Contains promotional phrases")
			break
		}
	}
	if hasRepeatedRun(text) {
		add(0.2, "Excessive repeated characters")
	}
	if capsRatio(text) > 0.5 {
		add(0.15, "Excessive capitalization")
	}
	if excessPunc.MatchString(text) {
		add(0.1, "Excessive punctuation")
	}
	if len(text) < 20 {
		add(0.15, "Very short review")
	}

	if score > 1.0 {
		score = 1.0
	}
	return SpamResult{
		IsSpam:     score >= spamThreshold,
		SpamScore:  score,
		Indicators: indicators,
	}
}

// CheckProfanity matches the injected list case-insensitively as substrings
// and returns every hit.
func (d *SpamDetector) CheckProfanity(text string) ProfanityResult {
	lower := strings.ToLower(text)
	var hits []string
	for _, w := range d.profanity {
		if strings.Contains(lower, w) {
			hits = append(hits, w)
		}
	}
	return ProfanityResult{HasProfanity: len(hits) > 0, Words: hits}
}

// capsRatio is the share of letter-bearing words (len >= 2) written entirely
// in upper case.
func capsRatio(text string) float64 {
	var words, caps int
	for _, f := range strings.Fields(text) {
		hasLetter, allUpper := false, true
		for _, r := range f {
			if unicode.IsLetter(r) {
				hasLetter = true
				if !unicode.IsUpper(r) {
					allUpper = false
				}
			}
		}
		if !hasLetter || len([]rune(f)) < 2 {
			continue
		}
		words++
		if allUpper {
			caps++
		}
	}
	if words == 0 {
		return 0
	}
	return float64(caps) / float64(words)
}
