package evaluation

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	ClaimTypeURL            = "URL"
	ClaimTypeNumeric        = "NUMERIC"
	ClaimTypeRecommendation = "RECOMMENDATION"
	ClaimTypeAssertion      = "ASSERTION"
	ClaimTypeUnknown        = "UNKNOWN"
)

var (
	urlPattern            = regexp.MustCompile(`(?i)https?://|www\.|\[http`)
	numericPattern        = regexp.MustCompile(`(?i)\d{1,3}(,\d{3})?|\bRs\b|\bUSD\b|\$|\bkg\b|\bpercent\b`)
	recommendationPattern = regexp.MustCompile(`(?i)\b(should|must|recommend|advice|best)\b`)
	modalPattern          = regexp.MustCompile(`(?i)\b(is|are|was|were|has|have|had|will|should|must)\b`)
	digitPattern          = regexp.MustCompile(`\d`)
	properNounPattern     = regexp.MustCompile(`\b[A-Z][a-z]{2,}\b`)
)

// ClaimType tags a claim to help graders interpret it. Precedence:
// URL, NUMERIC, RECOMMENDATION, then ASSERTION.
func ClaimType(text string) string {
	if text == "" {
		return ClaimTypeUnknown
	}
	if urlPattern.MatchString(text) {
		return ClaimTypeURL
	}
	if numericPattern.MatchString(text) {
		return ClaimTypeNumeric
	}
	if recommendationPattern.MatchString(text) {
		return ClaimTypeRecommendation
	}
	return ClaimTypeAssertion
}

// ExtractCandidateClaims splits a reply into sentences and keeps those that
// look like factual statements: containing a digit, a modal/copula word, or
// a capitalized word of three or more letters. Duplicates are removed,
// preserving first occurrence order.
func ExtractCandidateClaims(aiText string) []string {
	var claims []string
	seen := make(map[string]bool)

	for _, sentence := range splitSentences(aiText) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		candidate := digitPattern.MatchString(sentence) ||
			modalPattern.MatchString(sentence) ||
			properNounPattern.MatchString(sentence)
		if !candidate {
			continue
		}

		if !seen[sentence] {
			seen[sentence] = true
			claims = append(claims, sentence)
		}
	}

	return claims
}

// splitSentences breaks text after '.', '?' or '!' followed by whitespace,
// consuming the whitespace run. Punctuation not followed by whitespace
// (decimals, URLs) does not split.
func splitSentences(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	runes := []rune(trimmed)
	var sentences []string
	start := 0
	i := 0
	for i < len(runes) {
		r := runes[i]
		if (r == '.' || r == '?' || r == '!') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			sentences = append(sentences, string(runes[start:i+1]))
			i++
			for i < len(runes) && unicode.IsSpace(runes[i]) {
				i++
			}
			start = i
			continue
		}
		i++
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}

	return sentences
}
