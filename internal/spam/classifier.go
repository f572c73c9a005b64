// Package spam implements the deterministic keyword-based ingress
// classifier. It is pure and side-effect-free: callers supply the keyword
// lists via config.SpamConfig, so the classifier never touches a
// filesystem or network.
package spam

import "strings"

const (
	subjectKeywordWeight = 1.5
	contentKeywordWeight = 1.0
	senderPatternWeight  = 0.5
)

// Signal is the classifier's verdict for one ingress email.
type Signal struct {
	IsSpam         bool
	Score          float64
	MatchedKeyword []string
}

// Classifier scores messages against a fixed set of keyword lists.
type Classifier struct {
	hardBlockKeywords  []string
	suspiciousPatterns []string
	threshold          float64
}

// New builds a Classifier from the supplied lists. Keywords and patterns
// are matched case-insensitively.
func New(hardBlockKeywords, suspiciousPatterns []string, threshold float64) *Classifier {
	return &Classifier{
		hardBlockKeywords:  hardBlockKeywords,
		suspiciousPatterns: suspiciousPatterns,
		threshold:          threshold,
	}
}

// Classify scores subject, content, and the sender address, returning
// IsSpam = score >= threshold.
func (c *Classifier) Classify(subject, content, senderAddr string) Signal {
	subjectLower := strings.ToLower(subject)
	contentLower := strings.ToLower(content)
	senderLower := strings.ToLower(senderAddr)

	var score float64
	var matched []string

	for _, kw := range c.hardBlockKeywords {
		kwLower := strings.ToLower(kw)
		if kwLower == "" {
			continue
		}
		hit := false
		if strings.Contains(subjectLower, kwLower) {
			score += subjectKeywordWeight
			hit = true
		}
		if strings.Contains(contentLower, kwLower) {
			score += contentKeywordWeight
			hit = true
		}
		if hit {
			matched = append(matched, kw)
		}
	}

	for _, pattern := range c.suspiciousPatterns {
		patternLower := strings.ToLower(pattern)
		if patternLower == "" {
			continue
		}
		if strings.Contains(senderLower, patternLower) {
			score += senderPatternWeight
			matched = append(matched, pattern)
		}
	}

	return Signal{
		IsSpam:         score >= c.threshold,
		Score:          score,
		MatchedKeyword: matched,
	}
}
