package extraction

import (
	"context"
	"regexp"
	"strings"

	"github.com/credohq/credo/internal/domain"
)

const (
	baseConfidence     = 0.8
	certaintyBoost     = 0.15
	uncertaintyPenalty = 0.3
	statementObjectCap = 50
)

var (
	preferencePattern  = regexp.MustCompile(`(?i)(favorite|prefer|like|love|enjoy|hate|dislike)\s+(.+)`)
	factPattern        = regexp.MustCompile(`(?i)(.+)\s+(is|are|was|were)\s+(.+)`)
	relationPattern    = regexp.MustCompile(`(?i)(.+)\s+(knows|friend|married|related)\s+(.+)`)
	locationPattern    = regexp.MustCompile(`(?i)(.+)\s+(lives?|located|from)\s+(.+)`)
	negationPattern    = regexp.MustCompile(`(?i)\b(not|never|no|don't|doesn't|isn't|aren't|hate|dislike)\b`)
	certaintyPattern   = regexp.MustCompile(`(?i)\b(definitely|certainly|absolutely|sure|positive)\b`)
	uncertaintyPattern = regexp.MustCompile(`(?i)\b(maybe|perhaps|possibly|might|could|probably)\b`)
)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "i": true, "my": true, "now": true, "actually": true,
}

// PatternExtractor is the lexical extraction strategy: regular expressions
// for preference/fact/relationship/location statements, certainty markers for
// confidence, and word-overlap similarity. Fast and deterministic; a
// model-backed extractor can replace it behind the same interface.
type PatternExtractor struct{}

func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{}
}

func (e *PatternExtractor) Extract(_ context.Context, content, agentID string, category domain.BeliefCategory) []ExtractedBelief {
	content = strings.ToLower(strings.TrimSpace(content))
	if content == "" {
		return nil
	}

	var beliefs []ExtractedBelief
	confidence := e.confidence(content)
	positive := !negationPattern.MatchString(content)

	if preferencePattern.MatchString(content) {
		beliefs = append(beliefs, e.extractPreferences(content, agentID, confidence)...)
	}
	if factPattern.MatchString(content) {
		beliefs = append(beliefs, ExtractedBelief{
			Statement:  "fact: " + content,
			AgentID:    agentID,
			Category:   domain.CategoryFact,
			Confidence: confidence,
			Positive:   positive,
			Tags:       []string{"fact"},
		})
	}
	if relationPattern.MatchString(content) {
		beliefs = append(beliefs, ExtractedBelief{
			Statement:  "relationship: " + content,
			AgentID:    agentID,
			Category:   domain.CategoryRelationship,
			Confidence: confidence,
			Positive:   positive,
			Tags:       []string{"relationship"},
		})
	}
	if locationPattern.MatchString(content) {
		beliefs = append(beliefs, ExtractedBelief{
			Statement:  "location: " + content,
			AgentID:    agentID,
			Category:   domain.CategoryLocation,
			Confidence: confidence,
			Positive:   positive,
			Tags:       []string{"location"},
		})
	}

	// The ingest category, when supplied, overrides the pattern guess.
	if category != "" {
		for i := range beliefs {
			beliefs[i].Category = category
		}
	}

	return beliefs
}

func (e *PatternExtractor) extractPreferences(content, agentID string, confidence float64) []ExtractedBelief {
	var beliefs []ExtractedBelief
	negated := negationPattern.MatchString(content)

	if idx := strings.Index(content, "favorite"); idx >= 0 {
		beliefs = append(beliefs, ExtractedBelief{
			Statement:  "preference: " + content[idx:],
			AgentID:    agentID,
			Category:   domain.CategoryPreference,
			Confidence: confidence,
			Positive:   !negated,
			Tags:       []string{"preference", "favorite"},
		})
	}

	for _, verb := range []string{"love", "like", "enjoy", "prefer"} {
		if obj := objectAfter(content, verb); obj != "" {
			beliefs = append(beliefs, ExtractedBelief{
				Statement:  "likes: " + obj,
				AgentID:    agentID,
				Category:   domain.CategoryPreference,
				Confidence: confidence,
				Positive:   !negated,
				Tags:       []string{"preference", verb},
			})
			break
		}
	}

	for _, verb := range []string{"dislike", "hate"} {
		if obj := objectAfter(content, verb); obj != "" {
			// A dislike is the negative polarity of liking the same object,
			// so contradictions against "likes: X" statements line up.
			beliefs = append(beliefs, ExtractedBelief{
				Statement:  "likes: " + obj,
				AgentID:    agentID,
				Category:   domain.CategoryPreference,
				Confidence: confidence,
				Positive:   false,
				Tags:       []string{"preference", verb},
			})
			break
		}
	}

	return beliefs
}

// objectAfter returns the (length-capped) text following a verb, or "".
func objectAfter(content, verb string) string {
	idx := strings.Index(content, verb)
	if idx < 0 {
		return ""
	}
	rest := strings.TrimSpace(content[idx+len(verb):])
	if rest == "" {
		return ""
	}
	if len(rest) > statementObjectCap {
		rest = rest[:statementObjectCap]
	}
	return rest
}

func (e *PatternExtractor) confidence(content string) float64 {
	c := baseConfidence
	if certaintyPattern.MatchString(content) {
		c += certaintyBoost
	}
	if uncertaintyPattern.MatchString(content) {
		c -= uncertaintyPenalty
	}
	return domain.ClampConfidence(c)
}

// Similarity is the Jaccard index over non-stopword tokens; symmetric and
// within [0,1]. Negation tokens are excluded so the polarity of a statement
// does not mask that it is about the same subject.
func (e *PatternExtractor) Similarity(_ context.Context, a, b string) float64 {
	sa := tokenSet(a)
	sb := tokenSet(b)
	if len(sa) == 0 || len(sb) == 0 {
		if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) && strings.TrimSpace(a) != "" {
			return 1.0
		}
		return 0.0
	}

	intersection := 0
	for w := range sa {
		if sb[w] {
			intersection++
		}
	}
	union := len(sa) + len(sb) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,!?:;\"'")
		if w == "" || stopwords[w] || negationPattern.MatchString(w) {
			continue
		}
		set[w] = true
	}
	return set
}
