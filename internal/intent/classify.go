package intent

import (
	"regexp"
	"strings"
)

// Predicate pattern sets. Matching is unanchored and runs on lower-cased input.
var (
	mathPatterns = compileAll(
		`\d+\s*[+\-*/]\s*\d+`,
		`\([^)]*\)`,
		`\b(sin|cos|tan|log|sqrt|pow|abs|ceil|floor|round)\s*\(`,
		`\d+%\s*(of|from|in)`,
		`[+\-*/=<>]`,
		`\d+\^\d+|\d+\*\*\d+|\d+\s*/\s*\d+`,
		`\b(calculate|compute|solve|add|subtract|multiply|divide|sum|total|average|mean)\b`,
	)

	conversionPatterns = compileAll(
		`(?i)\b(convert|conversion|to|from)\b.*\b(kg|pound|lb|meter|feet|inch|cm|km|mile|celsius|fahrenheit|kelvin)\b`,
		`(?i)\b(convert|conversion|to|from)\b.*\b(usd|eur|gbp|jpy|cad|aud|dollar|euro|pound|yen)\b`,
		`(?i)\b(convert|conversion|to|from)\b.*\b(hour|minute|second|day|week|month|year)\b`,
		`(?i)\b(convert|conversion|to|from)\b.*\b(celsius|fahrenheit|kelvin|°c|°f)\b`,
	)

	codePatterns = compileAll(
		`(?i)\b(format|beautify|prettify|minify)\b.*\b(code|json|html|css|javascript|python|java)\b`,
		`(?i)\b(generate|create|write|code)\b.*\b(function|class|method|api|endpoint)\b`,
		`(?i)\b(syntax|highlight|color)\b.*\b(code|programming)\b`,
	)

	factualPatterns = compileAll(
		`\b(what is|define|definition of)\b`,
		`\b(how many|how much|when was|who is|where is)\b`,
		`\b(explain|tell me about)\b.*\b(briefly|simply|in simple terms)\b`,
	)

	researchPatterns = compileAll(
		`\b(latest|recent|current|news|today|this year)\b`,
		`\b(research|study|analysis|trends|statistics|data)\b`,
		`\b(comprehensive|detailed|in-depth|thorough)\b`,
		`\b(compare|vs|versus|difference between|pros and cons)\b`,
		`\b(how to|tutorial|guide|steps|process)\b`,
	)
)

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

func isMath(q string) bool       { return matchAny(mathPatterns, q) }
func isConversion(q string) bool { return matchAny(conversionPatterns, q) }
func isCode(q string) bool       { return matchAny(codePatterns, q) }
func isFactual(q string) bool    { return matchAny(factualPatterns, q) }
func isResearch(q string) bool   { return matchAny(researchPatterns, q) }

// isMixed re-runs the math and research predicates independently of the
// ordered checks.
func isMixed(q string) bool { return isMath(q) && isResearch(q) }

// Classifier routes free text to a response method. The zero value applies
// the default precedence and is safe for concurrent use.
type Classifier struct {
	mixedFirst bool
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithMixedFirst evaluates the mixed check before every other predicate.
// Without it the mixed branch sits after the math and research checks and
// can never be selected.
func WithMixedFirst() Option {
	return func(c *Classifier) { c.mixedFirst = true }
}

// NewClassifier returns a Classifier with the given options applied.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultClassifier = &Classifier{}

// Classify routes query using the default precedence.
func Classify(query string) Classification {
	return defaultClassifier.Classify(query)
}

// Classify maps query to exactly one Classification. The first satisfied
// predicate wins. It never fails; unmatched input defaults to web search.
func (c *Classifier) Classify(query string) Classification {
	q := strings.ToLower(strings.TrimSpace(query))

	if c.mixedFirst && isMixed(q) {
		return mixed()
	}

	switch {
	case isMath(q):
		return Classification{
			Type:          KindTool,
			Confidence:    0.9,
			Reasoning:     "Mathematical expression detected",
			SuggestedTool: ToolCalculator,
		}
	case isConversion(q):
		return Classification{
			Type:          KindTool,
			Confidence:    0.8,
			Reasoning:     "Unit conversion detected",
			SuggestedTool: ToolConverter,
		}
	case isCode(q):
		return Classification{
			Type:          KindTool,
			Confidence:    0.7,
			Reasoning:     "Code-related query detected",
			SuggestedTool: ToolFormatter,
		}
	case isFactual(q):
		return Classification{
			Type:          KindTool,
			Confidence:    0.6,
			Reasoning:     "Simple factual query that can be answered directly",
			SuggestedTool: ToolGenerator,
		}
	case isResearch(q):
		return Classification{
			Type:       KindWebSearch,
			Confidence: 0.9,
			Reasoning:  "Research or current information query detected",
		}
	case !c.mixedFirst && isMixed(q):
		return mixed()
	}

	return Classification{
		Type:       KindWebSearch,
		Confidence: 0.5,
		Reasoning:  "Default to web search for comprehensive information",
	}
}

func mixed() Classification {
	return Classification{
		Type:       KindMixed,
		Confidence: 0.7,
		Reasoning:  "Query contains both computational and research elements",
	}
}
