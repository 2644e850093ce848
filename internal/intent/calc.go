package intent

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Candidate extractors, tried in order. The first capture group is the expression.
var extractPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+(?:\.\d+)?\s*[+\-*/]\s*\d+(?:\.\d+)?(?:\s*[+\-*/]\s*\d+(?:\.\d+)?)*)`),
	regexp.MustCompile(`(\([^)]*\))`),
	regexp.MustCompile(`(\d+\s*[+\-*/]\s*\d+)`),
}

// maxDepth bounds parenthesis and unary-sign nesting in the evaluator.
const maxDepth = 64

var errSyntax = errors.New("invalid expression")

// ExtractExpression returns the first arithmetic candidate found in query.
func ExtractExpression(query string) (string, bool) {
	for _, p := range extractPatterns {
		if m := p.FindStringSubmatch(query); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}

// Sanitize keeps digits, the four operators, parentheses, and the decimal
// point. Whitespace becomes a plain space; every other rune is dropped.
func Sanitize(expr string) string {
	var sb strings.Builder
	sb.Grow(len(expr))
	for _, r := range expr {
		switch {
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case strings.ContainsRune("+-*/().", r):
			sb.WriteRune(r)
		case unicode.IsSpace(r):
			sb.WriteByte(' ')
		}
	}
	return strings.TrimSpace(sb.String())
}

// Evaluate parses and evaluates a sanitized arithmetic expression with the
// usual precedence. Non-finite results are errors.
func Evaluate(expr string) (float64, error) {
	p := &parser{src: expr}
	v, err := p.expr(0)
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return 0, errSyntax
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("result is not a finite number")
	}
	return v, nil
}

// FormatNumber renders integers without a decimal point and everything else
// with six decimals, trailing zeros trimmed.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// parser is a recursive-descent evaluator over the sanitized alphabet.
//
//	expr   := term (('+'|'-') term)*
//	term   := factor (('*'|'/') factor)*
//	factor := ('+'|'-') factor | number | '(' expr ')'
type parser struct {
	src string
	pos int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) expr(depth int) (float64, error) {
	left, err := p.term(depth)
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.term(depth)
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *parser) term(depth int) (float64, error) {
	left, err := p.factor(depth)
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.factor(depth)
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
		} else {
			left /= right
		}
	}
}

func (p *parser) factor(depth int) (float64, error) {
	if depth > maxDepth {
		return 0, errors.New("expression nested too deeply")
	}
	switch c := p.peek(); {
	case c == '+' || c == '-':
		p.pos++
		v, err := p.factor(depth + 1)
		if err != nil {
			return 0, err
		}
		if c == '-' {
			v = -v
		}
		return v, nil
	case c == '(':
		p.pos++
		v, err := p.expr(depth + 1)
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, errSyntax
		}
		p.pos++
		return v, nil
	case c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	default:
		return 0, errSyntax
	}
}

func (p *parser) number() (float64, error) {
	start := p.pos
	digits, dots := 0, 0
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c >= '0' && c <= '9' {
			digits++
		} else if c == '.' {
			dots++
		} else {
			break
		}
		p.pos++
	}
	if digits == 0 || dots > 1 {
		return 0, errSyntax
	}
	return strconv.ParseFloat(p.src[start:p.pos], 64)
}
