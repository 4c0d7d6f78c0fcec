// Package calceval evaluates calculator formulas with a restricted arithmetic
// grammar. Admin-submitted formulas never reach a general-purpose interpreter:
// the grammar allows numbers, named inputs, arithmetic operators, parentheses,
// and a fixed allowlist of functions. Nothing here can perform I/O, access
// properties, or call anything outside the allowlist.
package calceval

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Expr is a parsed, reusable formula.
type Expr struct {
	root   node
	source string
}

type node interface {
	eval(vars map[string]float64) (float64, error)
	collectVars(set map[string]struct{})
}

// Parse compiles the formula source. The returned Expr is safe for concurrent
// evaluation with different variable maps.
func Parse(source string) (*Expr, error) {
	toks, err := lex(source)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("unexpected %q at position %d", p.toks[p.pos].text, p.toks[p.pos].offset)
	}
	return &Expr{root: root, source: source}, nil
}

// Evaluate computes the formula against the given variables. Every identifier
// in the formula must be present in vars.
func (e *Expr) Evaluate(vars map[string]float64) (float64, error) {
	v, err := e.root.eval(vars)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("formula produced a non-finite result")
	}
	return v, nil
}

// Variables returns the sorted set of identifiers the formula references.
func (e *Expr) Variables() []string {
	set := make(map[string]struct{})
	e.root.collectVars(set)
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// --- lexer ---

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type tokenT struct {
	kind   tokenKind
	text   string
	value  float64
	offset int
}

func lex(source string) ([]tokenT, error) {
	var toks []tokenT
	runes := []rune(source)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r >= '0' && r <= '9' || r == '.':
			start := i
			for i < len(runes) && (runes[i] >= '0' && runes[i] <= '9' || runes[i] == '.') {
				i++
			}
			text := string(runes[start:i])
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q at position %d", text, start)
			}
			toks = append(toks, tokenT{kind: tokNumber, text: text, value: v, offset: start})
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			toks = append(toks, tokenT{kind: tokIdent, text: string(runes[start:i]), offset: start})
		case strings.ContainsRune("+-*/%^", r):
			toks = append(toks, tokenT{kind: tokOp, text: string(r), offset: i})
			i++
		case r == '(':
			toks = append(toks, tokenT{kind: tokLParen, text: "(", offset: i})
			i++
		case r == ')':
			toks = append(toks, tokenT{kind: tokRParen, text: ")", offset: i})
			i++
		case r == ',':
			toks = append(toks, tokenT{kind: tokComma, text: ",", offset: i})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", r, i)
		}
	}
	if len(toks) == 0 {
		return nil, fmt.Errorf("empty formula")
	}
	return toks, nil
}

// --- parser (precedence climbing) ---

type parser struct {
	toks []tokenT
	pos  int
}

func binaryPrecedence(op string) int {
	switch op {
	case "+", "-":
		return 1
	case "*", "/", "%":
		return 2
	case "^":
		return 3
	}
	return 0
}

func (p *parser) peek() (tokenT, bool) {
	if p.pos >= len(p.toks) {
		return tokenT{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) parseExpr(minPrec int) (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		tok, ok := p.peek()
		if !ok || tok.kind != tokOp {
			return left, nil
		}
		prec := binaryPrecedence(tok.text)
		if prec < minPrec {
			return left, nil
		}
		p.pos++

		// ^ is right-associative
		nextMin := prec + 1
		if tok.text == "^" {
			nextMin = prec
		}
		right, err := p.parseExpr(nextMin)
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: tok.text, left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of formula")
	}
	if tok.kind == tokOp && tok.text == "-" {
		p.pos++
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &negNode{operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of formula")
	}

	switch tok.kind {
	case tokNumber:
		p.pos++
		return &numberNode{value: tok.value}, nil

	case tokLParen:
		p.pos++
		inner, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return inner, nil

	case tokIdent:
		p.pos++
		next, ok := p.peek()
		if ok && next.kind == tokLParen {
			return p.parseCall(tok)
		}
		return &varNode{name: tok.text}, nil
	}

	return nil, fmt.Errorf("unexpected %q at position %d", tok.text, tok.offset)
}

func (p *parser) parseCall(name tokenT) (node, error) {
	fn, ok := functions[name.text]
	if !ok {
		return nil, fmt.Errorf("unknown function %q at position %d", name.text, name.offset)
	}
	p.pos++ // consume (

	var args []node
	if tok, ok := p.peek(); ok && tok.kind == tokRParen {
		p.pos++
	} else {
		for {
			arg, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			tok, ok := p.peek()
			if !ok {
				return nil, fmt.Errorf("unterminated call to %q", name.text)
			}
			if tok.kind == tokComma {
				p.pos++
				continue
			}
			if tok.kind == tokRParen {
				p.pos++
				break
			}
			return nil, fmt.Errorf("unexpected %q at position %d", tok.text, tok.offset)
		}
	}

	if len(args) < fn.minArgs || len(args) > fn.maxArgs {
		return nil, fmt.Errorf("function %q expects %d to %d arguments, got %d", name.text, fn.minArgs, fn.maxArgs, len(args))
	}
	return &callNode{name: name.text, fn: fn, args: args}, nil
}

func (p *parser) expect(kind tokenKind) error {
	tok, ok := p.peek()
	if !ok {
		return fmt.Errorf("unexpected end of formula")
	}
	if tok.kind != kind {
		return fmt.Errorf("unexpected %q at position %d", tok.text, tok.offset)
	}
	p.pos++
	return nil
}

// --- nodes ---

type numberNode struct {
	value float64
}

func (n *numberNode) eval(map[string]float64) (float64, error) { return n.value, nil }
func (n *numberNode) collectVars(map[string]struct{})          {}

type varNode struct {
	name string
}

func (n *varNode) eval(vars map[string]float64) (float64, error) {
	v, ok := vars[n.name]
	if !ok {
		return 0, fmt.Errorf("unknown variable %q", n.name)
	}
	return v, nil
}

func (n *varNode) collectVars(set map[string]struct{}) {
	set[n.name] = struct{}{}
}

type negNode struct {
	operand node
}

func (n *negNode) eval(vars map[string]float64) (float64, error) {
	v, err := n.operand.eval(vars)
	if err != nil {
		return 0, err
	}
	return -v, nil
}

func (n *negNode) collectVars(set map[string]struct{}) {
	n.operand.collectVars(set)
}

type binaryNode struct {
	op          string
	left, right node
}

func (n *binaryNode) eval(vars map[string]float64) (float64, error) {
	l, err := n.left.eval(vars)
	if err != nil {
		return 0, err
	}
	r, err := n.right.eval(vars)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return l / r, nil
	case "%":
		if r == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return math.Mod(l, r), nil
	case "^":
		return math.Pow(l, r), nil
	}
	return 0, fmt.Errorf("unknown operator %q", n.op)
}

func (n *binaryNode) collectVars(set map[string]struct{}) {
	n.left.collectVars(set)
	n.right.collectVars(set)
}

type callNode struct {
	name string
	fn   function
	args []node
}

func (n *callNode) eval(vars map[string]float64) (float64, error) {
	args := make([]float64, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(vars)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}
	return n.fn.apply(args), nil
}

func (n *callNode) collectVars(set map[string]struct{}) {
	for _, a := range n.args {
		a.collectVars(set)
	}
}

// --- function allowlist ---

type function struct {
	minArgs int
	maxArgs int
	apply   func([]float64) float64
}

var functions = map[string]function{
	"abs":   {1, 1, func(a []float64) float64 { return math.Abs(a[0]) }},
	"floor": {1, 1, func(a []float64) float64 { return math.Floor(a[0]) }},
	"ceil":  {1, 1, func(a []float64) float64 { return math.Ceil(a[0]) }},
	"round": {1, 1, func(a []float64) float64 { return math.Round(a[0]) }},
	"sqrt":  {1, 1, func(a []float64) float64 { return math.Sqrt(a[0]) }},
	"pow":   {2, 2, func(a []float64) float64 { return math.Pow(a[0], a[1]) }},
	"min": {2, 16, func(a []float64) float64 {
		v := a[0]
		for _, x := range a[1:] {
			v = math.Min(v, x)
		}
		return v
	}},
	"max": {2, 16, func(a []float64) float64 {
		v := a[0]
		for _, x := range a[1:] {
			v = math.Max(v, x)
		}
		return v
	}},
}
