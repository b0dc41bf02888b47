package diabicus

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sort"
	"strconv"
	"strings"
	"text/scanner"

	"go.uber.org/zap"
)

// AnsName is the pseudo-variable bound to the previous result.
const AnsName = "Ans"

// AngleMode selects how trigonometric functions read their argument.
type AngleMode string

const (
	Radians AngleMode = "radians"
	Degrees AngleMode = "degrees"
)

// Func is a calculator function of one argument.
type Func func(Value) (Value, error)

// Evaluator computes normalized expressions over a fixed table of constants
// and functions. The previous result is passed to every call rather than
// stored, so one Evaluator may serve many sessions.
type Evaluator struct {
	constants map[string]Value
	functions map[string]Func
	angle     AngleMode
	logger    *zap.Logger
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

func WithAngleMode(m AngleMode) EvaluatorOption {
	return func(e *Evaluator) { e.angle = m }
}

func WithEvaluatorLogger(l *zap.Logger) EvaluatorOption {
	return func(e *Evaluator) { e.logger = l }
}

// WithConstant binds an extra named constant.
func WithConstant(name string, v Value) EvaluatorOption {
	return func(e *Evaluator) { e.constants[name] = v }
}

// WithFunction binds an extra function of one argument.
func WithFunction(name string, fn Func) EvaluatorOption {
	return func(e *Evaluator) { e.functions[name] = fn }
}

// NewEvaluator binds π, τ, e, φ, i and the functions ln, sqrt, sin, cos
// and tan.
func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		constants: map[string]Value{
			"π": Real(math.Pi),
			"τ": Real(Tau),
			"e": Real(math.E),
			"φ": Real(GoldenRatio),
			"i": Complex(I),
		},
		angle:  Radians,
		logger: zap.NewNop(),
	}
	e.functions = map[string]Func{
		"ln":   ln,
		"sqrt": sqrt,
		"sin":  e.trig(math.Sin),
		"cos":  e.trig(math.Cos),
		"tan":  e.trig(math.Tan),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) AngleMode() AngleMode { return e.angle }

// Names returns what Normalize must know about this evaluator.
func (e *Evaluator) Names() Names {
	vars := []string{AnsName}
	for name := range e.constants {
		vars = append(vars, name)
	}
	fns := make([]string, 0, len(e.functions))
	for name := range e.functions {
		fns = append(fns, name)
	}
	sort.Strings(vars)
	sort.Strings(fns)
	return Names{Variables: vars, Functions: fns}
}

// Compute normalizes raw calculator input, evaluates it with Ans bound to
// ans, and simplifies the result.
func (e *Evaluator) Compute(input string, ans Value) (Value, error) {
	expr := Normalize(input, e.Names())
	v, err := e.Evaluate(expr, ans)
	if err != nil {
		return Value{}, err
	}
	return v.Simplify(), nil
}

// Evaluate computes an already normalized expression. Every failure comes
// back as a *ComputationError; nothing panics past this call.
func (e *Evaluator) Evaluate(expr string, ans Value) (v Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("evaluate: internal fault",
				zap.String("expr", expr), zap.Any("panic", r))
			v, err = Value{}, newComputationError(ErrComputation, fmt.Errorf("panic: %v", r))
		}
	}()

	tree, err := parse(expr)
	if err != nil {
		return Value{}, err
	}
	v, err = tree.eval(&env{eval: e, ans: ans})
	if err != nil {
		var ce *ComputationError
		if !errors.As(err, &ce) {
			ce = newComputationError(ErrComputation, err)
		}
		if ce.Kind == ErrOverflow || ce.Kind == ErrComputation {
			e.logger.Error("evaluate: error evaluating expression",
				zap.String("expr", expr), zap.Error(ce))
		}
		return Value{}, ce
	}
	return v, nil
}

// ============================================================
// Functions
// ============================================================

func ln(v Value) (Value, error) {
	v = v.Simplify()
	f, ok := v.Float64()
	if !ok || f <= 0 {
		return Value{}, newComputationError(ErrComputation, errors.New("math domain error"))
	}
	return finishReal(math.Log(f))
}

func sqrt(v Value) (Value, error) {
	if v.IsError() {
		return Value{}, v.err
	}
	return finishComplex(cmplx.Sqrt(v.Complex128()))
}

func (e *Evaluator) trig(fn func(float64) float64) Func {
	return func(v Value) (Value, error) {
		f, ok := v.Simplify().Float64()
		if !ok {
			return Value{}, newComputationError(ErrComputation, errors.New("trigonometry of a complex number"))
		}
		if e.angle == Degrees {
			f = f * math.Pi / 180
		}
		return finishReal(fn(f))
	}
}

// ============================================================
// Expression tree
// ============================================================

type env struct {
	eval *Evaluator
	ans  Value
}

type node interface {
	eval(*env) (Value, error)
}

type numLit struct{ v Value }

func (n numLit) eval(*env) (Value, error) { return n.v, nil }

type nameRef struct{ name string }

func (n nameRef) eval(en *env) (Value, error) {
	if n.name == AnsName {
		return en.ans, nil
	}
	if v, ok := en.eval.constants[n.name]; ok {
		return v, nil
	}
	return Value{}, newComputationError(ErrComputation, fmt.Errorf("name %q is not defined", n.name))
}

type unaryOp struct {
	op   rune
	expr node
}

func (u unaryOp) eval(en *env) (Value, error) {
	v, err := u.expr.eval(en)
	if err != nil {
		return Value{}, err
	}
	if u.op == '-' {
		return Neg(v)
	}
	return v, nil
}

type binOp struct {
	op          string
	left, right node
}

func (b binOp) eval(en *env) (Value, error) {
	x, err := b.left.eval(en)
	if err != nil {
		return Value{}, err
	}
	y, err := b.right.eval(en)
	if err != nil {
		return Value{}, err
	}
	switch b.op {
	case "+":
		return Add(x, y)
	case "-":
		return Sub(x, y)
	case "*":
		return Mul(x, y)
	case "/":
		return Div(x, y)
	case "**":
		return Pow(x, y)
	}
	return Value{}, newComputationError(ErrComputation, fmt.Errorf("unsupported operator %q", b.op))
}

type call struct {
	name string
	arg  node
}

func (c call) eval(en *env) (Value, error) {
	fn, ok := en.eval.functions[c.name]
	if !ok {
		return Value{}, newComputationError(ErrComputation, fmt.Errorf("function %q is not defined", c.name))
	}
	v, err := c.arg.eval(en)
	if err != nil {
		return Value{}, err
	}
	return fn(v)
}

// ============================================================
// Parser
// ============================================================
//
//	expr    = term { ("+" | "-") term }
//	term    = unary { ("*" | "/") unary }
//	unary   = ("+" | "-") unary | power
//	power   = primary [ "**" unary ]
//	primary = number | name | name "(" expr ")" | "(" expr ")"

type parser struct {
	s    scanner.Scanner
	tok  rune
	text string
	err  error
}

func parse(expr string) (node, error) {
	p := &parser{}
	p.s.Init(strings.NewReader(expr))
	p.s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats
	p.s.Error = func(_ *scanner.Scanner, msg string) { p.fail(msg) }
	p.next()
	n := p.expr()
	if p.err == nil && p.tok != scanner.EOF {
		p.fail(fmt.Sprintf("unexpected %q", p.text))
	}
	if p.err != nil {
		return nil, newComputationError(ErrSyntax, p.err)
	}
	return n, nil
}

func (p *parser) fail(msg string) {
	if p.err == nil {
		p.err = errors.New(msg)
	}
}

func (p *parser) next() {
	p.tok = p.s.Scan()
	p.text = p.s.TokenText()
}

// peekPower reports whether the current "*" is the first half of "**".
func (p *parser) peekPower() bool {
	return p.tok == '*' && p.s.Peek() == '*'
}

func (p *parser) expr() node {
	n := p.term()
	for p.err == nil && (p.tok == '+' || p.tok == '-') {
		op := string(p.tok)
		p.next()
		n = binOp{op: op, left: n, right: p.term()}
	}
	return n
}

func (p *parser) term() node {
	n := p.unary()
	for p.err == nil && (p.tok == '*' || p.tok == '/') && !p.peekPower() {
		op := string(p.tok)
		p.next()
		n = binOp{op: op, left: n, right: p.unary()}
	}
	return n
}

func (p *parser) unary() node {
	if p.tok == '+' || p.tok == '-' {
		op := p.tok
		p.next()
		return unaryOp{op: op, expr: p.unary()}
	}
	return p.power()
}

func (p *parser) power() node {
	n := p.primary()
	if p.err == nil && p.peekPower() {
		p.next()
		p.next()
		return binOp{op: "**", left: n, right: p.unary()}
	}
	return n
}

func (p *parser) primary() node {
	if p.err != nil {
		return nil
	}
	switch p.tok {
	case scanner.Int:
		text := p.text
		p.next()
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return numLit{Int(n)}
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			p.fail("bad number " + text)
		}
		return numLit{Real(f)}
	case scanner.Float:
		text := p.text
		p.next()
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			p.fail("bad number " + text)
		}
		return numLit{Real(f)}
	case scanner.Ident:
		name := p.text
		p.next()
		if p.tok != '(' {
			return nameRef{name: name}
		}
		p.next()
		arg := p.expr()
		p.expect(')')
		return call{name: name, arg: arg}
	case '(':
		p.next()
		n := p.expr()
		p.expect(')')
		return n
	case scanner.EOF:
		p.fail("unexpected end of expression")
	default:
		p.fail(fmt.Sprintf("unexpected %q", p.text))
	}
	return nil
}

func (p *parser) expect(tok rune) {
	if p.err != nil {
		return
	}
	if p.tok != tok {
		p.fail(fmt.Sprintf("expected %q, found %q", tok, p.text))
		return
	}
	p.next()
}
