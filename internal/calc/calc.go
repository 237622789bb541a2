// Package calc adapts Google's Common Expression Language (CEL) as the
// calculator described by the core's external calculator interface:
// compile predicate text once, then evaluate it repeatedly against the
// scalar input vector A..L.
package calc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/epics-controls/accesssecurity/internal/model"
)

// maxExpressionLength bounds predicate text length; rule predicates are a
// handful of input letters and operators, never a document.
const maxExpressionLength = 1024

// maxCostBudget limits CEL runtime cost, guarding against a pathological
// predicate stalling a recompute.
const maxCostBudget = 10_000

// maxNestingDepth bounds parenthesis/bracket nesting depth.
const maxNestingDepth = 32

// evalTimeout bounds a single predicate evaluation.
const evalTimeout = 250 * time.Millisecond

// Engine compiles and evaluates calc predicates over the twelve input
// variables A..L.
type Engine struct {
	env *cel.Env
}

// NewEngine builds a CEL environment declaring A..L as double-typed
// variables plus the comparison/arithmetic operators CEL already supports;
// no custom functions are needed for calc predicates.
func NewEngine() (*Engine, error) {
	opts := make([]cel.EnvOption, 0, model.MaxInputs)
	for i := 0; i < model.MaxInputs; i++ {
		name := string(rune(model.InputLetter(i)))
		opts = append(opts, cel.Variable(name, cel.DoubleType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("calc: build environment: %w", err)
	}
	return &Engine{env: env}, nil
}

// Program is a compiled calc predicate.
type Program struct {
	prg     cel.Program
	ast     *cel.Ast
	inpUsed uint16
	source  string
}

// ensure Program satisfies model.CalcProgram.
var _ model.CalcProgram = (*Program)(nil)

// ValidateExpression checks expr is syntactically valid and within the
// engine's safety limits, without keeping the compiled program around.
func (e *Engine) ValidateExpression(expr string) error {
	if len(expr) > maxExpressionLength {
		return fmt.Errorf("calc: expression too long: %d characters (max %d)", len(expr), maxExpressionLength)
	}
	if expr == "" {
		return errors.New("calc: expression is empty")
	}
	if err := validateNesting(expr); err != nil {
		return err
	}
	_, err := e.Compile(expr)
	return err
}

func validateNesting(expr string) error {
	var depth, maxDepth int
	for _, ch := range expr {
		switch ch {
		case '(', '[':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case ')', ']':
			depth--
		}
	}
	if maxDepth > maxNestingDepth {
		return fmt.Errorf("calc: expression nesting too deep: %d levels (max %d)", maxDepth, maxNestingDepth)
	}
	return nil
}

// Compile parses, type-checks, and compiles a calc predicate, returning a
// ready-to-evaluate Program along with its referenced-input bitmap.
func (e *Engine) Compile(expr string) (*Program, error) {
	if len(expr) > maxExpressionLength {
		return nil, fmt.Errorf("calc: expression too long: %d characters (max %d)", len(expr), maxExpressionLength)
	}
	if err := validateNesting(expr); err != nil {
		return nil, err
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("calc: compilation failed: %w", issues.Err())
	}

	prg, err := e.env.Program(ast,
		cel.EvalOptions(cel.OptOptimize),
		cel.CostLimit(maxCostBudget),
	)
	if err != nil {
		return nil, fmt.Errorf("calc: program creation failed: %w", err)
	}

	return &Program{
		prg:     prg,
		ast:     ast,
		inpUsed: referencedInputs(ast),
		source:  expr,
	}, nil
}

// referencedInputs scans the compiled AST's canonical textual form for
// whole-token occurrences of each input letter A..L. A conservative,
// over-inclusive scan (never missing a real reference) is sufficient here:
// the bitmap only gates whether an input's "bad" bit forces the rule
// false, and an extra bit merely means one more input is watched.
func referencedInputs(ast *cel.Ast) uint16 {
	text, err := cel.AstToString(ast)
	if err != nil {
		return 0
	}
	var bitmap uint16
	for i := 0; i < model.MaxInputs; i++ {
		letter := model.InputLetter(i)
		if tokenPresent(text, letter) {
			bitmap |= 1 << uint(i)
		}
	}
	return bitmap
}

// tokenPresent reports whether letter appears in text as a standalone
// identifier (not part of a longer identifier or a quoted string literal).
func tokenPresent(text string, letter byte) bool {
	inString := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		if c != letter {
			continue
		}
		before := byte(0)
		if i > 0 {
			before = text[i-1]
		}
		after := byte(0)
		if i+1 < len(text) {
			after = text[i+1]
		}
		if isIdentByte(before) || isIdentByte(after) {
			continue
		}
		return true
	}
	return false
}

func isIdentByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// ReferencedInputs returns the bitmap of input indices this program reads.
func (p *Program) ReferencedInputs() uint16 {
	return p.inpUsed
}

// Source returns the original predicate text.
func (p *Program) Source() string {
	return p.source
}

// Evaluate runs the compiled program against the given input vector. Per
// the calc predicate contract: the result is FALSE iff any referenced
// input is invalid (bad) or the numeric result is zero; otherwise TRUE.
func (p *Program) Evaluate(inputs [model.MaxInputs]float64, bad uint16) (bool, error) {
	if p.inpUsed&bad != 0 {
		return false, nil
	}

	activation := make(map[string]any, model.MaxInputs)
	for i := 0; i < model.MaxInputs; i++ {
		name := string(rune(model.InputLetter(i)))
		activation[name] = inputs[i]
	}

	ctx, cancel := context.WithTimeout(context.Background(), evalTimeout)
	defer cancel()

	out, _, err := p.prg.ContextEval(ctx, activation)
	if err != nil {
		return false, fmt.Errorf("calc: evaluation failed: %w", err)
	}

	switch v := out.Value().(type) {
	case bool:
		return v, nil
	case float64:
		return v != 0, nil
	case int64:
		return v != 0, nil
	default:
		return false, fmt.Errorf("calc: predicate %q did not return a bool or number, got %T", p.source, out.Value())
	}
}

// alwaysTrue is the implicit predicate for a rule with no CALC clause.
type alwaysTrue struct{}

var _ model.CalcProgram = alwaysTrue{}

func (alwaysTrue) Evaluate([model.MaxInputs]float64, uint16) (bool, error) { return true, nil }

// AlwaysTrue returns the shared "no predicate" program.
func AlwaysTrue() model.CalcProgram { return alwaysTrue{} }
