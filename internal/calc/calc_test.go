package calc

import (
	"testing"

	"github.com/epics-controls/accesssecurity/internal/model"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	return e
}

func TestCompileAndEvaluateSimple(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	prog, err := e.Compile("A > 0.0")
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	var inputs [model.MaxInputs]float64
	inputs[0] = 1
	ok, err := prog.Evaluate(inputs, 0)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !ok {
		t.Error("Evaluate(A=1) for 'A > 0.0' = false, want true")
	}

	inputs[0] = -1
	ok, err = prog.Evaluate(inputs, 0)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if ok {
		t.Error("Evaluate(A=-1) for 'A > 0.0' = true, want false")
	}
}

func TestEvaluateBadInputForcesFalse(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	prog, err := e.Compile("A > 0.0")
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	var inputs [model.MaxInputs]float64
	inputs[0] = 1
	badA := uint16(1) << 0
	ok, err := prog.Evaluate(inputs, badA)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if ok {
		t.Error("Evaluate() with a referenced input marked bad should be false regardless of value")
	}
}

func TestEvaluateUnrelatedBadInputDoesNotForceFalse(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	prog, err := e.Compile("A > 0.0")
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	var inputs [model.MaxInputs]float64
	inputs[0] = 1
	badB := uint16(1) << 1
	ok, err := prog.Evaluate(inputs, badB)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !ok {
		t.Error("Evaluate() should not be forced false by a bad input the predicate never references")
	}
}

func TestReferencedInputsBitmap(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	prog, err := e.Compile("A > 0.0 && C < 5.0")
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	want := uint16(1)<<0 | uint16(1)<<2
	if got := prog.ReferencedInputs(); got != want {
		t.Errorf("ReferencedInputs() = %012b, want %012b", got, want)
	}
}

func TestAlwaysTrueIgnoresBadInputs(t *testing.T) {
	t.Parallel()

	prog := AlwaysTrue()
	var inputs [model.MaxInputs]float64
	ok, err := prog.Evaluate(inputs, 0xFFFF)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !ok {
		t.Error("AlwaysTrue() should always evaluate true")
	}
}

func TestCompileSyntaxError(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	if _, err := e.Compile("A >>> 0"); err == nil {
		t.Fatal("Compile() with invalid syntax should fail")
	}
}

func TestCompileRejectsUnknownVariable(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	if _, err := e.Compile("Z > 0.0"); err == nil {
		t.Fatal("Compile() referencing an undeclared variable should fail")
	}
}

func TestCompileTooLong(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	long := make([]byte, maxExpressionLength+1)
	for i := range long {
		long[i] = 'A'
	}
	if _, err := e.Compile(string(long)); err == nil {
		t.Fatal("Compile() with an over-long expression should fail")
	}
}

func TestCompileTooDeeplyNested(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	expr := ""
	for i := 0; i <= maxNestingDepth; i++ {
		expr += "("
	}
	expr += "A > 0.0"
	for i := 0; i <= maxNestingDepth; i++ {
		expr += ")"
	}
	if _, err := e.Compile(expr); err == nil {
		t.Fatal("Compile() with too much nesting should fail")
	}
}

func TestValidateExpressionEmpty(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	if err := e.ValidateExpression(""); err == nil {
		t.Fatal("ValidateExpression(\"\") should fail")
	}
}

func TestValidateExpressionValid(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	if err := e.ValidateExpression("A > 0.0"); err != nil {
		t.Errorf("ValidateExpression() unexpected error: %v", err)
	}
}

func TestEvaluateNumericNonzeroIsTrue(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	prog, err := e.Compile("A")
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	var inputs [model.MaxInputs]float64
	inputs[0] = 2.5
	ok, err := prog.Evaluate(inputs, 0)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !ok {
		t.Error("Evaluate() for a nonzero numeric result should be true")
	}

	inputs[0] = 0
	ok, err = prog.Evaluate(inputs, 0)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if ok {
		t.Error("Evaluate() for a zero numeric result should be false")
	}
}
