package dump

import (
	"strings"
	"testing"

	"github.com/epics-controls/accesssecurity/internal/model"
)

func TestPolicyUAGsSortedByName(t *testing.T) {
	t.Parallel()

	p := model.NewPolicy()
	p.UAGs["zeta"] = &model.UAG{Name: "zeta", Users: []string{"z1"}}
	p.UAGs["alpha"] = &model.UAG{Name: "alpha", Users: []string{"a1", "a2"}}
	p.ASGs["DEFAULT"] = &model.ASG{Name: "DEFAULT", Rules: []*model.Rule{{Access: model.AccessNone}}}
	p.ASGOrder = []string{"DEFAULT"}

	out := Policy(p)

	alphaIdx := strings.Index(out, "UAG(alpha)")
	zetaIdx := strings.Index(out, "UAG(zeta)")
	if alphaIdx < 0 || zetaIdx < 0 || alphaIdx > zetaIdx {
		t.Errorf("UAGs not sorted by name in dump:\n%s", out)
	}
	if !strings.Contains(out, "UAG(alpha) {a1,a2}\n") {
		t.Errorf("dump missing expected UAG(alpha) line:\n%s", out)
	}
}

func TestPolicyASGsInDeclarationOrder(t *testing.T) {
	t.Parallel()

	p := model.NewPolicy()
	p.ASGs["B"] = &model.ASG{Name: "B", Rules: []*model.Rule{{Access: model.AccessRead}}}
	p.ASGs["A"] = &model.ASG{Name: "A", Rules: []*model.Rule{{Access: model.AccessWrite}}}
	p.ASGOrder = []string{"B", "A"}

	out := Policy(p)
	bIdx := strings.Index(out, "ASG(B)")
	aIdx := strings.Index(out, "ASG(A)")
	if bIdx < 0 || aIdx < 0 || bIdx > aIdx {
		t.Errorf("ASGs not emitted in declaration order:\n%s", out)
	}
}

func TestWriteRuleMinimal(t *testing.T) {
	t.Parallel()

	p := model.NewPolicy()
	p.ASGs["DEFAULT"] = &model.ASG{Name: "DEFAULT", Rules: []*model.Rule{{Access: model.AccessNone, Level: 0}}}
	p.ASGOrder = []string{"DEFAULT"}

	out := Policy(p)
	if !strings.Contains(out, "RULE(0,NONE,NOTRAPWRITE)\n") {
		t.Errorf("expected a bare RULE line with no clause block, got:\n%s", out)
	}
}

func TestWriteRuleWithClauses(t *testing.T) {
	t.Parallel()

	p := model.NewPolicy()
	rule := &model.Rule{
		Access:      model.AccessWrite,
		Level:       1,
		TrapWrite:   true,
		UAGs:        []string{"ops"},
		HAGs:        []string{"trusted"},
		Methods:     []string{"ca"},
		Authorities: []string{"x509"},
		Calc:        "A > 0.0",
	}
	p.ASGs["DEFAULT"] = &model.ASG{Name: "DEFAULT", Rules: []*model.Rule{rule}}
	p.ASGOrder = []string{"DEFAULT"}

	out := Policy(p)

	if !strings.Contains(out, "RULE(1,WRITE,TRAPWRITE) {\n") {
		t.Errorf("missing expected rule header, got:\n%s", out)
	}
	wantClauses := []string{
		"\t\tUAG(ops)\n",
		"\t\tHAG(trusted)\n",
		"\t\tMETHOD(\"ca\")\n",
		"\t\tAUTHORITY(\"x509\")\n",
		"\t\tCALC(\"A > 0.0\")\n",
	}
	for _, want := range wantClauses {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing clause %q, got:\n%s", want, out)
		}
	}

	// Clause ordering: UAG, HAG, METHOD, AUTHORITY, CALC.
	order := []string{"UAG(ops)", "HAG(trusted)", "METHOD(", "AUTHORITY(", "CALC("}
	last := -1
	for _, tok := range order {
		idx := strings.Index(out, tok)
		if idx < 0 {
			t.Fatalf("expected to find %q in dump", tok)
		}
		if idx < last {
			t.Errorf("clause %q appeared out of order", tok)
		}
		last = idx
	}
}

func TestPolicyEndsWithTrailingNewline(t *testing.T) {
	t.Parallel()

	p := model.NewPolicy()
	p.EnsureDefault()
	out := Policy(p)
	if !strings.HasSuffix(out, "\n") {
		t.Error("Policy() output should end with a trailing newline")
	}
}
