// Package dump implements the dump/introspection component (I): it
// serializes a policy model back to the canonical classic-form text used
// for golden-output tests. Only UAG and ASG blocks are emitted: HAG
// definitions and ASG INP bindings are not written, so the parser reads
// the output back to the same model only for policies that have neither.
package dump

import (
	"sort"
	"strconv"
	"strings"

	"github.com/epics-controls/accesssecurity/internal/model"
)

// Policy renders p in the canonical format: UAGs sorted by name, then each
// ASG in declaration order, rules in declaration order, clauses in the
// fixed order UAG, HAG, METHOD, AUTHORITY, CALC. Indentation is one tab
// per nesting level; there is no blank line between top-level entities,
// and the result always ends with a trailing newline.
func Policy(p *model.Policy) string {
	var b strings.Builder

	names := make([]string, 0, len(p.UAGs))
	for n := range p.UAGs {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		uag := p.UAGs[n]
		b.WriteString("UAG(")
		b.WriteString(n)
		b.WriteString(") {")
		b.WriteString(strings.Join(uag.Users, ","))
		b.WriteString("}\n")
	}

	for _, n := range p.ASGOrder {
		asg, ok := p.ASGs[n]
		if !ok {
			continue
		}
		writeASG(&b, asg)
	}

	return b.String()
}

func writeASG(b *strings.Builder, asg *model.ASG) {
	b.WriteString("ASG(")
	b.WriteString(asg.Name)
	b.WriteString(") {\n")
	for _, r := range asg.Rules {
		writeRule(b, r)
	}
	b.WriteString("}\n")
}

func writeRule(b *strings.Builder, r *model.Rule) {
	b.WriteString("\tRULE(")
	b.WriteString(strconv.Itoa(r.Level))
	b.WriteString(",")
	b.WriteString(r.Access.String())
	b.WriteString(",")
	if r.TrapWrite {
		b.WriteString("TRAPWRITE")
	} else {
		b.WriteString("NOTRAPWRITE")
	}
	b.WriteString(")")

	if len(r.UAGs) == 0 && len(r.HAGs) == 0 && len(r.Methods) == 0 && len(r.Authorities) == 0 && r.Calc == "" {
		b.WriteString("\n")
		return
	}

	b.WriteString(" {\n")
	if len(r.UAGs) > 0 {
		b.WriteString("\t\tUAG(")
		b.WriteString(strings.Join(r.UAGs, ","))
		b.WriteString(")\n")
	}
	if len(r.HAGs) > 0 {
		b.WriteString("\t\tHAG(")
		b.WriteString(strings.Join(r.HAGs, ","))
		b.WriteString(")\n")
	}
	if len(r.Methods) > 0 {
		b.WriteString("\t\tMETHOD(")
		b.WriteString(quoteJoin(r.Methods))
		b.WriteString(")\n")
	}
	if len(r.Authorities) > 0 {
		b.WriteString("\t\tAUTHORITY(")
		b.WriteString(quoteJoin(r.Authorities))
		b.WriteString(")\n")
	}
	if r.Calc != "" {
		b.WriteString("\t\tCALC(\"")
		b.WriteString(r.Calc)
		b.WriteString("\")\n")
	}
	b.WriteString("\t}\n")
}

func quoteJoin(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "\"" + s + "\""
	}
	return strings.Join(quoted, ",")
}
