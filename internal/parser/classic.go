// Package parser implements the policy parser (component D): it reads
// either the classic brace-delimited ACF text or a structured YAML
// document and produces a fully populated model.Policy.
package parser

import (
	"fmt"

	"github.com/epics-controls/accesssecurity/internal/calc"
	"github.com/epics-controls/accesssecurity/internal/intern"
	"github.com/epics-controls/accesssecurity/internal/model"
)

// Options configures a parse.
type Options struct {
	// File is used only for error messages; it may be empty.
	File string
	// Text is the classic-form source, before macro substitution.
	Text string
	// Dict is the macro substitution dictionary ($(name) references).
	Dict map[string]string
	// Calc compiles rule predicates. Required.
	Calc *calc.Engine
}

// ParseClassic parses the classic brace-delimited form.
func ParseClassic(opts Options) (*model.Policy, error) {
	dict := opts.Dict
	if dict == nil {
		dict = map[string]string{}
	}
	runes, serr := expandMacros(opts.Text, dict)
	if serr != nil {
		serr.File = opts.File
		return nil, serr
	}

	p := &classicParser{
		lex:    newLexer(runes),
		file:   opts.File,
		calc:   opts.Calc,
		model:  model.NewPolicy(),
		intern: intern.New(),
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.parseFile(); err != nil {
		return nil, err
	}

	if len(p.model.ASGs) == 0 {
		return nil, &SyntaxError{File: opts.File, Pos: p.tok.pos, Msg: "no ASG defined", Err: errBadConfig}
	}
	if err := validateLinks(opts.File, p.model); err != nil {
		return nil, err
	}
	p.model.EnsureDefault()

	return p.model, nil
}

type classicParser struct {
	lex    *lexer
	tok    token
	file   string
	calc   *calc.Engine
	model  *model.Policy
	intern *intern.Table
}

func (p *classicParser) advance() error {
	tok, serr := p.lex.next()
	if serr != nil {
		serr.File = p.file
		return serr
	}
	p.tok = tok
	return nil
}

func (p *classicParser) errf(format string, args ...any) error {
	return &SyntaxError{File: p.file, Pos: p.tok.pos, Msg: fmt.Sprintf(format, args...), Err: errBadConfig}
}

func (p *classicParser) expect(kind tokKind, what string) (token, error) {
	if p.tok.kind != kind {
		return token{}, p.errf("expected %s, got %q", what, p.tok.text)
	}
	tok := p.tok
	if err := p.advance(); err != nil {
		return token{}, err
	}
	return tok, nil
}

func (p *classicParser) expectIdent(text string) error {
	if p.tok.kind != tokIdent || p.tok.text != text {
		return p.errf("expected %q, got %q", text, p.tok.text)
	}
	return p.advance()
}

// expectName accepts a bare identifier or a quoted string in a name
// position (UAG members, UAG/HAG references). The original ACF writes
// UAG members as quoted strings, e.g. UAG(foo) {"testing"}.
func (p *classicParser) expectName(what string) (token, error) {
	if p.tok.kind != tokIdent && p.tok.kind != tokString {
		return token{}, p.errf("expected %s, got %q", what, p.tok.text)
	}
	tok := p.tok
	if err := p.advance(); err != nil {
		return token{}, err
	}
	return tok, nil
}

func (p *classicParser) parseFile() error {
	for p.tok.kind == tokIdent {
		switch p.tok.text {
		case "UAG":
			if err := p.parseUAG(); err != nil {
				return err
			}
		case "HAG":
			if err := p.parseHAG(); err != nil {
				return err
			}
		case "ASG":
			if err := p.parseASG(); err != nil {
				return err
			}
		default:
			return p.errf("unexpected top-level keyword %q", p.tok.text)
		}
	}
	if p.tok.kind != tokEOF {
		return p.errf("unexpected token %q", p.tok.text)
	}
	return nil
}

func (p *classicParser) parseUAG() error {
	if err := p.advance(); err != nil { // consume "UAG"
		return err
	}
	if _, err := p.expect(tokLParen, "("); err != nil {
		return err
	}
	name, err := p.expect(tokIdent, "UAG name")
	if err != nil {
		return err
	}
	if _, exists := p.model.UAGs[name.text]; exists {
		return p.errf("duplicate UAG name %q", name.text)
	}
	if _, exists := p.model.HAGs[name.text]; exists {
		return p.errf("duplicate group name %q", name.text)
	}
	if _, exists := p.model.ASGs[name.text]; exists {
		return p.errf("duplicate group name %q", name.text)
	}
	if _, err := p.expect(tokRParen, ")"); err != nil {
		return err
	}
	if _, err := p.expect(tokLBrace, "{"); err != nil {
		return err
	}

	uag := &model.UAG{Name: p.intern.Intern(name.text)}
	for {
		u, err := p.expectName("user name")
		if err != nil {
			return err
		}
		uag.Users = append(uag.Users, p.intern.Intern(u.text))
		if p.tok.kind == tokComma {
			if err := p.advance(); err != nil {
				return err
			}
			continue
		}
		break
	}
	if _, err := p.expect(tokRBrace, "}"); err != nil {
		return err
	}
	p.model.UAGs[uag.Name] = uag
	return nil
}

func (p *classicParser) parseHAG() error {
	if err := p.advance(); err != nil {
		return err
	}
	if _, err := p.expect(tokLParen, "("); err != nil {
		return err
	}
	name, err := p.expect(tokIdent, "HAG name")
	if err != nil {
		return err
	}
	if _, exists := p.model.HAGs[name.text]; exists {
		return p.errf("duplicate HAG name %q", name.text)
	}
	if _, exists := p.model.UAGs[name.text]; exists {
		return p.errf("duplicate group name %q", name.text)
	}
	if _, exists := p.model.ASGs[name.text]; exists {
		return p.errf("duplicate group name %q", name.text)
	}
	if _, err := p.expect(tokRParen, ")"); err != nil {
		return err
	}
	if _, err := p.expect(tokLBrace, "{"); err != nil {
		return err
	}

	hag := &model.HAG{Name: p.intern.Intern(name.text)}
	for {
		h, err := p.expectHost()
		if err != nil {
			return err
		}
		hag.Hosts = append(hag.Hosts, p.intern.Intern(h))
		if p.tok.kind == tokComma {
			if err := p.advance(); err != nil {
				return err
			}
			continue
		}
		break
	}
	if _, err := p.expect(tokRBrace, "}"); err != nil {
		return err
	}
	p.model.HAGs[hag.Name] = hag
	return nil
}

// expectHost accepts a host literal as either an identifier (a bare name
// or dotted hostname, e.g. "localhost" or "ioc1.ornl.gov") or a number
// token (a dotted IPv4 quad, which the lexer tokenizes as a number since
// it starts with a digit).
func (p *classicParser) expectHost() (string, error) {
	if p.tok.kind != tokIdent && p.tok.kind != tokNumber {
		return "", p.errf("expected host literal, got %q", p.tok.text)
	}
	tok := p.tok
	if err := p.advance(); err != nil {
		return "", err
	}
	return tok.text, nil
}

func (p *classicParser) parseASG() error {
	if err := p.advance(); err != nil {
		return err
	}
	if _, err := p.expect(tokLParen, "("); err != nil {
		return err
	}
	name, err := p.expect(tokIdent, "ASG name")
	if err != nil {
		return err
	}
	if _, exists := p.model.ASGs[name.text]; exists {
		return &SyntaxError{File: p.file, Pos: name.pos, Msg: fmt.Sprintf("duplicate ASG name %q", name.text), Err: model.ErrDupAsg}
	}
	if _, exists := p.model.UAGs[name.text]; exists {
		return p.errf("duplicate group name %q", name.text)
	}
	if _, exists := p.model.HAGs[name.text]; exists {
		return p.errf("duplicate group name %q", name.text)
	}
	if _, err := p.expect(tokRParen, ")"); err != nil {
		return err
	}
	if _, err := p.expect(tokLBrace, "{"); err != nil {
		return err
	}

	asg := &model.ASG{Name: p.intern.Intern(name.text)}
	for p.tok.kind == tokIdent && (isInpLetterIdent(p.tok.text) || p.tok.text == "RULE") {
		if p.tok.text == "RULE" {
			rule, err := p.parseRule()
			if err != nil {
				return err
			}
			asg.Rules = append(asg.Rules, rule)
			continue
		}
		inp, err := p.parseInput(len(asg.Inputs))
		if err != nil {
			return err
		}
		asg.Inputs = append(asg.Inputs, inp)
	}

	if _, err := p.expect(tokRBrace, "}"); err != nil {
		return err
	}
	p.model.ASGs[asg.Name] = asg
	p.model.ASGOrder = append(p.model.ASGOrder, asg.Name)
	return nil
}

// isInpLetterIdent reports whether text is of the form "INP" + a single
// letter A..L, the lexer having already glued it into one identifier.
func isInpLetterIdent(text string) bool {
	if len(text) != 4 || text[:3] != "INP" {
		return false
	}
	return model.InputIndex(text[3]) >= 0
}

func (p *classicParser) parseInput(index int) (*model.InputBinding, error) {
	tok := p.tok
	if !isInpLetterIdent(tok.text) {
		return nil, p.errf("expected INPx, got %q", tok.text)
	}
	letter := tok.text[3]
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}
	src, err := p.expect(tokString, "input source string")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	return &model.InputBinding{
		Index:  model.InputIndex(letter),
		Symbol: letter,
		Source: src.text,
	}, nil
}

func (p *classicParser) parseRule() (*model.Rule, error) {
	if err := p.advance(); err != nil { // consume RULE
		return nil, err
	}
	if _, err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}
	levelTok, err := p.expect(tokNumber, "rule level")
	if err != nil {
		return nil, err
	}
	level, err := parseIntLiteral(levelTok.text)
	if err != nil {
		return nil, p.errf("bad rule level %q", levelTok.text)
	}
	if _, err := p.expect(tokComma, ","); err != nil {
		return nil, err
	}
	accessTok, err := p.expect(tokIdent, "access level")
	if err != nil {
		return nil, err
	}
	access, ok := model.ParseAccess(accessTok.text)
	if !ok {
		return nil, p.errf("unknown access keyword %q", accessTok.text)
	}

	rule := &model.Rule{Access: access, Level: level}

	if p.tok.kind == tokComma {
		if err := p.advance(); err != nil {
			return nil, err
		}
		trapTok, err := p.expect(tokIdent, "TRAPWRITE or NOTRAPWRITE")
		if err != nil {
			return nil, err
		}
		switch trapTok.text {
		case "TRAPWRITE":
			rule.TrapWrite = true
		case "NOTRAPWRITE":
			rule.TrapWrite = false
		default:
			return nil, p.errf("expected TRAPWRITE or NOTRAPWRITE, got %q", trapTok.text)
		}
	}
	if _, err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}

	if p.tok.kind == tokLBrace {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.parseRuleBody(rule); err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRBrace, "}"); err != nil {
			return nil, err
		}
	}

	if rule.Calc == "" {
		rule.Program = calc.AlwaysTrue()
	} else {
		prog, err := p.calc.Compile(rule.Calc)
		if err != nil {
			return nil, &SyntaxError{File: p.file, Pos: p.tok.pos, Msg: err.Error(), Err: model.ErrBadCalc}
		}
		rule.Program = prog
		rule.InpUsed = prog.ReferencedInputs()
	}

	return rule, nil
}

func (p *classicParser) parseRuleBody(rule *model.Rule) error {
	for p.tok.kind == tokIdent {
		switch p.tok.text {
		case "UAG":
			names, err := p.parseNameList()
			if err != nil {
				return err
			}
			if dup := firstDuplicate(append(append([]string{}, rule.UAGs...), names...)); dup != "" {
				return &SyntaxError{File: p.file, Pos: p.tok.pos, Msg: fmt.Sprintf("duplicate UAG %q within rule", dup), Err: errBadConfig}
			}
			rule.UAGs = append(rule.UAGs, p.internAll(names)...)
		case "HAG":
			names, err := p.parseNameList()
			if err != nil {
				return err
			}
			if dup := firstDuplicate(append(append([]string{}, rule.HAGs...), names...)); dup != "" {
				return &SyntaxError{File: p.file, Pos: p.tok.pos, Msg: fmt.Sprintf("duplicate HAG %q within rule", dup), Err: errBadConfig}
			}
			rule.HAGs = append(rule.HAGs, p.internAll(names)...)
		case "METHOD":
			strs, err := p.parseStringList()
			if err != nil {
				return err
			}
			if dup := firstDuplicate(append(append([]string{}, rule.Methods...), strs...)); dup != "" {
				return &SyntaxError{File: p.file, Pos: p.tok.pos, Msg: fmt.Sprintf("duplicate METHOD %q within rule", dup), Err: model.ErrDupMethod}
			}
			rule.Methods = append(rule.Methods, p.internAll(strs)...)
		case "AUTHORITY":
			strs, err := p.parseStringList()
			if err != nil {
				return err
			}
			if dup := firstDuplicate(append(append([]string{}, rule.Authorities...), strs...)); dup != "" {
				return &SyntaxError{File: p.file, Pos: p.tok.pos, Msg: fmt.Sprintf("duplicate AUTHORITY %q within rule", dup), Err: model.ErrDupAuthority}
			}
			rule.Authorities = append(rule.Authorities, p.internAll(strs)...)
		case "CALC":
			if err := p.advance(); err != nil {
				return err
			}
			if _, err := p.expect(tokLParen, "("); err != nil {
				return err
			}
			s, err := p.expect(tokString, "calc expression string")
			if err != nil {
				return err
			}
			if _, err := p.expect(tokRParen, ")"); err != nil {
				return err
			}
			rule.Calc = s.text
		default:
			return nil // not a rule clause; let parseASG's loop decide what's next
		}
	}
	return nil
}

func (p *classicParser) parseNameList() ([]string, error) {
	if err := p.advance(); err != nil { // consume keyword
		return nil, err
	}
	if _, err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}
	var out []string
	for {
		tok, err := p.expectName("name")
		if err != nil {
			return nil, err
		}
		out = append(out, tok.text)
		if p.tok.kind == tokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *classicParser) parseStringList() ([]string, error) {
	if err := p.advance(); err != nil { // consume keyword
		return nil, err
	}
	if _, err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}
	var out []string
	for {
		tok, err := p.expect(tokString, "string")
		if err != nil {
			return nil, err
		}
		out = append(out, tok.text)
		if p.tok.kind == tokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	return out, nil
}

// internAll interns every element of names in place, so rule clause
// references share the same backing string as the group's own name and as
// every other rule's reference to it.
func (p *classicParser) internAll(names []string) []string {
	return p.intern.InternAll(names)
}

func firstDuplicate(items []string) string {
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if seen[it] {
			return it
		}
		seen[it] = true
	}
	return ""
}

func parseIntLiteral(s string) (int, error) {
	n := 0
	neg := false
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if s == "" {
		return 0, fmt.Errorf("empty integer")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("not an integer: %q", s)
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}
