package parser

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/epics-controls/accesssecurity/internal/calc"
	"github.com/epics-controls/accesssecurity/internal/intern"
	"github.com/epics-controls/accesssecurity/internal/model"
)

// structuredDoc mirrors the structured-form document shape from §4.D:
// top-level version/uags/hags/asgs keys, each a list of named entries so
// that declaration order survives the YAML decode without a side-channel
// ordering key.
type structuredDoc struct {
	Version float64         `yaml:"version"`
	UAGs    []structuredUAG `yaml:"uags"`
	HAGs    []structuredHAG `yaml:"hags"`
	ASGs    []structuredASG `yaml:"asgs"`
}

type structuredUAG struct {
	Name  string   `yaml:"name"`
	Users []string `yaml:"users"`
}

type structuredHAG struct {
	Name  string   `yaml:"name"`
	Hosts []string `yaml:"hosts"`
}

type structuredASG struct {
	Name  string              `yaml:"name"`
	Links []map[string]string `yaml:"links"`
	Rules []structuredRule    `yaml:"rules"`
}

type structuredRule struct {
	Level       int      `yaml:"level"`
	Access      string   `yaml:"access"`
	TrapWrite   bool     `yaml:"trapwrite"`
	UAGs        []string `yaml:"uags"`
	HAGs        []string `yaml:"hags"`
	Methods     []string `yaml:"methods"`
	Authorities []string `yaml:"authorities"`
	Calc        string   `yaml:"calc"`
}

// ParseStructured parses the YAML structured form, producing the same
// model.Policy shape ParseClassic would for an equivalent document.
func ParseStructured(file string, text []byte, calcEngine *calc.Engine) (*model.Policy, error) {
	var doc structuredDoc
	if err := yaml.Unmarshal(text, &doc); err != nil {
		return nil, &SyntaxError{File: file, Msg: fmt.Sprintf("yaml: %v", err), Err: errBadConfig}
	}

	p := model.NewPolicy()
	tbl := intern.New()

	for _, u := range doc.UAGs {
		name := tbl.Intern(u.Name)
		if _, exists := p.UAGs[name]; exists {
			return nil, &SyntaxError{File: file, Msg: fmt.Sprintf("duplicate UAG name %q", name), Err: errBadConfig}
		}
		users := tbl.InternAll(u.Users)
		p.UAGs[name] = &model.UAG{Name: name, Users: users}
	}
	for _, h := range doc.HAGs {
		name := tbl.Intern(h.Name)
		if _, exists := p.HAGs[name]; exists {
			return nil, &SyntaxError{File: file, Msg: fmt.Sprintf("duplicate HAG name %q", name), Err: errBadConfig}
		}
		hosts := tbl.InternAll(h.Hosts)
		p.HAGs[name] = &model.HAG{Name: name, Hosts: hosts}
	}

	for _, src := range doc.ASGs {
		name := tbl.Intern(src.Name)
		if _, exists := p.ASGs[name]; exists {
			return nil, &SyntaxError{File: file, Msg: fmt.Sprintf("duplicate ASG name %q", name), Err: model.ErrDupAsg}
		}
		asg := &model.ASG{Name: name}

		for _, link := range src.Links {
			for key, value := range link {
				if len(key) != 4 || key[:3] != "INP" {
					return nil, &SyntaxError{File: file, Msg: fmt.Sprintf("bad link key %q", key), Err: errBadConfig}
				}
				idx := model.InputIndex(key[3])
				if idx < 0 {
					return nil, &SyntaxError{File: file, Msg: fmt.Sprintf("bad input letter in %q", key), Err: errBadConfig}
				}
				asg.Inputs = append(asg.Inputs, &model.InputBinding{
					Index:  idx,
					Symbol: key[3],
					Source: value,
				})
			}
		}

		for _, sr := range src.Rules {
			access, ok := model.ParseAccess(sr.Access)
			if !ok {
				return nil, &SyntaxError{File: file, Msg: fmt.Sprintf("unknown access keyword %q", sr.Access), Err: errBadConfig}
			}
			if dup := firstDuplicate(sr.Methods); dup != "" {
				return nil, &SyntaxError{File: file, Msg: fmt.Sprintf("duplicate METHOD %q within rule", dup), Err: model.ErrDupMethod}
			}
			if dup := firstDuplicate(sr.Authorities); dup != "" {
				return nil, &SyntaxError{File: file, Msg: fmt.Sprintf("duplicate AUTHORITY %q within rule", dup), Err: model.ErrDupAuthority}
			}
			if dup := firstDuplicate(sr.UAGs); dup != "" {
				return nil, &SyntaxError{File: file, Msg: fmt.Sprintf("duplicate UAG %q within rule", dup), Err: errBadConfig}
			}
			if dup := firstDuplicate(sr.HAGs); dup != "" {
				return nil, &SyntaxError{File: file, Msg: fmt.Sprintf("duplicate HAG %q within rule", dup), Err: errBadConfig}
			}

			rule := &model.Rule{
				Access:      access,
				Level:       sr.Level,
				Calc:        sr.Calc,
				TrapWrite:   sr.TrapWrite,
				UAGs:        tbl.InternAll(sr.UAGs),
				HAGs:        tbl.InternAll(sr.HAGs),
				Methods:     tbl.InternAll(sr.Methods),
				Authorities: tbl.InternAll(sr.Authorities),
			}
			if rule.Calc == "" {
				rule.Program = calc.AlwaysTrue()
			} else {
				prog, err := calcEngine.Compile(rule.Calc)
				if err != nil {
					return nil, &SyntaxError{File: file, Msg: err.Error(), Err: model.ErrBadCalc}
				}
				rule.Program = prog
				rule.InpUsed = prog.ReferencedInputs()
			}
			asg.Rules = append(asg.Rules, rule)
		}

		p.ASGs[name] = asg
		p.ASGOrder = append(p.ASGOrder, name)
	}

	if len(p.ASGs) == 0 {
		return nil, &SyntaxError{File: file, Msg: "no ASG defined", Err: errBadConfig}
	}
	if err := validateLinks(file, p); err != nil {
		return nil, err
	}
	p.EnsureDefault()
	return p, nil
}
