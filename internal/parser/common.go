package parser

import (
	"fmt"

	"github.com/epics-controls/accesssecurity/internal/model"
)

var errBadConfig = model.ErrBadConfig

// validateLinks walks every rule in every ASG and confirms each UAG/HAG name
// it references names a group actually defined somewhere in the file. Both
// surface forms allow a rule to reference a group declared later in the
// source (there is no ordering constraint between UAG/HAG/ASG blocks), so
// this runs as a final pass once the whole document has been parsed.
func validateLinks(file string, p *model.Policy) error {
	for _, name := range p.ASGOrder {
		asg := p.ASGs[name]
		for _, rule := range asg.Rules {
			for _, uag := range rule.UAGs {
				if _, ok := p.UAGs[uag]; !ok {
					return &SyntaxError{File: file, Msg: fmt.Sprintf("ASG %q rule references undefined UAG %q", name, uag), Err: model.ErrNoUag}
				}
			}
			for _, hag := range rule.HAGs {
				if _, ok := p.HAGs[hag]; !ok {
					return &SyntaxError{File: file, Msg: fmt.Sprintf("ASG %q rule references undefined HAG %q", name, hag), Err: model.ErrNoHag}
				}
			}
		}
	}
	return nil
}
