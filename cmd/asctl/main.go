// Command asctl loads and evaluates access security policy files.
package main

import "github.com/epics-controls/accesssecurity/cmd/asctl/cmd"

func main() {
	cmd.Execute()
}
