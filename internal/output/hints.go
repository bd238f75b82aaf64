package output

import (
	"fmt"
	"strings"
)

// CommandHints maps command names to related commands users might want to run next
var CommandHints = map[string][]string{
	"validate": {"import -f <file>"},
	"import":   {"list systems", "topology <system-id>"},
	"seed":     {"list systems", "topology sys-payments"},
	"topology": {"render <system-id>", "subnet <subnet-id>"},
	"subnet":   {"list subnets", "topology <system-id>"},
	"render":   {"topology <system-id>"},
	"list":     {"topology <system-id>", "subnet <subnet-id>"},
}

// PrintHints prints "See also" hints for a command. No-op if command has no hints.
func (p *Printer) PrintHints(command string) {
	hints, ok := CommandHints[command]
	if !ok || len(hints) == 0 {
		return
	}

	cmds := make([]string, len(hints))
	for i, h := range hints {
		cmds[i] = "depmap " + h
	}
	fmt.Fprintf(p.out, "\nSee also: %s\n", strings.Join(cmds, ", "))
}
