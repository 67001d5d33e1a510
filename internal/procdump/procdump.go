// Package procdump renders the live contents of the process table as a
// colorized table plus, for sleeping processes, a frame-pointer backtrace —
// the debug dump spec §4.F names. Grounded on the teacher's
// GetDisplayStatus/GetColor (fatih/color state coloring) and
// arctir-proctor's tablewriter-based process listing.
package procdump

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/arctir-kernel/cfsproc/internal/kernel"
	"github.com/arctir-kernel/cfsproc/internal/proc"
	"github.com/arctir-kernel/cfsproc/pkg/utils"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// stateColor maps a lifecycle state to a display color, generalized from
// Container.GetColor's state->color.Attribute switch.
func stateColor(s proc.State) color.Attribute {
	switch s {
	case proc.Embryo:
		return color.FgYellow
	case proc.Runnable:
		return color.FgCyan
	case proc.Running:
		return color.FgGreen
	case proc.Sleeping:
		return color.FgBlue
	case proc.Zombie:
		return color.FgRed
	default:
		return color.FgWhite
	}
}

// Dump renders every live (non-UNUSED) descriptor as a table — pid, state,
// name, image size, and the fairness fields (nice/weight/virtual runtime) —
// followed by a backtrace block for every sleeping process.
func Dump(k *kernel.Kernel) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"PID", "STATE", "NAME", "SIZE", "NICE", "WEIGHT", "VRUNTIME"})

	k.Table.ForEach(func(p *proc.Proc) {
		table.Append([]string{
			strconv.Itoa(p.Pid),
			utils.ColoredString(p.State.String(), stateColor(p.State)),
			p.Name,
			strconv.Itoa(p.Sz),
			strconv.Itoa(p.Nice),
			strconv.Itoa(p.ProcWeight),
			strconv.FormatInt(p.VirtualRuntime, 10),
		})
	})
	table.Render()

	out := buf.String()
	if bt := backtraces(k); bt != "" {
		out += "\n" + bt
	}
	return out
}

// backtraces renders a frame walk for every SLEEPING process, the way the
// original kernel's procdump walks saved frame pointers off the kernel
// stack. Frames here come from the simulated Context.BackTrace rather than
// a real stack walk (spec §6's swtch/ebp chain is out of scope).
func backtraces(k *kernel.Kernel) string {
	var buf bytes.Buffer
	k.Table.ForEach(func(p *proc.Proc) {
		if p.State != proc.Sleeping || p.Context == nil || len(p.Context.BackTrace) == 0 {
			return
		}
		fmt.Fprintf(&buf, "pid %d (%s):", p.Pid, p.Name)
		for _, pc := range p.Context.BackTrace {
			fmt.Fprintf(&buf, " 0x%x", pc)
		}
		fmt.Fprintln(&buf)
	})
	return buf.String()
}
