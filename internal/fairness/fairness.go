// Package fairness implements the CFS-style fairness policy: deriving a
// process's weight from its niceness, and deciding whether a running
// process should be preempted against the runqueue's current minimum
// virtual runtime (spec §4.C).
package fairness

import (
	"math"

	"github.com/arctir-kernel/cfsproc/internal/proc"
)

// Weight computes weight(nice) = floor(weightBase / weightRatio^nice),
// clamping nice to [0, niceClamp] first. nice 0 yields weightBase; higher
// nice values yield geometrically smaller weights.
//
// The original kernel's calculate_weight spins forever for nice > 0
// because its loop variable is never incremented (spec §9); this
// implements the specified geometric formula directly rather than the
// buggy loop.
func Weight(nice, niceClamp, weightBase int, weightRatio float64) int {
	if nice > niceClamp {
		nice = niceClamp
	}
	if nice < 0 {
		nice = 0
	}
	denom := math.Pow(weightRatio, float64(nice))
	return int(float64(weightBase) / denom)
}

// ShouldPreempt decides whether current should give up the CPU, given the
// runqueue's cached minimum-virtual-runtime descendant (spec §4.C):
//
//  1. current has used up its slice (current_runtime >= max_exec_time) and
//     that usage already clears the granularity floor → preempt.
//  2. Otherwise, if a runnable process with a strictly smaller virtual
//     runtime exists, preempt only once the granularity floor is cleared.
//  3. Otherwise, a process that hasn't run at all this tick (current_runtime
//     == 0) always yields to any available work.
//  4. Otherwise, keep running.
func ShouldPreempt(current, minVRuntime *proc.Proc, minGran int64) bool {
	if current.CurrentRuntime >= current.MaxExecTime && current.CurrentRuntime >= minGran {
		return true
	}

	if minVRuntime != nil && minVRuntime.State == proc.Runnable &&
		current.VirtualRuntime > minVRuntime.VirtualRuntime {
		return current.CurrentRuntime >= minGran
	}

	return current.CurrentRuntime == 0
}
