package fairness

import (
	"testing"

	"github.com/arctir-kernel/cfsproc/internal/proc"
	"github.com/stretchr/testify/assert"
)

func TestWeightBoundary(t *testing.T) {
	assert.Equal(t, 1024, Weight(0, 30, 1024, 1.25))
	assert.Less(t, Weight(1, 30, 1024, 1.25), Weight(0, 30, 1024, 1.25))
	assert.Less(t, Weight(29, 30, 1024, 1.25), Weight(10, 30, 1024, 1.25))
}

func TestWeightClampsAboveNiceMax(t *testing.T) {
	assert.Equal(t, Weight(30, 30, 1024, 1.25), Weight(31, 30, 1024, 1.25))
	assert.Equal(t, Weight(30, 30, 1024, 1.25), Weight(9999, 30, 1024, 1.25))
}

func TestWeightMonotonicDecreasing(t *testing.T) {
	prev := Weight(0, 30, 1024, 1.25)
	for nice := 1; nice <= 30; nice++ {
		w := Weight(nice, 30, 1024, 1.25)
		assert.LessOrEqual(t, w, prev)
		prev = w
	}
}

func current(runtime, maxExec, vruntime int64) *proc.Proc {
	return &proc.Proc{CurrentRuntime: runtime, MaxExecTime: maxExec, VirtualRuntime: vruntime, State: proc.Running}
}

func TestShouldPreemptSliceExhausted(t *testing.T) {
	c := current(2, 2, 0)
	assert.True(t, ShouldPreempt(c, nil, 2))
}

func TestShouldPreemptBelowMinGranKeepsRunning(t *testing.T) {
	c := current(1, 1, 0)
	min := &proc.Proc{State: proc.Runnable, VirtualRuntime: -5}
	assert.False(t, ShouldPreempt(c, min, 2))
}

func TestShouldPreemptSmallerMinVRuntime(t *testing.T) {
	c := current(3, 100, 10)
	min := &proc.Proc{State: proc.Runnable, VirtualRuntime: 5}
	assert.True(t, ShouldPreempt(c, min, 2))
}

func TestShouldPreemptFreshTick(t *testing.T) {
	c := current(0, 100, 0)
	assert.True(t, ShouldPreempt(c, nil, 2))
}

func TestShouldPreemptKeepsRunningOtherwise(t *testing.T) {
	c := current(1, 100, 0)
	assert.False(t, ShouldPreempt(c, nil, 2))
}

func TestShouldPreemptMonotoneInCurrentRuntime(t *testing.T) {
	min := &proc.Proc{State: proc.Runnable, VirtualRuntime: 0}
	c := current(0, 10, 5)
	results := make([]bool, 0, 10)
	for r := int64(0); r < 10; r++ {
		c.CurrentRuntime = r
		results = append(results, ShouldPreempt(c, min, 2))
	}
	// Once true, later (larger) current_runtime values must also be true:
	// should_preempt only becomes harder to deny as progress accumulates.
	sawTrue := false
	for _, r := range results {
		if r {
			sawTrue = true
		}
		if sawTrue {
			assert.True(t, r)
		}
	}
}
