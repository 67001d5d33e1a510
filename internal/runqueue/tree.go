// Package runqueue implements the CFS runqueue: a red-black tree keyed by
// virtual runtime, stored intrusively inside the process descriptors it
// holds (spec §3, §4.B). Every public method takes the tree's own lock
// (tasks.lock), which per spec §5 is always acquired inside or disjoint
// from ptable.lock, never the reverse. Yield, Exit, Kill and the wakeup
// paths call into this package while holding ptable.lock; UserInit, Fork
// and the scheduler loop call it after releasing ptable.lock.
package runqueue

import (
	"github.com/arctir-kernel/cfsproc/internal/fairness"
	"github.com/arctir-kernel/cfsproc/internal/klock"
	"github.com/arctir-kernel/cfsproc/internal/proc"
	"github.com/arctir-kernel/cfsproc/pkg/config"
)

// Tree is the runqueue (spec §3 Runqueue). Exported only via the methods
// below; its tree-linkage manipulation is private and left to the BST/
// red-black helpers in rbtree.go.
type Tree struct {
	Lock klock.Mutex

	root        *proc.Proc
	minVRuntime *proc.Proc
	count       int
	weight      int64
	period      int64

	capacity    int
	latency     int64
	minGran     int64
	niceClamp   int
	weightBase  int
	weightRatio float64
}

// New builds an empty runqueue sized and tuned from cfg.
func New(cfg *config.KernelConfig) *Tree {
	return &Tree{
		period:      int64(cfg.Latency()),
		capacity:    cfg.NProc,
		latency:     int64(cfg.Latency()),
		minGran:     int64(cfg.MinGran),
		niceClamp:   cfg.NiceClamp,
		weightBase:  cfg.WeightBase,
		weightRatio: cfg.WeightRatio,
	}
}

// IsEmpty reports whether the runqueue holds no processes.
func (t *Tree) IsEmpty() bool { return t.count == 0 }

// IsFull reports whether the runqueue holds NPROC processes — unreachable
// in practice since one runqueue slot exists per descriptor and a
// descriptor can only be inserted after allocproc hands it out (spec
// §4.B), but kept as the documented capacity check.
func (t *Tree) IsFull() bool { return t.count >= t.capacity }

// Count returns the number of processes currently in the runqueue.
func (t *Tree) Count() int { return t.count }

// Weight returns the sum of ProcWeight over every process in the runqueue.
func (t *Tree) Weight() int64 { return t.weight }

// Period returns the current scheduling period.
func (t *Tree) Period() int64 { return t.period }

// MinVRuntime returns the cached leftmost node (the next extraction
// target), or nil if the runqueue is empty. Lifecycle operations consult
// this directly (under ptable.lock) to evaluate should_preempt without
// calling ExtractMin.
func (t *Tree) MinVRuntime() *proc.Proc { return t.minVRuntime }

// Insert adds p to the runqueue. Precondition: p.State == Runnable, p is
// not already in the tree, and the runqueue is not full — callers ensure
// capacity by construction (spec §4.B). On full, the insert is silently
// skipped, matching the spec's documented (unreachable) overflow behavior.
func (t *Tree) Insert(p *proc.Proc) {
	t.Lock.Lock()
	defer t.Lock.Unlock()

	if t.IsFull() {
		return
	}

	p.ProcWeight = fairness.Weight(p.Nice, t.niceClamp, t.weightBase, t.weightRatio)

	t.bstInsert(p)
	t.insertFixup(p)

	p.InTree = true
	t.count++
	t.weight += int64(p.ProcWeight)

	if t.minVRuntime == nil || t.minVRuntime.TreeLeft != nil {
		t.minVRuntime = leftmost(t.root)
	}
}

// ExtractMin returns and removes the process with the smallest virtual
// runtime, iff the runqueue is non-empty and that process's state is still
// Runnable (spec §4.B Refusal: invariant I1 guarantees this always holds —
// the check is a defensive assertion, not a real race window, because
// every RUNNABLE->non-RUNNABLE transition takes ptable.lock before this
// method can be called). On success, recomputes the period, removes the
// node, updates aggregate weight and the cached minimum, and writes
// max_exec_time onto the returned descriptor.
func (t *Tree) ExtractMin() *proc.Proc {
	t.Lock.Lock()
	defer t.Lock.Unlock()

	if t.count == 0 {
		return nil
	}

	found := t.minVRuntime
	if found.State != proc.Runnable {
		return nil
	}

	if int64(t.count) > t.latency/t.minGran {
		t.period = int64(t.count) * t.minGran
	} else {
		t.period = t.latency
	}

	t.deleteNode(found)
	found.ClearTreeLinks()
	t.count--

	found.MaxExecTime = t.period * int64(found.ProcWeight) / t.weight
	t.weight -= int64(found.ProcWeight)
	t.minVRuntime = leftmost(t.root)

	return found
}

// leftmost walks to the leftmost (minimum virtual runtime) node. The
// original kernel's set_min_vruntime has an inverted null check that would
// recurse on a nil pointer (spec §9); this is the specified-correct walk.
func leftmost(n *proc.Proc) *proc.Proc {
	if n == nil {
		return nil
	}
	for n.TreeLeft != nil {
		n = n.TreeLeft
	}
	return n
}
