package runqueue

import (
	"fmt"

	"github.com/arctir-kernel/cfsproc/internal/proc"
)

// Nodes returns every process currently in the runqueue, in ascending
// virtual-runtime order. Intended for tests and invariant checkers, not
// the scheduling hot path.
func (t *Tree) Nodes() []*proc.Proc {
	t.Lock.Lock()
	defer t.Lock.Unlock()

	var out []*proc.Proc
	var walk func(*proc.Proc)
	walk = func(n *proc.Proc) {
		if n == nil {
			return
		}
		walk(n.TreeLeft)
		out = append(out, n)
		walk(n.TreeRight)
	}
	walk(t.root)
	return out
}

// Validate checks the quantified invariants spec §8 requires of the tree
// after every insert/extract: valid BST ordering, red-black balance (root
// black, no red-red chain, equal black-height on every root-to-nil path),
// and that count/weight match a full traversal. It is meant for tests, not
// production call sites.
func (t *Tree) Validate() error {
	t.Lock.Lock()
	defer t.Lock.Unlock()

	if t.root != nil && t.root.TreeColor != proc.Black {
		return fmt.Errorf("root is not black")
	}

	var count int
	var weight int64
	blackHeight := -1

	// low and high are the nearest ancestors n must not sort before or
	// after, so ordering is checked against every ancestor, not just the
	// parent.
	var walk func(n *proc.Proc, parent *proc.Proc, depthBlack int, low, high *proc.Proc) error
	walk = func(n *proc.Proc, parent *proc.Proc, depthBlack int, low, high *proc.Proc) error {
		if n == nil {
			if blackHeight == -1 {
				blackHeight = depthBlack
			} else if blackHeight != depthBlack {
				return fmt.Errorf("unequal black-height: got %d, want %d", depthBlack, blackHeight)
			}
			return nil
		}

		if n.TreeParent != parent {
			return fmt.Errorf("pid %d: parent link mismatch", n.Pid)
		}
		if !n.InTree || n.State != proc.Runnable {
			return fmt.Errorf("pid %d: tree member not runnable (invariant I1)", n.Pid)
		}
		if n.TreeColor == proc.Red {
			if (n.TreeLeft != nil && n.TreeLeft.TreeColor == proc.Red) ||
				(n.TreeRight != nil && n.TreeRight.TreeColor == proc.Red) {
				return fmt.Errorf("pid %d: red-red violation", n.Pid)
			}
		}
		if high != nil && n.VirtualRuntime > high.VirtualRuntime {
			return fmt.Errorf("pid %d: BST violation in left subtree of pid %d", n.Pid, high.Pid)
		}
		if low != nil && n.VirtualRuntime < low.VirtualRuntime {
			return fmt.Errorf("pid %d: BST violation in right subtree of pid %d", n.Pid, low.Pid)
		}

		count++
		weight += int64(n.ProcWeight)

		next := depthBlack
		if n.TreeColor == proc.Black {
			next++
		}
		if err := walk(n.TreeLeft, n, next, low, n); err != nil {
			return err
		}
		return walk(n.TreeRight, n, next, n, high)
	}

	if err := walk(t.root, nil, 0, nil, nil); err != nil {
		return err
	}
	if count != t.count {
		return fmt.Errorf("count mismatch: tracked %d, traversed %d", t.count, count)
	}
	if weight != t.weight {
		return fmt.Errorf("weight mismatch: tracked %d, traversed %d", t.weight, weight)
	}
	if t.minVRuntime != leftmost(t.root) {
		return fmt.Errorf("min_vruntime cache stale")
	}
	return nil
}
