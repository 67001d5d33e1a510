package proc

// Proc is one process descriptor: a slot in the fixed-size pool (spec §3).
// A descriptor's slot pointer is stable for the process's entire lifetime —
// slots are reset and reused, never reallocated — so Parent and the
// intrusive tree links below are ordinary, non-owning *Proc pointers rather
// than pool indices (see DESIGN.md's Open Question entry on this).
type Proc struct {
	// Identity & lineage.
	Pid    int
	Parent *Proc
	Name   string

	// Lifecycle state.
	State State

	// Kernel context.
	KStack  []byte
	TF      *TrapFrame
	Context *Context

	// Address space.
	Pgdir AddressSpace
	Sz    int

	// I/O context.
	OFile []FileHandle
	Cwd   Inode

	// Wait/signal.
	Chan   any
	Killed bool

	// Scheduling.
	VirtualRuntime int64
	CurrentRuntime int64
	MaxExecTime    int64
	Nice           int
	ProcWeight     int

	// Intrusive red-black tree linkage (spec §3's proc_left/right/parent/
	// color). Non-nil / InTree only while State == Runnable (invariant I1).
	TreeLeft, TreeRight, TreeParent *Proc
	TreeColor                      Color
	InTree                         bool
}

// reset zeros every field back to the Unused baseline without discarding
// the slot's identity as a pointer, mirroring allocproc's re-use of a
// UNUSED slot and wait()'s zeroing of a reaped ZOMBIE slot.
func (p *Proc) reset() {
	*p = Proc{State: Unused}
}

// ClearTreeLinks drops tree membership, zeroing the intrusive linkage
// fields so a node the runqueue has unlinked doesn't keep stale pointers
// to former tree neighbors alive. Called by the runqueue once a deleted
// node's structural unlinking is complete.
func (p *Proc) ClearTreeLinks() {
	p.TreeLeft, p.TreeRight, p.TreeParent = nil, nil, nil
	p.InTree = false
}
