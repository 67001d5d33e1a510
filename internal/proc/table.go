package proc

import (
	"sync/atomic"

	"github.com/arctir-kernel/cfsproc/internal/klock"
	"github.com/arctir-kernel/cfsproc/pkg/config"
	"github.com/samber/lo"
)

// Table is the fixed-size process descriptor pool (spec §3, §4.A). It is
// both the allocator (AllocProc scans for UNUSED) and the sleep/wait index
// (lifecycle operations scan it for matching children or channels). ptable
// is the second spinlock spec §3 invariant I6 names: every transition into
// or out of RUNNABLE, and every lifecycle scan, holds it.
type Table struct {
	Lock klock.Mutex

	cfg    *config.KernelConfig
	procs  []*Proc
	nextPC int64 // next pid to hand out, bumped atomically
}

// NewTable allocates NProc UNUSED descriptor slots, each a stable pointer
// for the lifetime of the table.
func NewTable(cfg *config.KernelConfig) *Table {
	t := &Table{cfg: cfg, procs: make([]*Proc, cfg.NProc), nextPC: 1}
	for i := range t.procs {
		t.procs[i] = &Proc{State: Unused}
	}
	return t
}

// Config returns the tunables this table was built with.
func (t *Table) Config() *config.KernelConfig { return t.cfg }

// Len returns the pool size (NPROC).
func (t *Table) Len() int { return len(t.procs) }

// All returns every descriptor slot, live or not, for iteration by
// procdump and test assertions. Callers must not mutate State through this
// slice without holding Lock.
func (t *Table) All() []*Proc { return t.procs }

// AllocProc scans for an UNUSED slot, flips it to EMBRYO, and assigns a
// fresh pid, all under Lock (spec §4.A, §3 Created). Returns nil if the
// pool is full — capacity exhaustion is a normal, caller-visible failure,
// not a fatal assertion (spec §7).
func (t *Table) AllocProc() *Proc {
	t.Lock.Lock()
	defer t.Lock.Unlock()

	for _, p := range t.procs {
		if p.State == Unused {
			pid := atomic.AddInt64(&t.nextPC, 1) - 1
			*p = Proc{
				State: Embryo,
				Pid:   int(pid),
			}
			return p
		}
	}
	return nil
}

// Revert puts a descriptor back to UNUSED after a resource-allocation
// failure partway through fork/allocproc (spec §7's rollback path).
func (t *Table) Revert(p *Proc) {
	t.Lock.Lock()
	defer t.Lock.Unlock()
	p.reset()
}

// Reap zeroes identity fields and returns a ZOMBIE slot to UNUSED, the
// final step of wait() (spec §3 Reaped). Caller must hold Lock.
func (t *Table) Reap(p *Proc) {
	p.reset()
}

// FindByPid scans for a live descriptor with the given pid. Caller must
// hold Lock. Linear scan matches the original kernel's ptable walk; NPROC
// is small by construction (spec §6 tunable), so this is not a hot-path
// concern.
func (t *Table) FindByPid(pid int) *Proc {
	p, ok := lo.Find(t.procs, func(p *Proc) bool {
		return p.State != Unused && p.Pid == pid
	})
	if !ok {
		return nil
	}
	return p
}

// ForEach calls f for every live (non-UNUSED) descriptor. Caller must hold
// Lock if f observes or mutates shared state.
func (t *Table) ForEach(f func(*Proc)) {
	for _, p := range t.procs {
		if p.State != Unused {
			f(p)
		}
	}
}
