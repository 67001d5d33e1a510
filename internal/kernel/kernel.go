// Package kernel wires the process descriptor table (internal/proc), the
// runqueue (internal/runqueue), and the fairness policy (internal/fairness)
// into the lifecycle operations spec §4.E names: fork, exit, wait, kill,
// sleep, wakeup, yield, growproc, userinit. It is the E component of the
// system overview (spec §2).
package kernel

import (
	"github.com/arctir-kernel/cfsproc/internal/hw"
	"github.com/arctir-kernel/cfsproc/internal/proc"
	"github.com/arctir-kernel/cfsproc/internal/runqueue"
	"github.com/arctir-kernel/cfsproc/pkg/config"
	"github.com/arctir-kernel/cfsproc/pkg/kerrors"
	"github.com/sirupsen/logrus"
)

const kstackSize = 4096

// initCodeImage stands in for the out-of-scope
// _binary_initcode_start/_binary_initcode_size embedded image (spec §6).
var initCodeImage = []byte("initcode")

// Kernel is the process-wide singleton spec §9 calls for: the descriptor
// pool, the runqueue, the pid counter (owned by Table), initproc, and the
// collaborator factory, constructed once at boot and passed by reference
// into every operation.
type Kernel struct {
	cfg *config.KernelConfig
	log *logrus.Entry

	Table    *proc.Table
	RunQueue *runqueue.Tree
	HW       hw.Provider

	InitProc *proc.Proc
	CPUs     []*proc.VirtualCPU
}

// New constructs the kernel singleton: the descriptor table and runqueue,
// both locked independently (spec §5), and ncpu virtual CPUs. This plays
// the role of pinit() plus the cpus[]/ncpu setup spec §6 lists as
// collaborators — in this realization they're owned by the same singleton
// rather than separate globals, per the modeling note in spec §9.
func New(cfg *config.KernelConfig, log *logrus.Entry, provider hw.Provider, ncpu int) *Kernel {
	k := &Kernel{
		cfg:      cfg,
		log:      log,
		Table:    proc.NewTable(cfg),
		RunQueue: runqueue.New(cfg),
		HW:       provider,
	}
	k.CPUs = make([]*proc.VirtualCPU, ncpu)
	for i := range k.CPUs {
		k.CPUs[i] = &proc.VirtualCPU{ID: i, IntsEnabled: false}
	}
	return k
}

// Config returns the tunables this kernel was built with.
func (k *Kernel) Config() *config.KernelConfig { return k.cfg }

// CPU returns the virtual CPU with the given id, the Go realization of
// mycpu()/cpuid(); an out-of-range id is the "unknown apicid" fatal
// assertion spec §7 names.
func (k *Kernel) CPU(id int) *proc.VirtualCPU {
	if id < 0 || id >= len(k.CPUs) {
		kerrors.Fatal("unknown virtual cpu id")
	}
	return k.CPUs[id]
}

// MyProc returns the process currently bound to cpu, or nil. Realizes
// myproc().
func (k *Kernel) MyProc(cpu *proc.VirtualCPU) *proc.Proc { return cpu.Current }

// allocProc scans for an UNUSED slot and seeds the kernel-context fields
// allocproc() sets up beyond the bare state flip Table.AllocProc performs:
// the kernel stack, a zeroed Context, and empty open-file slots (spec §3
// Created). The Context's PC is left 0; no fork-return trampoline is
// modeled. Returns nil on pool exhaustion.
func (k *Kernel) allocProc() *proc.Proc {
	p := k.Table.AllocProc()
	if p == nil {
		return nil
	}
	p.KStack = make([]byte, kstackSize)
	p.Context = &proc.Context{}
	p.OFile = make([]proc.FileHandle, k.cfg.NOFile)
	return p
}

// sched is the Go realization of sched()'s contract (spec §4.D, §5): it
// must be called with the process's state already changed away from
// RUNNING and with ptable.lock held by the caller. Because this
// simulator's scheduler loop drives processes synchronously rather than
// through real preemptive threads, the register-save half of swtch (out of
// scope per §6) reduces to an observable call-through on the
// ContextSwitcher collaborator rather than an actual stack switch — see
// DESIGN.md's Open Question entry on the sched/scheduler coroutine pair.
func (k *Kernel) sched(self *proc.Proc) {
	if self.State == proc.Running {
		kerrors.Fatal("sched running")
	}
	k.HW.ContextSwitcher().Switch(self.Context, self.Context)
}

// UserInit allocates pid 1, installs the embedded initcode image, marks it
// RUNNABLE, and inserts it into the runqueue (spec §4.E).
func (k *Kernel) UserInit() *proc.Proc {
	p := k.allocProc()
	if p == nil {
		kerrors.Fatal("userinit: out of process slots")
	}
	k.InitProc = p

	pgdir := k.HW.NewAddressSpace()
	sz, err := pgdir.Init(initCodeImage)
	if err != nil {
		kerrors.Fatal("userinit: out of memory?")
	}
	p.Pgdir = pgdir
	p.Sz = sz
	p.TF = &proc.TrapFrame{}
	p.Name = "initcode"
	p.Cwd = k.HW.NewInode()

	k.Table.Lock.Lock()
	p.State = proc.Runnable
	k.Table.Lock.Unlock()

	k.RunQueue.Insert(p)

	k.log.WithField("pid", p.Pid).Debug("userinit")
	return p
}
