// Package sched runs the per-virtual-CPU scheduler loop: extract the
// smallest-virtual-runtime process from the runqueue, dispatch it, and keep
// ticking it until it yields, sleeps, or exits (spec §4.D). It is
// component D of the system overview (spec §2).
//
// The loop-management shape — a goroutine per running task, stoppable
// under a mutex by swapping in a fresh stop/notifyStopped channel pair — is
// generalized from the teacher's pkg/tasks/tasks.go TaskManager, which runs
// one interruptible background task at a time; here it's one loop per
// virtual CPU instead of one task per UI panel.
package sched

import (
	"sync"

	"github.com/arctir-kernel/cfsproc/internal/kernel"
	"github.com/arctir-kernel/cfsproc/internal/proc"
)

// StepFunc executes one quantum of work for the running process and
// reports how many abstract time units elapsed. Instruction execution and
// timer interrupts are out of scope (spec §6); the scheduler loop only
// needs to know how much virtual time to charge and whether the process
// moved itself off RUNNING (by sleeping or exiting) during the step.
type StepFunc func(p *proc.Proc) int64

// Manager owns one scheduler loop per virtual CPU.
type Manager struct {
	mu    sync.Mutex
	k     *kernel.Kernel
	loops map[int]*cpuLoop
}

type cpuLoop struct {
	stop          chan struct{}
	notifyStopped chan struct{}
}

// NewManager builds a Manager bound to k.
func NewManager(k *kernel.Kernel) *Manager {
	return &Manager{k: k, loops: make(map[int]*cpuLoop)}
}

// Start launches the scheduler loop on cpu, using step to advance running
// processes. Starting a second loop on a CPU that already has one running
// stops the old loop first — spec §4.D only ever has one process, and so
// one loop, active per virtual CPU at a time.
func (m *Manager) Start(cpu *proc.VirtualCPU, step StepFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.loops[cpu.ID]; ok {
		existing.stop <- struct{}{}
		<-existing.notifyStopped
	}

	l := &cpuLoop{
		stop:          make(chan struct{}, 1),
		notifyStopped: make(chan struct{}),
	}
	m.loops[cpu.ID] = l

	go m.run(cpu, step, l)
}

// Stop halts the loop running on cpu, if any, and waits for it to exit.
func (m *Manager) Stop(cpu *proc.VirtualCPU) {
	m.mu.Lock()
	l, ok := m.loops[cpu.ID]
	if ok {
		delete(m.loops, cpu.ID)
	}
	m.mu.Unlock()

	if ok {
		l.stop <- struct{}{}
		<-l.notifyStopped
	}
}

// StopAll halts every running loop.
func (m *Manager) StopAll() {
	m.mu.Lock()
	loops := m.loops
	m.loops = make(map[int]*cpuLoop)
	m.mu.Unlock()

	for _, l := range loops {
		l.stop <- struct{}{}
		<-l.notifyStopped
	}
}

func (m *Manager) run(cpu *proc.VirtualCPU, step StepFunc, l *cpuLoop) {
	defer func() { l.notifyStopped <- struct{}{} }()

	for {
		select {
		case <-l.stop:
			return
		default:
		}

		p := m.k.RunQueue.ExtractMin()
		if p == nil {
			continue // no runnable work: spec §4.D's idle case
		}

		if stopped := m.dispatch(cpu, p, step, l.stop); stopped {
			return
		}
	}
}

// dispatch runs p on cpu, tick by tick, until either p leaves RUNNING on
// its own (it called Exit or Sleep from inside step), Yield decides to
// preempt it, or the loop is asked to stop. On a stop, p is made RUNNABLE
// again and put back on the runqueue so a later loop can pick it up.
func (m *Manager) dispatch(cpu *proc.VirtualCPU, p *proc.Proc, step StepFunc, stop chan struct{}) (stopped bool) {
	cpu.Current = p

	m.k.Table.Lock.Lock()
	p.State = proc.Running
	m.k.Table.Lock.Unlock()

	defer func() { cpu.Current = nil }()

	for {
		select {
		case <-stop:
			m.k.Table.Lock.Lock()
			p.VirtualRuntime += p.CurrentRuntime
			p.CurrentRuntime = 0
			p.State = proc.Runnable
			m.k.Table.Lock.Unlock()
			m.k.RunQueue.Insert(p)
			return true
		default:
		}

		p.CurrentRuntime += step(p)

		if p.State != proc.Running {
			return false
		}

		m.k.Yield(p)
		if p.State != proc.Running {
			return false
		}
	}
}
