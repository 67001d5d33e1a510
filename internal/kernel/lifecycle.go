package kernel

import (
	"runtime"

	"github.com/arctir-kernel/cfsproc/internal/fairness"
	"github.com/arctir-kernel/cfsproc/internal/klock"
	"github.com/arctir-kernel/cfsproc/internal/proc"
	"github.com/arctir-kernel/cfsproc/pkg/kerrors"
	"github.com/samber/lo"
)

// maxBacktraceFrames mirrors procdump's original 10-frame cap on the
// getcallerpcs walk.
const maxBacktraceFrames = 10

// callerPCs captures the calling goroutine's program counters, standing in
// for getcallerpcs's saved-ebp-chain walk: this core has no real kernel
// stack to walk, so a sleeper's backtrace is the Go call stack that put it
// to sleep instead.
func callerPCs() []uintptr {
	pcs := make([]uintptr, maxBacktraceFrames)
	n := runtime.Callers(3, pcs)
	return pcs[:n]
}

// Fork allocates a child descriptor, copies the parent's address space and
// open-file/cwd references, and makes the child RUNNABLE (spec §4.E fork).
// On resource exhaustion it rolls the child slot back to UNUSED and returns
// an error rather than panicking — capacity and allocation failures are
// ordinary, caller-visible outcomes (spec §7).
func (k *Kernel) Fork(self *proc.Proc) (int, error) {
	np := k.allocProc()
	if np == nil {
		return -1, kerrors.CapacityExhausted()
	}

	pgdir, err := self.Pgdir.Copy(self.Sz)
	if err != nil {
		k.Table.Revert(np)
		return -1, kerrors.AllocationFailed(err.Error())
	}
	np.Pgdir = pgdir
	np.Sz = self.Sz
	np.Parent = self

	tf := *self.TF
	tf.ReturnValue = 0
	np.TF = &tf

	for i, f := range self.OFile {
		if f != nil {
			np.OFile[i] = f.Dup()
		}
	}
	if self.Cwd != nil {
		np.Cwd = self.Cwd.Dup()
	}
	np.Name = self.Name

	pid := np.Pid

	k.Table.Lock.Lock()
	np.State = proc.Runnable
	k.Table.Lock.Unlock()

	k.RunQueue.Insert(np)

	k.log.WithFields(map[string]any{"parent": self.Pid, "child": pid}).Debug("fork")
	return pid, nil
}

// Exit tears down self's I/O references, wakes its parent, reparents any
// live children to initproc (waking initproc if one of them is already a
// zombie), marks self ZOMBIE, and hands control to the scheduler via
// sched. Because sched does not suspend the calling stack in this core,
// Exit then returns to its caller with self left ZOMBIE. Calling it on
// initproc is the fatal assertion spec §7 names.
func (k *Kernel) Exit(self *proc.Proc) {
	if self == k.InitProc {
		kerrors.Fatal("init exiting")
	}

	for i, f := range self.OFile {
		if f != nil {
			f.Close()
			self.OFile[i] = nil
		}
	}
	if self.Cwd != nil {
		self.Cwd.Put()
		self.Cwd = nil
	}

	k.Table.Lock.Lock()
	defer k.Table.Lock.Unlock()

	k.wakeupLocked(self.Parent)

	k.Table.ForEach(func(p *proc.Proc) {
		if p.Parent == self {
			p.Parent = k.InitProc
			if p.State == proc.Zombie {
				k.wakeupLocked(k.InitProc)
			}
		}
	})

	self.State = proc.Zombie
	k.sched(self)
}

// Wait blocks self until a child exits, then reaps it and returns its pid.
// It returns an error immediately if self has no children, or if self has
// been killed while waiting (spec §4.E wait).
func (k *Kernel) Wait(self *proc.Proc) (int, error) {
	k.Table.Lock.Lock()
	defer k.Table.Lock.Unlock()

	for {
		children := lo.Filter(k.Table.All(), func(p *proc.Proc, _ int) bool {
			return p.State != proc.Unused && p.Parent == self
		})

		if zombie, ok := lo.Find(children, func(p *proc.Proc) bool {
			return p.State == proc.Zombie
		}); ok {
			pid := zombie.Pid
			if zombie.Pgdir != nil {
				zombie.Pgdir.Free()
			}
			k.Table.Reap(zombie)
			return pid, nil
		}

		if len(children) == 0 || self.Killed {
			return -1, kerrors.NoChildren()
		}

		k.Sleep(self, self, &k.Table.Lock)
	}
}

// Yield gives up the CPU if should_preempt says so (spec §4.C, §4.E yield):
// it commits the current slice into virtual runtime, makes self RUNNABLE
// again, reinserts it, and calls into the scheduler. Otherwise it returns
// immediately and self keeps running.
func (k *Kernel) Yield(self *proc.Proc) {
	k.Table.Lock.Lock()
	defer k.Table.Lock.Unlock()

	if !fairness.ShouldPreempt(self, k.RunQueue.MinVRuntime(), k.minGran()) {
		return
	}

	self.VirtualRuntime += self.CurrentRuntime
	self.CurrentRuntime = 0
	self.State = proc.Runnable
	k.RunQueue.Insert(self)
	k.sched(self)
}

// Sleep puts self to sleep on chan_, releasing lk for the duration unless
// lk is already ptable.lock (spec §4.E sleep). While sleeping, self carries
// a backtrace procdump can print (spec §4.F); on wake, self's chan and
// backtrace are cleared and lk's original hold state is restored.
func (k *Kernel) Sleep(self *proc.Proc, chan_ any, lk *klock.Mutex) {
	if self == nil {
		kerrors.Fatal("sleep without process")
	}
	if lk == nil {
		kerrors.Fatal("sleep without lock")
	}

	if lk != &k.Table.Lock {
		k.Table.Lock.Lock()
		lk.Unlock()
	}

	self.Chan = chan_
	self.State = proc.Sleeping
	self.Context.BackTrace = callerPCs()
	k.sched(self)
	self.Chan = nil
	self.Context.BackTrace = nil

	if lk != &k.Table.Lock {
		k.Table.Lock.Unlock()
		lk.Lock()
	}
}

// wakeupLocked promotes every SLEEPING process waiting on chan_ back to
// RUNNABLE, committing their accumulated runtime and reinserting them into
// the runqueue. Caller must already hold Table.Lock (spec §4.E wakeup1).
func (k *Kernel) wakeupLocked(chan_ any) {
	if chan_ == nil {
		return
	}
	sleepers := lo.Filter(k.Table.All(), func(p *proc.Proc, _ int) bool {
		return p.State == proc.Sleeping && p.Chan == chan_
	})
	for _, p := range sleepers {
		p.VirtualRuntime += p.CurrentRuntime
		p.CurrentRuntime = 0
		p.State = proc.Runnable
		k.RunQueue.Insert(p)
	}
}

// Wakeup1 promotes every sleeper on chan_, assuming the caller already
// holds Table.Lock (spec §4.E wakeup1's documented precondition).
func (k *Kernel) Wakeup1(chan_ any) { k.wakeupLocked(chan_) }

// Wakeup acquires Table.Lock and wakes every sleeper on chan_ (spec §4.E
// wakeup).
func (k *Kernel) Wakeup(chan_ any) {
	k.Table.Lock.Lock()
	defer k.Table.Lock.Unlock()
	k.wakeupLocked(chan_)
}

// Kill marks the process with the given pid as killed, promoting it out of
// SLEEPING immediately so it observes the kill on its next wait/sleep check
// (spec §4.E kill). Returns an error if no live descriptor has that pid.
func (k *Kernel) Kill(pid int) error {
	k.Table.Lock.Lock()
	defer k.Table.Lock.Unlock()

	p := k.Table.FindByPid(pid)
	if p == nil {
		return kerrors.NoSuchPid(pid)
	}

	p.Killed = true
	if p.State == proc.Sleeping {
		p.VirtualRuntime += p.CurrentRuntime
		p.CurrentRuntime = 0
		p.State = proc.Runnable
		k.RunQueue.Insert(p)
	}
	return nil
}

// GrowProc resizes self's address space by n bytes, positive to grow,
// negative to shrink (spec §4.E growproc), then reinstalls it on the
// current virtual CPU.
func (k *Kernel) GrowProc(self *proc.Proc, n int) error {
	newSz, err := self.Pgdir.Grow(self.Sz, self.Sz+n)
	if err != nil {
		return err
	}
	self.Sz = newSz
	self.Pgdir.SwitchTo()
	return nil
}

func (k *Kernel) minGran() int64 { return int64(k.cfg.MinGran) }
