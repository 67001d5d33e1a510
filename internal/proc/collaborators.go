package proc

// These interfaces are the named collaborators spec §6 treats as external
// to the scheduling core: virtual-memory setup, page allocation,
// file/inode refcounting, and the register-save context switch primitive.
// The core only ever calls through these interfaces; it never assumes a
// concrete implementation. A simulated implementation good enough to drive
// the CLI demo and the tests lives in internal/hw.

// AddressSpace stands in for setupkvm/inituvm/allocuvm/deallocuvm/copyuvm/
// freevm/switchuvm/switchkvm. One instance is owned per descriptor.
type AddressSpace interface {
	// Init installs the embedded first-user-program image and returns its
	// byte size (mirrors setupkvm + inituvm).
	Init(image []byte) (size int, err error)

	// Grow resizes the user image from oldSz to newSz bytes (allocuvm for
	// growth, deallocuvm for shrink), returning the new size.
	Grow(oldSz, newSz int) (int, error)

	// Copy duplicates the address space for a forked child (copyuvm).
	Copy(sz int) (AddressSpace, error)

	// Free releases the address space (freevm), called once by the
	// reaping parent in wait().
	Free()

	// SwitchTo installs this address space on the running virtual CPU
	// (switchuvm).
	SwitchTo()
}

// FileHandle stands in for an open-file table entry (filedup/fileclose).
// Ownership is shared: Dup bumps a refcount, Close drops it.
type FileHandle interface {
	Dup() FileHandle
	Close()
}

// Inode stands in for a cwd reference (idup/iput).
type Inode interface {
	Dup() Inode
	Put()
}

// Context is the saved-register context a ContextSwitcher resumes into. PC
// is the resume address (left 0 by the kernel for a new child); BackTrace is
// populated for sleepers so procdump can print a frame-pointer walk the way
// the original kernel's procdump does.
type Context struct {
	PC        uintptr
	BackTrace []uintptr
}

// TrapFrame is the minimal trap-frame surface the core touches: only the
// return value slot fork() zeroes for the child.
type TrapFrame struct {
	ReturnValue int
}

// ContextSwitcher stands in for swtch: saves the caller's register file
// into old, loads new, and transfers control. The scheduling core treats
// it as opaque; it never inspects register contents itself.
type ContextSwitcher interface {
	Switch(old, new *Context)
}

// VirtualCPU stands in for the cpus[] / mycpu() / cpuid() collaborators: a
// per-CPU identity plus the context the scheduler loop resumes into.
type VirtualCPU struct {
	ID          int
	Scheduler   Context
	Current     *Proc
	NumCli      int
	IntsEnabled bool
}
