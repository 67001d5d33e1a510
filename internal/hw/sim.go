// Package hw provides a simulated implementation of the scheduling core's
// external collaborators (spec §6): address-space setup, file/inode
// refcounting, and the context-switch primitive. None of it models real
// page tables or register files — it exists so the CLI demo and the tests
// can drive fork/exit/wait/sleep/wakeup end to end without a real
// multiprocessor underneath.
package hw

import (
	"sync/atomic"

	"github.com/arctir-kernel/cfsproc/internal/proc"
)

// Provider constructs fresh collaborator instances, standing in for
// kalloc/setupkvm/filedup-style factories.
type Provider interface {
	NewAddressSpace() proc.AddressSpace
	NewInode() proc.Inode
	ContextSwitcher() proc.ContextSwitcher
}

// SimProvider is the default in-memory Provider. FailCopies, if positive,
// makes that many subsequent AddressSpace.Copy calls fail, simulating the
// kalloc/copyuvm exhaustion path fork()'s rollback (spec §7) guards
// against.
type SimProvider struct {
	FailCopies int32
	switcher   proc.ContextSwitcher
}

// NewSimProvider returns a Provider with no injected failures.
func NewSimProvider() *SimProvider {
	return &SimProvider{switcher: &NopContextSwitcher{}}
}

func (p *SimProvider) NewAddressSpace() proc.AddressSpace {
	return &AddressSpace{provider: p}
}

func (p *SimProvider) NewInode() proc.Inode {
	return &Inode{refcount: new(int32)}
}

func (p *SimProvider) ContextSwitcher() proc.ContextSwitcher { return p.switcher }

// AddressSpace is a simulated page-directory handle: it tracks only the
// byte size of the user image, not real page tables.
type AddressSpace struct {
	provider *SimProvider
	sz       int
	freed    bool
}

func (a *AddressSpace) Init(image []byte) (int, error) {
	a.sz = len(image)
	return a.sz, nil
}

func (a *AddressSpace) Grow(oldSz, newSz int) (int, error) {
	a.sz = newSz
	return newSz, nil
}

func (a *AddressSpace) Copy(sz int) (proc.AddressSpace, error) {
	if a.provider != nil && atomic.LoadInt32(&a.provider.FailCopies) > 0 {
		atomic.AddInt32(&a.provider.FailCopies, -1)
		return nil, errAllocationFailed
	}
	return &AddressSpace{provider: a.provider, sz: sz}, nil
}

func (a *AddressSpace) Free() { a.freed = true }

func (a *AddressSpace) SwitchTo() {}

// Inode is a simulated cwd reference with a shared refcount, the way
// idup/iput share one underlying inode across descriptors.
type Inode struct {
	refcount *int32
}

func (i *Inode) Dup() proc.Inode {
	atomic.AddInt32(i.refcount, 1)
	return i
}

func (i *Inode) Put() { atomic.AddInt32(i.refcount, -1) }

// File is a simulated open-file handle with a shared refcount.
type File struct {
	refcount *int32
}

// NewFile returns a fresh, singly-referenced file handle.
func NewFile() *File {
	refs := int32(1)
	return &File{refcount: &refs}
}

func (f *File) Dup() proc.FileHandle {
	atomic.AddInt32(f.refcount, 1)
	return f
}

func (f *File) Close() { atomic.AddInt32(f.refcount, -1) }

// Refs reports the current reference count, for tests.
func (f *File) Refs() int32 { return atomic.LoadInt32(f.refcount) }

// NopContextSwitcher is a ContextSwitcher that performs no actual register
// save/restore. The scheduling core in this simulator runs single-threaded
// and cooperative: lifecycle operations (yield/sleep/exit) perform the
// state transition and simply return control to their caller rather than
// literally suspending a call stack, so swtch's effect — "transfer control,
// touch nothing but the register file and stack" — reduces to a no-op here.
type NopContextSwitcher struct {
	Switches int
}

func (n *NopContextSwitcher) Switch(old, new *proc.Context) {
	n.Switches++
}

var errAllocationFailed = simErr("simulated allocation failure")

type simErr string

func (e simErr) Error() string { return string(e) }
