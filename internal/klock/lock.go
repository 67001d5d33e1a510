//go:build !deadlock

package klock

import "sync"

// Mutex is the spinlock type guarding ptable and the runqueue. The real
// kernel's spinlock disables interrupts on acquire (pushcli/popcli) and
// re-enables on release (§6); that discipline lives at the trap-handling
// boundary this core treats as out of scope, so here it's a plain mutex.
type Mutex = sync.Mutex
