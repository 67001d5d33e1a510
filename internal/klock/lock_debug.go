//go:build deadlock

// Package klock provides the spinlock type used for ptable.lock and
// tasks.lock. Built with the "deadlock" tag, it swaps in go-deadlock so the
// lock-ordering discipline spec §5 requires (tasks.lock always inside or
// disjoint from ptable.lock, never the reverse) is checked at runtime
// instead of only asserted in comments.
package klock

import "github.com/sasha-s/go-deadlock"

// Mutex is the spinlock type guarding ptable and the runqueue.
type Mutex = deadlock.Mutex
