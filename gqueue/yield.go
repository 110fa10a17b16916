// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package gqueue

import "runtime"

// procYield gives other goroutines a chance to run while this one
// spins waiting on a counter. It is a thin wrapper so the spin points
// in this package read as intentional rather than accidental busy-loops.
func procYield() { runtime.Gosched() }
