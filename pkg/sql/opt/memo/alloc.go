// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package memo

// pageSize is the number of structs allocated at once by pageAlloc.
const pageSize = 16

// pageAlloc allocates pages of T structs. This is preferable to a slice of T
// structs because pointers are not invalidated when a resize occurs, so the
// memo can hand out *Node, *Set and *Subset while it keeps growing, and
// merges never copy them.
type pageAlloc[T any] struct {
	page []T
}

// allocate returns a pointer to a new, zeroed T. The pointer is stable,
// meaning that its location won't change as other structs are allocated.
func (a *pageAlloc[T]) allocate() *T {
	if len(a.page) == 0 {
		a.page = make([]T, pageSize)
	}
	t := &a.page[0]
	a.page = a.page[1:]
	return t
}
