package io

import (
	"fmt"
	"unsafe"

	"github.com/ghetzel/shmtool/shm"

	"github.com/KyungWonPark/DynamicConnectivity/internal/dfc"
)

// SharedStack is a stack copied into a System V shared memory segment as
// n_windows x R x R float64 values, row-major, for an external process to
// attach by ID.
type SharedStack struct {
	ID      int
	Windows int
	Regions int

	segment *shm.Segment
	base    unsafe.Pointer
}

// StacktoShm copies s into a new shared memory segment. Release must be
// called once the consumer is done.
func StacktoShm(s *dfc.Stack) (*SharedStack, error) {
	data := flattenStack(s)
	if len(data) == 0 {
		return nil, fmt.Errorf("[StacktoShm] stack is empty")
	}

	segment, err := shm.Create(len(data) * 8)
	if err != nil {
		return nil, fmt.Errorf("[StacktoShm] failed to create shared memory region: %w", err)
	}

	base, err := segment.Attach()
	if err != nil {
		segment.Destroy()
		return nil, fmt.Errorf("[StacktoShm] failed to attach shared memory region: %w", err)
	}

	copy(unsafe.Slice((*float64)(base), len(data)), data)

	return &SharedStack{
		ID:      int(segment.Id),
		Windows: s.Len(),
		Regions: s.Regions(),
		segment: segment,
		base:    base,
	}, nil
}

// Release detaches and destroys the segment
func (s *SharedStack) Release() {
	s.segment.Detach(s.base)
	s.segment.Destroy()
}
