package mutx

import (
	"sync"

	"k8s.io/apimachinery/pkg/util/sets"
)

// VolumeLocks marks VDI names that have a mutating request in flight in this process.
// It does not coordinate with other clients of the cluster.
type VolumeLocks struct {
	names sets.String
	mux   sync.Mutex
}

func NewVolumeLocks() *VolumeLocks {
	return &VolumeLocks{
		names: sets.NewString(),
	}
}

// TryAcquire takes every name or none of them. Returns false if any is busy.
func (vl *VolumeLocks) TryAcquire(names ...string) bool {
	vl.mux.Lock()
	defer vl.mux.Unlock()
	if vl.names.HasAny(names...) {
		return false
	}
	vl.names.Insert(names...)
	return true
}

func (vl *VolumeLocks) Release(names ...string) {
	vl.mux.Lock()
	defer vl.mux.Unlock()
	vl.names.Delete(names...)
}

// Busy lists the names currently held, sorted.
func (vl *VolumeLocks) Busy() []string {
	vl.mux.Lock()
	defer vl.mux.Unlock()
	return vl.names.List()
}
