package degrade

import (
	"sync/atomic"
	"time"
)

// Dependency identifies a probed external system.
type Dependency string

const (
	DependencyMasterData Dependency = "master-data"
	DependencyERP        Dependency = "erp"
	DependencyBlob       Dependency = "blob-storage"
)

// DependencyStatus is the probe outcome for one dependency.
type DependencyStatus struct {
	Healthy     bool          `json:"healthy"`
	Duration    time.Duration `json:"duration_ns"`
	Description string        `json:"description"`
	CheckedAt   time.Time     `json:"checked_at"`
}

// Snapshot is an immutable view of dependency health at a point in time.
type Snapshot struct {
	Dependencies map[Dependency]DependencyStatus
	UpdatedAt    time.Time
}

// CoreHealthy reports whether core validation can trust its rule sources.
// Blob storage does not gate core validation.
func (s Snapshot) CoreHealthy() bool {
	return s.healthy(DependencyMasterData) && s.healthy(DependencyERP)
}

func (s Snapshot) healthy(dep Dependency) bool {
	st, ok := s.Dependencies[dep]
	return ok && st.Healthy
}

// Health holds the current dependency snapshot. Request-path reads are
// lock-free; the prober is the single writer.
type Health struct {
	current atomic.Pointer[Snapshot]
}

// NewHealth starts with every dependency presumed healthy so the gate does
// not reject traffic before the first probe completes.
func NewHealth() *Health {
	h := &Health{}
	now := time.Now()
	h.current.Store(&Snapshot{
		Dependencies: map[Dependency]DependencyStatus{
			DependencyMasterData: {Healthy: true, CheckedAt: now, Description: "assumed healthy before first probe"},
			DependencyERP:        {Healthy: true, CheckedAt: now, Description: "assumed healthy before first probe"},
			DependencyBlob:       {Healthy: true, CheckedAt: now, Description: "assumed healthy before first probe"},
		},
		UpdatedAt: now,
	})
	return h
}

// Snapshot returns the latest published view.
func (h *Health) Snapshot() Snapshot {
	return *h.current.Load()
}

// Publish replaces the snapshot. Only the prober calls this.
func (h *Health) Publish(s Snapshot) {
	h.current.Store(&s)
}
