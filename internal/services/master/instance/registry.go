package instance

import "github.com/embervale/nexus/internal/services/master/transport"

// Registry is the dense set of known instances. Mutation happens only on the
// control loop goroutine, so no locking is needed.
type Registry struct {
	instances []*Instance
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends an instance.
func (r *Registry) Add(in *Instance) {
	r.instances = append(r.instances, in)
}

// Remove drops an instance from the registry.
func (r *Registry) Remove(in *Instance) {
	for i, known := range r.instances {
		if known == in {
			r.instances = append(r.instances[:i], r.instances[i+1:]...)
			return
		}
	}
}

// All returns the instances in insertion order. The slice is shared; callers
// removing entries while iterating should copy first.
func (r *Registry) All() []*Instance {
	return r.instances
}

// Len reports the number of known instances.
func (r *Registry) Len() int {
	return len(r.instances)
}

// GetByAddr returns the instance connected from addr, or nil.
func (r *Registry) GetByAddr(addr transport.Addr) *Instance {
	for _, in := range r.instances {
		if in.Addr == addr {
			return in
		}
	}
	return nil
}

// FindByMapAndInstance returns the running instance for (mapID, instanceID),
// or nil. The clone is not part of the key: callers address a running
// instance, not a reservation slot.
func (r *Registry) FindByMapAndInstance(mapID, instanceID uint16) *Instance {
	for _, in := range r.instances {
		if in.Zone.MapID == mapID && in.Zone.InstanceID == instanceID {
			return in
		}
	}
	return nil
}

// FindByMapID returns every instance serving mapID.
func (r *Registry) FindByMapID(mapID uint16) []*Instance {
	var matches []*Instance
	for _, in := range r.instances {
		if in.Zone.MapID == mapID {
			matches = append(matches, in)
		}
	}
	return matches
}

// FindPrivate returns the private instance gated by password, or nil.
func (r *Registry) FindPrivate(password string) *Instance {
	if password == "" {
		return nil
	}
	for _, in := range r.instances {
		if in.PrivatePassword == password {
			return in
		}
	}
	return nil
}

// IsPortInUse reports whether any instance already claims port.
func (r *Registry) IsPortInUse(port uint16) bool {
	for _, in := range r.instances {
		if in.Port == port {
			return true
		}
	}
	return false
}

// NextInstanceID returns the smallest instance ID not yet used for
// (mapID, cloneID), preserving the uniqueness of the zone triple.
func (r *Registry) NextInstanceID(mapID uint16, cloneID uint32) uint16 {
	used := map[uint16]bool{}
	for _, in := range r.instances {
		if in.Zone.MapID == mapID && in.Zone.CloneID == cloneID {
			used[in.Zone.InstanceID] = true
		}
	}
	var id uint16
	for used[id] {
		id++
	}
	return id
}
