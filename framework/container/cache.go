package container

import (
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"
)

// processStore holds singleton instances for the process lifetime. It is the
// only structure written concurrently at runtime; first resolutions of the
// same key collapse into a single constructor invocation via singleflight,
// so every caller observes the identical instance.
type processStore struct {
	mu        sync.RWMutex
	instances map[reflect.Type]any
	group     singleflight.Group
}

func newProcessStore() *processStore {
	return &processStore{instances: make(map[reflect.Type]any)}
}

func (s *processStore) get(key reflect.Type) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.instances[key]
	return v, ok
}

// getOrCreate returns the stored instance for key, building it at most once.
// Construction errors are not cached; a later call retries.
func (s *processStore) getOrCreate(keyID string, key reflect.Type, build func() (any, error)) (any, error) {
	if v, ok := s.get(key); ok {
		return v, nil
	}
	v, err, _ := s.group.Do(keyID, func() (any, error) {
		if v, ok := s.get(key); ok {
			return v, nil
		}
		v, err := build()
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.instances[key] = v
		s.mu.Unlock()
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// forget drops a stored instance so a replaced binding is rebuilt with its
// new implementation.
func (s *processStore) forget(key reflect.Type) {
	s.mu.Lock()
	delete(s.instances, key)
	s.mu.Unlock()
}

// resolveSingleton serves reg from its process store, constructing and
// registering the disposal hook on first use.
func (c *Container) resolveSingleton(reg *registration, res *Resolution) (any, error) {
	return reg.store.getOrCreate(reg.keyID, reg.binding.Protocol, func() (any, error) {
		v, cleanup, err := c.construct(reg, res)
		if err != nil {
			return nil, err
		}
		_ = cleanup // cleanup-returning constructors never reach Singleton
		// pre-built instances had their hook registered when they were
		// stored; adding it again here would dispose them twice
		if reg.impl.kind != implInstance {
			if hook := disposalHookOf(v); hook != nil {
				reg.disposals.add(reg.binding.Protocol, hook)
			}
		}
		return v, nil
	})
}

// keyID derives the stable singleflight key for a protocol type.
func keyID(t reflect.Type) string {
	return t.PkgPath() + "#" + t.String()
}
