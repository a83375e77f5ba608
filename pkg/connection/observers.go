package connection

import "github.com/angelfreak/connd/pkg/types"

// observerHub fans out request lifecycle notifications in registration
// order. Not safe for concurrent use; the Handler serializes mutation under
// its mutex and notifies from a snapshot, so an observer removing itself
// mid-callback does not invalidate the fan-out.
type observerHub struct {
	observers []types.Observer
}

func (h *observerHub) add(o types.Observer) {
	for _, existing := range h.observers {
		if existing == o {
			return
		}
	}
	h.observers = append(h.observers, o)
}

func (h *observerHub) remove(o types.Observer) {
	for i, existing := range h.observers {
		if existing == o {
			h.observers = append(h.observers[:i], h.observers[i+1:]...)
			return
		}
	}
}

// snapshot returns a copy of the registration-ordered observer list.
func (h *observerHub) snapshot() []types.Observer {
	obs := make([]types.Observer, len(h.observers))
	copy(obs, h.observers)
	return obs
}
