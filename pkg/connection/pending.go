package connection

import "github.com/angelfreak/connd/pkg/types"

// requestState tracks how far a request has progressed. Transitions are
// monotonically non-decreasing.
type requestState int

const (
	stateRequested requestState = iota
	stateStarted
	stateConnecting
)

// request is one in-flight connect or disconnect attempt. The callbacks are
// invoked exactly once; removal from the store is what guarantees that.
type request struct {
	id         string
	profileID  string
	mode       types.ConnectCallbackMode
	state      requestState
	disconnect bool
	onSuccess  func()
	onError    func(errorName string)
}

// pendingStore maps network ids to in-flight requests. It is the single
// source of truth for "is this network already being connected or
// disconnected". Not safe for concurrent use; the Handler serializes all
// access under its mutex.
type pendingStore struct {
	requests map[string]*request
}

func newPendingStore() *pendingStore {
	return &pendingStore{requests: make(map[string]*request)}
}

// has reports whether a request for id is outstanding.
func (s *pendingStore) has(id string) bool {
	_, ok := s.requests[id]
	return ok
}

// create stores a new request. It fails without overwriting if an entry for
// the id already exists; callers must check first.
func (s *pendingStore) create(req *request) bool {
	if _, ok := s.requests[req.id]; ok {
		return false
	}
	s.requests[req.id] = req
	return true
}

// get returns the outstanding request for id without removing it.
func (s *pendingStore) get(id string) (*request, bool) {
	req, ok := s.requests[id]
	return req, ok
}

// take removes and returns the request for id. The second of two racing
// resolvers finds no entry and does nothing, which is what makes resolution
// idempotent.
func (s *pendingStore) take(id string) (*request, bool) {
	req, ok := s.requests[id]
	if ok {
		delete(s.requests, id)
	}
	return req, ok
}

// clear erases the entry for id without resolving it. Unknown ids are a
// no-op.
func (s *pendingStore) clear(id string) {
	delete(s.requests, id)
}

// advance bumps the request's state; states never move backwards.
func (s *pendingStore) advance(id string, state requestState) {
	if req, ok := s.requests[id]; ok && state > req.state {
		req.state = state
	}
}

// drain removes and returns every outstanding request, for shutdown.
func (s *pendingStore) drain() []*request {
	reqs := make([]*request, 0, len(s.requests))
	for id, req := range s.requests {
		reqs = append(reqs, req)
		delete(s.requests, id)
	}
	return reqs
}
