// Package connection turns connect/disconnect intents into correctly
// ordered policy checks, certificate-readiness checks, and asynchronous
// daemon calls, deduplicating concurrent requests per network and
// normalizing failures into the stable error-name taxonomy in pkg/types.
package connection

import (
	"context"
	"sync"
	"time"

	"github.com/angelfreak/connd/pkg/policy"
	"github.com/angelfreak/connd/pkg/types"
)

// Handler is the connection request state machine. All state is guarded by
// one mutex; blocking provider calls run on goroutines owned by the
// handler, and caller callbacks and observer notifications are always
// invoked with the mutex released, so callbacks may reenter the handler.
type Handler struct {
	logger types.Logger

	mu        sync.Mutex
	state     types.NetworkStateProvider
	config    types.NetworkConfigurationProvider
	policies  *policy.Checker
	esim      types.CellularESimProvider
	tether    types.TetherDelegate
	pending   *pendingStore
	observers *observerHub
	certGate  *certGate
	down      bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHandler creates a connection handler. Init must be called before any
// request is issued.
func NewHandler(logger types.Logger) *Handler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		logger:    logger,
		pending:   newPendingStore(),
		observers: &observerHub{},
		certGate:  newCertGate(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Init injects the provider dependencies. The eSIM provider may be nil on
// devices without cellular hardware.
func (h *Handler) Init(
	state types.NetworkStateProvider,
	config types.NetworkConfigurationProvider,
	policyProvider types.PolicyProvider,
	esim types.CellularESimProvider,
) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = state
	h.config = config
	h.policies = policy.NewChecker(policyProvider, h.logger)
	h.esim = esim
}

// SetCertificateProvider hooks up the client-certificate store. Without a
// provider, networks requiring a pattern-matched certificate fail with
// certificate-required.
func (h *Handler) SetCertificateProvider(certs types.CertificateProvider) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.certGate.provider = certs
}

// SetCertLoadTimeout overrides the certificate-load wait, for tests.
func (h *Handler) SetCertLoadTimeout(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.certGate.timeout = d
}

// SetTetherDelegate registers the delegate that handles tether networks in
// place of the daemon.
func (h *Handler) SetTetherDelegate(d types.TetherDelegate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tether = d
}

// AddObserver registers an observer; notification order is registration
// order.
func (h *Handler) AddObserver(o types.Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observers.add(o)
}

// RemoveObserver unregisters an observer.
func (h *Handler) RemoveObserver(o types.Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observers.remove(o)
}

// HasPendingRequest reports whether a request for id is outstanding.
func (h *Handler) HasPendingRequest(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pending.has(id)
}

// ConnectToNetwork starts a connect attempt for id. Exactly one of
// onSuccess or onError fires, exactly once. With checkErrorState set,
// unmet preconditions visible in the network's properties (a required
// passphrase) fail the request before any daemon call. The mode selects
// whether success means the daemon accepted the call or the network
// reached a connected state.
func (h *Handler) ConnectToNetwork(
	id string,
	onSuccess func(),
	onError func(errorName string),
	checkErrorState bool,
	mode types.ConnectCallbackMode,
) {
	h.logger.Debug("Connect requested", "network", id)
	h.notifyConnectRequested(id)

	h.mu.Lock()
	if h.down {
		h.failLocked(id, onError, types.ErrorConnectCanceled)
		return
	}
	if h.pending.has(id) {
		h.failLocked(id, onError, types.ErrorConnecting)
		return
	}

	props, known := h.state.NetworkProperties(id)
	if known {
		if props.IsConnected() {
			h.failLocked(id, onError, types.ErrorConnected)
			return
		}
		if props.IsConnecting() {
			h.failLocked(id, onError, types.ErrorConnecting)
			return
		}
	}

	if h.state.IsTetherNetwork(id) {
		h.routeTetherLocked(id, onSuccess, onError, false)
		return
	}

	req := &request{
		id:        id,
		mode:      mode,
		onSuccess: onSuccess,
		onError:   onError,
	}
	if known {
		req.profileID = props.Profile

		if name := h.policies.Check(props); name != "" {
			h.failLocked(id, onError, name)
			return
		}

		switch h.certGate.check(props) {
		case certMissing:
			h.failLocked(id, onError, types.ErrorCertificateRequired)
			return
		case certWait:
			h.queueConnectLocked(req)
			return
		}
	}

	h.pending.create(req)
	h.mu.Unlock()
	go h.connectRequest(id, checkErrorState)
}

// DisconnectNetwork starts a disconnect for id. Exactly one of onSuccess or
// onError fires, exactly once.
func (h *Handler) DisconnectNetwork(id string, onSuccess func(), onError func(errorName string)) {
	h.logger.Debug("Disconnect requested", "network", id)
	h.notifyDisconnectRequested(id)

	h.mu.Lock()
	if h.down {
		h.failLocked(id, onError, types.ErrorConnectCanceled)
		return
	}
	if h.pending.has(id) {
		h.failLocked(id, onError, types.ErrorConnecting)
		return
	}

	props, known := h.state.NetworkProperties(id)
	if !known {
		h.failLocked(id, onError, types.ErrorConfigureFailed)
		return
	}
	if !props.IsConnected() && !props.IsConnecting() {
		h.failLocked(id, onError, types.ErrorNotConnected)
		return
	}

	if h.state.IsTetherNetwork(id) {
		h.routeTetherLocked(id, onSuccess, onError, true)
		return
	}

	h.pending.create(&request{
		id:         id,
		disconnect: true,
		onSuccess:  onSuccess,
		onError:    onError,
	})
	h.mu.Unlock()
	go h.disconnectRequest(id)
}

// OnCertificatesLoaded re-issues the queued cert-gated connect, if any,
// through the normal connect path. The daemon watcher calls this when the
// certificate store signals load completion.
func (h *Handler) OnCertificatesLoaded() {
	h.mu.Lock()
	id, ok := h.certGate.takeQueued()
	if !ok {
		h.mu.Unlock()
		return
	}
	h.logger.Debug("Certificates loaded, resuming queued connect", "network", id)
	h.connectToQueuedNetworkLocked(id)
}

// NetworkPropertiesUpdated feeds a daemon property change into the handler.
// Requests waiting in CONNECTING resolve once their network reaches a
// connected state, or fail if it lands in the failure state.
func (h *Handler) NetworkPropertiesUpdated(props *types.NetworkProperties) {
	h.mu.Lock()
	req, ok := h.pending.get(props.ID)
	if !ok || req.disconnect || req.state != stateConnecting {
		h.mu.Unlock()
		return
	}
	switch {
	case props.IsConnected():
		h.mu.Unlock()
		h.resolveSuccess(props.ID)
	case props.State == types.StateFailure:
		h.mu.Unlock()
		h.resolveError(props.ID, types.ErrorConnectFailed)
	default:
		h.mu.Unlock()
	}
}

// NetworkListChanged rechecks every CONNECTING request against the state
// cache; the daemon watcher calls this when networks appear or disappear.
func (h *Handler) NetworkListChanged() {
	h.mu.Lock()
	var connecting []string
	for id, req := range h.pending.requests {
		if !req.disconnect && req.state == stateConnecting {
			connecting = append(connecting, id)
		}
	}
	state := h.state
	h.mu.Unlock()

	for _, id := range connecting {
		if props, ok := state.NetworkProperties(id); ok {
			h.NetworkPropertiesUpdated(props)
		}
	}
}

// Shutdown resolves every pending and queued request with connect-canceled.
// No callback is ever silently dropped.
func (h *Handler) Shutdown() {
	h.mu.Lock()
	if h.down {
		h.mu.Unlock()
		return
	}
	h.down = true
	h.cancel()
	h.certGate.takeQueued()
	reqs := h.pending.drain()
	obs := h.observers.snapshot()
	h.mu.Unlock()

	for _, req := range reqs {
		h.logger.Info("Cancelling pending request on shutdown", "network", req.id)
		for _, o := range obs {
			o.ConnectFailed(req.id, types.ErrorConnectCanceled)
		}
		if req.onError != nil {
			req.onError(types.ErrorConnectCanceled)
		}
	}
}

// --- connect path ---

// connectRequest drives one connect attempt against the daemon. Runs on its
// own goroutine; every exit resolves the pending entry exactly once.
func (h *Handler) connectRequest(id string, checkErrorState bool) {
	props, known := h.currentProperties(id)
	if !known {
		h.resolveError(id, types.ErrorConfigureFailed)
		return
	}
	if checkErrorState && props.PassphraseRequired {
		h.resolveError(id, types.ErrorPassphraseRequired)
		return
	}
	if props.IsConnected() {
		h.resolveError(id, types.ErrorConnected)
		return
	}
	if props.IsConnecting() {
		h.resolveError(id, types.ErrorConnecting)
		return
	}

	if needsESimEnable(props) && h.esim != nil {
		h.logger.Debug("Enabling eSIM profile before connect", "network", id, "iccid", props.Cellular.ICCID)
		if err := h.esim.EnableProfile(h.ctx, props.Cellular.ICCID); err != nil {
			h.logger.Error("eSIM profile enable failed", "network", id, "error", err)
			h.resolveError(id, types.ErrorESimProfileIssue)
			return
		}
		if props, known = h.currentProperties(id); !known {
			h.resolveError(id, types.ErrorConfigureFailed)
			return
		}
	}

	h.verifyConfiguredAndConnect(id, props)
}

// verifyConfiguredAndConnect configures the network into its destination
// profile when needed, then issues the daemon connect call.
func (h *Handler) verifyConfiguredAndConnect(id string, props *types.NetworkProperties) {
	h.mu.Lock()
	req, ok := h.pending.get(id)
	if !ok {
		h.mu.Unlock()
		return
	}
	profileID := req.profileID
	mode := req.mode
	h.pending.advance(id, stateStarted)
	h.mu.Unlock()

	if !props.Connectable && profileID != "" {
		h.logger.Debug("Configuring network before connect", "network", id, "profile", profileID)
		if err := h.config.ConfigureNetwork(h.ctx, id, profileID); err != nil {
			h.logger.Error("Network configuration failed", "network", id, "error", err)
			h.resolveError(id, types.ErrorConfigureFailed)
			return
		}
	}

	// Mark the request as awaiting a terminal state before the RPC is in
	// flight, so a property change observed during the call can resolve
	// it. Resolution is idempotent either way.
	if mode == types.CallbackOnCompleted {
		h.mu.Lock()
		h.pending.advance(id, stateConnecting)
		h.mu.Unlock()
	}

	if err := h.config.Connect(h.ctx, id); err != nil {
		h.logger.Error("Daemon connect failed", "network", id, "error", err)
		h.resolveError(id, types.MapDaemonError(err, types.ErrorConnectFailed))
		return
	}

	if mode == types.CallbackOnConfigured {
		h.resolveSuccess(id)
		return
	}
	// ON_COMPLETED: the network may already have reached a connected
	// state while the call was in flight.
	if current, ok := h.currentProperties(id); ok && current.IsConnected() {
		h.resolveSuccess(id)
	}
}

// disconnectRequest drives one disconnect attempt against the daemon.
func (h *Handler) disconnectRequest(id string) {
	if err := h.config.Disconnect(h.ctx, id); err != nil {
		h.logger.Error("Daemon disconnect failed", "network", id, "error", err)
		h.resolveError(id, types.MapDaemonError(err, types.ErrorDisconnectFailed))
		return
	}
	h.resolveSuccess(id)
}

func (h *Handler) currentProperties(id string) (*types.NetworkProperties, bool) {
	h.mu.Lock()
	state := h.state
	h.mu.Unlock()
	return state.NetworkProperties(id)
}

func needsESimEnable(props *types.NetworkProperties) bool {
	return props.Type == types.TypeCellular &&
		!props.Connectable &&
		props.Cellular != nil &&
		props.Cellular.HasESimProfile
}

// --- certificate gate ---

// queueConnectLocked parks the request behind the in-progress certificate
// store load. Called with the mutex held; releases it.
func (h *Handler) queueConnectLocked(req *request) {
	h.pending.create(req)
	superseded := h.certGate.queue(req.id, h.certLoadTimedOut)
	h.mu.Unlock()

	h.logger.Info("Connect queued awaiting certificate load", "network", req.id)
	if superseded != "" {
		h.logger.Warn("Queued connect superseded", "network", superseded)
		h.resolveError(superseded, types.ErrorConnectCanceled)
	}
}

// certLoadTimedOut fires from the gate's timer when certificates did not
// load in time.
func (h *Handler) certLoadTimedOut(id string) {
	h.mu.Lock()
	if !h.certGate.expire(id) {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()
	h.logger.Warn("Certificate load timed out", "network", id)
	h.resolveError(id, types.ErrorCertLoadTimeout)
}

// connectToQueuedNetworkLocked re-runs the certificate check for the
// formerly queued request and hands it to the daemon connector. Called with
// the mutex held; releases it.
func (h *Handler) connectToQueuedNetworkLocked(id string) {
	props, known := h.state.NetworkProperties(id)
	if !known {
		h.mu.Unlock()
		h.resolveError(id, types.ErrorConfigureFailed)
		return
	}
	if h.certGate.check(props) != certOK {
		h.mu.Unlock()
		h.resolveError(id, types.ErrorCertificateRequired)
		return
	}
	h.mu.Unlock()
	h.verifyConfiguredAndConnect(id, props)
}

// --- tether routing ---

// routeTetherLocked forwards the request to the tether delegate, or fails
// it when none is registered. Called with the mutex held; releases it.
func (h *Handler) routeTetherLocked(id string, onSuccess func(), onError func(string), disconnect bool) {
	h.pending.create(&request{
		id:         id,
		disconnect: disconnect,
		onSuccess:  onSuccess,
		onError:    onError,
	})
	delegate := h.tether
	h.mu.Unlock()

	if delegate == nil {
		h.logger.Warn("Tether request with no delegate", "network", id)
		h.resolveError(id, types.ErrorTetherAttemptWithNoDelegate)
		return
	}
	success := func() { h.resolveSuccess(id) }
	failure := func(errorName string) { h.resolveError(id, errorName) }
	if disconnect {
		delegate.DisconnectFromNetwork(id, success, failure)
	} else {
		delegate.ConnectToNetwork(id, success, failure)
	}
}

// --- resolution ---

// resolveSuccess resolves the pending request for id with success. Unknown
// ids are a no-op; the entry may already have been cleared by a concurrent
// resolution path.
func (h *Handler) resolveSuccess(id string) {
	h.mu.Lock()
	req, ok := h.pending.take(id)
	obs := h.observers.snapshot()
	h.mu.Unlock()
	if !ok {
		return
	}
	h.logger.Info("Request succeeded", "network", id, "disconnect", req.disconnect)
	for _, o := range obs {
		o.ConnectSucceeded(id)
	}
	if req.onSuccess != nil {
		req.onSuccess()
	}
}

// resolveError resolves the pending request for id with the given error
// name. Unknown ids are a no-op.
func (h *Handler) resolveError(id, errorName string) {
	h.mu.Lock()
	req, ok := h.pending.take(id)
	obs := h.observers.snapshot()
	h.mu.Unlock()
	if !ok {
		return
	}
	h.logger.Info("Request failed", "network", id, "error", errorName, "disconnect", req.disconnect)
	for _, o := range obs {
		o.ConnectFailed(id, errorName)
	}
	if req.onError != nil {
		req.onError(errorName)
	}
}

// failLocked rejects a request that never entered the pending store.
// Called with the mutex held; releases it before invoking callbacks.
func (h *Handler) failLocked(id string, onError func(string), errorName string) {
	obs := h.observers.snapshot()
	h.mu.Unlock()
	h.logger.Info("Request rejected", "network", id, "error", errorName)
	for _, o := range obs {
		o.ConnectFailed(id, errorName)
	}
	if onError != nil {
		onError(errorName)
	}
}

func (h *Handler) notifyConnectRequested(id string) {
	h.mu.Lock()
	obs := h.observers.snapshot()
	h.mu.Unlock()
	for _, o := range obs {
		o.ConnectToNetworkRequested(id)
	}
}

func (h *Handler) notifyDisconnectRequested(id string) {
	h.mu.Lock()
	obs := h.observers.snapshot()
	h.mu.Unlock()
	for _, o := range obs {
		o.DisconnectRequested(id)
	}
}
