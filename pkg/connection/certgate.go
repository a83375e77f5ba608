package connection

import (
	"time"

	"github.com/angelfreak/connd/pkg/types"
)

// DefaultCertLoadTimeout bounds how long a connect request may wait for the
// client-certificate store to finish loading.
const DefaultCertLoadTimeout = 15 * time.Second

// certGateResult classifies a connect target against certificate readiness.
type certGateResult int

const (
	certOK certGateResult = iota
	certMissing
	certWait
)

// certGate holds at most one connect request back until certificates load
// or the timeout fires. System-wide, not per network: a second cert-gated
// request supersedes the first. Not safe for concurrent use; the Handler
// serializes access, and the timer callback re-enters through the Handler.
type certGate struct {
	provider types.CertificateProvider
	timeout  time.Duration

	queuedID string
	timer    *time.Timer
}

func newCertGate() *certGate {
	return &certGate{timeout: DefaultCertLoadTimeout}
}

// check classifies props: certOK to proceed, certMissing to fail with
// certificate-required, certWait to queue behind the in-progress store load.
func (g *certGate) check(props *types.NetworkProperties) certGateResult {
	if !props.ClientCertPattern {
		return certOK
	}
	if g.provider == nil {
		// No certificate store at all; certificates can never become
		// available.
		return certMissing
	}
	if g.provider.CertificatesLoaded() {
		if !g.provider.HasMatchingCertificate(props) {
			return certMissing
		}
		return certOK
	}
	if g.provider.LoadInProgress() {
		return certWait
	}
	return certMissing
}

// queue parks id behind the certificate load and arms the timeout. It
// returns the id of a previously queued request that is being superseded,
// or "".
func (g *certGate) queue(id string, onTimeout func(id string)) (supersededID string) {
	supersededID = g.queuedID
	g.stopTimer()
	g.queuedID = id
	g.timer = time.AfterFunc(g.timeout, func() { onTimeout(id) })
	return supersededID
}

// takeQueued clears and returns the queued id, cancelling the timeout.
func (g *certGate) takeQueued() (string, bool) {
	if g.queuedID == "" {
		return "", false
	}
	id := g.queuedID
	g.queuedID = ""
	g.stopTimer()
	return id, true
}

// expire clears the queue if id is still the queued request. Returns false
// when the queue was already resolved or superseded.
func (g *certGate) expire(id string) bool {
	if g.queuedID != id {
		return false
	}
	g.queuedID = ""
	g.timer = nil
	return true
}

func (g *certGate) stopTimer() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}
