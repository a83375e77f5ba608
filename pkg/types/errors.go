package types

import "fmt"

// Error names delivered through connection error callbacks. The string
// values are part of the external contract and must stay stable across
// versions; callers key retry and UI behavior on them.
const (
	// ErrorConfigureFailed means the network is unknown to the daemon or
	// configuring it before connecting failed.
	ErrorConfigureFailed = "configure-failed"
	// ErrorConnected means the network is already connected.
	ErrorConnected = "connected"
	// ErrorConnecting means a connect attempt for the network is already
	// in progress.
	ErrorConnecting = "connecting"
	// ErrorNotConnected means a disconnect was requested for a network
	// that is neither connected nor connecting.
	ErrorNotConnected = "not-connected"
	// ErrorPassphraseRequired means the network needs a passphrase before
	// it can connect.
	ErrorPassphraseRequired = "passphrase-required"
	// ErrorCertificateRequired means the network needs a client
	// certificate that is not available and cannot become available.
	ErrorCertificateRequired = "certificate-required"
	// ErrorCertLoadTimeout means the certificate store did not finish
	// loading within the allowed time.
	ErrorCertLoadTimeout = "cert-load-timeout"
	// ErrorBlockedByPolicy means enterprise policy forbids connecting to
	// the network.
	ErrorBlockedByPolicy = "blocked-by-policy"
	// ErrorConnectFailed is the generic daemon connect failure.
	ErrorConnectFailed = "connect-failed"
	// ErrorDisconnectFailed is the generic daemon disconnect failure.
	ErrorDisconnectFailed = "disconnect-failed"
	// ErrorConnectCanceled means the request was superseded or the
	// handler shut down before the request resolved.
	ErrorConnectCanceled = "connect-canceled"
	// ErrorTetherAttemptWithNoDelegate means a tether network was
	// targeted while no tether delegate was registered.
	ErrorTetherAttemptWithNoDelegate = "tether-with-no-delegate"
	// ErrorESimProfileIssue means enabling the network's eSIM profile
	// failed.
	ErrorESimProfileIssue = "esim-profile-issue"
)

// DaemonError is an error returned by a daemon RPC, carrying the daemon's
// own error name so recognized names can pass through to callers verbatim.
type DaemonError struct {
	Name    string
	Message string
}

func (e *DaemonError) Error() string {
	if e.Message == "" {
		return e.Name
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// recognized daemon error names that pass through to error callbacks
// unmapped.
var passThroughErrorNames = map[string]bool{
	ErrorConnected:          true,
	ErrorConnecting:         true,
	ErrorNotConnected:       true,
	ErrorPassphraseRequired: true,
	ErrorBlockedByPolicy:    true,
	ErrorConnectFailed:      true,
	ErrorDisconnectFailed:   true,
}

// MapDaemonError normalizes an error returned by a daemon RPC into the
// error-name taxonomy. Recognized daemon error names pass through,
// everything else collapses to the supplied fallback name.
func MapDaemonError(err error, fallback string) string {
	if derr, ok := err.(*DaemonError); ok && passThroughErrorNames[derr.Name] {
		return derr.Name
	}
	return fallback
}
