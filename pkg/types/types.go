package types

import (
	"context"
	"time"
)

// Network type values as reported by the daemon.
const (
	TypeWifi     = "wifi"
	TypeEthernet = "ethernet"
	TypeVPN      = "vpn"
	TypeCellular = "cellular"
	TypeTether   = "tether"
)

// Network state values as reported by the daemon.
const (
	StateIdle          = "idle"
	StateAssociation   = "association"
	StateConfiguration = "configuration"
	StateReady         = "ready"
	StateOnline        = "online"
	StateDisconnecting = "disconnecting"
	StateFailure       = "failure"
)

// IsConnectedState reports whether a daemon state string counts as connected.
func IsConnectedState(state string) bool {
	return state == StateReady || state == StateOnline
}

// IsConnectingState reports whether a daemon state string counts as an
// in-progress connection attempt.
func IsConnectingState(state string) bool {
	return state == StateAssociation || state == StateConfiguration
}

// VPN provider types. ThirdParty and ARC providers implement their own
// policy controls and are exempt from the device prohibited-technologies
// check.
const (
	VPNProviderL2TPIPsec  = "l2tpipsec"
	VPNProviderOpenVPN    = "openvpn"
	VPNProviderThirdParty = "thirdpartyvpn"
	VPNProviderARC        = "arcvpn"
)

// ConnectCallbackMode selects when a connect request's success callback
// fires: as soon as the daemon accepts the connect call, or only once the
// network reaches a connected state.
type ConnectCallbackMode int

const (
	CallbackOnConfigured ConnectCallbackMode = iota
	CallbackOnCompleted
)

// CellularProperties carries the cellular-specific slice of a network's
// daemon properties.
type CellularProperties struct {
	ICCID          string
	EID            string
	HasESimProfile bool
}

// NetworkProperties is a snapshot of one network as known to the daemon.
// ID is the daemon service path, or the GUID for tether networks.
type NetworkProperties struct {
	ID                 string
	GUID               string
	Type               string
	State              string
	SSID               string
	HexSSID            string
	Connectable        bool
	PassphraseRequired bool
	Profile            string
	VPNProviderType    string
	Cellular           *CellularProperties
	// ClientCertPattern marks a network whose authentication requires a
	// client certificate matched by subject pattern.
	ClientCertPattern bool
}

// IsConnected reports whether the network is in a connected state.
func (p *NetworkProperties) IsConnected() bool { return IsConnectedState(p.State) }

// IsConnecting reports whether the network is in a connecting state.
func (p *NetworkProperties) IsConnecting() bool { return IsConnectingState(p.State) }

// PolicyGlobalConfig is the device-wide slice of enterprise policy that
// constrains connection attempts.
type PolicyGlobalConfig struct {
	AllowOnlyPolicyNetworks bool
	BlockedHexSSIDs         []string
	ProhibitedTechnologies  []string
}

// Interfaces for dependency injection and testing

// NetworkStateProvider is the synchronous, cached read side of the daemon.
// Lookups never block; the cache is kept current by the daemon watcher.
type NetworkStateProvider interface {
	NetworkProperties(id string) (*NetworkProperties, bool)
	IsTetherNetwork(id string) bool
}

// NetworkConfigurationProvider issues the daemon RPCs. Calls block until the
// daemon answers and are always invoked off the caller's goroutine.
type NetworkConfigurationProvider interface {
	Connect(ctx context.Context, id string) error
	Disconnect(ctx context.Context, id string) error
	ConfigureNetwork(ctx context.Context, id, profileID string) error
}

// PolicyProvider exposes the enterprise policy decisions the connection
// handler consumes. Evaluation is stateless; the handler re-queries on
// every attempt.
type PolicyProvider interface {
	GlobalConfig() *PolicyGlobalConfig
	IsPolicyConfigured(hexSSID string) bool
}

// CertificateProvider reports client-certificate store readiness for
// networks that authenticate with a pattern-matched client certificate.
type CertificateProvider interface {
	CertificatesLoaded() bool
	LoadInProgress() bool
	HasMatchingCertificate(props *NetworkProperties) bool
}

// CellularESimProvider enables eSIM profiles so that a cellular network
// becomes connectable before the daemon connect is issued.
type CellularESimProvider interface {
	EnableProfile(ctx context.Context, iccid string) error
}

// TetherDelegate handles connect/disconnect for tether networks in place of
// the daemon.
type TetherDelegate interface {
	ConnectToNetwork(id string, onSuccess func(), onError func(errorName string))
	DisconnectFromNetwork(id string, onSuccess func(), onError func(errorName string))
}

// Observer receives connection request lifecycle notifications. Every
// request produces exactly one "requested" notification followed by exactly
// one "succeeded" or "failed" notification.
type Observer interface {
	ConnectToNetworkRequested(id string)
	ConnectSucceeded(id string)
	ConnectFailed(id string, errorName string)
	DisconnectRequested(id string)
}

// Logger interface for structured logging
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// Config represents the main configuration structure
type Config struct {
	Daemon  DaemonConfig  `yaml:"daemon" mapstructure:"daemon"`
	Policy  PolicyConfig  `yaml:"policy" mapstructure:"policy"`
	Connect ConnectConfig `yaml:"connect" mapstructure:"connect"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// DaemonConfig selects the D-Bus endpoint of the network daemon. The
// daemon lives on the system bus; SessionBus exists for test deployments
// running a daemon stub on the session bus.
type DaemonConfig struct {
	BusName     string `yaml:"bus-name" mapstructure:"bus-name"`
	ManagerPath string `yaml:"manager-path" mapstructure:"manager-path"`
	SessionBus  bool   `yaml:"session-bus" mapstructure:"session-bus"`
}

// PolicyConfig is the statically configured policy source used when no
// management server pushes policy at runtime.
type PolicyConfig struct {
	AllowOnlyPolicyNetworks bool     `yaml:"allow-only-policy-networks" mapstructure:"allow-only-policy-networks"`
	BlockedHexSSIDs         []string `yaml:"blocked-hex-ssids" mapstructure:"blocked-hex-ssids"`
	ProhibitedTechnologies  []string `yaml:"prohibited-technologies" mapstructure:"prohibited-technologies"`
	ConfiguredHexSSIDs      []string `yaml:"configured-hex-ssids" mapstructure:"configured-hex-ssids"`
}

// ConnectConfig holds tunables for the connection handler.
type ConnectConfig struct {
	CertLoadTimeout int `yaml:"cert-load-timeout" mapstructure:"cert-load-timeout"` // seconds
}

// GetCertLoadTimeout returns the certificate-load timeout with default fallback.
func (c *ConnectConfig) GetCertLoadTimeout() time.Duration {
	if c.CertLoadTimeout > 0 {
		return time.Duration(c.CertLoadTimeout) * time.Second
	}
	return 15 * time.Second
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Listen  string `yaml:"listen" mapstructure:"listen"`
}
