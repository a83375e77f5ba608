// Package policy evaluates enterprise policy constraints against a network
// before any daemon call is made. Evaluation is stateless and re-run on
// every connect attempt.
package policy

import "github.com/angelfreak/connd/pkg/types"

// vpnProhibitionExempt lists VPN provider types that are never subject to
// the device prohibited-technologies check; these providers enforce their
// own controls.
var vpnProhibitionExempt = map[string]bool{
	types.VPNProviderThirdParty: true,
	types.VPNProviderARC:        true,
}

// Checker decides whether policy allows connecting to a network.
type Checker struct {
	provider types.PolicyProvider
	logger   types.Logger
}

// NewChecker creates a policy checker over the given provider.
func NewChecker(provider types.PolicyProvider, logger types.Logger) *Checker {
	return &Checker{provider: provider, logger: logger}
}

// Check returns "" when the connect may proceed, or the error name to
// resolve the request with. Checks run in order: allow-list-only mode,
// blocked SSIDs, prohibited VPN provider types. A policy-configured network
// passes the first two; prohibition of a VPN technology applies regardless.
func (c *Checker) Check(props *types.NetworkProperties) string {
	if c.provider == nil {
		return ""
	}
	global := c.provider.GlobalConfig()
	if global == nil {
		global = &types.PolicyGlobalConfig{}
	}

	managed := c.provider.IsPolicyConfigured(policyKey(props))

	if global.AllowOnlyPolicyNetworks && !managed {
		c.logger.Info("Connect blocked: network not policy-configured", "network", props.ID)
		return types.ErrorBlockedByPolicy
	}

	if !managed && props.HexSSID != "" {
		for _, blocked := range global.BlockedHexSSIDs {
			if types.EqualHexSSID(blocked, props.HexSSID) {
				c.logger.Info("Connect blocked: SSID on blocklist", "network", props.ID, "hexSSID", props.HexSSID)
				return types.ErrorBlockedByPolicy
			}
		}
	}

	if props.Type == types.TypeVPN && !vpnProhibitionExempt[props.VPNProviderType] {
		for _, tech := range global.ProhibitedTechnologies {
			if tech == types.TypeVPN {
				c.logger.Info("Connect blocked: VPN prohibited", "network", props.ID, "provider", props.VPNProviderType)
				return types.ErrorBlockedByPolicy
			}
		}
	}

	return ""
}

// policyKey is the identity a network is matched against policy entries
// with: the hex SSID when it has one, otherwise the GUID.
func policyKey(props *types.NetworkProperties) string {
	if props.HexSSID != "" {
		return props.HexSSID
	}
	return props.GUID
}

// StaticProvider serves policy decisions from a fixed configuration, for
// deployments without a management server pushing policy at runtime.
type StaticProvider struct {
	Global     types.PolicyGlobalConfig
	Configured []string // hex SSIDs or GUIDs of policy-provisioned networks
}

// GlobalConfig implements types.PolicyProvider.
func (p *StaticProvider) GlobalConfig() *types.PolicyGlobalConfig {
	return &p.Global
}

// IsPolicyConfigured implements types.PolicyProvider.
func (p *StaticProvider) IsPolicyConfigured(key string) bool {
	for _, entry := range p.Configured {
		if types.EqualHexSSID(entry, key) {
			return true
		}
	}
	return false
}

// FromConfig builds a StaticProvider from file configuration.
func FromConfig(cfg *types.PolicyConfig) *StaticProvider {
	return &StaticProvider{
		Global: types.PolicyGlobalConfig{
			AllowOnlyPolicyNetworks: cfg.AllowOnlyPolicyNetworks,
			BlockedHexSSIDs:         cfg.BlockedHexSSIDs,
			ProhibitedTechnologies:  cfg.ProhibitedTechnologies,
		},
		Configured: cfg.ConfiguredHexSSIDs,
	}
}
