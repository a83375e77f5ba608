package daemon

import (
	"github.com/godbus/dbus/v5"

	"github.com/angelfreak/connd/pkg/types"
)

// Daemon property names on the service interface.
const (
	propGUID               = "GUID"
	propType               = "Type"
	propState              = "State"
	propName               = "Name"
	propConnectable        = "Connectable"
	propPassphraseRequired = "PassphraseRequired"
	propProfile            = "Profile"
	propProviderType       = "Provider.Type"
	propICCID              = "Cellular.ICCID"
	propEID                = "Cellular.EID"
	propESimProfile        = "Cellular.ESimProfile"
	propCertPattern        = "EAP.ClientCertPattern"
)

// PropertiesFromVariants builds a NetworkProperties snapshot from a daemon
// property dictionary. Unknown properties are ignored.
func PropertiesFromVariants(id string, variants map[string]dbus.Variant) *types.NetworkProperties {
	props := &types.NetworkProperties{ID: id}
	for name, value := range variants {
		applyVariant(props, name, value)
	}
	if props.HexSSID == "" && props.SSID != "" {
		props.HexSSID = types.HexSSID(props.SSID)
	}
	return props
}

// applyVariant folds one property change into props.
func applyVariant(props *types.NetworkProperties, name string, value dbus.Variant) {
	switch name {
	case propGUID:
		props.GUID = asString(value)
	case propType:
		props.Type = asString(value)
	case propState:
		props.State = asString(value)
	case propName:
		props.SSID = asString(value)
		props.HexSSID = types.HexSSID(props.SSID)
	case propConnectable:
		props.Connectable = asBool(value)
	case propPassphraseRequired:
		props.PassphraseRequired = asBool(value)
	case propProfile:
		props.Profile = asString(value)
	case propProviderType:
		props.VPNProviderType = asString(value)
	case propICCID:
		cellular(props).ICCID = asString(value)
	case propEID:
		cellular(props).EID = asString(value)
	case propESimProfile:
		cellular(props).HasESimProfile = asBool(value)
	case propCertPattern:
		props.ClientCertPattern = asBool(value)
	}
}

func cellular(props *types.NetworkProperties) *types.CellularProperties {
	if props.Cellular == nil {
		props.Cellular = &types.CellularProperties{}
	}
	return props.Cellular
}

func asString(v dbus.Variant) string {
	s, _ := v.Value().(string)
	return s
}

func asBool(v dbus.Variant) bool {
	b, _ := v.Value().(bool)
	return b
}
