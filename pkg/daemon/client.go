// Package daemon is the D-Bus client for the external network-management
// daemon (a ConnMan-compatible API). It keeps a synchronous in-memory cache
// of network properties fed by daemon signals and issues the
// connect/disconnect/configure RPCs, implementing the provider interfaces
// the connection handler consumes.
package daemon

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/angelfreak/connd/pkg/types"
)

const (
	defaultBusName     = "net.connman"
	defaultManagerPath = "/"

	managerInterface = "net.connman.Manager"
	serviceInterface = "net.connman.Service"

	signalServicesChanged = managerInterface + ".ServicesChanged"
	signalPropertyChanged = serviceInterface + ".PropertyChanged"
)

// StateWatcher receives cache updates; the connection handler implements
// it.
type StateWatcher interface {
	NetworkPropertiesUpdated(props *types.NetworkProperties)
	NetworkListChanged()
}

// Client talks to the daemon over D-Bus and caches its service properties.
// It implements types.NetworkStateProvider and
// types.NetworkConfigurationProvider.
type Client struct {
	conn        *dbus.Conn
	busName     string
	managerPath dbus.ObjectPath
	logger      types.Logger

	mu       sync.RWMutex
	networks map[string]*types.NetworkProperties
	tethers  map[string]bool
	watcher  StateWatcher

	signals chan *dbus.Signal
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewClient connects to the bus and returns a client for the daemon at the
// configured endpoint. Zero-value config fields fall back to the ConnMan
// defaults on the system bus.
func NewClient(cfg *types.DaemonConfig, logger types.Logger) (*Client, error) {
	var conn *dbus.Conn
	var err error
	if cfg != nil && cfg.SessionBus {
		conn, err = dbus.ConnectSessionBus()
	} else {
		conn, err = dbus.ConnectSystemBus()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to bus: %w", err)
	}

	c := &Client{
		conn:        conn,
		busName:     defaultBusName,
		managerPath: dbus.ObjectPath(defaultManagerPath),
		logger:      logger,
		networks:    make(map[string]*types.NetworkProperties),
		tethers:     make(map[string]bool),
		signals:     make(chan *dbus.Signal, 64),
		stop:        make(chan struct{}),
	}
	if cfg != nil && cfg.BusName != "" {
		c.busName = cfg.BusName
	}
	if cfg != nil && cfg.ManagerPath != "" {
		c.managerPath = dbus.ObjectPath(cfg.ManagerPath)
	}
	return c, nil
}

// SetWatcher registers the consumer of cache updates. Must be called before
// Start.
func (c *Client) SetWatcher(w StateWatcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watcher = w
}

// Start loads the initial service list and begins following daemon signals.
func (c *Client) Start(ctx context.Context) error {
	if err := c.refreshServices(ctx); err != nil {
		return err
	}

	if err := c.conn.AddMatchSignal(
		dbus.WithMatchSender(c.busName),
		dbus.WithMatchInterface(managerInterface),
		dbus.WithMatchMember("ServicesChanged"),
	); err != nil {
		return fmt.Errorf("failed to match manager signals: %w", err)
	}
	if err := c.conn.AddMatchSignal(
		dbus.WithMatchSender(c.busName),
		dbus.WithMatchInterface(serviceInterface),
		dbus.WithMatchMember("PropertyChanged"),
	); err != nil {
		return fmt.Errorf("failed to match service signals: %w", err)
	}
	c.conn.Signal(c.signals)

	c.wg.Add(1)
	go c.signalLoop()
	return nil
}

// Close stops the signal loop and drops the bus connection.
func (c *Client) Close() error {
	close(c.stop)
	c.conn.RemoveSignal(c.signals)
	c.wg.Wait()
	return c.conn.Close()
}

// NetworkProperties implements types.NetworkStateProvider. The lookup is a
// cache read and never blocks on the daemon.
func (c *Client) NetworkProperties(id string) (*types.NetworkProperties, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	props, ok := c.networks[id]
	if !ok {
		return nil, false
	}
	snapshot := *props
	return &snapshot, true
}

// IsTetherNetwork implements types.NetworkStateProvider. Tether networks
// are registered explicitly and keyed by their GUID.
func (c *Client) IsTetherNetwork(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tethers[id]
}

// AddTetherNetwork registers a virtual tether network. Its id equals its
// GUID, which is what distinguishes it from daemon service paths.
func (c *Client) AddTetherNetwork(guid, name string) {
	c.mu.Lock()
	c.tethers[guid] = true
	c.networks[guid] = &types.NetworkProperties{
		ID:    guid,
		GUID:  guid,
		Type:  types.TypeTether,
		State: types.StateIdle,
		SSID:  name,
	}
	watcher := c.watcher
	c.mu.Unlock()
	if watcher != nil {
		watcher.NetworkListChanged()
	}
}

// RemoveTetherNetwork unregisters a tether network.
func (c *Client) RemoveTetherNetwork(guid string) {
	c.mu.Lock()
	delete(c.tethers, guid)
	delete(c.networks, guid)
	watcher := c.watcher
	c.mu.Unlock()
	if watcher != nil {
		watcher.NetworkListChanged()
	}
}

// Networks returns a snapshot of all cached networks, for status listings.
func (c *Client) Networks() []*types.NetworkProperties {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list := make([]*types.NetworkProperties, 0, len(c.networks))
	for _, props := range c.networks {
		snapshot := *props
		list = append(list, &snapshot)
	}
	return list
}

// Connect implements types.NetworkConfigurationProvider.
func (c *Client) Connect(ctx context.Context, id string) error {
	return c.callService(ctx, id, "Connect")
}

// Disconnect implements types.NetworkConfigurationProvider.
func (c *Client) Disconnect(ctx context.Context, id string) error {
	return c.callService(ctx, id, "Disconnect")
}

// ConfigureNetwork implements types.NetworkConfigurationProvider: it moves
// the service into its destination profile before connecting.
func (c *Client) ConfigureNetwork(ctx context.Context, id, profileID string) error {
	obj := c.conn.Object(c.busName, dbus.ObjectPath(id))
	call := obj.CallWithContext(ctx, serviceInterface+".SetProperty", 0, "Profile", dbus.MakeVariant(profileID))
	if call.Err != nil {
		return daemonError(call.Err)
	}
	return nil
}

func (c *Client) callService(ctx context.Context, id, method string) error {
	obj := c.conn.Object(c.busName, dbus.ObjectPath(id))
	call := obj.CallWithContext(ctx, serviceInterface+"."+method, 0)
	if call.Err != nil {
		return daemonError(call.Err)
	}
	return nil
}

// refreshServices replaces the cache with the daemon's current service
// list.
func (c *Client) refreshServices(ctx context.Context) error {
	obj := c.conn.Object(c.busName, c.managerPath)
	var services []struct {
		Path       dbus.ObjectPath
		Properties map[string]dbus.Variant
	}
	if err := obj.CallWithContext(ctx, managerInterface+".GetServices", 0).Store(&services); err != nil {
		return fmt.Errorf("failed to list services: %w", err)
	}

	c.mu.Lock()
	for id := range c.networks {
		if !c.tethers[id] {
			delete(c.networks, id)
		}
	}
	for _, svc := range services {
		props := PropertiesFromVariants(string(svc.Path), svc.Properties)
		c.networks[props.ID] = props
	}
	watcher := c.watcher
	c.mu.Unlock()

	if watcher != nil {
		watcher.NetworkListChanged()
	}
	return nil
}

// signalLoop follows daemon signals and keeps the cache current,
// forwarding each change to the watcher.
func (c *Client) signalLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stop:
			return
		case sig, ok := <-c.signals:
			if !ok {
				return
			}
			c.handleSignal(sig)
		}
	}
}

func (c *Client) handleSignal(sig *dbus.Signal) {
	switch sig.Name {
	case signalServicesChanged:
		if err := c.refreshServices(context.Background()); err != nil {
			c.logger.Warn("Failed to refresh services", "error", err)
		}
	case signalPropertyChanged:
		if len(sig.Body) < 2 {
			return
		}
		name, ok := sig.Body[0].(string)
		if !ok {
			return
		}
		value, ok := sig.Body[1].(dbus.Variant)
		if !ok {
			return
		}
		c.applyPropertyChange(string(sig.Path), name, value)
	}
}

func (c *Client) applyPropertyChange(id, name string, value dbus.Variant) {
	c.mu.Lock()
	props, ok := c.networks[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	applyVariant(props, name, value)
	snapshot := *props
	watcher := c.watcher
	c.mu.Unlock()

	c.logger.Debug("Network property changed", "network", id, "property", name)
	if watcher != nil {
		watcher.NetworkPropertiesUpdated(&snapshot)
	}
}

// daemonError converts a D-Bus error into a DaemonError carrying the
// daemon's short error name ("net.connman.Error.InProgress" becomes
// "connecting", unrecognized names keep their lowered last segment).
func daemonError(err error) error {
	dberr, ok := err.(dbus.Error)
	if !ok {
		return err
	}
	name := dberr.Name
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	mapped, ok := daemonErrorNames[name]
	if !ok {
		mapped = strings.ToLower(name)
	}
	msg := ""
	if len(dberr.Body) > 0 {
		if s, isString := dberr.Body[0].(string); isString {
			msg = s
		}
	}
	return &types.DaemonError{Name: mapped, Message: msg}
}

// daemonErrorNames maps the daemon's short D-Bus error names onto the
// error-name taxonomy.
var daemonErrorNames = map[string]string{
	"AlreadyConnected":   types.ErrorConnected,
	"InProgress":         types.ErrorConnecting,
	"NotConnected":       types.ErrorNotConnected,
	"PassphraseRequired": types.ErrorPassphraseRequired,
	"ConnectFailed":      types.ErrorConnectFailed,
	"NotRegistered":      types.ErrorConfigureFailed,
}
