package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"

	"github.com/angelfreak/connd/pkg/types"
)

// ConnectionHandler is the slice of the connection handler the CLI drives.
type ConnectionHandler interface {
	ConnectToNetwork(id string, onSuccess func(), onError func(errorName string), checkErrorState bool, mode types.ConnectCallbackMode)
	DisconnectNetwork(id string, onSuccess func(), onError func(errorName string))
	AddObserver(o types.Observer)
	RemoveObserver(o types.Observer)
}

// DaemonClient is the slice of the daemon client the CLI drives.
type DaemonClient interface {
	Networks() []*types.NetworkProperties
	AddTetherNetwork(guid, name string)
	RemoveTetherNetwork(guid string)
}

// App encapsulates all dependencies for testable CLI operations.
type App struct {
	Logger  types.Logger
	Handler ConnectionHandler
	Daemon  DaemonClient

	// Output streams for testability
	Stdout io.Writer
	Stderr io.Writer
}

// printf writes formatted output to stdout
func (a *App) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.Stdout, format, args...)
}

// errorf writes formatted output to stderr
func (a *App) errorf(format string, args ...interface{}) {
	fmt.Fprintf(a.Stderr, format, args...)
}

// RunConnect issues a connect request and blocks until it resolves or ctx
// is cancelled. waitOnline selects whether success means daemon acceptance
// or a connected network state.
func (a *App) RunConnect(ctx context.Context, id string, waitOnline bool) error {
	if err := types.ValidateNetworkID(id); err != nil {
		a.errorf("Error: %v\n", err)
		return err
	}

	mode := types.CallbackOnConfigured
	if waitOnline {
		mode = types.CallbackOnCompleted
	}

	done := make(chan string, 1)
	a.Handler.ConnectToNetwork(id,
		func() { done <- "" },
		func(errorName string) { done <- errorName },
		true, mode)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case errorName := <-done:
		if errorName != "" {
			a.errorf("Connect failed: %s\n", errorName)
			return fmt.Errorf("connect failed: %s", errorName)
		}
	}
	a.printf("Connected: %s\n", id)
	return nil
}

// RunDisconnect issues a disconnect request and blocks until it resolves or
// ctx is cancelled.
func (a *App) RunDisconnect(ctx context.Context, id string) error {
	if err := types.ValidateNetworkID(id); err != nil {
		a.errorf("Error: %v\n", err)
		return err
	}

	done := make(chan string, 1)
	a.Handler.DisconnectNetwork(id,
		func() { done <- "" },
		func(errorName string) { done <- errorName })

	select {
	case <-ctx.Done():
		return ctx.Err()
	case errorName := <-done:
		if errorName != "" {
			a.errorf("Disconnect failed: %s\n", errorName)
			return fmt.Errorf("disconnect failed: %s", errorName)
		}
	}
	a.printf("Disconnected: %s\n", id)
	return nil
}

// RunStatus lists the networks currently known to the daemon.
func (a *App) RunStatus() error {
	networks := a.Daemon.Networks()
	if len(networks) == 0 {
		a.printf("No networks known\n")
		return nil
	}

	sort.Slice(networks, func(i, j int) bool { return networks[i].ID < networks[j].ID })
	for _, n := range networks {
		name := n.SSID
		if name == "" {
			name = n.GUID
		}
		a.printf("%-40s %-10s %-14s %-20s connectable=%v\n", n.ID, n.Type, n.State, name, n.Connectable)
	}
	return nil
}

// RunTetherAdd registers a tether network, minting a GUID when none is
// given, and prints the id to use for connect requests.
func (a *App) RunTetherAdd(guid, name string) error {
	if guid == "" {
		guid = uuid.NewString()
	}
	if err := types.ValidateNetworkID(guid); err != nil {
		a.errorf("Error: %v\n", err)
		return err
	}
	a.Daemon.AddTetherNetwork(guid, name)
	a.printf("Tether network registered: %s\n", guid)
	return nil
}

// RunTetherRemove unregisters a tether network.
func (a *App) RunTetherRemove(guid string) error {
	a.Daemon.RemoveTetherNetwork(guid)
	a.printf("Tether network removed: %s\n", guid)
	return nil
}

// watchObserver prints request lifecycle events as they happen.
type watchObserver struct {
	out io.Writer
}

func (w *watchObserver) ConnectToNetworkRequested(id string) {
	fmt.Fprintf(w.out, "connect requested   %s\n", id)
}

func (w *watchObserver) ConnectSucceeded(id string) {
	fmt.Fprintf(w.out, "succeeded           %s\n", id)
}

func (w *watchObserver) ConnectFailed(id string, errorName string) {
	fmt.Fprintf(w.out, "failed              %s (%s)\n", id, errorName)
}

func (w *watchObserver) DisconnectRequested(id string) {
	fmt.Fprintf(w.out, "disconnect requested %s\n", id)
}

// RunWatch follows request lifecycle events until ctx is cancelled.
func (a *App) RunWatch(ctx context.Context) error {
	observer := &watchObserver{out: a.Stdout}
	a.Handler.AddObserver(observer)
	defer a.Handler.RemoveObserver(observer)

	a.printf("Watching connection events (ctrl-c to stop)\n")
	<-ctx.Done()
	return nil
}
