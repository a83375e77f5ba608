package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelfreak/connd/pkg/types"
)

// syncBuffer is a goroutine-safe bytes.Buffer for capturing output written
// from the app's goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type mockLogger struct{}

func (m *mockLogger) Debug(msg string, fields ...interface{}) {}
func (m *mockLogger) Info(msg string, fields ...interface{})  {}
func (m *mockLogger) Warn(msg string, fields ...interface{})  {}
func (m *mockLogger) Error(msg string, fields ...interface{}) {}

// mockHandler scripts connect/disconnect outcomes.
type mockHandler struct {
	mu            sync.Mutex
	connectErr    string
	disconnectErr string
	connectIDs    []string
	disconnectIDs []string
	lastMode      types.ConnectCallbackMode
	observers     []types.Observer
	hang          bool
}

func (m *mockHandler) ConnectToNetwork(id string, onSuccess func(), onError func(string), checkErrorState bool, mode types.ConnectCallbackMode) {
	m.mu.Lock()
	m.connectIDs = append(m.connectIDs, id)
	m.lastMode = mode
	hang, errName := m.hang, m.connectErr
	m.mu.Unlock()
	if hang {
		return
	}
	if errName != "" {
		onError(errName)
		return
	}
	onSuccess()
}

func (m *mockHandler) DisconnectNetwork(id string, onSuccess func(), onError func(string)) {
	m.mu.Lock()
	m.disconnectIDs = append(m.disconnectIDs, id)
	hang, errName := m.hang, m.disconnectErr
	m.mu.Unlock()
	if hang {
		return
	}
	if errName != "" {
		onError(errName)
		return
	}
	onSuccess()
}

func (m *mockHandler) AddObserver(o types.Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

func (m *mockHandler) RemoveObserver(o types.Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.observers {
		if existing == o {
			m.observers = append(m.observers[:i], m.observers[i+1:]...)
			return
		}
	}
}

func (m *mockHandler) observerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.observers)
}

func (m *mockHandler) firstObserver() types.Observer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.observers[0]
}

// mockDaemon serves a fixed network list and records tether registration.
type mockDaemon struct {
	networks []*types.NetworkProperties
	added    []string
	removed  []string
}

func (m *mockDaemon) Networks() []*types.NetworkProperties { return m.networks }
func (m *mockDaemon) AddTetherNetwork(guid, name string)   { m.added = append(m.added, guid) }
func (m *mockDaemon) RemoveTetherNetwork(guid string)      { m.removed = append(m.removed, guid) }

func newTestApp() (*App, *mockHandler, *mockDaemon, *syncBuffer, *syncBuffer) {
	handler := &mockHandler{}
	daemon := &mockDaemon{}
	stdout := &syncBuffer{}
	stderr := &syncBuffer{}
	app := &App{
		Logger:  &mockLogger{},
		Handler: handler,
		Daemon:  daemon,
		Stdout:  stdout,
		Stderr:  stderr,
	}
	return app, handler, daemon, stdout, stderr
}

func TestRunConnect(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		app, handler, _, stdout, _ := newTestApp()

		err := app.RunConnect(context.Background(), "/service/wifi0", false)
		require.NoError(t, err)
		assert.Equal(t, []string{"/service/wifi0"}, handler.connectIDs)
		assert.Equal(t, types.CallbackOnConfigured, handler.lastMode)
		assert.Contains(t, stdout.String(), "Connected: /service/wifi0")
	})

	t.Run("wait online selects completed mode", func(t *testing.T) {
		app, handler, _, _, _ := newTestApp()

		err := app.RunConnect(context.Background(), "/service/wifi0", true)
		require.NoError(t, err)
		assert.Equal(t, types.CallbackOnCompleted, handler.lastMode)
	})

	t.Run("failure reports error name", func(t *testing.T) {
		app, handler, _, _, stderr := newTestApp()
		handler.connectErr = types.ErrorBlockedByPolicy

		err := app.RunConnect(context.Background(), "/service/wifi0", false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), types.ErrorBlockedByPolicy)
		assert.Contains(t, stderr.String(), "blocked-by-policy")
	})

	t.Run("invalid id rejected before the handler", func(t *testing.T) {
		app, handler, _, _, stderr := newTestApp()

		err := app.RunConnect(context.Background(), "bad id", false)
		require.Error(t, err)
		assert.Empty(t, handler.connectIDs)
		assert.Contains(t, stderr.String(), "Error:")
	})

	t.Run("context cancellation unblocks", func(t *testing.T) {
		app, handler, _, _, _ := newTestApp()
		handler.hang = true

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		err := app.RunConnect(ctx, "/service/wifi0", false)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestRunDisconnect(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		app, handler, _, stdout, _ := newTestApp()

		err := app.RunDisconnect(context.Background(), "/service/wifi0")
		require.NoError(t, err)
		assert.Equal(t, []string{"/service/wifi0"}, handler.disconnectIDs)
		assert.Contains(t, stdout.String(), "Disconnected: /service/wifi0")
	})

	t.Run("failure", func(t *testing.T) {
		app, handler, _, _, stderr := newTestApp()
		handler.disconnectErr = types.ErrorNotConnected

		err := app.RunDisconnect(context.Background(), "/service/wifi0")
		require.Error(t, err)
		assert.Contains(t, stderr.String(), "not-connected")
	})

	t.Run("invalid id", func(t *testing.T) {
		app, handler, _, _, _ := newTestApp()
		err := app.RunDisconnect(context.Background(), "")
		require.Error(t, err)
		assert.Empty(t, handler.disconnectIDs)
	})
}

func TestRunStatus(t *testing.T) {
	t.Run("empty list", func(t *testing.T) {
		app, _, _, stdout, _ := newTestApp()
		require.NoError(t, app.RunStatus())
		assert.Contains(t, stdout.String(), "No networks known")
	})

	t.Run("sorted listing", func(t *testing.T) {
		app, _, daemon, stdout, _ := newTestApp()
		daemon.networks = []*types.NetworkProperties{
			{ID: "/service/wifi1", Type: types.TypeWifi, State: types.StateIdle, SSID: "wifi1"},
			{ID: "/service/wifi0", Type: types.TypeWifi, State: types.StateOnline, SSID: "wifi0", Connectable: true},
		}

		require.NoError(t, app.RunStatus())
		out := stdout.String()
		assert.Contains(t, out, "/service/wifi0")
		assert.Contains(t, out, "online")
		assert.Less(t,
			strings.Index(out, "/service/wifi0"),
			strings.Index(out, "/service/wifi1"))
	})
}

func TestRunTether(t *testing.T) {
	t.Run("add with explicit guid", func(t *testing.T) {
		app, _, daemon, stdout, _ := newTestApp()

		require.NoError(t, app.RunTetherAdd("tether-1", "My Phone"))
		assert.Equal(t, []string{"tether-1"}, daemon.added)
		assert.Contains(t, stdout.String(), "tether-1")
	})

	t.Run("add mints a guid", func(t *testing.T) {
		app, _, daemon, _, _ := newTestApp()

		require.NoError(t, app.RunTetherAdd("", "My Phone"))
		require.Len(t, daemon.added, 1)
		assert.NoError(t, types.ValidateNetworkID(daemon.added[0]))
	})

	t.Run("remove", func(t *testing.T) {
		app, _, daemon, _, _ := newTestApp()

		require.NoError(t, app.RunTetherRemove("tether-1"))
		assert.Equal(t, []string{"tether-1"}, daemon.removed)
	})
}

func TestRunWatch(t *testing.T) {
	app, handler, _, stdout, _ := newTestApp()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunWatch(ctx) }()

	require.Eventually(t, func() bool {
		return handler.observerCount() == 1
	}, time.Second, 5*time.Millisecond)

	handler.firstObserver().ConnectToNetworkRequested("/service/wifi0")
	handler.firstObserver().ConnectFailed("/service/wifi0", types.ErrorConnectFailed)

	cancel()
	require.NoError(t, <-done)

	out := stdout.String()
	assert.Contains(t, out, "connect requested")
	assert.Contains(t, out, "connect-failed")
	assert.Equal(t, 0, handler.observerCount())
}
