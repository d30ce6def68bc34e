package telemetry

import (
	"context"
	"encoding/json"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"emg-monitor.klederson.com/internal/emg"
	"github.com/eclipse/paho.golang/paho"
	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	state atomic.Int32
}

func (f *fakeSource) Latest() emg.Reading {
	return emg.Reading{Strength: 0.5, Fatigue: 0.2, FI: 0.1, FL: 0.3}
}

func (f *fakeSource) State() emg.State { return emg.State(f.state.Load()) }
func (f *fakeSource) SessionID() string { return "session-1" }

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

// startBroker runs an in-process broker for the duration of the test.
func startBroker(t *testing.T) string {
	t.Helper()
	addr := freeAddr(t)

	broker := mochi.New(nil)
	require.NoError(t, broker.AddHook(&auth.AllowHook{}, nil))
	require.NoError(t, broker.AddListener(listeners.NewTCP(listeners.Config{
		ID:      "test",
		Type:    "tcp",
		Address: addr,
	})))
	require.NoError(t, broker.Serve())
	t.Cleanup(func() { _ = broker.Close() })
	return addr
}

func subscribe(ctx context.Context, t *testing.T, addr, topic string) <-chan []byte {
	t.Helper()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	require.NoError(t, err)

	got := make(chan []byte, 16)
	c := paho.NewClient(paho.ClientConfig{
		ClientID: "subscriber",
		Conn:     conn,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			func(pr paho.PublishReceived) (bool, error) {
				select {
				case got <- pr.Packet.Payload:
				default:
				}
				return true, nil
			},
		},
	})
	_, err = c.Connect(ctx, &paho.Connect{ClientID: "subscriber", KeepAlive: 5, CleanStart: true})
	require.NoError(t, err)
	_, err = c.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: topic, QoS: 0}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Disconnect(&paho.Disconnect{}) })
	return got
}

func TestPublisherRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	addr := startBroker(t)
	got := subscribe(ctx, t, addr, "test/emg")

	p, err := Dial(ctx, addr,
		WithTopic("test/emg"),
		WithInterval(10*time.Millisecond),
		WithPublisherLogger(zerolog.Nop()),
	)
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, "test/emg", p.topic)

	src := &fakeSource{}
	src.state.Store(int32(emg.Streaming))

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- p.Run(runCtx, src) }()

	select {
	case payload := <-got:
		var msg Message
		require.NoError(t, json.Unmarshal(payload, &msg))
		assert.Equal(t, "session-1", msg.Session)
		assert.Equal(t, "streaming", msg.State)
		assert.Equal(t, 0.5, msg.Reading.Strength)
		assert.Equal(t, 0.2, msg.Reading.Fatigue)
	case <-ctx.Done():
		t.Fatal("no reading published")
	}

	stop()
	require.NoError(t, <-done)
}

func TestPublisherIdleIsQuiet(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	addr := startBroker(t)
	got := subscribe(ctx, t, addr, DefaultTopic)

	p, err := Dial(ctx, addr, WithInterval(5*time.Millisecond))
	require.NoError(t, err)
	defer p.Close()

	runCtx, stop := context.WithTimeout(ctx, 100*time.Millisecond)
	defer stop()
	require.NoError(t, p.Run(runCtx, &fakeSource{}))

	select {
	case <-got:
		t.Fatal("published while idle")
	default:
	}
}

func TestDialUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Dial(ctx, freeAddr(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial mqtt broker")
}
