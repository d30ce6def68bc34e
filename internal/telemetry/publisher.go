package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"emg-monitor.klederson.com/internal/emg"
	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "emg/readings"

// DefaultPublishInterval is the period between published readings.
const DefaultPublishInterval = 250 * time.Millisecond

// ReadingSource is the part of the scheduler the publisher reads from.
type ReadingSource interface {
	Latest() emg.Reading
	State() emg.State
	SessionID() string
}

// Message is the JSON payload published for each reading.
type Message struct {
	Session string      `json:"session,omitempty"`
	State   string      `json:"state"`
	At      time.Time   `json:"at"`
	Reading emg.Reading `json:"reading"`
}

// Publisher sends readings to an MQTT broker.
type Publisher struct {
	client   *paho.Client
	topic    string
	interval time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

func WithTopic(topic string) PublisherOption {
	return func(p *Publisher) {
		if topic != "" {
			p.topic = topic
		}
	}
}

func WithInterval(d time.Duration) PublisherOption {
	return func(p *Publisher) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithPublisherLogger(l zerolog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = l.With().Str("component", "mqtt").Logger() }
}

// Dial connects to the broker at addr (host:port) and returns a connected
// Publisher.
func Dial(ctx context.Context, addr string, opts ...PublisherOption) (*Publisher, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial mqtt broker %s: %w", addr, err)
	}

	p := &Publisher{
		topic:    DefaultTopic,
		interval: DefaultPublishInterval,
		now:      time.Now,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	clientID := "emg-monitor-" + uuid.NewString()
	p.client = paho.NewClient(paho.ClientConfig{
		ClientID: clientID,
		Conn:     conn,
		OnClientError: func(err error) {
			p.logger.Warn().Err(err).Msg("mqtt client error")
		},
	})

	ack, err := p.client.Connect(ctx, &paho.Connect{
		ClientID:   clientID,
		KeepAlive:  30,
		CleanStart: true,
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	if ack.ReasonCode != 0 {
		_ = conn.Close()
		return nil, fmt.Errorf("mqtt connect refused: reason code %d", ack.ReasonCode)
	}

	p.logger.Info().Str("broker", addr).Str("topic", p.topic).Msg("mqtt connected")
	return p, nil
}

// Publish sends a single message.
func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}
	_, err = p.client.Publish(ctx, &paho.Publish{
		Topic:   p.topic,
		QoS:     0,
		Payload: payload,
		Properties: &paho.PublishProperties{
			ContentType: "application/json",
		},
	})
	if err != nil {
		return fmt.Errorf("publish reading: %w", err)
	}
	return nil
}

// Run publishes the latest reading every interval while src is streaming.
// It returns when ctx is done.
func (p *Publisher) Run(ctx context.Context, src ReadingSource) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var failures int
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			state := src.State()
			if state != emg.Streaming {
				continue
			}
			msg := Message{
				Session: src.SessionID(),
				State:   state.String(),
				At:      p.now(),
				Reading: src.Latest(),
			}
			if err := p.Publish(ctx, msg); err != nil {
				failures++
				// one line per burst of failures
				if failures == 1 {
					p.logger.Warn().Err(err).Msg("publish failed")
				}
				continue
			}
			if failures > 0 {
				p.logger.Info().Int("failures", failures).Msg("publish recovered")
				failures = 0
			}
		}
	}
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	return p.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
}
