package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	closeTimeout   = 2 * time.Second
	bufferCapacity = 2048
)

// pahoClient is the part of paho.Client the publisher uses.
type pahoClient interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// RealPublisher publishes to an actual MQTT broker. Publish and
// PublishSystem only enqueue: a single sender goroutine delivers the outbox
// in order while the connection is up and keeps it across outages.
type RealPublisher struct {
	client pahoClient
	topic  string

	mu  sync.Mutex
	buf *outbox

	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewRealPublisher creates a publisher for the given broker. The broker does
// not need to be reachable yet: the client keeps retrying in the background
// and buffers messages until it connects.
func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "OFFLINE",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	var p *RealPublisher
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(func(paho.Client) {
			log.Info().Msg("mqtt connected")
			p.notify()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn().Err(err).Msg("mqtt connection lost")
		})

	client := paho.NewClient(opts)
	p = newPublisher(client)

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Warn().Str("broker", broker).Msg("mqtt broker not reachable yet, buffering")
		return p, nil
	}
	if err := token.Error(); err != nil {
		p.Close()
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func newPublisher(client pahoClient) *RealPublisher {
	p := &RealPublisher{
		client:  client,
		topic:   Topic,
		buf:     newOutbox(bufferCapacity),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish queues a washer event for the MQTT broker. It never blocks on the
// network.
func (p *RealPublisher) Publish(event Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	p.enqueue(bufferedMsg{topic: p.topic, payload: payload})
	return nil
}

// PublishSystem queues a system lifecycle event for the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	p.enqueue(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
	return nil
}

func (p *RealPublisher) enqueue(msg bufferedMsg) {
	p.mu.Lock()
	p.buf.push(msg)
	p.mu.Unlock()
	p.notify()
}

func (p *RealPublisher) notify() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// run is the sender loop. It exits after a final delivery attempt once
// Close is called.
func (p *RealPublisher) run() {
	defer close(p.stopped)
	for {
		select {
		case <-p.wake:
			p.deliver()
		case <-p.done:
			p.deliver()
			return
		}
	}
}

// deliver sends the outbox oldest first. Messages still queued when the
// connection drops stay in the outbox for the next connect.
func (p *RealPublisher) deliver() {
	if !p.client.IsConnectionOpen() {
		return
	}

	p.mu.Lock()
	msgs, dropped := p.buf.drain()
	p.mu.Unlock()
	if dropped > 0 {
		log.Warn().Int("dropped", dropped).Msg("mqtt outbox overflowed while offline")
	}

	for i, m := range msgs {
		if !p.client.IsConnectionOpen() {
			p.requeue(msgs[i:])
			return
		}
		token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
		if m.qos == 0 {
			continue
		}
		if !token.WaitTimeout(publishTimeout) {
			log.Warn().Str("topic", m.topic).Msg("mqtt publish timeout")
			continue
		}
		if err := token.Error(); err != nil {
			log.Warn().Err(err).Str("topic", m.topic).Msg("mqtt publish failed")
		}
	}
}

// requeue puts unsent messages back ahead of anything queued meanwhile.
func (p *RealPublisher) requeue(msgs []bufferedMsg) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pending, _ := p.buf.drain()
	for _, m := range append(msgs, pending...) {
		p.buf.push(m)
	}
}

// IsConnected reports whether the client currently has an open connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for delivery.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Close stops the sender after one last delivery attempt and disconnects
// from the broker.
func (p *RealPublisher) Close() error {
	p.once.Do(func() {
		close(p.done)
		select {
		case <-p.stopped:
		case <-time.After(closeTimeout):
			log.Warn().Msg("mqtt sender did not finish before close")
		}
		p.client.Disconnect(1000) // 1 second timeout
	})
	return nil
}
