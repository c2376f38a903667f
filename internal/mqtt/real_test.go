package mqtt

import (
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/washer-sequencer/internal/program"
)

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

// stubClient stands in for a paho client. Publish takes delay to return.
type stubClient struct {
	mu           sync.Mutex
	connected    bool
	delay        time.Duration
	sent         []bufferedMsg
	disconnected bool
}

func (c *stubClient) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *stubClient) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func (c *stubClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	time.Sleep(c.delay)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, bufferedMsg{topic: topic, payload: payload.([]byte), qos: qos, retained: retained})
	return doneToken{}
}

func (c *stubClient) Disconnect(uint) {
	c.mu.Lock()
	c.disconnected = true
	c.mu.Unlock()
}

func (c *stubClient) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *stubClient) topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, m := range c.sent {
		out = append(out, m.topic)
	}
	return out
}

func actuatorEvent() Event {
	return Event{
		Timestamp: time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC),
		Type:      EventActuator,
		Actuator:  program.Power,
		On:        true,
	}
}

func TestPublishDoesNotWaitForBroker(t *testing.T) {
	c := &stubClient{connected: true, delay: 300 * time.Millisecond}
	p := newPublisher(c)
	defer p.Close()

	begin := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Publish(actuatorEvent()))
	}
	require.NoError(t, p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true}))
	assert.Less(t, time.Since(begin), 100*time.Millisecond)

	assert.Eventually(t, func() bool { return c.sentCount() == 4 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{Topic, Topic, Topic, TopicSystem}, c.topics())
}

func TestPublishQueuesWhileOffline(t *testing.T) {
	c := &stubClient{}
	p := newPublisher(c)
	defer p.Close()

	require.NoError(t, p.Publish(actuatorEvent()))
	require.NoError(t, p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP"}))
	assert.Equal(t, 2, p.Buffered())
	assert.Zero(t, c.sentCount())

	c.setConnected(true)
	p.notify()

	assert.Eventually(t, func() bool { return c.sentCount() == 2 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, p.Buffered())
	assert.Equal(t, []string{Topic, TopicSystem}, c.topics())
}

func TestCloseDeliversPendingMessages(t *testing.T) {
	c := &stubClient{connected: true, delay: 20 * time.Millisecond}
	p := newPublisher(c)

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Publish(actuatorEvent()))
	}
	require.NoError(t, p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "SHUTDOWN", Reason: "SIGTERM"}))
	require.NoError(t, p.Close())

	assert.Equal(t, 6, c.sentCount())
	assert.Equal(t, TopicSystem, c.topics()[5])
	assert.True(t, c.disconnected)
	assert.NoError(t, p.Close(), "second close is a no-op")
}
