package mqtt

import "github.com/rs/zerolog/log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages while the broker is unreachable. When full it evicts
// the oldest QoS 0 message first, so lifecycle events survive a long wash
// program's actuator traffic. Not safe for concurrent use.
type outbox struct {
	msgs     []bufferedMsg
	capacity int
	dropped  int
}

func newOutbox(capacity int) *outbox {
	return &outbox{
		msgs:     make([]bufferedMsg, 0, capacity),
		capacity: capacity,
	}
}

func (o *outbox) push(msg bufferedMsg) {
	if len(o.msgs) == o.capacity {
		if o.dropped == 0 {
			log.Warn().Int("capacity", o.capacity).Msg("mqtt outbox full, dropping messages")
		}
		o.evict()
	}
	o.msgs = append(o.msgs, msg)
}

// evict removes the oldest QoS 0 message, or the oldest message if every
// queued message needs delivery.
func (o *outbox) evict() {
	victim := 0
	for i, m := range o.msgs {
		if m.qos == 0 {
			victim = i
			break
		}
	}
	o.msgs = append(o.msgs[:victim], o.msgs[victim+1:]...)
	o.dropped++
}

// drain returns queued messages oldest first and the number dropped since
// the previous drain, and empties the outbox.
func (o *outbox) drain() ([]bufferedMsg, int) {
	if len(o.msgs) == 0 && o.dropped == 0 {
		return nil, 0
	}
	msgs := make([]bufferedMsg, len(o.msgs))
	copy(msgs, o.msgs)
	dropped := o.dropped

	o.msgs = o.msgs[:0]
	o.dropped = 0
	return msgs, dropped
}

func (o *outbox) len() int {
	return len(o.msgs)
}
