package mqtt

// outbound is a serialized message held for replay after reconnection.
type outbound struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

func (m outbound) isFrame() bool {
	return m.topic == Topic
}

// backlog queues messages while the broker is unreachable. When full, the
// oldest frame makes room; lifecycle events are only evicted when no frame is
// queued. Not safe for concurrent use; RealPublisher holds its mutex around
// every call.
type backlog struct {
	msgs    []outbound
	limit   int
	dropped int
}

func newBacklog(limit int) *backlog {
	if limit < 1 {
		limit = 1
	}
	return &backlog{limit: limit}
}

// add queues m, evicting one message if the backlog is full. It reports true
// for the first eviction since the last flush.
func (b *backlog) add(m outbound) (firstDrop bool) {
	if len(b.msgs) == b.limit {
		i := b.oldestFrame()
		if i < 0 {
			i = 0
		}
		b.msgs = append(b.msgs[:i], b.msgs[i+1:]...)
		b.dropped++
		firstDrop = b.dropped == 1
	}
	b.msgs = append(b.msgs, m)
	return firstDrop
}

func (b *backlog) oldestFrame() int {
	for i, m := range b.msgs {
		if m.isFrame() {
			return i
		}
	}
	return -1
}

// flush empties the backlog, returning its messages oldest first and how
// many were evicted since the previous flush.
func (b *backlog) flush() ([]outbound, int) {
	msgs, dropped := b.msgs, b.dropped
	b.msgs, b.dropped = nil, 0
	return msgs, dropped
}

func (b *backlog) len() int {
	return len(b.msgs)
}
