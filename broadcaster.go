package parcelhub

// Broadcaster fans events out to connections held by a Registry.
//
// Membership is snapshotted under the registry's read lock and events are
// enqueued outside of it. Every connection has its own FIFO outbound queue,
// so events published to a topic by one goroutine arrive in publish order.
// A connection that joins after the snapshot does not receive the event.
type Broadcaster struct {
	registry *Registry
	logger   Logger
	metrics  Metrics
}

// NewBroadcaster creates a broadcaster over registry.
// Nil logger and metrics fall back to no-op implementations.
func NewBroadcaster(registry *Registry, logger Logger, metrics Metrics) *Broadcaster {
	logger = loggerOrNoop(logger)
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Broadcaster{
		registry: registry,
		logger:   logger,
		metrics:  metrics,
	}
}

// EmitToConnection sends an event to a single connection.
// Unknown connections are a silent no-op. Returns the number of deliveries (0 or 1).
func (b *Broadcaster) EmitToConnection(connID string, name EventName, data Payload) int {
	conn, ok := b.registry.Connection(connID)
	if !ok {
		b.logger.Debugf("Dropping %s: connection %s is gone", name, connID)
		b.metrics.EventEmitted(name, 0)
		return 0
	}
	n := b.deliver([]Conn{conn}, NewEvent(name, data))
	b.metrics.EventEmitted(name, n)
	return n
}

// EmitToTopic sends an event to every connection currently joined to topic.
// A topic without subscribers is a silent no-op.
func (b *Broadcaster) EmitToTopic(topic Topic, name EventName, data Payload) int {
	n := b.deliver(b.registry.Subscribers(topic), NewEvent(name, data))
	b.logger.Debugf("Emitted %s to %s (%d connections)", name, topic, n)
	b.metrics.EventEmitted(name, n)
	return n
}

// EmitToTopics sends an event to every connection joined to at least one of
// the topics. Each connection receives the event once even if it is joined to
// several of them.
func (b *Broadcaster) EmitToTopics(name EventName, data Payload, topics ...Topic) int {
	n := b.deliver(b.registry.SubscribersOf(topics...), NewEvent(name, data))
	b.logger.Debugf("Emitted %s to %v (%d connections)", name, topics, n)
	b.metrics.EventEmitted(name, n)
	return n
}

// EmitToAll sends an event to every registered connection.
func (b *Broadcaster) EmitToAll(name EventName, data Payload) int {
	n := b.deliver(b.registry.All(), NewEvent(name, data))
	b.logger.Debugf("Emitted %s to all (%d connections)", name, n)
	b.metrics.EventEmitted(name, n)
	return n
}

func (b *Broadcaster) deliver(conns []Conn, event Event) int {
	delivered := 0
	for _, conn := range conns {
		if err := conn.Send(event); err != nil {
			b.logger.Warnf("Failed to enqueue %s for connection %s: %v", event.Name, conn.ID(), err)
			b.metrics.EventDropped(event.Name)
			continue
		}
		delivered++
	}
	return delivered
}
