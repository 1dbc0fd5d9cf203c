package parcelhub

// Logger is the printf-style sink the hub, registry and broadcaster write to.
//
// The server binary passes the zap-backed adapter from
// cmd/parcelhub-server/internal/logging:
//
//	log := logging.New(cfg.Log.Level)
//	defer log.Sync()
//
//	hub, err := parcelhub.NewHub(
//	    parcelhub.WithLogger(log.Named("hub")),
//	    ...
//	)
//
// Embedders with an existing *zap.Logger wrap it with logging.FromZap.
// Without WithLogger the hub logs nothing.
type Logger interface {
	// Debugf reports per-event detail such as backlog sizes and topic joins.
	Debugf(format string, args ...interface{})

	// Infof reports connection lifecycle: binds, evictions, disconnects.
	Infof(format string, args ...interface{})

	// Warnf reports frames that could not be delivered to a single connection.
	Warnf(format string, args ...interface{})

	// Errorf reports failed store operations.
	Errorf(format string, args ...interface{})

	Info(message string)
}

// NoopLogger discards everything. It is the default for every component
// constructed without a Logger.
type NoopLogger struct{}

func (l *NoopLogger) Debugf(_ string, _ ...interface{}) {}

func (l *NoopLogger) Infof(_ string, _ ...interface{}) {}

func (l *NoopLogger) Warnf(_ string, _ ...interface{}) {}

func (l *NoopLogger) Errorf(_ string, _ ...interface{}) {}

func (l *NoopLogger) Info(_ string) {}

// loggerOrNoop returns l, or a NoopLogger when l is nil.
func loggerOrNoop(l Logger) Logger {
	if l == nil {
		return &NoopLogger{}
	}
	return l
}
