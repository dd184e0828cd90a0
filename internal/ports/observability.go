package ports

// Observability is the logging/metrics boundary. Implementations must be
// safe for concurrent use; the transport event loop and the acquisition
// loop both emit through it.
type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogWarn(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	SetGauge(name string, v float64)
}

// Field is a structured log field.
type Field struct {
	Key   string
	Value any
}
