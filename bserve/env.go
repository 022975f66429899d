package bserve

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap/zapcore"
)

// Environment defines the interface that all environment configurations must implement.
// Embed BaseEnvironment in your struct to satisfy this interface.
type Environment interface {
	port() int
	serviceName() string
	healthPath() string
	metricsPath() string
	logLevel() zapcore.Level
	otelExporter() string
	errorStatusCodes() string
	requestTimeout() time.Duration
	bufferLimit() int
	requestIDHeader() string
}

// BaseEnvironment contains the environment variables every server reads.
// Embed this in your custom environment struct.
type BaseEnvironment struct {
	Port         int           `env:"BP_PORT" envDefault:"8080"`
	ServiceName  string        `env:"BP_SERVICE_NAME,required"`
	HealthPath   string        `env:"BP_HEALTH_PATH" envDefault:"/healthz"`
	MetricsPath  string        `env:"BP_METRICS_PATH" envDefault:"/metrics"`
	LogLevel     zapcore.Level `env:"BP_LOG_LEVEL" envDefault:"info"`
	OtelExporter string        `env:"BP_OTEL_EXPORTER" envDefault:"stdout"`
	// ErrorStatusCodes is an interval expression such as "500-599" or "429,500-599". Requests that end with
	// one of these statuses are logged at error level.
	ErrorStatusCodes string        `env:"BP_ERROR_STATUS_CODES" envDefault:"500-599"`
	RequestTimeout   time.Duration `env:"BP_REQUEST_TIMEOUT" envDefault:"30s"`
	// BufferLimit caps the bytes a buffered handler may write, -1 means no limit.
	BufferLimit     int    `env:"BP_BUFFER_LIMIT" envDefault:"-1"`
	RequestIDHeader string `env:"BP_REQUEST_ID_HEADER" envDefault:"X-Request-Id"`
}

func (e BaseEnvironment) port() int                     { return e.Port }
func (e BaseEnvironment) serviceName() string           { return e.ServiceName }
func (e BaseEnvironment) healthPath() string            { return e.HealthPath }
func (e BaseEnvironment) metricsPath() string           { return e.MetricsPath }
func (e BaseEnvironment) logLevel() zapcore.Level       { return e.LogLevel }
func (e BaseEnvironment) otelExporter() string          { return e.OtelExporter }
func (e BaseEnvironment) errorStatusCodes() string      { return e.ErrorStatusCodes }
func (e BaseEnvironment) requestTimeout() time.Duration { return e.RequestTimeout }
func (e BaseEnvironment) bufferLimit() int              { return e.BufferLimit }
func (e BaseEnvironment) requestIDHeader() string       { return e.RequestIDHeader }

var _ Environment = BaseEnvironment{}

// ParseEnv parses environment variables into the given Environment type.
func ParseEnv[E Environment]() func() (E, error) {
	return func() (e E, err error) {
		if err := env.Parse(&e); err != nil {
			return e, errors.Wrap(err, "failed to parse environment")
		}

		if err := ValidateErrorStatusCodes(e.errorStatusCodes(), 500); err != nil {
			return e, errors.Wrap(err, "BP_ERROR_STATUS_CODES")
		}

		return e, nil
	}
}
