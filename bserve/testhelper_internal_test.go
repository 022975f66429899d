package bserve

import (
	"time"

	"go.uber.org/zap/zapcore"
)

type testEnv struct {
	level   zapcore.Level
	otelExp string
	codes   string
}

func (e testEnv) port() int               { return 8080 }
func (e testEnv) serviceName() string     { return "test" }
func (e testEnv) healthPath() string      { return "/healthz" }
func (e testEnv) metricsPath() string     { return "/metrics" }
func (e testEnv) logLevel() zapcore.Level { return e.level }
func (e testEnv) otelExporter() string {
	if e.otelExp == "" {
		return "stdout"
	}
	return e.otelExp
}

func (e testEnv) errorStatusCodes() string {
	if e.codes == "" {
		return "500-599"
	}
	return e.codes
}
func (e testEnv) requestTimeout() time.Duration { return 30 * time.Second }
func (e testEnv) bufferLimit() int              { return -1 }
func (e testEnv) requestIDHeader() string       { return "X-Request-Id" }
