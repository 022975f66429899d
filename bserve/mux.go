package bserve

import (
	"net/http"

	"github.com/advdv/bpipe"
	"go.uber.org/zap"
)

// Mux is an alias for bpipe.ServeMux.
type Mux = bpipe.ServeMux

// NewMux creates a new Mux that reports transport errors to the logger and limits buffered handlers to
// BP_BUFFER_LIMIT bytes.
func NewMux(env Environment, logger *zap.Logger) *Mux {
	return bpipe.NewServeMuxWith(
		env.bufferLimit(),
		newZapPipeLogger(logger),
		http.NewServeMux(),
		bpipe.NewReverser(),
	)
}
