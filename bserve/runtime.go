package bserve

import (
	"context"
	"net/http"

	"github.com/carlmjohnson/requests"
	"github.com/cockroachdb/errors"
	"go.uber.org/fx"
)

// Runtime provides access to app-scoped dependencies.
// Inject this into handler constructors via fx instead of pulling from context.
//
// Example:
//
//	type Handlers struct {
//	    rt      *bserve.Runtime[Env]
//	    objects *objstore.Store
//	}
//
//	func (h *Handlers) Index(ctx context.Context, w bpipe.ResponseWriter, r *http.Request) error {
//	    url, _ := h.rt.Reverse("object", "readme.txt")
//	    err := h.rt.NewRequest(h.rt.Env().StatusURL).Fetch(ctx)
//	    // ...
//	}
type Runtime[E Environment] struct {
	env          E
	mux          *Mux
	transport    http.RoundTripper
	secretReader SecretReader
}

// RuntimeParams holds the optional dependencies of a Runtime.
type RuntimeParams struct {
	Transport    http.RoundTripper
	SecretReader SecretReader
}

// NewRuntime creates a new Runtime with the given dependencies.
func NewRuntime[E Environment](env E, mux *Mux, params RuntimeParams) *Runtime[E] {
	return &Runtime[E]{
		env:          env,
		mux:          mux,
		transport:    params.Transport,
		secretReader: params.SecretReader,
	}
}

type runtimeProviderParams[E Environment] struct {
	fx.In

	Env          E
	Mux          *Mux
	Transport    http.RoundTripper
	SecretReader SecretReader
}

func provideRuntime[E Environment](p runtimeProviderParams[E]) *Runtime[E] {
	return NewRuntime(p.Env, p.Mux, RuntimeParams{Transport: p.Transport, SecretReader: p.SecretReader})
}

// Env returns the environment configuration.
func (r *Runtime[E]) Env() E {
	return r.env
}

// Reverse returns the URL for a named route with the given parameters.
// The route must have been registered with a name.
func (r *Runtime[E]) Reverse(name string, params ...string) (string, error) {
	return r.mux.Reverse(name, params...)
}

// NewRequest starts a request to baseURL that is sent over the instrumented transport, so it shows up as a
// child span of the request being served.
func (r *Runtime[E]) NewRequest(baseURL string) *requests.Builder {
	return newRequestBuilder(r.transport).BaseURL(baseURL)
}

// Secret retrieves a secret value from AWS Secrets Manager.
//
// If jsonPath is given the secret is parsed as JSON and the value at that gjson path is returned, otherwise
// the raw secret string is returned. Secrets are cached but read per call so rotations are picked up without
// a restart.
//
//	token, err := h.rt.Secret(ctx, "upstream-token")
//	password, err := h.rt.Secret(ctx, "db-credentials", "password")
func (r *Runtime[E]) Secret(ctx context.Context, secretID string, jsonPath ...string) (string, error) {
	if r.secretReader == nil {
		return "", errors.New("bserve: secret reader not configured")
	}

	return readSecret(ctx, r.secretReader, secretID, jsonPath...)
}
