package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/advdv/bpipe"
	"github.com/advdv/bpipe/bserve"
	"github.com/advdv/bpipe/objstore"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
	"go.uber.org/fx"
)

// Env is the environment of bpiped.
type Env struct {
	bserve.BaseEnvironment

	// ObjectBucket enables the object routes when set.
	ObjectBucket string `env:"BP_OBJECT_BUCKET"`
	// UpstreamURL enables the proxy routes when set.
	UpstreamURL *url.URL `env:"BP_UPSTREAM_URL"`
	// UpstreamTokenSecret names the secret holding the bearer token sent to the upstream. Proxied requests
	// are sent without Authorization header when it is empty.
	UpstreamTokenSecret string `env:"BP_UPSTREAM_TOKEN_SECRET"`
	// UpstreamTokenPath is the gjson path of the token within a JSON secret.
	UpstreamTokenPath string `env:"BP_UPSTREAM_TOKEN_PATH"`
}

func parseEnv() (Env, error) { return bserve.ParseEnv[Env]()() }

// Serve starts the server and blocks until it is interrupted.
type Serve struct{}

// Run implements the serve command.
func (Serve) Run(rctx *runContext) error {
	app := bserve.NewApp[Env](routing,
		bserve.WithAWSClient(func(cfg aws.Config) *s3.Client { return s3.NewFromConfig(cfg) }),
		bserve.WithFx(fx.Provide(newObjectStore)),
	)
	if err := app.Err(); err != nil {
		return err
	}

	return app.Start(rctx.ctx)
}

func newObjectStore(env Env, client *s3.Client) *objstore.Store {
	return objstore.New(client, env.ObjectBucket)
}

type deps struct {
	env     Env
	objects *objstore.Store
	client  *http.Client
	rt      *bserve.Runtime[Env]
}

type route struct {
	pattern string
	name    string
	methods string
	router  func(deps) *bpipe.MethodRouter
}

func demoRoutes(withObjects, withUpstream bool) []route {
	routes := []route{{
		pattern: "/",
		name:    "index",
		methods: "GET, HEAD, POST",
		router: func(deps) *bpipe.MethodRouter {
			return bpipe.GetFunc(index).PostFunc(echo)
		},
	}}

	if withObjects {
		routes = append(routes, route{
			pattern: "/objects/{key...}",
			name:    "object",
			methods: "GET, HEAD",
			router:  func(d deps) *bpipe.MethodRouter { return d.objects.Routes() },
		})
	}

	if withUpstream {
		routes = append(routes, route{
			pattern: "/proxy/{path...}",
			name:    "proxy",
			methods: "GET, HEAD, POST, PUT, DELETE",
			router: func(d deps) *bpipe.MethodRouter {
				proxy := bpipe.Boxed(bserve.Upstream(upstreamClient(d), d.env.UpstreamURL))
				return bpipe.Get(proxy).Post(proxy).Put(proxy).Delete(proxy)
			},
		})
	}

	return routes
}

func routing(m *bserve.Mux, env Env, objects *objstore.Store, client *http.Client, rt *bserve.Runtime[Env]) {
	d := deps{env: env, objects: objects, client: client, rt: rt}
	for _, r := range demoRoutes(env.ObjectBucket != "", env.UpstreamURL != nil) {
		m.Route(r.pattern, r.router(d), r.name)
	}
}

// upstreamClient returns the client for proxied requests. With BP_UPSTREAM_TOKEN_SECRET set, every request
// carries the secret's current value as bearer token.
func upstreamClient(d deps) *http.Client {
	if d.env.UpstreamTokenSecret == "" {
		return d.client
	}

	c := *d.client
	c.Transport = &bearerTransport{
		base: d.client.Transport,
		token: func(ctx context.Context) (string, error) {
			return d.rt.Secret(ctx, d.env.UpstreamTokenSecret, d.env.UpstreamTokenPath)
		},
	}

	return &c
}

type bearerTransport struct {
	base  http.RoundTripper
	token func(context.Context) (string, error)
}

func (t *bearerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	token, err := t.token(r.Context())
	if err != nil {
		if r.Body != nil {
			_ = r.Body.Close()
		}
		return nil, errors.Wrap(err, "read upstream token")
	}

	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+token)

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	return base.RoundTrip(r)
}

func index(ctx context.Context, w bpipe.ResponseWriter, _ *http.Request) error {
	bserve.Log(ctx).Info("serving index")

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err := fmt.Fprintf(w, "hello from bpiped %s\n", version)

	return err
}

func echo(ctx context.Context, w bpipe.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return bpipe.NewError(bpipe.CodeBadRequest, err)
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]any{
		"request_id": bserve.RequestID(ctx),
		"size":       len(body),
		"body":       string(body),
	})
}
