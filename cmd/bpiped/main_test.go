package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/advdv/bpipe/bserve"
	"github.com/advdv/bpipe/bserve/bservetest"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestRoutesCommand(t *testing.T) {
	t.Run("without bucket", func(t *testing.T) {
		t.Setenv("BP_OBJECT_BUCKET", "")

		var out bytes.Buffer
		require.NoError(t, run(t.Context(), []string{"routes"}, &out, io.Discard))
		assert.Contains(t, out.String(), "index")
		assert.NotContains(t, out.String(), "/objects/")
	})

	t.Run("with bucket", func(t *testing.T) {
		t.Setenv("BP_OBJECT_BUCKET", "my-bucket")

		var out bytes.Buffer
		require.NoError(t, run(t.Context(), []string{"routes"}, &out, io.Discard))
		assert.Contains(t, out.String(), "/objects/{key...}")
	})
}

func TestCheckEnvCommand(t *testing.T) {
	bservetest.SetBaseEnv(t, 18190).ServiceName("bpiped")

	var out bytes.Buffer
	require.NoError(t, run(t.Context(), []string{"check-env"}, &out, io.Discard))
	assert.Equal(t, "service \"bpiped\" on port 18190, request timeout 30s\n", out.String())

	t.Setenv("BP_REQUEST_TIMEOUT", "soon")
	require.Error(t, run(t.Context(), []string{"check-env"}, &out, io.Discard))
}

func TestEcho(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("ping"))

	rec, logs := bservetest.CallHandler(t, echo, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"request_id":"","size":4,"body":"ping"}`, rec.Body.String())
	assert.Zero(t, logs.NumLogUnhandledServeError)
}

func TestServeDemoRoutes(t *testing.T) {
	bservetest.SetBaseEnv(t, 18191)

	app := bservetest.New[Env](t, routing,
		bserve.WithAWSClient(func(cfg aws.Config) *s3.Client { return s3.NewFromConfig(cfg) }),
		bserve.WithFx(fx.Provide(newObjectStore)),
	)
	app.RequireStart()
	t.Cleanup(app.RequireStop)

	get := func(method string, body io.Reader) (*http.Response, string) {
		req, err := http.NewRequestWithContext(context.Background(), method, "http://localhost:18191/", body)
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		return resp, string(data)
	}

	resp, body := get(http.MethodGet, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello from bpiped dev\n", body)

	resp, body = get(http.MethodHead, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body)

	resp, body = get(http.MethodPost, strings.NewReader("hi"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"body":"hi"`)
	assert.Contains(t, body, resp.Header.Get("X-Request-Id"))

	resp, _ = get(http.MethodDelete, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "GET, HEAD, POST", resp.Header.Get("Allow"))
}

func TestServeProxyRoute(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream-Path", r.URL.Path)
		fmt.Fprint(w, "from upstream")
	}))
	defer upstream.Close()

	bservetest.SetBaseEnv(t, 18192)
	t.Setenv("BP_UPSTREAM_URL", upstream.URL+"/api")

	var out bytes.Buffer
	require.NoError(t, run(t.Context(), []string{"routes"}, &out, io.Discard))
	assert.Contains(t, out.String(), "/proxy/{path...}")

	app := bservetest.New[Env](t, routing,
		bserve.WithAWSClient(func(cfg aws.Config) *s3.Client { return s3.NewFromConfig(cfg) }),
		bserve.WithFx(fx.Provide(newObjectStore)),
	)
	app.RequireStart()
	t.Cleanup(app.RequireStop)

	resp, err := http.Get("http://localhost:18192/proxy/users/1")
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "from upstream", string(data))
	assert.Equal(t, "/api/users/1", resp.Header.Get("X-Upstream-Path"))
}

type staticSecrets map[string]string

func (s staticSecrets) GetSecretString(_ context.Context, secretID string) (string, error) {
	v, ok := s[secretID]
	if !ok {
		return "", fmt.Errorf("secret %q not found", secretID)
	}

	return v, nil
}

func TestServeProxyRouteWithBearerToken(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, r.Header.Get("Authorization"))
	}))
	defer upstream.Close()

	bservetest.SetBaseEnv(t, 18193)
	t.Setenv("BP_UPSTREAM_URL", upstream.URL)
	t.Setenv("BP_UPSTREAM_TOKEN_SECRET", "upstream-credentials")
	t.Setenv("BP_UPSTREAM_TOKEN_PATH", "token")

	secrets := staticSecrets{"upstream-credentials": `{"token": "abc123"}`}
	app := bservetest.New[Env](t, routing,
		bserve.WithAWSClient(func(cfg aws.Config) *s3.Client { return s3.NewFromConfig(cfg) }),
		bserve.WithFx(
			fx.Provide(newObjectStore),
			fx.Decorate(func(bserve.SecretReader) bserve.SecretReader { return secrets }),
		),
	)
	app.RequireStart()
	t.Cleanup(app.RequireStop)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "http://localhost:18193/proxy/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Basic client-credentials")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bearer abc123", string(data))
}

func TestBearerTransport(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, r.Header.Get("Authorization"))
	}))
	defer upstream.Close()

	t.Run("sets token without touching the request", func(t *testing.T) {
		client := &http.Client{Transport: &bearerTransport{token: func(context.Context) (string, error) {
			return "tok", nil
		}}}

		req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, upstream.URL, nil)
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "Bearer tok", string(data))
		assert.Empty(t, req.Header.Get("Authorization"))
	})

	t.Run("secret failure fails the request", func(t *testing.T) {
		client := &http.Client{Transport: &bearerTransport{token: func(context.Context) (string, error) {
			return "", errors.New("access denied")
		}}}

		req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, upstream.URL, strings.NewReader("body"))
		require.NoError(t, err)

		_, err = client.Do(req) //nolint:bodyclose
		require.ErrorContains(t, err, "read upstream token")
	})
}
