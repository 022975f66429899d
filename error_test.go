package bpipe_test

import (
	"io"
	"net/http"
	"testing"

	"github.com/advdv/bpipe"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestErrorCode(t *testing.T) {
	err1 := bpipe.NewError(bpipe.CodeBadRequest, errors.New("foo"))
	require.Equal(t, bpipe.Code(400), err1.Code())
	require.Equal(t, bpipe.CodeBadRequest, bpipe.CodeOf(err1))
	require.Equal(t, "Bad Request: foo", err1.Error())

	require.Equal(t, bpipe.CodeUnknown, bpipe.CodeOf(errors.New("bar")))
	require.Equal(t, "Unknown: rab", bpipe.NewError(900, errors.New("rab")).Error())
}

func TestErrorCodeOfWrapped(t *testing.T) {
	err := errors.Wrap(bpipe.NewError(bpipe.CodeNotFound, errors.New("no such item")), "get item")
	require.Equal(t, bpipe.CodeNotFound, bpipe.CodeOf(err))
}

func TestErrorIntoResponse(t *testing.T) {
	res := bpipe.NewError(bpipe.CodeForbidden, errors.New("denied")).IntoResponse()
	require.Equal(t, http.StatusForbidden, res.StatusCode())
	require.Equal(t, "text/plain; charset=utf-8", res.Header.Get("Content-Type"))
	require.Equal(t, "nosniff", res.Header.Get("X-Content-Type-Options"))

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Equal(t, "Forbidden: denied\n", string(body))

	res = bpipe.NewError(900, errors.New("odd")).IntoResponse()
	require.Equal(t, http.StatusInternalServerError, res.StatusCode())
}
