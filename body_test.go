package bpipe_test

import (
	"bytes"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/advdv/bpipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trackingBody records whether it was closed, like an S3 object body or a file would need to be.
type trackingBody struct {
	io.Reader
	closed atomic.Int32
}

func newTrackingBody(s string) *trackingBody {
	return &trackingBody{Reader: strings.NewReader(s)}
}

func (b *trackingBody) Close() error {
	b.closed.Add(1)
	return nil
}

func (b *trackingBody) NumClosed() int { return int(b.closed.Load()) }

func TestBoxReadsWrappedBody(t *testing.T) {
	body := bpipe.Box(strings.NewReader("hello"))

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
	require.NoError(t, body.Close())
}

func TestBoxOfBoxIsIdentity(t *testing.T) {
	inner := bpipe.Box(strings.NewReader("x"))
	require.Same(t, inner, bpipe.Box(inner))
}

func TestBoxNil(t *testing.T) {
	var rc io.ReadCloser
	body := bpipe.Box(rc)

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Empty(t, data)

	var bb *bpipe.BoxBody
	require.NotNil(t, bpipe.Box(bb))
}

func TestBoxTypedNil(t *testing.T) {
	for name, body := range map[string]*bpipe.BoxBody{
		"strings reader": bpipe.Box((*strings.Reader)(nil)),
		"bytes buffer":   bpipe.Box((*bytes.Buffer)(nil)),
		"closer":         bpipe.Box((*trackingBody)(nil)),
	} {
		t.Run(name, func(t *testing.T) {
			data, err := io.ReadAll(body)
			require.NoError(t, err)
			require.Empty(t, data)

			var buf bytes.Buffer
			n, err := body.WriteTo(&buf)
			require.NoError(t, err)
			require.Zero(t, n)
			require.NoError(t, body.Close())
		})
	}

	t.Run("zero response", func(t *testing.T) {
		var res bpipe.Response[*trackingBody]
		require.NoError(t, res.Close())

		boxed := res.Boxed()
		require.NotNil(t, boxed.Body)
		require.NoError(t, boxed.Close())
	})
}

func TestBoxCloseRunsCleanupOnce(t *testing.T) {
	tb := newTrackingBody("abc")
	body := bpipe.Box(tb)

	require.NoError(t, body.Close())
	require.NoError(t, body.Close())
	assert.Equal(t, 1, tb.NumClosed())

	_, err := body.Read(make([]byte, 1))
	require.ErrorIs(t, err, bpipe.ErrBodyClosed)
}

func TestBoxWriteTo(t *testing.T) {
	body := bpipe.Box(strings.NewReader("streamed"))

	var buf bytes.Buffer
	n, err := body.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(8), n)
	require.Equal(t, "streamed", buf.String())
}

func TestEmptyBody(t *testing.T) {
	var buf bytes.Buffer
	n, err := bpipe.Empty().WriteTo(&buf)
	require.NoError(t, err)
	require.Zero(t, n)
	require.NoError(t, bpipe.Empty().Close())
}
