// Package objstore serves objects from an S3 bucket. Object bodies are streamed to the client as they are
// read from S3, so a GET holds the S3 connection until the response is written and a HEAD releases it as
// soon as the response is normalized.
package objstore

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/advdv/bpipe"
	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cockroachdb/errors"
)

// ObjectGetter is the part of the S3 client the store uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var _ ObjectGetter = (*s3.Client)(nil)

// Store serves the objects of a single bucket.
type Store struct {
	client ObjectGetter
	bucket string
	keyVar string
}

// New creates a store for the bucket. The object key is read from the "key" path value of the route.
func New(client ObjectGetter, bucket string) *Store {
	return &Store{client: client, bucket: bucket, keyVar: "key"}
}

// Service fetches the object named by the request's key path value. The response body is the S3 object body,
// closing it releases the S3 connection.
func (s *Store) Service() bpipe.Service[io.ReadCloser] {
	return bpipe.ServiceFunc[io.ReadCloser](func(ctx context.Context, r *http.Request) bpipe.Future[bpipe.Response[io.ReadCloser]] {
		key := r.PathValue(s.keyVar)
		if key == "" {
			return bpipe.Ready(bpipe.Response[io.ReadCloser]{}, bpipe.NewError(bpipe.CodeNotFound, errors.New("empty object key")))
		}

		input := &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		}
		if v := r.Header.Get("Range"); v != "" {
			input.Range = aws.String(v)
		}
		if v := r.Header.Get("If-None-Match"); v != "" {
			input.IfNoneMatch = aws.String(v)
		}

		return bpipe.Spawn(ctx, func(ctx context.Context) (bpipe.Response[io.ReadCloser], error) {
			out, err := s.client.GetObject(ctx, input)
			if err != nil {
				return bpipe.Response[io.ReadCloser]{}, errors.Wrapf(err, "get object %q", key)
			}

			return objectResponse(out), nil
		})
	})
}

func objectResponse(out *s3.GetObjectOutput) bpipe.Response[io.ReadCloser] {
	hdr := http.Header{}
	hdr.Set("Accept-Ranges", "bytes")

	setIf := func(name string, v *string) {
		if s := aws.ToString(v); s != "" {
			hdr.Set(name, s)
		}
	}

	setIf("Content-Type", out.ContentType)
	setIf("ETag", out.ETag)
	setIf("Cache-Control", out.CacheControl)
	setIf("Content-Encoding", out.ContentEncoding)
	setIf("Content-Range", out.ContentRange)

	if out.ContentLength != nil {
		hdr.Set("Content-Length", strconv.FormatInt(*out.ContentLength, 10))
	}
	if out.LastModified != nil {
		hdr.Set("Last-Modified", out.LastModified.UTC().Format(http.TimeFormat))
	}

	status := http.StatusOK
	if out.ContentRange != nil {
		status = http.StatusPartialContent
	}

	return bpipe.Response[io.ReadCloser]{Status: status, Header: hdr, Body: out.Body}
}

// Recover maps the errors S3 reports for a request onto responses. Errors that don't describe the request
// are passed on.
func Recover(err error) (bpipe.BoxResponse, error) {
	if bpipe.CodeOf(err) != bpipe.CodeUnknown {
		return bpipe.BoxResponse{}, err
	}

	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return bpipe.NewError(bpipe.CodeNotFound, errors.New("object does not exist")).IntoResponse(), nil
	}

	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		switch re.HTTPStatusCode() {
		case http.StatusNotModified:
			return notModified(re), nil
		case http.StatusRequestedRangeNotSatisfiable:
			return bpipe.NewError(bpipe.CodeRequestedRangeNotSatisfiable, errors.New("invalid range")).IntoResponse(), nil
		case http.StatusForbidden:
			return bpipe.NewError(bpipe.CodeNotFound, errors.New("object does not exist")).IntoResponse(), nil
		}
	}

	return bpipe.BoxResponse{}, err
}

// notModifiedHeaders are the validator and caching headers S3 sends with a 304 that a client needs to
// refresh its cached copy.
var notModifiedHeaders = []string{"Cache-Control", "Content-Location", "ETag", "Expires", "Last-Modified", "Vary"}

func notModified(re *awshttp.ResponseError) bpipe.BoxResponse {
	res := bpipe.Status(http.StatusNotModified).IntoResponse()
	if re.Response == nil || re.Response.Response == nil {
		return res
	}

	for _, k := range notModifiedHeaders {
		for _, v := range re.Response.Header.Values(k) {
			res.Header.Add(k, v)
		}
	}

	return res
}

// Routes returns a method router that serves GET and HEAD for the objects of the store.
func (s *Store) Routes() *bpipe.MethodRouter {
	return bpipe.Get(bpipe.HandleError[io.ReadCloser, bpipe.BoxResponse](s.Service(), Recover))
}
