package bserve

import (
	"context"
	"net/http"

	intervalexpr "github.com/MawKKe/integer-interval-expressions-go"
	"github.com/advdv/bpipe"
	"github.com/cockroachdb/errors"
)

// StatusMatcher reports whether a response status is one of a set of codes.
type StatusMatcher func(status int) bool

// ParseErrorStatusCodes parses an interval expression such as "500-599" or "429,500-504".
func ParseErrorStatusCodes(expr string) (StatusMatcher, error) {
	parsed, err := intervalexpr.ParseExpression(expr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse status code expression %q", expr)
	}

	return func(status int) bool { return parsed.Matches(status) }, nil
}

// ValidateErrorStatusCodes checks that the expression parses and includes each of the required codes.
func ValidateErrorStatusCodes(expr string, required ...int) error {
	matches, err := ParseErrorStatusCodes(expr)
	if err != nil {
		return err
	}

	var missing []int
	for _, code := range required {
		if !matches(code) {
			missing = append(missing, code)
		}
	}

	if len(missing) > 0 {
		return errors.Newf("status code expression %q does not include all required codes, missing: %v "+
			"(recommended value: %q)", expr, missing, "500-599")
	}

	return nil
}

// statusOf returns the status the transport will respond with for the outcome of a service.
func statusOf(res bpipe.BoxResponse, err error) int {
	if err == nil {
		return res.StatusCode()
	}

	if code := bpipe.CodeOf(err); code != bpipe.CodeUnknown && http.StatusText(int(code)) != "" {
		return int(code)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}

	return http.StatusInternalServerError
}
