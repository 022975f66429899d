package bserve

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"github.com/rs/xid"
)

var regexRequestID = regexp.MustCompile(`^[a-zA-Z0-9@=/+-]{12,64}$`)

// withRequestID assigns every request an ID. An ID sent by the client in the header is accepted if it is
// well-formed; a malformed one is rejected with 400 Bad Request. The ID is echoed in the same response header
// on every response, including those the transport renders for errors.
func withRequestID(header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := xid.New().String()
			if v := r.Header.Get(header); v != "" {
				if !regexRequestID.MatchString(v) {
					http.Error(w, fmt.Sprintf("invalid request ID %q in header %q", v, header), http.StatusBadRequest)
					return
				}

				id = v
			}

			w.Header().Set(header, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, id)))
		})
	}
}
