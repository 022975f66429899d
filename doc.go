// Package bpipe provides an asynchronous response pipeline for HTTP services.
//
// # Overview
//
// Every request that reaches a route flows through a short chain of futures before the response is written:
//
//	request → MethodRouter (select service) → RouteFuture (drive it) → OnMethodResponseFuture (fix HEAD)
//	        → HandleErrorFuture (optional recovery) → ToStd (write to the wire)
//
// Handlers do not need to know about HEAD requests, and errors can be turned into responses without losing
// them: the error value travels up until a recovery function or the transport edge decides what to do.
//
// A minimal example:
//
//	mux := bpipe.NewServeMux()
//	mux.Route("/items/{id}", bpipe.GetFunc(func(ctx context.Context, w bpipe.ResponseWriter, r *http.Request) error {
//	    item, err := db.GetItem(ctx, r.PathValue("id"))
//	    if err != nil {
//	        return bpipe.NewError(bpipe.CodeNotFound, err)
//	    }
//	    return json.NewEncoder(w).Encode(item)
//	}), "get-item")
//
// # Futures
//
// A [Future] is polled: [Future.Poll] never blocks and reports whether the result is available, while
// [Future.Ready] returns a channel that is closed once polling can make progress. Combinators wrap other
// futures and only delegate, so a pending inner future makes the whole chain pending without side effects.
// [Await] is the one place that blocks; [ToStd] uses it with the request context.
//
// Futures that are abandoned must be dropped with [Future.Drop]. Dropping releases whatever the chain still
// owns: goroutines started with [Spawn] have their context canceled, response bodies that were produced
// but never taken are closed and recovery functions are released.
//
// # Bodies
//
// Handlers may produce any io.Reader as a body. [Box] erases the concrete type into a [*BoxBody], so that
// every route resolves to the same [BoxResponse] type. Closing a boxed body closes the wrapped body if it is
// an io.Closer; this is how bodies that are never read, such as those of HEAD responses, release their
// resources.
//
// # HEAD requests
//
// A [MethodRouter] serves HEAD requests with the GET service unless a HEAD service is registered explicitly.
// Either way, HEAD responses keep their status and headers but have their body closed and replaced by an
// empty one, with Content-Length set to 0.
//
// # Error recovery
//
// [HandleError] wraps a service with a recovery function. When the service fails, the function is called
// exactly once with the error and may return anything that implements [IntoResponse], or another error:
//
//	svc := bpipe.HandleError[*bpipe.BoxBody, *bpipe.Error](objects, func(err error) (*bpipe.Error, error) {
//	    if errors.Is(err, fs.ErrNotExist) {
//	        return bpipe.NewError(bpipe.CodeNotFound, err), nil
//	    }
//	    return nil, err
//	})
//
// Errors that reach [ToStd] are rendered with their [Code] when they are or wrap an [*Error]. Other errors
// are reported to the [Logger] and turned into a 500 Internal Server Error.
//
// # Buffered handlers
//
// [Handler] implementations write to a [ResponseWriter] that buffers output until the handler returns. When
// a handler returns an error, whatever it wrote is discarded. [ToService] turns a handler into a service that
// runs it on its own goroutine.
//
// # Middleware
//
// [Middleware] wraps services. It typically post-processes the service's future with [Then]:
//
//	func serverHeader(next bpipe.BoxService) bpipe.BoxService {
//	    return bpipe.ServiceFunc[*bpipe.BoxBody](func(ctx context.Context, r *http.Request) bpipe.Future[bpipe.BoxResponse] {
//	        return bpipe.Then(next.Call(ctx, r), func(res bpipe.BoxResponse, err error) (bpipe.BoxResponse, error) {
//	            if err == nil {
//	                res.Header.Set("Server", "bpipe")
//	            }
//	            return res, err
//	        })
//	    })
//	}
//
//	mux := bpipe.NewServeMux()
//	mux.Use(serverHeader)
//
// # Named Routes and URL Reversing
//
// Routes can be named for URL generation, avoiding hardcoded paths:
//
//	mux.Route("/users/{id}", bpipe.GetFunc(getUser), "get-user")
//	url, err := mux.Reverse("get-user", "123")  // returns "/users/123"
package bpipe
