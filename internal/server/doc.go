// Package server provides HTTP routing, middleware, and the remote control surface for a playback session.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Session Handler
//
// [SessionHandler] drives a [playback.Sequencer]:
//
//	GET  /session                 current snapshot
//	POST /session/{next,prev,pause,resume,close}
//	POST /session/jump            {"authorIndex":1,"itemIndex":0} or {"authorId":"..."}
//	POST /session/duration        {"itemId":"...","durationMs":12000} from a media decoder
//	POST /session/open            reloads groups from the [GroupSource]; optional {"authorId","itemId"}
//	GET  /session/stream          websocket of snapshots
//
// Commands answer with the resulting snapshot. Invalid jumps answer 400 and leave the session untouched.
// State-changing requests pass through [RateLimit]; reads and the stream are never throttled.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
