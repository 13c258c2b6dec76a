// Package services defines the [FeedSource] interface for feed snapshot providers and the HTTP
// clients storyx uses to talk to other processes.
//
// # Feed Sources
//
// A [FeedSource] yields a [models.Fixture]: authors plus a flat, time-ordered list of stories.
// [FileSource] reads a JSON document from disk; [FeedClient] fetches the same document from the
// feed proxy's /api/stories endpoint, throttled by a [rate.Limiter] so repeated refreshes do not
// hammer the proxy.
//
// # Remote Control
//
// [RemoteClient] drives a running `storyx serve` instance through its /session endpoints.
//
// Both HTTP clients sit on [APIService], a thin JSON-over-HTTP helper.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrAPIRequest] : transport failure or non-2xx response
//   - [shared.ErrServiceUnavailable] : 5xx response
//   - [shared.ErrInvalidFeed] : the document could not be decoded
package services
