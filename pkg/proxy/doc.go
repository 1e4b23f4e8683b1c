// Package proxy implements the intercepting, caching reverse proxy.
//
// An [Engine] sits between a browser and the development server. Requests
// whose path contains the intercept source (default "bower_components")
// are resolved against the stored manifest and rewritten to their versioned
// location under the intercept destination. Versioned responses are served
// from a [store.ContentCache] and fetched from the remote on a miss;
// everything else is passed through to the upstream unchanged.
//
// # Lifecycle
//
// Interception follows the install/activate lifecycle of a browser proxy
// worker:
//
//	Uninstalled -> Installing -> Waiting -> Activating -> Active
//
// [Lifecycle.Install] may skip Waiting, and [Lifecycle.Activate] claims
// every client, so requests from pages that were already open are
// intercepted from the next request on. Until the engine is Active all
// requests pass through.
//
// # Control
//
// The manifest and the cache are mutated only by the engine's control loop
// ([Engine.Run]). Callers submit a [Command] with [Engine.Call] and receive
// a [Reply] on a dedicated channel. [NewRouter] exposes the same commands
// over HTTP below /wcm/.
package proxy
