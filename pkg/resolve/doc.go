// Package resolve maps intercepted request paths to versioned source paths.
//
// A [Manifest] pins every managed dependency to a version. Requests whose path
// contains the intercept source segment (default "bower_components") are
// rewritten under the intercept destination (default "web_components") with
// the pinned version inserted after the dependency name:
//
//	/app/bower_components/polymer/polymer.html
//	    -> web_components/polymer/2.6.0/polymer.html
//
//	/app/bower_components/@org/button/button.js
//	    -> web_components/@org/button/1.0.0/button.js
//
// The sentinel version [Development] keeps the rewritten path but marks the
// result so that callers bypass caching and fetch the original request.
//
// [Resolve] is pure: it performs no I/O and returns the same [Result] for the
// same inputs.
package resolve
