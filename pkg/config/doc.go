// Package config loads wcm project configuration.
//
// Configuration is split into namespaces: browser, bundle, migration, proxy,
// store and install. [Load] searches upward from a directory for the first
// of package.json (its "wcm" key), .wcmrc or .wcmrc.toml and overlays what it
// finds on [Default]. .wcmrc holds TOML, or JSON when its first non-blank
// character is "{".
//
//	[browser]
//	manifestUrl = "manifest.json"
//	interceptSrc = "bower_components"
//
//	[bundle.components]
//	comp = ["comp/index.html"]
//
// Unknown namespaces and keys are not errors; they are returned as warnings
// for the caller to report.
package config
