// Package migrate moves a project from node_modules to the versioned
// component layout.
//
// Dependencies are discovered from the project's package file and then,
// transitively, from each dependency's own package file under the deps
// root. The lookup keys for name, version and dependencies are
// configurable, as is the package file name (a comma separated list of
// candidates, first existing wins).
//
// [Migrator.Run] copies every discovered dependency directory to
// depsOutDir/name/version and reports progress with the same events as the
// installer.
package migrate
