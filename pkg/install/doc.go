// Package install vendors a project's external component dependencies.
//
// An [Orchestrator] indexes every configured component group in external
// mode, resolves each external reference against the manifest and downloads
// the versioned asset from the remote into the project's intercept
// destination (default "web_components"). Downloaded documents are walked in
// turn, relative to the path they were referenced under, so that a
// dependency's own dependencies are vendored too.
//
// Run returns a lazy stream of [Event] values. Per-node failures (a missing
// manifest entry, a failed download, an unreadable nested document) are
// reported as events carrying Err and do not stop the run. The consumer
// stops the run by breaking out of the loop.
//
//	for ev := range orch.Run(ctx, opts) {
//		if ev.Err != nil {
//			logger.Warn("install", "err", ev.Err)
//			continue
//		}
//		fmt.Printf("(%d/%d) %s\n", ev.Completed, ev.Pending, ev.Label)
//	}
package install
