// Package watcher keeps an index in step with a docs tree after the initial
// run.
//
// A HybridWatcher reports changes through fsnotify, falling back to polling
// where fsnotify cannot be initialised. Events are debounced per path and
// delivered in batches. A Syncer applies each batch to an Indexer:
// created or written files are re-indexed, removed or renamed ones are
// deleted from the index.
//
//	w, err := watcher.NewHybridWatcher(opts)
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go func() { _ = w.Start(ctx, docs) }()
//	return syncer.Run(ctx, w)
package watcher
