// Package watch reports changes to a fixed set of files.
//
// The serve command uses it to keep a board in sync with its items file:
//
//	w := watch.New(watch.Config{Paths: []string{"items.json"}})
//	w.OnChange(func(c watch.Change) { ... })
//	go w.Run(ctx)
//
// Editors often save by writing a new file and renaming it over the old
// one, so the watcher follows the parent directories and filters events by
// name. Bursts of events for one file collapse into a single Change.
package watch
