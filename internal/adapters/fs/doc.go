// Package fs holds the local-disk adapters: the admin token file, a debounced
// fsnotify file watcher and a directory-backed object store.
package fs
