// Package watcher turns filesystem notifications on service files into
// variable-level change events.
//
// One Watcher serves any number of virtual files. Registering a file
// subscribes its parent directory with fsnotify (directories are watched,
// not files, to survive editor rename-and-replace). Write bursts are
// debounced per path; when a path settles, the file is reloaded through
// its accessor, diffed against the shadow copy, and a ChangeEvent naming
// the affected variables is queued for the consumer.
package watcher
