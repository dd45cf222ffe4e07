// Package workspace manages XML documents stored on a billy filesystem.
//
// A Workspace opens documents as model trees bound through xmlbind, saves
// them back and reloads them when the file changes. A Watcher drives
// reloads from fsnotify events; writes made by Save are recognized by
// their content hash and do not cause a reload.
//
// Model trees are not goroutine-safe against reloads. Code that uses a
// document while a watcher runs wraps its access in Document.Do.
package workspace
