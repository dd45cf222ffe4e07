package workspace

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// Watcher reloads open documents when their files change on disk.
// Documents opened after the watcher was created are not watched.
type Watcher struct {
	ws      *Workspace
	watcher *fsnotify.Watcher

	mu    sync.Mutex
	paths map[string]*Document

	reloads atomic.Int64
	errors  atomic.Int64
}

// Watcher creates a watcher for the open documents. The filesystem must
// be an osfs filesystem.
func (w *Workspace) Watcher() (*Watcher, error) {
	root := w.fs.Root()
	if !onDisk(w.fs) || !filepath.IsAbs(root) {
		return nil, fmt.Errorf("%w: root %q", ErrNotWatchable, root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	wt := &Watcher{ws: w, watcher: fsw, paths: make(map[string]*Document)}

	dirs := make(map[string]bool)
	for _, d := range w.Documents() {
		abs := filepath.Join(root, d.path)
		wt.paths[abs] = d
		// Watch directories so files replaced by rename are seen.
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}
	return wt, nil
}

// onDisk unwraps chroot helpers down to the base filesystem.
func onDisk(fs billy.Basic) bool {
	for {
		switch f := fs.(type) {
		case *osfs.ChrootOS, *osfs.BoundOS:
			return true
		case interface{ Underlying() billy.Basic }:
			fs = f.Underlying()
		default:
			return false
		}
	}
}

// Watch watches the open documents until ctx is done.
func (w *Workspace) Watch(ctx context.Context) error {
	wt, err := w.Watcher()
	if err != nil {
		return err
	}
	return wt.Run(ctx)
}

// Run processes file events until ctx is done or Close is called. It
// closes the watcher on return.
func (wt *Watcher) Run(ctx context.Context) error {
	defer wt.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-wt.watcher.Events:
			if !ok {
				return nil
			}
			wt.handle(ev)

		case err, ok := <-wt.watcher.Errors:
			if !ok {
				return nil
			}
			wt.errors.Add(1)
			wt.ws.log.Warn("watcher error", "error", err)
		}
	}
}

func (wt *Watcher) handle(ev fsnotify.Event) {
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
		return
	}
	wt.mu.Lock()
	d := wt.paths[filepath.Clean(ev.Name)]
	wt.mu.Unlock()
	if d == nil {
		return
	}

	changed, err := d.Reload()
	if err != nil {
		wt.errors.Add(1)
		wt.ws.log.Warn("reload failed", "path", d.path, "error", err)
		return
	}
	if changed {
		wt.reloads.Add(1)
	}
}

// Reloads returns the number of reloads that changed a document.
func (wt *Watcher) Reloads() int64 { return wt.reloads.Load() }

// Errors returns the number of watcher and reload errors.
func (wt *Watcher) Errors() int64 { return wt.errors.Load() }

// Close stops the watcher.
func (wt *Watcher) Close() error {
	return wt.watcher.Close()
}
