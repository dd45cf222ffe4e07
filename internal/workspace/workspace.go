package workspace

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"

	"github.com/dshills/sapphire/internal/event"
	"github.com/dshills/sapphire/internal/logging"
	"github.com/dshills/sapphire/internal/model"
	"github.com/dshills/sapphire/internal/xmlbind"
)

// Workspace tracks the documents opened from one filesystem.
type Workspace struct {
	fs   billy.Filesystem
	log  *logging.Logger
	root []xmlbind.RootOption

	queue     *event.Queue
	listeners *event.Broadcaster

	mu     sync.Mutex
	docs   map[string]*Document
	closed bool
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(w *Workspace) {
		w.log = l
	}
}

// WithRootOptions configures the root resources of opened documents.
func WithRootOptions(opts ...xmlbind.RootOption) Option {
	return func(w *Workspace) {
		w.root = append(w.root, opts...)
	}
}

// New creates a workspace over fs.
func New(fs billy.Filesystem, opts ...Option) *Workspace {
	w := &Workspace{
		fs:   fs,
		docs: make(map[string]*Document),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = logging.OrNop(w.log).WithComponent("workspace")
	w.queue = event.NewQueue(w.log)
	w.listeners = event.NewBroadcaster(w.queue, nil)
	return w
}

// Filesystem returns the workspace filesystem.
func (w *Workspace) Filesystem() billy.Filesystem { return w.fs }

// Attach registers a listener for DocumentEvents of every document.
func (w *Workspace) Attach(l event.Listener) (*event.Subscription, error) {
	return w.listeners.Attach(l)
}

// Detach removes a listener.
func (w *Workspace) Detach(l event.Listener) error {
	return w.listeners.Detach(l)
}

func (w *Workspace) broadcast(ev event.Event) {
	w.listeners.Broadcast(ev)
	w.queue.Drain()
}

// Open returns the document at path with root type t. A missing file
// yields an empty document that is created on Save. Opening an open
// document returns it again.
func (w *Workspace) Open(path string, t *model.ElementType) (*Document, error) {
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrClosed
	}
	if d, ok := w.docs[path]; ok {
		if d.root.Type() != t {
			return nil, fmt.Errorf("%w: %s is a %s", ErrTypeMismatch, path, d.root.Type())
		}
		return d, nil
	}

	data, err := util.ReadFile(w.fs, path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	store, err := xmlbind.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	d := &Document{
		ws:    w,
		id:    uuid.New(),
		path:  path,
		store: store,
		hash:  sha256.Sum256(data),
	}
	d.resource = xmlbind.NewRootResource(store, w.root...)
	d.root = t.Instantiate(d.resource)
	w.docs[path] = d
	w.log.Debug("document opened", "path", path, "id", d.id.String())
	return d, nil
}

// Open opens a single document in a new workspace over fs.
func Open(fs billy.Filesystem, path string, t *model.ElementType, opts ...Option) (*Document, error) {
	return New(fs, opts...).Open(path, t)
}

// Document returns the open document at path.
func (w *Workspace) Document(path string) (*Document, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	d, ok := w.docs[filepath.Clean(path)]
	return d, ok
}

// Documents returns the open documents ordered by path.
func (w *Workspace) Documents() []*Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*Document, 0, len(w.docs))
	for _, d := range w.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out
}

func (w *Workspace) forget(d *Document) {
	w.mu.Lock()
	if w.docs[d.path] == d {
		delete(w.docs, d.path)
	}
	w.mu.Unlock()
}

// Close closes every document without saving.
func (w *Workspace) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	var errs []error
	for _, d := range w.Documents() {
		if err := d.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Document is an open XML document and the model tree bound to it.
type Document struct {
	ws       *Workspace
	id       uuid.UUID
	path     string
	store    *xmlbind.Store
	resource *xmlbind.RootResource
	root     *model.Element

	mu     sync.Mutex
	hash   [sha256.Size]byte
	closed bool
}

// ID returns the identifier assigned when the document was opened.
func (d *Document) ID() uuid.UUID { return d.id }

// Path returns the path within the workspace filesystem.
func (d *Document) Path() string { return d.path }

// Root returns the root model element.
func (d *Document) Root() *model.Element { return d.root }

// Store returns the XML store.
func (d *Document) Store() *xmlbind.Store { return d.store }

// Resource returns the root resource.
func (d *Document) Resource() *xmlbind.RootResource { return d.resource }

// Do runs fn with the document locked against saves and reloads.
func (d *Document) Do(fn func(root *model.Element) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	return fn(d.root)
}

// Bytes serializes the document.
func (d *Document) Bytes() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.Bytes()
}

// Dirty reports whether the document differs from the file content last
// read or written.
func (d *Document) Dirty() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, err := d.store.Bytes()
	if err != nil {
		return false, err
	}
	return sha256.Sum256(data) != d.hash, nil
}

// Save writes the document to its file.
func (d *Document) Save() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	data, err := d.store.Bytes()
	if err == nil {
		err = d.write(data)
	}
	d.mu.Unlock()
	if err != nil {
		return fmt.Errorf("save %s: %w", d.path, err)
	}

	d.ws.log.Info("document saved", "path", d.path, "bytes", len(data))
	d.ws.broadcast(newDocumentEvent(TopicSaved, d))
	return nil
}

func (d *Document) write(data []byte) error {
	if dir := filepath.Dir(d.path); dir != "." {
		if err := d.ws.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := util.WriteFile(d.ws.fs, d.path, data, 0o644); err != nil {
		return err
	}
	d.hash = sha256.Sum256(data)
	return nil
}

// Reload re-reads the file and refreshes the model tree when its content
// differs from what was last read or written. Elements whose nodes are
// gone are disposed and their node handles swept. It reports whether the
// document changed.
func (d *Document) Reload() (bool, error) {
	d.mu.Lock()
	changed, swept, err := d.reloadLocked()
	d.mu.Unlock()
	if err != nil {
		return false, fmt.Errorf("reload %s: %w", d.path, err)
	}
	if !changed {
		return false, nil
	}

	d.ws.log.Info("document reloaded", "path", d.path, "swept", swept)
	d.ws.broadcast(newDocumentEvent(TopicReloaded, d))
	return true, nil
}

func (d *Document) reloadLocked() (bool, int, error) {
	if d.closed {
		return false, 0, ErrClosed
	}
	data, err := util.ReadFile(d.ws.fs, d.path)
	if errors.Is(err, os.ErrNotExist) {
		data, err = nil, nil
	}
	if err != nil {
		return false, 0, err
	}
	sum := sha256.Sum256(data)
	if sum == d.hash {
		return false, 0, nil
	}
	// The hash is recorded only once the tree reflects the bytes, so a
	// failed refresh is retried by the next reload.
	if current, err := d.store.Bytes(); err == nil && bytes.Equal(current, data) {
		if err := d.root.Refresh(); err != nil {
			return false, 0, err
		}
		d.hash = sum
		return false, 0, nil
	}

	if err := d.store.ReplaceBytes(data); err != nil {
		return false, 0, err
	}
	if err := d.root.Refresh(); err != nil {
		return true, d.store.Sweep(), err
	}
	d.hash = sum
	return true, d.store.Sweep(), nil
}

// Close disposes the model tree and forgets the document. Unsaved
// changes are lost.
func (d *Document) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.root.Dispose()
	d.store.Sweep()
	d.mu.Unlock()

	d.ws.forget(d)
	d.ws.broadcast(newDocumentEvent(TopicClosed, d))
	return nil
}
