package model

import (
	"slices"
	"strings"

	"github.com/google/btree"
	"golang.org/x/text/cases"

	"github.com/dshills/sapphire/internal/event"
)

// KeyComparator orders index keys. Keys comparing equal share an entry.
// Implementations must be comparable so that indexes can be cached per
// comparator.
type KeyComparator interface {
	Compare(a, b string) int
}

// Built-in comparators.
var (
	// Lexical compares keys byte-wise. It is the default.
	Lexical KeyComparator = lexical{}

	// CaseInsensitive compares keys after Unicode case folding.
	CaseInsensitive KeyComparator = caseInsensitive{}
)

type lexical struct{}

func (lexical) Compare(a, b string) int { return strings.Compare(a, b) }

type caseInsensitive struct{}

func (caseInsensitive) Compare(a, b string) int {
	return strings.Compare(cases.Fold().String(a), cases.Fold().String(b))
}

type indexID struct {
	prop *ValueProperty
	cmp  KeyComparator
}

// indexKey is the key of one entry. Elements without text are indexed
// under the null key, which sorts before every text key.
type indexKey struct {
	text string
	null bool
}

func keyOf(text string) indexKey {
	if text == "" {
		return indexKey{null: true}
	}
	return indexKey{text: text}
}

type indexEntry struct {
	key   indexKey
	elems []*Element
}

// Index maps the text of one value property to the entries of a list. It
// is built on first use and then maintained under the tree lock by the
// list and by the key fields of its entries, so it stays current while
// event delivery is suspended. Only IndexEvents are subject to the gate.
type Index struct {
	list *List
	prop *ValueProperty
	cmp  KeyComparator

	tree     *btree.BTreeG[*indexEntry]
	tracked  map[*Element]indexKey
	ready    bool
	disposed bool

	listeners *event.Broadcaster
}

func newIndex(l *List, p *ValueProperty, cmp KeyComparator) *Index {
	ix := &Index{
		list:      l,
		prop:      p,
		cmp:       cmp,
		tracked:   make(map[*Element]indexKey),
		listeners: event.NewBroadcaster(l.e.queue, l.e.gate),
	}
	compare := cmp
	if compare == nil {
		compare = Lexical
	}
	ix.tree = btree.NewG(8, func(a, b *indexEntry) bool {
		if a.key.null != b.key.null {
			return a.key.null
		}
		return compare.Compare(a.key.text, b.key.text) < 0
	})
	return ix
}

// List returns the indexed list.
func (ix *Index) List() *List { return ix.list }

// Property returns the key property.
func (ix *Index) Property() *ValueProperty { return ix.prop }

// Comparator returns the comparator given when the index was requested,
// nil for the default.
func (ix *Index) Comparator() KeyComparator { return ix.cmp }

func (ix *Index) initLocked() error {
	if ix.disposed || ix.list.e.disposed {
		return ErrDisposed
	}
	if ix.ready {
		return nil
	}
	if err := ix.list.refreshLocked(); err != nil {
		return err
	}
	for _, e := range ix.list.entries {
		if _, err := ix.trackLocked(e); err != nil {
			return err
		}
	}
	ix.ready = true
	return nil
}

// keyLocked reads the persisted text of the key property of e.
func (ix *Index) keyLocked(e *Element) (indexKey, error) {
	if e.typ != ix.prop.owner {
		return keyOf(""), nil
	}
	text, ok, err := e.fieldLocked(ix.prop).readLocked()
	if err != nil {
		return indexKey{}, err
	}
	if !ok {
		text = ""
	}
	return keyOf(text), nil
}

// trackLocked inserts e under its key.
func (ix *Index) trackLocked(e *Element) (bool, error) {
	if _, ok := ix.tracked[e]; ok || e.disposed {
		return false, nil
	}
	key, err := ix.keyLocked(e)
	if err != nil {
		return false, err
	}
	ix.tracked[e] = key
	ix.insert(key, e)
	return true, nil
}

func (ix *Index) untrackLocked(e *Element) bool {
	key, ok := ix.tracked[e]
	if !ok {
		return false
	}
	delete(ix.tracked, e)
	ix.remove(key, e)
	return true
}

func (ix *Index) insert(key indexKey, e *Element) {
	probe := &indexEntry{key: key}
	if entry, ok := ix.tree.Get(probe); ok {
		entry.elems = append(entry.elems, e)
		return
	}
	probe.elems = []*Element{e}
	ix.tree.ReplaceOrInsert(probe)
}

func (ix *Index) remove(key indexKey, e *Element) {
	entry, ok := ix.tree.Get(&indexEntry{key: key})
	if !ok {
		return
	}
	entry.elems = slices.DeleteFunc(entry.elems, func(x *Element) bool { return x == e })
	if len(entry.elems) == 0 {
		ix.tree.Delete(entry)
	}
}

func (ix *Index) live() bool {
	return ix.ready && !ix.disposed
}

func (ix *Index) broadcastLocked() {
	ix.listeners.Broadcast(&IndexEvent{Base: event.NewBase(TopicIndexChanged), Index: ix})
}

// rescanLocked tracks new entries and drops entries that left the list or
// were disposed.
func (ix *Index) rescanLocked() bool {
	changed := false
	present := make(map[*Element]bool, len(ix.list.entries))
	for _, e := range ix.list.entries {
		present[e] = true
		added, err := ix.trackLocked(e)
		if err != nil {
			ix.list.e.typ.schema.log.Warn("index entry skipped", "property", ix.prop.String(), "err", err)
			continue
		}
		changed = changed || added
	}
	for e := range ix.tracked {
		if e.disposed || !present[e] {
			changed = ix.untrackLocked(e) || changed
		}
	}
	return changed
}

func (ix *Index) rekeyLocked(e *Element) bool {
	old, ok := ix.tracked[e]
	if !ok {
		return false
	}
	key, err := ix.keyLocked(e)
	if err != nil {
		return ix.untrackLocked(e)
	}
	if key == old {
		return false
	}
	ix.remove(old, e)
	ix.tracked[e] = key
	ix.insert(key, e)
	return true
}

// Element returns an element whose key equals key, or nil. The empty key
// finds elements without a value.
func (ix *Index) Element(key string) (*Element, error) {
	elems, err := ix.Elements(key)
	if err != nil || len(elems) == 0 {
		return nil, err
	}
	return elems[0], nil
}

// Elements returns every element whose key equals key.
func (ix *Index) Elements(key string) ([]*Element, error) {
	root := ix.list.e
	root.lock.Lock()
	defer root.lock.Unlock()
	if err := ix.initLocked(); err != nil {
		return nil, err
	}
	entry, ok := ix.tree.Get(&indexEntry{key: keyOf(key)})
	if !ok {
		return nil, nil
	}
	return slices.Clone(entry.elems), nil
}

// Keys returns the distinct keys in comparator order. Elements without a
// value contribute "" as the first key.
func (ix *Index) Keys() ([]string, error) {
	root := ix.list.e
	root.lock.Lock()
	defer root.lock.Unlock()
	if err := ix.initLocked(); err != nil {
		return nil, err
	}
	keys := make([]string, 0, ix.tree.Len())
	ix.tree.Ascend(func(entry *indexEntry) bool {
		keys = append(keys, entry.key.text)
		return true
	})
	return keys, nil
}

// Attach registers a listener for IndexEvents. Attaching initializes the
// index.
func (ix *Index) Attach(l event.Listener) (*event.Subscription, error) {
	if l == nil {
		return nil, ErrNilListener
	}
	root := ix.list.e
	root.lock.Lock()
	defer root.lock.Unlock()
	if err := ix.initLocked(); err != nil {
		return nil, err
	}
	return ix.listeners.Attach(l)
}

// Detach removes a listener. Unknown listeners are ignored.
func (ix *Index) Detach(l event.Listener) error {
	if l == nil {
		return ErrNilListener
	}
	return ix.listeners.Detach(l)
}

func (ix *Index) disposeLocked() {
	if ix.disposed {
		return
	}
	ix.disposed = true
	clear(ix.tracked)
	ix.tree.Clear(false)
	ix.listeners.Clear()
}
