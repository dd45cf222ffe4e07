package xmlbind

import (
	"fmt"
	"slices"
	"sync"

	"github.com/beevik/etree"

	"github.com/dshills/sapphire/internal/model"
)

// NodeID is a stable handle for a DOM element. Handles are never reused.
type NodeID uint64

// Store owns an XML document, the handles of its elements and the
// registry mapping elements to the model elements they back.
type Store struct {
	mu       sync.Mutex
	doc      *etree.Document
	next     NodeID
	ids      map[*etree.Element]NodeID
	nodes    map[NodeID]*etree.Element
	registry map[NodeID][]*model.Element
}

// NewStore wraps doc. A nil doc starts an empty document.
func NewStore(doc *etree.Document) *Store {
	if doc == nil {
		doc = etree.NewDocument()
	}
	return &Store{
		doc:      doc,
		ids:      make(map[*etree.Element]NodeID),
		nodes:    make(map[NodeID]*etree.Element),
		registry: make(map[NodeID][]*model.Element),
	}
}

// Parse creates a store from serialized XML. Empty input yields an empty
// document.
func Parse(data []byte) (*Store, error) {
	doc, err := parseDocument(data)
	if err != nil {
		return nil, err
	}
	return NewStore(doc), nil
}

func parseDocument(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	if len(data) == 0 {
		return doc, nil
	}
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}
	return doc, nil
}

// Document returns the DOM.
func (s *Store) Document() *etree.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Replace swaps in a new DOM. Handles of the old DOM stay resolvable
// until the next Sweep.
func (s *Store) Replace(doc *etree.Document) {
	if doc == nil {
		doc = etree.NewDocument()
	}
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
}

// ReplaceBytes parses data and swaps it in.
func (s *Store) ReplaceBytes(data []byte) error {
	doc, err := parseDocument(data)
	if err != nil {
		return err
	}
	s.Replace(doc)
	return nil
}

// Bytes serializes the document with two-space indentation.
func (s *Store) Bytes() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Indent(2)
	return s.doc.WriteToBytes()
}

// Handle returns the handle of node, assigning one on first use.
func (s *Store) Handle(node *etree.Element) NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handleLocked(node)
}

func (s *Store) handleLocked(node *etree.Element) NodeID {
	if id, ok := s.ids[node]; ok {
		return id
	}
	s.next++
	s.ids[node] = s.next
	s.nodes[s.next] = node
	return s.next
}

// Node resolves a handle. It returns nil for swept handles.
func (s *Store) Node(id NodeID) *etree.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nodes[id]
}

// RegisterModelElement records that node backs e.
func (s *Store) RegisterModelElement(node *etree.Element, e *model.Element) {
	if node == nil || e == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.handleLocked(node)
	if !slices.Contains(s.registry[id], e) {
		s.registry[id] = append(s.registry[id], e)
	}
}

// UnregisterModelElement removes the record that node backs e.
func (s *Store) UnregisterModelElement(node *etree.Element, e *model.Element) {
	if node == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.ids[node]
	if !ok {
		return
	}
	elems := slices.DeleteFunc(s.registry[id], func(x *model.Element) bool { return x == e })
	if len(elems) == 0 {
		delete(s.registry, id)
		return
	}
	s.registry[id] = elems
}

// ModelElements returns the model elements backed by node. When node
// backs none, its ancestors are searched, so a position anywhere inside
// an element's subtree resolves to the innermost model element.
func (s *Store) ModelElements(node *etree.Element) []*model.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	for cur := node; cur != nil; cur = cur.Parent() {
		id, ok := s.ids[cur]
		if !ok {
			continue
		}
		if elems := s.registry[id]; len(elems) > 0 {
			return slices.Clone(elems)
		}
	}
	return nil
}

// ModelElementsAt is ModelElements for a handle.
func (s *Store) ModelElementsAt(id NodeID) []*model.Element {
	node := s.Node(id)
	if node == nil {
		return nil
	}
	return s.ModelElements(node)
}

// Sweep drops the handles and registrations of nodes that are no longer
// part of the document. It returns the number of handles dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for id, node := range s.nodes {
		if attached(s.doc, node) {
			continue
		}
		delete(s.nodes, id)
		delete(s.ids, node)
		delete(s.registry, id)
		dropped++
	}
	return dropped
}

// Len returns the number of live handles.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}

func attached(doc *etree.Document, node *etree.Element) bool {
	for cur := node; cur != nil; cur = cur.Parent() {
		if cur == &doc.Element {
			return true
		}
	}
	return false
}
