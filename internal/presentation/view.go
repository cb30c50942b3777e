// Package presentation manages where the session surface lives in the view tree
// and the distraction-free focus mode.
package presentation

import (
	"sort"
	"sync"
)

// Node is an element of the retained view tree the UI renders from.
type Node struct {
	ID       string
	Parent   *Node
	Children []*Node
	Attrs    map[string]string
	classes  map[string]struct{}
}

// NewNode returns a detached node.
func NewNode(id string) *Node {
	return &Node{ID: id, Attrs: map[string]string{}}
}

// Append moves child to the end of n's children.
func (n *Node) Append(child *Node) {
	child.Remove()
	child.Parent = n
	n.Children = append(n.Children, child)
}

// InsertBefore moves child in front of ref. A ref that is not a child of n appends.
func (n *Node) InsertBefore(child, ref *Node) {
	if ref == nil || ref.Parent != n || ref == child {
		n.Append(child)
		return
	}
	child.Remove()
	i := ref.index()
	n.Children = append(n.Children, nil)
	copy(n.Children[i+1:], n.Children[i:])
	n.Children[i] = child
	child.Parent = n
}

// Remove detaches n from its parent.
func (n *Node) Remove() {
	p := n.Parent
	if p == nil {
		return
	}
	if i := n.index(); i >= 0 {
		p.Children = append(p.Children[:i], p.Children[i+1:]...)
	}
	n.Parent = nil
}

func (n *Node) index() int {
	if n.Parent == nil {
		return -1
	}
	for i, c := range n.Parent.Children {
		if c == n {
			return i
		}
	}
	return -1
}

// NextSibling returns the node after n under the same parent.
func (n *Node) NextSibling() *Node {
	i := n.index()
	if i < 0 || i+1 >= len(n.Parent.Children) {
		return nil
	}
	return n.Parent.Children[i+1]
}

// Find returns the first node with id in n's subtree, n included.
func (n *Node) Find(id string) *Node {
	if n.ID == id {
		return n
	}
	for _, c := range n.Children {
		if f := c.Find(id); f != nil {
			return f
		}
	}
	return nil
}

// Attr returns an attribute and whether it is set.
func (n *Node) Attr(name string) (string, bool) {
	v, ok := n.Attrs[name]
	return v, ok
}

func (n *Node) SetAttr(name, value string) {
	if n.Attrs == nil {
		n.Attrs = map[string]string{}
	}
	n.Attrs[name] = value
}

func (n *Node) RemoveAttr(name string) {
	delete(n.Attrs, name)
}

func (n *Node) HasClass(c string) bool {
	_, ok := n.classes[c]
	return ok
}

// SetClass adds or removes a class.
func (n *Node) SetClass(c string, on bool) {
	if !on {
		delete(n.classes, c)
		return
	}
	if n.classes == nil {
		n.classes = map[string]struct{}{}
	}
	n.classes[c] = struct{}{}
}

// Classes returns the node's classes sorted.
func (n *Node) Classes() []string {
	out := make([]string, 0, len(n.classes))
	for c := range n.classes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Interactive reports whether neither n nor an ancestor is inert.
func (n *Node) Interactive() bool {
	for p := n; p != nil; p = p.Parent {
		if _, inert := p.Attrs[AttrInert]; inert {
			return false
		}
	}
	return true
}

// Attributes the controller manages.
const (
	AttrInert      = "inert"
	AttrAriaHidden = "aria-hidden"
	ClassFocus     = "is-focus"
	ClassRootFocus = "focus-screen"
)

// KeyHandler handles a key and reports whether it consumed it.
type KeyHandler func(key string) bool

// Tree is a view tree with capture-phase key handlers.
type Tree struct {
	Root *Node

	mu       sync.Mutex
	handlers map[int]KeyHandler
	order    []int
	next     int
}

// NewTree returns a tree rooted at a node with id root.
func NewTree(root string) *Tree {
	return &Tree{Root: NewNode(root), handlers: map[int]KeyHandler{}}
}

// OnKey registers fn ahead of the UI's own bindings and returns a func removing it.
func (t *Tree) OnKey(fn KeyHandler) (remove func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.next
	t.next++
	t.handlers[id] = fn
	t.order = append(t.order, id)
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.handlers, id)
		for i, o := range t.order {
			if o == id {
				t.order = append(t.order[:i], t.order[i+1:]...)
				break
			}
		}
	}
}

// DispatchKey offers key to the registered handlers, newest first.
func (t *Tree) DispatchKey(key string) bool {
	t.mu.Lock()
	fns := make([]KeyHandler, 0, len(t.order))
	for i := len(t.order) - 1; i >= 0; i-- {
		fns = append(fns, t.handlers[t.order[i]])
	}
	t.mu.Unlock()
	for _, fn := range fns {
		if fn(key) {
			return true
		}
	}
	return false
}

// Handlers is the number of registered key handlers.
func (t *Tree) Handlers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handlers)
}
