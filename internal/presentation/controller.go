package presentation

import (
	"errors"
	"sync"

	"breathe/internal/logging"

	"go.uber.org/zap"
)

// ErrNoHost is returned by Enter when the session surface is not in the tree.
var ErrNoHost = errors.New("session surface not found")

// ExitControlID is the id of the exit button added to the surface in focus mode.
const ExitControlID = "focus-exit"

// Mode is the presentation state.
type Mode int

const (
	Inline Mode = iota
	Focus
)

func (m Mode) String() string {
	if m == Focus {
		return "focus"
	}
	return "inline"
}

type restorePoint struct {
	parent *Node
	next   *Node
}

type inertRestore struct {
	node       *Node
	hadInert   bool
	inertValue string
	hadAria    bool
	ariaValue  string
}

// Controller moves the session surface into and out of focus mode. Entry records
// a restore point that Exit consumes exactly once; Exit undoes every change that
// was made, however far entry got, and is safe to call repeatedly.
type Controller struct {
	tree      *Tree
	surfaceID string
	mainID    string
	onChange  func(Mode)

	mu        sync.Mutex
	mode      Mode
	restore   *restorePoint
	inert     *inertRestore
	exitCtl   *Node
	removeKey func()
}

// NewController manages the node surfaceID, marking mainID inert while focused.
// onChange, if set, is called after every mode change with no locks held.
func NewController(tree *Tree, surfaceID, mainID string, onChange func(Mode)) *Controller {
	return &Controller{tree: tree, surfaceID: surfaceID, mainID: mainID, onChange: onChange}
}

// Mode returns the current state.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Enter switches to focus mode. Without a host surface it returns ErrNoHost and
// the presentation stays inline.
func (c *Controller) Enter() error {
	c.mu.Lock()
	if c.mode == Focus {
		c.mu.Unlock()
		return nil
	}
	root := c.tree.Root
	surface := root.Find(c.surfaceID)
	if surface == nil {
		c.mu.Unlock()
		logging.Get(logging.CategoryPresentation).Warn("focus mode unavailable", zap.String("surface", c.surfaceID))
		return ErrNoHost
	}

	c.mode = Focus
	root.SetClass(ClassRootFocus, true)

	if c.restore == nil && surface.Parent != nil {
		c.restore = &restorePoint{parent: surface.Parent, next: surface.NextSibling()}
	}
	if surface.Parent != root || surface.NextSibling() != nil {
		root.Append(surface)
	}
	surface.SetClass(ClassFocus, true)

	if main := root.Find(c.mainID); main != nil && main != surface && c.inert == nil {
		r := &inertRestore{node: main}
		r.inertValue, r.hadInert = main.Attr(AttrInert)
		r.ariaValue, r.hadAria = main.Attr(AttrAriaHidden)
		c.inert = r
		main.SetAttr(AttrInert, "")
		main.SetAttr(AttrAriaHidden, "true")
	}

	if c.exitCtl == nil {
		ctl := NewNode(ExitControlID)
		ctl.SetAttr("role", "button")
		ctl.SetAttr("label", "Exit focus")
		surface.Append(ctl)
		c.exitCtl = ctl
	}

	if c.removeKey == nil {
		c.removeKey = c.tree.OnKey(func(key string) bool {
			if key != "esc" && key != "escape" {
				return false
			}
			c.Exit()
			return true
		})
	}
	c.mu.Unlock()

	logging.Get(logging.CategoryPresentation).Debug("entered focus mode")
	if c.onChange != nil {
		c.onChange(Focus)
	}
	return nil
}

// Exit restores the inline presentation.
func (c *Controller) Exit() {
	c.mu.Lock()
	changed := c.mode == Focus
	c.mode = Inline

	root := c.tree.Root
	root.SetClass(ClassRootFocus, false)
	if surface := root.Find(c.surfaceID); surface != nil {
		surface.SetClass(ClassFocus, false)
	}

	if c.exitCtl != nil {
		c.exitCtl.Remove()
		c.exitCtl = nil
	}

	if c.removeKey != nil {
		c.removeKey()
		c.removeKey = nil
	}

	if r := c.inert; r != nil {
		if r.hadInert {
			r.node.SetAttr(AttrInert, r.inertValue)
		} else {
			r.node.RemoveAttr(AttrInert)
		}
		if r.hadAria {
			r.node.SetAttr(AttrAriaHidden, r.ariaValue)
		} else {
			r.node.RemoveAttr(AttrAriaHidden)
		}
		c.inert = nil
	}

	if r := c.restore; r != nil {
		if surface := root.Find(c.surfaceID); surface != nil {
			if r.next != nil && r.next.Parent == r.parent {
				r.parent.InsertBefore(surface, r.next)
			} else {
				r.parent.Append(surface)
			}
		}
		c.restore = nil
	}
	c.mu.Unlock()

	if changed {
		logging.Get(logging.CategoryPresentation).Debug("exited focus mode")
		if c.onChange != nil {
			c.onChange(Inline)
		}
	}
}

// Toggle flips between inline and focus.
func (c *Controller) Toggle() error {
	if c.Mode() == Focus {
		c.Exit()
		return nil
	}
	return c.Enter()
}

// HandleKey routes key through the tree's handlers; escape exits focus mode.
func (c *Controller) HandleKey(key string) bool {
	return c.tree.DispatchKey(key)
}

// ExitControl returns the exit button while focused.
func (c *Controller) ExitControl() *Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitCtl
}
