package presentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// page builds body > [header, main > [intro, session, footer-note], footer].
func page() (*Tree, map[string]*Node) {
	t := NewTree("body")
	nodes := map[string]*Node{}
	for _, id := range []string{"header", "main", "intro", "session", "note", "footer"} {
		nodes[id] = NewNode(id)
	}
	t.Root.Append(nodes["header"])
	t.Root.Append(nodes["main"])
	t.Root.Append(nodes["footer"])
	nodes["main"].Append(nodes["intro"])
	nodes["main"].Append(nodes["session"])
	nodes["main"].Append(nodes["note"])
	return t, nodes
}

func ids(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestController_EnterMovesSurfaceAndMarksInert(t *testing.T) {
	tree, n := page()
	var modes []Mode
	c := NewController(tree, "session", "main", func(m Mode) { modes = append(modes, m) })

	require.NoError(t, c.Enter())
	assert.Equal(t, Focus, c.Mode())
	assert.Equal(t, []string{"header", "main", "footer", "session"}, ids(tree.Root.Children))
	assert.True(t, n["session"].HasClass(ClassFocus))
	assert.True(t, tree.Root.HasClass(ClassRootFocus))

	assert.False(t, n["intro"].Interactive())
	assert.True(t, n["session"].Interactive())
	v, ok := n["main"].Attr(AttrAriaHidden)
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	require.NotNil(t, c.ExitControl())
	assert.Same(t, n["session"], c.ExitControl().Parent)
	assert.Equal(t, 1, tree.Handlers())
	assert.Equal(t, []Mode{Focus}, modes)

	require.NoError(t, c.Enter(), "entering twice is a no-op")
	assert.Equal(t, []Mode{Focus}, modes)
}

func TestController_ExitRestoresExactly(t *testing.T) {
	tree, n := page()
	n["main"].SetAttr(AttrAriaHidden, "false")
	c := NewController(tree, "session", "main", nil)

	require.NoError(t, c.Enter())
	c.Exit()

	assert.Equal(t, Inline, c.Mode())
	assert.Equal(t, []string{"header", "main", "footer"}, ids(tree.Root.Children))
	assert.Equal(t, []string{"intro", "session", "note"}, ids(n["main"].Children))
	assert.Empty(t, n["session"].Children)
	assert.False(t, n["session"].HasClass(ClassFocus))
	assert.False(t, tree.Root.HasClass(ClassRootFocus))
	assert.True(t, n["intro"].Interactive())

	_, inert := n["main"].Attr(AttrInert)
	assert.False(t, inert)
	v, _ := n["main"].Attr(AttrAriaHidden)
	assert.Equal(t, "false", v, "prior aria-hidden value is put back")
	assert.Zero(t, tree.Handlers())
	assert.Nil(t, c.ExitControl())
}

func TestController_KeepsPreexistingInert(t *testing.T) {
	tree, n := page()
	n["main"].SetAttr(AttrInert, "")
	c := NewController(tree, "session", "main", nil)

	require.NoError(t, c.Enter())
	c.Exit()
	_, inert := n["main"].Attr(AttrInert)
	assert.True(t, inert)
	_, aria := n["main"].Attr(AttrAriaHidden)
	assert.False(t, aria)
}

func TestController_ExitIsIdempotent(t *testing.T) {
	tree, _ := page()
	calls := 0
	c := NewController(tree, "session", "main", func(Mode) { calls++ })

	c.Exit()
	assert.Zero(t, calls)

	require.NoError(t, c.Enter())
	c.Exit()
	c.Exit()
	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{"header", "main", "footer"}, ids(tree.Root.Children))
}

func TestController_EscapeExits(t *testing.T) {
	tree, n := page()
	c := NewController(tree, "session", "main", nil)
	require.NoError(t, c.Enter())

	assert.False(t, c.HandleKey("q"))
	assert.True(t, c.HandleKey("esc"))
	assert.Equal(t, Inline, c.Mode())
	assert.Same(t, n["main"], n["session"].Parent)
	assert.False(t, c.HandleKey("esc"), "handler is removed on exit")
}

func TestController_NoHost(t *testing.T) {
	tree := NewTree("body")
	tree.Root.Append(NewNode("main"))
	c := NewController(tree, "session", "main", nil)

	assert.ErrorIs(t, c.Enter(), ErrNoHost)
	assert.Equal(t, Inline, c.Mode())
	_, inert := tree.Root.Find("main").Attr(AttrInert)
	assert.False(t, inert)
	c.Exit()
}

func TestController_RestoreWhenSiblingMoved(t *testing.T) {
	tree, n := page()
	c := NewController(tree, "session", "main", nil)
	require.NoError(t, c.Enter())

	// the recorded next sibling left the original parent while focused
	tree.Root.Append(n["note"])
	c.Exit()
	assert.Equal(t, []string{"intro", "session"}, ids(n["main"].Children))
}

func TestController_Toggle(t *testing.T) {
	tree, _ := page()
	c := NewController(tree, "session", "main", nil)
	require.NoError(t, c.Toggle())
	assert.Equal(t, Focus, c.Mode())
	require.NoError(t, c.Toggle())
	assert.Equal(t, Inline, c.Mode())
	assert.Equal(t, "inline", c.Mode().String())
}

func TestNode_InsertBeforeAndRemove(t *testing.T) {
	root := NewNode("root")
	a, b, c := NewNode("a"), NewNode("b"), NewNode("c")
	root.Append(a)
	root.Append(c)
	root.InsertBefore(b, c)
	assert.Equal(t, []string{"a", "b", "c"}, ids(root.Children))
	assert.Same(t, c, b.NextSibling())
	assert.Nil(t, c.NextSibling())

	root.InsertBefore(a, nil)
	assert.Equal(t, []string{"b", "c", "a"}, ids(root.Children))

	b.Remove()
	assert.Nil(t, b.Parent)
	assert.Equal(t, []string{"c", "a"}, ids(root.Children))
	assert.Nil(t, root.Find("b"))
	b.Remove()

	a.SetClass("x", true)
	a.SetClass("a", true)
	assert.Equal(t, []string{"a", "x"}, a.Classes())
}

func TestTree_DispatchNewestFirst(t *testing.T) {
	tree := NewTree("root")
	var order []string
	tree.OnKey(func(string) bool { order = append(order, "first"); return false })
	remove := tree.OnKey(func(string) bool { order = append(order, "second"); return true })

	assert.True(t, tree.DispatchKey("x"))
	assert.Equal(t, []string{"second"}, order)

	remove()
	assert.False(t, tree.DispatchKey("x"))
	assert.Equal(t, []string{"second", "first"}, order)
}
