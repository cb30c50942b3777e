package ui

import "breathe/internal/presentation"

// Ids of the page sections. The model renders the page by walking the tree, so
// focus mode is whatever the presentation controller made of it.
const (
	RootID    = "app"
	HeaderID  = "header"
	MainID    = "main"
	IntroID   = "intro"
	SurfaceID = "session"
	NoteID    = "note"
	FooterID  = "footer"
)

// NewPage builds the page: header, main (intro, session surface, note), footer.
func NewPage() *presentation.Tree {
	t := presentation.NewTree(RootID)
	main := presentation.NewNode(MainID)
	main.Append(presentation.NewNode(IntroID))
	main.Append(presentation.NewNode(SurfaceID))
	main.Append(presentation.NewNode(NoteID))

	t.Root.Append(presentation.NewNode(HeaderID))
	t.Root.Append(main)
	t.Root.Append(presentation.NewNode(FooterID))
	return t
}
