package ui

import "github.com/rivo/tview"

// MenuHint describes a keyboard shortcut for display in the menu bar.
type MenuHint struct {
	Key         string
	Description string
	Numeric     bool // 0-9 shortcuts, drawn in their own color
}

// Component is a page of the TUI.
type Component interface {
	tview.Primitive
	// Name is the page's breadcrumb.
	Name() string
	// Hints lists the page's own shortcuts.
	Hints() []MenuHint
	// FocusTarget is the widget that takes focus when the page shows.
	FocusTarget() tview.Primitive
}
