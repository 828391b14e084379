package ui

import (
	"slices"

	"github.com/rivo/tview"
)

// Pages keeps a navigation stack over tview.Pages; only the top page is
// visible.
type Pages struct {
	*tview.Pages
	stack    []string
	onChange func(stack []string)
}

func NewPages() *Pages {
	return &Pages{Pages: tview.NewPages()}
}

// SetOnChange registers fn to be called with a copy of the stack after
// every change.
func (p *Pages) SetOnChange(fn func(stack []string)) {
	p.onChange = fn
}

// show swaps the visible page from the current top to the new one and
// stores the new stack.
func (p *Pages) show(stack []string) {
	if top := p.Current(); top != "" {
		p.HidePage(top)
	}
	p.stack = stack
	if top := p.Current(); top != "" {
		p.ShowPage(top)
		p.SendToFront(top)
	}
	if p.onChange != nil {
		p.onChange(p.Stack())
	}
}

// Push shows name on top of the current page.
func (p *Pages) Push(name string) {
	p.show(append(slices.Clone(p.stack), name))
}

// Pop removes the top page and returns its name, or "" on an empty stack.
func (p *Pages) Pop() string {
	top := p.Current()
	if top == "" {
		return ""
	}
	p.show(slices.Clone(p.stack[:len(p.stack)-1]))
	return top
}

// Reset makes name the only page on the stack.
func (p *Pages) Reset(name string) {
	for _, n := range p.stack {
		p.HidePage(n)
	}
	p.stack = nil
	p.show([]string{name})
}

// Current is the top page, or "".
func (p *Pages) Current() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

// Contains reports whether name is anywhere on the stack.
func (p *Pages) Contains(name string) bool {
	return slices.Contains(p.stack, name)
}

func (p *Pages) Stack() []string { return slices.Clone(p.stack) }

func (p *Pages) Depth() int { return len(p.stack) }
