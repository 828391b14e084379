package ui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// PromptMode selects what the prompt's text is used for.
type PromptMode int

const (
	// PromptCommand runs a ":" command.
	PromptCommand PromptMode = iota
	// PromptFilter narrows the dialog list as the user types.
	PromptFilter
)

const historySize = 50

// Prompt is the input bar for commands and filters. Commands are
// completed from a fixed word list and remembered across activations.
type Prompt struct {
	*tview.InputField
	mode     PromptMode
	commands []string
	history  []string
	recall   int

	onSubmit func(mode PromptMode, text string)
	onChange func(mode PromptMode, text string)
	onCancel func()
}

func NewPrompt(theme *Theme) *Prompt {
	p := &Prompt{InputField: tview.NewInputField()}
	p.SetBorder(true)
	p.SetBorderColor(theme.PromptBorderColor)
	p.SetBackgroundColor(theme.BgColor)
	p.SetFieldBackgroundColor(theme.BgColor)
	p.SetFieldTextColor(theme.FgColor)
	p.SetLabelColor(theme.MenuKeyColor)

	p.SetChangedFunc(func(text string) {
		if p.onChange != nil {
			p.onChange(p.mode, text)
		}
	})
	p.SetAutocompleteFunc(p.complete)
	p.SetInputCapture(p.captureHistory)
	p.SetDoneFunc(p.done)
	return p
}

// SetCommands sets the words offered as completions in command mode.
func (p *Prompt) SetCommands(words []string) { p.commands = words }

func (p *Prompt) SetOnSubmit(fn func(mode PromptMode, text string)) { p.onSubmit = fn }

// SetOnChange is called on every edit, e.g. to filter live.
func (p *Prompt) SetOnChange(fn func(mode PromptMode, text string)) { p.onChange = fn }

func (p *Prompt) SetOnCancel(fn func()) { p.onCancel = fn }

// Activate clears the prompt and switches it to mode.
func (p *Prompt) Activate(mode PromptMode) {
	p.mode = mode
	p.recall = len(p.history)
	p.SetText("")
	if mode == PromptFilter {
		p.SetLabel("/")
		p.SetTitle(" Filter ")
		return
	}
	p.SetLabel(":")
	p.SetTitle(" Command ")
}

func (p *Prompt) Mode() PromptMode { return p.mode }

// History returns remembered commands, oldest first.
func (p *Prompt) History() []string {
	return append([]string(nil), p.history...)
}

func (p *Prompt) complete(text string) []string {
	if p.mode != PromptCommand || text == "" || strings.Contains(text, " ") {
		return nil
	}
	var out []string
	for _, w := range p.commands {
		if strings.HasPrefix(w, text) && w != text {
			out = append(out, w)
		}
	}
	return out
}

func (p *Prompt) remember(text string) {
	if n := len(p.history); n > 0 && p.history[n-1] == text {
		return
	}
	p.history = append(p.history, text)
	if len(p.history) > historySize {
		p.history = p.history[len(p.history)-historySize:]
	}
}

// captureHistory walks command history with the up and down keys.
func (p *Prompt) captureHistory(event *tcell.EventKey) *tcell.EventKey {
	if p.mode != PromptCommand {
		return event
	}
	switch event.Key() {
	case tcell.KeyUp:
		if p.recall > 0 {
			p.recall--
			p.SetText(p.history[p.recall])
		}
		return nil
	case tcell.KeyDown:
		if p.recall < len(p.history)-1 {
			p.recall++
			p.SetText(p.history[p.recall])
		} else {
			p.recall = len(p.history)
			p.SetText("")
		}
		return nil
	}
	return event
}

func (p *Prompt) done(key tcell.Key) {
	text := strings.TrimSpace(p.GetText())
	switch key {
	case tcell.KeyEnter:
		if text != "" && p.mode == PromptCommand {
			p.remember(text)
		}
		p.SetText("")
		if p.onSubmit != nil && (text != "" || p.mode == PromptFilter) {
			p.onSubmit(p.mode, text)
		}
	case tcell.KeyEscape:
		p.SetText("")
		if p.onCancel != nil {
			p.onCancel()
		}
	}
}
