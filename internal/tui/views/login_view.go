package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/soc/internal/qr"
	"github.com/matheus3301/soc/internal/tui/ui"
	"github.com/rivo/tview"
)

// LoginView asks for the session's username and password. Next to the
// form it shows a QR code of the web client's messages page.
type LoginView struct {
	*tview.Flex
	theme    *ui.Theme
	form     *tview.Form
	message  *tview.TextView
	web      *tview.TextView
	busy     bool
	onSubmit func(username, password string)
}

// NewLoginView creates the login page. webURL may be empty.
func NewLoginView(theme *ui.Theme, webURL string) *LoginView {
	form := tview.NewForm().
		AddInputField("Username", "", 32, nil, nil).
		AddPasswordField("Password", "", 32, '*', nil)
	form.SetBorder(true)
	form.SetBorderColor(theme.BorderColor)
	form.SetBackgroundColor(theme.BgColor)
	form.SetFieldBackgroundColor(theme.BgColor)
	form.SetFieldTextColor(theme.FgColor)
	form.SetLabelColor(theme.MenuKeyColor)
	form.SetButtonBackgroundColor(theme.BorderColor)
	form.SetTitle(" Login Required ")
	form.SetTitleColor(theme.TitleColor)

	message := tview.NewTextView().SetDynamicColors(true)
	message.SetBackgroundColor(theme.BgColor)
	message.SetTextColor(theme.FgColor)

	web := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	web.SetBackgroundColor(theme.BgColor)
	web.SetTextColor(theme.FgColor)

	left := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(form, 9, 0, true).
		AddItem(message, 0, 1, false)

	lv := &LoginView{
		Flex: tview.NewFlex().
			AddItem(left, 0, 1, true).
			AddItem(web, 0, 1, false),
		theme:   theme,
		form:    form,
		message: message,
		web:     web,
	}
	form.AddButton("Login", lv.submit)
	lv.renderWebLink(webURL)
	return lv
}

// Name implements Component.
func (lv *LoginView) Name() string { return "Login" }

// FocusTarget implements Component.
func (lv *LoginView) FocusTarget() tview.Primitive { return lv.form }

// Hints implements Component.
func (lv *LoginView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Enter", Description: "Login"},
		{Key: "Ctrl-C", Description: "Quit"},
	}
}

// SetOnSubmit sets the callback for the Login button.
func (lv *LoginView) SetOnSubmit(fn func(username, password string)) { lv.onSubmit = fn }

func (lv *LoginView) submit() {
	if lv.busy || lv.onSubmit == nil {
		return
	}
	username := strings.TrimSpace(lv.field("Username"))
	password := lv.field("Password")
	if username == "" || password == "" {
		lv.ShowError("Username and password are required.")
		return
	}
	lv.busy = true
	lv.ShowMessage("Logging in...")
	lv.onSubmit(username, password)
}

func (lv *LoginView) field(label string) string {
	if in, ok := lv.form.GetFormItemByLabel(label).(*tview.InputField); ok {
		return in.GetText()
	}
	return ""
}

// Done ends a login attempt. A failed one keeps the username and clears
// the password.
func (lv *LoginView) Done(err error, text string) {
	lv.busy = false
	if err == nil {
		lv.Reset()
		return
	}
	if in, ok := lv.form.GetFormItemByLabel("Password").(*tview.InputField); ok {
		in.SetText("")
	}
	lv.ShowError(text)
}

// Reset empties the form.
func (lv *LoginView) Reset() {
	for _, label := range []string{"Username", "Password"} {
		if in, ok := lv.form.GetFormItemByLabel(label).(*tview.InputField); ok {
			in.SetText("")
		}
	}
	lv.message.Clear()
}

// ShowMessage displays a status line under the form.
func (lv *LoginView) ShowMessage(msg string) {
	lv.message.Clear()
	_, _ = fmt.Fprintf(lv.message, " %s", tview.Escape(msg))
}

// ShowError displays an error under the form.
func (lv *LoginView) ShowError(msg string) {
	lv.message.Clear()
	_, _ = fmt.Fprintf(lv.message, " [%s]%s[-]", ui.ColorTag(lv.theme.FlashErrColor), tview.Escape(msg))
}

func (lv *LoginView) renderWebLink(url string) {
	lv.web.Clear()
	if url == "" {
		return
	}
	code, err := qr.Render(url, "")
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(lv.web, "\nAlso on the web:\n[::u]%s[-:-:-]\n\n%s", tview.Escape(url), code)
}
