// Copyright 2016 The Govisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/views"
)

const fieldWidth = 16

var (
	styleFocus = tcell.StyleDefault.
			Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
	styleIdle = StyleNormal
)

// field is a single line text entry.  Masked fields echo '*'.
type field struct {
	prompt *views.Text
	entry  *views.Text
	value  []rune
	masked bool
}

func newField(prompt string, masked bool) *field {
	f := &field{
		prompt: views.NewText(),
		entry:  views.NewText(),
		value:  make([]rune, 0, 128),
		masked: masked,
	}
	f.prompt.SetText(prompt)
	f.prompt.SetStyle(styleIdle)
	f.entry.SetStyle(styleIdle)
	return f
}

func (f *field) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyCtrlU, tcell.KeyCtrlW:
		f.value = f.value[:0]
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(f.value) > 0 {
			f.value = f.value[:len(f.value)-1]
		}
	case tcell.KeyRune:
		if len(f.value) < 256 {
			f.value = append(f.value, ev.Rune())
		}
	default:
		return false
	}
	return true
}

// render shows the tail of the value, padded to the field width.
func (f *field) render(active bool) {
	shown := make([]rune, 0, fieldWidth+1)
	for _, r := range f.value {
		if f.masked {
			r = '*'
		}
		shown = append(shown, r)
	}
	if active {
		shown = append(shown, '_')
		f.entry.SetStyle(styleFocus)
	} else {
		f.entry.SetStyle(styleIdle)
	}
	if len(shown) > fieldWidth {
		shown = shown[len(shown)-fieldWidth:]
		shown[0] = '<'
	}
	for len(shown) < fieldWidth {
		shown = append(shown, ' ')
	}
	f.entry.SetText(string(shown))
}

// AuthPanel collects credentials when the server answers 401.
type AuthPanel struct {
	user   *field
	pass   *field
	active int

	Panel
}

func NewAuthPanel(app *App, server string) *AuthPanel {
	a := &AuthPanel{
		user: newField("Username: ", false),
		pass: newField("Password: ", true),
	}
	a.Panel.Init(app)

	left := views.NewBoxLayout(views.Vertical)
	right := views.NewBoxLayout(views.Vertical)
	outer := views.NewBoxLayout(views.Horizontal)
	for _, l := range []*views.BoxLayout{left, right, outer} {
		l.SetStyle(styleIdle)
	}

	left.AddWidget(views.NewSpacer(), 1.0)
	right.AddWidget(views.NewSpacer(), 1.0)
	for _, f := range []*field{a.user, a.pass} {
		left.AddWidget(f.prompt, 0.0)
		right.AddWidget(f.entry, 0.0)
	}
	left.AddWidget(views.NewSpacer(), 1.0)
	right.AddWidget(views.NewSpacer(), 1.0)

	outer.AddWidget(views.NewSpacer(), 1.0)
	outer.AddWidget(left, 0.0)
	outer.AddWidget(right, 0.0)
	outer.AddWidget(views.NewSpacer(), 1.0)

	a.SetTitle(server)
	a.SetStatus("Authentication Required")
	a.SetKeys([]string{"[ESC] Quit", "[TAB] Next", "[ENTER] Login"})
	a.SetContent(outer)

	return a
}

func (a *AuthPanel) ResetFields() {
	a.active = 0
	a.user.value = a.user.value[:0]
	a.pass.value = a.pass.value[:0]
}

func (a *AuthPanel) Draw() {
	a.update()
	a.Panel.Draw()
}

func (a *AuthPanel) HandleEvent(ev tcell.Event) bool {
	ek, ok := ev.(*tcell.EventKey)
	if !ok {
		return a.Panel.HandleEvent(ev)
	}
	switch ek.Key() {
	case tcell.KeyEsc:
		a.App().Quit()
	case tcell.KeyTab, tcell.KeyEnter:
		if a.active == 1 {
			a.App().SetUserPassword(string(a.user.value),
				string(a.pass.value))
			a.App().ShowMain()
		} else {
			a.active = 1
		}
	case tcell.KeyBacktab:
		a.active = 0
	default:
		if a.active == 1 {
			return a.pass.handleKey(ek)
		}
		return a.user.handleKey(ek)
	}
	return true
}

// update must be called with AppLock held.
func (a *AuthPanel) update() {
	a.SetError()
	a.user.render(a.active == 0)
	a.pass.render(a.active == 1)
}
