// Copyright 2015 The Govisor Authors
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

var helpText = []string{
	"Keys (not every key works on every screen)",
	"",
	"  <ESC>          : back to the process list",
	"  <CTRL-C>       : quit",
	"  <CTRL-L>       : redraw the screen",
	"  <H>, <F1>      : show this help",
	"  <UP>, <DOWN>   : select a process",
	"  <I>, <ENTER>   : details for the selected process and its group",
	"  <L>            : follow the supervisor log",
	"  <X>            : remove the selected process (must be stopped)",
	"",
	"Groups and programs are added with the govisor command:",
	"",
	"  govisor addgroup <group> [priority]",
	"  govisor add [<group>:]<program> key=value ...",
	"  govisor remove <group>:<process>",
	"",
	"This program is distributed under the Apache 2.0 License",
	"Copyright 2015 The Govisor Authors",
}

type HelpPanel struct {
	text *views.TextArea

	Panel
}

func (h *HelpPanel) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEsc:
			h.App().ShowMain()
			return true
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'Q', 'q':
				h.App().ShowMain()
				return true
			}
		}
	}
	return h.Panel.HandleEvent(ev)
}

func NewHelpPanel(app *App) *HelpPanel {
	h := &HelpPanel{}
	h.Panel.Init(app)

	h.text = views.NewTextArea()
	h.text.SetLines(helpText)
	h.text.EnableCursor(false)
	h.text.SetStyle(StyleNormal)

	h.SetTitle("Help")
	h.SetKeys([]string{"[ESC] Main"})
	h.SetContent(h.text)

	return h
}
