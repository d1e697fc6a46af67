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
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/views"

	"github.com/govisor/loader/govisor/util"
	"github.com/govisor/loader/rest"
)

// InfoPanel describes one process together with the group it belongs to.
type InfoPanel struct {
	text  *views.TextArea
	info  *rest.ProcessInfo
	group string
	name  string

	Panel
}

func NewInfoPanel(app *App) *InfoPanel {
	i := &InfoPanel{}
	i.Panel.Init(app)

	i.text = views.NewTextArea()
	i.text.EnableCursor(false)
	i.text.SetStyle(StyleNormal)
	i.SetContent(i.text)

	return i
}

func (i *InfoPanel) Draw() {
	i.update()
	i.Panel.Draw()
}

func (i *InfoPanel) HandleEvent(ev tcell.Event) bool {
	info := i.info
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEsc:
			i.App().ShowMain()
			return true
		case tcell.KeyF1:
			i.App().ShowHelp()
			return true
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'Q', 'q':
				i.App().ShowMain()
				return true
			case 'H', 'h':
				i.App().ShowHelp()
				return true
			case 'L', 'l':
				i.App().ShowLog()
				return true
			case 'X', 'x':
				if info != nil && util.Removable(info) {
					i.App().RemoveProcess(info)
					i.App().ShowMain()
					return true
				}
			}
		}
	}
	return i.Panel.HandleEvent(ev)
}

func (i *InfoPanel) SetName(group, name string) {
	i.group = group
	i.name = name
	i.info = nil
}

// update must be called with AppLock held.
func (i *InfoPanel) update() {
	i.SetTitle("Details for " + i.group + ":" + i.name)
	words := []string{"[ESC] Main", "[H] Help", "[L] Log"}

	p, e := i.App().GetItem(i.group, i.name)
	i.info = p
	if p == nil {
		i.SetFailure("process", e)
		i.text.SetLines(nil)
		i.SetKeys(words)
		return
	}

	i.SetStatus(util.Status(p))
	switch {
	case util.Failed(p):
		i.SetError()
	case util.Running(p):
		i.SetGood()
	default:
		i.SetWarn()
	}

	lines := []string{
		fmt.Sprintf("%13s %s", "Process:", p.Name),
		fmt.Sprintf("%13s %s", "Group:", p.Group),
		fmt.Sprintf("%13s %s", "State:", p.State),
		fmt.Sprintf("%13s %s", "Pid:", pid(p)),
		fmt.Sprintf("%13s %s", "Description:", p.Description),
	}
	if g := i.App().GetGroup(p.Group); g != nil {
		lines = append(lines, "",
			fmt.Sprintf("%13s %d", "Priority:", g.Priority))
		l := fmt.Sprintf("%13s", "Members:")
		for _, m := range g.Processes {
			l += " " + m.Name
		}
		lines = append(lines, l)
	}
	i.text.SetLines(lines)

	if util.Removable(p) {
		words = append(words, "[X] Remove")
	}
	i.SetKeys(words)
}
