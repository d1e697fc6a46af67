// Copyright 2024 The Govisor Authors
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

var (
	StyleNormal = tcell.StyleDefault.
			Foreground(tcell.ColorSilver).
			Background(tcell.ColorBlack)
	StyleGood = tcell.StyleDefault.
			Foreground(tcell.ColorGreen).
			Background(tcell.ColorBlack)
	StyleWarn = tcell.StyleDefault.
			Foreground(tcell.ColorYellow).
			Background(tcell.ColorBlack)
	StyleError = tcell.StyleDefault.
			Foreground(tcell.ColorMaroon).
			Background(tcell.ColorBlack)
)

// processStyle picks the line color for a process.
func processStyle(p *rest.ProcessInfo) tcell.Style {
	switch {
	case util.Failed(p):
		return StyleError
	case util.Running(p):
		return StyleGood
	case p.State == "EXITED":
		return StyleWarn
	}
	return StyleNormal
}

// MainPanel lists every process of every group known to the server.
// The selected process can be inspected or, once stopped, removed.
type MainPanel struct {
	content  *views.CellView
	selected *rest.ProcessInfo
	nfailed  int
	nrunning int
	nstopped int
	width    int
	height   int
	curx     int
	cury     int
	notice   string
	lines    []string
	styles   []tcell.Style
	items    []*rest.ProcessInfo

	Panel
}

// mainModel provides the model for a CellArea.
type mainModel struct {
	m *MainPanel
}

func NewMainPanel(app *App, server string) *MainPanel {
	m := &MainPanel{}

	m.Panel.Init(app)
	m.content = views.NewCellView()
	m.SetContent(m.content)

	m.content.SetModel(&mainModel{m})
	m.content.SetStyle(StyleNormal)

	m.SetTitle(server)
	m.SetKeys([]string{"[Q] Quit"})

	return m
}

func (m *MainPanel) Draw() {
	m.update()
	m.Panel.Draw()
}

func (m *MainPanel) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEsc:
			m.unselect()
			return true
		case tcell.KeyF1:
			m.App().ShowHelp()
			return true
		case tcell.KeyEnter:
			if m.selected != nil {
				m.App().ShowInfo(m.selected.Group, m.selected.Name)
				return true
			}
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'Q', 'q':
				m.App().Quit()
				return true
			case 'H', 'h':
				m.App().ShowHelp()
				return true
			case 'I', 'i':
				if m.selected != nil {
					m.App().ShowInfo(m.selected.Group, m.selected.Name)
					return true
				}
			case 'L', 'l':
				m.App().ShowLog()
				return true
			case 'X', 'x':
				if m.selected != nil && util.Removable(m.selected) {
					m.App().RemoveProcess(m.selected)
					return true
				}
			}
		}
	}
	return m.Panel.HandleEvent(ev)
}

// Model items
func (model *mainModel) GetCell(x, y int) (rune, tcell.Style, []rune, int) {
	m := model.m

	if y < 0 || y >= len(m.lines) {
		return 0, StyleNormal, nil, 1
	}

	ch := ' '
	if x >= 0 && x < len(m.lines[y]) {
		ch = rune(m.lines[y][x])
	}
	style := m.styles[y]
	if m.items[y] == m.selected {
		style = style.Reverse(true)
	}
	return ch, style, nil, 1
}

func (model *mainModel) GetBounds() (int, int) {
	// This assumes that all content is displayable runes of width 1.
	return model.m.width, len(model.m.lines)
}

func (model *mainModel) GetCursor() (int, int, bool, bool) {
	m := model.m
	return m.curx, m.cury, true, false
}

func (model *mainModel) MoveCursor(offx, offy int) {
	m := model.m
	m.curx += offx
	m.cury += offy
	m.updateCursor(true)
}

func (model *mainModel) SetCursor(x, y int) {
	m := model.m
	m.curx = x
	m.cury = y
	m.updateCursor(true)
}

func (m *MainPanel) unselect() {
	m.notice = ""
	m.cury = 0
	m.curx = 0
	m.updateCursor(false)
}

func (m *MainPanel) updateCursor(selected bool) {
	m.curx = clamp(m.curx, m.width-1)
	m.cury = clamp(m.cury, m.height-1)
	if selected && m.height > 0 {
		if m.selected == nil {
			m.curx = 0
			m.cury = 0
		}
		m.selected = m.items[m.cury]
	} else {
		m.selected = nil
	}
}

func clamp(v, hi int) int {
	if v > hi {
		v = hi
	}
	if v < 0 {
		v = 0
	}
	return v
}

// update is called to update content, e.g. in response to Draw() or
// as part of another update.  It is called with the AppLock held.
func (m *MainPanel) update() {

	items, err := m.App().GetItems()
	m.items = items

	// preserve selected item
	if sel := m.selected; sel != nil {
		m.selected = nil
		for y, item := range m.items {
			if item.Group == sel.Group && item.Name == sel.Name {
				m.selected = item
				m.cury = y
			}
		}
	}
	if err != nil {
		if e, ok := err.(*rest.Error); ok && e.Status == 401 {
			m.App().ShowAuth()
			return
		}
		m.SetFailure("processes", err)
		m.lines = nil
		m.styles = nil
		m.items = nil
		m.selected = nil
		m.width = 0
		m.height = 0
		return
	}

	lines := make([]string, 0, len(items))
	styles := make([]tcell.Style, 0, len(items))

	m.nfailed = 0
	m.nstopped = 0
	m.nrunning = 0
	m.width = 0
	m.height = 0

	for _, info := range items {
		line := fmt.Sprintf("%-30s %-10s %7s   %s",
			util.FullName(info), util.Status(info), pid(info),
			info.Description)

		if len(line) > m.width {
			m.width = len(line)
		}
		m.height++

		switch {
		case util.Failed(info):
			m.nfailed++
		case util.Running(info):
			m.nrunning++
		default:
			m.nstopped++
		}
		lines = append(lines, line)
		styles = append(styles, processStyle(info))
	}

	m.lines = lines
	m.styles = styles

	if n := m.App().TakeNotice(); n != "" {
		m.notice = n
	}
	if m.notice != "" {
		m.SetStatus(m.notice)
	} else {
		m.SetStatus(fmt.Sprintf(
			"%6d Processes %6d Failed %6d Running %6d Stopped",
			len(items), m.nfailed, m.nrunning, m.nstopped))
	}
	m.SetHealth(m.nfailed, m.nstopped, m.nrunning)

	words := []string{"[Q] Quit", "[H] Help", "[L] Log"}
	if item := m.selected; item != nil {
		words = append(words, "[I] Info")
		if util.Removable(item) {
			words = append(words, "[X] Remove")
		}
	}
	m.SetKeys(words)
}

func pid(p *rest.ProcessInfo) string {
	if p.Pid == 0 {
		return "-"
	}
	return fmt.Sprint(p.Pid)
}
