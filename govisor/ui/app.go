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
	"errors"
	"log"
	"time"

	"golang.org/x/net/context"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/views"

	"github.com/govisor/loader/govisor/util"
	"github.com/govisor/loader/rest"
)

type App struct {
	app       *views.Application
	view      views.View
	panel     views.Widget
	info      *InfoPanel
	help      *HelpPanel
	log       *LogPanel
	main      *MainPanel
	auth      *AuthPanel
	client    *rest.Client
	logger    *log.Logger
	err       error
	notice    string
	items     []*rest.ProcessInfo
	groups    map[string]*rest.GroupInfo
	logInfo   *rest.LogInfo
	logErr    error
	logCancel context.CancelFunc

	views.WidgetWatchers
}

func (a *App) show(w views.Widget) {
	if w != a.panel {
		a.panel.SetView(nil)
		a.panel = w
	}
	a.panel.SetView(a.view)
	a.panel.Resize()
	a.app.Refresh()
}

func (a *App) ShowHelp() {
	a.show(a.help)
}

func (a *App) ShowInfo(group, name string) {
	a.info.SetName(group, name)
	a.show(a.info)
}

func (a *App) ShowLog() {
	if a.logCancel != nil {
		a.logCancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	a.logInfo = nil
	a.logErr = nil
	a.logCancel = cancel
	go a.refreshLog(ctx)

	a.show(a.log)
}

func (a *App) ShowMain() {
	a.show(a.main)
}

func (a *App) ShowAuth() {
	a.auth.ResetFields()
	a.show(a.auth)
}

func (a *App) SetUserPassword(user, pass string) {
	a.client.SetAuth(user, pass)
	a.err = nil
}

// RemoveProcess asks the server to drop a stopped process.  The outcome
// is reported on the main panel.
func (a *App) RemoveProcess(p *rest.ProcessInfo) {
	name := util.FullName(p)
	go func() {
		e := a.client.RemoveProcessFromGroup(p.Group, p.Name)
		a.app.PostFunc(func() {
			if e != nil {
				a.Logf("Remove %s failed: %v", name, e)
				a.notice = "Cannot remove " + name + ": " + e.Error()
			} else {
				a.notice = "Removed " + name
			}
			a.app.Update()
		})
	}()
}

// TakeNotice returns the last action outcome, once.
func (a *App) TakeNotice() string {
	n := a.notice
	a.notice = ""
	return n
}

func (a *App) Quit() {
	/* This just posts the quit event. */
	a.app.Quit()
}

func (a *App) SetLogger(logger *log.Logger) {
	a.logger = logger
	if logger != nil {
		logger.Printf("Start logger")
	}
}

func (a *App) Logf(fmt string, v ...interface{}) {
	if a.logger != nil {
		a.logger.Printf(fmt, v...)
	}
}

func (a *App) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		// Intercept a few control keys up front, for global handling.
		case tcell.KeyCtrlC:
			a.Quit()
			return true
		case tcell.KeyCtrlL:
			a.app.Refresh()
			return true
		}
	}

	if a.panel != nil {
		return a.panel.HandleEvent(ev)
	}
	return false
}

func (a *App) Draw() {
	if a.panel != nil {
		a.panel.Draw()
	}
}

func (a *App) Resize() {
	if a.panel != nil {
		a.panel.Resize()
	}
}

func (a *App) SetView(view views.View) {
	a.view = view
	if a.panel != nil {
		a.panel.SetView(view)
	}
}

func (a *App) Size() (int, int) {
	if a.panel != nil {
		return a.panel.Size()
	}
	return 0, 0
}

func (a *App) GetClient() *rest.Client {
	return a.client
}

func (a *App) GetAppName() string {
	return "Govisor v1.2"
}

func NewApp(client *rest.Client, url string) *App {

	app := &App{}
	app.app = &views.Application{}
	app.client = client
	app.groups = make(map[string]*rest.GroupInfo)
	app.info = NewInfoPanel(app)
	app.help = NewHelpPanel(app)
	app.log = NewLogPanel(app)
	app.main = NewMainPanel(app, url)
	app.auth = NewAuthPanel(app, url)
	app.panel = app.main

	go app.refresh()
	return app
}

// refresh keeps the app items current

func (a *App) getItems(names []string) ([]*rest.ProcessInfo, map[string]*rest.GroupInfo, error) {
	items := []*rest.ProcessInfo{}
	groups := make(map[string]*rest.GroupInfo, len(names))
	for _, n := range names {
		info, e := a.client.GroupInfo(n)
		if e != nil {
			// The group may have gone since the names were read.
			continue
		}
		groups[n] = info
		for i := range info.Processes {
			items = append(items, &info.Processes[i])
		}
	}
	util.SortProcesses(items)
	return items, groups, nil
}

func (a *App) refresh() {
	etag := ""
	for {
		ctx, cancel := context.WithTimeout(context.Background(),
			time.Hour)
		names, netag, e := a.client.WatchGroups(ctx, etag)
		cancel()

		var items []*rest.ProcessInfo
		var groups map[string]*rest.GroupInfo
		if e == nil {
			items, groups, e = a.getItems(names)
		}
		a.app.PostFunc(func() {
			if e == nil {
				a.items = items
				a.groups = groups
			}
			a.err = e
			a.app.Update()
		})
		if e != nil {
			etag = ""
			time.Sleep(2 * time.Second)
		} else {
			etag = netag
		}
	}
}

func (a *App) refreshLog(ctx context.Context) {
	info, e := a.client.GetLog()

	for ctx.Err() == nil {
		li, le := info, e
		a.app.PostFunc(func() {
			a.logInfo = li
			a.logErr = le
			a.app.Update()
		})
		if e != nil {
			time.Sleep(2 * time.Second)
			info, e = a.client.GetLog()
			continue
		}
		info, e = a.client.WatchLog(ctx, info)
	}
}

func (a *App) GetItems() ([]*rest.ProcessInfo, error) {
	return a.items, a.err
}

func (a *App) GetItem(group, name string) (*rest.ProcessInfo, error) {
	if a.err != nil {
		return nil, a.err
	}
	for _, i := range a.items {
		if i.Group == group && i.Name == name {
			return i, nil
		}
	}
	return nil, errors.New("Process not found")
}

func (a *App) GetGroup(name string) *rest.GroupInfo {
	return a.groups[name]
}

func (a *App) GetLog() (*rest.LogInfo, error) {
	return a.logInfo, a.logErr
}

func (a *App) Run() {
	a.Logf("Starting up user interface")
	a.app.SetRootWidget(a)
	a.ShowMain()
	go func() {
		// Give us periodic updates
		for {
			a.app.Update()
			time.Sleep(time.Second)
		}
	}()
	a.Logf("Starting app loop")
	if e := a.app.Run(); e != nil {
		a.Logf("App loop failed: %v", e)
	}
}
