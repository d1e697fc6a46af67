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

package supervisor

import (
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"
)

// Autorestart selects when an exited process is started again.
type Autorestart int

const (
	RestartNever Autorestart = iota
	RestartUnexpected
	RestartAlways
)

func (a Autorestart) String() string {
	switch a {
	case RestartNever:
		return "false"
	case RestartUnexpected:
		return "unexpected"
	}
	return "true"
}

const (
	LogfileAuto = "AUTO"
	LogfileNone = "NONE"
)

// ProcessConfig is the declarative definition of one process instance.
// Within a group, Name is unique.
type ProcessConfig struct {
	Name           string
	ProgramName    string
	CommandLine    string
	Command        []string
	Directory      string
	Environment    []string
	Priority       int
	Autostart      bool
	Autorestart    Autorestart
	StartSecs      time.Duration
	StartRetries   int
	ExitCodes      []int
	StopSignal     syscall.Signal
	StopWait       time.Duration
	StdoutLogfile  string
	StderrLogfile  string
	RedirectStderr bool

	sup      *Supervisor
	autoLogs []string
}

func (c *ProcessConfig) autoLog(stream string) (string, error) {
	pattern := fmt.Sprintf("%s-%s---%s-*.log", c.Name, stream, c.sup.name)
	f, e := os.CreateTemp(c.sup.childLogDir, pattern)
	if e != nil {
		return "", e
	}
	f.Close()
	c.autoLogs = append(c.autoLogs, f.Name())
	return f.Name(), nil
}

// CreateAutoChildLogs replaces any AUTO log file settings with freshly
// created files in the supervisor's child log directory.
func (c *ProcessConfig) CreateAutoChildLogs() error {
	var e error
	if c.StdoutLogfile == LogfileAuto {
		if c.StdoutLogfile, e = c.autoLog("stdout"); e != nil {
			c.StdoutLogfile = LogfileAuto
			return e
		}
	}
	if c.StderrLogfile == LogfileAuto && !c.RedirectStderr {
		if c.StderrLogfile, e = c.autoLog("stderr"); e != nil {
			c.StderrLogfile = LogfileAuto
			return e
		}
	}
	return nil
}

// RemoveAutoChildLogs undoes CreateAutoChildLogs.
func (c *ProcessConfig) RemoveAutoChildLogs() {
	for _, name := range c.autoLogs {
		os.Remove(name)
		if c.StdoutLogfile == name {
			c.StdoutLogfile = LogfileAuto
		}
		if c.StderrLogfile == name {
			c.StderrLogfile = LogfileAuto
		}
	}
	c.autoLogs = nil
}

// MakeProcess creates the (stopped) process instance for this config.
func (c *ProcessConfig) MakeProcess(g *ProcessGroup) *Process {
	return &Process{config: c, group: g, state: ProcessStopped}
}

func (c *ProcessConfig) expectedExit(code int) bool {
	for _, x := range c.ExitCodes {
		if x == code {
			return true
		}
	}
	return false
}

// ProcessGroupConfig is the declarative definition of a group: its name,
// its scheduling priority (lower starts first), and its process configs
// in order.
type ProcessGroupConfig struct {
	Name           string
	Priority       int
	ProcessConfigs []*ProcessConfig

	sup    *Supervisor
	setuid bool
}

// AfterSetuid is run once the supervisor has dropped privileges; it
// creates the automatic child log files of every config in the group.
// It only does its work the first time it is called.
func (g *ProcessGroupConfig) AfterSetuid() error {
	if g.setuid {
		return nil
	}
	for _, c := range g.ProcessConfigs {
		if e := c.CreateAutoChildLogs(); e != nil {
			return e
		}
	}
	g.setuid = true
	return nil
}

// MakeGroup creates the live group, with one stopped process per config.
func (g *ProcessGroupConfig) MakeGroup() *ProcessGroup {
	pg := &ProcessGroup{
		Config:    g,
		Processes: make(map[string]*Process),
		sup:       g.sup,
	}
	for _, c := range g.ProcessConfigs {
		pg.Processes[c.Name] = c.MakeProcess(pg)
	}
	return pg
}

// RemoveProcessConfig drops the named config from the group, reporting
// whether it was present.
func (g *ProcessGroupConfig) RemoveProcessConfig(name string) bool {
	for i, c := range g.ProcessConfigs {
		if c.Name == name {
			g.ProcessConfigs = append(g.ProcessConfigs[:i],
				g.ProcessConfigs[i+1:]...)
			return true
		}
	}
	return false
}

// ProcessGroup is a live group.  Config and Processes are guarded by the
// supervisor lock.
type ProcessGroup struct {
	Config    *ProcessGroupConfig
	Processes map[string]*Process

	sup *Supervisor
}

func (g *ProcessGroup) Name() string {
	return g.Config.Name
}

// BeforeRemove is called before the named process leaves the group, so
// that scheduling state derived from it can be dropped.
func (g *ProcessGroup) BeforeRemove(name string) {
	if p := g.Processes[name]; p != nil {
		p.removed = true
		g.sup.logf(LevelDebug, "Removing %s:%s from scheduling", g.Name(), name)
	}
	g.sup.bumpSerial()
}

var signalNames = map[string]syscall.Signal{
	"TERM": syscall.SIGTERM,
	"HUP":  syscall.SIGHUP,
	"INT":  syscall.SIGINT,
	"QUIT": syscall.SIGQUIT,
	"KILL": syscall.SIGKILL,
	"USR1": syscall.SIGUSR1,
	"USR2": syscall.SIGUSR2,
}

func parseSignal(s string) (syscall.Signal, error) {
	s = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "SIG")
	if sig, ok := signalNames[s]; ok {
		return sig, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrBadSignal, s)
}
