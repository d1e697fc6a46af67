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

package supervisor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/zclconf/go-cty/cty"
)

type testLog struct {
	t *testing.T
}

func (tl *testLog) Write(p []byte) (n int, err error) {
	tl.t.Log(strings.Trim(string(p), "\n"))
	return len(p), nil
}

// shouldWrap asserts that an error matches a sentinel with errors.Is.
func shouldWrap(actual interface{}, expected ...interface{}) string {
	e, _ := actual.(error)
	target, _ := expected[0].(error)
	if errors.Is(e, target) {
		return ""
	}
	return fmt.Sprintf("Expected %v to wrap %v", actual, expected[0])
}

func WithSupervisor(t *testing.T, name string, fn func(s *Supervisor)) func() {
	return func() {
		s := New(name,
			WithLogWriter(&testLog{t: t}),
			WithLogLevel(LevelDebug),
			WithChildLogDir(t.TempDir()),
			WithTick(5*time.Millisecond))
		So(s, ShouldNotBeNil)
		Reset(func() {
			s.Shutdown()
		})
		fn(s)
	}
}

// addProgram registers a program the same way the loader does, without
// any of its checks.
func addProgram(s *Supervisor, group string, opts map[string]string) *ProcessGroup {
	s.Lock()
	defer s.Unlock()
	g := s.Group(group)
	if g == nil {
		cfg := s.NewGroupConfig(group, 999)
		s.AddGroupConfig(cfg)
		g = cfg.MakeGroup()
		s.RegisterGroup(g)
	}
	configs, e := s.ProcessesFromSection(section("program:"+group, opts), group)
	So(e, ShouldBeNil)
	for _, c := range configs {
		So(c.CreateAutoChildLogs(), ShouldBeNil)
		g.Config.ProcessConfigs = append(g.Config.ProcessConfigs, c)
		g.Processes[c.Name] = c.MakeProcess(g)
	}
	return g
}

func waitState(s *Supervisor, p *Process, want ProcessState) bool {
	for i := 0; i < 400; i++ {
		s.Lock()
		st := p.State()
		s.Unlock()
		if st == want {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestRegistry(t *testing.T) {
	Convey("Given a supervisor", t, WithSupervisor(t, "Registry", func(s *Supervisor) {
		So(s.State(), ShouldEqual, StateRunning)
		serial := s.Serial()

		s.Lock()
		cfg := s.NewGroupConfig("web", 10)
		s.AddGroupConfig(cfg)
		So(cfg.AfterSetuid(), ShouldBeNil)
		g := cfg.MakeGroup()
		s.RegisterGroup(g)
		s.Unlock()

		So(s.Serial(), ShouldNotEqual, serial)
		s.Lock()
		So(s.Group("web"), ShouldEqual, g)
		So(s.GroupConfig("web"), ShouldEqual, cfg)
		So(s.GroupNames(), ShouldResemble, []string{"web"})
		So(len(s.GroupConfigs()), ShouldEqual, 1)
		So(s.Group("nosuch"), ShouldBeNil)
		s.Unlock()

		Convey("Serial watchers wake on change", func() {
			old := s.Serial()
			go func() {
				time.Sleep(10 * time.Millisecond)
				s.Lock()
				s.Changed()
				s.Unlock()
			}()
			So(s.WatchSerial(old, time.Second), ShouldNotEqual, old)
		})

		Convey("Log messages reach the ring", func() {
			s.Log(LevelWarn, "something odd")
			recs, _ := s.ReadLog(0)
			So(len(recs), ShouldBeGreaterThan, 0)
			So(recs[len(recs)-1].Text, ShouldEqual, "WARN something odd")
		})
	}))
}

func TestProcessLifecycle(t *testing.T) {
	Convey("Given a monitoring supervisor", t, WithSupervisor(t, "Lifecycle", func(s *Supervisor) {
		s.StartMonitoring()

		Convey("An autostart process runs and is stopped by shutdown", func() {
			g := addProgram(s, "sleeper", map[string]string{
				"command":   "/bin/sleep 30",
				"startsecs": "0",
			})
			s.Lock()
			p := g.Processes["sleeper"]
			s.Unlock()
			So(waitState(s, p, ProcessRunning), ShouldBeTrue)
			s.Lock()
			So(p.Pid(), ShouldNotEqual, 0)
			So(p.Description(), ShouldStartWith, "pid ")
			s.Unlock()

			s.Shutdown()
			s.Lock()
			So(p.State(), ShouldEqual, ProcessStopped)
			So(p.Pid(), ShouldEqual, 0)
			s.Unlock()
			So(s.State(), ShouldEqual, StateShutdown)
		})

		Convey("A process that is not autostarted stays stopped", func() {
			g := addProgram(s, "idle", map[string]string{
				"command":   "/bin/sleep 30",
				"autostart": "false",
			})
			time.Sleep(30 * time.Millisecond)
			s.Lock()
			p := g.Processes["idle"]
			So(p.State(), ShouldEqual, ProcessStopped)
			So(p.Pid(), ShouldEqual, 0)
			So(p.Description(), ShouldEqual, "Not started")
			s.Unlock()
		})

		Convey("Nothing starts while monitoring is stopped", func() {
			s.StopMonitoring()
			g := addProgram(s, "idle", map[string]string{
				"command":   "/bin/sleep 10",
				"startsecs": "0",
			})
			s.Lock()
			p := g.Processes["idle"]
			s.Unlock()
			time.Sleep(50 * time.Millisecond)
			s.Lock()
			So(p.State(), ShouldEqual, ProcessStopped)
			So(p.Pid(), ShouldEqual, 0)
			s.Unlock()

			s.StartMonitoring()
			So(waitState(s, p, ProcessRunning), ShouldBeTrue)
		})

		Convey("A process that exits too quickly backs off", func() {
			g := addProgram(s, "flap", map[string]string{
				"command":      "/bin/false",
				"startsecs":    "5",
				"startretries": "100",
			})
			s.Lock()
			p := g.Processes["flap"]
			s.Unlock()
			So(waitState(s, p, ProcessBackoff), ShouldBeTrue)
			s.Lock()
			So(p.State().Stopped(), ShouldBeFalse)
			s.Unlock()
		})

		Convey("A process that cannot start ends up FATAL", func() {
			g := addProgram(s, "broken", map[string]string{
				"command":      "/nonexistent/binary",
				"startretries": "0",
			})
			s.Lock()
			p := g.Processes["broken"]
			s.Unlock()
			So(waitState(s, p, ProcessFatal), ShouldBeTrue)
			s.Lock()
			So(p.State().Stopped(), ShouldBeTrue)
			s.Unlock()
		})

		Convey("Output goes to the automatic log file", func() {
			g := addProgram(s, "echo", map[string]string{
				"command":     "/bin/echo hello",
				"startsecs":   "0",
				"autorestart": "false",
			})
			s.Lock()
			p := g.Processes["echo"]
			name := p.Config().StdoutLogfile
			s.Unlock()
			So(name, ShouldNotEqual, LogfileAuto)
			So(waitState(s, p, ProcessExited), ShouldBeTrue)
			b, e := os.ReadFile(name)
			So(e, ShouldBeNil)
			So(string(b), ShouldEqual, "hello\n")
		})
	}))
}

func TestProcessStates(t *testing.T) {
	Convey("Only settled states count as stopped", t, func() {
		for _, st := range []ProcessState{ProcessStopped, ProcessExited,
			ProcessFatal, ProcessUnknown} {
			So(st.Stopped(), ShouldBeTrue)
		}
		for _, st := range []ProcessState{ProcessStarting, ProcessRunning,
			ProcessBackoff, ProcessStopping} {
			So(st.Stopped(), ShouldBeFalse)
		}
		So(ProcessBackoff.String(), ShouldEqual, "BACKOFF")
		So(ProcessUnknown.String(), ShouldEqual, "UNKNOWN")
	})
}

func TestLoadConfig(t *testing.T) {
	Convey("Given an HCL configuration file", t, func() {
		path := filepath.Join(t.TempDir(), "govisord.hcl")
		text := `
childlogdir = "/tmp"

group "web" {
  priority = 10
}

program "worker" {
  group        = "web"
  command      = "/bin/sleep 10"
  numprocs     = 2
  process_name = "%(program_name)s_%(process_num)d"
  autostart    = false
}

program "solo" {
  command = "/bin/true"
}
`
		So(os.WriteFile(path, []byte(text), 0644), ShouldBeNil)
		cfg, e := LoadConfig(path)
		So(e, ShouldBeNil)
		So(cfg.ChildLogDir, ShouldEqual, "/tmp")
		So(len(cfg.Groups), ShouldEqual, 1)
		So(cfg.Groups[0].Name, ShouldEqual, "web")
		So(cfg.Groups[0].Priority, ShouldEqual, 10)
		So(len(cfg.Programs), ShouldEqual, 2)

		w := cfg.Programs[0]
		So(w.Name, ShouldEqual, "worker")
		So(w.Group, ShouldEqual, "web")
		So(w.OptionNames(), ShouldResemble,
			[]string{"autostart", "command", "numprocs", "process_name"})
		So(w.Options["numprocs"].Equals(cty.NumberIntVal(2)).True(), ShouldBeTrue)
		So(cfg.Programs[1].Group, ShouldEqual, "solo")

		Convey("Unknown top level settings are rejected", func() {
			So(os.WriteFile(path, []byte("bogus = 1\n"), 0644), ShouldBeNil)
			_, e := LoadConfig(path)
			So(e, ShouldNotBeNil)
		})
	})
}
