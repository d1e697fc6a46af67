// Copyright 2026 The Govisor Authors
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

package loader

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/zclconf/go-cty/cty"

	"github.com/govisor/loader/supervisor"
)

type testLog struct {
	t *testing.T
}

func (tl *testLog) Write(p []byte) (n int, err error) {
	tl.t.Log(strings.Trim(string(p), "\n"))
	return len(p), nil
}

func WithNamespace(t *testing.T, opts []Option, fn func(s *supervisor.Supervisor, n *Namespace)) func() {
	return func() {
		s := supervisor.New("loader-test",
			supervisor.WithLogWriter(&testLog{t: t}),
			supervisor.WithLogLevel(supervisor.LevelDebug),
			supervisor.WithChildLogDir(t.TempDir()),
			supervisor.WithTick(5*time.Millisecond))
		Reset(func() {
			s.Shutdown()
		})
		n := NewNamespace(s, opts...)
		So(n, ShouldNotBeNil)
		fn(s, n)
	}
}

// counts returns the number of configs and live processes in a group.
func counts(s *supervisor.Supervisor, group string) (int, int) {
	s.Lock()
	defer s.Unlock()
	g := s.Group(group)
	if g == nil {
		return -1, -1
	}
	return len(g.Config.ProcessConfigs), len(g.Processes)
}

// waitProcess polls until the named process reaches state.
func waitProcess(n *Namespace, group, name string, state supervisor.ProcessState) bool {
	for i := 0; i < 400; i++ {
		if info, e := n.GroupInfo(group); e == nil {
			for _, p := range info.Processes {
				if p.Name == name && p.State == state {
					return true
				}
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func processConfig(s *supervisor.Supervisor, group, name string) *supervisor.ProcessConfig {
	s.Lock()
	defer s.Unlock()
	if g := s.Group(group); g != nil {
		if p := g.Processes[name]; p != nil {
			return p.Config()
		}
	}
	return nil
}

func TestGroupOperations(t *testing.T) {
	Convey("Given a namespace", t, WithNamespace(t, nil, func(s *supervisor.Supervisor, n *Namespace) {

		Convey("ensureGroup is idempotent", func() {
			s.Lock()
			g1, e1 := n.ensureGroup("web", DefaultPriority)
			g2, e2 := n.ensureGroup("web", DefaultPriority)
			nconf := len(s.GroupConfigs())
			s.Unlock()
			So(e1, ShouldBeNil)
			So(e2, ShouldBeNil)
			So(g1, ShouldNotBeNil)
			So(g2, ShouldEqual, g1)
			So(nconf, ShouldEqual, 1)
			So(g1.Config.Priority, ShouldEqual, 999)
		})

		Convey("AddGroup twice fails with AlreadyAdded", func() {
			So(n.AddGroup("web", 10), ShouldBeNil)
			e := n.AddGroup("web", 10)
			So(errors.Is(e, ErrAlreadyAdded), ShouldBeTrue)
			So(AsFault(e).Code, ShouldEqual, FaultAlreadyAdded)

			ok, e := n.HasGroup("web")
			So(e, ShouldBeNil)
			So(ok, ShouldBeTrue)
			names, e := n.GroupNames()
			So(e, ShouldBeNil)
			So(names, ShouldResemble, []string{"web"})

			info, e := n.GroupInfo("web")
			So(e, ShouldBeNil)
			So(info.Priority, ShouldEqual, 10)
			So(info.Processes, ShouldBeEmpty)
		})

		Convey("AddGroup reuses a declarative only config", func() {
			s.Lock()
			cfg := s.NewGroupConfig("decl", 5)
			s.AddGroupConfig(cfg)
			s.Unlock()

			So(n.AddGroup("decl", 1), ShouldBeNil)
			s.Lock()
			So(len(s.GroupConfigs()), ShouldEqual, 1)
			So(s.Group("decl").Config, ShouldEqual, cfg)
			s.Unlock()
		})

		Convey("Empty group names are refused", func() {
			So(errors.Is(n.AddGroup("", 1), ErrBadName), ShouldBeTrue)
		})

		Convey("Unknown groups are bad names", func() {
			ok, e := n.HasGroup("nosuch")
			So(e, ShouldBeNil)
			So(ok, ShouldBeFalse)
			_, e = n.GroupInfo("nosuch")
			So(errors.Is(e, ErrBadName), ShouldBeTrue)
			ok, e = n.HasProcessInGroup("nosuch", "x")
			So(e, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})
	}))
}

func TestCounterInjection(t *testing.T) {
	Convey("Given a counter naming namespace", t, WithNamespace(t, nil, func(s *supervisor.Supervisor, n *Namespace) {
		So(n.Naming(), ShouldEqual, CounterNaming)

		Convey("A program without a group gets its own", func() {
			So(n.AddProgram("x", ProgramOptions{"command": "/bin/true"}), ShouldBeNil)
			ok, _ := n.HasGroup("x")
			So(ok, ShouldBeTrue)
			ok, _ = n.HasProcessInGroup("x", "x_1")
			So(ok, ShouldBeTrue)
		})

		Convey("A program is injected into a new named group", func() {
			ok, _ := n.HasGroup("web")
			So(ok, ShouldBeFalse)
			e := n.AddProgramToGroup("web", "worker", ProgramOptions{"command": "run.sh"})
			So(e, ShouldBeNil)
			ok, _ = n.HasGroup("web")
			So(ok, ShouldBeTrue)
			ok, _ = n.HasProcessInGroup("web", "worker_1")
			So(ok, ShouldBeTrue)
			So(n.InstanceCount("worker"), ShouldEqual, 1)

			Convey("Each injection gets the next ordinal", func() {
				e := n.AddProgramToGroup("web", "worker", ProgramOptions{"command": "run.sh"})
				So(e, ShouldBeNil)
				ok, _ := n.HasProcessInGroup("web", "worker_2")
				So(ok, ShouldBeTrue)
				So(n.InstanceCount("worker"), ShouldEqual, 2)
				cfgs, procs := counts(s, "web")
				So(cfgs, ShouldEqual, 2)
				So(procs, ShouldEqual, 2)
			})

			Convey("Removing an older instance first blocks the next ordinal", func() {
				So(n.AddProgramToGroup("web", "worker", ProgramOptions{"command": "run.sh"}), ShouldBeNil)
				So(n.RemoveProcessFromGroup("web", "worker_1"), ShouldBeNil)
				So(n.InstanceCount("worker"), ShouldEqual, 1)

				e := n.AddProgramToGroup("web", "worker", ProgramOptions{"command": "run.sh"})
				So(errors.Is(e, ErrBadName), ShouldBeTrue)
				So(AsFault(e).Detail, ShouldEqual, "worker_2")
				cfgs, procs := counts(s, "web")
				So(cfgs, ShouldEqual, 1)
				So(procs, ShouldEqual, 1)

				So(n.RemoveProcessFromGroup("web", "worker_2"), ShouldBeNil)
				So(n.AddProgramToGroup("web", "worker", ProgramOptions{"command": "run.sh"}), ShouldBeNil)
				ok, _ := n.HasProcessInGroup("web", "worker_1")
				So(ok, ShouldBeTrue)
			})

			Convey("Removal gives the count back", func() {
				So(n.RemoveProcessFromGroup("web", "worker_1"), ShouldBeNil)
				So(n.InstanceCount("worker"), ShouldEqual, 0)
				So(n.AddProgramToGroup("web", "worker", ProgramOptions{"command": "run.sh"}), ShouldBeNil)
				ok, _ := n.HasProcessInGroup("web", "worker_1")
				So(ok, ShouldBeTrue)
			})

			Convey("ResetCounter starts the ordinals over", func() {
				n.ResetCounter()
				So(n.InstanceCount("worker"), ShouldEqual, 0)
				e := n.AddProgramToGroup("web", "worker", ProgramOptions{"command": "run.sh"})
				So(errors.Is(e, ErrBadName), ShouldBeTrue)
				cfgs, procs := counts(s, "web")
				So(cfgs, ShouldEqual, 1)
				So(procs, ShouldEqual, 1)
				So(n.InstanceCount("worker"), ShouldEqual, 0)
			})
		})

		Convey("The process number token is replaced in every value", func() {
			opts := ProgramOptions{
				"command":      "/bin/echo worker-%(process_num)02d",
				"directory":    "/tmp/%(process_num)02d",
				"process_name": "ignored",
			}
			So(n.AddProgramToGroup("g", "w", opts), ShouldBeNil)
			c := processConfig(s, "g", "w_1")
			So(c, ShouldNotBeNil)
			So(c.Command, ShouldResemble, []string{"/bin/echo", "worker-1"})
			So(c.Directory, ShouldEqual, "/tmp/1")
			So(opts["command"], ShouldEqual, "/bin/echo worker-%(process_num)02d")
			So(opts["process_name"], ShouldEqual, "ignored")
		})

		Convey("Invalid options change nothing", func() {
			e := n.AddProgramToGroup("web", "worker", ProgramOptions{"command": []string{"x"}})
			So(errors.Is(e, ErrInvalidParameters), ShouldBeTrue)
			e = n.AddProgramToGroup("web", "worker", ProgramOptions{"bogus": "x", "command": "x"})
			So(errors.Is(e, ErrInvalidParameters), ShouldBeTrue)
			e = n.AddProgramToGroup("web", "worker", ProgramOptions{})
			So(errors.Is(e, ErrInvalidParameters), ShouldBeTrue)
			e = n.AddProgram("", ProgramOptions{"command": "x"})
			So(errors.Is(e, ErrInvalidParameters), ShouldBeTrue)

			ok, _ := n.HasGroup("web")
			So(ok, ShouldBeFalse)
			So(n.InstanceCount("worker"), ShouldEqual, 0)
		})

		Convey("Injected processes are described by GroupInfo", func() {
			So(n.AddProgramToGroup("g", "b", ProgramOptions{"command": "/bin/true"}), ShouldBeNil)
			So(n.AddProgramToGroup("g", "a", ProgramOptions{"command": "/bin/true"}), ShouldBeNil)
			info, e := n.GroupInfo("g")
			So(e, ShouldBeNil)
			So(info.Name, ShouldEqual, "g")
			So(info.Priority, ShouldEqual, DefaultPriority)
			So(len(info.Processes), ShouldEqual, 2)
			So(info.Processes[0].Name, ShouldEqual, "a_1")
			So(info.Processes[1].Name, ShouldEqual, "b_1")
			So(info.Processes[0].State, ShouldEqual, supervisor.ProcessStopped)
			So(info.Processes[0].Pid, ShouldEqual, 0)
		})
	}))
}

func TestFanoutInjection(t *testing.T) {
	opts := []Option{WithNaming(FanoutNaming)}
	Convey("Given a fanout naming namespace", t, WithNamespace(t, opts, func(s *supervisor.Supervisor, n *Namespace) {
		fan := ProgramOptions{
			"command":      "/bin/true",
			"numprocs":     2,
			"process_name": "%(program_name)s_%(process_num)d",
		}

		Convey("numprocs fans out the instances", func() {
			So(n.AddProgramToGroup("g", "p", fan), ShouldBeNil)
			for _, name := range []string{"p_0", "p_1"} {
				ok, _ := n.HasProcessInGroup("g", name)
				So(ok, ShouldBeTrue)
			}
			So(n.InstanceCount("p"), ShouldEqual, 0)

			Convey("Injecting again collides and changes nothing", func() {
				e := n.AddProgramToGroup("g", "p", fan)
				So(errors.Is(e, ErrBadName), ShouldBeTrue)
				So(AsFault(e).Detail, ShouldEqual, "p_0")
				cfgs, procs := counts(s, "g")
				So(cfgs, ShouldEqual, 2)
				So(procs, ShouldEqual, 2)
			})

			Convey("A partial collision changes nothing either", func() {
				e := n.AddProgramToGroup("g", "p", ProgramOptions{
					"command":        "/bin/true",
					"numprocs":       2,
					"numprocs_start": 1,
					"process_name":   "%(program_name)s_%(process_num)d",
				})
				So(errors.Is(e, ErrBadName), ShouldBeTrue)
				cfgs, procs := counts(s, "g")
				So(cfgs, ShouldEqual, 2)
				So(procs, ShouldEqual, 2)
			})
		})

		Convey("A single instance takes the program name", func() {
			So(n.AddProgram("solo", ProgramOptions{"command": "/bin/true"}), ShouldBeNil)
			ok, _ := n.HasProcessInGroup("solo", "solo")
			So(ok, ShouldBeTrue)
			e := n.AddProgram("solo", ProgramOptions{"command": "/bin/true"})
			So(errors.Is(e, ErrBadName), ShouldBeTrue)
		})

		Convey("numprocs without a process number is invalid", func() {
			e := n.AddProgram("p", ProgramOptions{"command": "/bin/true", "numprocs": 3})
			So(errors.Is(e, ErrInvalidParameters), ShouldBeTrue)
			ok, _ := n.HasGroup("p")
			So(ok, ShouldBeFalse)
		})

		Convey("Names in a declarative only config are taken", func() {
			s.Lock()
			cfg := s.NewGroupConfig("decl", 5)
			s.AddGroupConfig(cfg)
			sec, _ := BuildSection("program:a", ProgramOptions{"command": "/bin/true"})
			pcs, e := s.ProcessesFromSection(sec, "decl")
			So(e, ShouldBeNil)
			cfg.ProcessConfigs = append(cfg.ProcessConfigs, pcs...)
			s.Unlock()

			e = n.AddProgramToGroup("decl", "a", ProgramOptions{"command": "/bin/true"})
			So(errors.Is(e, ErrBadName), ShouldBeTrue)
			ok, _ := n.HasGroup("decl")
			So(ok, ShouldBeFalse)
		})
	}))
}

func TestInjectionRollback(t *testing.T) {
	Convey("Given a supervisor whose child log directory is missing", t, func() {
		s := supervisor.New("loader-test",
			supervisor.WithLogWriter(&testLog{t: t}),
			supervisor.WithChildLogDir(filepath.Join(t.TempDir(), "missing")))
		Reset(func() {
			s.Shutdown()
		})
		n := NewNamespace(s)

		Convey("A failed injection leaves no group behind", func() {
			e := n.AddProgramToGroup("web", "worker", ProgramOptions{"command": "/bin/true"})
			So(errors.Is(e, ErrInvalidParameters), ShouldBeTrue)
			ok, _ := n.HasGroup("web")
			So(ok, ShouldBeFalse)
			names, _ := n.GroupNames()
			So(names, ShouldBeEmpty)
			So(n.InstanceCount("worker"), ShouldEqual, 0)
			s.Lock()
			So(s.GroupConfig("web"), ShouldBeNil)
			s.Unlock()
		})

		Convey("An existing group is left as it was", func() {
			So(n.AddGroup("web", 5), ShouldBeNil)
			e := n.AddProgramToGroup("web", "worker", ProgramOptions{"command": "/bin/true"})
			So(errors.Is(e, ErrInvalidParameters), ShouldBeTrue)
			cfgs, procs := counts(s, "web")
			So(cfgs, ShouldEqual, 0)
			So(procs, ShouldEqual, 0)
			So(n.InstanceCount("worker"), ShouldEqual, 0)
		})

		Convey("Explicit log files need no directory", func() {
			out := filepath.Join(t.TempDir(), "worker.log")
			So(n.AddProgramToGroup("web", "worker", ProgramOptions{
				"command":         "/bin/true",
				"stdout_logfile":  out,
				"redirect_stderr": true,
			}), ShouldBeNil)
			cfgs, procs := counts(s, "web")
			So(cfgs, ShouldEqual, 1)
			So(procs, ShouldEqual, 1)
		})
	})
}

func TestRemoveProcess(t *testing.T) {
	Convey("Given a group with stopped processes", t, WithNamespace(t, nil, func(s *supervisor.Supervisor, n *Namespace) {
		So(n.AddProgramToGroup("g", "a", ProgramOptions{"command": "/bin/true"}), ShouldBeNil)
		So(n.AddProgramToGroup("g", "a", ProgramOptions{"command": "/bin/true"}), ShouldBeNil)

		Convey("A stopped process leaves both the configs and the map", func() {
			So(n.RemoveProcessFromGroup("g", "a_2"), ShouldBeNil)
			s.Lock()
			g := s.Group("g")
			So(g.Processes["a_2"], ShouldBeNil)
			for _, c := range g.Config.ProcessConfigs {
				So(c.Name, ShouldNotEqual, "a_2")
			}
			So(len(g.Processes), ShouldEqual, 1)
			So(len(g.Config.ProcessConfigs), ShouldEqual, 1)
			s.Unlock()
			ok, _ := n.HasProcessInGroup("g", "a_2")
			So(ok, ShouldBeFalse)
			So(n.InstanceCount("a"), ShouldEqual, 1)
		})

		Convey("Unknown names are bad names", func() {
			e := n.RemoveProcessFromGroup("nosuch", "a_1")
			So(errors.Is(e, ErrBadName), ShouldBeTrue)
			e = n.RemoveProcessFromGroup("g", "nosuch")
			So(errors.Is(e, ErrBadName), ShouldBeTrue)
			So(AsFault(e).Detail, ShouldEqual, "process: g:nosuch")
		})
	}))

	Convey("Given a running process", t, WithNamespace(t, nil, func(s *supervisor.Supervisor, n *Namespace) {
		So(n.AddProgramToGroup("g", "sleeper", ProgramOptions{
			"command":   "/bin/sleep 30",
			"startsecs": 0,
		}), ShouldBeNil)
		s.StartMonitoring()

		running := false
		for i := 0; i < 400 && !running; i++ {
			info, e := n.GroupInfo("g")
			So(e, ShouldBeNil)
			running = info.Processes[0].Pid != 0
			time.Sleep(5 * time.Millisecond)
		}
		So(running, ShouldBeTrue)

		Convey("Removal fails and changes nothing", func() {
			e := n.RemoveProcessFromGroup("g", "sleeper_1")
			So(errors.Is(e, ErrStillRunning), ShouldBeTrue)
			So(AsFault(e).Code, ShouldEqual, FaultStillRunning)
			cfgs, procs := counts(s, "g")
			So(cfgs, ShouldEqual, 1)
			So(procs, ShouldEqual, 1)
			So(n.InstanceCount("sleeper"), ShouldEqual, 1)
		})
	}))

	Convey("Given a monitoring supervisor", t, WithNamespace(t, nil, func(s *supervisor.Supervisor, n *Namespace) {
		s.StartMonitoring()

		Convey("An exited process can be removed", func() {
			So(n.AddProgramToGroup("g", "once", ProgramOptions{
				"command":     "/bin/true",
				"startsecs":   0,
				"autorestart": false,
			}), ShouldBeNil)
			So(waitProcess(n, "g", "once_1", supervisor.ProcessExited), ShouldBeTrue)
			So(n.RemoveProcessFromGroup("g", "once_1"), ShouldBeNil)
			cfgs, procs := counts(s, "g")
			So(cfgs, ShouldEqual, 0)
			So(procs, ShouldEqual, 0)
			So(n.InstanceCount("once"), ShouldEqual, 0)
		})

		Convey("A fatal process can be removed", func() {
			So(n.AddProgramToGroup("g", "broken", ProgramOptions{
				"command":      "/nonexistent/binary",
				"startretries": 0,
			}), ShouldBeNil)
			So(waitProcess(n, "g", "broken_1", supervisor.ProcessFatal), ShouldBeTrue)
			So(n.RemoveProcessFromGroup("g", "broken_1"), ShouldBeNil)
			cfgs, procs := counts(s, "g")
			So(cfgs, ShouldEqual, 0)
			So(procs, ShouldEqual, 0)
		})

		Convey("A process waiting to be retried is still running", func() {
			So(n.AddProgramToGroup("g", "flap", ProgramOptions{
				"command":      "/bin/false",
				"startsecs":    5,
				"startretries": 100,
			}), ShouldBeNil)
			So(waitProcess(n, "g", "flap_1", supervisor.ProcessBackoff), ShouldBeTrue)
			e := n.RemoveProcessFromGroup("g", "flap_1")
			So(errors.Is(e, ErrStillRunning), ShouldBeTrue)
			cfgs, procs := counts(s, "g")
			So(cfgs, ShouldEqual, 1)
			So(procs, ShouldEqual, 1)
			So(n.InstanceCount("flap"), ShouldEqual, 1)
		})
	}))
}

func TestAccessGate(t *testing.T) {
	opts := []Option{WithWhitelist(MethodGetAPIVersion)}
	Convey("Given a namespace restricted to getAPIVersion", t, WithNamespace(t, opts, func(s *supervisor.Supervisor, n *Namespace) {
		e := n.AddGroup("x", 1)
		So(errors.Is(e, ErrNotWhitelisted), ShouldBeTrue)
		So(AsFault(e).Code, ShouldEqual, FaultNotWhitelisted)
		So(n.LastMethod(), ShouldEqual, "addGroup")

		v, e := n.APIVersion()
		So(e, ShouldBeNil)
		So(v, ShouldEqual, "1.0")
		So(n.LastMethod(), ShouldEqual, "getAPIVersion")

		_, e = n.GroupNames()
		So(errors.Is(e, ErrNotWhitelisted), ShouldBeTrue)
		ok, _ := n.HasGroup("x")
		So(ok, ShouldBeFalse)
	}))

	opts = []Option{WithWhitelist(MethodAddProgram, MethodHasGroup)}
	Convey("Implicit group creation is not gated", t, WithNamespace(t, opts, func(s *supervisor.Supervisor, n *Namespace) {
		So(n.AddProgram("p", ProgramOptions{"command": "/bin/true"}), ShouldBeNil)
		ok, e := n.HasGroup("p")
		So(e, ShouldBeNil)
		So(ok, ShouldBeTrue)
	}))

	Convey("Given a supervisor that has shut down", t, WithNamespace(t, nil, func(s *supervisor.Supervisor, n *Namespace) {
		s.Shutdown()
		_, e := n.APIVersion()
		So(errors.Is(e, ErrShutdown), ShouldBeTrue)
		So(AsFault(e).Code, ShouldEqual, FaultShutdownState)
		So(errors.Is(n.AddGroup("x", 1), ErrShutdown), ShouldBeTrue)
		So(errors.Is(n.AddProgram("x", ProgramOptions{"command": "x"}), ErrShutdown), ShouldBeTrue)
		So(errors.Is(n.RemoveProcessFromGroup("x", "x"), ErrShutdown), ShouldBeTrue)
		So(errors.Is(n.Log("x", "info"), ErrShutdown), ShouldBeTrue)
		So(n.LastMethod(), ShouldEqual, "log")
	}))
}

func TestLogMethod(t *testing.T) {
	Convey("Given a namespace", t, WithNamespace(t, nil, func(s *supervisor.Supervisor, n *Namespace) {
		Convey("Messages are logged at the given level", func() {
			So(n.Log("hello from a client", "warn"), ShouldBeNil)
			So(n.Log("numeric level", "20"), ShouldBeNil)
			recs, id, e := n.ReadLog(0)
			So(e, ShouldBeNil)
			So(id, ShouldBeGreaterThan, 0)
			found := 0
			for _, r := range recs {
				if strings.Contains(r.Text, "hello from a client") {
					So(r.Text, ShouldContainSubstring, "WARN")
					found++
				}
				if strings.Contains(r.Text, "numeric level") {
					So(r.Text, ShouldContainSubstring, "INFO")
					found++
				}
			}
			So(found, ShouldEqual, 2)
		})
		Convey("Unknown levels are invalid parameters", func() {
			e := n.Log("x", "loud")
			So(errors.Is(e, ErrInvalidParameters), ShouldBeTrue)
		})
	}))
}

type recordingMetrics struct {
	sync.Mutex
	calls     map[Method]int
	faults    map[string]int
	groups    int
	processes int
}

func (m *recordingMetrics) Call(method Method, _ time.Duration, err error) {
	m.Lock()
	defer m.Unlock()
	m.calls[method]++
	if err != nil {
		m.faults[AsFault(err).Kind()]++
	}
}

func (m *recordingMetrics) Topology(groups, processes int) {
	m.Lock()
	defer m.Unlock()
	m.groups = groups
	m.processes = processes
}

func TestMetrics(t *testing.T) {
	rm := &recordingMetrics{calls: map[Method]int{}, faults: map[string]int{}}
	opts := []Option{WithMetrics(rm)}
	Convey("Calls and topology are reported", t, WithNamespace(t, opts, func(s *supervisor.Supervisor, n *Namespace) {
		So(n.AddGroup("a", 1), ShouldBeNil)
		So(n.AddGroup("a", 1), ShouldNotBeNil)
		So(n.AddProgramToGroup("a", "p", ProgramOptions{"command": "/bin/true"}), ShouldBeNil)
		So(n.AddProgram("q", ProgramOptions{"command": "/bin/true"}), ShouldBeNil)

		rm.Lock()
		defer rm.Unlock()
		So(rm.calls[MethodAddGroup], ShouldEqual, 2)
		So(rm.faults["ALREADY_ADDED"], ShouldEqual, 1)
		So(rm.groups, ShouldEqual, 2)
		So(rm.processes, ShouldEqual, 2)
	}))

	Convey("Prometheus metrics are gathered from their own registry", t, func() {
		pm := NewPrometheusMetrics("")
		pm.Call(MethodAddGroup, time.Millisecond, nil)
		pm.Call(MethodAddGroup, time.Millisecond, fault(ErrAlreadyAdded, "a"))
		pm.Topology(3, 7)

		mfs, e := pm.Registry().Gather()
		So(e, ShouldBeNil)
		names := map[string]bool{}
		for _, mf := range mfs {
			names[mf.GetName()] = true
		}
		So(names["loader_calls_total"], ShouldBeTrue)
		So(names["loader_call_duration_seconds"], ShouldBeTrue)
		So(names["loader_groups"], ShouldBeTrue)
		So(names["loader_processes"], ShouldBeTrue)
	})
}

func TestApply(t *testing.T) {
	opts := []Option{WithWhitelist(MethodGetAPIVersion)}
	Convey("A startup config is applied past the whitelist", t, WithNamespace(t, opts, func(s *supervisor.Supervisor, n *Namespace) {
		cfg := &supervisor.Config{
			Groups: []*supervisor.GroupBlock{{Name: "base", Priority: 5}},
			Programs: []*supervisor.ProgramBlock{{
				Name:  "web",
				Group: "base",
				Options: map[string]cty.Value{
					"command":      cty.StringVal("/bin/true"),
					"numprocs":     cty.NumberIntVal(2),
					"process_name": cty.StringVal("web_%(process_num)d"),
				},
			}, {
				Name:    "cron",
				Group:   "cron",
				Options: map[string]cty.Value{"command": cty.StringVal("/bin/true")},
			}},
		}
		So(n.Apply(cfg), ShouldBeNil)

		s.Lock()
		So(s.GroupNames(), ShouldResemble, []string{"base", "cron"})
		So(s.Group("base").Config.Priority, ShouldEqual, 5)
		So(s.Group("base").Processes["web_0"], ShouldNotBeNil)
		So(s.Group("base").Processes["web_1"], ShouldNotBeNil)
		So(s.Group("cron").Processes["cron"], ShouldNotBeNil)
		s.Unlock()
		So(n.InstanceCount("web"), ShouldEqual, 0)

		Convey("Applying it twice fails", func() {
			e := n.Apply(cfg)
			So(errors.Is(e, ErrAlreadyAdded), ShouldBeTrue)
		})
	}))
}
