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
	"fmt"
	"sort"
	"time"

	"github.com/govisor/loader/supervisor"
)

// APIVersion is the version of the loader interface.
const APIVersion = "1.0"

// Host is what the loader needs from the supervisor it extends.  With the
// exception of Lock, Unlock, State, Log and ReadLog, methods are only
// called with the lock held.  *supervisor.Supervisor implements it.
type Host interface {
	Lock()
	Unlock()
	State() supervisor.State
	Group(name string) *supervisor.ProcessGroup
	GroupNames() []string
	GroupConfig(name string) *supervisor.ProcessGroupConfig
	NewGroupConfig(name string, priority int) *supervisor.ProcessGroupConfig
	AddGroupConfig(g *supervisor.ProcessGroupConfig)
	RegisterGroup(g *supervisor.ProcessGroup)
	ProcessesFromSection(sec *supervisor.Section, group string) ([]*supervisor.ProcessConfig, error)
	Changed()
	Log(level supervisor.Level, msg string)
	ReadLog(last int64) ([]supervisor.LogRecord, int64)
}

// Naming selects how injected programs name their instances.
type Naming int

const (
	// CounterNaming gives every injection of a program the next ordinal,
	// so its single instance is called <program>_<n>.
	CounterNaming Naming = iota

	// FanoutNaming leaves naming to the program's own process_name and
	// numprocs options.
	FanoutNaming
)

func (n Naming) String() string {
	switch n {
	case CounterNaming:
		return "counter"
	case FanoutNaming:
		return "fanout"
	}
	return fmt.Sprintf("Naming(%d)", int(n))
}

// ParseNaming accepts "counter" or "fanout".
func ParseNaming(s string) (Naming, error) {
	switch s {
	case "counter":
		return CounterNaming, nil
	case "fanout":
		return FanoutNaming, nil
	}
	return 0, fmt.Errorf("unknown naming %q", s)
}

// Namespace is the set of operations for changing a running supervisor's
// process topology.  It is safe for concurrent use; every call holds the
// host lock from start to finish.
type Namespace struct {
	host    Host
	gate    gate
	naming  Naming
	counter *InstanceCounter
	counted map[string]string // group:process -> program
	metrics Metrics
}

type Option func(*Namespace)

// WithWhitelist restricts the Namespace to the given methods.  With no
// methods, everything is allowed.
func WithWhitelist(methods ...Method) Option {
	return func(n *Namespace) {
		n.gate.allow(methods)
	}
}

func WithNaming(naming Naming) Option {
	return func(n *Namespace) {
		n.naming = naming
	}
}

func WithMetrics(m Metrics) Option {
	return func(n *Namespace) {
		if m == nil {
			m = noopMetrics{}
		}
		n.metrics = m
	}
}

func NewNamespace(h Host, opts ...Option) *Namespace {
	n := &Namespace{
		host:    h,
		naming:  CounterNaming,
		counter: NewInstanceCounter(),
		counted: make(map[string]string),
		metrics: noopMetrics{},
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

func (n *Namespace) Naming() Naming {
	return n.naming
}

func (n *Namespace) call(m Method, fn func() error) error {
	start := time.Now()
	n.host.Lock()
	e := n.gate.authorize(n.host, m)
	if e == nil {
		e = fn()
	}
	if e == nil {
		switch m {
		case MethodAddGroup, MethodAddProgram, MethodAddProgramToGroup,
			MethodRemoveProcessFromGroup:
			n.topology()
		}
	}
	n.host.Unlock()
	n.metrics.Call(m, time.Since(start), e)
	return e
}

func (n *Namespace) topology() {
	groups := n.host.GroupNames()
	procs := 0
	for _, name := range groups {
		procs += len(n.host.Group(name).Processes)
	}
	n.metrics.Topology(len(groups), procs)
}

// LastMethod returns the name of the most recently called method, even
// if it was refused.
func (n *Namespace) LastMethod() string {
	n.host.Lock()
	defer n.host.Unlock()
	return n.gate.last
}

// InstanceCount returns how many counter named instances of program
// exist.
func (n *Namespace) InstanceCount(program string) int {
	n.host.Lock()
	defer n.host.Unlock()
	return n.counter.Get(program)
}

// ResetCounter forgets all instance counts.
func (n *Namespace) ResetCounter() {
	n.host.Lock()
	n.counter.Clear()
	n.counted = make(map[string]string)
	n.host.Unlock()
}

func (n *Namespace) APIVersion() (string, error) {
	e := n.call(MethodGetAPIVersion, func() error { return nil })
	if e != nil {
		return "", e
	}
	return APIVersion, nil
}

// GroupNames returns the live group names, sorted.
func (n *Namespace) GroupNames() ([]string, error) {
	var names []string
	e := n.call(MethodGetGroupNames, func() error {
		names = n.host.GroupNames()
		return nil
	})
	return names, e
}

func (n *Namespace) HasGroup(name string) (bool, error) {
	found := false
	e := n.call(MethodHasGroup, func() error {
		found = n.groupExists(name)
		return nil
	})
	return found, e
}

// HasProcessInGroup reports whether the live group has a process called
// name.  A missing group is simply false.
func (n *Namespace) HasProcessInGroup(group, name string) (bool, error) {
	found := false
	e := n.call(MethodHasProcessInGroup, func() error {
		if g := n.host.Group(group); g != nil {
			found = g.Processes[name] != nil
		}
		return nil
	})
	return found, e
}

type ProcessInfo struct {
	Name        string
	Group       string
	State       supervisor.ProcessState
	Pid         int
	Description string
}

type GroupInfo struct {
	Name      string
	Priority  int
	Processes []ProcessInfo
}

// GroupInfo describes a live group and its processes, sorted by name.
func (n *Namespace) GroupInfo(name string) (*GroupInfo, error) {
	var info *GroupInfo
	e := n.call(MethodGetGroupInfo, func() error {
		g, e := n.getGroup(name)
		if e != nil {
			return e
		}
		info = &GroupInfo{Name: name, Priority: g.Config.Priority}
		for _, p := range g.Processes {
			info.Processes = append(info.Processes, ProcessInfo{
				Name:        p.Name(),
				Group:       name,
				State:       p.State(),
				Pid:         p.Pid(),
				Description: p.Description(),
			})
		}
		sort.Slice(info.Processes, func(i, j int) bool {
			return info.Processes[i].Name < info.Processes[j].Name
		})
		return nil
	})
	return info, e
}

// Log writes message to the supervisor log.  The level may be a level
// name, such as "WARN" or "warn", or a number.
func (n *Namespace) Log(message, level string) error {
	return n.call(MethodLog, func() error {
		l, e := supervisor.ParseLevel(level)
		if e != nil {
			return fault(ErrInvalidParameters, e.Error())
		}
		n.host.Log(l, message)
		return nil
	})
}

// ReadLog returns the supervisor log records after id last, and the id
// of the newest record.
func (n *Namespace) ReadLog(last int64) ([]supervisor.LogRecord, int64, error) {
	var recs []supervisor.LogRecord
	var id int64
	e := n.call(MethodReadLog, func() error {
		recs, id = n.host.ReadLog(last)
		return nil
	})
	return recs, id, e
}

// AddGroup creates an empty live group.  It fails with ErrAlreadyAdded if
// the group exists.
func (n *Namespace) AddGroup(name string, priority int) error {
	return n.call(MethodAddGroup, func() error {
		return n.addGroup(name, priority)
	})
}

// AddProgramToGroup adds the instances of program, described by options,
// to group.  The group is created if it does not exist.
func (n *Namespace) AddProgramToGroup(group, program string, options ProgramOptions) error {
	return n.call(MethodAddProgramToGroup, func() error {
		return n.addProgram(program, options, group, n.naming)
	})
}

// AddProgram is AddProgramToGroup with a group named after the program.
func (n *Namespace) AddProgram(program string, options ProgramOptions) error {
	return n.call(MethodAddProgram, func() error {
		return n.addProgram(program, options, "", n.naming)
	})
}

// RemoveProcessFromGroup removes a process that is not running.
func (n *Namespace) RemoveProcessFromGroup(group, name string) error {
	return n.call(MethodRemoveProcessFromGroup, func() error {
		return n.removeProcess(group, name)
	})
}

// Apply creates the groups and programs of a startup configuration.  It
// is not subject to the whitelist, and programs are always named by their
// own options.
func (n *Namespace) Apply(cfg *supervisor.Config) error {
	n.host.Lock()
	defer n.host.Unlock()
	for _, g := range cfg.Groups {
		if e := n.addGroup(g.Name, g.Priority); e != nil {
			return fmt.Errorf("group %s: %w", g.Name, e)
		}
	}
	for _, p := range cfg.Programs {
		opts := make(ProgramOptions, len(p.Options))
		for k, v := range p.Options {
			opts[k] = v
		}
		if e := n.addProgram(p.Name, opts, p.Group, FanoutNaming); e != nil {
			return fmt.Errorf("program %s: %w", p.Name, e)
		}
	}
	n.topology()
	return nil
}
