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
	"io"
	"log"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Supervisor owns the registry of process groups.
type Supervisor struct {
	name         string
	state        atomic.Int32
	groups       map[string]*ProcessGroup
	groupConfigs []*ProcessGroupConfig
	childLogDir  string
	here         string
	tick         time.Duration
	mlog         *MultiLogger
	stderr       *log.Logger
	log          *Log
	level        Level
	monitoring   bool
	serial       int64
	createTime   time.Time
	updateTime   time.Time
	done         chan struct{}
	mx           sync.Mutex
	cvs          map[*sync.Cond]bool
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithChildLogDir sets where AUTO child log files are created.  The
// default is the system temporary directory.
func WithChildLogDir(dir string) Option {
	return func(s *Supervisor) {
		s.childLogDir = dir
	}
}

// WithHere sets the value of %(here)s, normally the directory holding the
// configuration file.
func WithHere(dir string) Option {
	return func(s *Supervisor) {
		s.here = dir
	}
}

// WithLogWriter sends log output to w instead of stderr.
func WithLogWriter(w io.Writer) Option {
	return func(s *Supervisor) {
		s.stderr = log.New(w, "", log.LstdFlags)
	}
}

// WithLogLevel sets the least severe level that is logged.
func WithLogLevel(l Level) Option {
	return func(s *Supervisor) {
		s.level = l
	}
}

// WithTick sets the monitor interval.
func WithTick(d time.Duration) Option {
	return func(s *Supervisor) {
		s.tick = d
	}
}

func (s *Supervisor) lock() {
	s.mx.Lock()
}

func (s *Supervisor) unlock() {
	s.mx.Unlock()
}

// Lock acquires the registry lock.  Every access to groups, group
// configs, or processes must be made with it held.
func (s *Supervisor) Lock() {
	s.lock()
}

func (s *Supervisor) Unlock() {
	s.unlock()
}

func (s *Supervisor) Name() string {
	return s.name
}

// State returns the supervisor state.  It does not need the lock.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

func (s *Supervisor) wakeUp() {
	// NB: callers hold the lock, so woken watchers are guaranteed to
	// see the new serial number.
	for cv := range s.cvs {
		cv.Broadcast()
	}
}

// bumpSerial records a change and wakes watchers.  Call with lock held.
func (s *Supervisor) bumpSerial() int64 {
	s.updateTime = time.Now()
	s.serial++
	s.wakeUp()
	return s.serial
}

// Changed records an externally made change to the registry.  Call with
// the lock held.
func (s *Supervisor) Changed() {
	s.bumpSerial()
}

// Serial returns the change serial number.  It is bumped on every
// topology or process state change.
func (s *Supervisor) Serial() int64 {
	s.lock()
	defer s.unlock()
	return s.serial
}

// WatchSerial waits for the serial number to differ from old, or for
// expire to pass, and returns the current serial.  An expire of zero
// polls.
func (s *Supervisor) WatchSerial(old int64, expire time.Duration) int64 {
	expired := false
	cv := sync.NewCond(&s.mx)
	var timer *time.Timer

	if expire > 0 {
		timer = time.AfterFunc(expire, func() {
			s.lock()
			expired = true
			cv.Broadcast()
			s.unlock()
		})
	} else {
		expired = true
	}

	s.lock()
	s.cvs[cv] = true
	for s.serial == old && !expired {
		cv.Wait()
	}
	delete(s.cvs, cv)
	rv := s.serial
	s.unlock()
	if timer != nil {
		timer.Stop()
	}
	return rv
}

// Group returns the live group, or nil.  Call with lock held.
func (s *Supervisor) Group(name string) *ProcessGroup {
	return s.groups[name]
}

// GroupNames returns the live group names, sorted.  Call with lock held.
func (s *Supervisor) GroupNames() []string {
	names := make([]string, 0, len(s.groups))
	for n := range s.groups {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// GroupConfig returns the declarative config for a group, which may exist
// without a live group.  Call with lock held.
func (s *Supervisor) GroupConfig(name string) *ProcessGroupConfig {
	for _, g := range s.groupConfigs {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// GroupConfigs returns the declarative group list.  Call with lock held.
func (s *Supervisor) GroupConfigs() []*ProcessGroupConfig {
	return append([]*ProcessGroupConfig{}, s.groupConfigs...)
}

// NewGroupConfig allocates an empty group config bound to this supervisor.
// It is not registered.
func (s *Supervisor) NewGroupConfig(name string, priority int) *ProcessGroupConfig {
	return &ProcessGroupConfig{Name: name, Priority: priority, sup: s}
}

// AddGroupConfig appends to the declarative group list.  Call with lock
// held.
func (s *Supervisor) AddGroupConfig(g *ProcessGroupConfig) {
	s.groupConfigs = append(s.groupConfigs, g)
}

// RegisterGroup makes a group live.  Call with lock held.
func (s *Supervisor) RegisterGroup(g *ProcessGroup) {
	s.groups[g.Name()] = g
	s.bumpSerial()
}

func (s *Supervisor) logf(level Level, format string, v ...interface{}) {
	s.Log(level, fmt.Sprintf(format, v...))
}

// Log writes a message to the supervisor log.
func (s *Supervisor) Log(level Level, msg string) {
	if level < s.level {
		return
	}
	s.mlog.Log(level, msg)
}

// ReadLog returns retained log records; see Log.GetRecords.
func (s *Supervisor) ReadLog(last int64) ([]LogRecord, int64) {
	return s.log.GetRecords(last)
}

// WatchLog waits for new log records; see Log.Watch.
func (s *Supervisor) WatchLog(last int64, expire time.Duration) int64 {
	return s.log.Watch(last, expire)
}

// sortedGroups returns live groups in start order.  Call with lock held.
func (s *Supervisor) sortedGroups() []*ProcessGroup {
	groups := make([]*ProcessGroup, 0, len(s.groups))
	for _, g := range s.groups {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i].Config, groups[j].Config
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.Name < b.Name
	})
	return groups
}

func sortedProcesses(g *ProcessGroup) []*Process {
	procs := make([]*Process, 0, len(g.Processes))
	for _, p := range g.Processes {
		procs = append(procs, p)
	}
	sort.Slice(procs, func(i, j int) bool {
		a, b := procs[i].config, procs[j].config
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.Name < b.Name
	})
	return procs
}

func (s *Supervisor) monitor() {
	for {
		select {
		case <-s.done:
			return
		case <-time.After(s.tick):
		}
		s.lock()
		if s.monitoring && s.State() == StateRunning {
			now := time.Now()
			for _, g := range s.sortedGroups() {
				for _, p := range sortedProcesses(g) {
					p.transition(now)
				}
			}
		}
		s.unlock()
	}
}

func (s *Supervisor) StartMonitoring() {
	s.logf(LevelInfo, "*** Govisor starting monitoring: %s ***", s.name)
	s.lock()
	s.monitoring = true
	s.unlock()
}

func (s *Supervisor) StopMonitoring() {
	s.lock()
	s.monitoring = false
	s.unlock()
	s.logf(LevelInfo, "*** Govisor stopping monitoring: %s ***", s.name)
}

// Shutdown stops every child process and the monitor.  Once called, the
// supervisor stays in StateShutdown.
func (s *Supervisor) Shutdown() {
	s.lock()
	if s.State() == StateShutdown {
		s.unlock()
		return
	}
	s.state.Store(int32(StateShutdown))
	s.monitoring = false
	type waiter struct {
		p    *Process
		done chan struct{}
		wait time.Duration
	}
	var waiters []waiter
	for _, g := range s.sortedGroups() {
		for _, p := range sortedProcesses(g) {
			if p.pid != 0 {
				waiters = append(waiters,
					waiter{p, p.exited, p.config.StopWait})
			}
			p.stop()
		}
	}
	s.bumpSerial()
	s.unlock()

	for _, w := range waiters {
		select {
		case <-w.done:
		case <-time.After(w.wait):
			s.lock()
			w.p.kill()
			s.unlock()
			<-w.done
		}
	}
	close(s.done)
	s.logf(LevelInfo, "*** Govisor shut down: %s ***", s.name)
}

// New returns a running Supervisor.  Its monitor goroutine is started, but
// processes are not started until StartMonitoring is called.
func New(name string, opts ...Option) *Supervisor {
	if name == "" {
		name = "govisor"
	}
	s := &Supervisor{
		name:        name,
		groups:      make(map[string]*ProcessGroup),
		childLogDir: os.TempDir(),
		tick:        time.Second,
		level:       LevelInfo,
		// Starting the serial at the current time lets clients that
		// cache by serial notice a restarted supervisor.
		serial: time.Now().UnixNano(),
		done:   make(chan struct{}),
		cvs:    make(map[*sync.Cond]bool),
		mlog:   NewMultiLogger(),
		log:    NewLog(MaxLogRecords),
		stderr: log.New(os.Stderr, "", log.LstdFlags),
	}
	for _, o := range opts {
		o(s)
	}
	s.createTime = time.Now()
	s.updateTime = s.createTime
	s.mlog.AddLogger(s.stderr, s.level)
	s.mlog.AddLogger(log.New(s.log, "", 0), s.level)
	s.state.Store(int32(StateRunning))
	go s.monitor()
	return s
}
