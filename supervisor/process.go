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
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Process is a live instance of a ProcessConfig.  All fields are guarded
// by the supervisor lock; accessors must be called with it held.
type Process struct {
	config *ProcessConfig
	group  *ProcessGroup

	state      ProcessState
	pid        int
	cmd        *exec.Cmd
	files      []*os.File
	exited     chan struct{}
	laststart  time.Time
	laststop   time.Time
	deadline   time.Time // for STOPPING, when to give up and kill
	delay      time.Time // for BACKOFF, when to try again
	backoff    int
	exitStatus int
	expected   bool
	spawnErr   error
	removed    bool
}

func (p *Process) Name() string {
	return p.config.Name
}

func (p *Process) Config() *ProcessConfig {
	return p.config
}

func (p *Process) Group() *ProcessGroup {
	return p.group
}

// Pid returns the OS process id, or 0 if there is no child.
func (p *Process) Pid() int {
	return p.pid
}

func (p *Process) State() ProcessState {
	return p.state
}

// Description summarizes the current state for humans.
func (p *Process) Description() string {
	switch p.state {
	case ProcessRunning, ProcessStarting, ProcessStopping:
		up := time.Since(p.laststart)
		up -= up % time.Second
		return fmt.Sprintf("pid %d, uptime %s", p.pid, up)
	case ProcessBackoff, ProcessFatal:
		if p.spawnErr != nil {
			return p.spawnErr.Error()
		}
		return "Exited too quickly (process log may have details)"
	case ProcessExited:
		if p.expected {
			return fmt.Sprintf("exit status %d", p.exitStatus)
		}
		return fmt.Sprintf("exit status %d; not expected", p.exitStatus)
	case ProcessStopped:
		if p.laststart.IsZero() {
			return "Not started"
		}
		return "Stopped " + p.laststop.Format(time.Stamp)
	}
	return ""
}

func (p *Process) logf(level Level, format string, v ...interface{}) {
	p.group.sup.logf(level, "%s:%s "+format,
		append([]interface{}{p.group.Name(), p.Name()}, v...)...)
}

func (p *Process) setState(s ProcessState) {
	if s == p.state {
		return
	}
	p.logf(LevelDebug, "%s -> %s", p.state, s)
	p.state = s
	p.group.sup.bumpSerial()
}

func openLog(name string) (*os.File, error) {
	if name == "" || name == LogfileNone || name == LogfileAuto {
		return nil, nil
	}
	return os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
}

func (p *Process) closeFiles() {
	for _, f := range p.files {
		f.Close()
	}
	p.files = nil
}

// spawn starts the child.  Failures put the process into BACKOFF.
func (p *Process) spawn() {
	c := p.config
	cmd := exec.Command(c.Command[0], c.Command[1:]...)
	cmd.Dir = c.Directory
	if len(c.Environment) != 0 {
		cmd.Env = append(os.Environ(), c.Environment...)
	}

	p.laststart = time.Now()
	p.spawnErr = nil
	stdout, e := openLog(c.StdoutLogfile)
	if e == nil && stdout != nil {
		p.files = append(p.files, stdout)
		cmd.Stdout = stdout
	}
	if e == nil {
		if c.RedirectStderr {
			cmd.Stderr = cmd.Stdout
		} else {
			var stderr *os.File
			if stderr, e = openLog(c.StderrLogfile); e == nil && stderr != nil {
				p.files = append(p.files, stderr)
				cmd.Stderr = stderr
			}
		}
	}
	if e == nil {
		e = cmd.Start()
	}
	if e != nil {
		p.closeFiles()
		p.spawnErr = e
		p.backoff++
		p.delay = time.Now().Add(time.Duration(p.backoff) * time.Second)
		p.logf(LevelWarn, "spawn error: %v", e)
		p.setState(ProcessBackoff)
		return
	}
	p.cmd = cmd
	p.pid = cmd.Process.Pid
	p.exited = make(chan struct{})
	p.logf(LevelInfo, "spawned with pid %d", p.pid)
	p.setState(ProcessStarting)
	if c.StartSecs == 0 {
		p.backoff = 0
		p.setState(ProcessRunning)
	}
	go p.reap(cmd, p.exited)
}

// reap waits for the child and records how it went.  It runs without the
// lock and takes it to update state.
func (p *Process) reap(cmd *exec.Cmd, done chan struct{}) {
	e := cmd.Wait()
	code := 0
	var ee *exec.ExitError
	if errors.As(e, &ee) {
		code = ee.ExitCode()
	}

	sup := p.group.sup
	sup.lock()
	p.pid = 0
	p.cmd = nil
	p.laststop = time.Now()
	p.exitStatus = code
	p.expected = p.config.expectedExit(code)
	p.closeFiles()
	switch p.state {
	case ProcessStopping:
		p.logf(LevelInfo, "stopped (exit status %d)", code)
		p.setState(ProcessStopped)
	case ProcessStarting:
		p.logf(LevelInfo, "exited too quickly (exit status %d)", code)
		p.backoff++
		p.delay = time.Now().Add(time.Duration(p.backoff) * time.Second)
		p.setState(ProcessBackoff)
	default:
		if p.expected {
			p.logf(LevelInfo, "exited (exit status %d; expected)", code)
		} else {
			p.logf(LevelWarn, "exited (exit status %d; not expected)", code)
		}
		p.setState(ProcessExited)
	}
	sup.unlock()
	close(done)
}

// stop asks the child to terminate with the configured signal.  The
// monitor kills it if it has not gone after StopWait.
func (p *Process) stop() {
	if p.pid == 0 || p.cmd == nil {
		if p.state == ProcessBackoff {
			p.setState(ProcessStopped)
		}
		return
	}
	p.deadline = time.Now().Add(p.config.StopWait)
	if e := p.cmd.Process.Signal(p.config.StopSignal); e != nil {
		p.logf(LevelWarn, "failed sending %v: %v", p.config.StopSignal, e)
	}
	p.setState(ProcessStopping)
}

func (p *Process) kill() {
	if p.cmd != nil && p.cmd.Process != nil {
		if e := p.cmd.Process.Kill(); e != nil {
			p.logf(LevelWarn, "failed killing: %v", e)
		}
	}
}

// transition advances the state machine; it is called periodically by the
// monitor with the lock held.
func (p *Process) transition(now time.Time) {
	if p.removed {
		return
	}
	c := p.config
	switch p.state {
	case ProcessStopped:
		if c.Autostart && p.laststart.IsZero() {
			p.spawn()
		}
	case ProcessExited:
		switch c.Autorestart {
		case RestartAlways:
			p.spawn()
		case RestartUnexpected:
			if !p.expected {
				p.spawn()
			}
		}
	case ProcessBackoff:
		if p.backoff > c.StartRetries {
			p.logf(LevelInfo, "gave up: entered FATAL state, too many start retries")
			p.setState(ProcessFatal)
		} else if !now.Before(p.delay) {
			p.spawn()
		}
	case ProcessStarting:
		if now.Sub(p.laststart) >= c.StartSecs {
			p.backoff = 0
			p.logf(LevelInfo, "entered RUNNING state, process has stayed up for > than %s", c.StartSecs)
			p.setState(ProcessRunning)
		}
	case ProcessStopping:
		if now.After(p.deadline) {
			p.logf(LevelWarn, "killing after %s", c.StopWait)
			p.kill()
		}
	}
}
