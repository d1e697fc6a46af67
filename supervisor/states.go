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

// State is the state of the supervisor itself.
type State int32

const (
	StateFatal      State = 2
	StateRunning    State = 1
	StateRestarting State = 0
	StateShutdown   State = -1
)

func (s State) String() string {
	switch s {
	case StateFatal:
		return "FATAL"
	case StateRunning:
		return "RUNNING"
	case StateRestarting:
		return "RESTARTING"
	case StateShutdown:
		return "SHUTDOWN"
	}
	return "UNKNOWN"
}

// ProcessState is the state of a single process instance.  The numeric
// values match the ones supervisord reports, so that tooling written
// against either can share them.
type ProcessState int

const (
	ProcessStopped  ProcessState = 0
	ProcessStarting ProcessState = 10
	ProcessRunning  ProcessState = 20
	ProcessBackoff  ProcessState = 30
	ProcessStopping ProcessState = 40
	ProcessExited   ProcessState = 100
	ProcessFatal    ProcessState = 200
	ProcessUnknown  ProcessState = 1000
)

func (s ProcessState) String() string {
	switch s {
	case ProcessStopped:
		return "STOPPED"
	case ProcessStarting:
		return "STARTING"
	case ProcessRunning:
		return "RUNNING"
	case ProcessBackoff:
		return "BACKOFF"
	case ProcessStopping:
		return "STOPPING"
	case ProcessExited:
		return "EXITED"
	case ProcessFatal:
		return "FATAL"
	}
	return "UNKNOWN"
}

// Stopped reports whether the state is one in which no child process
// exists and none will be started without being asked.  BACKOFF is not
// stopped: the monitor is about to try again.
func (s ProcessState) Stopped() bool {
	switch s {
	case ProcessStopped, ProcessExited, ProcessFatal, ProcessUnknown:
		return true
	}
	return false
}
