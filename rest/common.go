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

package rest

import (
	"encoding/json"
	"time"
)

const (
	mimeJson = "application/json; charset=UTF-8"

	// Prefix is the root of the loader resources on the server.
	Prefix = "/loader"

	// PollEtagHeader and PollTimeHeader ask the server to hold a GET
	// until the resource no longer matches the etag, or until the
	// number of seconds has passed.
	PollEtagHeader = "X-Govisor-Poll-Etag"
	PollTimeHeader = "X-Govisor-Poll-Time"
)

// Fault kinds, as found in Error.Kind.
const (
	KindIncorrectParameters = "INCORRECT_PARAMETERS"
	KindShutdownState       = "SHUTDOWN_STATE"
	KindBadName             = "BAD_NAME"
	KindFailed              = "FAILED"
	KindAlreadyAdded        = "ALREADY_ADDED"
	KindStillRunning        = "STILL_RUNNING"
	KindNotWhitelisted      = "NOT_WHITELISTED"
	KindUnauthorized        = "UNAUTHORIZED"
)

type ProcessInfo struct {
	Name        string `json:"name"`
	Group       string `json:"group"`
	State       string `json:"state"`
	Pid         int    `json:"pid"`
	Description string `json:"description"`
}

type GroupInfo struct {
	Name      string        `json:"name"`
	Priority  int           `json:"priority"`
	Processes []ProcessInfo `json:"processes"`
}

type LogRecord struct {
	Id   int64     `json:"id"`
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

type AddGroupRequest struct {
	Name     string `json:"name"`
	Priority *int   `json:"priority,omitempty"`
}

type AddProgramRequest struct {
	Name    string                 `json:"name"`
	Options map[string]interface{} `json:"options"`
}

type LogRequest struct {
	Message string   `json:"message"`
	Level   LogLevel `json:"level"`
}

// LogLevel is a level name, or a level number.  It decodes from either a
// JSON string or a JSON number.
type LogLevel string

func (l *LogLevel) UnmarshalJSON(b []byte) error {
	var s string
	if json.Unmarshal(b, &s) == nil {
		*l = LogLevel(s)
		return nil
	}
	var n json.Number
	if e := json.Unmarshal(b, &n); e != nil {
		return e
	}
	*l = LogLevel(n.String())
	return nil
}

// Error is the body of every failed request.  Code is the fault number;
// the HTTP status is kept in Status.
type Error struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}
