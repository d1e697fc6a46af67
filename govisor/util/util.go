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

// Package util is used for internal implementation bits in the CLI/UI.
package util

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/govisor/loader/rest"
)

// Status classifies a process for display.
func Status(p *rest.ProcessInfo) string {
	switch p.State {
	case "RUNNING":
		return "running"
	case "STARTING":
		return "starting"
	case "STOPPING":
		return "stopping"
	case "FATAL", "BACKOFF":
		return "failed"
	case "EXITED":
		return "exited"
	}
	return "stopped"
}

func Failed(p *rest.ProcessInfo) bool {
	return p.State == "FATAL" || p.State == "BACKOFF"
}

func Running(p *rest.ProcessInfo) bool {
	switch p.State {
	case "RUNNING", "STARTING", "STOPPING":
		return true
	}
	return false
}

// Removable reports whether the server would let p be removed: it has
// no child and nothing will restart it on its own.
func Removable(p *rest.ProcessInfo) bool {
	if p.Pid != 0 {
		return false
	}
	switch p.State {
	case "STOPPED", "EXITED", "FATAL", "UNKNOWN":
		return true
	}
	return false
}

// FullName is the group:process name supervisord users know.
func FullName(p *rest.ProcessInfo) string {
	return p.Group + ":" + p.Name
}

// SplitName splits group:process.  A bare name is taken to be a process
// in the group of the same name.
func SplitName(s string) (string, string, error) {
	group, name, found := strings.Cut(s, ":")
	if !found {
		name = group
	}
	if group == "" || name == "" {
		return "", "", fmt.Errorf("bad process name %q", s)
	}
	return group, name, nil
}

// ParseOptions turns key=value arguments into program options.  Values
// that look like integers or booleans are sent as such.
func ParseOptions(args []string) (map[string]interface{}, error) {
	opts := make(map[string]interface{}, len(args))
	for _, a := range args {
		k, v, found := strings.Cut(a, "=")
		if !found || k == "" {
			return nil, fmt.Errorf("bad option %q, want key=value", a)
		}
		if _, dup := opts[k]; dup {
			return nil, errors.New("duplicate option " + k)
		}
		if n, e := strconv.Atoi(v); e == nil {
			opts[k] = n
		} else if b, e := strconv.ParseBool(v); e == nil && (v == "true" || v == "false") {
			opts[k] = b
		} else {
			opts[k] = v
		}
	}
	return opts, nil
}

type sorted []*rest.ProcessInfo

func (s sorted) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

func (s sorted) Len() int {
	return len(s)
}

func (s sorted) Less(i, j int) bool {
	a := s[i]
	b := s[j]

	if Failed(a) != Failed(b) {
		// put failed items at front
		return Failed(a)
	}
	if Running(a) != Running(b) {
		return Running(a)
	}
	if a.Group != b.Group {
		return a.Group < b.Group
	}
	return a.Name < b.Name
}

func SortProcesses(items []*rest.ProcessInfo) {
	sort.Sort(sorted(items))
}
