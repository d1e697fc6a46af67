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
)

// Method identifies one operation of the Namespace.  The allow-list is
// expressed in terms of these, rather than free form names.
type Method int

const (
	MethodGetAPIVersion Method = iota
	MethodGetGroupNames
	MethodHasGroup
	MethodHasProcessInGroup
	MethodGetGroupInfo
	MethodLog
	MethodReadLog
	MethodAddGroup
	MethodAddProgramToGroup
	MethodAddProgram
	MethodRemoveProcessFromGroup
	numMethods
)

var methodNames = [numMethods]string{
	MethodGetAPIVersion:          "getAPIVersion",
	MethodGetGroupNames:          "getGroupNames",
	MethodHasGroup:               "hasGroup",
	MethodHasProcessInGroup:      "hasProcessInGroup",
	MethodGetGroupInfo:           "getGroupInfo",
	MethodLog:                    "log",
	MethodReadLog:                "readLog",
	MethodAddGroup:               "addGroup",
	MethodAddProgramToGroup:      "addProgramToGroup",
	MethodAddProgram:             "addProgram",
	MethodRemoveProcessFromGroup: "removeProcessFromGroup",
}

func (m Method) String() string {
	if m >= 0 && m < numMethods {
		return methodNames[m]
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod looks a method up by its RPC name, e.g. "addGroup".
func ParseMethod(name string) (Method, error) {
	for m, n := range methodNames {
		if n == name {
			return Method(m), nil
		}
	}
	return 0, fmt.Errorf("unknown method %q", name)
}

// Methods returns every method, in declaration order.
func Methods() []Method {
	ms := make([]Method, 0, numMethods)
	for m := Method(0); m < numMethods; m++ {
		ms = append(ms, m)
	}
	return ms
}
