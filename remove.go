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
	"github.com/govisor/loader/supervisor"
)

// removeProcess takes a stopped process out of its group, dropping both
// its config and its live entry.
func (n *Namespace) removeProcess(groupName, name string) error {
	g, e := n.getGroup(groupName)
	if e != nil {
		return e
	}
	p := g.Processes[name]
	if p == nil {
		return fault(ErrBadName, "process: "+groupName+":"+name)
	}
	if p.Pid() != 0 || !p.State().Stopped() {
		return fault(ErrStillRunning, groupName+":"+name)
	}

	g.BeforeRemove(name)
	g.Config.RemoveProcessConfig(name)
	delete(g.Processes, name)

	key := groupName + ":" + name
	if program, ok := n.counted[key]; ok {
		delete(n.counted, key)
		n.counter.Decrement(program)
	}
	n.host.Log(supervisor.LevelInfo, "Removed process "+key)
	n.host.Changed()
	return nil
}
