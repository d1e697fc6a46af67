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

// DefaultPriority is the scheduling priority of groups created without
// one.
const DefaultPriority = 999

// The registry operations below are called with the host lock held.

func (n *Namespace) groupExists(name string) bool {
	return n.host.Group(name) != nil
}

// ensureGroup returns the live group called name, creating an empty one
// if needed.  A declarative config of that name is reused when there is
// one.
func (n *Namespace) ensureGroup(name string, priority int) (*supervisor.ProcessGroup, error) {
	if g := n.host.Group(name); g != nil {
		return g, nil
	}
	h := n.host
	cfg := h.GroupConfig(name)
	fresh := cfg == nil
	if fresh {
		cfg = h.NewGroupConfig(name, priority)
	}
	if e := cfg.AfterSetuid(); e != nil {
		return nil, fault(ErrInvalidParameters, e.Error())
	}
	if fresh {
		h.AddGroupConfig(cfg)
	}
	g := cfg.MakeGroup()
	h.RegisterGroup(g)
	h.Log(supervisor.LevelInfo, "Added process group "+name)
	return g, nil
}

func (n *Namespace) addGroup(name string, priority int) error {
	if name == "" {
		return fault(ErrBadName, "empty group name")
	}
	if n.groupExists(name) {
		return fault(ErrAlreadyAdded, name)
	}
	_, e := n.ensureGroup(name, priority)
	return e
}

func (n *Namespace) getGroup(name string) (*supervisor.ProcessGroup, error) {
	g := n.host.Group(name)
	if g == nil {
		return nil, fault(ErrBadName, "group: "+name)
	}
	return g, nil
}
