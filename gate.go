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

// gate is the checkpoint every public method passes before it touches
// the host.  It is only used with the host lock held.
type gate struct {
	whitelist map[Method]bool
	last      string
}

func (g *gate) allow(methods []Method) {
	if len(methods) == 0 {
		g.whitelist = nil
		return
	}
	g.whitelist = make(map[Method]bool, len(methods))
	for _, m := range methods {
		g.whitelist[m] = true
	}
}

func (g *gate) authorize(h Host, m Method) error {
	g.last = m.String()
	if h.State() == supervisor.StateShutdown {
		return fault(ErrShutdown, "")
	}
	if g.whitelist != nil && !g.whitelist[m] {
		return fault(ErrNotWhitelisted, m.String())
	}
	return nil
}
