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
	"strconv"
	"strings"

	"github.com/govisor/loader/supervisor"
)

const processNumToken = "%(process_num)02d"

// numberOptions rewrites a copy of options so the instance gets ordinal
// num: process_name becomes <program>_<num> and the process number token
// is replaced in every string value.
func numberOptions(options ProgramOptions, num string) ProgramOptions {
	o := options.copy()
	for k := range o {
		if strings.EqualFold(k, "process_name") {
			delete(o, k)
		}
	}
	for k, v := range o {
		if s, ok := v.(string); ok {
			o[k] = strings.ReplaceAll(s, processNumToken, num)
		}
	}
	o["process_name"] = "%(program_name)s_" + num
	return o
}

// addProgram injects program into groupName, or into a group named after
// the program.  Nothing is changed unless every step succeeds.
func (n *Namespace) addProgram(program string, options ProgramOptions, groupName string, naming Naming) error {
	if program == "" {
		return fault(ErrInvalidParameters, "empty program name")
	}
	if groupName == "" {
		groupName = program
	}
	h := n.host

	num := ""
	if naming == CounterNaming {
		num = strconv.Itoa(n.counter.Get(program) + 1)
		options = numberOptions(options, num)
	}

	sec, e := BuildSection("program:"+program, options)
	if e != nil {
		return e
	}
	configs, e := h.ProcessesFromSection(sec, groupName)
	if e != nil {
		return fault(ErrInvalidParameters, e.Error())
	}
	if len(configs) == 0 {
		return fault(ErrInvalidParameters, "program "+program+" has no processes")
	}

	g := h.Group(groupName)
	taken := make(map[string]bool)
	if g != nil {
		for name := range g.Processes {
			taken[name] = true
		}
		for _, c := range g.Config.ProcessConfigs {
			taken[c.Name] = true
		}
	} else if cfg := h.GroupConfig(groupName); cfg != nil {
		for _, c := range cfg.ProcessConfigs {
			taken[c.Name] = true
		}
	}
	for _, c := range configs {
		if taken[c.Name] {
			return fault(ErrBadName, c.Name)
		}
		taken[c.Name] = true
	}

	for i, c := range configs {
		if e := c.CreateAutoChildLogs(); e != nil {
			for _, c := range configs[:i] {
				c.RemoveAutoChildLogs()
			}
			return fault(ErrInvalidParameters, e.Error())
		}
	}
	if g == nil {
		if g, e = n.ensureGroup(groupName, DefaultPriority); e != nil {
			for _, c := range configs {
				c.RemoveAutoChildLogs()
			}
			return e
		}
	}

	g.Config.ProcessConfigs = append(g.Config.ProcessConfigs, configs...)
	for _, c := range configs {
		g.Processes[c.Name] = c.MakeProcess(g)
		if naming == CounterNaming {
			n.counted[groupName+":"+c.Name] = program
		}
		h.Log(supervisor.LevelInfo, "Added process "+groupName+":"+c.Name)
	}
	if naming == CounterNaming {
		n.counter.Increment(program)
	}
	h.Changed()
	return nil
}
