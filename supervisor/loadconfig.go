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

package supervisor

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// Config is the startup topology read from an HCL file:
//
//	group "web" {
//	  priority = 100
//	}
//
//	program "worker" {
//	  group        = "web"
//	  command      = "/usr/local/bin/worker --id %(process_num)d"
//	  numprocs     = 2
//	  process_name = "%(program_name)s_%(process_num)d"
//	}
//
// Apart from "group", every attribute of a program block is a program
// option.  A program without a group gets a group of its own name.
type Config struct {
	ChildLogDir string
	Groups      []*GroupBlock
	Programs    []*ProgramBlock
}

type GroupBlock struct {
	Name     string
	Priority int
}

type ProgramBlock struct {
	Name    string
	Group   string
	Options map[string]cty.Value
}

type hclConfigFile struct {
	ChildLogDir *string       `hcl:"childlogdir,optional"`
	Groups      []*hclGroup   `hcl:"group,block"`
	Programs    []*hclProgram `hcl:"program,block"`
	Remain      hcl.Body      `hcl:",remain"`
}

type hclGroup struct {
	Name     string `hcl:"name,label"`
	Priority *int   `hcl:"priority,optional"`
}

type hclProgram struct {
	Name   string   `hcl:"name,label"`
	Group  *string  `hcl:"group,optional"`
	Remain hcl.Body `hcl:",remain"`
}

// LoadConfig parses an HCL configuration file.
func LoadConfig(path string) (*Config, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %w", path, diags)
	}
	var parsed hclConfigFile
	if diags = gohcl.DecodeBody(f.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %s: %w", path, diags)
	}
	if attrs, diags := parsed.Remain.JustAttributes(); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %s: %w", path, diags)
	} else if len(attrs) != 0 {
		for name, a := range attrs {
			return nil, fmt.Errorf("%s: unknown setting %q", a.Range, name)
		}
	}

	cfg := &Config{}
	if parsed.ChildLogDir != nil {
		cfg.ChildLogDir = *parsed.ChildLogDir
	}
	for _, g := range parsed.Groups {
		gb := &GroupBlock{Name: g.Name, Priority: 999}
		if g.Priority != nil {
			gb.Priority = *g.Priority
		}
		cfg.Groups = append(cfg.Groups, gb)
	}
	for _, p := range parsed.Programs {
		pb := &ProgramBlock{Name: p.Name, Group: p.Name}
		if p.Group != nil {
			pb.Group = *p.Group
		}
		attrs, diags := p.Remain.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("program %q: %w", p.Name, diags)
		}
		pb.Options = make(map[string]cty.Value, len(attrs))
		for name, a := range attrs {
			v, diags := a.Expr.Value(nil)
			if diags.HasErrors() {
				return nil, fmt.Errorf("program %q: %w", p.Name, diags)
			}
			pb.Options[name] = v
		}
		cfg.Programs = append(cfg.Programs, pb)
	}
	return cfg, nil
}

// OptionNames returns the option names of a program block, sorted.
func (p *ProgramBlock) OptionNames() []string {
	names := make([]string, 0, len(p.Options))
	for n := range p.Options {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
