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
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

const programPrefix = "program:"

// Options understood in a program section, with their defaults.  An empty
// default means the option has none.
var programDefaults = map[string]string{
	"command":         "",
	"process_name":    "%(program_name)s",
	"numprocs":        "1",
	"numprocs_start":  "0",
	"priority":        "999",
	"autostart":       "true",
	"autorestart":     "unexpected",
	"startsecs":       "1",
	"startretries":    "3",
	"exitcodes":       "0",
	"stopsignal":      "TERM",
	"stopwaitsecs":    "10",
	"directory":       "",
	"environment":     "",
	"stdout_logfile":  LogfileAuto,
	"stderr_logfile":  LogfileAuto,
	"redirect_stderr": "false",
}

// sectionReader reads typed option values out of a Section, remembering
// the first failure so that callers can check once at the end.
type sectionReader struct {
	sec  *Section
	vars map[string]string
	err  error
}

func (r *sectionReader) fail(key string, e error) {
	if r.err == nil {
		r.err = fmt.Errorf("%s: %s: %w", r.sec.Name, key, e)
	}
}

func (r *sectionReader) raw(key string) string {
	if v, ok := r.sec.Get(key); ok {
		return v
	}
	return programDefaults[key]
}

func (r *sectionReader) str(key string) string {
	v, e := expand(r.raw(key), r.vars)
	if e != nil {
		r.fail(key, e)
	}
	return v
}

func (r *sectionReader) integer(key string, min int) int {
	n, e := convert.Convert(cty.StringVal(strings.TrimSpace(r.raw(key))), cty.Number)
	var i int
	if e == nil {
		e = gocty.FromCtyValue(n, &i)
	}
	if e != nil {
		r.fail(key, fmt.Errorf("%w: %v", ErrBadOptionValue, e))
		return min
	}
	if i < min {
		r.fail(key, fmt.Errorf("%w: %d is below %d", ErrBadOptionValue, i, min))
		return min
	}
	return i
}

func (r *sectionReader) boolean(key string) bool {
	switch strings.ToLower(strings.TrimSpace(r.raw(key))) {
	case "true", "yes", "on", "1":
		return true
	case "false", "no", "off", "0":
		return false
	}
	r.fail(key, ErrBadOptionValue)
	return false
}

func (r *sectionReader) seconds(key string) time.Duration {
	return time.Duration(r.integer(key, 0)) * time.Second
}

func (r *sectionReader) autorestart() Autorestart {
	switch strings.ToLower(strings.TrimSpace(r.raw("autorestart"))) {
	case "unexpected":
		return RestartUnexpected
	case "true", "yes", "on", "1":
		return RestartAlways
	case "false", "no", "off", "0":
		return RestartNever
	}
	r.fail("autorestart", ErrBadOptionValue)
	return RestartNever
}

func (r *sectionReader) exitCodes() []int {
	var codes []int
	for _, f := range strings.Split(r.raw("exitcodes"), ",") {
		n, e := strconv.Atoi(strings.TrimSpace(f))
		if e != nil || n < 0 || n > 255 {
			r.fail("exitcodes", ErrBadOptionValue)
			return nil
		}
		codes = append(codes, n)
	}
	return codes
}

// environment parses KEY=value pairs separated by commas.
func (r *sectionReader) environment() []string {
	s := r.str("environment")
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var env []string
	for _, kv := range strings.Split(s, ",") {
		kv = strings.TrimSpace(kv)
		i := strings.Index(kv, "=")
		if i <= 0 {
			r.fail("environment", fmt.Errorf("%w: %q", ErrBadOptionValue, kv))
			return nil
		}
		k, v := kv[:i], strings.Trim(kv[i+1:], `"'`)
		env = append(env, k+"="+v)
	}
	return env
}

func (s *Supervisor) expansions(program, group string) map[string]string {
	host, _ := os.Hostname()
	return map[string]string{
		"program_name":   program,
		"group_name":     group,
		"host_node_name": host,
		"here":           s.here,
	}
}

// ProcessesFromSection translates a "program:<name>" section into process
// configs for the named group.  With numprocs greater than one, one config
// is produced per process number, and process_name must then reference
// %(process_num) so that the names differ.  The returned configs are not
// registered anywhere.
func (s *Supervisor) ProcessesFromSection(sec *Section, group string) ([]*ProcessConfig, error) {
	if !strings.HasPrefix(sec.Name, programPrefix) ||
		len(sec.Name) == len(programPrefix) {
		return nil, fmt.Errorf("%w: %q", ErrBadSection, sec.Name)
	}
	program := sec.Name[len(programPrefix):]
	for _, k := range sec.Keys() {
		if _, ok := programDefaults[k]; !ok {
			return nil, fmt.Errorf("%s: %w: %s", sec.Name, ErrUnknownOption, k)
		}
	}
	if v, _ := sec.Get("command"); strings.TrimSpace(v) == "" {
		return nil, fmt.Errorf("%s: %w", sec.Name, ErrMissingCommand)
	}

	r := &sectionReader{sec: sec, vars: s.expansions(program, group)}
	numprocs := r.integer("numprocs", 1)
	start := r.integer("numprocs_start", 0)
	if r.err != nil {
		return nil, r.err
	}
	if numprocs > 1 && !strings.Contains(r.raw("process_name"), "%(process_num)") {
		return nil, fmt.Errorf("%s: %w", sec.Name, ErrNeedProcessNum)
	}

	var configs []*ProcessConfig
	for num := start; num < start+numprocs; num++ {
		r.vars["process_num"] = strconv.Itoa(num)
		c := &ProcessConfig{
			Name:           r.str("process_name"),
			ProgramName:    program,
			CommandLine:    r.str("command"),
			Directory:      r.str("directory"),
			Environment:    r.environment(),
			Priority:       r.integer("priority", 0),
			Autostart:      r.boolean("autostart"),
			Autorestart:    r.autorestart(),
			StartSecs:      r.seconds("startsecs"),
			StartRetries:   r.integer("startretries", 0),
			ExitCodes:      r.exitCodes(),
			StopWait:       r.seconds("stopwaitsecs"),
			StdoutLogfile:  r.str("stdout_logfile"),
			StderrLogfile:  r.str("stderr_logfile"),
			RedirectStderr: r.boolean("redirect_stderr"),
			sup:            s,
		}
		if sig, e := parseSignal(r.raw("stopsignal")); e != nil {
			r.fail("stopsignal", e)
		} else {
			c.StopSignal = sig
		}
		if r.err != nil {
			return nil, r.err
		}
		if c.Name == "" || strings.ContainsAny(c.Name, ": \t/") {
			return nil, fmt.Errorf("%s: %w: %q", sec.Name, ErrBadProcessName, c.Name)
		}
		args, e := shlex.Split(c.CommandLine)
		if e != nil || len(args) == 0 {
			return nil, fmt.Errorf("%s: %w", sec.Name, ErrMissingCommand)
		}
		c.Command = args
		configs = append(configs, c)
	}
	return configs, nil
}
