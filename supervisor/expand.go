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
	"regexp"
	"strconv"
)

// Option values may refer to per-instance values using the supervisord
// style of %(name)s or %(name)d, with optional printf flags and width,
// e.g. %(process_num)02d.  A literal percent sign is written %%.
var expandRe = regexp.MustCompile(`%%|%\(([A-Za-z_][A-Za-z0-9_]*)\)([-0 +#]*[0-9]*)([sd])`)

func expand(s string, vars map[string]string) (string, error) {
	var err error
	out := expandRe.ReplaceAllStringFunc(s, func(m string) string {
		if m == "%%" {
			return "%"
		}
		parts := expandRe.FindStringSubmatch(m)
		name, flags, verb := parts[1], parts[2], parts[3]
		v, ok := vars[name]
		if !ok {
			if err == nil {
				err = fmt.Errorf("%w: unknown name %q in %q",
					ErrBadExpansion, name, s)
			}
			return m
		}
		if verb == "s" {
			return fmt.Sprintf("%"+flags+"s", v)
		}
		n, e := strconv.Atoi(v)
		if e != nil {
			if err == nil {
				err = fmt.Errorf("%w: %s is not a number",
					ErrBadExpansion, name)
			}
			return m
		}
		return fmt.Sprintf("%"+flags+"d", n)
	})
	return out, err
}
