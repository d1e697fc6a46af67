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
	"strings"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Section is a named group of options, such as "program:web".  Option
// names are case insensitive and are stored folded to lower case; values
// are always strings.  The order in which options were set is kept.
type Section struct {
	Name   string
	keys   []string
	values map[string]string
}

func NewSection(name string) *Section {
	return &Section{Name: name, values: make(map[string]string)}
}

// Set adds an option.  Any value that go-cty can convert to a string is
// accepted (strings, numbers and booleans); collections, null and unknown
// values are not.  Setting an option twice is an error.
func (s *Section) Set(key string, v cty.Value) error {
	if !hclsyntax.ValidIdentifier(key) {
		return fmt.Errorf("%w: %q", ErrBadOptionName, key)
	}
	key = strings.ToLower(key)
	if _, ok := s.values[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateOption, key)
	}
	if v.IsNull() || !v.IsWhollyKnown() {
		return fmt.Errorf("%w: %s", ErrBadOptionValue, key)
	}
	sv, e := convert.Convert(v, cty.String)
	if e != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadOptionValue, key, e)
	}
	s.keys = append(s.keys, key)
	s.values[key] = sv.AsString()
	return nil
}

// Get returns the value of an option, and whether it was present.
func (s *Section) Get(key string) (string, bool) {
	v, ok := s.values[strings.ToLower(key)]
	return v, ok
}

// Keys returns the option names in the order they were set.
func (s *Section) Keys() []string {
	return append([]string{}, s.keys...)
}

func (s *Section) Len() int {
	return len(s.keys)
}
