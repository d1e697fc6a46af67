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
	"encoding/json"
	"fmt"
	"math/big"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/govisor/loader/supervisor"
)

// ProgramOptions maps program option names to values, as decoded from a
// JSON request.  Strings, numbers and booleans are accepted.
type ProgramOptions map[string]interface{}

func (o ProgramOptions) copy() ProgramOptions {
	n := make(ProgramOptions, len(o))
	for k, v := range o {
		n[k] = v
	}
	return n
}

func optionValue(v interface{}) (cty.Value, error) {
	switch v := v.(type) {
	case string:
		return cty.StringVal(v), nil
	case bool:
		return cty.BoolVal(v), nil
	case int:
		return cty.NumberIntVal(int64(v)), nil
	case int32:
		return cty.NumberIntVal(int64(v)), nil
	case int64:
		return cty.NumberIntVal(v), nil
	case uint:
		return cty.NumberUIntVal(uint64(v)), nil
	case uint32:
		return cty.NumberUIntVal(uint64(v)), nil
	case uint64:
		return cty.NumberUIntVal(v), nil
	case float64:
		return cty.NumberFloatVal(v), nil
	case json.Number:
		f, _, e := big.ParseFloat(string(v), 10, 512, big.ToNearestEven)
		if e != nil {
			return cty.NilVal, e
		}
		return cty.NumberVal(f), nil
	case cty.Value:
		return v, nil
	}
	return cty.NilVal, fmt.Errorf("unsupported type %T", v)
}

// BuildSection makes a configuration section called name holding every
// option.  Options are added in name order.  A key or value that cannot
// be represented fails with ErrInvalidParameters.
func BuildSection(name string, options ProgramOptions) (*supervisor.Section, error) {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sec := supervisor.NewSection(name)
	for _, k := range keys {
		v, e := optionValue(options[k])
		if e != nil {
			return nil, fault(ErrInvalidParameters,
				fmt.Sprintf("%s: %v", k, e))
		}
		if e = sec.Set(k, v); e != nil {
			return nil, fault(ErrInvalidParameters, e.Error())
		}
	}
	return sec, nil
}
