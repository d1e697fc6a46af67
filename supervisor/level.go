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
	"strconv"
	"strings"
)

// Level is a log level.  Larger is more severe.
type Level int

const (
	LevelBlather  Level = 3
	LevelTrace    Level = 5
	LevelDebug    Level = 10
	LevelInfo     Level = 20
	LevelWarn     Level = 30
	LevelError    Level = 40
	LevelCritical Level = 50
)

var levelNames = map[Level]string{
	LevelBlather:  "BLAT",
	LevelTrace:    "TRAC",
	LevelDebug:    "DEBG",
	LevelInfo:     "INFO",
	LevelWarn:     "WARN",
	LevelError:    "ERRO",
	LevelCritical: "CRIT",
}

var levelDescriptions = map[string]Level{
	"blather":  LevelBlather,
	"trace":    LevelTrace,
	"debug":    LevelDebug,
	"info":     LevelInfo,
	"warn":     LevelWarn,
	"error":    LevelError,
	"critical": LevelCritical,
}

func (l Level) String() string {
	if n, ok := levelNames[l]; ok {
		return n
	}
	return "L" + strconv.Itoa(int(l))
}

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool {
	_, ok := levelNames[l]
	return ok
}

// ParseLevel accepts a level by short name ("INFO", "erro"), by
// description ("warn", "critical"), or by number ("20").  The empty
// string means LevelInfo.
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return LevelInfo, nil
	}
	if n, e := strconv.Atoi(s); e == nil {
		if l := Level(n); l.Valid() {
			return l, nil
		}
		return 0, ErrBadLevel
	}
	up := strings.ToUpper(s)
	for l, n := range levelNames {
		if n == up {
			return l, nil
		}
	}
	if l, ok := levelDescriptions[strings.ToLower(s)]; ok {
		return l, nil
	}
	return 0, ErrBadLevel
}
