// Copyright 2015 The Govisor Authors
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
	"log"
	"sync"
)

type levelLogger struct {
	logger *log.Logger
	min    Level
}

// MultiLogger fans a leveled message out to several log.Logger
// destinations.  Each destination has its own threshold, so for example
// stderr can carry only warnings while the in-memory ring keeps
// everything down to debug.
type MultiLogger struct {
	loggers []levelLogger
	lock    sync.Mutex
}

// AddLogger registers a destination that receives every message at or
// above min.  Adding the same logger again just updates its threshold.
func (l *MultiLogger) AddLogger(logger *log.Logger, min Level) {
	l.lock.Lock()
	defer l.lock.Unlock()
	for i := range l.loggers {
		if l.loggers[i].logger == logger {
			l.loggers[i].min = min
			return
		}
	}
	l.loggers = append(l.loggers, levelLogger{logger: logger, min: min})
}

// DelLogger removes a destination.
func (l *MultiLogger) DelLogger(logger *log.Logger) {
	l.lock.Lock()
	defer l.lock.Unlock()
	for i, x := range l.loggers {
		if x.logger == logger {
			l.loggers = append(l.loggers[:i], l.loggers[i+1:]...)
			break
		}
	}
}

// Log writes msg, prefixed by the level name, to every destination whose
// threshold admits it.
func (l *MultiLogger) Log(level Level, msg string) {
	l.lock.Lock()
	for _, x := range l.loggers {
		if level >= x.min {
			x.logger.Print(level.String(), " ", msg)
		}
	}
	l.lock.Unlock()
}

func NewMultiLogger() *MultiLogger {
	return &MultiLogger{}
}
