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
	"strings"
	"sync"
	"time"
)

const (
	MaxLogRecords = 1000
)

type LogRecord struct {
	Id   int64     `json:"id,string"`
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// Log is a bounded, in-memory ring of log lines.  It implements io.Writer
// so that it can sit behind a log.Logger, and it supports long polling
// for new records via Watch.
type Log struct {
	records    []LogRecord
	numRecords int
	maxRecords int
	id         int64
	cvs        map[*sync.Cond]bool
	mx         sync.Mutex
}

// Write implements the io.Writer consumed by log.Logger.  Each line
// becomes a separate record.
func (l *Log) Write(b []byte) (int, error) {
	str := strings.Trim(string(b), "\n")
	now := time.Now()
	l.mx.Lock()
	for _, line := range strings.Split(str, "\n") {
		idx := l.numRecords % l.maxRecords
		l.id++
		l.records[idx] = LogRecord{Id: l.id, Time: now, Text: line}
		// numRecords keeps growing past maxRecords; it is the next
		// write position, modulo the ring size.
		l.numRecords++
	}
	for cv := range l.cvs {
		cv.Broadcast()
	}
	l.mx.Unlock()
	return len(b), nil
}

func (l *Log) Clear() {
	l.mx.Lock()
	l.numRecords = 0
	// Records cannot arrive more often than once a nanosecond, so a
	// timestamp makes a fresh, monotonic id.
	l.id = time.Now().UnixNano()
	l.mx.Unlock()
}

// GetRecords returns the retained records, oldest first, and the id of the
// newest one.  If last is already the newest id, nil is returned, which
// lets callers use the id as an Etag.
func (l *Log) GetRecords(last int64) ([]LogRecord, int64) {
	l.mx.Lock()
	defer l.mx.Unlock()
	if l.id == last {
		return nil, last
	}
	cnt := l.numRecords
	if cnt > l.maxRecords {
		cnt = l.maxRecords
	}
	recs := make([]LogRecord, 0, cnt)
	for i := l.numRecords - cnt; i < l.numRecords; i++ {
		recs = append(recs, l.records[i%l.maxRecords])
	}
	return recs, l.id
}

// Watch waits until the newest id differs from last, or until expire
// elapses, and returns the newest id.  An expire of zero polls.
func (l *Log) Watch(last int64, expire time.Duration) int64 {
	expired := false
	var timer *time.Timer
	cv := sync.NewCond(&l.mx)
	if expire > 0 {
		timer = time.AfterFunc(expire, func() {
			l.mx.Lock()
			expired = true
			cv.Broadcast()
			l.mx.Unlock()
		})
	} else {
		expired = true
	}

	l.mx.Lock()
	l.cvs[cv] = true
	for l.id == last && !expired {
		cv.Wait()
	}
	delete(l.cvs, cv)
	last = l.id
	l.mx.Unlock()
	if timer != nil {
		timer.Stop()
	}
	return last
}

// NewLog returns an empty Log holding at most max records.  A max of
// zero selects MaxLogRecords.
func NewLog(max int) *Log {
	if max <= 0 {
		max = MaxLogRecords
	}
	return &Log{
		records:    make([]LogRecord, max),
		maxRecords: max,
		id:         time.Now().UnixNano(),
		cvs:        make(map[*sync.Cond]bool),
	}
}
