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
	"log"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLog(t *testing.T) {
	Convey("A small ring log", t, func() {
		l := NewLog(3)
		recs, id := l.GetRecords(0)
		So(len(recs), ShouldEqual, 0)

		for i := 0; i < 5; i++ {
			fmt.Fprintf(l, "line %d\n", i)
		}
		recs, id2 := l.GetRecords(id)
		So(id2, ShouldNotEqual, id)
		So(len(recs), ShouldEqual, 3)
		So(recs[0].Text, ShouldEqual, "line 2")
		So(recs[2].Text, ShouldEqual, "line 4")

		Convey("Is unchanged when polled with the same id", func() {
			recs, id3 := l.GetRecords(id2)
			So(recs, ShouldBeNil)
			So(id3, ShouldEqual, id2)
		})

		Convey("Watch returns when a line arrives", func() {
			go func() {
				time.Sleep(10 * time.Millisecond)
				l.Write([]byte("late\n"))
			}()
			So(l.Watch(id2, time.Second), ShouldNotEqual, id2)
		})

		Convey("Watch times out", func() {
			So(l.Watch(id2, 10*time.Millisecond), ShouldEqual, id2)
		})
	})

	Convey("A MultiLogger filters by level", t, func() {
		quiet, loud := NewLog(10), NewLog(10)
		ml := NewMultiLogger()
		ml.AddLogger(log.New(quiet, "", 0), LevelWarn)
		ml.AddLogger(log.New(loud, "", 0), LevelDebug)
		ml.Log(LevelInfo, "hello")
		ml.Log(LevelError, "oops")

		recs, _ := quiet.GetRecords(0)
		So(len(recs), ShouldEqual, 1)
		So(recs[0].Text, ShouldEqual, "ERRO oops")
		recs, _ = loud.GetRecords(0)
		So(len(recs), ShouldEqual, 2)
	})
}
