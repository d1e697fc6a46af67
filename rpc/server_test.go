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

package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/net/context"

	"github.com/govisor/loader"
	"github.com/govisor/loader/rest"
	"github.com/govisor/loader/supervisor"
)

type testLog struct {
	t *testing.T
}

func (tl *testLog) Write(p []byte) (n int, err error) {
	tl.t.Log(strings.Trim(string(p), "\n"))
	return len(p), nil
}

type fixture struct {
	s   *supervisor.Supervisor
	ns  *loader.Namespace
	srv *httptest.Server
	c   *rest.Client
}

func WithServer(t *testing.T, nsOpts []loader.Option, opts []Option, fn func(f *fixture)) func() {
	return func() {
		s := supervisor.New("rpc-test",
			supervisor.WithLogWriter(&testLog{t: t}),
			supervisor.WithLogLevel(supervisor.LevelDebug),
			supervisor.WithChildLogDir(t.TempDir()))
		ns := loader.NewNamespace(s, nsOpts...)
		srv := httptest.NewServer(NewHandler(ns, s, opts...))
		Reset(func() {
			srv.Close()
			s.Shutdown()
		})
		fn(&fixture{s: s, ns: ns, srv: srv, c: rest.NewClient(nil, srv.URL)})
	}
}

func restError(e error) *rest.Error {
	var re *rest.Error
	if errors.As(e, &re) {
		return re
	}
	return nil
}

func TestClientRoundTrip(t *testing.T) {
	Convey("Given a server and a client", t, WithServer(t, nil, nil, func(f *fixture) {
		c := f.c

		v, e := c.APIVersion()
		So(e, ShouldBeNil)
		So(v, ShouldEqual, loader.APIVersion)

		names, e := c.GroupNames()
		So(e, ShouldBeNil)
		So(names, ShouldBeEmpty)

		Convey("Programs are injected into a new group", func() {
			e := c.AddProgramToGroup("web", "worker", map[string]interface{}{
				"command":   "run.sh",
				"startsecs": 0,
			})
			So(e, ShouldBeNil)
			ok, e := c.HasGroup("web")
			So(e, ShouldBeNil)
			So(ok, ShouldBeTrue)
			ok, e = c.HasProcessInGroup("web", "worker_1")
			So(e, ShouldBeNil)
			So(ok, ShouldBeTrue)

			info, e := c.GroupInfo("web")
			So(e, ShouldBeNil)
			So(info.Name, ShouldEqual, "web")
			So(info.Priority, ShouldEqual, loader.DefaultPriority)
			So(len(info.Processes), ShouldEqual, 1)
			So(info.Processes[0].Name, ShouldEqual, "worker_1")
			So(info.Processes[0].State, ShouldEqual, "STOPPED")

			names, e := c.GroupNames()
			So(e, ShouldBeNil)
			So(names, ShouldResemble, []string{"web"})

			Convey("And removed again", func() {
				So(c.RemoveProcessFromGroup("web", "worker_1"), ShouldBeNil)
				ok, e := c.HasProcessInGroup("web", "worker_1")
				So(e, ShouldBeNil)
				So(ok, ShouldBeFalse)
				e = c.RemoveProcessFromGroup("web", "worker_1")
				re := restError(e)
				So(re, ShouldNotBeNil)
				So(re.Status, ShouldEqual, http.StatusNotFound)
				So(re.Kind, ShouldEqual, rest.KindBadName)
				So(re.Code, ShouldEqual, int(loader.FaultBadName))
			})
		})

		Convey("AddProgram names the group after the program", func() {
			So(c.AddProgram("x", map[string]interface{}{"command": "/bin/true"}), ShouldBeNil)
			ok, _ := c.HasProcessInGroup("x", "x_1")
			So(ok, ShouldBeTrue)
		})

		Convey("Duplicate groups conflict", func() {
			So(c.AddGroup("g", 5), ShouldBeNil)
			re := restError(c.AddGroup("g", 5))
			So(re, ShouldNotBeNil)
			So(re.Status, ShouldEqual, http.StatusConflict)
			So(re.Kind, ShouldEqual, rest.KindAlreadyAdded)
			So(re.Code, ShouldEqual, 90)
		})

		Convey("Bad options are bad requests", func() {
			re := restError(c.AddProgram("x", map[string]interface{}{"nosuch": 1, "command": "x"}))
			So(re, ShouldNotBeNil)
			So(re.Status, ShouldEqual, http.StatusBadRequest)
			So(re.Kind, ShouldEqual, rest.KindIncorrectParameters)
		})

		Convey("Log messages can be written and read back", func() {
			So(c.Log("from the client", "WARN"), ShouldBeNil)
			li, e := c.GetLog()
			So(e, ShouldBeNil)
			found := false
			for _, r := range li.Records {
				if strings.Contains(r.Text, "from the client") {
					found = true
				}
			}
			So(found, ShouldBeTrue)

			re := restError(c.Log("x", "shouty"))
			So(re, ShouldNotBeNil)
			So(re.Status, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Group watches wake on change", func() {
			_, etag, e := c.WatchGroups(context.Background(), "")
			So(e, ShouldBeNil)
			So(etag, ShouldNotBeEmpty)
			go func() {
				time.Sleep(20 * time.Millisecond)
				f.ns.AddGroup("late", 1)
			}()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			names, netag, e := c.WatchGroups(ctx, etag)
			So(e, ShouldBeNil)
			So(netag, ShouldNotEqual, etag)
			So(names, ShouldResemble, []string{"late"})
		})
	}))
}

func TestFaultStatus(t *testing.T) {
	nsOpts := []loader.Option{loader.WithWhitelist(loader.MethodGetAPIVersion)}
	Convey("Methods off the whitelist are forbidden", t, WithServer(t, nsOpts, nil, func(f *fixture) {
		_, e := f.c.APIVersion()
		So(e, ShouldBeNil)
		re := restError(f.c.AddGroup("x", 1))
		So(re, ShouldNotBeNil)
		So(re.Status, ShouldEqual, http.StatusForbidden)
		So(re.Kind, ShouldEqual, rest.KindNotWhitelisted)
		So(re.Code, ShouldEqual, 100)
	}))

	Convey("Everything is unavailable after shutdown", t, WithServer(t, nil, nil, func(f *fixture) {
		f.s.Shutdown()
		_, e := f.c.APIVersion()
		re := restError(e)
		So(re, ShouldNotBeNil)
		So(re.Status, ShouldEqual, http.StatusServiceUnavailable)
		So(re.Kind, ShouldEqual, rest.KindShutdownState)
	}))

	Convey("Running processes cannot be removed", t, WithServer(t, nil, nil, func(f *fixture) {
		So(f.c.AddProgram("sleeper", map[string]interface{}{
			"command":   "/bin/sleep 30",
			"startsecs": 0,
		}), ShouldBeNil)
		f.s.StartMonitoring()
		running := false
		for i := 0; i < 400 && !running; i++ {
			info, e := f.c.GroupInfo("sleeper")
			So(e, ShouldBeNil)
			running = info.Processes[0].Pid != 0
			time.Sleep(5 * time.Millisecond)
		}
		So(running, ShouldBeTrue)
		re := restError(f.c.RemoveProcessFromGroup("sleeper", "sleeper_1"))
		So(re, ShouldNotBeNil)
		So(re.Status, ShouldEqual, http.StatusConflict)
		So(re.Kind, ShouldEqual, rest.KindStillRunning)
	}))

	Convey("Malformed bodies are bad requests", t, WithServer(t, nil, nil, func(f *fixture) {
		res, e := http.Post(f.srv.URL+"/loader/groups", "application/json",
			strings.NewReader("{not json"))
		So(e, ShouldBeNil)
		defer res.Body.Close()
		So(res.StatusCode, ShouldEqual, http.StatusBadRequest)
		re := &rest.Error{}
		So(json.NewDecoder(res.Body).Decode(re), ShouldBeNil)
		So(re.Kind, ShouldEqual, rest.KindIncorrectParameters)
	}))

	Convey("Numeric log levels are accepted", t, WithServer(t, nil, nil, func(f *fixture) {
		body := bytes.NewBufferString(`{"message": "numbered", "level": 30}`)
		res, e := http.Post(f.srv.URL+"/loader/log", "application/json", body)
		So(e, ShouldBeNil)
		res.Body.Close()
		So(res.StatusCode, ShouldEqual, http.StatusOK)
	}))
}

func TestBasicAuth(t *testing.T) {
	hash, e := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if e != nil {
		t.Fatal(e)
	}
	opts := []Option{WithBasicAuth(map[string]string{"admin": string(hash)})}
	Convey("Given a server requiring authentication", t, WithServer(t, nil, opts, func(f *fixture) {
		Convey("Anonymous requests are refused", func() {
			_, e := f.c.APIVersion()
			re := restError(e)
			So(re, ShouldNotBeNil)
			So(re.Status, ShouldEqual, http.StatusUnauthorized)
		})
		Convey("Wrong passwords are refused", func() {
			f.c.SetAuth("admin", "guess")
			_, e := f.c.APIVersion()
			So(restError(e).Status, ShouldEqual, http.StatusUnauthorized)
		})
		Convey("The right password is accepted", func() {
			f.c.SetAuth("admin", "secret")
			v, e := f.c.APIVersion()
			So(e, ShouldBeNil)
			So(v, ShouldEqual, loader.APIVersion)
		})
	}))
}

func TestMetricsEndpoint(t *testing.T) {
	pm := loader.NewPrometheusMetrics("")
	nsOpts := []loader.Option{loader.WithMetrics(pm)}
	opts := []Option{WithMetrics(promhttp.HandlerFor(pm.Registry(), promhttp.HandlerOpts{}))}
	Convey("Metrics are served", t, WithServer(t, nsOpts, opts, func(f *fixture) {
		So(f.c.AddGroup("a", 1), ShouldBeNil)
		res, e := http.Get(f.srv.URL + "/metrics")
		So(e, ShouldBeNil)
		defer res.Body.Close()
		So(res.StatusCode, ShouldEqual, http.StatusOK)
		b, e := io.ReadAll(res.Body)
		So(e, ShouldBeNil)
		So(string(b), ShouldContainSubstring, `loader_calls_total{fault="none",method="addGroup"} 1`)
		So(string(b), ShouldContainSubstring, "loader_groups 1")
	}))
}
