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

// Package rpc serves a loader Namespace over HTTP, with JSON bodies.
package rpc

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/govisor/loader"
	"github.com/govisor/loader/rest"
)

const (
	mimeJson = "application/json; charset=UTF-8"

	// maxPoll bounds how long a long poll may hold a request.
	maxPoll = 5 * time.Minute
)

// Watcher reports changes to the supervisor, for long polls.
// *supervisor.Supervisor implements it.
type Watcher interface {
	Serial() int64
	WatchSerial(old int64, expire time.Duration) int64
	WatchLog(last int64, expire time.Duration) int64
}

// Handler wraps a Namespace, adding http.Handler functionality.
type Handler struct {
	ns      *loader.Namespace
	w       Watcher
	r       *mux.Router
	users   map[string][]byte
	metrics http.Handler
}

type Option func(*Handler)

// WithBasicAuth requires HTTP basic authentication.  Users maps user
// names to bcrypt password hashes.
func WithBasicAuth(users map[string]string) Option {
	return func(h *Handler) {
		h.users = make(map[string][]byte, len(users))
		for u, hash := range users {
			h.users[u] = []byte(hash)
		}
	}
}

// WithMetrics serves m at /metrics.
func WithMetrics(m http.Handler) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

var faultStatus = map[loader.FaultCode]int{
	loader.FaultIncorrectParameters: http.StatusBadRequest,
	loader.FaultShutdownState:       http.StatusServiceUnavailable,
	loader.FaultBadName:             http.StatusNotFound,
	loader.FaultFailed:              http.StatusInternalServerError,
	loader.FaultAlreadyAdded:        http.StatusConflict,
	loader.FaultStillRunning:        http.StatusConflict,
	loader.FaultNotWhitelisted:      http.StatusForbidden,
}

func (h *Handler) internalError(w http.ResponseWriter, e error) {
	http.Error(w, e.Error(), http.StatusInternalServerError)
}

func (h *Handler) writeJson(w http.ResponseWriter, v interface{}) {
	if b, e := json.Marshal(v); e != nil {
		h.internalError(w, e)
	} else {
		w.Header().Set("Content-Type", mimeJson)
		w.Write(b)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, e *rest.Error) {
	if b, err := json.Marshal(e); err != nil {
		h.internalError(w, err)
	} else {
		w.Header().Set("Content-Type", mimeJson)
		w.WriteHeader(e.Status)
		w.Write(b)
	}
}

func (h *Handler) writeFault(w http.ResponseWriter, err error) {
	f := loader.AsFault(err)
	status, ok := faultStatus[f.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	h.writeError(w, &rest.Error{
		Code:    int(f.Code),
		Kind:    f.Kind(),
		Message: f.Error(),
		Status:  status,
	})
}

func (h *Handler) writeResult(w http.ResponseWriter, v interface{}, e error) {
	if e != nil {
		h.writeFault(w, e)
	} else {
		h.writeJson(w, v)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if e := dec.Decode(v); e != nil {
		h.writeFault(w, &loader.Fault{
			Code:   loader.FaultIncorrectParameters,
			Err:    loader.ErrInvalidParameters,
			Detail: e.Error(),
		})
		return false
	}
	return true
}

// pollTime returns the etag and duration of a long poll request, if any.
func pollTime(r *http.Request) (int64, time.Duration, bool) {
	tag := r.Header.Get(rest.PollEtagHeader)
	if tag == "" {
		return 0, 0, false
	}
	old, e := strconv.ParseInt(tag, 10, 64)
	if e != nil {
		return 0, 0, false
	}
	secs, _ := strconv.Atoi(r.Header.Get(rest.PollTimeHeader))
	d := time.Duration(secs) * time.Second
	if d > maxPoll {
		d = maxPoll
	}
	return old, d, true
}

// notModified sets the Etag, and reports (having written the response)
// whether the client already has this version.
func notModified(w http.ResponseWriter, r *http.Request, tag int64) bool {
	etag := strconv.FormatInt(tag, 10)
	w.Header().Set("Etag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}

func (h *Handler) getVersion(w http.ResponseWriter, r *http.Request) {
	v, e := h.ns.APIVersion()
	h.writeResult(w, v, e)
}

func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	var serial int64
	if old, d, ok := pollTime(r); ok {
		serial = h.w.WatchSerial(old, d)
	} else {
		serial = h.w.Serial()
	}
	names, e := h.ns.GroupNames()
	if e != nil {
		h.writeFault(w, e)
		return
	}
	if !notModified(w, r, serial) {
		h.writeJson(w, names)
	}
}

func (h *Handler) groupExists(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ok, e := h.ns.HasGroup(vars["group"])
	h.writeResult(w, ok, e)
}

func (h *Handler) getGroup(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	gi, e := h.ns.GroupInfo(vars["group"])
	if e != nil {
		h.writeFault(w, e)
		return
	}
	info := &rest.GroupInfo{
		Name:      gi.Name,
		Priority:  gi.Priority,
		Processes: make([]rest.ProcessInfo, 0, len(gi.Processes)),
	}
	for _, p := range gi.Processes {
		info.Processes = append(info.Processes, rest.ProcessInfo{
			Name:        p.Name,
			Group:       p.Group,
			State:       p.State.String(),
			Pid:         p.Pid,
			Description: p.Description,
		})
	}
	h.writeJson(w, info)
}

func (h *Handler) processExists(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ok, e := h.ns.HasProcessInGroup(vars["group"], vars["process"])
	h.writeResult(w, ok, e)
}

func (h *Handler) postLog(w http.ResponseWriter, r *http.Request) {
	req := &rest.LogRequest{}
	if h.decode(w, r, req) {
		h.writeResult(w, true, h.ns.Log(req.Message, string(req.Level)))
	}
}

func (h *Handler) getLog(w http.ResponseWriter, r *http.Request) {
	if old, d, ok := pollTime(r); ok {
		h.w.WatchLog(old, d)
	}
	recs, id, e := h.ns.ReadLog(0)
	if e != nil {
		h.writeFault(w, e)
		return
	}
	if notModified(w, r, id) {
		return
	}
	lines := make([]rest.LogRecord, 0, len(recs))
	for _, rec := range recs {
		lines = append(lines, rest.LogRecord{
			Id:   rec.Id,
			Time: rec.Time,
			Text: rec.Text,
		})
	}
	h.writeJson(w, lines)
}

func (h *Handler) addGroup(w http.ResponseWriter, r *http.Request) {
	req := &rest.AddGroupRequest{}
	if !h.decode(w, r, req) {
		return
	}
	priority := loader.DefaultPriority
	if req.Priority != nil {
		priority = *req.Priority
	}
	h.writeResult(w, true, h.ns.AddGroup(req.Name, priority))
}

func (h *Handler) addProgramToGroup(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	req := &rest.AddProgramRequest{}
	if h.decode(w, r, req) {
		e := h.ns.AddProgramToGroup(vars["group"], req.Name,
			loader.ProgramOptions(req.Options))
		h.writeResult(w, true, e)
	}
}

func (h *Handler) addProgram(w http.ResponseWriter, r *http.Request) {
	req := &rest.AddProgramRequest{}
	if h.decode(w, r, req) {
		e := h.ns.AddProgram(req.Name, loader.ProgramOptions(req.Options))
		h.writeResult(w, true, e)
	}
}

func (h *Handler) removeProcess(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	e := h.ns.RemoveProcessFromGroup(vars["group"], vars["process"])
	h.writeResult(w, true, e)
}

func (h *Handler) authorized(r *http.Request) bool {
	if h.users == nil {
		return true
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	hash, ok := h.users[user]
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(pass)) == nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if !h.authorized(req) {
		w.Header().Set("WWW-Authenticate", `Basic realm="govisor"`)
		h.writeError(w, &rest.Error{
			Kind:    rest.KindUnauthorized,
			Message: "Unauthorized",
			Status:  http.StatusUnauthorized,
		})
		return
	}
	h.r.ServeHTTP(w, req)
}

// NewHandler returns a Handler serving ns.  The watcher is used to hold
// long polls of the group list and of the log.
func NewHandler(ns *loader.Namespace, wt Watcher, opts ...Option) *Handler {
	r := mux.NewRouter()
	h := &Handler{ns: ns, w: wt, r: r}
	for _, o := range opts {
		o(h)
	}
	s := r.PathPrefix(rest.Prefix).Subrouter()
	s.HandleFunc("/version", h.getVersion).Methods("GET")
	s.HandleFunc("/groups", h.listGroups).Methods("GET")
	s.HandleFunc("/groups", h.addGroup).Methods("POST")
	s.HandleFunc("/groups/{group}", h.getGroup).Methods("GET")
	s.HandleFunc("/groups/{group}/exists", h.groupExists).Methods("GET")
	s.HandleFunc("/groups/{group}/programs", h.addProgramToGroup).Methods("POST")
	s.HandleFunc("/groups/{group}/processes/{process}/exists", h.processExists).Methods("GET")
	s.HandleFunc("/groups/{group}/processes/{process}", h.removeProcess).Methods("DELETE")
	s.HandleFunc("/programs", h.addProgram).Methods("POST")
	s.HandleFunc("/log", h.getLog).Methods("GET")
	s.HandleFunc("/log", h.postLog).Methods("POST")
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics).Methods("GET")
	}
	return h
}
