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

package rest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/net/context"
)

type LogInfo struct {
	etag    string
	Records []LogRecord
}

// Client talks to the loader resources of a govisord server.  It caches
// the group list and the log, so that repeated requests can be answered
// with 304 Not Modified.
type Client struct {
	user      string // HTTP Basic-Auth
	pass      string
	base      string // URI to root of tree on server
	auth      bool
	client    *http.Client
	transport *http.Transport

	// Cached data
	names []string // group names
	etag  string   // etag for list of groups
	log   *LogInfo
	lock  sync.Mutex
}

func (c *Client) SetAuth(user string, pass string) {
	c.user = user
	c.pass = pass
	c.auth = true
}

func (c *Client) url(elems ...string) string {
	u := c.base + Prefix
	for _, e := range elems {
		u += "/" + url.PathEscape(e)
	}
	return u
}

func (c *Client) newRequest(ctx context.Context, method, url string, body interface{}) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		b, e := json.Marshal(body)
		if e != nil {
			return nil, e
		}
		rd = bytes.NewReader(b)
	}
	req, e := http.NewRequestWithContext(ctx, method, url, rd)
	if e != nil {
		return nil, e
	}
	if body != nil {
		req.Header.Set("Content-Type", mimeJson)
	}
	if c.auth {
		req.SetBasicAuth(c.user, c.pass)
	}
	return req, nil
}

func decodeError(res *http.Response) error {
	e := &Error{}
	body, _ := io.ReadAll(res.Body)
	if json.Unmarshal(body, e) != nil || e.Message == "" {
		e.Message = res.Status
	}
	e.Status = res.StatusCode
	return e
}

// poll issues an HTTP GET against the URL, optionally checking for a cache,
// including optionally issuing a long poll that tries to wait until the
// value changes.  The return values are the new Etag and any error.  If the
// value did not change, then the returned etag will be "", but the error will
// be nil.
func (c *Client) poll(ctx context.Context, url string, etag string, wait int, v interface{}) (string, error) {

	req, e := c.newRequest(ctx, "GET", url, nil)
	if e != nil {
		return "", e
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
		if wait > 0 {
			req.Header.Set(PollEtagHeader, etag)
			req.Header.Set(PollTimeHeader, strconv.Itoa(wait))
		}
	}

	res, e := c.client.Do(req)
	if e != nil {
		return "", e
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotModified {
		return "", nil
	}
	if res.StatusCode != http.StatusOK {
		return "", decodeError(res)
	}
	if e := json.NewDecoder(res.Body).Decode(v); e != nil {
		return "", e
	}
	return res.Header.Get("Etag"), nil
}

// call issues a request that is never cached, decoding the result into v
// if it is not nil.
func (c *Client) call(method, url string, body interface{}, v interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, e := c.newRequest(ctx, method, url, body)
	if e != nil {
		return e
	}
	res, e := c.client.Do(req)
	if e != nil {
		return e
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return decodeError(res)
	}
	if v == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(v)
}

func (c *Client) get(url string, v interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, e := c.poll(ctx, url, "", 0, v)
	return e
}

func (c *Client) APIVersion() (string, error) {
	v := ""
	e := c.get(c.url("version"), &v)
	return v, e
}

func (c *Client) pollGroups(ctx context.Context, otag string, secs int) ([]string, string, error) {
	c.lock.Lock()
	if otag == "" {
		otag = c.etag
		secs = 0
	}
	onames := c.names
	c.lock.Unlock()

	v := []string{}
	etag, e := c.poll(ctx, c.url("groups"), otag, secs, &v)
	if e != nil {
		return nil, "", e
	}
	if etag == "" {
		return onames, otag, nil
	}
	c.lock.Lock()
	c.etag = etag
	c.names = v
	c.lock.Unlock()
	return v, etag, nil
}

// GroupNames returns the names of the live groups.
func (c *Client) GroupNames() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	names, _, e := c.pollGroups(ctx, "", 0)
	return names, e
}

// WatchGroups waits for the process topology to change from the one
// identified by etag, and returns the group names with the new etag.  An
// empty etag returns at once.
func (c *Client) WatchGroups(ctx context.Context, etag string) ([]string, string, error) {
	return c.pollGroups(ctx, etag, 300)
}

func (c *Client) HasGroup(group string) (bool, error) {
	v := false
	e := c.get(c.url("groups", group, "exists"), &v)
	return v, e
}

func (c *Client) HasProcessInGroup(group, process string) (bool, error) {
	v := false
	e := c.get(c.url("groups", group, "processes", process, "exists"), &v)
	return v, e
}

func (c *Client) GroupInfo(group string) (*GroupInfo, error) {
	v := &GroupInfo{}
	if e := c.get(c.url("groups", group), v); e != nil {
		return nil, e
	}
	return v, nil
}

// Log writes a message to the supervisor log; level is a level name or
// number.
func (c *Client) Log(message, level string) error {
	return c.call("POST", c.url("log"),
		&LogRequest{Message: message, Level: LogLevel(level)}, nil)
}

func (c *Client) AddGroup(name string, priority int) error {
	return c.call("POST", c.url("groups"),
		&AddGroupRequest{Name: name, Priority: &priority}, nil)
}

func (c *Client) AddProgramToGroup(group, program string, options map[string]interface{}) error {
	return c.call("POST", c.url("groups", group, "programs"),
		&AddProgramRequest{Name: program, Options: options}, nil)
}

func (c *Client) AddProgram(program string, options map[string]interface{}) error {
	return c.call("POST", c.url("programs"),
		&AddProgramRequest{Name: program, Options: options}, nil)
}

func (c *Client) RemoveProcessFromGroup(group, process string) error {
	return c.call("DELETE", c.url("groups", group, "processes", process), nil, nil)
}

func (c *Client) pollLog(ctx context.Context, secs int, last *LogInfo) (*LogInfo, error) {

	c.lock.Lock()
	cached := c.log
	c.lock.Unlock()

	otag := ""
	if last == nil {
		secs = 0
		if cached != nil {
			otag = cached.etag
		}
	} else if cached != nil && last.etag != cached.etag {
		// The cache is newer than what the caller has seen.
		return cached, nil
	} else {
		otag = last.etag
	}

	v := &LogInfo{}
	etag, e := c.poll(ctx, c.url("log"), otag, secs, &v.Records)
	if e != nil {
		c.lock.Lock()
		c.log = nil
		c.lock.Unlock()
		return nil, e
	}
	if etag == "" {
		return cached, nil
	}
	v.etag = etag
	c.lock.Lock()
	c.log = v
	c.lock.Unlock()
	return v, nil
}

// WatchLog waits for the log to change from last.
func (c *Client) WatchLog(ctx context.Context, last *LogInfo) (*LogInfo, error) {

	// Let the poll wait for up to 300 secs (5 minutes).
	return c.pollLog(ctx, 300, last)
}

func (c *Client) GetLog() (*LogInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.pollLog(ctx, 0, nil)
}

// NewClient returns a Client handle.  The transport maybe nil to use
// a default transport, but it may also be adjusted to support additional
// options such as TLS.  baseURI is the base URL to use.
func NewClient(t *http.Transport, baseURI string) *Client {
	if t == nil {
		t = &http.Transport{}
	}
	c := &Client{
		transport: t,
		base:      baseURI,
		client:    &http.Client{Transport: t},
	}
	return c
}
