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

// Command govisord runs a supervisor whose process groups can be changed
// at runtime over HTTP.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/govisor/loader"
	"github.com/govisor/loader/rpc"
	"github.com/govisor/loader/supervisor"
)

var addr string = "127.0.0.1:8321"
var conf string = ""
var name string = "govisord"
var whitelist string = ""
var naming string = "counter"
var users string = ""
var level string = "info"
var hashpw string = ""

func parseWhitelist(s string) ([]loader.Method, error) {
	var methods []loader.Method
	for _, w := range strings.Split(s, ",") {
		if w = strings.TrimSpace(w); w == "" {
			continue
		}
		m, e := loader.ParseMethod(w)
		if e != nil {
			return nil, e
		}
		methods = append(methods, m)
	}
	return methods, nil
}

// parseUsers reads user:hash pairs.  Bcrypt hashes contain no commas.
func parseUsers(s string) (map[string]string, error) {
	m := make(map[string]string)
	for _, p := range strings.Split(s, ",") {
		if p == "" {
			continue
		}
		u, h, ok := strings.Cut(p, ":")
		if !ok || u == "" || h == "" {
			return nil, fmt.Errorf("bad user entry %q, want user:hash", p)
		}
		m[u] = h
	}
	return m, nil
}

func main() {
	flag.StringVar(&addr, "a", addr, "listen address")
	flag.StringVar(&conf, "c", conf, "HCL configuration file")
	flag.StringVar(&name, "n", name, "supervisor name")
	flag.StringVar(&whitelist, "w", whitelist, "comma separated methods to allow (default all)")
	flag.StringVar(&naming, "naming", naming, "instance naming: counter or fanout")
	flag.StringVar(&users, "u", users, "comma separated user:bcrypthash pairs for basic auth")
	flag.StringVar(&level, "l", level, "log level")
	flag.StringVar(&hashpw, "hashpw", hashpw, "print the bcrypt hash of a password and exit")
	flag.Parse()

	if hashpw != "" {
		h, e := bcrypt.GenerateFromPassword([]byte(hashpw), bcrypt.DefaultCost)
		if e != nil {
			log.Fatalf("Cannot hash password: %v", e)
		}
		fmt.Println(string(h))
		return
	}

	lvl, e := supervisor.ParseLevel(level)
	if e != nil {
		log.Fatalf("Bad log level: %v", e)
	}
	methods, e := parseWhitelist(whitelist)
	if e != nil {
		log.Fatalf("Bad whitelist: %v", e)
	}
	nm, e := loader.ParseNaming(naming)
	if e != nil {
		log.Fatalf("Bad naming: %v", e)
	}
	accounts, e := parseUsers(users)
	if e != nil {
		log.Fatalf("Bad users: %v", e)
	}

	opts := []supervisor.Option{supervisor.WithLogLevel(lvl)}
	var cfg *supervisor.Config
	if conf != "" {
		if cfg, e = supervisor.LoadConfig(conf); e != nil {
			log.Fatalf("Failed to load %s: %v", conf, e)
		}
		if dir, e := filepath.Abs(filepath.Dir(conf)); e == nil {
			opts = append(opts, supervisor.WithHere(dir))
		}
		if cfg.ChildLogDir != "" {
			opts = append(opts, supervisor.WithChildLogDir(cfg.ChildLogDir))
		}
	}
	s := supervisor.New(name, opts...)

	pm := loader.NewPrometheusMetrics("")
	nsopts := []loader.Option{
		loader.WithNaming(nm),
		loader.WithMetrics(pm),
	}
	if len(methods) != 0 {
		nsopts = append(nsopts, loader.WithWhitelist(methods...))
	}
	ns := loader.NewNamespace(s, nsopts...)

	if cfg != nil {
		if e := ns.Apply(cfg); e != nil {
			log.Fatalf("Failed to apply %s: %v", conf, e)
		}
	}
	s.StartMonitoring()

	hopts := []rpc.Option{
		rpc.WithMetrics(promhttp.HandlerFor(pm.Registry(),
			promhttp.HandlerOpts{})),
	}
	if len(accounts) != 0 {
		hopts = append(hopts, rpc.WithBasicAuth(accounts))
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		log.Fatal(http.ListenAndServe(addr, rpc.NewHandler(ns, s, hopts...)))
	}()

	// Wait for a termination signal, and shutdown cleanly if we get it.
	sig := <-sigs
	s.Log(supervisor.LevelWarn, fmt.Sprintf("Received %v, shutting down", sig))
	// No restarts while children are being stopped.
	s.StopMonitoring()
	s.Shutdown()
	os.Exit(1)
}
