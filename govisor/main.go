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

// Command govisor implements a client application that communicates with
// govisord to inspect and change its process groups.  It uses
// subcommands.
//
// The flags are
//
//	-a <address>	- select the server address, default is
//			  http://127.0.0.1:8321
//	-u <user:pass>	- user name & password for basic auth
//	-l <file>	- write ui debug messages to file
//
// Subcommands are
//
//	version                      - show the loader API version
//	groups                       - list all groups
//	status [<group> ...]         - show processes of the groups (or all)
//	info <group>                 - show group details
//	exists <group>[:<process>]   - report whether a group or process exists
//	addgroup <group> [<prio>]    - create an empty group
//	add [<group>:]<program> <key>=<value> ...
//	                             - add a program, e.g. command=/bin/app
//	remove <group>:<process>     - remove a stopped process
//	log                          - show the supervisor log
//	write <level> <message>      - write a message to the supervisor log
//	ui                           - start the interactive interface
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/govisor/loader/govisor/util"
	"github.com/govisor/loader/rest"
)

var addr string = "http://127.0.0.1:8321"
var auth string = ""
var logfile string = ""

func usage() {
	log.Fatalf("Usage: %s [-a <address>] [-u <user:pass>] <subcommand>",
		os.Args[0])
}

func showStatus(p *rest.ProcessInfo) {
	fmt.Printf("%-24s %-10s %s\n", util.FullName(p), p.State, p.Description)
}

func fail(e error) {
	if e != nil {
		log.Fatalf("Failed: %v", e)
	}
}

func main() {
	flag.StringVar(&addr, "a", addr, "govisor address")
	flag.StringVar(&auth, "u", auth, "user:pass authentication")
	flag.StringVar(&logfile, "l", logfile, "debug log file for the ui")
	flag.Parse()

	client := rest.NewClient(nil, addr)
	if auth != "" {
		a := strings.SplitN(auth, ":", 2)
		if len(a) != 2 {
			log.Fatalf("Bad user:pass supplied")
		}
		client.SetAuth(a[0], a[1])
	}

	args := flag.Args()
	if len(args) == 0 {
		args = []string{"ui"}
	}

	switch args[0] {
	case "version":
		if len(args) != 1 {
			usage()
		}
		v, e := client.APIVersion()
		fail(e)
		fmt.Println(v)

	case "groups":
		if len(args) != 1 {
			usage()
		}
		names, e := client.GroupNames()
		fail(e)
		for _, name := range names {
			fmt.Println(name)
		}

	case "status":
		names := args[1:]
		if len(names) == 0 {
			var e error
			names, e = client.GroupNames()
			fail(e)
		}
		procs := []*rest.ProcessInfo{}
		for _, n := range names {
			info, e := client.GroupInfo(n)
			if e != nil {
				log.Printf("Failed: %v", e)
				continue
			}
			for i := range info.Processes {
				procs = append(procs, &info.Processes[i])
			}
		}
		util.SortProcesses(procs)
		for _, p := range procs {
			showStatus(p)
		}

	case "info":
		if len(args) != 2 {
			usage()
		}
		info, e := client.GroupInfo(args[1])
		fail(e)
		fmt.Printf("Name:      %s\n", info.Name)
		fmt.Printf("Priority:  %d\n", info.Priority)
		fmt.Printf("Processes: %d\n", len(info.Processes))
		for i := range info.Processes {
			p := &info.Processes[i]
			fmt.Printf("  %-20s %-10s pid %-7d %s\n",
				p.Name, p.State, p.Pid, p.Description)
		}

	case "exists":
		if len(args) != 2 {
			usage()
		}
		var ok bool
		var e error
		if group, name, found := strings.Cut(args[1], ":"); found {
			ok, e = client.HasProcessInGroup(group, name)
		} else {
			ok, e = client.HasGroup(group)
		}
		fail(e)
		fmt.Println(ok)
		if !ok {
			os.Exit(1)
		}

	case "addgroup":
		if len(args) != 2 && len(args) != 3 {
			usage()
		}
		prio := 999
		if len(args) == 3 {
			var e error
			if prio, e = strconv.Atoi(args[2]); e != nil {
				log.Fatalf("Bad priority %q", args[2])
			}
		}
		fail(client.AddGroup(args[1], prio))

	case "add":
		if len(args) < 3 {
			usage()
		}
		opts, e := util.ParseOptions(args[2:])
		fail(e)
		if group, program, found := strings.Cut(args[1], ":"); found {
			fail(client.AddProgramToGroup(group, program, opts))
		} else {
			fail(client.AddProgram(args[1], opts))
		}

	case "remove":
		if len(args) != 2 {
			usage()
		}
		group, name, e := util.SplitName(args[1])
		fail(e)
		fail(client.RemoveProcessFromGroup(group, name))

	case "log":
		if len(args) != 1 {
			usage()
		}
		li, e := client.GetLog()
		fail(e)
		for _, r := range li.Records {
			fmt.Println(r.Text)
		}

	case "write":
		if len(args) < 3 {
			usage()
		}
		fail(client.Log(strings.Join(args[2:], " "), args[1]))

	case "ui":
		var logger *log.Logger
		if logfile != "" {
			f, e := os.OpenFile(logfile,
				os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
			fail(e)
			defer f.Close()
			logger = log.New(f, "", log.LstdFlags)
		}
		doUI(client, addr, logger)

	default:
		usage()
	}
}
