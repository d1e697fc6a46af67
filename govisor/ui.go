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

//go:build !plan9 && !nacl

package main

import (
	"log"

	"github.com/govisor/loader/govisor/ui"
	"github.com/govisor/loader/rest"
)

func doUI(client *rest.Client, url string, logger *log.Logger) {
	app := ui.NewApp(client, url)
	app.SetLogger(logger)
	app.Run()
}

/*
   Our screen has the following appearance:

    http://localhost:8321/                                      Govisor v1.2
      12 Processes      1 Faulted      9 Running      2 Stopped
   ____________________________________________________________________________
   web:worker_1             RUNNING    pid 4711, uptime 4h10m32s
   web:worker_2             FATAL      Exited too quickly
   cron:cron                STOPPED    Not started
   ...
   ____________________________________________________________________________
   [Q] Quit [H] Help [I] Info [L] Log [X] Remove
*/
