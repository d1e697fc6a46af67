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

// Package loader lets a running supervisor grow and shrink its set of
// managed processes without a restart.  Groups can be created, programs
// injected into them (expanding into one or more process instances), and
// stopped processes removed, all while keeping the supervisor's registry
// consistent: process names stay unique within a group, every live
// process has its config and vice versa, and running processes are never
// removed.
//
// The operations are collected in a Namespace, which is what the rpc
// package serves over HTTP.  A Namespace may be restricted to a
// whitelist of methods, and refuses everything once the supervisor is
// shutting down.
//
// Instance naming follows one of two strategies, fixed when the
// Namespace is created.  With CounterNaming each injection of a program
// yields a single instance named <program>_<n>, where n counts up from 1;
// with FanoutNaming the program's own process_name and numprocs options
// decide.
package loader
