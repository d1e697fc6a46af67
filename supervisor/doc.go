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

// Package supervisor is the host side of govisor: a registry of named
// process groups, the declarative configuration each group is built from,
// and the process instances derived from that configuration.
//
// A Supervisor is deliberately modeled after a traditional supervisord.
// Groups own an ordered list of ProcessConfig values, and a map of live
// Process instances keyed by name.  Programs are described by a Section
// (a named set of string options), which the Supervisor translates into
// one or more ProcessConfig values, fanning out by numprocs.
//
// All registry state is guarded by a single lock.  Code that inspects or
// mutates groups, their configuration, or their processes must hold it
// (see Lock and Unlock).  The monitor loop, which starts and reaps child
// processes, takes the same lock.
package supervisor
