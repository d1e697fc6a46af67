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

package loader

import (
	"sort"
)

// InstanceCounter counts, per program name, how many instances have been
// injected, so the next one can be given a fresh ordinal.  It is not safe
// for concurrent use; the Namespace serializes access with the host lock.
//
// The next ordinal is always the count plus one, so instances should be
// removed newest first.  Removing worker_1 while worker_2 exists makes
// the next injection of worker collide with worker_2 (ErrBadName) until
// worker_2 is removed as well.
type InstanceCounter struct {
	counts map[string]int
}

func NewInstanceCounter() *InstanceCounter {
	return &InstanceCounter{counts: make(map[string]int)}
}

// Get returns the count for name, zero if there is none.
func (c *InstanceCounter) Get(name string) int {
	return c.counts[name]
}

func (c *InstanceCounter) Increment(name string) {
	c.counts[name]++
}

// Decrement lowers the count for name, forgetting it at zero.  Names
// without a count are left alone.
func (c *InstanceCounter) Decrement(name string) {
	n, ok := c.counts[name]
	if !ok {
		return
	}
	if n <= 1 {
		delete(c.counts, name)
		return
	}
	c.counts[name] = n - 1
}

func (c *InstanceCounter) Clear() {
	c.counts = make(map[string]int)
}

// Keys returns the counted program names, sorted.
func (c *InstanceCounter) Keys() []string {
	keys := make([]string, 0, len(c.counts))
	for k := range c.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
