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

package supervisor

import (
	"errors"
)

var (
	ErrBadSection      = errors.New("Bad section name")
	ErrBadOptionName   = errors.New("Bad option name")
	ErrDuplicateOption = errors.New("Duplicate option")
	ErrBadOptionValue  = errors.New("Bad option value")
	ErrUnknownOption   = errors.New("Unknown option")
	ErrMissingCommand  = errors.New("Command is required")
	ErrBadProcessName  = errors.New("Bad process name")
	ErrNeedProcessNum  = errors.New("process_name must contain %(process_num) when numprocs > 1")
	ErrBadExpansion    = errors.New("Bad expansion")
	ErrBadLevel        = errors.New("Bad log level")
	ErrBadSignal       = errors.New("Bad signal name")
	ErrShutdown        = errors.New("Supervisor is shutting down")
)
