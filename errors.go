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

package loader

import (
	"errors"
)

// FaultCode is the machine readable kind of a failed call.  The values
// follow the supervisord fault numbering where one exists.
type FaultCode int

const (
	FaultIncorrectParameters FaultCode = 2
	FaultShutdownState       FaultCode = 6
	FaultBadName             FaultCode = 10
	FaultFailed              FaultCode = 30
	FaultAlreadyAdded        FaultCode = 90
	FaultStillRunning        FaultCode = 91
	FaultNotWhitelisted      FaultCode = 100
)

var (
	ErrShutdown          = errors.New("Supervisor is shutting down")
	ErrNotWhitelisted    = errors.New("Method not whitelisted")
	ErrAlreadyAdded      = errors.New("Already added")
	ErrBadName           = errors.New("Bad name")
	ErrInvalidParameters = errors.New("Incorrect parameters")
	ErrStillRunning      = errors.New("Process still running")
	ErrFailed            = errors.New("Failed")
)

var faultCodes = map[error]FaultCode{
	ErrShutdown:          FaultShutdownState,
	ErrNotWhitelisted:    FaultNotWhitelisted,
	ErrAlreadyAdded:      FaultAlreadyAdded,
	ErrBadName:           FaultBadName,
	ErrInvalidParameters: FaultIncorrectParameters,
	ErrStillRunning:      FaultStillRunning,
	ErrFailed:            FaultFailed,
}

var faultKinds = map[FaultCode]string{
	FaultIncorrectParameters: "INCORRECT_PARAMETERS",
	FaultShutdownState:       "SHUTDOWN_STATE",
	FaultBadName:             "BAD_NAME",
	FaultFailed:              "FAILED",
	FaultAlreadyAdded:        "ALREADY_ADDED",
	FaultStillRunning:        "STILL_RUNNING",
	FaultNotWhitelisted:      "NOT_WHITELISTED",
}

func (c FaultCode) String() string {
	if k, ok := faultKinds[c]; ok {
		return k
	}
	return "UNKNOWN"
}

// Fault is the error returned by every Namespace method.  It unwraps to
// one of the Err sentinels, so errors.Is works as expected; Detail names
// the group, process, or option involved.
type Fault struct {
	Code   FaultCode
	Err    error
	Detail string
}

func (f *Fault) Error() string {
	if f.Detail == "" {
		return f.Err.Error()
	}
	return f.Err.Error() + ": " + f.Detail
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// Kind returns the symbolic fault name, e.g. "BAD_NAME".
func (f *Fault) Kind() string {
	return f.Code.String()
}

func fault(err error, detail string) *Fault {
	code, ok := faultCodes[err]
	if !ok {
		code = FaultFailed
	}
	return &Fault{Code: code, Err: err, Detail: detail}
}

// AsFault returns err as a *Fault.  Errors that are not already faults
// become FAILED.
func AsFault(err error) *Fault {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return fault(ErrFailed, err.Error())
}
