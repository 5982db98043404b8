// Copyright 2025 the hidhost Authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hidhost

import (
	"errors"
	"fmt"
)

// TransferError reports a transport-level failure or timeout on a control
// request. During a scan it is device-scoped: the offending device is
// skipped and the scan continues. Direct single-device operations surface
// it to the caller.
type TransferError struct {
	// Op names the failed request, e.g. "get device descriptor".
	Op  string
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("usb transfer failed: %s: %v", e.Op, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// IsTransferError reports whether err is or wraps a TransferError.
func IsTransferError(err error) bool {
	var t *TransferError
	return errors.As(err, &t)
}

// DescriptorLengthError reports a descriptor fetch that transferred a
// different number of bytes than requested. A short read indicates a
// non-conformant or disconnected device and is never silently truncated.
type DescriptorLengthError struct {
	// Desc names the descriptor being fetched, e.g. "configuration".
	Desc string
	Want int
	Got  int
}

func (e *DescriptorLengthError) Error() string {
	return fmt.Sprintf("%s descriptor transfer returned %d bytes, want %d", e.Desc, e.Got, e.Want)
}

// IsDescriptorLengthError reports whether err is or wraps a
// DescriptorLengthError.
func IsDescriptorLengthError(err error) bool {
	var l *DescriptorLengthError
	return errors.As(err, &l)
}

// MalformedDescriptorError reports a descriptor blob that cannot be walked:
// a length field below the 2-byte minimum, or a record running past the end
// of the blob.
type MalformedDescriptorError struct {
	Offset int
	Reason string
}

func (e *MalformedDescriptorError) Error() string {
	return fmt.Sprintf("malformed descriptor at offset %d: %s", e.Offset, e.Reason)
}

// IsMalformedDescriptorError reports whether err is or wraps a
// MalformedDescriptorError.
func IsMalformedDescriptorError(err error) bool {
	var m *MalformedDescriptorError
	return errors.As(err, &m)
}
