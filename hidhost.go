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

// Package hidhost detects and classifies USB HID devices attached to a host.
//
// hidhost parses raw configuration descriptors returned by enumerated
// devices, locates HID interfaces and their input endpoints, classifies each
// interface as a keyboard, mouse or gamepad, and keeps a time-bounded cache
// of the results. Composite devices (e.g. a keyboard with an integrated
// trackpad) contribute one entry to each classification they satisfy.
//
// The USB transport itself is not part of this package. Enumeration and
// control transfers are consumed through the Device and Enumerator
// interfaces; package gousbhost provides a libusb-backed implementation.
//
// A Cache is not safe for concurrent use. Callers that share one across
// goroutines must serialize access externally.
package hidhost
