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
	"fmt"
	"strconv"
)

// Constants based on USB 2.0 spec, section 9.

const (
	deviceDescLen = 18
	configDescLen = 9
	intfDescLen   = 9
	epDescLen     = 7
)

// GET_DESCRIPTOR control request.
const (
	controlIn            = 0x80
	requestGetDescriptor = 0x06
)

// HID boot protocol triple values (HID 1.11, section 4.2/4.3).
const (
	bootInterfaceSubclass = 0x01
	keyboardProtocol      = 0x01
	mouseProtocol         = 0x02
	noProtocol            = 0x00
)

// ID represents a vendor or product ID.
type ID uint16

// String returns a hexadecimal ID.
func (id ID) String() string {
	return fmt.Sprintf("%04x", int(id))
}

// BCD is a binary-coded decimal version number.
type BCD uint16

// String returns a dotted representation of the BCD value (major.minor).
func (d BCD) String() string {
	return fmt.Sprintf("%02x.%02x", int(d>>8), int(d&0xFF))
}

// Class represents a USB-IF (sub)class code.
type Class uint8

const (
	ClassPerInterface Class = 0x00
	ClassAudio        Class = 0x01
	ClassComm         Class = 0x02
	ClassHID          Class = 0x03
	ClassPhysical     Class = 0x05
	ClassImage        Class = 0x06
	ClassPrinter      Class = 0x07
	ClassMassStorage  Class = 0x08
	ClassHub          Class = 0x09
	ClassData         Class = 0x0a
	ClassWireless     Class = 0xe0
	ClassApplication  Class = 0xfe
	ClassVendorSpec   Class = 0xff
)

var classDescription = map[Class]string{
	ClassPerInterface: "per-interface",
	ClassAudio:        "audio",
	ClassComm:         "communications",
	ClassHID:          "human interface device",
	ClassPhysical:     "physical",
	ClassImage:        "image",
	ClassPrinter:      "printer",
	ClassMassStorage:  "mass storage",
	ClassHub:          "hub",
	ClassData:         "data",
	ClassWireless:     "wireless",
	ClassApplication:  "application",
	ClassVendorSpec:   "vendor-specific",
}

// String returns a human-readable name of the device class.
func (c Class) String() string {
	if d, ok := classDescription[c]; ok {
		return d
	}
	return strconv.Itoa(int(c))
}

// Protocol is the interface class protocol, qualified by the values
// of interface class and subclass.
type Protocol uint8

// String returns a human-readable representation of the protocol.
func (p Protocol) String() string {
	return strconv.Itoa(int(p))
}

// DescriptorType identifies the type of a USB descriptor.
type DescriptorType uint8

const (
	DescriptorTypeDevice    DescriptorType = 0x01
	DescriptorTypeConfig    DescriptorType = 0x02
	DescriptorTypeString    DescriptorType = 0x03
	DescriptorTypeInterface DescriptorType = 0x04
	DescriptorTypeEndpoint  DescriptorType = 0x05
	DescriptorTypeHID       DescriptorType = 0x21
	DescriptorTypeReport    DescriptorType = 0x22
	DescriptorTypePhysical  DescriptorType = 0x23
)

var descriptorTypeDescription = map[DescriptorType]string{
	DescriptorTypeDevice:    "device",
	DescriptorTypeConfig:    "configuration",
	DescriptorTypeString:    "string",
	DescriptorTypeInterface: "interface",
	DescriptorTypeEndpoint:  "endpoint",
	DescriptorTypeHID:       "HID",
	DescriptorTypeReport:    "HID report",
	DescriptorTypePhysical:  "physical",
}

// String returns a human-readable name of the descriptor type.
func (dt DescriptorType) String() string {
	if d, ok := descriptorTypeDescription[dt]; ok {
		return d
	}
	return strconv.Itoa(int(dt))
}

// EndpointDirection defines the direction of data flow for an endpoint.
type EndpointDirection bool

const (
	endpointNumMask       = 0x0f
	endpointDirectionMask = 0x80
	// EndpointDirectionIn marks data flowing from device to host.
	EndpointDirectionIn EndpointDirection = true
	// EndpointDirectionOut marks data flowing from host to device.
	EndpointDirectionOut EndpointDirection = false
)

var endpointDirectionDescription = map[EndpointDirection]string{
	EndpointDirectionIn:  "IN",
	EndpointDirectionOut: "OUT",
}

// String returns a human-readable representation of the endpoint direction.
func (ed EndpointDirection) String() string {
	return endpointDirectionDescription[ed]
}
