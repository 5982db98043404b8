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

// unknownPlaceholder substitutes for absent manufacturer and product
// strings; devices are not required to carry them.
const unknownPlaceholder = "Unknown"

// noSerialPlaceholder substitutes for an absent serial number in device
// identity keys.
const noSerialPlaceholder = "no_serial"

// Device is an opened USB device as presented by the transport backend.
// hidhost issues only GET_DESCRIPTOR control requests through it.
//
// Timeout handling belongs to the backend: Control blocks until the
// transfer completes or the backend's configured timeout elapses.
type Device interface {
	// Control sends a control request to the device and returns the number
	// of bytes transferred. The signature matches gousb's Device.Control.
	Control(rType, request uint8, val, idx uint16, data []byte) (int, error)

	// VendorID returns the idVendor field of the device descriptor.
	VendorID() ID
	// ProductID returns the idProduct field of the device descriptor.
	ProductID() ID

	// SerialNumber returns the serial number string, or "" when the device
	// has none.
	SerialNumber() string
	// Manufacturer returns the manufacturer string, or "" when absent.
	Manufacturer() string
	// Product returns the product string, or "" when absent.
	Product() string
}

// Enumerator lists the devices currently present on the bus. Each call
// returns fresh handles; the order of the returned slice is the order
// devices are reported in the resulting cache.
type Enumerator interface {
	Devices() ([]Device, error)
}

func stringOrUnknown(s string) string {
	if s == "" {
		return unknownPlaceholder
	}
	return s
}
