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
	"encoding/binary"
	"fmt"
)

// configBuilder assembles configuration descriptor blobs for tests. The
// 9-byte configuration header comes first; build patches wTotalLength.
type configBuilder struct {
	body []byte
}

func newConfig() *configBuilder {
	b := &configBuilder{}
	b.body = append(b.body,
		configDescLen, byte(DescriptorTypeConfig),
		0, 0, // wTotalLength, patched by build
		1,    // bNumInterfaces
		1,    // bConfigurationValue
		0,    // iConfiguration
		0x80, // bmAttributes
		50,   // bMaxPower
	)
	return b
}

func (b *configBuilder) interfaceDesc(num int, class Class, subclass, protocol byte) *configBuilder {
	b.body = append(b.body,
		intfDescLen, byte(DescriptorTypeInterface),
		byte(num),
		0, // bAlternateSetting
		1, // bNumEndpoints
		byte(class), subclass, protocol,
		0, // iInterface
	)
	return b
}

func (b *configBuilder) hidDesc() *configBuilder {
	b.body = append(b.body,
		9, byte(DescriptorTypeHID),
		0x11, 0x01, // bcdHID
		0, // bCountryCode
		1, // bNumDescriptors
		byte(DescriptorTypeReport), // bDescriptorType
		0x3f, 0, // wDescriptorLength
	)
	return b
}

func (b *configBuilder) endpoint(addr byte) *configBuilder {
	b.body = append(b.body,
		epDescLen, byte(DescriptorTypeEndpoint),
		addr,
		0x03, // bmAttributes: interrupt
		8, 0, // wMaxPacketSize
		10, // bInterval
	)
	return b
}

func (b *configBuilder) raw(data ...byte) *configBuilder {
	b.body = append(b.body, data...)
	return b
}

func (b *configBuilder) build() []byte {
	out := make([]byte, len(b.body))
	copy(out, b.body)
	binary.LittleEndian.PutUint16(out[2:4], uint16(len(out)))
	return out
}

// fakeDevice implements the Device seam over an in-memory descriptor set.
// The zero value is unusable; construct through the helpers below or fill
// vendor/product/config by hand.
type fakeDevice struct {
	vendor, product                   ID
	serial, manufacturer, productName string
	config                            []byte

	// controlErr fails every control transfer when set.
	controlErr error
	// shortConfigHeader makes the header probe return one byte short.
	shortConfigHeader bool
	// shortConfigTotal makes the full config fetch return one byte short.
	shortConfigTotal bool

	controls int
	closed   int
}

func (f *fakeDevice) Control(rType, request uint8, val, idx uint16, buf []byte) (int, error) {
	f.controls++
	if f.controlErr != nil {
		return 0, f.controlErr
	}
	if rType != controlIn || request != requestGetDescriptor {
		return 0, fmt.Errorf("unexpected control request 0x%02x/0x%02x", rType, request)
	}
	switch DescriptorType(val >> 8) {
	case DescriptorTypeDevice:
		return copy(buf, f.deviceDescBytes()), nil
	case DescriptorTypeConfig:
		if len(buf) == configDescLen {
			n := copy(buf, f.config[:min(configDescLen, len(f.config))])
			if f.shortConfigHeader {
				n--
			}
			return n, nil
		}
		n := copy(buf, f.config)
		if f.shortConfigTotal {
			n--
		}
		return n, nil
	}
	return 0, fmt.Errorf("unsupported descriptor type %d", val>>8)
}

func (f *fakeDevice) deviceDescBytes() []byte {
	desc := make([]byte, deviceDescLen)
	desc[0] = deviceDescLen
	desc[1] = byte(DescriptorTypeDevice)
	binary.LittleEndian.PutUint16(desc[2:4], 0x0200) // bcdUSB
	desc[7] = 64                                     // bMaxPacketSize0
	binary.LittleEndian.PutUint16(desc[8:10], uint16(f.vendor))
	binary.LittleEndian.PutUint16(desc[10:12], uint16(f.product))
	desc[17] = 1 // bNumConfigurations
	return desc
}

func (f *fakeDevice) VendorID() ID         { return f.vendor }
func (f *fakeDevice) ProductID() ID        { return f.product }
func (f *fakeDevice) SerialNumber() string { return f.serial }
func (f *fakeDevice) Manufacturer() string { return f.manufacturer }
func (f *fakeDevice) Product() string      { return f.productName }

func (f *fakeDevice) Close() error {
	f.closed++
	return nil
}

func bootKeyboard() *fakeDevice {
	return &fakeDevice{
		vendor:       0x04d9,
		product:      0x0169,
		serial:       "KB001",
		manufacturer: "Holtek",
		productName:  "USB Keyboard",
		config: newConfig().
			interfaceDesc(0, ClassHID, bootInterfaceSubclass, keyboardProtocol).
			hidDesc().
			endpoint(0x81).
			build(),
	}
}

func bootMouse() *fakeDevice {
	return &fakeDevice{
		vendor:       0x046d,
		product:      0xc077,
		serial:       "M105-7",
		manufacturer: "Logitech",
		productName:  "USB Optical Mouse",
		config: newConfig().
			interfaceDesc(0, ClassHID, bootInterfaceSubclass, mouseProtocol).
			hidDesc().
			endpoint(0x81).
			build(),
	}
}

// comboKeyboard is a composite keyboard with an integrated trackpad: a boot
// keyboard interface and a boot mouse interface on one device.
func comboKeyboard() *fakeDevice {
	return &fakeDevice{
		vendor:       0x05ac,
		product:      0x0267,
		serial:       "COMBO1",
		manufacturer: "Apple",
		productName:  "Magic Keyboard",
		config: newConfig().
			interfaceDesc(0, ClassHID, bootInterfaceSubclass, keyboardProtocol).
			hidDesc().
			endpoint(0x81).
			interfaceDesc(1, ClassHID, bootInterfaceSubclass, mouseProtocol).
			hidDesc().
			endpoint(0x82).
			build(),
	}
}

// hidGamepad is a non-boot HID interface with no recognizable product
// string or known ID, exercising the classifier fallback.
func hidGamepad() *fakeDevice {
	return &fakeDevice{
		vendor:      0x1234,
		product:     0x5678,
		productName: "",
		config: newConfig().
			interfaceDesc(0, ClassHID, 0, noProtocol).
			hidDesc().
			endpoint(0x83).
			build(),
	}
}

type fakeEnumerator struct {
	devices []Device
	err     error
	scans   int
}

func (f *fakeEnumerator) Devices() ([]Device, error) {
	f.scans++
	if f.err != nil {
		return nil, f.err
	}
	return append([]Device(nil), f.devices...), nil
}
