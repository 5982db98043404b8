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
	"bytes"
	"encoding/binary"

	"github.com/gravitational/trace"
)

// Descriptor structs based on USB 2.0 spec, section 9.6.

// decoded device descriptor, 18 bytes
type usbDeviceDescriptor struct {
	BLength            uint8  // 0
	BDescriptorType    uint8  // 1
	BCDUSB             uint16 // 2:3
	BDeviceClass       uint8  // 4
	BDeviceSubClass    uint8  // 5
	BDeviceProtocol    uint8  // 6
	BMaxPacketSize0    uint8  // 7
	IDVendor           uint16 // 8:9
	IDProduct          uint16 // 10:11
	BCDDevice          uint16 // 12:13
	IManufacturer      uint8  // 14
	IProduct           uint8  // 15
	ISerialNumber      uint8  // 16
	BNumConfigurations uint8  // 17
}

// DeviceDesc is a representation of a USB device descriptor.
type DeviceDesc struct {
	// Spec is the USB Specification Release Number.
	Spec BCD
	// Device is the device version.
	Device BCD

	// Vendor is the vendor identifier.
	Vendor ID
	// Product is the product identifier.
	Product ID

	// Class is the class of this device.
	Class Class
	// SubClass is the sub-class (within the class) of this device.
	SubClass Class
	// Protocol is the protocol (within the sub-class) of this device.
	Protocol Protocol
	// MaxControlPacketSize is the maximum size of the control transfer.
	MaxControlPacketSize int

	// NumConfigurations is the number of configurations the device offers.
	NumConfigurations int
}

// DeviceDescFromBytes decodes an 18-byte device descriptor blob.
func DeviceDescFromBytes(descBytes []byte) (*DeviceDesc, error) {
	if len(descBytes) < deviceDescLen {
		return nil, &DescriptorLengthError{Desc: "device", Want: deviceDescLen, Got: len(descBytes)}
	}
	d := &usbDeviceDescriptor{}
	b := bytes.NewReader(descBytes[:deviceDescLen])
	if err := binary.Read(b, binary.LittleEndian, d); err != nil {
		return nil, trace.Wrap(err, "failed to decode the device descriptor")
	}
	return &DeviceDesc{
		Spec:                 BCD(d.BCDUSB),
		Device:               BCD(d.BCDDevice),
		Vendor:               ID(d.IDVendor),
		Product:              ID(d.IDProduct),
		Class:                Class(d.BDeviceClass),
		SubClass:             Class(d.BDeviceSubClass),
		Protocol:             Protocol(d.BDeviceProtocol),
		MaxControlPacketSize: int(d.BMaxPacketSize0),
		NumConfigurations:    int(d.BNumConfigurations),
	}, nil
}

// GetDescriptor issues a GET_DESCRIPTOR control request for the descriptor
// of the given type and index, filling buf. It returns the number of bytes
// the device transferred, which the standard fetch helpers require to match
// len(buf) exactly.
func GetDescriptor(d Device, descType DescriptorType, index uint8, buf []byte, languageID uint16) (int, error) {
	n, err := d.Control(controlIn, requestGetDescriptor, uint16(descType)<<8|uint16(index), languageID, buf)
	if err != nil {
		return n, &TransferError{Op: "get " + descType.String() + " descriptor", Err: err}
	}
	return n, nil
}

// FetchDeviceDescriptor fetches the 18-byte device descriptor.
func FetchDeviceDescriptor(d Device) ([]byte, error) {
	buf := make([]byte, deviceDescLen)
	n, err := GetDescriptor(d, DescriptorTypeDevice, 0, buf, 0)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if n != deviceDescLen {
		return nil, &DescriptorLengthError{Desc: "device", Want: deviceDescLen, Got: n}
	}
	return buf, nil
}

// FetchConfigDescriptor fetches the complete configuration descriptor with
// the given index, including all interface and endpoint descriptors that
// follow the 9-byte header. It first probes for the header alone, decodes
// wTotalLength, then fetches the full blob.
func FetchConfigDescriptor(d Device, index uint8) ([]byte, error) {
	hdr := make([]byte, configDescLen)
	n, err := GetDescriptor(d, DescriptorTypeConfig, index, hdr, 0)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if n != configDescLen {
		return nil, &DescriptorLengthError{Desc: "configuration", Want: configDescLen, Got: n}
	}
	total := int(binary.LittleEndian.Uint16(hdr[2:4]))
	if total < configDescLen {
		return nil, &MalformedDescriptorError{Offset: 2, Reason: "wTotalLength smaller than the configuration header"}
	}
	full := make([]byte, total)
	n, err = GetDescriptor(d, DescriptorTypeConfig, index, full, 0)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if n != total {
		return nil, &DescriptorLengthError{Desc: "configuration", Want: total, Got: n}
	}
	return full, nil
}

// DescriptorRecord is a view into one length-prefixed record of a
// descriptor blob. It is only valid while the blob it was walked from is
// alive.
type DescriptorRecord struct {
	// Offset is the position of the record in the blob.
	Offset int
	// Length is the record's self-declared bLength.
	Length int
	// Type is the record's bDescriptorType.
	Type DescriptorType

	blob []byte
}

// InterfaceDescriptor is a fixed-layout view of an interface record.
type InterfaceDescriptor struct {
	// Number is the bInterfaceNumber field.
	Number int
	// Class, SubClass and Protocol identify the interface function.
	Class    Class
	SubClass uint8
	Protocol uint8
}

// EndpointDescriptor is a fixed-layout view of an endpoint record.
type EndpointDescriptor struct {
	// Address is the bEndpointAddress field; bit 7 carries the direction.
	Address byte
}

// Direction returns the endpoint's data flow direction.
func (e EndpointDescriptor) Direction() EndpointDirection {
	return EndpointDirection(e.Address&endpointDirectionMask != 0)
}

// Number returns the endpoint number without the direction bit.
func (e EndpointDescriptor) Number() int {
	return int(e.Address & endpointNumMask)
}

// Interface decodes the record as an interface descriptor.
func (r DescriptorRecord) Interface() (InterfaceDescriptor, error) {
	if r.Type != DescriptorTypeInterface {
		return InterfaceDescriptor{}, trace.BadParameter("descriptor at offset %d is a %s descriptor, not an interface", r.Offset, r.Type)
	}
	if r.Length < intfDescLen {
		return InterfaceDescriptor{}, &MalformedDescriptorError{Offset: r.Offset, Reason: "interface descriptor shorter than 9 bytes"}
	}
	b := r.blob[r.Offset : r.Offset+r.Length]
	return InterfaceDescriptor{
		Number:   int(b[2]),
		Class:    Class(b[5]),
		SubClass: b[6],
		Protocol: b[7],
	}, nil
}

// Endpoint decodes the record as an endpoint descriptor.
func (r DescriptorRecord) Endpoint() (EndpointDescriptor, error) {
	if r.Type != DescriptorTypeEndpoint {
		return EndpointDescriptor{}, trace.BadParameter("descriptor at offset %d is a %s descriptor, not an endpoint", r.Offset, r.Type)
	}
	if r.Length < 3 {
		return EndpointDescriptor{}, &MalformedDescriptorError{Offset: r.Offset, Reason: "endpoint descriptor too short to carry an address"}
	}
	return EndpointDescriptor{Address: r.blob[r.Offset+2]}, nil
}

// Walker is a cursor over a descriptor blob. Each Next advances by the
// current record's self-declared length. Walking never allocates per
// record; the returned records are views into the blob.
type Walker struct {
	blob []byte
	pos  int
}

// NewWalker returns a Walker positioned at the start of blob.
func NewWalker(blob []byte) *Walker {
	return &Walker{blob: blob}
}

// NewWalkerAt returns a Walker positioned at the given byte offset,
// restarting a walk mid-blob.
func NewWalkerAt(blob []byte, offset int) *Walker {
	return &Walker{blob: blob, pos: offset}
}

// Next yields the record at the cursor and advances past it. It returns
// false when the cursor has reached the end of the blob. A length field
// below 2 or a record running past the blob end yields a
// MalformedDescriptorError; a zero length would otherwise loop forever.
func (w *Walker) Next() (DescriptorRecord, bool, error) {
	if w.pos >= len(w.blob) {
		return DescriptorRecord{}, false, nil
	}
	if w.pos+2 > len(w.blob) {
		return DescriptorRecord{}, false, &MalformedDescriptorError{Offset: w.pos, Reason: "truncated record header"}
	}
	length := int(w.blob[w.pos])
	if length < 2 {
		return DescriptorRecord{}, false, &MalformedDescriptorError{Offset: w.pos, Reason: "descriptor length below the 2-byte minimum"}
	}
	if w.pos+length > len(w.blob) {
		return DescriptorRecord{}, false, &MalformedDescriptorError{Offset: w.pos, Reason: "descriptor runs past the end of the blob"}
	}
	rec := DescriptorRecord{
		Offset: w.pos,
		Length: length,
		Type:   DescriptorType(w.blob[w.pos+1]),
		blob:   w.blob,
	}
	w.pos += length
	return rec, true, nil
}

// findInputEndpoint scans the blob starting at offset for the first IN
// endpoint, stopping at the next interface record. An endpoint belongs to
// the most recently seen interface, so the scan must not cross interface
// boundaries.
func findInputEndpoint(blob []byte, offset int) (byte, bool, error) {
	w := NewWalkerAt(blob, offset)
	for {
		rec, ok, err := w.Next()
		if err != nil {
			return 0, false, trace.Wrap(err)
		}
		if !ok || rec.Type == DescriptorTypeInterface {
			return 0, false, nil
		}
		if rec.Type != DescriptorTypeEndpoint {
			continue
		}
		ep, err := rec.Endpoint()
		if err != nil {
			return 0, false, trace.Wrap(err)
		}
		if ep.Direction() == EndpointDirectionIn {
			return ep.Address, true, nil
		}
	}
}

// FindBootKeyboardEndpoint walks the device's first configuration for a
// boot-protocol keyboard interface (class HID, subclass 1, protocol 1) and
// returns its interface number and IN endpoint address. It returns a
// not-found error when the device exposes no such interface.
func FindBootKeyboardEndpoint(d Device) (int, byte, error) {
	return findBootEndpoint(d, keyboardProtocol)
}

// FindBootMouseEndpoint walks the device's first configuration for a
// boot-protocol mouse interface (class HID, subclass 1, protocol 2) and
// returns its interface number and IN endpoint address. It returns a
// not-found error when the device exposes no such interface.
func FindBootMouseEndpoint(d Device) (int, byte, error) {
	return findBootEndpoint(d, mouseProtocol)
}

func findBootEndpoint(d Device, protocol uint8) (int, byte, error) {
	blob, err := FetchConfigDescriptor(d, 0)
	if err != nil {
		return 0, 0, trace.Wrap(err)
	}
	w := NewWalker(blob)
	for {
		rec, ok, err := w.Next()
		if err != nil {
			return 0, 0, trace.Wrap(err)
		}
		if !ok {
			return 0, 0, trace.NotFound("no boot protocol %d interface with an input endpoint on device %s:%s", protocol, d.VendorID(), d.ProductID())
		}
		if rec.Type != DescriptorTypeInterface {
			continue
		}
		intf, err := rec.Interface()
		if err != nil {
			return 0, 0, trace.Wrap(err)
		}
		if intf.Class != ClassHID || intf.SubClass != bootInterfaceSubclass || intf.Protocol != protocol {
			continue
		}
		addr, found, err := findInputEndpoint(blob, rec.Offset+rec.Length)
		if err != nil {
			return 0, 0, trace.Wrap(err)
		}
		if found {
			return intf.Number, addr, nil
		}
	}
}
