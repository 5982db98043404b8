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

// Package gousbhost provides a hidhost backend driven by libusb through
// github.com/google/gousb.
package gousbhost

import (
	"time"

	"github.com/google/gousb"
	"github.com/gravitational/trace"

	"github.com/fruitjam/hidhost"
)

// DefaultControlTimeout bounds each control transfer issued through an
// enumerated device.
const DefaultControlTimeout = time.Second

// Backend enumerates USB devices through a libusb context. A Backend must
// be Close()d after use.
type Backend struct {
	ctx     *gousb.Context
	timeout time.Duration
}

// New returns a Backend with its own libusb context.
func New() *Backend {
	return &Backend{
		ctx:     gousb.NewContext(),
		timeout: DefaultControlTimeout,
	}
}

// SetControlTimeout sets the control transfer timeout applied to devices
// opened by subsequent enumerations.
func (b *Backend) SetControlTimeout(d time.Duration) {
	b.timeout = d
}

// Devices opens every device currently present on the bus. The caller owns
// the returned handles; hidhost's cache closes them when they fall out of a
// scan.
func (b *Backend) Devices() ([]hidhost.Device, error) {
	devs, err := b.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool { return true })
	if err != nil {
		for _, d := range devs {
			d.Close()
		}
		return nil, trace.Wrap(err, "failed to open usb devices")
	}
	out := make([]hidhost.Device, 0, len(devs))
	for _, d := range devs {
		d.ControlTimeout = b.timeout
		out = append(out, &device{dev: d})
	}
	return out, nil
}

// Close releases the libusb context.
func (b *Backend) Close() error {
	return trace.Wrap(b.ctx.Close())
}

// device adapts a gousb.Device to the hidhost backend seam.
type device struct {
	dev *gousb.Device
}

var _ hidhost.Device = (*device)(nil)

func (d *device) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	return d.dev.Control(rType, request, val, idx, data)
}

func (d *device) VendorID() hidhost.ID {
	return hidhost.ID(d.dev.Desc.Vendor)
}

func (d *device) ProductID() hidhost.ID {
	return hidhost.ID(d.dev.Desc.Product)
}

// The string accessors swallow errors: an absent or unreadable string
// descriptor is represented as "", which hidhost maps to its Unknown
// placeholder.

func (d *device) SerialNumber() string {
	s, err := d.dev.SerialNumber()
	if err != nil {
		return ""
	}
	return s
}

func (d *device) Manufacturer() string {
	s, err := d.dev.Manufacturer()
	if err != nil {
		return ""
	}
	return s
}

func (d *device) Product() string {
	s, err := d.dev.Product()
	if err != nil {
		return ""
	}
	return s
}

func (d *device) Close() error {
	return d.dev.Close()
}
