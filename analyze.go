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

	"github.com/gravitational/trace"
)

// HidInterfaceInfo is the durable record of one classified HID interface.
// It is immutable once created and owned by the Cache.
type HidInterfaceInfo struct {
	// Device is the backend handle the interface was discovered on.
	Device Device

	// InterfaceNumber and EndpointAddress identify where input reports can
	// be read from.
	InterfaceNumber int
	EndpointAddress byte

	// Class, SubClass and Protocol are the interface descriptor triple.
	Class    Class
	SubClass uint8
	Protocol uint8

	// Vendor and ProductID identify the owning device.
	Vendor    ID
	ProductID ID
	// Serial is the device serial number, or "" when absent.
	Serial string

	// Manufacturer and Product are the device strings, with "Unknown"
	// substituted when absent.
	Manufacturer string
	Product      string
}

// key identifies the owning physical device.
func (i HidInterfaceInfo) key() string {
	return deviceKey(i.Vendor, i.ProductID, i.Serial)
}

func deviceKey(vendor, product ID, serial string) string {
	if serial == "" {
		serial = noSerialPlaceholder
	}
	return fmt.Sprintf("%s:%s:%s", vendor, product, serial)
}

// CompositeDeviceRecord tracks one physical device whose HID interfaces
// span more than one classification, e.g. a keyboard with an integrated
// trackpad. It is rebuilt from scratch on every refresh.
type CompositeDeviceRecord struct {
	// Device is the backend handle of the physical device.
	Device Device
	// Product is the device product string.
	Product string
	// Classifications lists the satisfied classifications in discovery
	// order.
	Classifications []Classification
	// Interfaces holds the full candidate list per classification, not
	// just the selected best, so companion lookups can retrieve a type
	// other than the one originally queried.
	Interfaces map[Classification][]HidInterfaceInfo
}

// analyzeDevice fetches and walks the device's first configuration,
// collects its HID interfaces that carry an input endpoint and pass the
// filter, classifies them and groups the results. The second return value
// is non-nil only when the interfaces span more than one classification.
func analyzeDevice(d Device, filter DeviceFilter, classifier Classifier) (map[Classification]HidInterfaceInfo, *CompositeDeviceRecord, error) {
	blob, err := FetchConfigDescriptor(d, 0)
	if err != nil {
		return nil, nil, trace.Wrap(err)
	}

	var hids []HidInterfaceInfo
	w := NewWalker(blob)
	for {
		rec, ok, err := w.Next()
		if err != nil {
			return nil, nil, trace.Wrap(err)
		}
		if !ok {
			break
		}
		if rec.Type != DescriptorTypeInterface {
			continue
		}
		intf, err := rec.Interface()
		if err != nil {
			return nil, nil, trace.Wrap(err)
		}
		if intf.Class != ClassHID {
			continue
		}
		addr, found, err := findInputEndpoint(blob, rec.Offset+rec.Length)
		if err != nil {
			return nil, nil, trace.Wrap(err)
		}
		if !found {
			// Nothing to read from.
			continue
		}
		if !filter.allows(d.VendorID(), d.Manufacturer()) {
			continue
		}
		hids = append(hids, HidInterfaceInfo{
			Device:          d,
			InterfaceNumber: intf.Number,
			EndpointAddress: addr,
			Class:           intf.Class,
			SubClass:        intf.SubClass,
			Protocol:        intf.Protocol,
			Vendor:          d.VendorID(),
			ProductID:       d.ProductID(),
			Serial:          d.SerialNumber(),
			Manufacturer:    stringOrUnknown(d.Manufacturer()),
			Product:         stringOrUnknown(d.Product()),
		})
	}
	if len(hids) == 0 {
		return nil, nil, nil
	}

	byClass := make(map[Classification][]HidInterfaceInfo)
	var order []Classification
	for _, info := range hids {
		class := classifier.Classify(info)
		if _, seen := byClass[class]; !seen {
			order = append(order, class)
		}
		byClass[class] = append(byClass[class], info)
	}

	best := make(map[Classification]HidInterfaceInfo, len(byClass))
	for class, candidates := range byClass {
		best[class] = selectBestInterface(candidates, class)
	}

	var composite *CompositeDeviceRecord
	if len(byClass) > 1 {
		composite = &CompositeDeviceRecord{
			Device:          d,
			Product:         stringOrUnknown(d.Product()),
			Classifications: order,
			Interfaces:      byClass,
		}
	}
	return best, composite, nil
}

// selectBestInterface picks the interface to represent a classification when
// a device offers several candidates of the same type. A boot-protocol
// interface whose protocol matches the classification wins, then any
// boot-protocol interface, then the first candidate in discovery order.
func selectBestInterface(candidates []HidInterfaceInfo, target Classification) HidInterfaceInfo {
	expected := uint8(noProtocol)
	switch target {
	case Keyboard:
		expected = keyboardProtocol
	case Mouse:
		expected = mouseProtocol
	}

	firstBoot := -1
	for i, c := range candidates {
		if c.SubClass != bootInterfaceSubclass {
			continue
		}
		if c.Protocol == expected {
			return c
		}
		if firstBoot < 0 {
			firstBoot = i
		}
	}
	if firstBoot >= 0 {
		return candidates[firstBoot]
	}
	return candidates[0]
}
