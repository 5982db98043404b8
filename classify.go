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
	"strings"

	"github.com/gravitational/trace"
)

// Classification is the device type assigned to one HID interface. A single
// physical device may contribute one interface to each of several
// classifications (a composite device).
type Classification int

const (
	Keyboard Classification = iota
	Mouse
	Gamepad
)

var classificationName = map[Classification]string{
	Keyboard: "keyboard",
	Mouse:    "mouse",
	Gamepad:  "gamepad",
}

// String returns the lower-case name of the classification.
func (c Classification) String() string {
	if n, ok := classificationName[c]; ok {
		return n
	}
	return "unknown"
}

// ParseClassification converts a classification name ("keyboard", "mouse"
// or "gamepad", case-insensitive) into a Classification.
func ParseClassification(name string) (Classification, error) {
	for c, n := range classificationName {
		if strings.EqualFold(name, n) {
			return c, nil
		}
	}
	return 0, trace.BadParameter("unrecognized device type %q, expected keyboard, mouse or gamepad", name)
}

// classifications returns all classifications in their fixed bucket order.
// Buckets, change notifications and classifier keyword checks all follow
// this order.
func classifications() []Classification {
	return []Classification{Keyboard, Mouse, Gamepad}
}

// Product string keywords checked for non-boot HID interfaces, in
// classification order; the first category with a substring hit wins.
var classKeywords = map[Classification][]string{
	Keyboard: {"keyboard", "kbd", "keypad"},
	Mouse:    {"mouse", "pointer", "trackball", "touchpad", "trackpad"},
	Gamepad:  {"gamepad", "controller", "joystick", "xbox", "playstation", "ps3", "ps4", "ps5"},
}

// knownDevices maps commonly seen vendor/product pairs that expose
// non-boot HID interfaces without a telltale product string.
var knownDevices = map[ID]map[ID]Classification{
	0x045e: { // Microsoft
		0x0040: Mouse,    // Wheel Mouse Optical
		0x0750: Keyboard, // Wired Keyboard 600
		0x028e: Gamepad,  // Xbox 360 Controller
		0x02d1: Gamepad,  // Xbox One Controller
	},
	0x046d: { // Logitech
		0xc077: Mouse,    // M105 Optical Mouse
		0xc52b: Keyboard, // Unifying Receiver
	},
	0x054c: { // Sony
		0x0268: Gamepad, // DualShock 3
		0x05c4: Gamepad, // DualShock 4
		0x0ce6: Gamepad, // DualSense
	},
	0x1532: { // Razer
		0x0037: Mouse, // DeathAdder
	},
	0x413c: { // Dell
		0x2113: Keyboard, // KB216
	},
}

// Classifier decides the Classification of a HID interface. The zero value
// classifies with the Gamepad fallback.
type Classifier struct {
	// Fallback is assigned when no heuristic matches. In practice most
	// residual non-boot HID interfaces are game controllers, so the cache
	// default is Gamepad. This is a heuristic, not a protocol guarantee.
	Fallback Classification
}

// Classify assigns a classification to one HID interface. Decision order:
// boot-protocol subclass/protocol shortcut, product string keywords, known
// vendor/product table, fallback.
func (c Classifier) Classify(info HidInterfaceInfo) Classification {
	if info.SubClass == bootInterfaceSubclass {
		switch info.Protocol {
		case keyboardProtocol:
			return Keyboard
		case mouseProtocol:
			return Mouse
		}
	}

	product := strings.ToLower(info.Product)
	for _, class := range classifications() {
		for _, kw := range classKeywords[class] {
			if strings.Contains(product, kw) {
				return class
			}
		}
	}

	if byProduct, ok := knownDevices[info.Vendor]; ok {
		if class, ok := byProduct[info.ProductID]; ok {
			return class
		}
	}

	return c.Fallback
}
