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

// lshid lists the HID devices attached to the host, grouped by
// classification, in the spirit of lsusb.
package main

import (
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fruitjam/hidhost"
	"github.com/fruitjam/hidhost/gousbhost"
)

var (
	timeout = flag.Duration("timeout", gousbhost.DefaultControlTimeout, "control transfer timeout")
	debug   = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	flag.Parse()
	log := logrus.StandardLogger()
	if *debug {
		log.SetLevel(logrus.DebugLevel)
	}

	backend := gousbhost.New()
	defer backend.Close()
	backend.SetControlTimeout(*timeout)

	cache := hidhost.New(backend, hidhost.WithLogger(log))
	snapshot, err := cache.ListAll()
	if err != nil {
		log.WithError(err).Fatal("failed to scan usb devices")
	}

	for _, class := range []hidhost.Classification{hidhost.Keyboard, hidhost.Mouse, hidhost.Gamepad} {
		summary := snapshot[class]
		fmt.Printf("%s: %d\n", class, summary.Count)
		for _, dev := range summary.Devices {
			fmt.Printf("  [%d] %s:%s %s %s (interface %d, endpoint 0x%02x)\n",
				dev.Index, dev.Vendor, dev.ProductID, dev.Manufacturer, dev.Product,
				dev.InterfaceNumber, dev.EndpointAddress)
			composite, others, err := cache.IsComposite(class, dev.Index)
			if err != nil {
				log.WithError(err).Warn("composite lookup failed")
				continue
			}
			if composite {
				fmt.Printf("      composite device, also: %v\n", others)
			}
		}
	}

	composites, err := cache.CompositeDevices()
	if err != nil {
		log.WithError(err).Fatal("failed to list composite devices")
	}
	for key, rec := range composites {
		fmt.Printf("composite %s (%s): %v\n", key, rec.Product, rec.Classifications)
	}
}
