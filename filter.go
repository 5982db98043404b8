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

import "strings"

// DeviceFilter limits which devices a scan acknowledges. Interfaces of a
// filtered-out device are dropped before classification. The zero value
// allows everything. Manufacturer matching is case-insensitive.
type DeviceFilter struct {
	// AllowedVendors restricts scans to these vendor IDs; nil allows all.
	AllowedVendors []ID
	// BlockedVendors drops these vendor IDs.
	BlockedVendors []ID
	// AllowedManufacturers restricts scans to these manufacturer strings;
	// nil allows all.
	AllowedManufacturers []string
	// BlockedManufacturers drops these manufacturer strings.
	BlockedManufacturers []string
}

func (f DeviceFilter) allows(vendor ID, manufacturer string) bool {
	if f.AllowedVendors != nil && !containsID(f.AllowedVendors, vendor) {
		return false
	}
	if containsID(f.BlockedVendors, vendor) {
		return false
	}
	if f.AllowedManufacturers != nil && !containsFold(f.AllowedManufacturers, manufacturer) {
		return false
	}
	if containsFold(f.BlockedManufacturers, manufacturer) {
		return false
	}
	return true
}

func containsID(ids []ID, id ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func containsFold(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}
