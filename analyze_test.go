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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultClassifier = Classifier{Fallback: Gamepad}

func TestAnalyzeBootKeyboard(t *testing.T) {
	best, composite, err := analyzeDevice(bootKeyboard(), DeviceFilter{}, defaultClassifier)
	require.NoError(t, err)
	require.Contains(t, best, Keyboard)
	assert.Nil(t, composite)

	info := best[Keyboard]
	assert.Equal(t, 0, info.InterfaceNumber)
	assert.Equal(t, byte(0x81), info.EndpointAddress)
	assert.Equal(t, ID(0x04d9), info.Vendor)
	assert.Equal(t, "Holtek", info.Manufacturer)
	assert.Equal(t, "USB Keyboard", info.Product)
}

func TestAnalyzeUnknownStringsGetPlaceholder(t *testing.T) {
	dev := hidGamepad()
	best, _, err := analyzeDevice(dev, DeviceFilter{}, defaultClassifier)
	require.NoError(t, err)
	require.Contains(t, best, Gamepad)
	assert.Equal(t, "Unknown", best[Gamepad].Manufacturer)
	assert.Equal(t, "Unknown", best[Gamepad].Product)
	assert.Equal(t, "1234:5678:no_serial", best[Gamepad].key())
}

func TestAnalyzeSkipsInterfaceWithoutInputEndpoint(t *testing.T) {
	dev := bootKeyboard()
	dev.config = newConfig().
		interfaceDesc(0, ClassHID, bootInterfaceSubclass, keyboardProtocol).
		hidDesc().
		endpoint(0x02). // OUT only, nothing to read from
		build()

	best, composite, err := analyzeDevice(dev, DeviceFilter{}, defaultClassifier)
	require.NoError(t, err)
	assert.Nil(t, best)
	assert.Nil(t, composite)
}

func TestAnalyzeIgnoresNonHIDInterfaces(t *testing.T) {
	dev := bootKeyboard()
	dev.config = newConfig().
		interfaceDesc(0, ClassMassStorage, 0x06, 0x50).
		endpoint(0x81).
		interfaceDesc(1, ClassHID, bootInterfaceSubclass, keyboardProtocol).
		hidDesc().
		endpoint(0x82).
		build()

	best, _, err := analyzeDevice(dev, DeviceFilter{}, defaultClassifier)
	require.NoError(t, err)
	require.Contains(t, best, Keyboard)
	assert.Equal(t, 1, best[Keyboard].InterfaceNumber)
	assert.Equal(t, byte(0x82), best[Keyboard].EndpointAddress)
}

func TestAnalyzeComposite(t *testing.T) {
	best, composite, err := analyzeDevice(comboKeyboard(), DeviceFilter{}, defaultClassifier)
	require.NoError(t, err)
	require.Contains(t, best, Keyboard)
	require.Contains(t, best, Mouse)
	assert.Equal(t, byte(0x81), best[Keyboard].EndpointAddress)
	assert.Equal(t, byte(0x82), best[Mouse].EndpointAddress)

	require.NotNil(t, composite)
	assert.Equal(t, []Classification{Keyboard, Mouse}, composite.Classifications)
	assert.Len(t, composite.Interfaces[Keyboard], 1)
	assert.Len(t, composite.Interfaces[Mouse], 1)
	assert.Equal(t, "Magic Keyboard", composite.Product)
}

func TestAnalyzeFilterDropsBeforeClassification(t *testing.T) {
	filter := DeviceFilter{AllowedVendors: []ID{0x046d}}
	best, composite, err := analyzeDevice(bootKeyboard(), filter, defaultClassifier)
	require.NoError(t, err)
	assert.Nil(t, best)
	assert.Nil(t, composite)

	best, _, err = analyzeDevice(bootMouse(), filter, defaultClassifier)
	require.NoError(t, err)
	assert.Contains(t, best, Mouse)
}

func TestAnalyzeManufacturerFilterCaseInsensitive(t *testing.T) {
	filter := DeviceFilter{BlockedManufacturers: []string{"hOlTeK"}}
	best, _, err := analyzeDevice(bootKeyboard(), filter, defaultClassifier)
	require.NoError(t, err)
	assert.Nil(t, best)
}

func TestAnalyzeMalformedDescriptor(t *testing.T) {
	dev := bootKeyboard()
	// Declared length 0 mid-blob must surface as a malformed descriptor.
	dev.config = newConfig().raw(0, byte(DescriptorTypeInterface)).build()

	_, _, err := analyzeDevice(dev, DeviceFilter{}, defaultClassifier)
	require.Error(t, err)
	assert.True(t, IsMalformedDescriptorError(err))
}

func TestSelectBestInterface(t *testing.T) {
	nonBoot := HidInterfaceInfo{InterfaceNumber: 0, SubClass: 0, Protocol: noProtocol}
	bootWrong := HidInterfaceInfo{InterfaceNumber: 1, SubClass: bootInterfaceSubclass, Protocol: mouseProtocol}
	bootRight := HidInterfaceInfo{InterfaceNumber: 2, SubClass: bootInterfaceSubclass, Protocol: keyboardProtocol}

	t.Run("boot with matching protocol wins", func(t *testing.T) {
		got := selectBestInterface([]HidInterfaceInfo{nonBoot, bootWrong, bootRight}, Keyboard)
		assert.Equal(t, 2, got.InterfaceNumber)
	})
	t.Run("any boot beats non-boot", func(t *testing.T) {
		got := selectBestInterface([]HidInterfaceInfo{nonBoot, bootWrong}, Keyboard)
		assert.Equal(t, 1, got.InterfaceNumber)
	})
	t.Run("first candidate otherwise", func(t *testing.T) {
		other := HidInterfaceInfo{InterfaceNumber: 3}
		got := selectBestInterface([]HidInterfaceInfo{nonBoot, other}, Gamepad)
		assert.Equal(t, 0, got.InterfaceNumber)
	})
}
