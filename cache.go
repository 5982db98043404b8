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
	"io"
	"time"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// DefaultCacheTimeout is the TTL applied to a new Cache.
const DefaultCacheTimeout = time.Second

// ChangeAction describes what happened to a classification bucket.
type ChangeAction string

const (
	DeviceAdded   ChangeAction = "added"
	DeviceRemoved ChangeAction = "removed"
)

// ChangeCallback is invoked after a refresh, once per unit of count change
// in a classification bucket, with the affected index. A panicking callback
// does not interrupt notification of the remaining callbacks.
type ChangeCallback func(class Classification, action ChangeAction, index int)

// DeviceSummary describes one cached device in a ListAll snapshot.
type DeviceSummary struct {
	Index           int
	Vendor          ID
	ProductID       ID
	Manufacturer    string
	Product         string
	InterfaceNumber int
	EndpointAddress byte
}

// ClassSummary describes one classification bucket in a ListAll snapshot.
type ClassSummary struct {
	Count   int
	Devices []DeviceSummary
}

// Snapshot is the full structured result of a ListAll query.
type Snapshot map[Classification]ClassSummary

// Option configures a Cache.
type Option func(*Cache)

// WithTimeout sets the cache TTL. A zero TTL makes every query rescan.
func WithTimeout(d time.Duration) Option {
	return func(c *Cache) { c.SetCacheTimeout(d) }
}

// WithClock sets the clock used for TTL decisions.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Cache) { c.clock = clock }
}

// WithLogger sets the logger used for scan diagnostics.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Cache) { c.log = log }
}

// WithFallback sets the classification assigned to HID interfaces no
// heuristic recognizes. The default is Gamepad.
func WithFallback(class Classification) Option {
	return func(c *Cache) { c.classifier.Fallback = class }
}

// Cache is a time-bounded store of classified HID devices, rebuilt from a
// fresh enumeration whenever a query finds it stale. It is not safe for
// concurrent use; callers must serialize access externally.
type Cache struct {
	enum       Enumerator
	clock      clockwork.Clock
	log        logrus.FieldLogger
	classifier Classifier
	timeout    time.Duration
	filter     DeviceFilter
	callbacks  []ChangeCallback

	buckets    map[Classification][]HidInterfaceInfo
	composites map[string]*CompositeDeviceRecord
	lastScan   time.Time
	scanned    bool
}

// New returns an empty Cache reading devices from enum. The first query
// triggers a scan.
func New(enum Enumerator, opts ...Option) *Cache {
	c := &Cache{
		enum:       enum,
		clock:      clockwork.NewRealClock(),
		log:        logrus.StandardLogger(),
		classifier: Classifier{Fallback: Gamepad},
		timeout:    DefaultCacheTimeout,
		buckets:    make(map[Classification][]HidInterfaceInfo),
		composites: make(map[string]*CompositeDeviceRecord),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetCacheTimeout sets the TTL after which a query triggers a rescan.
// Negative durations are clamped to zero; a zero TTL disables caching.
func (c *Cache) SetCacheTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.timeout = d
}

// SetDeviceFilter replaces the active device filter. It takes effect on the
// next refresh.
func (c *Cache) SetDeviceFilter(f DeviceFilter) {
	c.filter = f
}

// RegisterChangeCallback adds a callback notified of bucket count changes
// after each refresh.
func (c *Cache) RegisterChangeCallback(cb ChangeCallback) {
	c.callbacks = append(c.callbacks, cb)
}

// ForceRefresh rebuilds the cache from a fresh enumeration, bypassing the
// TTL.
func (c *Cache) ForceRefresh() error {
	return trace.Wrap(c.refresh())
}

// Count returns the number of devices in the given classification bucket,
// refreshing the cache first if it is stale.
func (c *Cache) Count(class Classification) (int, error) {
	if err := c.refreshIfStale(); err != nil {
		return 0, trace.Wrap(err)
	}
	return len(c.buckets[class]), nil
}

// GetInfo returns the interface number and input endpoint address of the
// cached device at index in the given classification bucket.
func (c *Cache) GetInfo(class Classification, index int) (int, byte, error) {
	info, err := c.entryAt(class, index)
	if err != nil {
		return 0, 0, trace.Wrap(err)
	}
	return info.InterfaceNumber, info.EndpointAddress, nil
}

// GetDeviceHandle returns the backend device handle of the cached device at
// index in the given classification bucket.
func (c *Cache) GetDeviceHandle(class Classification, index int) (Device, error) {
	info, err := c.entryAt(class, index)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return info.Device, nil
}

// ListAll returns a full structured snapshot of every cached device. It
// always forces a refresh: callers asking for the complete picture want
// current truth, not the TTL window.
func (c *Cache) ListAll() (Snapshot, error) {
	if err := c.refresh(); err != nil {
		return nil, trace.Wrap(err)
	}
	snap := make(Snapshot, len(classifications()))
	for _, class := range classifications() {
		bucket := c.buckets[class]
		summary := ClassSummary{Count: len(bucket), Devices: make([]DeviceSummary, 0, len(bucket))}
		for i, info := range bucket {
			summary.Devices = append(summary.Devices, DeviceSummary{
				Index:           i,
				Vendor:          info.Vendor,
				ProductID:       info.ProductID,
				Manufacturer:    info.Manufacturer,
				Product:         info.Product,
				InterfaceNumber: info.InterfaceNumber,
				EndpointAddress: info.EndpointAddress,
			})
		}
		snap[class] = summary
	}
	return snap, nil
}

// CompositeDevices returns a copy of the composite device map, keyed by
// device identity (vendor:product:serial).
func (c *Cache) CompositeDevices() (map[string]CompositeDeviceRecord, error) {
	if err := c.refreshIfStale(); err != nil {
		return nil, trace.Wrap(err)
	}
	out := make(map[string]CompositeDeviceRecord, len(c.composites))
	for k, rec := range c.composites {
		out[k] = *rec
	}
	return out, nil
}

// IsComposite reports whether the cached device at index is part of a
// composite device, and which other classifications it satisfies.
func (c *Cache) IsComposite(class Classification, index int) (bool, []Classification, error) {
	info, err := c.entryAt(class, index)
	if err != nil {
		if trace.IsNotFound(err) {
			return false, nil, nil
		}
		return false, nil, trace.Wrap(err)
	}
	rec, ok := c.composites[info.key()]
	if !ok {
		return false, nil, nil
	}
	var others []Classification
	for _, other := range rec.Classifications {
		if other != class {
			others = append(others, other)
		}
	}
	return true, others, nil
}

// CompanionInterfaces returns the best interface of every other
// classification the same physical device satisfies. For a keyboard with an
// integrated trackpad, CompanionInterfaces(Keyboard, 0) returns the mouse
// interface. The map is empty for non-composite devices.
func (c *Cache) CompanionInterfaces(class Classification, index int) (map[Classification]HidInterfaceInfo, error) {
	info, err := c.entryAt(class, index)
	if err != nil {
		if trace.IsNotFound(err) {
			return map[Classification]HidInterfaceInfo{}, nil
		}
		return nil, trace.Wrap(err)
	}
	companions := make(map[Classification]HidInterfaceInfo)
	rec, ok := c.composites[info.key()]
	if !ok {
		return companions, nil
	}
	for other, candidates := range rec.Interfaces {
		if other == class {
			continue
		}
		companions[other] = selectBestInterface(candidates, other)
	}
	return companions, nil
}

// IsConnected reports whether the cached device at index still responds to
// a device descriptor fetch. A transport failure counts as disconnected,
// not as an error.
func (c *Cache) IsConnected(class Classification, index int) (bool, error) {
	info, err := c.entryAt(class, index)
	if err != nil {
		if trace.IsNotFound(err) {
			return false, nil
		}
		return false, trace.Wrap(err)
	}
	if _, err := FetchDeviceDescriptor(info.Device); err != nil {
		return false, nil
	}
	return true, nil
}

// entryAt returns the cached record at index in the given bucket after a
// refresh-if-stale. A negative index is an invalid argument; an index past
// the bucket end is not found.
func (c *Cache) entryAt(class Classification, index int) (HidInterfaceInfo, error) {
	if index < 0 {
		return HidInterfaceInfo{}, trace.BadParameter("device index cannot be negative, got %d", index)
	}
	if err := c.refreshIfStale(); err != nil {
		return HidInterfaceInfo{}, trace.Wrap(err)
	}
	bucket := c.buckets[class]
	if index >= len(bucket) {
		return HidInterfaceInfo{}, trace.NotFound("no %s at index %d, %d present", class, index, len(bucket))
	}
	return bucket[index], nil
}

func (c *Cache) refreshIfStale() error {
	if c.scanned && c.timeout > 0 && c.clock.Since(c.lastScan) < c.timeout {
		return nil
	}
	return trace.Wrap(c.refresh())
}

// refresh rebuilds all buckets and the composite map from a fresh
// enumeration. There is no partial update; the previous snapshot survives
// only when enumeration itself fails, and is otherwise kept just long
// enough to diff bucket sizes for change notification.
func (c *Cache) refresh() error {
	devices, err := c.enum.Devices()
	if err != nil {
		return trace.Wrap(err, "failed to enumerate usb devices")
	}

	oldCounts := make(map[Classification]int, len(c.buckets))
	for class, bucket := range c.buckets {
		oldCounts[class] = len(bucket)
	}
	previous := c.cachedDevices()

	c.buckets = make(map[Classification][]HidInterfaceInfo)
	c.composites = make(map[string]*CompositeDeviceRecord)

	retained := make(map[Device]bool)
	for _, d := range devices {
		best, composite, err := analyzeDevice(d, c.filter, c.classifier)
		if err != nil {
			// One unreadable device must not abort the scan of the others.
			c.log.WithError(err).WithField("device", deviceKey(d.VendorID(), d.ProductID(), d.SerialNumber())).
				Warn("skipping device with unreadable descriptors")
			continue
		}
		for _, class := range classifications() {
			info, ok := best[class]
			if !ok {
				continue
			}
			if c.bucketContains(class, info) {
				// The enumeration source reported the device twice.
				continue
			}
			c.buckets[class] = append(c.buckets[class], info)
			retained[d] = true
		}
		if composite != nil {
			c.composites[deviceKey(d.VendorID(), d.ProductID(), d.SerialNumber())] = composite
			retained[d] = true
		}
	}

	// Handles from the previous generation and handles that contributed
	// nothing are closed when the backend supports it; gousb devices must
	// be closed after use.
	enumerated := make(map[Device]bool, len(devices))
	for _, d := range devices {
		enumerated[d] = true
		if !retained[d] {
			c.closeDevice(d)
		}
	}
	for d := range previous {
		if !enumerated[d] {
			c.closeDevice(d)
		}
	}

	c.lastScan = c.clock.Now()
	c.scanned = true
	c.notifyChanges(oldCounts)
	return nil
}

func (c *Cache) bucketContains(class Classification, info HidInterfaceInfo) bool {
	for _, cached := range c.buckets[class] {
		if cached.key() == info.key() {
			return true
		}
	}
	return false
}

func (c *Cache) cachedDevices() map[Device]bool {
	devices := make(map[Device]bool)
	for _, bucket := range c.buckets {
		for _, info := range bucket {
			devices[info.Device] = true
		}
	}
	return devices
}

func (c *Cache) closeDevice(d Device) {
	closer, ok := d.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		c.log.WithError(err).Debug("failed to close usb device handle")
	}
}

// notifyChanges diffs the new bucket sizes against the previous ones and
// fires the registered callbacks once per unit of count delta. Added
// deltas report the appended indices in ascending order; removed deltas
// report the vacated indices in descending order.
func (c *Cache) notifyChanges(oldCounts map[Classification]int) {
	if len(c.callbacks) == 0 {
		return
	}
	for _, class := range classifications() {
		oldN, newN := oldCounts[class], len(c.buckets[class])
		switch {
		case newN > oldN:
			for i := oldN; i < newN; i++ {
				c.fire(class, DeviceAdded, i)
			}
		case newN < oldN:
			for i := oldN - 1; i >= newN; i-- {
				c.fire(class, DeviceRemoved, i)
			}
		}
	}
}

func (c *Cache) fire(class Classification, action ChangeAction, index int) {
	for _, cb := range c.callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.WithField("device_type", class.String()).
						Warnf("device change callback panicked: %v", r)
				}
			}()
			cb(class, action, index)
		}()
	}
}
