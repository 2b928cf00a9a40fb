// Package model implements the TR-181 device data model records shared
// by the comparison engine, validator, and prober.
//
// # Hierarchy
//
// TR-181 organizes parameters as a dotted hierarchy rooted at "Device.":
//
//	Device.
//	├── Device.DeviceInfo.
//	│   ├── Device.DeviceInfo.Manufacturer
//	│   └── Device.DeviceInfo.SerialNumber
//	├── Device.WiFi.
//	│   └── Device.WiFi.RadioNumberOfEntries
//	└── ...
//
// A Node describes one parameter or object in that hierarchy: its path,
// declared type, access level, optional value and value constraints, and
// any declared events and functions. The path is the node's identity
// within a collection.
//
// # Results
//
// The package also defines the result records produced by the engine:
// Difference and ComparisonResult for structural diffs, ValidationResult
// as an accumulating error/warning collector, and the event/function
// probe results with their summaries. All records are plain values with
// no lifecycle beyond the call that produced them; nothing in this
// package performs I/O.
package model
