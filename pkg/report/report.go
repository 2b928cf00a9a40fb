// Package report archives conformance-run outcomes as a stream of CBOR
// records, one per finding, so long probe sessions can be inspected
// after the fact without keeping the full report in memory.
package report

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/tr181-conform/tr181-go/pkg/model"
)

// Record kinds.
const (
	KindDifference Kind = 1
	KindValidation Kind = 2
	KindEvent      Kind = 3
	KindFunction   Kind = 4
	KindSummary    Kind = 5
)

// Kind classifies a record.
type Kind uint8

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindDifference:
		return "difference"
	case KindValidation:
		return "validation"
	case KindEvent:
		return "event"
	case KindFunction:
		return "function"
	case KindSummary:
		return "summary"
	default:
		return "unknown"
	}
}

// Record is one archived finding. CBOR encoding uses integer keys for
// compactness.
type Record struct {
	// Timestamp when the record was written.
	Timestamp time.Time `cbor:"1,keyasint"`

	// RunID groups records belonging to one conformance run.
	RunID string `cbor:"2,keyasint"`

	// Kind classifies the payload.
	Kind Kind `cbor:"3,keyasint"`

	// Path is the node path the record refers to, if any.
	Path string `cbor:"4,keyasint,omitempty"`

	// Payloads; exactly one is set, matching Kind.
	Difference *model.Difference         `cbor:"5,keyasint,omitempty"`
	Validation *model.ValidationResult   `cbor:"6,keyasint,omitempty"`
	Event      *model.EventTestResult    `cbor:"7,keyasint,omitempty"`
	Function   *model.FunctionTestResult `cbor:"8,keyasint,omitempty"`
	Summary    *RunSummary               `cbor:"9,keyasint,omitempty"`
}

// RunSummary is the closing record of a run.
type RunSummary struct {
	ChecksPassed    int     `cbor:"1,keyasint"`
	ChecksTotal     int     `cbor:"2,keyasint"`
	ComplianceScore float64 `cbor:"3,keyasint"`
}

// encMode is the CBOR encoder mode for report records: deterministic
// encoding with nanosecond timestamps.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for report records.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create report CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create report CBOR decoder mode: %v", err))
	}
}
