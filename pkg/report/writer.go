package report

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/tr181-conform/tr181-go/pkg/conformance"
	"github.com/tr181-conform/tr181-go/pkg/model"
)

// Writer appends records for one conformance run to a CBOR stream.
// Writer is safe for concurrent use.
type Writer struct {
	runID   string
	mu      sync.Mutex
	encoder *cbor.Encoder
	closer  io.Closer
}

// NewWriter creates a writer targeting w with a fresh run ID.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		runID:   uuid.NewString(),
		encoder: encMode.NewEncoder(w),
	}
}

// NewFileWriter creates a writer appending to the file at path.
func NewFileWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("report: open %s: %w", path, err)
	}
	w := NewWriter(f)
	w.closer = f
	return w, nil
}

// RunID returns the run identifier stamped on every record.
func (w *Writer) RunID() string { return w.runID }

// WriteReport archives a full orchestrated report: every difference,
// per-node validation, probe result, and the closing summary.
func (w *Writer) WriteReport(r *conformance.Report) error {
	for _, d := range r.Comparison.Differences {
		rec := Record{Kind: KindDifference, Path: d.Path, Difference: &d}
		if err := w.write(rec); err != nil {
			return err
		}
	}
	for _, v := range r.Validations {
		rec := Record{Kind: KindValidation, Path: v.Path, Validation: v.Result}
		if err := w.write(rec); err != nil {
			return err
		}
	}
	for _, e := range r.EventResults {
		rec := Record{Kind: KindEvent, Path: e.EventPath, Event: &e}
		if err := w.write(rec); err != nil {
			return err
		}
	}
	for _, f := range r.FunctionResults {
		rec := Record{Kind: KindFunction, Path: f.FunctionPath, Function: &f}
		if err := w.write(rec); err != nil {
			return err
		}
	}
	return w.write(Record{Kind: KindSummary, Summary: &RunSummary{
		ChecksPassed:    r.Summary.ChecksPassed,
		ChecksTotal:     r.Summary.ChecksTotal,
		ComplianceScore: r.Summary.ComplianceScore,
	}})
}

// WriteValidation archives one standalone node validation.
func (w *Writer) WriteValidation(path string, result *model.ValidationResult) error {
	return w.write(Record{Kind: KindValidation, Path: path, Validation: result})
}

func (w *Writer) write(rec Record) error {
	rec.Timestamp = time.Now().UTC()
	rec.RunID = w.runID

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.encoder.Encode(rec); err != nil {
		return fmt.Errorf("report: encode record: %w", err)
	}
	return nil
}

// Close closes the underlying file, if the writer owns one.
func (w *Writer) Close() error {
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// Reader reads records back from a CBOR stream.
type Reader struct {
	decoder *cbor.Decoder
}

// NewReader creates a reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{decoder: decMode.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at end of stream.
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.decoder.Decode(&rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ReadAll reads every remaining record.
func (r *Reader) ReadAll() ([]Record, error) {
	var records []Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
}

// ReadFile reads every record from the file at path.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("report: open %s: %w", path, err)
	}
	defer f.Close()
	return NewReader(f).ReadAll()
}
