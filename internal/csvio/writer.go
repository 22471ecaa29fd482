package csvio

import (
	"context"
	"encoding/csv"
	"io"
	"iter"
	"os"
	"strconv"

	"github.com/crucial707/patient-sync/internal/models"
	"github.com/crucial707/patient-sync/internal/syncerr"
)

// DefaultFlushEvery is the number of rows written between flushes.
const DefaultFlushEvery = 100

// Writer encodes patients in Header order.
type Writer struct {
	csv        *csv.Writer
	flushEvery int
	pending    int
	rows       int
}

// NewWriter returns a Writer that flushes to w every flushEvery rows.
func NewWriter(w io.Writer, flushEvery int) *Writer {
	if flushEvery <= 0 {
		flushEvery = DefaultFlushEvery
	}
	return &Writer{csv: csv.NewWriter(w), flushEvery: flushEvery}
}

// WriteHeader writes the header row and flushes it.
func (w *Writer) WriteHeader() error {
	if err := w.csv.Write(Header); err != nil {
		return err
	}
	return w.Flush()
}

// Write appends one patient row.
func (w *Writer) Write(p models.Patient) error {
	err := w.csv.Write([]string{
		strconv.Itoa(p.ID),
		p.Name,
		p.Surname,
		p.DateOfBirth.Format(models.DateLayout),
		p.Email,
	})
	if err != nil {
		return err
	}
	w.rows++
	w.pending++
	if w.pending >= w.flushEvery {
		return w.Flush()
	}
	return nil
}

// Flush pushes buffered rows to the underlying writer.
func (w *Writer) Flush() error {
	w.pending = 0
	w.csv.Flush()
	return w.csv.Error()
}

// Rows is the number of data rows written.
func (w *Writer) Rows() int {
	return w.rows
}

// WriteFile creates path, writes the header and then every record produced by
// records. The header is written even when records yields nothing. On
// cancellation or a source error the partial file is left in place and the
// error is returned; callers must not treat that file as complete.
func WriteFile(ctx context.Context, path string, records iter.Seq2[models.Patient, error], flushEvery int) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, &syncerr.IOError{Op: "create", Path: path, Err: err}
	}

	w := NewWriter(f, flushEvery)
	n, err := copyRecords(ctx, w, records)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = &syncerr.IOError{Op: "close", Path: path, Err: cerr}
	}
	return n, err
}

func copyRecords(ctx context.Context, w *Writer, records iter.Seq2[models.Patient, error]) (int, error) {
	if err := w.WriteHeader(); err != nil {
		return 0, err
	}

	for p, err := range records {
		if err != nil {
			w.Flush()
			return w.Rows(), err
		}
		if err := ctx.Err(); err != nil {
			w.Flush()
			return w.Rows(), err
		}
		if err := w.Write(p); err != nil {
			return w.Rows(), err
		}
	}

	return w.Rows(), w.Flush()
}
