// Package csvio streams patient records to and from CSV files.
//
// The header row names the columns; on read it may list them in any order and
// any letter case, on write it is always Id,Name,Surname,DateOfBirth,Email.
// Neither side holds more than one row in memory.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/crucial707/patient-sync/internal/models"
	"github.com/crucial707/patient-sync/internal/syncerr"
)

// Header is the column order written by Writer.
var Header = []string{"Id", "Name", "Surname", "DateOfBirth", "Email"}

// Accepted DateOfBirth layouts, tried in order. Writer always uses the first.
var dateLayouts = []string{
	models.DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"01/02/2006 15:04:05",
}

const bom = "\ufeff"

// Reader decodes patients one row at a time. It is forward-only: once Next
// returns false the reader is spent.
type Reader struct {
	path   string
	file   io.Closer
	csv    *csv.Reader
	index  map[string]int
	row    int
	record models.Patient
	err    error
	done   bool
}

// Open opens path for reading and consumes its header row.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &syncerr.IOError{Op: "open", Path: path, Err: err}
	}
	r, err := newReader(path, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.file = f
	return r, nil
}

// NewReader decodes from src; name is only used in error messages.
func NewReader(name string, src io.Reader) (*Reader, error) {
	return newReader(name, src)
}

func newReader(name string, src io.Reader) (*Reader, error) {
	cr := csv.NewReader(src)
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &syncerr.FormatError{Path: name, Line: 1, Err: errors.New("missing header row")}
	}
	if err != nil {
		return nil, formatError(name, 0, err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		if i == 0 {
			col = strings.TrimPrefix(col, bom)
		}
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range Header {
		if _, ok := index[strings.ToLower(col)]; !ok {
			return nil, &syncerr.FormatError{Path: name, Line: 1, Column: col, Err: errors.New("missing header column")}
		}
	}

	return &Reader{path: name, csv: cr, index: index}, nil
}

// Next decodes the following row. It returns false at end of input or on the
// first malformed row; Err tells them apart.
func (r *Reader) Next() bool {
	if r.done {
		return false
	}

	fields, err := r.csv.Read()
	if err == io.EOF {
		r.done = true
		return false
	}
	r.row++
	if err != nil {
		r.fail(formatError(r.path, r.row, err))
		return false
	}

	line, _ := r.csv.FieldPos(0)
	p, err := r.decode(fields, line)
	if err != nil {
		r.fail(err)
		return false
	}
	r.record = p
	return true
}

// Record returns the row decoded by the last successful Next.
func (r *Reader) Record() models.Patient {
	return r.record
}

// Err returns the error that stopped iteration, if any.
func (r *Reader) Err() error {
	return r.err
}

// Rows is the number of data rows consumed so far.
func (r *Reader) Rows() int {
	return r.row
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	r.done = true
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func (r *Reader) fail(err error) {
	r.err = err
	r.done = true
}

func (r *Reader) field(fields []string, col string) string {
	return strings.TrimSpace(fields[r.index[strings.ToLower(col)]])
}

func (r *Reader) decode(fields []string, line int) (models.Patient, error) {
	bad := func(col string, err error) error {
		return &syncerr.FormatError{Path: r.path, Line: line, Row: r.row, Column: col, Err: err}
	}

	var p models.Patient
	if raw := r.field(fields, "Id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id < 0 {
			return p, bad("Id", fmt.Errorf("invalid id %q", raw))
		}
		p.ID = id
	}

	dob, err := parseDate(r.field(fields, "DateOfBirth"))
	if err != nil {
		return p, bad("DateOfBirth", err)
	}
	p.DateOfBirth = dob

	p.Name = r.field(fields, "Name")
	p.Surname = r.field(fields, "Surname")
	p.Email = r.field(fields, "Email")
	return p, nil
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

func formatError(path string, row int, err error) error {
	line := 0
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		line = pe.StartLine
		err = pe.Err
	}
	return &syncerr.FormatError{Path: path, Line: line, Row: row, Err: err}
}

// Scan reads path to the end without keeping records and returns the number of
// data rows. It fails on the first malformed row.
func Scan(path string) (int, error) {
	r, err := Open(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	n := 0
	for r.Next() {
		n++
	}
	return n, r.Err()
}
