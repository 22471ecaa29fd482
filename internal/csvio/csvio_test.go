package csvio

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/crucial707/patient-sync/internal/models"
	"github.com/crucial707/patient-sync/internal/syncerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seq(list []models.Patient) iter.Seq2[models.Patient, error] {
	return func(yield func(models.Patient, error) bool) {
		for _, p := range list {
			if !yield(p, nil) {
				return
			}
		}
	}
}

func readAll(t *testing.T, r *Reader) []models.Patient {
	t.Helper()
	var out []models.Patient
	for r.Next() {
		out = append(out, r.Record())
	}
	require.NoError(t, r.Err())
	return out
}

func TestRoundTrip(t *testing.T) {
	in := []models.Patient{
		{ID: 1, Name: "John", Surname: "Doe", DateOfBirth: date(1985, 5, 12), Email: "j.doe@example.com"},
		{ID: 2, Name: "Jane, Q.", Surname: "Smith", DateOfBirth: date(1990, 8, 24), Email: "j.smith@health.org"},
		{ID: 3, Name: `Rob "Bobby"`, Surname: "Brown", DateOfBirth: date(1978, 12, 5), Email: "rbrown@med.net"},
	}
	path := filepath.Join(t.TempDir(), "patients.csv")

	n, err := WriteFile(context.Background(), path, seq(in), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, in, readAll(t, r))
}

func TestWriteFile_EmptySourceWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")

	n, err := WriteFile(context.Background(), path, seq(nil), 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Id,Name,Surname,DateOfBirth,Email\n", string(data))
}

func TestWriteFile_SourceErrorStops(t *testing.T) {
	boom := errors.New("store unreachable")
	src := func(yield func(models.Patient, error) bool) {
		if !yield(models.Patient{ID: 1, Name: "A", DateOfBirth: date(2000, 1, 1)}, nil) {
			return
		}
		yield(models.Patient{}, boom)
	}
	path := filepath.Join(t.TempDir(), "partial.csv")

	n, err := WriteFile(context.Background(), path, src, 0)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"), "header and first row are flushed")
}

func TestWriteFile_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "cancelled.csv")
	_, err := WriteFile(ctx, path, seq([]models.Patient{{ID: 1, DateOfBirth: date(2000, 1, 1)}}), 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteFile_MissingFolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "export.csv")
	_, err := WriteFile(context.Background(), path, seq(nil), 0)
	var ioErr *syncerr.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, path, ioErr.Path)
}

type countingWriter struct {
	bytes.Buffer
	writes int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.writes++
	return w.Buffer.Write(p)
}

func TestWriter_FlushesPeriodically(t *testing.T) {
	var out countingWriter
	w := NewWriter(&out, 2)
	require.NoError(t, w.WriteHeader())
	assert.Equal(t, 1, out.writes)

	p := models.Patient{ID: 1, DateOfBirth: date(2000, 1, 1)}
	require.NoError(t, w.Write(p))
	assert.Equal(t, 1, out.writes, "one row is still buffered")
	require.NoError(t, w.Write(p))
	assert.Equal(t, 2, out.writes, "second row triggers a flush")
}

func TestReader_ColumnOrderCaseAndBOM(t *testing.T) {
	src := "\ufeffemail, dateofbirth ,ID,surname,NAME\n" +
		"john@test.com,2000-01-01,1,Doe,John\n" +
		"kate@test.com,1999-05-05T00:00:00Z,,Smith,Kate\n"

	r, err := NewReader("inline.csv", strings.NewReader(src))
	require.NoError(t, err)
	got := readAll(t, r)

	require.Len(t, got, 2)
	assert.Equal(t, models.Patient{ID: 1, Name: "John", Surname: "Doe", DateOfBirth: date(2000, 1, 1), Email: "john@test.com"}, got[0])
	assert.Zero(t, got[1].ID, "empty id is the new-record sentinel")
	assert.Equal(t, date(1999, 5, 5), got[1].DateOfBirth)
}

func TestReader_BadDateOnThirdRow(t *testing.T) {
	src := "Id,Name,Surname,DateOfBirth,Email\n" +
		"1,A,A,2000-01-01,a@x\n" +
		"2,B,B,2000-01-02,b@x\n" +
		"3,C,C,not-a-date,c@x\n" +
		"4,D,D,2000-01-04,d@x\n"

	r, err := NewReader("bad.csv", strings.NewReader(src))
	require.NoError(t, err)

	n := 0
	for r.Next() {
		n++
	}
	assert.Equal(t, 2, n)
	assert.False(t, r.Next(), "reader stays stopped after an error")

	var fe *syncerr.FormatError
	require.ErrorAs(t, r.Err(), &fe)
	assert.Equal(t, 3, fe.Row)
	assert.Equal(t, 4, fe.Line)
	assert.Equal(t, "DateOfBirth", fe.Column)
	assert.Contains(t, fe.Error(), "bad.csv")
}

func TestReader_WrongFieldCount(t *testing.T) {
	src := "Id,Name,Surname,DateOfBirth,Email\n1,A,A,2000-01-01\n"
	r, err := NewReader("short.csv", strings.NewReader(src))
	require.NoError(t, err)

	assert.False(t, r.Next())
	var fe *syncerr.FormatError
	require.ErrorAs(t, r.Err(), &fe)
	assert.Equal(t, 2, fe.Line)
	assert.Equal(t, 1, fe.Row)
}

func TestReader_InvalidID(t *testing.T) {
	src := "Id,Name,Surname,DateOfBirth,Email\nabc,A,A,2000-01-01,a@x\n"
	r, err := NewReader("id.csv", strings.NewReader(src))
	require.NoError(t, err)
	assert.False(t, r.Next())
	assert.True(t, syncerr.IsFormat(r.Err()))
}

func TestReader_HeaderProblems(t *testing.T) {
	_, err := NewReader("empty.csv", strings.NewReader(""))
	assert.True(t, syncerr.IsFormat(err))

	_, err = NewReader("nomail.csv", strings.NewReader("Id,Name,Surname,DateOfBirth\n"))
	var fe *syncerr.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "Email", fe.Column)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.csv"))
	var ioErr *syncerr.IOError
	assert.ErrorAs(t, err, &ioErr)
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.csv")
	require.NoError(t, os.WriteFile(good, []byte("Id,Name,Surname,DateOfBirth,Email\n1,A,A,2000-01-01,a@x\n2,B,B,01/31/1999,b@x\n"), 0o644))

	n, err := Scan(good)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("Id,Name,Surname,DateOfBirth,Email\n1,A,A,31.01.1999,a@x\n"), 0o644))
	_, err = Scan(bad)
	assert.True(t, syncerr.IsFormat(err))
}
