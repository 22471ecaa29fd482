package syncerr

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&ConfigError{Field: "import_schedule", Value: "*/2 * * *", Err: errors.New("expected 5 fields")},
			`config import_schedule="*/2 * * *": expected 5 fields`},
		{&IOError{Op: "list import folder", Path: "/in", Err: fs.ErrNotExist},
			"list import folder /in: file does not exist"},
		{&IOError{Op: "load settings", Err: errors.New("timeout")}, "load settings: timeout"},
		{&FormatError{Path: "a.csv", Line: 4, Row: 3, Column: "DateOfBirth", Err: errors.New("bad date")},
			"a.csv: line 4 (row 3) column DateOfBirth: bad date"},
		{&FormatError{Path: "a.csv", Line: 1, Err: errors.New("missing header")}, "a.csv: line 1: missing header"},
		{&NotFoundError{Resource: "sync settings", Key: "1"}, "sync settings 1 not found"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.err.Error())
	}
}

func TestMatchThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("import: %w", &IOError{Op: "open", Path: "x.csv", Err: fs.ErrPermission})
	assert.ErrorIs(t, wrapped, fs.ErrPermission)
	assert.False(t, IsFormat(wrapped))

	assert.True(t, IsNotFound(fmt.Errorf("tick: %w", &NotFoundError{Resource: "sync settings"})))
	assert.True(t, IsFormat(fmt.Errorf("file: %w", &FormatError{Path: "a.csv", Err: errors.New("x")})))
	assert.True(t, IsConfig(&ConfigError{Field: "f", Err: errors.New("x")}))
}
