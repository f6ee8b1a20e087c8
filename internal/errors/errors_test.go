package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByType(t *testing.T) {
	err := fmt.Errorf("commit: %w", NothingStaged("notes.txt"))

	assert.True(t, stderrors.Is(err, ErrNothingStaged))
	assert.False(t, stderrors.Is(err, ErrNoCommit))
	assert.Equal(t, ErrorTypeNothingStaged, TypeOf(err))
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{NotFound("x"), 10},
		{Corrupt("x", nil), 11},
		{FileNotFound("x"), 20},
		{NothingStaged("x"), 21},
		{NoCommit("x"), 22},
		{AlreadyInitialized("x"), 23},
		{NotInitialized("x"), 24},
		{InvalidPath("x", "y"), 25},
		{Busy("x"), 30},
		{Usage("x"), 2},
		{Internal("x", nil), 1},
		{stderrors.New("unclassified"), 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(tt.err), "%v", tt.err)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("disk on fire")
	err := Internal("writing working file", cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, "writing working file: disk on fire", err.Error())
}

func TestAsUnclassified(t *testing.T) {
	e := As(stderrors.New("boom"))
	assert.Equal(t, ErrorTypeInternal, e.Type)
	assert.Equal(t, "boom", e.Message)
	assert.Nil(t, As(nil))
}
