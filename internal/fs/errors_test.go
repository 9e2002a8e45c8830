package fs

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToFuseError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"not found", NewFSError(OpGetattr, "/x", ErrPathNotFound), syscall.ENOENT},
		{"wrapped table error", NewFSError(OpUnlink, "/x", fmt.Errorf("file %q: %w", "x", ErrPathNotFound)), syscall.ENOENT},
		{"exists", NewFSError(OpMkdir, "/x", ErrAlreadyExists), syscall.EEXIST},
		{"no space", NewFSError(OpMknod, "/x", ErrNoSpace), syscall.ENOSPC},
		{"invalid path", NewFSError(OpMkdir, "/a/b", ErrInvalidPath), syscall.EINVAL},
		{"unlink directory", NewFSError(OpUnlink, "/d", ErrInvalidTarget), syscall.EISDIR},
		{"unlink root", NewFSError(OpUnlink, "/", ErrInvalidTarget), syscall.EISDIR},
		{"read directory", NewFSError(OpRead, "/d", ErrInvalidTarget), syscall.EISDIR},
		{"rmdir file", NewFSError(OpRmdir, "/f", ErrInvalidTarget), syscall.ENOTDIR},
		{"rmdir root", NewFSError(OpRmdir, "/", ErrInvalidTarget), syscall.EBUSY},
		{"readdir file", NewFSError(OpReadDir, "/f", ErrInvalidTarget), syscall.ENOTDIR},
		{"invalid target without op", ErrInvalidTarget, syscall.EINVAL},
		{"errno passes through", syscall.EPERM, syscall.EPERM},
		{"unknown", errors.New("boom"), syscall.EIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToFuseError(tt.err))
		})
	}
}

func TestReturnCode(t *testing.T) {
	assert.Equal(t, 0, ReturnCode(nil))
	assert.Equal(t, -int(syscall.ENOENT), ReturnCode(NewFSError(OpRead, "/x", ErrPathNotFound)))
	assert.Equal(t, -int(syscall.EIO), ReturnCode(errors.New("boom")))
}

func TestErrorMessage(t *testing.T) {
	err := NewFSError(OpUnlink, "/x", ErrPathNotFound)
	assert.Equal(t, "operation unlink on /x failed: entry not found", err.Error())

	noPath := NewFSError(OpReadDir, "", ErrInvalidPath)
	assert.Equal(t, "operation readdir failed: invalid path format", noPath.Error())
}
