package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelWrappingPreservesIdentity(t *testing.T) {
	err := Wrap(ErrConflict, "duplicate checksum for board JB_1")
	assert.True(t, IsConflict(err))
	assert.False(t, IsNotFound(err))

	err = Wrapf(err, "persist raw job %s", "RJ_abc")
	assert.True(t, IsConflict(err))
}

func TestNewNotFoundFormats(t *testing.T) {
	err := NewNotFound("scrape job %s", "SJ_missing")
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "SJ_missing")
}

func TestNewInvalidConfig(t *testing.T) {
	err := NewInvalidConfig("html board %s missing title selector", "JB_1")
	assert.True(t, IsInvalidConfig(err))
	assert.False(t, IsConflict(err))
}

func TestDetailsAreRecoverable(t *testing.T) {
	err := WithDetail(New("fetch failed"), "Board ID: JB_9")
	details := GetAllDetails(err)
	assert.Contains(t, details, "Board ID: JB_9")
}
