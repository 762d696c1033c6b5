package adns

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProtectSigpipeNests(t *testing.T) {
	protectSigpipe()
	protectSigpipe()
	assert.Equal(t, 2, sigpipeDepth)
	unprotectSigpipe()
	assert.Equal(t, 1, sigpipeDepth)
	assert.NotNil(t, sigpipeCh)
	unprotectSigpipe()
	assert.Equal(t, 0, sigpipeDepth)
	assert.Nil(t, sigpipeCh)
}
