package tracking

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

type netTimeout struct{}

func (netTimeout) Error() string   { return "i/o timeout" }
func (netTimeout) Timeout() bool   { return true }
func (netTimeout) Temporary() bool { return true }

func TestClassifyChannelError(t *testing.T) {
	err := classifyChannelError(&net.OpError{Op: "dial", Err: netTimeout{}})
	assert.Equal(t, Timeout, err.Kind)

	err = classifyChannelError(errors.New("bad handshake"))
	assert.Equal(t, ChannelTransportError, err.Kind)
	assert.Contains(t, err.Error(), "bad handshake")
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "snapshotFetchFailed", SnapshotFetchFailed.String())
	assert.Equal(t, "errorKind(99)", ErrorKind(99).String())
}
