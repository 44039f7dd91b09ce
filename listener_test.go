package reactor

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenerSetInstallGetRemove(t *testing.T) {
	set := NewListenerSet()
	assert.Equal(t, 0, set.Len())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	entry := &ListenerEntry{Addr: ln.Addr(), Listener: ln}
	set.install(entry)
	assert.Equal(t, 1, set.Len())

	got, ok := set.Get(ln.Addr())
	require.True(t, ok)
	assert.Same(t, entry, got)

	removed, ok := set.remove(ln.Addr())
	require.True(t, ok)
	assert.Same(t, entry, removed)
	assert.Equal(t, 0, set.Len())

	_, ok = set.remove(ln.Addr())
	assert.False(t, ok)
}

func TestResolveWildcardNil(t *testing.T) {
	addr, err := resolveWildcard(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, addr.Port)
}

func TestResolveWildcardTCPAddrPassthrough(t *testing.T) {
	want := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9001}
	got, err := resolveWildcard(want)
	require.NoError(t, err)
	assert.Same(t, want, got)
}
