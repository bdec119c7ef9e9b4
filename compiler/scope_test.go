package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeDeclareAndResolve(t *testing.T) {
	s := newScopeTable()
	s.enter()

	needsReserve, err := s.declare("a")
	require.NoError(t, err)
	assert.True(t, needsReserve)

	needsReserve, err = s.declare("b")
	require.NoError(t, err)
	assert.False(t, needsReserve, "second slot fits in the first 16-byte reservation")

	needsReserve, err = s.declare("c")
	require.NoError(t, err)
	assert.False(t, needsReserve)

	needsReserve, err = s.declare("d")
	require.NoError(t, err)
	assert.False(t, needsReserve)

	needsReserve, err = s.declare("e")
	require.NoError(t, err)
	assert.True(t, needsReserve, "fifth slot overflows the first 16 bytes")

	offA, ok := s.resolve("a")
	require.True(t, ok)
	offB, ok := s.resolve("b")
	require.True(t, ok)
	assert.Equal(t, offA+4, offB)

	_, ok = s.resolve("nope")
	assert.False(t, ok)
}

func TestScopeRedeclarationFails(t *testing.T) {
	s := newScopeTable()
	s.enter()
	_, err := s.declare("x")
	require.NoError(t, err)

	_, err = s.declare("x")
	require.Error(t, err)
	var se *SemanticError
	require.ErrorAs(t, err, &se)
}

func TestScopeNestedFrameBaseOffset(t *testing.T) {
	s := newScopeTable()
	s.enter()
	_, err := s.declare("a")
	require.NoError(t, err)
	_, err = s.declare("b")
	require.NoError(t, err)

	s.enter()
	_, err = s.declare("c")
	require.NoError(t, err)

	offB, ok := s.resolve("b")
	require.True(t, ok)
	offC, ok := s.resolve("c")
	require.True(t, ok)
	assert.Equal(t, offB+4, offC, "nested frame's first slot follows the enclosing frame's last")

	bytes := s.exit()
	assert.Equal(t, 0, bytes, "c's slot fit inside a's and b's existing 16-byte reservation, so this frame reserved nothing of its own")

	// "a" and "b" still resolve against the outer frame after the inner one exits.
	_, ok = s.resolve("c")
	assert.False(t, ok)
	_, ok = s.resolve("a")
	assert.True(t, ok)
}

func TestScopeFrameOnlyReportsBytesItReservedItself(t *testing.T) {
	s := newScopeTable()
	s.enter()
	for _, name := range []string{"a", "b", "c", "d"} {
		needsReserve, err := s.declare(name)
		require.NoError(t, err)
		_ = needsReserve
	}
	// Four locals exactly fill the first 16-byte reservation (offsets 4,8,12,16).
	require.Equal(t, 16, s.exit())

	s2 := newScopeTable()
	s2.enter()
	for _, name := range []string{"r", "s"} {
		_, err := s2.declare(name)
		require.NoError(t, err)
	}
	require.Equal(t, 16, s2.exit())

	// Four sibling blocks, each declaring one local that fits inside an
	// outer frame's already-reserved 16 bytes, should each report 0 bytes
	// reserved: none of them triggered their own "sub rsp, 16", so none
	// should emit a matching "add rsp, N" on exit.
	s3 := newScopeTable()
	s3.enter()
	_, err := s3.declare("r")
	require.NoError(t, err)
	_, err = s3.declare("s")
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		s3.enter()
		needsReserve, err := s3.declare("local")
		require.NoError(t, err)
		assert.False(t, needsReserve, "fits inside the outer frame's existing 16-byte reservation")
		assert.Equal(t, 0, s3.exit())
	}
}

func TestScopeInnerShadowsOuter(t *testing.T) {
	s := newScopeTable()
	s.enter()
	_, err := s.declare("x")
	require.NoError(t, err)
	outerOff, _ := s.resolve("x")

	s.enter()
	_, err = s.declare("x")
	require.NoError(t, err)
	innerOff, ok := s.resolve("x")
	require.True(t, ok)
	assert.NotEqual(t, outerOff, innerOff)

	s.exit()
	off, ok := s.resolve("x")
	require.True(t, ok)
	assert.Equal(t, outerOff, off)
}
