package hostio_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunjay/wolf-asm/internal/hostio"
)

func TestWriteScalarValidRune(t *testing.T) {
	var out bytes.Buffer
	a := hostio.New(strings.NewReader(""), &out)
	require.NoError(t, a.WriteScalar('A'))
	assert.Equal(t, "A", out.String())
}

func TestWriteScalarMultibyte(t *testing.T) {
	var out bytes.Buffer
	a := hostio.New(strings.NewReader(""), &out)
	require.NoError(t, a.WriteScalar(0x1F600)) // an emoji scalar value
	assert.Equal(t, string(rune(0x1F600)), out.String())
}

func TestWriteScalarSurrogateSubstitutesReplacementChar(t *testing.T) {
	var out bytes.Buffer
	a := hostio.New(strings.NewReader(""), &out)
	require.NoError(t, a.WriteScalar(0xD800))
	assert.Equal(t, "�", out.String())
}

func TestWriteScalarAboveMaxSubstitutesReplacementChar(t *testing.T) {
	var out bytes.Buffer
	a := hostio.New(strings.NewReader(""), &out)
	require.NoError(t, a.WriteScalar(0x110000))
	assert.Equal(t, "�", out.String())
}

func TestReadBytesExact(t *testing.T) {
	a := hostio.New(strings.NewReader("abcd"), &bytes.Buffer{})
	got := a.ReadBytes(4)
	assert.Equal(t, []byte("abcd"), got)
}

func TestReadBytesZeroFillsAtEOF(t *testing.T) {
	a := hostio.New(strings.NewReader("ab"), &bytes.Buffer{})
	got := a.ReadBytes(4)
	assert.Equal(t, []byte{'a', 'b', 0, 0}, got)
}

func TestReadBytesZeroFillsWhenFullyExhausted(t *testing.T) {
	a := hostio.New(strings.NewReader(""), &bytes.Buffer{})
	got := a.ReadBytes(8)
	assert.Equal(t, make([]byte, 8), got)
}
