package token

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRandGenerator_Size(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      int
		wantErr bool
	}{
		{in: 0},
		{in: 16},
		{in: 64},
		{in: 8, wantErr: true},
		{in: 65, wantErr: true},
		{in: -1, wantErr: true},
	}

	for _, tc := range cases {
		_, err := NewRandGenerator(tc.in)
		if tc.wantErr {
			require.ErrorIs(t, err, ErrEntropySize, "size=%d", tc.in)
			continue
		}
		require.NoError(t, err, "size=%d", tc.in)
	}
}

func TestRandGenerator_NewEntropy(t *testing.T) {
	t.Parallel()

	g, err := NewRandGenerator(32)
	require.NoError(t, err)

	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		e, err := g.NewEntropy()
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(e)
		require.NoError(t, err)
		require.Len(t, raw, 32)
		require.NotContains(t, e, ":")

		_, dup := seen[e]
		require.False(t, dup, "duplicate entropy %q", e)
		seen[e] = struct{}{}
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestRandGenerator_SourceFailure(t *testing.T) {
	t.Parallel()

	g := &RandGenerator{n: 32, reader: failingReader{}}
	_, err := g.NewEntropy()
	require.ErrorIs(t, err, ErrEntropySource)
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", Fingerprint(""))

	fp := Fingerprint("abc")
	require.Len(t, fp, 12)
	require.True(t, strings.HasPrefix(HashSHA256Hex("abc"), fp))
	require.NotEqual(t, fp, Fingerprint("abd"))
}
