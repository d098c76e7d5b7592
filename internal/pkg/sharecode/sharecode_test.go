package sharecode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCodeShape(t *testing.T) {
	code := New()
	require.Len(t, code, CodeLength)
	require.Equal(t, strings.ToLower(code), code)
	for _, r := range code {
		require.Contains(t, "0123456789abcdef", string(r))
	}
	require.NotEqual(t, code, New())
}

func TestFormatNormalizeRoundTrip(t *testing.T) {
	code := New()
	formatted := Format(code)
	require.Contains(t, formatted, delimiter)
	require.Equal(t, code, Normalize(formatted))
	require.Equal(t, code, Normalize("  "+strings.ToUpper(formatted)+"\n"))
	require.Equal(t, code, Normalize(code))
}

func TestFormatGrouping(t *testing.T) {
	formatted := Format("aaaabbbbccccdddd")
	require.Equal(t, "aaaabbbb-ccccdddd", formatted)
	require.Equal(t, "abc", Format("abc"))
}

func TestFingerprintStableAndShort(t *testing.T) {
	code := New()
	require.Equal(t, Fingerprint(code), Fingerprint(code))
	require.Len(t, Fingerprint(code), fingerprintBytes*2)
	require.NotEqual(t, Fingerprint(code), Fingerprint(New()))
}

func TestHashVerify(t *testing.T) {
	code := New()
	hash, err := Hash(code)
	require.NoError(t, err)
	require.NotContains(t, hash, code)

	ok, err := Verify(code, hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Verify(New(), hash)
	require.NoError(t, err)
	require.False(t, ok)
}
