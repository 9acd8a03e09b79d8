package ffmpeg

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("7.200000\n")
	require.NoError(t, err)
	assert.InDelta(t, 7.2, d, 1e-9)

	for _, bad := range []string{"", "N/A", "abc", "0", "-1.5"} {
		_, err := ParseDuration(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestErrorCarriesDiagnostic(t *testing.T) {
	base := errors.New("exit status 1")
	err := fmt.Errorf("render clip: %w", &Error{Err: base, Diagnostic: "Invalid argument"})

	assert.Equal(t, "Invalid argument", Diagnostic(err))
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "Invalid argument")
	assert.Equal(t, "", Diagnostic(base))
}

func TestTailKeepsEnd(t *testing.T) {
	s := strings.Repeat("a", 50) + "END"
	got := tail(s, 10)
	assert.True(t, strings.HasSuffix(got, "END"))
	assert.Equal(t, "..."+s[len(s)-10:], got)
	assert.Equal(t, "short", tail("  short \n", 10))
}

func TestConcatLineQuotes(t *testing.T) {
	assert.Equal(t, "file '/tmp/clip_0.mp4'", ConcatLine("/tmp/clip_0.mp4"))
	assert.Equal(t, `file '/tmp/it'\''s.mp4'`, ConcatLine("/tmp/it's.mp4"))
}
