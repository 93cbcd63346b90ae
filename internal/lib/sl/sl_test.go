package sl

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSecret(t *testing.T) {
	require.Equal(t, "sk-or***", Secret("sk-or-v1-abcdef").Value.String())
	require.Equal(t, "***", Secret("abc").Value.String())
	require.Equal(t, "?", Secret("").Value.String())
	require.Equal(t, "secret", Secret("x").Key)
}

func TestErr(t *testing.T) {
	a := Err(errors.New("boom"))
	require.Equal(t, "error", a.Key)
	require.Equal(t, "boom", a.Value.String())
	require.Empty(t, Err(nil).Value.String())
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelError, ParseLevel(" error "))
	require.Equal(t, slog.LevelInfo, ParseLevel(""))
	require.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
