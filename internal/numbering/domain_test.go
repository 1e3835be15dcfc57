package numbering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDateKeyUsesLocalCalendarDay(t *testing.T) {
	at := time.Date(2025, 8, 17, 10, 0, 0, 0, time.Local)
	require.Equal(t, "20250817", DateKey(at))
}

func TestDateKeyPadsMonthAndDay(t *testing.T) {
	at := time.Date(2026, 1, 5, 23, 59, 59, 0, time.Local)
	require.Equal(t, "20260105", DateKey(at))
}

func TestDateKeyNormalizesForeignOffsets(t *testing.T) {
	// A decoded JSON timestamp can carry any offset the client sent.
	// The same instant must bucket to the same local day regardless.
	tokyo := time.Date(2025, 8, 18, 1, 0, 0, 0, time.FixedZone("JST", 9*3600))
	require.Equal(t, DateKey(tokyo.In(time.Local)), DateKey(tokyo))
	require.Equal(t, DateKey(tokyo.UTC()), DateKey(tokyo))
}

func TestPadSequence(t *testing.T) {
	require.Equal(t, "0001", PadSequence(1))
	require.Equal(t, "0012", PadSequence(12))
	require.Equal(t, "9999", PadSequence(9999))
}

func TestPadSequenceWidensBeyondFourDigits(t *testing.T) {
	// 10000+/day breaks the fixed-width convention but stays unique;
	// widening is the accepted behavior, not an error.
	require.Equal(t, "10000", PadSequence(10000))
	require.Equal(t, "123456", PadSequence(123456))
}

func TestFormatNumber(t *testing.T) {
	require.Equal(t, "2025-0817-0012", FormatNumber("20250817", "0012"))
	require.Equal(t, "2026-0105-0001", FormatNumber("20260105", "0001"))
}
