package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("13:00:00")
	require.NoError(t, err)
	require.Equal(t, Clock(13, 0, 0), tod)
	require.Equal(t, "13:00:00", tod.String())

	for _, bad := range []string{"", "25:00:00", "12:60:00", "1pm", "12:00"} {
		_, err := ParseTimeOfDay(bad)
		require.Error(t, err, "input %q", bad)
	}
}

func TestTimeOfDayOf(t *testing.T) {
	loc := time.FixedZone("test", 10*3600)
	ts := time.Date(2026, 3, 1, 23, 59, 59, 999_999_999, loc)
	require.Equal(t, Clock(23, 59, 59), TimeOfDayOf(ts))
}

func TestWindow_Wraparound(t *testing.T) {
	w := Window{Start: MustParseTimeOfDay("13:00:00"), End: MustParseTimeOfDay("00:59:59")}
	require.True(t, w.Wraps())

	for _, in := range []string{"13:00:00", "23:59:59", "00:00:00", "00:59:59"} {
		require.True(t, w.Contains(MustParseTimeOfDay(in)), "%s should be inside", in)
	}
	for _, out := range []string{"01:00:00", "12:59:59"} {
		require.False(t, w.Contains(MustParseTimeOfDay(out)), "%s should be outside", out)
	}
}

func TestWindow_SameDay(t *testing.T) {
	w := Window{Start: MustParseTimeOfDay("01:00:00"), End: MustParseTimeOfDay("12:59:59")}
	require.False(t, w.Wraps())

	for _, in := range []string{"01:00:00", "06:30:00", "12:59:59"} {
		require.True(t, w.Contains(MustParseTimeOfDay(in)), "%s should be inside", in)
	}
	for _, out := range []string{"13:00:00", "00:00:00", "00:59:59"} {
		require.False(t, w.Contains(MustParseTimeOfDay(out)), "%s should be outside", out)
	}
}

func TestWindow_SingleInstant(t *testing.T) {
	noon := Clock(12, 0, 0)
	w := Window{Start: noon, End: noon}
	require.True(t, w.Contains(noon))
	require.False(t, w.Contains(noon+1))
	require.False(t, w.Contains(noon-1))
}

func TestWindow_DayAndNightPartitionTheDay(t *testing.T) {
	day := Window{Start: Clock(1, 0, 0), End: Clock(12, 59, 59)}
	night := Window{Start: Clock(13, 0, 0), End: Clock(0, 59, 59)}

	for s := TimeOfDay(0); s < SecondsPerDay; s++ {
		inDay, inNight := day.Contains(s), night.Contains(s)
		if inDay == inNight {
			t.Fatalf("%s: day=%v night=%v, want exactly one", s, inDay, inNight)
		}
	}
}

func TestRoleProfile_UnrestrictedIgnoresWindow(t *testing.T) {
	// A stray window on an unrestricted profile must never be consulted.
	p := RoleProfile{
		Key:    RoleKey{Base: RoleManager},
		Window: &Window{Start: Clock(9, 0, 0), End: Clock(9, 0, 0)},
	}
	for s := TimeOfDay(0); s < SecondsPerDay; s += 37 {
		require.True(t, p.Permits(s))
	}
}

func TestRoleProfile_RestrictedWithoutWindowDenies(t *testing.T) {
	p := RoleProfile{Key: RoleKey{Base: RoleDayAdmin}, TimeRestricted: true}
	require.False(t, p.Permits(Clock(6, 0, 0)))
}
