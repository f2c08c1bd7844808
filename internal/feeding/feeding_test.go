package feeding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(Layout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestStatusAt_Scenarios(t *testing.T) {
	tests := []struct {
		name    string
		lastFed string
		freq    Frequency
		today   string
		want    Status
	}{
		{"due exactly on interval", "2024-01-01", OnceWeek, "2024-01-08", FeedToday},
		{"overdue", "2024-01-01", OnceWeek, "2024-01-10", Hungry},
		{"recently fed", "2024-01-01", OnceWeek, "2024-01-03", NotHungry},
		{"fed today", "2024-01-01", OnceWeek, "2024-01-01", NotHungry},
		{"few times a week due", "2024-03-01", FewTimesWeek, "2024-03-04", FeedToday},
		{"two weeks overdue", "2024-03-01", OnceTwoWeeks, "2024-03-20", Hungry},
		{"monthly across leap day", "2024-02-01", OnceMonth, "2024-03-02", FeedToday},
		{"rarely not yet", "2024-01-01", Rarely, "2024-02-15", NotHungry},
		{"future last fed", "2024-05-01", OnceWeek, "2024-04-20", NotHungry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := StatusAt(tt.lastFed, tt.freq, day(tt.today))
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusAt_NoData(t *testing.T) {
	now := day("2024-01-08")
	tests := []struct {
		name    string
		lastFed string
		freq    Frequency
	}{
		{"missing last fed", "", OnceWeek},
		{"malformed date", "2024-13-45", OnceWeek},
		{"ui layout is not canonical", "01-01-2024", OnceWeek},
		{"garbage", "yesterday", OnceWeek},
		{"unmapped frequency", "2024-01-01", Frequency("daily")},
		{"empty frequency", "2024-01-01", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := StatusAt(tt.lastFed, tt.freq, now)
			assert.False(t, ok)
			assert.Empty(t, got)
		})
	}
}

func TestStatusAt_IgnoresTimeOfDay(t *testing.T) {
	late := time.Date(2024, 1, 8, 23, 59, 59, 0, time.UTC)
	got, ok := StatusAt("2024-01-01", OnceWeek, late)
	require.True(t, ok)
	assert.Equal(t, FeedToday, got)

	loc := time.FixedZone("UTC+13", 13*3600)
	early := time.Date(2024, 1, 8, 0, 30, 0, 0, loc)
	got, ok = StatusAt("2024-01-01", OnceWeek, early)
	require.True(t, ok)
	assert.Equal(t, FeedToday, got, "the local calendar date decides, not the UTC instant")
}

func TestStatusAt_FeedTodayIffElapsedEqualsInterval(t *testing.T) {
	start := day("2023-12-20")
	for _, f := range Frequencies() {
		interval, ok := Interval(f)
		require.True(t, ok)
		for offset := -2; offset <= 70; offset++ {
			now := start.AddDate(0, 0, offset)
			got, ok := StatusAt("2023-12-20", f, now)
			require.True(t, ok)
			elapsed, _ := ElapsedDays("2023-12-20", now)
			assert.Equal(t, elapsed == interval, got == FeedToday, "f=%s offset=%d", f, offset)
			assert.Contains(t, []Status{Hungry, FeedToday, NotHungry}, got)
		}
	}
}

func TestCurrentStatus_UsesPackageClock(t *testing.T) {
	orig := timeNow
	t.Cleanup(func() { timeNow = orig })
	timeNow = func() time.Time { return day("2024-01-10") }

	got, ok := CurrentStatus("2024-01-01", OnceWeek)
	require.True(t, ok)
	assert.Equal(t, Hungry, got)
	assert.Equal(t, "2024-01-10", Today())
}

func TestNextFeedingDate(t *testing.T) {
	assert.Equal(t, "2024-01-08", NextFeedingDate("2024-01-01", OnceWeek))
	assert.Equal(t, "2024-01-04", NextFeedingDate("2024-01-01", FewTimesWeek))
	assert.Equal(t, "2024-03-01", NextFeedingDate("2024-02-16", OnceTwoWeeks))
	assert.Equal(t, "2024-03-01", NextFeedingDate("2024-01-31", OnceMonth))
	assert.Equal(t, "2024-03-01", NextFeedingDate("2024-01-01", Rarely))

	assert.Empty(t, NextFeedingDate("", OnceWeek))
	assert.Empty(t, NextFeedingDate("not-a-date", OnceWeek))
	assert.Empty(t, NextFeedingDate("2024-01-01", "hourly"))
}

func TestNextFeedingDate_StableUnderReformat(t *testing.T) {
	for _, f := range Frequencies() {
		next := NextFeedingDate("2024-11-28", f)
		parsed, err := ParseDate(next)
		require.NoError(t, err)
		assert.Equal(t, next, FormatDate(parsed))
	}
}

func TestParseFrequency(t *testing.T) {
	f, err := ParseFrequency(" Once_Week ")
	require.NoError(t, err)
	assert.Equal(t, OnceWeek, f)

	_, err = ParseFrequency("daily")
	assert.Error(t, err)

	assert.Equal(t, "once a week", OnceWeek.Label())
	assert.Equal(t, "daily", Frequency("daily").Label())
	assert.False(t, Frequency("daily").Valid())
}

func TestFrequencies_ReturnsCopy(t *testing.T) {
	fs := Frequencies()
	require.Len(t, fs, 5)
	fs[0] = "mutated"
	assert.Equal(t, FewTimesWeek, Frequencies()[0])
}

func TestStatusRank(t *testing.T) {
	assert.Less(t, Hungry.Rank(), FeedToday.Rank())
	assert.Less(t, FeedToday.Rank(), NotHungry.Rank())
	assert.Less(t, NotHungry.Rank(), Status("").Rank())
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2024-01-05", "2024-01-05", false},
		{" 2024-01-05 ", "2024-01-05", false},
		{"05-01-2024", "2024-01-05", false},
		{"31-02-2024", "", true},
		{"2024/01/05", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToUI(t *testing.T) {
	assert.Equal(t, "05-01-2024", ToUI("2024-01-05"))
	assert.Equal(t, "garbage", ToUI("garbage"))
}

func TestElapsedDays(t *testing.T) {
	n, ok := ElapsedDays("2024-01-01", day("2024-01-08"))
	require.True(t, ok)
	assert.Equal(t, 7, n)

	n, ok = ElapsedDays("2024-01-08", day("2024-01-01"))
	require.True(t, ok)
	assert.Equal(t, -7, n)

	_, ok = ElapsedDays("bad", day("2024-01-01"))
	assert.False(t, ok)
}
