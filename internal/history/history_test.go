package history

import (
	"math/rand"
	"testing"

	"github.com/HendryAvila/spiderlog/internal/feeding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_BackfillKeepsLatest(t *testing.T) {
	res := Reconcile([]string{"2024-01-01", "2024-01-08"}, "2024-01-05")

	assert.Equal(t, []string{"2024-01-01", "2024-01-05", "2024-01-08"}, res.History)
	assert.Equal(t, "2024-01-08", res.Current)
	assert.True(t, res.Added)
}

func TestReconcile_NewerDateBecomesCurrent(t *testing.T) {
	res := Reconcile([]string{"2024-01-08", "2024-01-01"}, "2024-01-15")

	assert.Equal(t, []string{"2024-01-01", "2024-01-08", "2024-01-15"}, res.History)
	assert.Equal(t, "2024-01-15", res.Current)
}

func TestReconcile_Idempotent(t *testing.T) {
	first := Reconcile([]string{"2024-01-01"}, "2024-01-08")
	second := Reconcile(first.History, "2024-01-08")

	assert.False(t, second.Added)
	assert.Equal(t, first.History, second.History)
	assert.Equal(t, first.Current, second.Current)
}

func TestReconcile_EmptyHistory(t *testing.T) {
	res := Reconcile(nil, "2024-02-03")
	assert.Equal(t, []string{"2024-02-03"}, res.History)
	assert.Equal(t, "2024-02-03", res.Current)
}

func TestReconcile_UIFormatIsNormalized(t *testing.T) {
	res := Reconcile([]string{"2024-01-08"}, "08-01-2024")
	assert.False(t, res.Added, "same calendar date in the day-first layout is a duplicate")
	assert.Equal(t, []string{"2024-01-08"}, res.History)

	res = Reconcile([]string{"2024-01-08"}, "09-01-2024")
	assert.True(t, res.Added)
	assert.Equal(t, "2024-01-09", res.Current)
}

func TestReconcile_UnparseableSubmission(t *testing.T) {
	res := Reconcile([]string{"2024-01-08"}, "soon")
	assert.False(t, res.Added)
	assert.Equal(t, []string{"2024-01-08"}, res.History)
	assert.Equal(t, "2024-01-08", res.Current)
}

func TestReconcile_CorruptHistoryIsSkipped(t *testing.T) {
	res := Reconcile([]string{"garbage", "2024-01-08"}, "2024-01-03")
	assert.Equal(t, "2024-01-08", res.Current)
	assert.Equal(t, []string{"2024-01-03", "2024-01-08", "garbage"}, res.History)
}

func TestLatest(t *testing.T) {
	got, ok := Latest([]string{"2023-12-31", "bad", "2024-01-02", "2024-01-01"})
	require.True(t, ok)
	assert.Equal(t, "2024-01-02", got)

	_, ok = Latest([]string{"bad"})
	assert.False(t, ok)
	_, ok = Latest(nil)
	assert.False(t, ok)
}

func TestSort_NonDecreasing(t *testing.T) {
	dates := []string{
		"2024-03-01", "2023-12-31", "2024-02-29", "2024-01-01",
		"2022-06-15", "2024-01-10", "2024-01-09", "2023-01-01",
	}
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		in := append([]string(nil), dates...)
		r.Shuffle(len(in), func(a, b int) { in[a], in[b] = in[b], in[a] })

		out := Sort(in)
		require.Len(t, out, len(in))
		for j := 1; j < len(out); j++ {
			prev, err := feeding.ParseDate(out[j-1])
			require.NoError(t, err)
			cur, err := feeding.ParseDate(out[j])
			require.NoError(t, err)
			assert.False(t, cur.Before(prev), "%v not sorted", out)
		}
	}
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	in := []string{"2024-01-08", "2024-01-01"}
	_ = Sort(in)
	assert.Equal(t, []string{"2024-01-08", "2024-01-01"}, in)
}

func TestMerge(t *testing.T) {
	out, added := Merge([]string{"2024-01-08"}, "2024-01-01")
	assert.True(t, added)
	assert.Equal(t, []string{"2024-01-01", "2024-01-08"}, out)

	out, added = Merge(out, "2024-01-01")
	assert.False(t, added)
	assert.Len(t, out, 2)
}
