package sweep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinspace(t *testing.T) {
	got, err := Linspace(2.86e9, 2.90e9, 5)
	require.NoError(t, err)
	want := []float64{2.86e9, 2.87e9, 2.88e9, 2.89e9, 2.90e9}
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-3)
	}

	one, err := Linspace(0.05, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.05}, one)

	_, err = Linspace(0, 1, 0)
	assert.Error(t, err)
}

func TestNewAxis(t *testing.T) {
	values := []float64{1, 2, 3}

	a, err := NewAxis(values, 2, true)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 2, 1}, a.Values)
	assert.Equal(t, []float64{1, 2, 3}, values, "input left untouched")
	assert.Equal(t, 6, a.Total())
	assert.Equal(t, 1, a.Ordinal(0, 0))
	assert.Equal(t, 5, a.Ordinal(1, 1))

	_, err = NewAxis(nil, 1, false)
	assert.Error(t, err)
	_, err = NewAxis(values, 0, false)
	assert.Error(t, err)
}

func TestResult_Means(t *testing.T) {
	res := Result{Points: []Point{
		{Value: 3, Reading: 1},
		{Value: 2, Reading: 2},
		{Value: 3, Reading: 3},
		{Value: 2, Reading: 6},
	}}
	values, means := res.Means()
	assert.Equal(t, []float64{3, 2}, values)
	assert.Equal(t, []float64{2, 4}, means)

	values, means = Result{}.Means()
	assert.Empty(t, values)
	assert.Empty(t, means)
}

func TestStatus_Done(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusCancelled, StatusFailed} {
		assert.True(t, s.Done(), s)
	}
	for _, s := range []Status{StatusIdle, StatusRunning} {
		assert.False(t, s.Done(), s)
	}
}
