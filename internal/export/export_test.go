package export

import (
	"bytes"
	"errors"
	"image/png"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvlab/pulsesweep/internal/fsutil"
	"github.com/nvlab/pulsesweep/internal/sweep"
)

func odmrResult() sweep.Result {
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	values := []float64{2.90e9, 2.88e9, 2.86e9}
	readings := [][]float64{{0.0030, 0.0012, 0.0028}, {0.0032, 0.0010, 0.0026}}
	var points []sweep.Point
	for loop, row := range readings {
		for i, r := range row {
			points = append(points, sweep.Point{Loop: loop, Index: i, Value: values[i], Reading: r, At: at})
		}
	}
	return sweep.Result{
		RunID:        "0195-test",
		Experiment:   "odmr",
		AxisField:    "freq_Hz",
		ReadingField: "contrast",
		Status:       sweep.StatusCompleted,
		Points:       points,
	}
}

func TestWriteCSV(t *testing.T) {
	res := odmrResult()
	res.Points = res.Points[:3]

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, res))

	want := "freq_Hz,contrast\n2.9e+09,0.003\n2.88e+09,0.0012\n2.86e+09,0.0028\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("WriteCSV mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCSV_DefaultFieldNames(t *testing.T) {
	res := sweep.Result{Points: []sweep.Point{{Value: 1, Reading: 2}}}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, res))
	assert.Equal(t, "value,reading\n1,2\n", buf.String())
}

func TestWriteCSV_Empty(t *testing.T) {
	assert.Error(t, WriteCSV(io.Discard, sweep.Result{}))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteCSV_WriterError(t *testing.T) {
	err := WriteCSV(failingWriter{}, odmrResult())
	assert.ErrorContains(t, err, "disk full")
}

func TestSummarize(t *testing.T) {
	s := Summarize(odmrResult())

	assert.Equal(t, "freq_Hz", s.AxisField)
	assert.Equal(t, 6, s.Points)
	assert.Equal(t, []float64{2.90e9, 2.88e9, 2.86e9}, s.Values)
	require.Len(t, s.Means, 3)
	assert.InDelta(t, 0.0031, s.Means[0], 1e-12)
	assert.InDelta(t, 0.0011, s.Means[1], 1e-12)
	assert.InDelta(t, 0.0027, s.Means[2], 1e-12)

	assert.Equal(t, 2.88e9, s.MinValue, "resonance dip")
	assert.InDelta(t, 0.0011, s.MinMean, 1e-12)
	assert.Equal(t, 2.90e9, s.MaxValue)
	assert.Greater(t, s.StdDev, 0.0)

	empty := Summarize(sweep.Result{})
	assert.Zero(t, empty.Points)
	assert.Empty(t, empty.Values)
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, odmrResult()))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 0)

	assert.Error(t, WritePNG(io.Discard, sweep.Result{}))
}

func TestSavePNG(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, SavePNG(fsys, "plots/run.png", odmrResult()))

	data, err := fsys.ReadFile("plots/run.png")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, odmrResult()))

	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "freq_Hz")
	assert.Contains(t, html, "contrast")
	assert.Contains(t, html, "run=0195-test")

	assert.Error(t, WriteHTML(io.Discard, sweep.Result{}))
}

func TestWriteAll(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	res := odmrResult()

	paths, err := WriteAll(fsys, "out", "odmr-"+res.RunID, res)
	require.NoError(t, err)

	want := []string{
		filepath.Join("out", "odmr-0195-test.csv"),
		filepath.Join("out", "odmr-0195-test.png"),
		filepath.Join("out", "odmr-0195-test.html"),
	}
	assert.Equal(t, want, paths)
	assert.True(t, fsys.Exists("out"))

	csvData, err := fsys.ReadFile(want[0])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(csvData), "freq_Hz,contrast\n"))

	paths, err = WriteAll(fsys, "empty", "none", sweep.Result{})
	require.NoError(t, err)
	assert.Empty(t, paths)
	assert.False(t, fsys.Exists("empty"))
}
