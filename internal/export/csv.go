// Package export writes sweep results as CSV tables, PNG plots and
// interactive HTML charts.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/nvlab/pulsesweep/internal/sweep"
)

func fieldNames(res sweep.Result) (axis, reading string) {
	axis, reading = res.AxisField, res.ReadingField
	if axis == "" {
		axis = "value"
	}
	if reading == "" {
		reading = "reading"
	}
	return axis, reading
}

// WriteCSV writes one row per point, in measurement order, under a header
// of the result's field names.
func WriteCSV(w io.Writer, res sweep.Result) error {
	if len(res.Points) == 0 {
		return errors.New("export: result has no points")
	}
	cw := csv.NewWriter(w)
	axis, reading := fieldNames(res)
	if err := cw.Write([]string{axis, reading}); err != nil {
		return err
	}
	for _, p := range res.Points {
		row := []string{
			strconv.FormatFloat(p.Value, 'g', -1, 64),
			strconv.FormatFloat(p.Reading, 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
