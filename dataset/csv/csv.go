/*
Package csv reads query points from and writes predictions to CSV streams.
*/
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/feature"
)

/*
ReadPoints takes an io.Reader for a CSV stream and the features of a model
and returns the points parsed from it or an error.

The header or first row of the CSV content must name every feature in the
given slice, in any order. Columns for other names are ignored. The rest of
the rows should consist of float values and/or the '?' string to indicate
an undefined value.
*/
func ReadPoints(reader io.Reader, features []feature.Feature) (*dataset.Points, error) {
	points := &dataset.Points{Features: features}
	err := ReadPointsByRow(reader, features, func(_ int, x []float64) (bool, error) {
		points.Rows = append(points.Rows, x)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}

/*
ReadPointsByRow takes an io.Reader for a CSV stream, the features of a model
and a lambda function on an integer and a point that returns a boolean
value. It parses the points from the reader and for each it calls the
lambda function with the point and its index as parameters. If the lambda
function returns true, it will continue processing the next point,
otherwise it will stop.
*/
func ReadPointsByRow(reader io.Reader, features []feature.Feature, lambda func(int, []float64) (bool, error)) error {
	r := csv.NewReader(reader)
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("reading header: %v", err)
	}
	positions, err := dataset.CheckColumns(header, features)
	if err != nil {
		return fmt.Errorf("parsing header: %v", err)
	}
	for l := 2; ; l++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading body: %v", err)
		}
		x, err := parsePoint(row, positions, features)
		if err != nil {
			return fmt.Errorf("parsing line %d: %v", l, err)
		}
		ok, err := lambda(l-2, x)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	return nil
}

/*
ReadPointsFromFilePath takes a filepath string and the features of a model,
opens the file to which the filepath points to and uses ReadPoints to
return the points in it. If the filepath is "" os.Stdin is read instead.
*/
func ReadPointsFromFilePath(filepath string, features []feature.Feature) (*dataset.Points, error) {
	var f *os.File
	var err error
	if filepath == "" {
		f = os.Stdin
	} else {
		f, err = os.Open(filepath)
		if err != nil {
			return nil, fmt.Errorf("reading points: %v", err)
		}
		defer f.Close()
	}
	points, err := ReadPoints(f, features)
	if err != nil {
		err = fmt.Errorf("parsing CSV file %s: %v", filepath, err)
	}
	return points, err
}

func parsePoint(row []string, positions []int, features []feature.Feature) ([]float64, error) {
	x := make([]float64, len(positions))
	for d, i := range positions {
		v := row[i]
		if v == dataset.Undefined {
			x[d] = math.NaN()
			continue
		}
		value, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("converting %s to float64 for feature %s: %v", v, features[d].Name(), err)
		}
		x[d] = value
	}
	return x, nil
}

/*
Writer writes predictions as CSV rows with the features of their points
followed by dataset.ResultColumns.
*/
type Writer struct {
	count int
	w     *csv.Writer
}

/*
NewWriter takes an io.Writer and the features of a model and returns a
Writer that will write predictions on the io.Writer, after writing the
header.
*/
func NewWriter(writer io.Writer, features []feature.Feature) (*Writer, error) {
	w := csv.NewWriter(writer)
	record := append(feature.Names(features), dataset.ResultColumns...)
	err := w.Write(record)
	if err != nil {
		return nil, fmt.Errorf("writing CSV header: %v", err)
	}
	return &Writer{w: w}, nil
}

/*
Write takes a context and predictions and writes them, returning the number
of predictions actually written and an error if not all could be.
*/
func (cw *Writer) Write(ctx context.Context, predictions []dataset.Prediction) (int, error) {
	for n, p := range predictions {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := cw.writePrediction(p); err != nil {
			return n, err
		}
	}
	return len(predictions), nil
}

// Count returns the total number of predictions written
func (cw *Writer) Count() int {
	return cw.count
}

// Flush ensures any buffered rows are written to the underlying writer
func (cw *Writer) Flush() error {
	cw.w.Flush()
	return cw.w.Error()
}

func (cw *Writer) writePrediction(p dataset.Prediction) error {
	record := make([]string, 0, len(p.Point)+len(dataset.ResultColumns))
	for _, v := range p.Point {
		record = append(record, formatValue(v))
	}
	record = append(record, formatValue(p.Mean), formatValue(p.Variance), formatValue(p.Std), formatValue(p.Merit))
	if p.Err != nil {
		record = append(record, p.Err.Error())
	} else {
		record = append(record, "")
	}
	err := cw.w.Write(record)
	if err != nil {
		return fmt.Errorf("writing CSV row for prediction %d: %v", cw.count+1, err)
	}
	cw.count++
	return nil
}

/*
WritePredictions takes a context, a writer, the features of a model and
predictions and dumps the predictions to the writer in CSV format. It
returns the number of rows written.
*/
func WritePredictions(ctx context.Context, writer io.Writer, features []feature.Feature, predictions []dataset.Prediction) (int, error) {
	cw, err := NewWriter(writer, features)
	if err != nil {
		return 0, err
	}
	if _, err = cw.Write(ctx, predictions); err != nil {
		return cw.Count(), err
	}
	return cw.Count(), cw.Flush()
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return dataset.Undefined
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
