package csv

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var features = feature.NewContinuousFeatures([]string{"x", "z"})

func TestReadPoints(t *testing.T) {
	input := "id,z,x\na,1.5,-2\nb,?,3e2\n"
	points, err := ReadPoints(strings.NewReader(input), features)
	require.NoError(t, err)
	require.Equal(t, 2, points.Len())
	assert.Equal(t, []float64{-2, 1.5}, points.Rows[0])
	assert.Equal(t, 300.0, points.Rows[1][0])
	assert.True(t, math.IsNaN(points.Rows[1][1]))
}

func TestReadPointsErrors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing column", "x\n1\n"},
		{"duplicated column", "x,z,x\n1,2,3\n"},
		{"not a number", "x,z\n1,abc\n"},
		{"short row", "x,z\n1\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadPoints(strings.NewReader(tc.input), features)
			assert.Error(t, err)
		})
	}
}

func TestReadPointsByRowStops(t *testing.T) {
	var seen int
	err := ReadPointsByRow(strings.NewReader("x,z\n1,2\n3,4\n5,6\n"), features, func(i int, x []float64) (bool, error) {
		seen++
		return i < 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, seen)
}

func TestWritePredictions(t *testing.T) {
	predictions := []dataset.Prediction{
		{Point: []float64{0.5, 1}, Mean: 3, Variance: 4, Std: 2, Merit: math.NaN()},
		{Point: []float64{2, math.NaN()}, Mean: math.NaN(), Variance: math.NaN(), Std: math.NaN(), Merit: math.NaN(), Err: errors.New("bad point")},
	}
	var buf bytes.Buffer
	n, err := WritePredictions(context.Background(), &buf, features, predictions)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "x,z,mean,variance,std,merit,error\n0.5,1,3,4,2,?,\n2,?,?,?,?,?,bad point\n", buf.String())

	points, err := ReadPoints(&buf, features)
	require.NoError(t, err)
	assert.Equal(t, 2, points.Len())
}
