package dfc

import (
	"math"

	"github.com/montanaflynn/stats"
)

// Summary describes the distribution of the finite global connectivity
// values of a run.
type Summary struct {
	Count  int     `yaml:"count"`
	NaN    int     `yaml:"nan"`
	Mean   float64 `yaml:"mean"`
	StdDev float64 `yaml:"stdDev"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
	Median float64 `yaml:"median"`
}

// Summarize computes a Summary over every element of gfc. NaN values are
// counted and left out.
func Summarize(gfc [][]float64) (Summary, error) {
	var s Summary

	var data stats.Float64Data
	for _, g := range gfc {
		for _, v := range g {
			if math.IsNaN(v) {
				s.NaN++
				continue
			}
			data = append(data, v)
		}
	}

	s.Count = len(data)
	if s.Count == 0 {
		return s, nil
	}

	var err error
	if s.Mean, err = data.Mean(); err != nil {
		return s, err
	}
	if s.StdDev, err = data.StandardDeviation(); err != nil {
		return s, err
	}
	if s.Min, err = data.Min(); err != nil {
		return s, err
	}
	if s.Max, err = data.Max(); err != nil {
		return s, err
	}
	if s.Median, err = data.Median(); err != nil {
		return s, err
	}

	return s, nil
}
