package sortedset

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidBorder is returned when a score border can not be parsed
var ErrInvalidBorder = errors.New("ERR min or max is not a float")

// ScoreBorder represents range of a float value, including: <, <=, >, >=, +inf, -inf
type ScoreBorder struct {
	Value   float64
	Exclude bool
}

// less returns true if v is on the upper side of the border used as min
func (border *ScoreBorder) less(v float64) bool {
	if border.Exclude {
		return border.Value < v
	}
	return border.Value <= v
}

// greater returns true if v is on the lower side of the border used as max
func (border *ScoreBorder) greater(v float64) bool {
	if border.Exclude {
		return border.Value > v
	}
	return border.Value >= v
}

// Contains returns true if v is within [min, max] considering exclusion
func Contains(min, max *ScoreBorder, v float64) bool {
	return min.less(v) && max.greater(v)
}

var (
	// PositiveInfBorder is +inf
	PositiveInfBorder = &ScoreBorder{Value: math.Inf(1)}
	// NegativeInfBorder is -inf
	NegativeInfBorder = &ScoreBorder{Value: math.Inf(-1)}
)

// ParseScoreBorder creates ScoreBorder from redis arguments such as "(1.5", "-inf" or "3"
func ParseScoreBorder(s string) (*ScoreBorder, error) {
	switch strings.ToLower(s) {
	case "inf", "+inf":
		return PositiveInfBorder, nil
	case "-inf":
		return NegativeInfBorder, nil
	}
	exclude := false
	if strings.HasPrefix(s, "(") {
		exclude = true
		s = s[1:]
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(value) {
		return nil, ErrInvalidBorder
	}
	return &ScoreBorder{
		Value:   value,
		Exclude: exclude,
	}, nil
}
