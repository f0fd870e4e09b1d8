package util

import (
	"strconv"

	"golang.org/x/exp/constraints"
)

func ParseFloat[T constraints.Float](s string) (T, error) {
	v, err := strconv.ParseFloat(s, 32)
	return T(v), err
}

func FormatFloat[T constraints.Float](v T) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}
