package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFit_EmptyCohortYieldsUnitRange(t *testing.T) {
	s := Fit(nil)
	assert.Equal(t, 0.5, s.Transform(0.5))
}

func TestFit_ConstantCohortNeverDivides(t *testing.T) {
	s := Fit([]float64{5, 5, 5, 5})
	assert.Equal(t, 0.5, s.Transform(5))
}

func TestTransform_ClampsOutsideRange(t *testing.T) {
	s := Fit([]float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100})
	assert.Equal(t, 0.0, s.Transform(-1000))
	assert.Equal(t, 1.0, s.Transform(1000))
}

func TestTransform_Monotone(t *testing.T) {
	s := Fit([]float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100})
	low := s.Transform(10)
	high := s.Transform(90)
	assert.Less(t, low, high)
}
