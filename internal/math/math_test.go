package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {

	type test struct {
		a, b      float64
		op        Op
		tolerance float64
		want      bool
		err       bool
	}

	tests := map[string]test{
		"gt-strict-false":     {a: 1, b: 2, op: GT, want: false},
		"gt-tolerance-20":     {a: 1, b: 2, op: GT, tolerance: 20, want: false},
		"gt-tolerance-50":     {a: 1, b: 2, op: GT, tolerance: 50, want: true},
		"gt-tolerance-70":     {a: 1, b: 2, op: GT, tolerance: 70, want: true},
		"gt-strict-true":      {a: 3, b: 2, op: GT, want: true},
		"lt-strict-true":      {a: 1, b: 2, op: LT, want: true},
		"lt-tolerance":        {a: 2.1, b: 2, op: LT, tolerance: 10, want: true},
		"eq-within-tolerance": {a: 101, b: 100, op: EQ, tolerance: 2, want: true},
		"bad-operand":         {a: -1, b: 2, op: GT, err: true},
		"bad-operator":        {a: 1, b: 2, op: Op("~"), err: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := Compare(tt.a, tt.b, tt.op, tt.tolerance)
			if tt.err {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, 33.33, Round(100.0/3.0, 2))
	assert.Equal(t, 10.0, Round(10.004, 2))
	assert.Equal(t, -1.0, Round(-1.004, 2))
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 3.0, Mean([]float64{1, 2, 3, 4, 5}))
}
