package model

// Side defines the position direction, long or short.
type Side byte

const (
	// NoSide defines a missing side.
	NoSide Side = iota
	// Long defines a long position.
	Long
	// Short defines a short position.
	Short
)

// SignedSide returns the side based on the given sign.
func SignedSide(v float64) Side {
	if v > 0 {
		return Long
	} else if v < 0 {
		return Short
	}
	return NoSide
}

// Sign returns the appropriate sign for the given side for mathematical operations.
func (s Side) Sign() float64 {
	switch s {
	case Long:
		return 1.0
	case Short:
		return -1.0
	}
	return 0.0
}

// Inv inverts the side, long to short and short to long.
func (s Side) Inv() Side {
	switch s {
	case Long:
		return Short
	case Short:
		return Long
	}
	return NoSide
}

func (s Side) String() string {
	switch s {
	case Long:
		return "long"
	case Short:
		return "short"
	}
	return ""
}
