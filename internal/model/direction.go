package model

// Direction is the binary next-day outcome predicted by the classifier.
type Direction int

const (
	// Fall is label 0.
	Fall Direction = 0
	// Rise is label 1.
	Rise Direction = 1
)

// String returns "Rise" or "Fall".
func (d Direction) String() string {
	if d == Rise {
		return "Rise"
	}
	return "Fall"
}

// Label returns the numeric class label.
func (d Direction) Label() int {
	return int(d)
}

// Prediction is derived per request and never cached.
type Prediction struct {
	Direction   Direction `json:"direction"`
	Label       int       `json:"label"`
	Probability float64   `json:"probability"`
}

// MarshalText encodes the direction by name.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
