package trafficlight

// Phase is the state of the light.
type Phase string

const (
	PhaseRed   Phase = "red"
	PhaseGreen Phase = "green"
)

func (p Phase) String() string {
	return string(p)
}

// Toggle returns the complement of p. It is only defined for valid phases;
// an invalid p yields PhaseGreen.
func (p Phase) Toggle() Phase {
	if p == PhaseGreen {
		return PhaseRed
	}
	return PhaseGreen
}

func (p Phase) IsValid() bool {
	return p == PhaseRed || p == PhaseGreen
}
