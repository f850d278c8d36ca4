package trafficlight

type stateKeyType string

const (
	stateKey stateKeyType = "state"
)

// State is the view of the light held by a Crossing.
type State struct {
	Phase     Phase
	Crossing  int
	HookIndex int
}

func newState() *State {
	return &State{
		Phase:     PhaseRed,
		Crossing:  0,
		HookIndex: 0,
	}
}

// NextCrossing records that the light was seen green.
func (s *State) NextCrossing() {
	s.Phase = PhaseGreen
	s.Crossing++
	s.HookIndex = 0
}
