package pipeline

// State is a pipeline run's position in the phase sequence.
type State int

const (
	StateInit State = iota
	StatePreserved
	StateMarked
	StateClustered
	StateDeassigned
	StateEncapsulated
	StateTracked
	StateDone
)

var stateNames = [...]string{
	StateInit:         "init",
	StatePreserved:    "preserved",
	StateMarked:       "marked",
	StateClustered:    "clustered",
	StateDeassigned:   "deassigned",
	StateEncapsulated: "encapsulated",
	StateTracked:      "tracked",
	StateDone:         "done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Phases returns the names of the states a full run passes through after
// Init, in order. These are the phase names dump sinks receive.
func Phases() []string {
	out := make([]string, 0, len(stateNames)-1)
	for s := StatePreserved; s <= StateDone; s++ {
		out = append(out, s.String())
	}
	return out
}
