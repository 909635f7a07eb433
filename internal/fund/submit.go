package fund

// transitions lists the allowed moves of the submission state machine. A
// popup is only ever opened on the way into loading.
var transitions = map[SubmitState][]SubmitState{
	StateDefault: {StateLoading},
	StateLoading: {StateDefault, StateSuccess, StateError},
	StateSuccess: {StateDefault, StateLoading},
	StateError:   {StateDefault, StateLoading},
}

// CanTransition reports whether the submission state may move from one state
// to another. Staying put is always allowed.
func CanTransition(from, to SubmitState) bool {
	if from == to {
		_, ok := transitions[from]
		return ok
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ButtonLabel is the text of the call-to-action for a state.
func ButtonLabel(state SubmitState, text string) string {
	switch state {
	case StateSuccess:
		return "Success"
	case StateError:
		return "Something went wrong"
	}
	if text == "" {
		return "Buy"
	}
	return text
}
