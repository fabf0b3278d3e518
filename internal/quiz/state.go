package quiz

import "fmt"

// State is the quiz lifecycle: publication crossed with results visibility.
type State string

const (
	StateDraft                State = "draft"
	StateDraftResultsOpen     State = "draft_results_published"
	StatePublished            State = "published"
	StatePublishedResultsOpen State = "published_results_published"
)

var States = []State{StateDraft, StateDraftResultsOpen, StatePublished, StatePublishedResultsOpen}

func StateOf(published, resultsPublished bool) State {
	switch {
	case published && resultsPublished:
		return StatePublishedResultsOpen
	case published:
		return StatePublished
	case resultsPublished:
		return StateDraftResultsOpen
	}
	return StateDraft
}

func (s State) Valid() bool {
	switch s {
	case StateDraft, StateDraftResultsOpen, StatePublished, StatePublishedResultsOpen:
		return true
	}
	return false
}

func (s State) Published() bool {
	return s == StatePublished || s == StatePublishedResultsOpen
}

func (s State) ResultsPublished() bool {
	return s == StateDraftResultsOpen || s == StatePublishedResultsOpen
}

type Transition string

const (
	Publish          Transition = "publish"
	Unpublish        Transition = "unpublish"
	PublishResults   Transition = "publish_results"
	UnpublishResults Transition = "unpublish_results"
)

// transitions lists the target of every transition from every state.
// Entries that map a state to itself are no-ops.
var transitions = map[State]map[Transition]State{
	StateDraft: {
		Publish:          StatePublished,
		Unpublish:        StateDraft,
		PublishResults:   StateDraftResultsOpen,
		UnpublishResults: StateDraft,
	},
	StateDraftResultsOpen: {
		Publish:          StatePublishedResultsOpen,
		Unpublish:        StateDraftResultsOpen,
		PublishResults:   StateDraftResultsOpen,
		UnpublishResults: StateDraft,
	},
	StatePublished: {
		Publish:          StatePublished,
		Unpublish:        StateDraft,
		PublishResults:   StatePublishedResultsOpen,
		UnpublishResults: StatePublished,
	},
	StatePublishedResultsOpen: {
		Publish:          StatePublishedResultsOpen,
		Unpublish:        StateDraftResultsOpen,
		PublishResults:   StatePublishedResultsOpen,
		UnpublishResults: StatePublished,
	},
}

// Apply returns the state reached by t and whether it differs from s.
func (s State) Apply(t Transition) (State, bool, error) {
	next, ok := transitions[s][t]
	if !ok {
		return s, false, fmt.Errorf("quiz: no transition %q from state %q", t, s)
	}
	return next, next != s, nil
}

// StampsPublishAt reports whether moving from s to next is the
// Draft to Published edge.
func (s State) StampsPublishAt(next State) bool {
	return !s.Published() && next.Published()
}
