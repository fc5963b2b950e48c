package jsonflow

import (
	"github.com/reoring/jsonflow/typeinfo"
)

// State is the lifecycle state of a Stack.
type State uint8

const (
	StateFresh State = iota
	StateActive
	StateSuspended
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateActive:
		return "active"
	case StateSuspended:
		return "suspended"
	case StateCompleted:
		return "completed"
	}
	return "invalid"
}

type polyState uint8

const (
	polyNone polyState = iota
	// polyEntered: runtime holds the descriptor in use.
	polyEntered
	// polySuspended: the frame suspended while polymorphic; runtime is kept
	// for ResumePolymorphic.
	polySuspended
)

type stage uint8

const (
	stageStart stage = iota
	stageProps
	stageMember
	stageSkip
	stageMetaID
	stageMetaType
	stageMetaRef
	stageRefEnd
	stageElems
	stageElem
)

// Frame is one level of traversal.
type Frame struct {
	nominal *typeinfo.Descriptor
	runtime *typeinfo.Descriptor
	poly    polyState
	stage   stage

	// index is the member index of objects and the element index of
	// collections and dictionaries.
	index   int
	name    string
	segment segment

	required bitset
	seen     bitset

	value any
	keys  []string

	// typeID and refID are the discriminator and $id of the object.
	typeID string
	refID  string
	// regular is set once a non-metadata property was read.
	regular bool
	skip    int

	// childDesc and childValue are staged for the next Push.
	childDesc    *typeinfo.Descriptor
	childValue   any
	childPending bool
}

// desc returns the descriptor in effect for the frame.
func (f *Frame) desc() *typeinfo.Descriptor {
	if f.poly == polyEntered {
		return f.runtime
	}
	return f.nominal
}

// Stack is the suspendable traversal state of one top-level operation.
// Current is the frame being processed; frames[i] parks the frame at depth
// i+1 for every depth below Current and, while a suspended traversal is
// being replayed, the frames above it.
type Stack struct {
	Current Frame

	frames       []Frame
	count        int
	continuation int
	state        State
}

// Init prepares a fresh stack whose root value is v, described by d.
func (s *Stack) Init(d *typeinfo.Descriptor, v any) {
	clear(s.frames[:cap(s.frames)])
	*s = Stack{frames: s.frames[:0]}
	s.Current = Frame{nominal: d, value: v}
}

// Depth returns the number of active frames.
func (s *Stack) Depth() int { return s.count }

// State returns the lifecycle state.
func (s *Stack) State() State { return s.state }

// IsContinuation reports whether parked frames are waiting to be replayed.
func (s *Stack) IsContinuation() bool { return s.continuation != 0 }

// Push descends into the child staged on the current frame. While a
// suspended traversal is being replayed it restores the parked frame for
// the next depth instead.
func (s *Stack) Push() {
	if s.continuation == 0 {
		if s.count == 0 {
			s.count = 1
			s.state = StateActive
			return
		}
		s.ensureCapacity()
		parent := &s.Current
		child := Frame{nominal: parent.childDesc, value: parent.childValue}
		s.frames[s.count-1] = s.Current
		s.Current = child
		s.count++
		return
	}
	if s.count == 0 {
		s.state = StateActive
	}
	s.count++
	if s.count > 1 {
		s.frames[s.count-2] = s.Current
		s.Current = s.frames[s.count-1]
	}
	if s.continuation == s.count {
		s.continuation = 0
	}
}

// Pop leaves the current frame. success=false suspends: the frame is parked
// unchanged and the depth recorded, so the next Push sequence replays the
// traversal up to this point.
func (s *Stack) Pop(success bool) {
	if !success {
		if s.continuation == 0 {
			if s.count == 1 {
				s.continuation = 1
				s.count = 0
				s.state = StateSuspended
				return
			}
			s.ensureCapacity()
			s.continuation = s.count
			s.count--
		} else {
			s.count--
			if s.count == 0 {
				s.state = StateSuspended
				return
			}
		}
		s.frames[s.count] = s.Current
		s.Current = s.frames[s.count-1]
		return
	}
	s.count--
	if s.count > 0 {
		s.Current = s.frames[s.count-1]
		return
	}
	s.state = StateCompleted
}

func (s *Stack) ensureCapacity() {
	if s.count < len(s.frames) {
		return
	}
	if s.count < cap(s.frames) {
		s.frames = s.frames[:s.count+1]
		return
	}
	grown := make([]Frame, s.count+1, max(2*cap(s.frames), 4))
	copy(grown, s.frames)
	s.frames = grown
}

// EnterPolymorphic switches the current frame to the runtime descriptor d,
// keeping the nominal one.
func (s *Stack) EnterPolymorphic(d *typeinfo.Descriptor) {
	s.Current.runtime = d
	s.Current.poly = polyEntered
}

// ExitPolymorphic switches back to the nominal descriptor. On failure the
// runtime descriptor is retained for ResumePolymorphic.
func (s *Stack) ExitPolymorphic(success bool) {
	if success {
		s.Current.runtime = nil
		s.Current.poly = polyNone
		return
	}
	s.Current.poly = polySuspended
}

// ResumePolymorphic re-enters the runtime descriptor of a suspended
// polymorphic frame and returns it.
func (s *Stack) ResumePolymorphic() *typeinfo.Descriptor {
	s.Current.poly = polyEntered
	return s.Current.runtime
}
