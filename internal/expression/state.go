// Package expression drives the assistant's face: a four-state machine
// (idle, listening, thinking, speaking) rendered on an SSD1306 display or,
// headless, as text.
package expression

import (
	"fmt"
	"strings"
)

type State string

const (
	Idle      State = "idle"
	Listening State = "listening"
	Thinking  State = "thinking"
	Speaking  State = "speaking"
)

// States in display-cycle order.
var States = []State{Idle, Listening, Thinking, Speaking}

func ParseState(s string) (State, error) {
	st := State(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range States {
		if st == known {
			return st, nil
		}
	}
	return Idle, fmt.Errorf("unknown expression %q", s)
}

type Eyes int

const (
	EyesOpen Eyes = iota
	EyesClosed
)

func (e Eyes) toggle() Eyes {
	if e == EyesOpen {
		return EyesClosed
	}
	return EyesOpen
}

func (e Eyes) String() string {
	if e == EyesClosed {
		return "closed"
	}
	return "open"
}

type Mouth int

const (
	MouthStraight Mouth = iota
	MouthSmile
	MouthDots
)

func (m Mouth) String() string {
	switch m {
	case MouthSmile:
		return "smile"
	case MouthDots:
		return "dots"
	default:
		return "straight"
	}
}

// Frame is one rendering of the face.
type Frame struct {
	State State
	Eyes  Eyes
	Mouth Mouth
}

// FrameFor builds the frame for a state. Eyes only vary while thinking.
func FrameFor(state State, eyes Eyes) Frame {
	switch state {
	case Thinking:
		return Frame{State: state, Eyes: eyes, Mouth: MouthDots}
	case Speaking:
		return Frame{State: state, Eyes: EyesOpen, Mouth: MouthSmile}
	case Listening:
		return Frame{State: state, Eyes: EyesOpen, Mouth: MouthStraight}
	default:
		return Frame{State: Idle, Eyes: EyesOpen, Mouth: MouthStraight}
	}
}
