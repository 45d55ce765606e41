// Package flow is the grading session state machine: setup → input →
// processing → result, with recovery from processing back to input.
//
// Session values are immutable snapshots; Apply returns the next snapshot or
// ErrInvalidTransition and never mutates its receiver. Invariants are checked
// by Validate after every transition.
package flow

import (
	"errors"
	"fmt"

	"homework-grader/api/internal/grading"
	"homework-grader/api/internal/photo"
)

type Screen string

const (
	ScreenSetup      Screen = "setup"
	ScreenInput      Screen = "input"
	ScreenProcessing Screen = "processing"
	ScreenResult     Screen = "result"
)

// DefaultErrorMessage is shown when a failure carries no message of its own.
const DefaultErrorMessage = "批改失败，请重试。"

var (
	ErrInvalidTransition = errors.New("flow: invalid transition")
	ErrNoImage           = errors.New("flow: no image to submit")
	ErrBusy              = errors.New("flow: operation in progress")
)

// Session is the single source of truth for one user.
type Session struct {
	Screen  Screen
	Subject grading.Subject
	Level   grading.EducationLevel
	Image   *photo.Image
	Result  *grading.Result
	Err     string

	// Capturing is set while an image is being normalized.
	Capturing bool
}

// NewSession returns the initial state with default selections.
func NewSession() Session {
	return Session{
		Screen:  ScreenSetup,
		Subject: grading.SubjectMath,
		Level:   grading.LevelPrimary,
	}
}

// Validate reports the first broken invariant, if any.
func (s Session) Validate() error {
	switch s.Screen {
	case ScreenSetup, ScreenInput, ScreenProcessing, ScreenResult:
	default:
		return fmt.Errorf("unknown screen %q", s.Screen)
	}
	if !s.Subject.Valid() {
		return fmt.Errorf("unknown subject %q", s.Subject)
	}
	if !s.Level.Valid() {
		return fmt.Errorf("unknown level %q", s.Level)
	}
	if (s.Result != nil) != (s.Screen == ScreenResult) {
		return fmt.Errorf("result present on %s screen", s.Screen)
	}
	if s.Image != nil && s.Screen == ScreenSetup {
		return errors.New("image held on setup screen")
	}
	if s.Image == nil && (s.Screen == ScreenProcessing || s.Screen == ScreenResult) {
		return fmt.Errorf("no image on %s screen", s.Screen)
	}
	if s.Capturing && s.Screen != ScreenInput {
		return fmt.Errorf("capturing on %s screen", s.Screen)
	}
	return nil
}

// --- EVENTS ------------------------------------------------------------------

// Event is one user action or one completed operation.
type Event interface{ event() }

type SelectSubject struct{ Subject grading.Subject }

type SelectLevel struct{ Level grading.EducationLevel }

// Next leaves setup for the capture screen.
type Next struct{}

// BeginCapture marks a normalization as in flight.
type BeginCapture struct{}

type ImageReady struct{ Image photo.Image }

type ImageFailed struct{ Message string }

type ClearImage struct{}

type Submit struct{}

type GradeSucceeded struct{ Result grading.Result }

type GradeFailed struct{ Message string }

// Reset is "grade next page" on the result screen.
type Reset struct{}

// Restart goes back to setup from any idle screen.
type Restart struct{}

func (SelectSubject) event()  {}
func (SelectLevel) event()    {}
func (Next) event()           {}
func (BeginCapture) event()   {}
func (ImageReady) event()     {}
func (ImageFailed) event()    {}
func (ClearImage) event()     {}
func (Submit) event()         {}
func (GradeSucceeded) event() {}
func (GradeFailed) event()    {}
func (Reset) event()          {}
func (Restart) event()        {}

// Apply is the transition function.
func (s Session) Apply(ev Event) (Session, error) {
	next, err := s.apply(ev)
	if err != nil {
		return s, err
	}
	if err := next.Validate(); err != nil {
		return s, fmt.Errorf("%w: %T leads to %v", ErrInvalidTransition, ev, err)
	}
	return next, nil
}

func (s Session) apply(ev Event) (Session, error) {
	switch e := ev.(type) {
	case SelectSubject:
		if s.Screen != ScreenSetup || !e.Subject.Valid() {
			return s, invalid(s, ev)
		}
		s.Subject = e.Subject
		return s, nil

	case SelectLevel:
		if s.Screen != ScreenSetup || !e.Level.Valid() {
			return s, invalid(s, ev)
		}
		s.Level = e.Level
		return s, nil

	case Next:
		if s.Screen != ScreenSetup {
			return s, invalid(s, ev)
		}
		s.Screen = ScreenInput
		s.Image, s.Result, s.Err = nil, nil, ""
		return s, nil

	case BeginCapture:
		if s.Screen != ScreenInput {
			return s, invalid(s, ev)
		}
		if s.Capturing {
			return s, ErrBusy
		}
		s.Capturing = true
		return s, nil

	case ImageReady:
		if s.Screen != ScreenInput || !s.Capturing {
			return s, invalid(s, ev)
		}
		img := e.Image
		s.Image = &img
		s.Capturing = false
		s.Err = ""
		return s, nil

	case ImageFailed:
		if s.Screen != ScreenInput || !s.Capturing {
			return s, invalid(s, ev)
		}
		s.Image = nil
		s.Capturing = false
		s.Err = messageOr(e.Message)
		return s, nil

	case ClearImage:
		if s.Screen != ScreenInput {
			return s, invalid(s, ev)
		}
		if s.Capturing {
			return s, ErrBusy
		}
		s.Image, s.Err = nil, ""
		return s, nil

	case Submit:
		if s.Screen != ScreenInput {
			return s, invalid(s, ev)
		}
		if s.Capturing {
			return s, ErrBusy
		}
		if s.Image == nil {
			return s, ErrNoImage
		}
		s.Screen = ScreenProcessing
		s.Err = ""
		return s, nil

	case GradeSucceeded:
		if s.Screen != ScreenProcessing {
			return s, invalid(s, ev)
		}
		res := e.Result
		s.Result = &res
		s.Screen = ScreenResult
		return s, nil

	case GradeFailed:
		if s.Screen != ScreenProcessing {
			return s, invalid(s, ev)
		}
		// the image stays so the user can retry without recapturing
		s.Screen = ScreenInput
		s.Err = messageOr(e.Message)
		return s, nil

	case Reset:
		if s.Screen != ScreenResult {
			return s, invalid(s, ev)
		}
		return s.backToSetup(), nil

	case Restart:
		if s.Screen == ScreenProcessing || s.Capturing {
			return s, ErrBusy
		}
		return s.backToSetup(), nil
	}
	return s, invalid(s, ev)
}

// backToSetup keeps the sticky subject and level and drops everything else.
func (s Session) backToSetup() Session {
	return Session{
		Screen:  ScreenSetup,
		Subject: s.Subject,
		Level:   s.Level,
	}
}

func invalid(s Session, ev Event) error {
	return fmt.Errorf("%w: %T on %s", ErrInvalidTransition, ev, s.Screen)
}

func messageOr(msg string) string {
	if msg == "" {
		return DefaultErrorMessage
	}
	return msg
}
