package flow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"homework-grader/api/internal/grading"
	"homework-grader/api/internal/photo"
)

// ImageErrorMessage is shown when a picked image cannot be normalized.
const ImageErrorMessage = "图片处理失败，请重试"

type Normalizer interface {
	Normalize(r io.Reader) (photo.Image, error)
}

// Controller owns one Session per user and runs the side effects that
// drive it. Only completed operations change a session; the lock is never
// held across normalization or the grading call.
type Controller struct {
	norm   Normalizer
	grader grading.Grader

	mu       sync.Mutex
	sessions map[int64]Session
}

func NewController(norm Normalizer, grader grading.Grader) *Controller {
	return &Controller{
		norm:     norm,
		grader:   grader,
		sessions: make(map[int64]Session),
	}
}

// Session returns the current snapshot, starting from defaults for a new user.
func (c *Controller) Session(id int64) Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(id)
}

// Dispatch applies ev to the user's session. On error the session is unchanged.
func (c *Controller) Dispatch(id int64, ev Event) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.load(id)
	next, err := cur.Apply(ev)
	if err != nil {
		return cur, err
	}
	c.sessions[id] = next
	return next, nil
}

// Capture normalizes r and stores it as the held image. A bad image is not
// an error here: the session comes back on input with Err set.
func (c *Controller) Capture(id int64, r io.Reader) (Session, error) {
	if s, err := c.BeginCapture(id); err != nil {
		return s, err
	}
	return c.FinishCapture(id, r)
}

// BeginCapture marks a capture as in flight before the upload is fetched, so
// that grading and clearing are refused until FinishCapture or AbortCapture.
func (c *Controller) BeginCapture(id int64) (Session, error) {
	return c.Dispatch(id, BeginCapture{})
}

// FinishCapture normalizes r for a capture started with BeginCapture.
func (c *Controller) FinishCapture(id int64, r io.Reader) (Session, error) {
	img, err := c.norm.Normalize(r)
	if err != nil {
		log.Printf("flow: chat %d: normalize failed: %v", id, err)
		return c.Dispatch(id, ImageFailed{Message: ImageErrorMessage})
	}
	log.Printf("flow: chat %d: image normalized to %dx%d", id, img.Width, img.Height)
	return c.Dispatch(id, ImageReady{Image: img})
}

// AbortCapture ends a capture whose upload never arrived.
func (c *Controller) AbortCapture(id int64) (Session, error) {
	return c.Dispatch(id, ImageFailed{Message: ImageErrorMessage})
}

// StartGrading submits the held image and returns the processing snapshot.
func (c *Controller) StartGrading(id int64) (Session, error) {
	return c.Dispatch(id, Submit{})
}

// FinishGrading runs the grader for a session on the processing screen and
// moves it to result, or back to input with the image kept.
func (c *Controller) FinishGrading(ctx context.Context, id int64) (Session, error) {
	s := c.Session(id)
	if s.Screen != ScreenProcessing || s.Image == nil {
		return s, fmt.Errorf("%w: grading on %s", ErrInvalidTransition, s.Screen)
	}

	attempt := uuid.NewString()
	started := time.Now()
	log.Printf("flow: chat %d: grading %s started subject=%s level=%s", id, attempt, s.Subject, s.Level)

	res, err := c.grader.Grade(ctx, s.Image.DataURI, s.Subject, s.Level)
	if err != nil {
		msg := DefaultErrorMessage
		var ge *grading.Error
		if errors.As(err, &ge) {
			msg = ge.UserMessage()
		}
		kind, _ := grading.KindOf(err)
		log.Printf("flow: chat %d: grading %s failed after %s kind=%s: %v",
			id, attempt, time.Since(started).Round(time.Millisecond), kind, err)
		return c.Dispatch(id, GradeFailed{Message: msg})
	}

	log.Printf("flow: chat %d: grading %s done in %s score=%d items=%d",
		id, attempt, time.Since(started).Round(time.Millisecond), res.Score, len(res.Corrections))
	return c.Dispatch(id, GradeSucceeded{Result: res})
}

func (c *Controller) load(id int64) Session {
	if s, ok := c.sessions[id]; ok {
		return s
	}
	s := NewSession()
	c.sessions[id] = s
	return s
}
