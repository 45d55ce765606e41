package grading

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"homework-grader/api/internal/util"
)

// DefaultModel is the multimodal model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Request is everything the upstream model needs for one grading call.
type Request struct {
	Model             string
	SystemInstruction string
	ImageMIME         string
	ImageB64          string // raw base64, no data URI prefix
	Prompt            string
	ResponseMIME      string
	Schema            *genai.Schema
}

// Generator sends a Request to a model and returns its raw text answer.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Grader grades one normalized page image.
type Grader interface {
	Grade(ctx context.Context, imageDataURI string, subject Subject, level EducationLevel) (Result, error)
}

type Config struct {
	Model  string
	Locale string
}

// Client builds grading requests, sends them through a Generator and
// enforces the response contract.
type Client struct {
	gen Generator
	cfg Config
}

func New(gen Generator, cfg Config) *Client {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if strings.TrimSpace(cfg.Locale) == "" {
		cfg.Locale = DefaultLocale
	}
	return &Client{gen: gen, cfg: cfg}
}

func (c *Client) Model() string { return c.cfg.Model }

// BuildRequest assembles the upstream request for a page.
func (c *Client) BuildRequest(imageDataURI string, subject Subject, level EducationLevel) (Request, error) {
	if !subject.Valid() {
		return Request{}, fmt.Errorf("unknown subject %q", subject)
	}
	if !level.Valid() {
		return Request{}, fmt.Errorf("unknown level %q", level)
	}
	mime, payload := util.SplitDataURL(imageDataURI)
	if payload == "" {
		return Request{}, errors.New("image payload is empty")
	}
	if mime == "" {
		mime = "image/jpeg"
	}
	return Request{
		Model:             c.cfg.Model,
		SystemInstruction: SystemInstruction(subject, level, c.cfg.Locale),
		ImageMIME:         mime,
		ImageB64:          payload,
		Prompt:            GradePrompt,
		ResponseMIME:      "application/json",
		Schema:            ResponseSchema(),
	}, nil
}

// Grade runs one all-or-nothing grading call. Failures are always *Error.
func (c *Client) Grade(ctx context.Context, imageDataURI string, subject Subject, level EducationLevel) (Result, error) {
	req, err := c.BuildRequest(imageDataURI, subject, level)
	if err != nil {
		return Result{}, newError(KindRequestFailed, err)
	}

	text, err := c.gen.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, ErrNoCredential) {
			return Result{}, newError(KindMissingCredential, err)
		}
		return Result{}, newError(KindRequestFailed, err)
	}

	return DecodeResult(text)
}
