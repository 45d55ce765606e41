package grading

import (
	"context"
	"errors"
	"log"
	"time"

	"homework-grader/api/internal/util"
)

// ErrCacheMiss is returned by a Cache that has no fresh report for a key.
var ErrCacheMiss = errors.New("grading: cache miss")

// CacheKey identifies a report: the same JPEG graded under the same
// subject, level and model.
type CacheKey struct {
	ImageHash string
	Subject   Subject
	Level     EducationLevel
	Model     string
}

// Cache stores successful reports.
type Cache interface {
	Find(ctx context.Context, key CacheKey, maxAge time.Duration) (Result, error)
	Save(ctx context.Context, key CacheKey, res Result) error
}

// CachedGrader answers repeated pages from a Cache and archives fresh reports.
// Cache failures are logged and never fail grading.
type CachedGrader struct {
	next   Grader
	cache  Cache
	model  string
	maxAge time.Duration
}

// NewCachedGrader wraps next. maxAge <= 0 disables lookups; reports are still saved.
func NewCachedGrader(next Grader, cache Cache, model string, maxAge time.Duration) *CachedGrader {
	return &CachedGrader{next: next, cache: cache, model: model, maxAge: maxAge}
}

func (g *CachedGrader) Grade(ctx context.Context, imageDataURI string, subject Subject, level EducationLevel) (Result, error) {
	key := CacheKey{Subject: subject, Level: level, Model: g.model}
	if b, _, err := util.DecodeBase64MaybeDataURL(imageDataURI); err == nil {
		key.ImageHash = util.SHA256Hex(b)
	}

	if key.ImageHash != "" && g.maxAge > 0 {
		res, err := g.cache.Find(ctx, key, g.maxAge)
		switch {
		case err == nil:
			log.Printf("grading: cache hit image=%.12s subject=%s level=%s", key.ImageHash, subject, level)
			return res, nil
		case !errors.Is(err, ErrCacheMiss):
			log.Printf("grading: cache lookup failed: %v", err)
		}
	}

	res, err := g.next.Grade(ctx, imageDataURI, subject, level)
	if err != nil {
		return Result{}, err
	}

	if key.ImageHash != "" {
		if err := g.cache.Save(ctx, key, res); err != nil {
			log.Printf("grading: cache save failed: %v", err)
		}
	}
	return res, nil
}
