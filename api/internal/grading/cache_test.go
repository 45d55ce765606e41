package grading

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memCache struct {
	items   map[CacheKey]Result
	findErr error
	saves   int
}

func newMemCache() *memCache { return &memCache{items: map[CacheKey]Result{}} }

func (m *memCache) Find(_ context.Context, key CacheKey, _ time.Duration) (Result, error) {
	if m.findErr != nil {
		return Result{}, m.findErr
	}
	if r, ok := m.items[key]; ok {
		return r, nil
	}
	return Result{}, ErrCacheMiss
}

func (m *memCache) Save(_ context.Context, key CacheKey, res Result) error {
	m.saves++
	m.items[key] = res
	return nil
}

func TestCachedGrader_HitSkipsModel(t *testing.T) {
	gen := &fakeGenerator{text: sampleReport}
	cache := newMemCache()
	g := NewCachedGrader(New(gen, Config{}), cache, DefaultModel, time.Hour)

	first, err := g.Grade(context.Background(), sampleImage, SubjectMath, LevelPrimary)
	if err != nil {
		t.Fatalf("first Grade failed: %v", err)
	}
	second, err := g.Grade(context.Background(), sampleImage, SubjectMath, LevelPrimary)
	if err != nil {
		t.Fatalf("second Grade failed: %v", err)
	}
	if gen.calls != 1 {
		t.Errorf("generator calls: got %d, want 1", gen.calls)
	}
	if first.Score != second.Score || len(second.Corrections) != 2 {
		t.Errorf("cached report differs: %+v vs %+v", first, second)
	}

	// another level is another key
	if _, err := g.Grade(context.Background(), sampleImage, SubjectMath, LevelJunior); err != nil {
		t.Fatalf("Grade failed: %v", err)
	}
	if gen.calls != 2 {
		t.Errorf("generator calls: got %d, want 2", gen.calls)
	}
}

func TestCachedGrader_FailuresNotStored(t *testing.T) {
	gen := &fakeGenerator{text: "garbage"}
	cache := newMemCache()
	g := NewCachedGrader(New(gen, Config{}), cache, DefaultModel, time.Hour)

	if _, err := g.Grade(context.Background(), sampleImage, SubjectMath, LevelPrimary); err == nil {
		t.Fatal("expected error")
	}
	if cache.saves != 0 {
		t.Errorf("failed report was cached")
	}
}

func TestCachedGrader_LookupErrorFallsThrough(t *testing.T) {
	gen := &fakeGenerator{text: sampleReport}
	cache := newMemCache()
	cache.findErr = errors.New("connection refused")
	g := NewCachedGrader(New(gen, Config{}), cache, DefaultModel, time.Hour)

	if _, err := g.Grade(context.Background(), sampleImage, SubjectMath, LevelPrimary); err != nil {
		t.Fatalf("Grade failed: %v", err)
	}
	if gen.calls != 1 {
		t.Errorf("generator calls: got %d, want 1", gen.calls)
	}
}

func TestCachedGrader_ZeroTTLOnlyArchives(t *testing.T) {
	gen := &fakeGenerator{text: sampleReport}
	cache := newMemCache()
	g := NewCachedGrader(New(gen, Config{}), cache, DefaultModel, 0)

	for i := 0; i < 2; i++ {
		if _, err := g.Grade(context.Background(), sampleImage, SubjectMath, LevelPrimary); err != nil {
			t.Fatalf("Grade failed: %v", err)
		}
	}
	if gen.calls != 2 || cache.saves != 2 {
		t.Errorf("calls=%d saves=%d, want 2 and 2", gen.calls, cache.saves)
	}
}
