package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"homework-grader/api/internal/grading"
)

func TestStale(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		created time.Time
		maxAge  time.Duration
		want    bool
	}{
		{"fresh", now.Add(-time.Hour), 24 * time.Hour, false},
		{"old", now.Add(-25 * time.Hour), 24 * time.Hour, true},
		{"no limit", now.Add(-1000 * time.Hour), 0, false},
	}
	for _, c := range cases {
		if got := stale(c.created, c.maxAge, now); got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestDecodeReport(t *testing.T) {
	res, err := decodeReport([]byte(`{"score":80,"overall_comment":"ok","corrections":[{"question_id":"2","is_correct":false,"correct_answer":"8"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if res.Score != 80 || len(res.Corrections) != 1 || res.Corrections[0].CorrectAnswer != "8" {
		t.Errorf("unexpected %+v", res)
	}

	for _, bad := range []string{`{`, `{"score":140}`, `{"score":-1}`} {
		if _, err := decodeReport([]byte(bad)); err == nil {
			t.Errorf("%s: expected error", bad)
		}
	}
}

// TestReportRepo_Postgres runs against a real database when TEST_DATABASE_URL is set.
func TestReportRepo_Postgres(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	repo := NewReportRepo(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}

	key := grading.CacheKey{
		ImageHash: "test-" + uuid.NewString(),
		Subject:   grading.SubjectMath,
		Level:     grading.LevelPrimary,
		Model:     grading.DefaultModel,
	}
	t.Cleanup(func() {
		_, _ = db.ExecContext(ctx, `delete from grading_reports where image_hash=$1`, key.ImageHash)
	})

	if _, err := repo.Find(ctx, key, time.Hour); !errors.Is(err, grading.ErrCacheMiss) {
		t.Fatalf("empty table: want ErrCacheMiss, got %v", err)
	}

	res := grading.Result{Score: 80, OverallComment: "不错", Corrections: []grading.CorrectionItem{{QuestionID: "1", IsCorrect: true}}}
	if err := repo.Save(ctx, key, res); err != nil {
		t.Fatal(err)
	}
	res.Score = 90
	if err := repo.Save(ctx, key, res); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := repo.Find(ctx, key, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if got.Score != 90 || got.OverallComment != "不错" || len(got.Corrections) != 1 {
		t.Errorf("unexpected %+v", got)
	}

	other := key
	other.Subject = grading.SubjectEnglish
	if _, err := repo.Find(ctx, other, time.Hour); !errors.Is(err, grading.ErrCacheMiss) {
		t.Errorf("different subject should miss, got %v", err)
	}
}
