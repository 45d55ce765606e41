package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"homework-grader/api/internal/grading"
)

//go:embed schema.sql
var schemaSQL string

// ReportRepo archives grading reports in Postgres and serves them back as a
// cache keyed by (image_hash, subject, level, model).
type ReportRepo struct{ DB *sql.DB }

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{DB: db} }

// EnsureSchema creates the reports table if it does not exist.
func (r *ReportRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("store: ensure schema: %w", err)
	}
	return nil
}

// Find returns the stored report for key. Missing, stale (older than maxAge
// when maxAge > 0) or unreadable rows yield grading.ErrCacheMiss.
func (r *ReportRepo) Find(ctx context.Context, key grading.CacheKey, maxAge time.Duration) (grading.Result, error) {
	const q = `select result_json, created_at
	           from grading_reports
	           where image_hash=$1 and subject=$2 and level=$3 and model=$4`
	var (
		js []byte
		ts time.Time
	)
	err := r.DB.QueryRowContext(ctx, q, key.ImageHash, string(key.Subject), string(key.Level), key.Model).Scan(&js, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return grading.Result{}, grading.ErrCacheMiss
	}
	if err != nil {
		return grading.Result{}, err
	}
	if stale(ts, maxAge, time.Now()) {
		return grading.Result{}, grading.ErrCacheMiss
	}
	res, err := decodeReport(js)
	if err != nil {
		return grading.Result{}, grading.ErrCacheMiss
	}
	return res, nil
}

// Save inserts or refreshes the report for key.
func (r *ReportRepo) Save(ctx context.Context, key grading.CacheKey, res grading.Result) error {
	js, err := json.Marshal(res)
	if err != nil {
		return err
	}
	const q = `
insert into grading_reports(id, image_hash, subject, level, model, score, result_json)
values ($1,$2,$3,$4,$5,$6,$7)
on conflict (image_hash, subject, level, model)
do update set score=excluded.score, result_json=excluded.result_json, created_at=now()`
	_, err = r.DB.ExecContext(ctx, q,
		uuid.New(), key.ImageHash, string(key.Subject), string(key.Level), key.Model, res.Score, js)
	return err
}

func stale(created time.Time, maxAge time.Duration, now time.Time) bool {
	return maxAge > 0 && now.Sub(created) > maxAge
}

// decodeReport reads a stored report; rows that no longer fit the report
// shape count as unreadable.
func decodeReport(js []byte) (grading.Result, error) {
	var res grading.Result
	if err := json.Unmarshal(js, &res); err != nil {
		return grading.Result{}, err
	}
	if res.Score < grading.MinScore || res.Score > grading.MaxScore {
		return grading.Result{}, fmt.Errorf("store: score %d out of range", res.Score)
	}
	return res, nil
}
