package grading

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"homework-grader/api/internal/util"
)

// wire shapes with pointers so that missing required fields are detectable
type rawCorrection struct {
	QuestionID    *string `json:"question_id"`
	IsCorrect     *bool   `json:"is_correct"`
	UserAnswer    *string `json:"user_answer"`
	CorrectAnswer *string `json:"correct_answer"`
	Explanation   *string `json:"explanation"`
}

type rawResult struct {
	Score          *json.RawMessage `json:"score"`
	OverallComment *string          `json:"overall_comment"`
	Corrections    *[]rawCorrection `json:"corrections"`
}

// DecodeResult parses the model output into a Result. Empty text yields a
// KindEmptyResponse error, anything that breaks the schema a KindSchemaParse one.
func DecodeResult(text string) (Result, error) {
	text = util.StripCodeFences(text)
	if text == "" {
		return Result{}, newError(KindEmptyResponse, errors.New("no text in response"))
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Result{}, newError(KindSchemaParse, fmt.Errorf("bad JSON: %w", err))
	}

	switch {
	case raw.Score == nil:
		return Result{}, schemaErr("score is required")
	case raw.OverallComment == nil:
		return Result{}, schemaErr("overall_comment is required")
	case raw.Corrections == nil:
		return Result{}, schemaErr("corrections is required")
	}

	score, err := parseScore(*raw.Score)
	if err != nil {
		return Result{}, newError(KindSchemaParse, err)
	}

	out := Result{
		Score:          score,
		OverallComment: strings.TrimSpace(*raw.OverallComment),
		Corrections:    make([]CorrectionItem, 0, len(*raw.Corrections)),
	}
	for i, rc := range *raw.Corrections {
		switch {
		case rc.QuestionID == nil:
			return Result{}, schemaErr(fmt.Sprintf("corrections[%d].question_id is required", i))
		case rc.IsCorrect == nil:
			return Result{}, schemaErr(fmt.Sprintf("corrections[%d].is_correct is required", i))
		case rc.Explanation == nil:
			return Result{}, schemaErr(fmt.Sprintf("corrections[%d].explanation is required", i))
		}
		item := CorrectionItem{
			QuestionID:  strings.TrimSpace(*rc.QuestionID),
			IsCorrect:   *rc.IsCorrect,
			UserAnswer:  deref(rc.UserAnswer),
			Explanation: strings.TrimSpace(*rc.Explanation),
		}
		if !item.IsCorrect {
			item.CorrectAnswer = deref(rc.CorrectAnswer)
		}
		out.Corrections = append(out.Corrections, item)
	}
	return out, nil
}

// parseScore accepts integral JSON numbers (80 or 80.0) and clamps them to 0..100.
// Quoted numbers and other JSON types are rejected.
func parseScore(raw json.RawMessage) (int, error) {
	tok := strings.TrimSpace(string(raw))
	if tok == "" || (tok[0] != '-' && (tok[0] < '0' || tok[0] > '9')) {
		return 0, fmt.Errorf("score %s is not a number", tok)
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("score %s is not a number", tok)
	}
	if math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("score %s is not an integer", tok)
	}
	switch {
	case f < MinScore:
		return MinScore, nil
	case f > MaxScore:
		return MaxScore, nil
	}
	return int(f), nil
}

func schemaErr(msg string) *Error {
	return newError(KindSchemaParse, errors.New(msg))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
