package grading

import (
	"fmt"

	"github.com/google/generative-ai-go/genai"
)

// DefaultLocale is the language the report is written in.
const DefaultLocale = "Chinese (Simplified)"

// GradePrompt is the user turn sent next to the image.
const GradePrompt = "Please grade this homework page."

// SystemInstruction tells the model how to grade a page of the given subject and level.
func SystemInstruction(subject Subject, level EducationLevel, locale string) string {
	if locale == "" {
		locale = DefaultLocale
	}
	return fmt.Sprintf(`You are an expert, encouraging, and strict teacher specializing in %s for %s students.
Your task is to grade the homework shown in the image.
1. Identify each question and the student's answer.
2. Determine if the answer is correct.
3. If incorrect, provide the correct answer and a brief, easy-to-understand explanation.
4. Assign an integer score from 0 to 100 based on accuracy.
5. Provide a short, encouraging overall comment.

Important: all natural-language output (comments, explanations) must be strictly in %s.`,
		subject.Label(), level.Label(), locale)
}

// ResponseSchema is the structured-output contract for a grading report.
func ResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"score": {
				Type:        genai.TypeInteger,
				Description: "The total score out of 100",
			},
			"overall_comment": {
				Type:        genai.TypeString,
				Description: "A brief encouraging summary",
			},
			"corrections": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"question_id":    {Type: genai.TypeString, Description: "Question number or identifier (e.g., 'Q1')"},
						"is_correct":     {Type: genai.TypeBoolean, Description: "True if the student is correct"},
						"user_answer":    {Type: genai.TypeString, Description: "What the student wrote (transcribed)"},
						"correct_answer": {Type: genai.TypeString, Description: "The correct solution"},
						"explanation":    {Type: genai.TypeString, Description: "Why the answer is wrong, or a brief reinforcement if correct"},
					},
					Required: []string{"question_id", "is_correct", "explanation"},
				},
			},
		},
		Required: []string{"score", "overall_comment", "corrections"},
	}
}
