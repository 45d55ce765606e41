package grading

// --- SUBJECT / LEVEL ---------------------------------------------------------

// Subject is the closed set of homework subjects.
type Subject string

const (
	SubjectMath      Subject = "math"
	SubjectEnglish   Subject = "english"
	SubjectChinese   Subject = "chinese"
	SubjectPhysics   Subject = "physics"
	SubjectChemistry Subject = "chemistry"
	SubjectOther     Subject = "other"
)

// Subjects lists every subject in display order.
var Subjects = []Subject{SubjectMath, SubjectEnglish, SubjectChinese, SubjectPhysics, SubjectChemistry, SubjectOther}

var subjectLabels = map[Subject]string{
	SubjectMath:      "数学",
	SubjectEnglish:   "英语",
	SubjectChinese:   "语文",
	SubjectPhysics:   "物理",
	SubjectChemistry: "化学",
	SubjectOther:     "综合",
}

func (s Subject) Valid() bool {
	_, ok := subjectLabels[s]
	return ok
}

// Label is the display name used in the UI and in the grading prompt.
func (s Subject) Label() string {
	if l, ok := subjectLabels[s]; ok {
		return l
	}
	return string(s)
}

// EducationLevel is the closed set of grade levels.
type EducationLevel string

const (
	LevelPrimary    EducationLevel = "primary"
	LevelJunior     EducationLevel = "junior"
	LevelSenior     EducationLevel = "senior"
	LevelUniversity EducationLevel = "university"
)

// Levels lists every level in display order.
var Levels = []EducationLevel{LevelPrimary, LevelJunior, LevelSenior, LevelUniversity}

var levelLabels = map[EducationLevel]string{
	LevelPrimary:    "小学",
	LevelJunior:     "初中",
	LevelSenior:     "高中",
	LevelUniversity: "大学",
}

func (l EducationLevel) Valid() bool {
	_, ok := levelLabels[l]
	return ok
}

func (l EducationLevel) Label() string {
	if v, ok := levelLabels[l]; ok {
		return v
	}
	return string(l)
}

// --- REPORT ------------------------------------------------------------------

// CorrectionItem is one graded sub-question.
type CorrectionItem struct {
	QuestionID    string `json:"question_id"`
	IsCorrect     bool   `json:"is_correct"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
}

// Result is the grading report for one page.
type Result struct {
	Score          int              `json:"score"`
	OverallComment string           `json:"overall_comment"`
	Corrections    []CorrectionItem `json:"corrections"`
}

// Tier buckets a score for display.
type Tier int

const (
	TierFail Tier = iota // below 60
	TierPass             // 60..99
	TierTop              // 100
)

const (
	MinScore  = 0
	MaxScore  = 100
	PassScore = 60
)

// TierOf returns the display tier of a score.
func TierOf(score int) Tier {
	switch {
	case score >= MaxScore:
		return TierTop
	case score >= PassScore:
		return TierPass
	default:
		return TierFail
	}
}

func (t Tier) String() string {
	switch t {
	case TierTop:
		return "top"
	case TierPass:
		return "pass"
	default:
		return "fail"
	}
}
