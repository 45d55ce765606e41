package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"homework-grader/api/internal/flow"
	"homework-grader/api/internal/grading"
	"homework-grader/api/internal/util"
)

// maxMessageRunes stays under Telegram's 4096 character limit.
const maxMessageRunes = 3900

const (
	cbLevelPrefix   = "lvl:"
	cbSubjectPrefix = "subj:"
	cbNext          = "next"
	cbGrade         = "grade"
	cbClear         = "clear"
	cbReset         = "reset"
)

const (
	welcomeText    = "你好！我是AI作业批改老师。选择年级和科目，拍一张作业照片，我来帮你批改。"
	setupTitle     = "批改什么作业?"
	inputText      = "📷 拍摄作业：请确保光线充足，字迹清晰\n\n• 竖屏拍摄\n• 避免阴影\n\n直接发送照片或图片文件即可。"
	imageCaption   = "确认图片清晰可见"
	processingText = "🤖 AI老师正在批改中...\n\n正在识别题目 • 分析答案 • 生成解析"
	noAnswer       = "(未填写)"

	hintNotOnInput = "请先选择年级和科目，然后点击「下一步: 拍照上传」。"
	hintBusy       = "正在处理中，请稍候..."
	hintNoImage    = "请先上传作业图片。"
	hintStale      = "该按钮已失效。"
	hintNotImage   = "请发送图片文件。"
)

// --- SETUP --------------------------------------------------------------------

func setupText(s flow.Session) string {
	return fmt.Sprintf("📚 %s\n\n年级: %s\n科目: %s", setupTitle, s.Level.Label(), s.Subject.Label())
}

func setupKeyboard(s flow.Session) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	lvl := make([]tgbotapi.InlineKeyboardButton, 0, len(grading.Levels))
	for _, l := range grading.Levels {
		lvl = append(lvl, tgbotapi.NewInlineKeyboardButtonData(mark(l.Label(), l == s.Level), cbLevelPrefix+string(l)))
	}
	rows = append(rows, lvl)

	var row []tgbotapi.InlineKeyboardButton
	for _, sub := range grading.Subjects {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(mark(sub.Label(), sub == s.Subject), cbSubjectPrefix+string(sub)))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("下一步: 拍照上传 ➡️", cbNext),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func mark(label string, selected bool) string {
	if selected {
		return "✅ " + label
	}
	return label
}

// --- INPUT --------------------------------------------------------------------

func imageKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✨ 开始智能批改", cbGrade)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔄 重拍", cbClear)),
	)
}

// --- RESULT -------------------------------------------------------------------

func resultKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📄 批改下一页", cbReset)),
	)
}

func tierBadge(t grading.Tier) string {
	switch t {
	case grading.TierTop:
		return "🏆 满分！"
	case grading.TierPass:
		return "👍 做得不错"
	default:
		return "💪 继续加油"
	}
}

func resultHeader(res grading.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n得分: %d/100\n", tierBadge(grading.TierOf(res.Score)), res.Score)
	if c := strings.TrimSpace(res.OverallComment); c != "" {
		b.WriteString("\n老师评语:\n")
		b.WriteString(c)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n详细解析 (%d 题)", len(res.Corrections))
	return b.String()
}

// correctionText renders the i-th (0-based) item.
func correctionText(i int, it grading.CorrectionItem) string {
	var b strings.Builder

	id := strings.TrimSpace(it.QuestionID)
	if id == "" {
		id = fmt.Sprintf("第 %d 题", i+1)
	}
	if it.IsCorrect {
		fmt.Fprintf(&b, "✓ %s\n", id)
	} else {
		fmt.Fprintf(&b, "✕ %s · 需要订正\n", id)
	}

	ans := strings.TrimSpace(it.UserAnswer)
	if ans == "" {
		ans = noAnswer
	}
	fmt.Fprintf(&b, "你的答案: %s\n", ans)
	if !it.IsCorrect && strings.TrimSpace(it.CorrectAnswer) != "" {
		fmt.Fprintf(&b, "正确答案: %s\n", it.CorrectAnswer)
	}
	if e := strings.TrimSpace(it.Explanation); e != "" {
		fmt.Fprintf(&b, "解析: %s", e)
	}
	return strings.TrimRight(b.String(), "\n")
}

// resultMessages splits a report into messages that each fit in one Telegram
// message. Every correction appears exactly once and in order.
func resultMessages(res grading.Result) []string {
	var out []string
	cur := util.ClampRunes(resultHeader(res), maxMessageRunes)

	for i, it := range res.Corrections {
		entry := util.ClampRunes(correctionText(i, it), maxMessageRunes)
		if runeLen(cur)+2+runeLen(entry) > maxMessageRunes {
			out = append(out, cur)
			cur = entry
			continue
		}
		cur += "\n\n" + entry
	}
	return append(out, cur)
}

func runeLen(s string) int { return len([]rune(s)) }
