package telegram

import (
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"homework-grader/api/internal/flow"
	"homework-grader/api/internal/grading"
)

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	if _, err := r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil { // ack
		log.Printf("telegram: callback ack: %v", err)
	}
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	cid := cb.Message.Chat.ID
	msgID := cb.Message.MessageID
	data := cb.Data

	switch {
	case strings.HasPrefix(data, cbLevelPrefix):
		r.onSelect(cid, msgID, flow.SelectLevel{Level: grading.EducationLevel(strings.TrimPrefix(data, cbLevelPrefix))})
	case strings.HasPrefix(data, cbSubjectPrefix):
		r.onSelect(cid, msgID, flow.SelectSubject{Subject: grading.Subject(strings.TrimPrefix(data, cbSubjectPrefix))})
	case data == cbNext:
		r.onStep(cid, msgID, flow.Next{})
	case data == cbClear:
		r.onStep(cid, msgID, flow.ClearImage{})
	case data == cbReset:
		r.onStep(cid, msgID, flow.Reset{})
	case data == cbGrade:
		r.dropKeyboard(cid, msgID)
		r.grade(cid)
	default:
		log.Printf("telegram: chat %d: unknown callback %q", cid, data)
	}
}

// onSelect updates the setup message in place.
func (r *Router) onSelect(cid int64, msgID int, ev flow.Event) {
	s, err := r.Flow.Dispatch(cid, ev)
	if err != nil {
		r.fail(cid, s, err)
		return
	}
	edit := tgbotapi.NewEditMessageTextAndMarkup(cid, msgID, setupText(s), setupKeyboard(s))
	if _, err := r.Bot.Send(edit); err != nil {
		log.Printf("telegram: chat %d: edit setup: %v", cid, err)
	}
}

// onStep applies a screen-changing event and renders the new screen.
func (r *Router) onStep(cid int64, msgID int, ev flow.Event) {
	s, err := r.Flow.Dispatch(cid, ev)
	if err != nil {
		r.fail(cid, s, err)
		return
	}
	r.dropKeyboard(cid, msgID)
	r.render(cid, s)
}

func (r *Router) dropKeyboard(cid int64, msgID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(cid, msgID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	_, _ = r.Bot.Send(edit)
}
