package telegram

import (
	"context"
	"errors"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"homework-grader/api/internal/flow"
)

// Bot is the subset of *tgbotapi.BotAPI the router uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot  Bot
	Flow *flow.Controller

	// download fetches a Telegram file URL.
	download func(url string) ([]byte, error)
	// spawn runs slow work (normalization, grading) off the update loop.
	spawn func(func())
}

func NewRouter(bot Bot, fc *flow.Controller) *Router {
	return &Router{
		Bot:      bot,
		Flow:     fc,
		download: download,
		spawn:    func(f func()) { go f() },
	}
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil || upd.Message.Chat == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	switch {
	case msg.IsCommand():
		r.HandleCommand(cid, msg.Command())
	case len(msg.Photo) > 0:
		// largest size is last
		r.acceptImage(cid, msg.Photo[len(msg.Photo)-1].FileID)
	case msg.Document != nil:
		if !isImageDocument(msg.Document) {
			r.send(cid, hintNotImage)
			return
		}
		r.acceptImage(cid, msg.Document.FileID)
	default:
		r.render(cid, r.Flow.Session(cid))
	}
}

func (r *Router) HandleCommand(cid int64, cmd string) {
	switch cmd {
	case "start":
		s, err := r.Flow.Dispatch(cid, flow.Restart{})
		if err != nil {
			r.fail(cid, s, err)
			return
		}
		r.send(cid, welcomeText)
		r.render(cid, s)
	case "health":
		r.send(cid, "✅ OK")
	default:
		r.send(cid, "未知命令。可用命令: /start, /health")
	}
}

// render sends the message(s) for the session's current screen.
func (r *Router) render(cid int64, s flow.Session) {
	switch s.Screen {
	case flow.ScreenSetup:
		msg := tgbotapi.NewMessage(cid, setupText(s))
		msg.ReplyMarkup = setupKeyboard(s)
		r.sendMsg(msg)

	case flow.ScreenInput:
		if s.Image == nil {
			r.send(cid, inputText)
			return
		}
		jpg, err := s.Image.JPEG()
		if err != nil {
			log.Printf("telegram: chat %d: preview: %v", cid, err)
			msg := tgbotapi.NewMessage(cid, imageCaption)
			msg.ReplyMarkup = imageKeyboard()
			r.sendMsg(msg)
			return
		}
		ph := tgbotapi.NewPhoto(cid, tgbotapi.FileBytes{Name: "homework.jpg", Bytes: jpg})
		ph.Caption = imageCaption
		ph.ReplyMarkup = imageKeyboard()
		r.sendMsg(ph)

	case flow.ScreenProcessing:
		if _, err := r.Bot.Request(tgbotapi.NewChatAction(cid, tgbotapi.ChatTyping)); err != nil {
			log.Printf("telegram: chat %d: chat action: %v", cid, err)
		}
		r.send(cid, processingText)

	case flow.ScreenResult:
		parts := resultMessages(*s.Result)
		for i, p := range parts {
			msg := tgbotapi.NewMessage(cid, p)
			if i == len(parts)-1 {
				msg.ReplyMarkup = resultKeyboard()
			}
			r.sendMsg(msg)
		}
	}
}

// fail shows a notice for a rejected action and re-renders the current screen.
func (r *Router) fail(cid int64, s flow.Session, err error) {
	switch {
	case errors.Is(err, flow.ErrBusy):
		r.send(cid, hintBusy)
		return
	case errors.Is(err, flow.ErrNoImage):
		r.send(cid, "⚠️ "+hintNoImage)
	default:
		log.Printf("telegram: chat %d: %v", cid, err)
		r.send(cid, "⚠️ "+hintStale)
	}
	r.render(cid, s)
}

// settle reports an operation's error message, if any, then shows the screen.
func (r *Router) settle(cid int64, s flow.Session) {
	if s.Err != "" {
		r.send(cid, "⚠️ "+s.Err)
	}
	r.render(cid, s)
}

func (r *Router) grade(cid int64) {
	s, err := r.Flow.StartGrading(cid)
	if err != nil {
		r.fail(cid, s, err)
		return
	}
	r.render(cid, s)

	r.spawn(func() {
		s, err := r.Flow.FinishGrading(context.Background(), cid)
		if err != nil {
			log.Printf("telegram: chat %d: finish grading: %v", cid, err)
			return
		}
		r.settle(cid, s)
	})
}

func (r *Router) send(chatID int64, text string) {
	r.sendMsg(tgbotapi.NewMessage(chatID, text))
}

func (r *Router) sendMsg(c tgbotapi.Chattable) {
	if _, err := r.Bot.Send(c); err != nil {
		log.Printf("telegram: send: %v", err)
	}
}
