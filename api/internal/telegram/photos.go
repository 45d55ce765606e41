package telegram

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"homework-grader/api/internal/flow"
	"homework-grader/api/internal/util"
)

// acceptImage marks a capture as in flight, then downloads and normalizes
// the photo or image document off the update loop.
func (r *Router) acceptImage(cid int64, fileID string) {
	s := r.Flow.Session(cid)
	if s.Screen != flow.ScreenInput {
		if s.Screen == flow.ScreenProcessing {
			r.send(cid, hintBusy)
			return
		}
		r.send(cid, hintNotOnInput)
		r.render(cid, s)
		return
	}

	if s, err := r.Flow.BeginCapture(cid); err != nil {
		r.fail(cid, s, err)
		return
	}
	r.spawn(func() { r.capture(cid, fileID) })
}

func (r *Router) capture(cid int64, fileID string) {
	data, err := r.fetch(fileID)
	if err != nil {
		log.Printf("telegram: chat %d: fetch: %v", cid, err)
		s, err := r.Flow.AbortCapture(cid)
		if err != nil {
			r.fail(cid, s, err)
			return
		}
		r.settle(cid, s)
		return
	}
	log.Printf("telegram: chat %d: downloaded %d bytes (%s)", cid, len(data), util.SniffMimeHTTP(data))

	s, err := r.Flow.FinishCapture(cid, bytes.NewReader(data))
	if err != nil {
		r.fail(cid, s, err)
		return
	}
	r.settle(cid, s)
}

func (r *Router) fetch(fileID string) ([]byte, error) {
	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, err
	}
	return r.download(url)
}

func isImageDocument(d *tgbotapi.Document) bool {
	return strings.HasPrefix(strings.ToLower(d.MimeType), "image/")
}

func download(url string) ([]byte, error) {
	resp, err := httpClient().Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
