package httpserver

import (
	"context"
	"log"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gorilla/mux"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// UpdateDecoder is satisfied by *tgbotapi.BotAPI.
type UpdateDecoder interface {
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

type Options struct {
	// DB is pinged by /healthz when set.
	DB Pinger

	// WebhookPath, Decoder and Updates enable the Telegram webhook route.
	WebhookPath string
	Decoder     UpdateDecoder
	Updates     chan<- tgbotapi.Update
}

func NewRouter(opts Options) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthz(opts.DB)).Methods(http.MethodGet, http.MethodHead)
	if opts.WebhookPath != "" && opts.Decoder != nil && opts.Updates != nil {
		r.HandleFunc(opts.WebhookPath, webhook(opts.Decoder, opts.Updates)).Methods(http.MethodPost)
	}
	r.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("homework grader bot"))
	})
	return r
}

func healthz(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func webhook(dec UpdateDecoder, updates chan<- tgbotapi.Update) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		upd, err := dec.HandleUpdate(r)
		if err != nil {
			log.Printf("webhook: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		select {
		case updates <- *upd:
		case <-r.Context().Done():
			http.Error(w, "cancelled", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// Start serves h on addr until the listener fails.
func Start(addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("listening on %s", addr)
	return srv.ListenAndServe()
}
