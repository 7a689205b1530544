package telegram

import (
	"context"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/almazpyjs/calendar-bot/internal/store"
)

// Pending state keys used in the event-creation and settings flows.
const (
	pendingTitle    = "await_title_text"
	pendingDate     = "await_date_text"
	pendingTime     = "await_time_text"
	pendingDuration = "await_duration_text"
	pendingTZ       = "await_tz_text"
)

const (
	viewActive  = "active"
	viewHistory = "history"
)

// draft accumulates the event-creation wizard answers for one chat. Fields
// fill in flow order; the reminder offset arrives last and finishes the draft.
type draft struct {
	Title  string
	Date   time.Time // date only, interpreted in the user's zone
	ClockM int       // minutes since local midnight
	Dur    int       // minutes
}

// Router wires Telegram updates to handlers and holds minimal in-memory state.
type Router struct {
	bot       *tgbotapi.BotAPI
	log       *zap.Logger
	repo      store.Repo
	defaultTZ string
	limiter   *rateLimiter

	mu     sync.RWMutex
	state  map[int64]string // chatID -> pending state
	drafts map[int64]*draft // chatID -> in-progress event
}

// NewRouter creates a new Telegram router. defaultTZ is used for display
// until a user row exists.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, repo store.Repo, defaultTZ string) *Router {
	return &Router{
		bot:       bot,
		log:       log,
		repo:      repo,
		defaultTZ: defaultTZ,
		limiter:   newRateLimiter(1024, 500*time.Millisecond),
		state:     make(map[int64]string),
		drafts:    make(map[int64]*draft),
	}
}

func (r *Router) setPending(chatID int64, s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[chatID] = s
}

func (r *Router) getPending(chatID int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state[chatID]
}

func (r *Router) clearPending(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state, chatID)
}

func (r *Router) getDraft(chatID int64) *draft {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.drafts[chatID]
}

func (r *Router) setDraft(chatID int64, d *draft) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts[chatID] = d
}

func (r *Router) clearDraft(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, chatID)
}

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	// Text messages
	if upd.Message != nil {
		msg := upd.Message
		chatID := msg.Chat.ID
		if !r.limiter.Allow(chatID) {
			r.log.Debug("rate limited", zap.Int64("chat_id", chatID))
			return
		}
		text := strings.TrimSpace(msg.Text)

		switch {
		case strings.HasPrefix(text, "/start"):
			r.handleStart(ctx, chatID)
		case strings.HasPrefix(text, "/new"):
			r.handleNew(ctx, chatID)
		case strings.HasPrefix(text, "/events"):
			r.handleEvents(ctx, chatID, viewActive)
		case strings.HasPrefix(text, "/history"):
			r.handleEvents(ctx, chatID, viewHistory)
		case strings.HasPrefix(text, "/next"):
			r.handleNext(ctx, chatID)
		case strings.HasPrefix(text, "/settings"):
			r.handleSettings(ctx, chatID)
		case strings.HasPrefix(text, "/cancel"):
			r.handleCancel(chatID)
		default:
			// Free-form text feeds whichever wizard step is pending.
			r.handleFreeForm(ctx, chatID, text)
		}
		return
	}

	// Callback queries (inline buttons)
	if upd.CallbackQuery != nil {
		cb := upd.CallbackQuery
		if cb.Message == nil {
			return
		}
		data := cb.Data
		chatID := cb.Message.Chat.ID

		switch {
		case strings.HasPrefix(data, "date:"):
			r.handleDateCallback(ctx, chatID, data, cb.ID)
		case strings.HasPrefix(data, "time:"):
			r.handleTimeCallback(ctx, chatID, data, cb.ID)
		case strings.HasPrefix(data, "duration:"):
			r.handleDurationCallback(ctx, chatID, data, cb.ID)
		case strings.HasPrefix(data, "reminder:"):
			r.handleReminderCallback(ctx, chatID, data, cb.ID)
		case strings.HasPrefix(data, "tz:"):
			r.handleTZCallback(ctx, chatID, data, cb.ID)
		case strings.HasPrefix(data, "settings_reminder:"):
			r.handleDefaultReminderCallback(ctx, chatID, data, cb.ID)
		case strings.HasPrefix(data, "event:"):
			r.handleEventCallback(ctx, chatID, data, cb.ID)
		case data == "events:active":
			_ = r.answerCallback(cb.ID, "")
			r.handleEvents(ctx, chatID, viewActive)
		case data == "events:history":
			_ = r.answerCallback(cb.ID, "")
			r.handleEvents(ctx, chatID, viewHistory)
		default:
			// Unknown callback — ignore silently
		}
		return
	}
}

// SendMessage sends a plain text message to the given chat. This is also the
// transport the reminder dispatcher sends through.
func (r *Router) SendMessage(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (r *Router) sendText(chatID int64, text string) {
	if err := r.SendMessage(chatID, text); err != nil {
		r.log.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) answerCallback(id, text string) error {
	_, err := r.bot.Request(tgbotapi.NewCallback(id, text))
	return err
}
