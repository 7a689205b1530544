package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/almazpyjs/calendar-bot/internal/config"
	"github.com/almazpyjs/calendar-bot/internal/domain"
	"github.com/almazpyjs/calendar-bot/internal/reminder"
	"github.com/almazpyjs/calendar-bot/internal/store"
	"github.com/almazpyjs/calendar-bot/internal/telegram"
	"github.com/almazpyjs/calendar-bot/internal/web"
)

type App struct {
	cfg    config.Config
	log    *zap.Logger
	bot    *tgbotapi.BotAPI
	repo   store.Repo
	router *telegram.Router
	disp   *reminder.Dispatcher
	web    *http.Server
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	return &App{cfg: cfg, log: log, bot: bot}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting calendar-bot",
		zap.String("http", a.cfg.HTTPAddr),
		zap.Duration("reminder_interval", a.cfg.Interval()),
	)

	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready", zap.String("path", a.cfg.DBPath))

	a.router = telegram.NewRouter(a.bot, a.log, a.repo, a.cfg.DefaultTZ)
	a.web = web.NewServer(a.cfg.HTTPAddr, a.repo, a.log)
	a.disp = reminder.New(a.repo, a.log, a.sendReminder, a.cfg.Interval())

	go func() {
		if err := a.web.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.disp.Start(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.shutdown()
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}

func (a *App) shutdown() {
	a.disp.Stop()

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := a.web.Shutdown(shCtx)
	cancel()
	if err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}

	if a.repo != nil {
		_ = a.repo.Close()
	}
}

// sendReminder formats and delivers one due reminder in the owner's zone.
// A recipient who blocked the bot is treated as delivered so the batch
// still gets marked.
func (a *App) sendReminder(ctx context.Context, ev domain.Event) error {
	u, err := a.repo.GetUser(ctx, ev.TelegramID)
	tz := a.cfg.DefaultTZ
	if err == nil {
		tz = u.Timezone
	}

	err = a.router.SendMessage(ev.TelegramID, telegram.FormatReminder(ev, tz))
	if err != nil && isBlockedErr(err) {
		a.log.Info("recipient unavailable, skipping",
			zap.Int64("chat_id", ev.TelegramID),
			zap.Int64("event_id", ev.ID),
		)
		return nil
	}
	return err
}

func isBlockedErr(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusForbidden
	}
	return strings.Contains(err.Error(), "Forbidden")
}
