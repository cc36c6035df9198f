package main

import (
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/radhikaramasamy/snipreader/api/internal/handle"
	"github.com/radhikaramasamy/snipreader/api/internal/pipeline"
	"github.com/radhikaramasamy/snipreader/api/internal/telegram"
)

var botMode string

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot",
	Long: `Run the Telegram bot.

With WEBHOOK_URL set the bot registers a webhook and serves it next to /healthz,
otherwise it long-polls. Photos go through the chat's mode (/mode structured|ocr),
plain text goes through the heuristic path.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.cfg.Require("TELEGRAM_BOT_TOKEN"); err != nil {
			return err
		}
		def, err := pipeline.ParseMode(botMode)
		if err != nil {
			return err
		}

		bot, err := tgbotapi.NewBotAPI(a.cfg.TelegramBotToken)
		if err != nil {
			return err
		}
		bot.Debug = false
		r := telegram.NewRouter(bot, a.svc, a.repo, def, a.logger)

		mux := http.NewServeMux()
		h := handle.New(a.svc, nil, a.db, a.logger)
		mux.HandleFunc("GET /healthz", h.Healthz)
		srv := &http.Server{Addr: a.addr(), Handler: mux, ReadHeaderTimeout: 10 * time.Second}

		webhookURL := strings.TrimSpace(a.cfg.WebhookURL)
		if webhookURL == "" {
			go r.RunPolling(ctx, bot)
			return listen(ctx, srv, a)
		}

		// секретный путь вебхука
		path := "/webhook/" + shortHash(bot.Token)
		wh, err := tgbotapi.NewWebhook(strings.TrimRight(webhookURL, "/") + path)
		if err != nil {
			return err
		}
		wh.DropPendingUpdates = true
		if _, err := bot.Request(wh); err != nil {
			return err
		}
		mux.HandleFunc("POST "+path, func(w http.ResponseWriter, req *http.Request) {
			upd, err := bot.HandleUpdate(req)
			if err != nil {
				a.logger.Warn("webhook: bad update", "err", err)
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			// отвечаем сразу, обработка может занять минуты
			go r.HandleUpdate(ctx, *upd)
			w.WriteHeader(http.StatusOK)
		})
		a.logger.Info("webhook registered", "path", path)
		return listen(ctx, srv, a)
	},
}

// shortHash: стабильный путь вебхука, не раскрывающий токен.
func shortHash(s string) string {
	h := fnv.New64a()
	h.Write([]byte(s))
	return fmt.Sprintf("%016x", h.Sum64())
}

func init() {
	botCmd.Flags().StringVar(&botMode, "mode", "structured", "default photo mode for new chats: structured | ocr")
	rootCmd.AddCommand(botCmd)
}
