package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/radhikaramasamy/snipreader/api/internal/export"
	"github.com/radhikaramasamy/snipreader/api/internal/pipeline"
	"github.com/radhikaramasamy/snipreader/api/internal/question"
)

const maxMessageLen = 3900

// Sender is the part of *tgbotapi.BotAPI the router uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// HistoryRepo lists saved sets for /history.
type HistoryRepo interface {
	List(ctx context.Context, limit int) ([]question.Set, error)
}

type Router struct {
	Bot      Sender
	Pipeline *pipeline.Service
	History  HistoryRepo // nil: /history недоступна
	Modes    *ModeStore
	Logger   *slog.Logger
	Timeout  time.Duration

	batches sync.Map // key -> *photoBatch
}

func NewRouter(bot Sender, svc *pipeline.Service, history HistoryRepo, def pipeline.Mode, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		Bot:      bot,
		Pipeline: svc,
		History:  history,
		Modes:    NewModeStore(def),
		Logger:   logger,
		Timeout:  180 * time.Second,
	}
}

const helpText = "Пришли фото или скриншот с вопросами — верну вопросы с ответами.\n" +
	"Можно прислать и текст вопросов.\n" +
	"Команды:\n" +
	"/mode — structured (модель читает фото) или ocr (OCR + разбор текста)\n" +
	"/history — последние наборы\n" +
	"/health — проверка"

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	switch {
	case msg.IsCommand():
		r.HandleCommand(ctx, msg)
	case len(msg.Photo) > 0:
		r.acceptPhoto(ctx, msg)
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		r.acceptFile(ctx, msg.Chat.ID, "", msg.Document.FileID)
	case strings.TrimSpace(msg.Text) != "":
		r.handleText(ctx, msg.Chat.ID, msg.Text)
	}
}

func (r *Router) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, helpText)
	case "health":
		r.send(cid, "✅ OK")
	case "mode":
		r.handleModeCommand(cid, msg.CommandArguments())
	case "history":
		r.sendHistory(ctx, cid)
	default:
		r.send(cid, "Неизвестная команда")
	}
}

// handleModeCommand: "/mode" показывает текущий путь, "/mode ocr" переключает.
func (r *Router) handleModeCommand(chatID int64, args string) {
	args = strings.TrimSpace(args)
	if args == "" {
		r.send(chatID, "Текущий режим: "+string(r.Modes.Get(chatID))+
			"\nИспользование:\n/mode structured\n/mode ocr")
		return
	}
	mode, err := pipeline.ParseMode(args)
	if err != nil || mode == pipeline.ModeText {
		r.send(chatID, "Неизвестный режим. Доступны: structured | ocr")
		return
	}
	r.Modes.Set(chatID, mode)
	r.send(chatID, "✅ Режим: "+string(mode))
}

func (r *Router) sendHistory(ctx context.Context, chatID int64) {
	if r.History == nil {
		r.send(chatID, "История не ведётся.")
		return
	}
	sets, err := r.History.List(ctx, 10)
	if err != nil {
		r.SendError(chatID, err)
		return
	}
	if len(sets) == 0 {
		r.send(chatID, "История пуста.")
		return
	}
	var b strings.Builder
	b.WriteString("Последние наборы:\n")
	for i, s := range sets {
		fmt.Fprintf(&b, "%d. %s (%d)\n", i+1, s.Title, s.QuestionCount)
	}
	r.send(chatID, b.String())
}

func (r *Router) handleText(ctx context.Context, chatID int64, text string) {
	r.run(ctx, chatID, pipeline.Input{Mode: pipeline.ModeText, Text: text, WithAnswers: true},
		"Не нашёл вопросов в тексте. Нужны номера (1., Q2:) и варианты (A), B)...).")
}

func (r *Router) processImage(ctx context.Context, chatID int64, img []byte) {
	r.run(ctx, chatID, pipeline.Input{Mode: r.Modes.Get(chatID), Image: img, WithAnswers: true},
		pipeline.NoQuestionsMessage)
}

func (r *Router) run(ctx context.Context, chatID int64, in pipeline.Input, emptyMsg string) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	set, err := r.Pipeline.Run(ctx, in)
	if errors.Is(err, pipeline.ErrNoQuestions) {
		r.send(chatID, emptyMsg)
		return
	}
	if err != nil {
		r.Logger.Error("telegram extraction failed", "chat", chatID, "mode", string(in.Mode), "err", err)
		r.SendError(chatID, err)
		return
	}
	r.SendSet(chatID, set)
}

// SendSet отправляет набор текстом; длинные наборы режутся на несколько сообщений.
func (r *Router) SendSet(chatID int64, set question.Set) {
	for _, part := range splitMessage(export.Text(set), maxMessageLen) {
		r.send(chatID, part)
	}
}

func (r *Router) send(chatID int64, text string) {
	if _, err := r.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.Logger.Warn("telegram send failed", "chat", chatID, "err", err)
	}
}

func (r *Router) SendError(chatID int64, err error) {
	r.send(chatID, fmt.Sprintf("Ошибка: %v", err))
}

// splitMessage режет по строкам так, чтобы каждая часть была не длиннее limit байт.
func splitMessage(text string, limit int) []string {
	text = strings.TrimRight(text, "\n")
	if len(text) <= limit {
		return []string{text}
	}
	var (
		parts []string
		cur   strings.Builder
	)
	for _, line := range strings.Split(text, "\n") {
		for len(line) > limit {
			if cur.Len() > 0 {
				parts = append(parts, cur.String())
				cur.Reset()
			}
			cut := limit
			for cut > 0 && line[cut]&0xC0 == 0x80 {
				cut--
			}
			parts = append(parts, line[:cut])
			line = line[cut:]
		}
		if cur.Len() > 0 && cur.Len()+1+len(line) > limit {
			parts = append(parts, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}
