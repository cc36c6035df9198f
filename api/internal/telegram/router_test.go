package telegram

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/radhikaramasamy/snipreader/api/internal/extract"
	"github.com/radhikaramasamy/snipreader/api/internal/ocr"
	"github.com/radhikaramasamy/snipreader/api/internal/pipeline"
	"github.com/radhikaramasamy/snipreader/api/internal/question"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeBot struct {
	mu   sync.Mutex
	sent []string
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		b.sent = append(b.sent, m.Text)
	}
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) GetFileDirectURL(string) (string, error) { return "", nil }

func (b *fakeBot) last() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sent) == 0 {
		return ""
	}
	return b.sent[len(b.sent)-1]
}

type fakeVision struct{}

func (fakeVision) Name() string { return "fake" }
func (fakeVision) GenerateContent(context.Context, []byte, string) (string, error) {
	return `{"candidates":[{"content":{"parts":[{"text":"[{\"type\":\"GENERAL\",\"questionText\":\"Capital of France?\",\"answer\":\"Paris\"}]"}]}}]}`, nil
}

type fakeOCR struct{}

func (fakeOCR) Name() string { return "fake-ocr" }
func (fakeOCR) Recognize(context.Context, []byte, ocr.Options) (string, error) {
	return "1. Red planet?\nA) Venus\nB) Mars", nil
}

type fakeHistory struct{ sets []question.Set }

func (f fakeHistory) List(context.Context, int) ([]question.Set, error) { return f.sets, nil }

func newRouter(history HistoryRepo) (*Router, *fakeBot) {
	bot := &fakeBot{}
	svc := &pipeline.Service{
		Vision:     fakeVision{},
		OCR:        fakeOCR{},
		Structured: extract.NewStructured(extract.AbortBatch, quiet),
		Heuristic:  extract.NewHeuristic(quiet),
		Logger:     quiet,
	}
	return NewRouter(bot, svc, history, pipeline.ModeStructured, quiet), bot
}

func command(chatID int64, text string) tgbotapi.Update {
	name := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func textMessage(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: text}}
}

func TestCommands(t *testing.T) {
	r, bot := newRouter(nil)
	ctx := context.Background()

	r.HandleUpdate(ctx, command(1, "/start"))
	if !strings.Contains(bot.last(), "/mode") {
		t.Fatalf("unexpected help %q", bot.last())
	}

	r.HandleUpdate(ctx, command(1, "/mode ocr"))
	if r.Modes.Get(1) != pipeline.ModeOCR || r.Modes.Get(2) != pipeline.ModeStructured {
		t.Fatalf("mode must be per chat")
	}

	r.HandleUpdate(ctx, command(1, "/mode text"))
	if !strings.HasPrefix(bot.last(), "Неизвестный режим") || r.Modes.Get(1) != pipeline.ModeOCR {
		t.Fatalf("text mode must be rejected, got %q", bot.last())
	}

	r.HandleUpdate(ctx, command(1, "/history"))
	if bot.last() != "История не ведётся." {
		t.Fatalf("unexpected %q", bot.last())
	}

	r.HandleUpdate(ctx, command(1, "/nope"))
	if bot.last() != "Неизвестная команда" {
		t.Fatalf("unexpected %q", bot.last())
	}
}

func TestHistory(t *testing.T) {
	r, bot := newRouter(fakeHistory{sets: []question.Set{{Title: "quiz", QuestionCount: 3}}})
	r.HandleUpdate(context.Background(), command(7, "/history"))
	if !strings.Contains(bot.last(), "1. quiz (3)") {
		t.Fatalf("unexpected %q", bot.last())
	}
}

func TestTextMessage(t *testing.T) {
	r, bot := newRouter(nil)
	r.HandleUpdate(context.Background(), textMessage(1, "1. What is 2+2?\nA) 3\nB) 4"))
	if !strings.Contains(bot.last(), "Question 1: What is 2+2?") || !strings.Contains(bot.last(), "B) 4") {
		t.Fatalf("unexpected reply %q", bot.last())
	}

	r.HandleUpdate(context.Background(), textMessage(1, "hello there"))
	if !strings.HasPrefix(bot.last(), "Не нашёл вопросов") {
		t.Fatalf("unexpected reply %q", bot.last())
	}
}

func TestProcessImageFollowsChatMode(t *testing.T) {
	r, bot := newRouter(nil)
	ctx := context.Background()

	r.processImage(ctx, 1, []byte{0xFF, 0xD8})
	if !strings.Contains(bot.last(), "Capital of France?") || !strings.Contains(bot.last(), "Answer: Paris") {
		t.Fatalf("structured reply expected, got %q", bot.last())
	}

	r.Modes.Set(1, pipeline.ModeOCR)
	r.processImage(ctx, 1, []byte{0xFF, 0xD8})
	if !strings.Contains(bot.last(), "Question 1: Red planet?") {
		t.Fatalf("ocr reply expected, got %q", bot.last())
	}
}

func TestSplitMessage(t *testing.T) {
	if got := splitMessage("short\n", 100); len(got) != 1 || got[0] != "short" {
		t.Fatalf("unexpected %q", got)
	}
	got := splitMessage("aaaa\nbbbb\ncccc", 9)
	if len(got) != 2 || got[0] != "aaaa\nbbbb" || got[1] != "cccc" {
		t.Fatalf("unexpected %q", got)
	}
	long := splitMessage(strings.Repeat("я", 10), 5)
	for _, p := range long {
		if len(p) > 5 || !strings.HasPrefix(p, "я") {
			t.Fatalf("bad chunk %q in %q", p, long)
		}
	}
	if strings.Join(long, "") != strings.Repeat("я", 10) {
		t.Fatalf("chunks lost text: %q", long)
	}
}

func solid(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestStackPages(t *testing.T) {
	out, err := stackPages([][]byte{
		solid(t, 20, 10, color.Black),
		solid(t, 10, 30, color.White),
	}, maxPixels)
	if err != nil {
		t.Fatalf("stack: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("result must be jpeg: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 40 {
		t.Fatalf("unexpected size %v", b)
	}
	// первая страница сверху: тёмный пиксель
	if r, _, _, _ := img.At(10, 5).RGBA(); r > 0x4000 {
		t.Fatalf("expected the first page on top, got red=%#x", r)
	}

	if _, err := stackPages([][]byte{[]byte("not an image")}, maxPixels); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestStackPagesShrinks(t *testing.T) {
	out, err := stackPages([][]byte{
		solid(t, 100, 100, color.Black),
		solid(t, 100, 100, color.White),
	}, 5000)
	if err != nil {
		t.Fatalf("stack: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 50 || b.Dy() != 100 {
		t.Fatalf("expected 50x100 after shrinking, got %v", b)
	}
	if r, _, _, _ := img.At(25, 90).RGBA(); r < 0xC000 {
		t.Fatalf("expected the white page at the bottom, got red=%#x", r)
	}
}

type recordingVision struct {
	fakeVision
	mu     sync.Mutex
	images [][]byte
}

func (v *recordingVision) GenerateContent(ctx context.Context, img []byte, mime string) (string, error) {
	v.mu.Lock()
	v.images = append(v.images, img)
	v.mu.Unlock()
	return v.fakeVision.GenerateContent(ctx, img, mime)
}

func TestProcessBatchMergesAlbum(t *testing.T) {
	r, bot := newRouter(nil)
	vision := &recordingVision{}
	r.Pipeline.Vision = vision

	key := "grp:album-1"
	r.batches.Store(key, &photoBatch{
		ChatID: 5,
		Key:    key,
		images: [][]byte{solid(t, 30, 20, color.Black), solid(t, 30, 20, color.White)},
	})
	r.processBatch(context.Background(), key)

	if len(vision.images) != 1 {
		t.Fatalf("album must reach the model as one image, got %d calls", len(vision.images))
	}
	img, err := jpeg.Decode(bytes.NewReader(vision.images[0]))
	if err != nil {
		t.Fatalf("merged image must be jpeg: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 30 || b.Dy() != 40 {
		t.Fatalf("unexpected merged size %v", b)
	}
	if !strings.Contains(bot.last(), "Capital of France?") {
		t.Fatalf("expected questions in reply, got %q", bot.last())
	}
	if _, ok := r.batches.Load(key); ok {
		t.Fatalf("processed batch must be removed")
	}
}
