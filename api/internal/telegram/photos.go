package telegram

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png" // декодер для альбомов из PNG
	"io"
	"math"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/radhikaramasamy/snipreader/api/internal/util"
)

func (r *Router) acceptPhoto(ctx context.Context, msg *tgbotapi.Message) {
	ph := msg.Photo[len(msg.Photo)-1]
	r.acceptFile(ctx, msg.Chat.ID, msg.MediaGroupID, ph.FileID)
}

// acceptFile скачивает картинку и кладёт в пачку: страницы альбома склеиваются в одну.
func (r *Router) acceptFile(ctx context.Context, cid int64, mediaGroupID, fileID string) {
	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		r.SendError(cid, err)
		return
	}
	imgBytes, err := download(ctx, url)
	if err != nil {
		r.SendError(cid, err)
		return
	}

	key := "chat:" + fmt.Sprint(cid)
	if mediaGroupID != "" {
		key = "grp:" + mediaGroupID
	}

	bi, _ := r.batches.LoadOrStore(key, &photoBatch{
		ChatID: cid, Key: key, images: make([][]byte, 0, 4),
	})
	b := bi.(*photoBatch)

	b.mu.Lock()
	b.images = append(b.images, imgBytes)
	first := len(b.images) == 1
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(debounce, func() { r.processBatch(context.WithoutCancel(ctx), key) })
	b.mu.Unlock()

	if first {
		r.send(cid, "Фото принято. Если вопросы на нескольких фото — пришлите их альбомом, я склею страницы.")
	}
}

func (r *Router) processBatch(ctx context.Context, key string) {
	bi, ok := r.batches.LoadAndDelete(key)
	if !ok {
		return
	}
	b := bi.(*photoBatch)

	b.mu.Lock()
	images := append([][]byte(nil), b.images...)
	chatID := b.ChatID
	b.mu.Unlock()

	if len(images) == 0 {
		return
	}
	img := images[0]
	if len(images) > 1 {
		merged, err := stackPages(images, maxPixels)
		if err != nil {
			r.SendError(chatID, fmt.Errorf("склейка: %w", err))
			return
		}
		img = merged
	}
	r.processImage(ctx, chatID, img)
}

// stackPages ставит страницы альбома одну под другой (по центру, на белом фоне) и кодирует в JPEG.
// Если площадь больше limit пикселей, результат уменьшается с сохранением пропорций.
func stackPages(pages [][]byte, limit int) ([]byte, error) {
	decoded := make([]image.Image, 0, len(pages))
	width, height := 0, 0
	for i, p := range pages {
		img, _, err := image.Decode(bytes.NewReader(p))
		if err != nil {
			return nil, fmt.Errorf("страница %d: %w", i+1, err)
		}
		decoded = append(decoded, img)
		width = max(width, img.Bounds().Dx())
		height += img.Bounds().Dy()
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("пустые изображения")
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	y := 0
	for _, img := range decoded {
		b := img.Bounds()
		x := (width - b.Dx()) / 2
		draw.Draw(canvas, image.Rect(x, y, x+b.Dx(), y+b.Dy()), img, b.Min, draw.Over)
		y += b.Dy()
	}

	var out image.Image = canvas
	if limit > 0 && width*height > limit {
		k := math.Sqrt(float64(limit) / float64(width*height))
		out = shrink(canvas, max(1, int(float64(width)*k)), max(1, int(float64(height)*k)))
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// shrink: ближайший сосед, для текста на скриншотах достаточно.
func shrink(src *image.RGBA, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()
	for y := 0; y < h; y++ {
		row := src.Pix[(y*sh/h)*src.Stride:]
		for x := 0; x < w; x++ {
			i := (x * sw / w) * 4
			copy(dst.Pix[y*dst.Stride+x*4:y*dst.Stride+x*4+4], row[i:i+4])
		}
	}
	return dst
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("download status %d: %s", resp.StatusCode, util.Truncate(string(b), 256))
	}
	return io.ReadAll(resp.Body)
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
