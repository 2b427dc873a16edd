package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxPhotoBytes bounds a downloaded receipt photo.
const maxPhotoBytes = 10 << 20

// downloadPhoto fetches the largest size Telegram offers for a photo.
func (r *Router) downloadPhoto(ctx context.Context, sizes []tgbotapi.PhotoSize) ([]byte, string, error) {
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width*s.Height > best.Width*best.Height {
			best = s
		}
	}

	url, err := r.sender.GetFileDirectURL(best.FileID)
	if err != nil {
		return nil, "", fmt.Errorf("downloadPhoto: resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("downloadPhoto: build request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("downloadPhoto: get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("downloadPhoto: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("downloadPhoto: read body: %w", err)
	}
	if len(data) > maxPhotoBytes {
		return nil, "", fmt.Errorf("downloadPhoto: photo larger than %d bytes", maxPhotoBytes)
	}

	mimeType := "image/jpeg"
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "image/") {
		mimeType = ct
	}
	return data, mimeType, nil
}
