package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/stationhub/internal/domain/repository"
	"go.uber.org/zap"
)

const notifyTimeout = 10 * time.Second

// Webhook posts monitoring messages to a chat webhook. Delivery is
// fire-and-forget: failures are logged, never returned, so a dead webhook
// cannot fail a refresh or a moderation action.
type Webhook struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ repository.Monitor = (*Webhook)(nil)

func NewWebhook(url string, logger *zap.Logger) *Webhook {
	return &Webhook{
		url: url,
		httpClient: &http.Client{
			Timeout: notifyTimeout,
		},
		logger: logger,
	}
}

func (w *Webhook) Notify(message string) {
	w.logger.Info("Monitoring message", zap.String("message", message))
	if w.url == "" {
		return
	}
	go w.post(map[string]string{"text": message})
}

func (w *Webhook) NotifyWithFile(message, path string) {
	w.logger.Info("Monitoring message",
		zap.String("message", message),
		zap.String("file", filepath.Base(path)))
	if w.url == "" {
		return
	}

	payload := map[string]string{"text": message}
	if data, err := os.ReadFile(path); err == nil {
		payload["attachment"] = string(data)
		payload["filename"] = filepath.Base(path)
	} else {
		w.logger.Warn("Failed to read monitoring attachment",
			zap.String("file", path),
			zap.Error(err))
	}
	go w.post(payload)
}

func (w *Webhook) post(payload map[string]string) {
	body, err := json.Marshal(payload)
	if err != nil {
		w.logger.Warn("Failed to marshal monitoring payload", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		w.logger.Warn("Failed to create monitoring request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		w.logger.Warn("Monitoring delivery failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		w.logger.Warn("Monitoring webhook returned error",
			zap.Int("status_code", resp.StatusCode))
	}
}
