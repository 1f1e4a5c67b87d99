package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hqops/stocktrack/internal/entity"
)

// =============================================================================
// Dispatcher — 外部投递通道
// 站内通知在业务事务内落库，投递只是事后镜像：提交后异步推送到
// 配置的webhook（IM机器人、邮件网关等）。推送失败只记日志，不影响业务。
// =============================================================================

// Dispatcher webhook投递器。url为空时所有推送都是空操作。
type Dispatcher struct {
	url        string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewDispatcher 创建投递器实例
func NewDispatcher(url, token string, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		url:   url,
		token: token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// webhookPayload 推送的消息体
type webhookPayload struct {
	UserID  string `json:"user_id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Push 异步推送一批已落库的通知。事务提交后调用；
// 接收nil投递器或空批次时直接返回。
func (d *Dispatcher) Push(notifications []entity.Notification) {
	if d == nil || d.url == "" || len(notifications) == 0 {
		return
	}

	items := make([]webhookPayload, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, webhookPayload{
			UserID:  n.UserID,
			Title:   n.Title,
			Message: n.Message,
			Type:    n.Type,
		})
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := d.send(ctx, items); err != nil {
			d.logger.Warn("webhook delivery failed",
				zap.Int("count", len(items)),
				zap.Error(err))
		}
	}()
}

// send 执行webhook请求
func (d *Dispatcher) send(ctx context.Context, items []webhookPayload) error {
	bodyBytes, err := json.Marshal(map[string]interface{}{
		"notifications": items,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", d.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
