package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 3 * time.Second

// WebhookNotifier 领域事件回调通知器
// 把队列消费到的事件以 JSON POST 投递给协作方（机器人网关等）。
// 回调地址未配置时整体关闭，所有发送降级为空操作。
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// Event 回调事件信封
type Event struct {
	Event   string      `json:"event"`
	SentAt  int64       `json:"sent_at"`
	Payload interface{} `json:"payload"`
}

// NewWebhookNotifier 创建回调通知器
func NewWebhookNotifier(url string, timeoutMS int) *WebhookNotifier {
	timeout := defaultTimeout
	if timeoutMS > 0 {
		timeout = time.Duration(timeoutMS) * time.Millisecond
	}
	return &WebhookNotifier{
		url:    strings.TrimSpace(url),
		client: &http.Client{Timeout: timeout},
	}
}

// Enabled 判断是否启用
func (n *WebhookNotifier) Enabled() bool {
	return n != nil && n.url != ""
}

// Send 投递一条事件
// 非 2xx 返回错误，交给队列按退避策略重试。
func (n *WebhookNotifier) Send(ctx context.Context, event string, payload interface{}) error {
	if !n.Enabled() {
		return nil
	}
	body, err := json.Marshal(Event{
		Event:   event,
		SentAt:  time.Now().Unix(),
		Payload: payload,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	return nil
}
