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

	"github.com/dshills/clauseaudit/internal/schema"
)

// maxTitleRunes keeps the headline of a pushed message short.
const maxTitleRunes = 40

// Pusher announces a finished audit to a chat channel.
type Pusher interface {
	Name() string
	Push(ctx context.Context, res *schema.AuditResult, link string) error
}

var httpClient = &http.Client{Timeout: time.Minute}

// Webhook posts a text message to a chat bot webhook. The payload follows
// the common {"msg_type":"text","content":{"text":...}} bot format; a
// non-zero "code" in the reply is treated as a failure.
type Webhook struct {
	URL string
}

type webhookMessage struct {
	MsgType string `json:"msg_type"`
	Content struct {
		Text string `json:"text"`
	} `json:"content"`
}

type webhookReply struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Push(ctx context.Context, res *schema.AuditResult, link string) error {
	fail := func(err error) error { return &schema.PushFailure{Channel: w.Name(), Err: err} }

	var msg webhookMessage
	msg.MsgType = "text"
	msg.Content.Text = Message(res, link)
	body, err := json.Marshal(msg)
	if err != nil {
		return fail(fmt.Errorf("marshaling message: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fail(fmt.Errorf("creating HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fail(fmt.Errorf("reading response body: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return fail(fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBytes))))
	}
	var reply webhookReply
	if json.Unmarshal(respBytes, &reply) == nil && reply.Code != 0 {
		return fail(fmt.Errorf("code %d: %s", reply.Code, reply.Msg))
	}
	return nil
}

// Message is the summary text sent for an audit.
func Message(res *schema.AuditResult, link string) string {
	title := res.Report.Title
	if r := []rune(title); len(r) > maxTitleRunes {
		title = string(r[:maxTitleRunes]) + "..."
	}
	sev := res.Summary.Severity
	lines := []string{
		"📊 " + title,
		fmt.Sprintf("综合评分: %d分 (%s)", res.Score, res.Grade.Label()),
		fmt.Sprintf("违规: 严重%d项 中等%d项 轻微%d项", sev.High, sev.Medium, sev.Low),
	}
	if res.Summary.PricingIssues > 0 {
		lines = append(lines, fmt.Sprintf("定价: %d项需关注", res.Summary.PricingIssues))
	}
	if link != "" {
		lines = append(lines, "报告: "+link)
	}
	return strings.Join(lines, "\n")
}

// Link picks the URL announced for an audit: the export location when
// one was produced, otherwise base joined with the audit ID.
func Link(res *schema.AuditResult, base string) string {
	if res.Export != nil && res.Export.Success && res.Export.Location != "" {
		return res.Export.Location
	}
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + res.AuditID
}
