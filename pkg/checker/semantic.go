package checker

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"record-verify/pkg/model"
)

const NameSemantic = "semantic"

const (
	defaultSemanticTimeout   = 10 * time.Second
	defaultSemanticRetries   = 2
	defaultSemanticBaseDelay = 500 * time.Millisecond
	semanticMinRunes         = 20
)

// SemanticOptions 外部语义检查服务配置
type SemanticOptions struct {
	Enabled    bool
	Endpoint   string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
}

// SemanticChecker 调用外部服务检查上下文不通顺、夸大表述等问题。
// 服务不可用时只记日志，不产生问题，也不返回错误。
type SemanticChecker struct {
	opts   SemanticOptions
	client *http.Client
}

type semanticRequest struct {
	Text    string `json:"text"`
	Section string `json:"section"`
	Kind    string `json:"kind"`
}

type semanticResponse struct {
	Issues []map[string]interface{} `json:"issues"`
}

// errRetryable 可重试的调用失败
type errRetryable struct{ err error }

func (e errRetryable) Error() string { return e.err.Error() }

func NewSemanticChecker(opts SemanticOptions, client *http.Client) *SemanticChecker {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultSemanticTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultSemanticRetries
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultSemanticBaseDelay
	}
	if client == nil {
		client = &http.Client{}
	}
	return &SemanticChecker{opts: opts, client: client}
}

func (c *SemanticChecker) Name() string { return NameSemantic }

func (c *SemanticChecker) Expensive() bool { return true }

func (c *SemanticChecker) ShouldApply(cc model.CellContext) bool {
	return !cc.IsHeader && cc.Kind.Narrative()
}

func (c *SemanticChecker) Check(ctx context.Context, text string, cc model.CellContext) ([]model.Finding, error) {
	if len([]rune(strings.TrimSpace(text))) < semanticMinRunes {
		return nil, nil
	}
	body, err := json.Marshal(semanticRequest{Text: text, Section: cc.Location.Section, Kind: string(cc.Kind)})
	if err != nil {
		zap.S().Warnf("语义检查请求编码失败: %v", err)
		return nil, nil
	}

	var resp *semanticResponse
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.opts.BaseDelay*time.Duration(1<<(attempt-1))); err != nil {
				return nil, nil
			}
		}
		resp, err = c.call(ctx, body)
		if err == nil {
			break
		}
		var retry errRetryable
		if !errors.As(err, &retry) || ctx.Err() != nil {
			break
		}
		zap.S().Debugf("语义检查第 %d 次调用失败，准备重试: %v", attempt+1, err)
	}
	if err != nil {
		zap.S().Warnf("语义检查不可用，跳过 %s: %v", cc.Location, err)
		return nil, nil
	}
	return c.toFindings(resp), nil
}

func (c *SemanticChecker) call(ctx context.Context, body []byte) (*semanticResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "构造请求失败")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	res, err := c.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() || errors.Is(err, context.DeadlineExceeded) {
			return nil, errRetryable{errors.Wrap(err, "请求超时")}
		}
		return nil, errors.Wrap(err, "请求失败")
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "读取响应失败")
	}
	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return nil, errRetryable{errors.Errorf("服务返回 %d", res.StatusCode)}
	default:
		return nil, errors.Errorf("服务返回 %d", res.StatusCode)
	}

	var out semanticResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, errors.Wrap(err, "解析响应失败")
	}
	return &out, nil
}

func (c *SemanticChecker) toFindings(resp *semanticResponse) []model.Finding {
	if resp == nil {
		return nil
	}
	findings := make([]model.Finding, 0, len(resp.Issues))
	for _, issue := range resp.Issues {
		msg := strings.TrimSpace(cast.ToString(issue["message"]))
		if msg == "" {
			continue
		}
		f := model.Finding{
			Kind:       model.KindSemantic,
			Severity:   semanticSeverity(cast.ToString(issue["severity"])),
			Message:    msg,
			Suggestion: cast.ToString(issue["suggestion"]),
		}
		if raw, ok := issue["confidence"]; ok && raw != nil {
			conf := cast.ToFloat64(raw)
			if conf < 0 {
				conf = 0
			} else if conf > 1 {
				conf = 1
			}
			f.Confidence = &conf
		}
		start, end := cast.ToInt(issue["start"]), cast.ToInt(issue["end"])
		if end > start && start >= 0 {
			f.Highlight = &model.Highlight{Start: start, End: end}
		}
		findings = append(findings, f)
	}
	return findings
}

// 外部服务最多给到 warning
func semanticSeverity(s string) model.Severity {
	switch model.Severity(strings.ToLower(strings.TrimSpace(s))) {
	case model.SeverityError, model.SeverityWarning:
		return model.SeverityWarning
	default:
		return model.SeverityInfo
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
