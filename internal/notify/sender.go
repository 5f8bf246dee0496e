package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrSenderNotConfigured is returned for every send when channel
// credentials are missing.
var ErrSenderNotConfigured = errors.New("sms sender not configured")

// Sender delivers a single message body to an address. A nil error means
// the provider accepted the message. Retries, if any, happen inside the
// implementation.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, to, body string) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, to, body string) error {
	return f(ctx, to, body)
}

// SMSSenderConfig configures the HTTP SMS gateway.
type SMSSenderConfig struct {
	// GatewayURL is the Messages endpoint, e.g.
	// https://api.twilio.com/2010-04-01/Accounts/{sid}/Messages.json.
	GatewayURL string
	AccountSID string
	AuthToken  string
	From       string
	Timeout    time.Duration
}

func (c SMSSenderConfig) configured() bool {
	return c.GatewayURL != "" && c.AccountSID != "" && c.AuthToken != "" && c.From != ""
}

// SMSSender posts messages to a Twilio-compatible Messages API.
type SMSSender struct {
	httpClient *http.Client
	cfg        SMSSenderConfig
	logger     *zap.Logger
}

// NewSMSSender builds the sender. Missing credentials are not an error
// here: the sender is still returned and reports ErrSenderNotConfigured on
// every send, so a misconfigured channel fails notifications rather than
// the service.
func NewSMSSender(cfg SMSSenderConfig, logger *zap.Logger) *SMSSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg.GatewayURL = strings.ReplaceAll(cfg.GatewayURL, "{sid}", url.PathEscape(cfg.AccountSID))
	s := &SMSSender{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		logger:     logger.Named("sms-sender"),
	}
	if !cfg.configured() {
		s.logger.Warn("sms gateway credentials missing; every send will fail")
	}
	return s
}

// Send implements Sender.
func (s *SMSSender) Send(ctx context.Context, to, body string) error {
	if !s.cfg.configured() {
		return ErrSenderNotConfigured
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.cfg.From)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.GatewayURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// LogSender only logs messages. Used in development.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender builds a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger.Named("log-sender")}
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, to, body string) error {
	s.logger.Info("sms", zap.String("to", maskAddress(to)), zap.String("body", body))
	return nil
}

// maskAddress keeps the last four characters of a phone number for logs.
func maskAddress(addr string) string {
	if len(addr) <= 4 {
		return strings.Repeat("*", len(addr))
	}
	return strings.Repeat("*", len(addr)-4) + addr[len(addr)-4:]
}
