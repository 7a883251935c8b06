package ntfy

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"ntfybridge/internal/logging"
)

const (
	userAgent      = "ntfybridge/1.0"
	defaultTimeout = 10 * time.Second
	maxRecordSize  = 1024 * 1024
)

// Client talks to a single ntfy server.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its timeout is left untouched.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithLogger sets the logger used for poll and send failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "ntfy")
	}
}

// NewClient builds a client for baseURL (e.g. https://ntfy.sh). Each request is
// bounded by timeout; non-positive values use 10 seconds.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout, Transport: newTransport()},
		logger:  logging.NewComponentLogger(nil, "ntfy"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newTransport() http.RoundTripper {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	// On failure the transport keeps speaking HTTP/1.1, which ntfy also serves.
	_ = http2.ConfigureTransport(transport)
	return transport
}

// TopicURL returns the publish endpoint for topic. A topic that is already an
// absolute http(s) URL is used as-is.
func (c *Client) TopicURL(topic string) string {
	topic = strings.TrimSpace(topic)
	if strings.HasPrefix(topic, "http://") || strings.HasPrefix(topic, "https://") {
		return strings.TrimRight(topic, "/")
	}
	return c.baseURL + "/" + url.PathEscape(strings.Trim(topic, "/"))
}

// Fetch returns message events published to topic since the given window
// (a duration such as "30s", a unix timestamp, or a message id). Records that
// are not valid JSON or are not message events are skipped.
func (c *Client) Fetch(ctx context.Context, topic, since string) ([]Message, error) {
	endpoint := c.TopicURL(topic) + "/json"
	query := url.Values{}
	query.Set("poll", "1")
	if since = strings.TrimSpace(since); since != "" {
		query.Set("since", since)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build ntfy poll request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll ntfy topic: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("ntfy poll returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var messages []Message
	reader := bufio.NewReaderSize(resp.Body, 64*1024)
	for {
		record, tooLong, readErr := readRecord(reader, maxRecordSize)
		if tooLong {
			c.logger.Debug("skipping oversized ntfy record", logging.String(logging.FieldTopic, topic))
		} else if line := bytes.TrimSpace(record); len(line) > 0 {
			var msg Message
			if err := json.Unmarshal(line, &msg); err == nil && msg.Event == EventMessage {
				messages = append(messages, msg)
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return messages, nil
			}
			return messages, fmt.Errorf("read ntfy poll response: %w", readErr)
		}
	}
}

// readRecord reads one newline-terminated record. A record longer than limit
// is consumed and discarded, reported through tooLong.
func readRecord(r *bufio.Reader, limit int) (record []byte, tooLong bool, err error) {
	for {
		chunk, readErr := r.ReadSlice('\n')
		if !tooLong {
			if len(record)+len(chunk) > limit {
				tooLong = true
				record = nil
			} else {
				record = append(record, chunk...)
			}
		}
		if errors.Is(readErr, bufio.ErrBufferFull) {
			continue
		}
		return record, tooLong, readErr
	}
}

// Poll is Fetch with failures logged and converted to an empty batch.
func (c *Client) Poll(ctx context.Context, topic, since string) []Message {
	messages, err := c.Fetch(ctx, topic, since)
	if err != nil {
		logging.WarnWithContext(c.logger, "ntfy poll failed", "ntfy_poll_failed",
			logging.String(logging.FieldTopic, topic),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network connectivity and the ntfy base_url"),
			logging.String(logging.FieldImpact, "no inbound messages this cycle"),
		)
		return nil
	}
	return messages
}

// Publish posts pub to topic.
func (c *Client) Publish(ctx context.Context, topic string, pub Publication) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TopicURL(topic), strings.NewReader(pub.Message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if title := strings.TrimSpace(pub.Title); title != "" {
		req.Header.Set("Title", title)
	}
	if tags := strings.TrimSpace(pub.Tags); tags != "" {
		req.Header.Set("Tags", tags)
	}
	if pub.Priority != "" && pub.Priority != PriorityDefault {
		req.Header.Set("Priority", string(pub.Priority))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Send is Publish with failures logged and reported as false.
func (c *Client) Send(ctx context.Context, topic string, pub Publication) bool {
	if err := c.Publish(ctx, topic, pub); err != nil {
		logging.WarnWithContext(c.logger, "ntfy send failed", "ntfy_send_failed",
			logging.String(logging.FieldTopic, topic),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network connectivity and topic permissions"),
			logging.String(logging.FieldImpact, "message not delivered"),
		)
		return false
	}
	return true
}
