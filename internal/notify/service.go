// Package notify forwards admitted notifications to registered delivery
// channels. OSS ships with the webhook driver; other drivers (Slack,
// desktop, push) register via RegisterDriver.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/presentos/presentos/pkg/models"
)

// ChannelKind identifies a delivery mechanism.
type ChannelKind string

// ChannelWebhook is the built-in HTTP POST channel.
const ChannelWebhook ChannelKind = "webhook"

// Channel is one configured delivery target.
type Channel struct {
	Name   string      `json:"name"`
	Kind   ChannelKind `json:"kind"`
	URL    string      `json:"url"`
	Secret string      `json:"secret,omitempty"`
	Active bool        `json:"active"`
}

// Result reports one delivery attempt.
type Result struct {
	Channel   string    `json:"channel"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ChannelDriver sends an admitted notification to one channel.
type ChannelDriver interface {
	Kind() ChannelKind
	Send(ctx context.Context, channel *Channel, n models.Notification) error
}

// ── Service ──────────────────────────────────────────────────

// Service fans admitted notifications out to all active channels.
type Service struct {
	client *http.Client

	mu       sync.RWMutex
	drivers  map[ChannelKind]ChannelDriver
	channels []Channel
}

// NewService creates a notification service with the built-in webhook driver.
func NewService() *Service {
	svc := &Service{
		client:  &http.Client{Timeout: 15 * time.Second},
		drivers: make(map[ChannelKind]ChannelDriver),
	}
	svc.RegisterDriver(&WebhookChannelDriver{client: svc.client})
	return svc
}

// RegisterDriver adds or replaces a channel driver for the given kind.
func (s *Service) RegisterDriver(driver ChannelDriver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drivers[driver.Kind()] = driver
	log.Info().Str("kind", string(driver.Kind())).Msg("Registered notification channel driver")
}

// AddChannel registers a delivery target. The kind must have a driver and
// the URL must be absolute.
func (s *Service) AddChannel(ch Channel) error {
	if ch.Name == "" {
		return fmt.Errorf("channel name is required")
	}
	parsed, err := url.Parse(ch.URL)
	if err != nil || !parsed.IsAbs() {
		return fmt.Errorf("channel URL must be absolute")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drivers[ch.Kind]; !ok {
		return fmt.Errorf("no driver registered for channel kind %q", ch.Kind)
	}

	ch.Active = true
	for i := range s.channels {
		if s.channels[i].Name == ch.Name {
			s.channels[i] = ch
			return nil
		}
	}
	s.channels = append(s.channels, ch)
	log.Info().Str("channel", ch.Name).Str("kind", string(ch.Kind)).Msg("Notification channel added")
	return nil
}

// Channels lists the registered delivery targets, secrets redacted.
func (s *Service) Channels() []Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Channel, len(s.channels))
	copy(out, s.channels)
	for i := range out {
		if out[i].Secret != "" {
			out[i].Secret = "****"
		}
	}
	return out
}

// Dispatch sends the notification to every active channel concurrently and
// collects per-channel results. Delivery failures are logged, never fatal.
func (s *Service) Dispatch(ctx context.Context, n models.Notification) []Result {
	s.mu.RLock()
	channels := make([]Channel, len(s.channels))
	copy(channels, s.channels)
	drivers := make(map[ChannelKind]ChannelDriver, len(s.drivers))
	for k, d := range s.drivers {
		drivers[k] = d
	}
	s.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []Result
	)
	for i := range channels {
		ch := channels[i]
		if !ch.Active {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := Result{Channel: ch.Name, Timestamp: time.Now().UTC()}

			driver := drivers[ch.Kind]
			if driver == nil {
				result.Error = fmt.Sprintf("no driver registered for channel kind %q", ch.Kind)
			} else if err := driver.Send(ctx, &ch, n); err != nil {
				result.Error = err.Error()
				log.Warn().Err(err).Str("channel", ch.Name).Str("notification", n.ID).Msg("Channel delivery failed")
			} else {
				result.Success = true
				log.Info().Str("channel", ch.Name).Str("notification", n.ID).Msg("Notification delivered")
			}

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// ── Webhook Channel Driver (built-in) ────────────────────────

// WebhookChannelDriver posts the notification as JSON to a webhook URL with
// optional HMAC-SHA256 signing.
type WebhookChannelDriver struct {
	client *http.Client
}

// Kind returns ChannelWebhook.
func (d *WebhookChannelDriver) Kind() ChannelKind { return ChannelWebhook }

// Send posts the notification to the channel's URL.
func (d *WebhookChannelDriver) Send(ctx context.Context, channel *Channel, n models.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt*2) * time.Second)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, channel.URL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "PresentOS-Webhook/1.0")
		req.Header.Set("X-PresentOS-Notification", n.Type)

		if channel.Secret != "" {
			mac := hmac.New(sha256.New, []byte(channel.Secret))
			mac.Write(body)
			sig := hex.EncodeToString(mac.Sum(nil))
			req.Header.Set("X-PresentOS-Signature", "sha256="+sig)
		}

		resp, err := d.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("webhook HTTP %d from %s", resp.StatusCode, channel.URL)
	}
	return fmt.Errorf("webhook failed after 3 attempts: %w", lastErr)
}
