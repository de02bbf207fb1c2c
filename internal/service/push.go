package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"socialmedia_api/internal/logging"
	"socialmedia_api/internal/metrics"
	"socialmedia_api/internal/repository"
)

const (
	DefaultExpoPushURL = "https://exp.host/--/api/v2/push/send"

	pushBreakerName = "expo_push"

	// expoErrDeviceNotRegistered marks a token the app uninstalled or rotated.
	expoErrDeviceNotRegistered = "DeviceNotRegistered"
)

// ExpoPushClient sends push notifications through Expo's Push API, which
// fans out to APNs and FCM.
type ExpoPushClient struct {
	httpClient *http.Client
	endpoint   string
}

type expoPushMessage struct {
	To       []string          `json:"to"`
	Title    string            `json:"title,omitempty"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Sound    string            `json:"sound,omitempty"`
	Priority string            `json:"priority,omitempty"`
}

type expoPushResponse struct {
	Data []expoPushTicket `json:"data"`
}

type expoPushTicket struct {
	Status  string `json:"status"`
	ID      string `json:"id"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"`
	} `json:"details,omitempty"`
}

// NewExpoPushClient builds a client for endpoint; an empty endpoint uses
// Expo's public API.
func NewExpoPushClient(endpoint string) *ExpoPushClient {
	if endpoint == "" {
		endpoint = DefaultExpoPushURL
	}
	return &ExpoPushClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   endpoint,
	}
}

func isExpoToken(token string) bool {
	return strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken[")
}

// SendToTokens posts one message to every valid Expo token and returns the
// tokens Expo reported as no longer registered.
func (c *ExpoPushClient) SendToTokens(ctx context.Context, tokens []string, title, body string, data map[string]string) ([]string, error) {
	valid := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if isExpoToken(token) {
			valid = append(valid, token)
		}
	}
	if len(valid) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(expoPushMessage{
		To:       valid,
		Title:    title,
		Body:     body,
		Data:     data,
		Sound:    "default",
		Priority: "high",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("expo api error: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var pushResp expoPushResponse
	if err := json.Unmarshal(respBody, &pushResp); err != nil {
		// Expo accepted the request; an unreadable ticket list only loses cleanup.
		logging.Component("push").Warn().Err(err).Msg("parse expo response failed")
		return nil, nil
	}

	// Tickets come back in the order of "to".
	var unregistered []string
	for i, ticket := range pushResp.Data {
		if ticket.Status == "ok" || i >= len(valid) {
			continue
		}
		if ticket.Details.Error == expoErrDeviceNotRegistered {
			unregistered = append(unregistered, valid[i])
		}
		logging.Component("push").Debug().
			Str("error", ticket.Details.Error).
			Str("message", ticket.Message).
			Msg("push ticket rejected")
	}
	return unregistered, nil
}

// PushSender delivers a message to device tokens and reports dead tokens.
type PushSender interface {
	SendToTokens(ctx context.Context, tokens []string, title, body string, data map[string]string) ([]string, error)
}

// PushService looks up the recipient's devices and sends through a circuit
// breaker, so an Expo outage fails fast instead of stalling workers.
type PushService struct {
	sender    PushSender
	breaker   *gobreaker.CircuitBreaker[[]string]
	tokenRepo repository.DeviceTokenRepository
	userRepo  repository.UserRepository
}

// BreakerConfig tunes the push circuit breaker.
type BreakerConfig struct {
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

func NewPushService(sender PushSender, tokenRepo repository.DeviceTokenRepository, userRepo repository.UserRepository, cfg BreakerConfig) *PushService {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultBreakerConfig().OpenTimeout
	}

	breaker := gobreaker.NewCircuitBreaker[[]string](gobreaker.Settings{
		Name:        pushBreakerName,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			logging.Component("push").Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	metrics.CircuitBreakerState.WithLabelValues(pushBreakerName).Set(float64(gobreaker.StateClosed))

	return &PushService{
		sender:    sender,
		breaker:   breaker,
		tokenRepo: tokenRepo,
		userRepo:  userRepo,
	}
}

// NotifyActivity pushes "<actor> <verb>" to every device of recipientID.
func (s *PushService) NotifyActivity(ctx context.Context, recipientID, actorID int64, verb string, data map[string]string) error {
	devices, err := s.tokenRepo.GetByUserID(ctx, recipientID)
	if err != nil {
		return fmt.Errorf("get device tokens: %w", err)
	}
	if len(devices) == 0 {
		metrics.PushDeliveries.WithLabelValues("no_tokens").Inc()
		return nil
	}

	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return fmt.Errorf("get actor: %w", err)
	}

	tokens := make([]string, len(devices))
	for i, d := range devices {
		tokens[i] = d.Token
	}

	unregistered, err := s.breaker.Execute(func() ([]string, error) {
		return s.sender.SendToTokens(ctx, tokens, "New activity", actor.Username+" "+verb, data)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.PushDeliveries.WithLabelValues("circuit_open").Inc()
		} else {
			metrics.PushDeliveries.WithLabelValues("failed").Inc()
		}
		return fmt.Errorf("send push: %w", err)
	}
	metrics.PushDeliveries.WithLabelValues("sent").Inc()

	if len(unregistered) > 0 {
		if err := s.tokenRepo.DeleteTokens(ctx, unregistered); err != nil {
			logging.Component("push").Warn().Err(err).Int("tokens", len(unregistered)).Msg("delete unregistered tokens failed")
		}
	}
	return nil
}
