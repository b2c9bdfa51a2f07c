package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// TransferRequest one payout transfer to a companion's connected account
type TransferRequest struct {
	IdempotencyKey     string // payout id; a retried call never moves money twice
	DestinationAccount string
	AmountCents        int64
	Currency           string
	Description        string
}

// TransferClient payment-transfer collaborator. Transfer returns the
// external transfer reference.
type TransferClient interface {
	Transfer(ctx context.Context, req TransferRequest) (string, error)
}

type transferBody struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Destination string            `json:"destination"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type transferResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type transferError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// HTTPTransferClient calls the payments provider transfers API
type HTTPTransferClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewHTTPTransferClient timeout bounds every attempt; an exhausted timeout
// surfaces as an error and the payout is recorded FAILED, never left PROCESSING.
func NewHTTPTransferClient(baseURL, apiKey string, timeout time.Duration, retries int, logger *zap.Logger) *HTTPTransferClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(3*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}

	return &HTTPTransferClient{httpClient: client, logger: logger}
}

func (c *HTTPTransferClient) Transfer(ctx context.Context, req TransferRequest) (string, error) {
	c.logger.Info("Calling transfer API",
		zap.String("payout_id", req.IdempotencyKey),
		zap.Int64("amount_cents", req.AmountCents),
	)

	var result transferResult
	var apiErr transferError
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", req.IdempotencyKey).
		SetBody(transferBody{
			Amount:      req.AmountCents,
			Currency:    req.Currency,
			Destination: req.DestinationAccount,
			Description: req.Description,
			Metadata:    map[string]string{"payout_id": req.IdempotencyKey},
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/v1/transfers")
	if err != nil {
		c.logger.Error("Transfer API call failed", zap.String("payout_id", req.IdempotencyKey), zap.Error(err))
		return "", fmt.Errorf("failed to call transfer API: %w", err)
	}

	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = resp.Status()
		}
		c.logger.Error("Transfer API returned error",
			zap.String("payout_id", req.IdempotencyKey),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("msg", msg),
		)
		return "", fmt.Errorf("transfer API error: %s (status: %d)", msg, resp.StatusCode())
	}
	if result.ID == "" {
		return "", fmt.Errorf("transfer API returned no transfer id")
	}

	c.logger.Info("Transfer created", zap.String("payout_id", req.IdempotencyKey), zap.String("transfer_id", result.ID))
	return result.ID, nil
}
