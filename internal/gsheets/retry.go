package gsheets

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"
)

// RetryWithBackoff runs fn until it succeeds, returns a permanent error, or
// maxRetries extra attempts have been spent. The wait doubles after every
// failed attempt.
func RetryWithBackoff(ctx context.Context, log *zap.Logger, maxRetries int, initialDelay time.Duration, fn func() error) error {
	if log == nil {
		log = zap.NewNop()
	}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * initialDelay
			log.Warn("retrying sheets call",
				zap.Duration("delay", delay),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", maxRetries),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", maxRetries+1, lastErr)
}

// retryable reports quota and transient server errors.
func retryable(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	switch gerr.Code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable:
		return true
	}
	return false
}

type retryAPI struct {
	api        API
	log        *zap.Logger
	maxRetries int
	delay      time.Duration
}

// WithRetry wraps every call of api in RetryWithBackoff.
func WithRetry(api API, log *zap.Logger, maxRetries int, delay time.Duration) API {
	return &retryAPI{api: api, log: log, maxRetries: maxRetries, delay: delay}
}

func (r *retryAPI) do(ctx context.Context, fn func() error) error {
	return RetryWithBackoff(ctx, r.log, r.maxRetries, r.delay, fn)
}

func (r *retryAPI) GetSpreadsheet(ctx context.Context, id string) (ss *sheets.Spreadsheet, err error) {
	err = r.do(ctx, func() error {
		ss, err = r.api.GetSpreadsheet(ctx, id)
		return err
	})
	return ss, err
}

func (r *retryAPI) GetValues(ctx context.Context, id, rng string) (vr *sheets.ValueRange, err error) {
	err = r.do(ctx, func() error {
		vr, err = r.api.GetValues(ctx, id, rng)
		return err
	})
	return vr, err
}

func (r *retryAPI) UpdateValues(ctx context.Context, id, rng string, values [][]interface{}) error {
	return r.do(ctx, func() error {
		return r.api.UpdateValues(ctx, id, rng, values)
	})
}

func (r *retryAPI) BatchUpdate(ctx context.Context, id string, reqs []*sheets.Request) (resp *sheets.BatchUpdateSpreadsheetResponse, err error) {
	err = r.do(ctx, func() error {
		resp, err = r.api.BatchUpdate(ctx, id, reqs)
		return err
	})
	return resp, err
}
