package captcha

import (
	"context"
	"fmt"
	"time"

	"caseharvest/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

type TwoCaptchaConfig struct {
	ApiKey string `json:"api_key"`
	// overridable for testing
	BaseUrl        string `json:"base_url"`
	PollIntervalMs int    `json:"poll_interval_ms"`
	SolveTimeoutMs int    `json:"solve_timeout_ms"`
}

func (c TwoCaptchaConfig) PollInterval() time.Duration {
	if c.PollIntervalMs == 0 {
		return 5 * time.Second
	}
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c TwoCaptchaConfig) SolveTimeout() time.Duration {
	if c.SolveTimeoutMs == 0 {
		return 3 * time.Minute
	}
	return time.Duration(c.SolveTimeoutMs) * time.Millisecond
}

// TwoCaptcha hands challenges to the 2captcha.com API.
type TwoCaptcha struct {
	config TwoCaptchaConfig
	client *resty.Client
}

func NewTwoCaptcha(config TwoCaptchaConfig) *TwoCaptcha {
	if config.BaseUrl == "" {
		config.BaseUrl = "https://2captcha.com"
	}
	client := resty.New().SetBaseURL(config.BaseUrl)
	telemetry.InstrumentResty(client, "lib/captcha")
	return &TwoCaptcha{config: config, client: client}
}

// the service answers both endpoints with {"status": ..., "request": ...},
// where request is the job id, the token or an error code depending on
// status and endpoint
type twoCaptchaResponse struct {
	Status  int    `json:"status"`
	Request string `json:"request"`
}

const notReady = "CAPCHA_NOT_READY"

// Solve submits the challenge exactly once, then polls the answer
// endpoint until the worker pool comes back with a token. Polling an
// accepted job is part of the service protocol, not a retry.
func (s *TwoCaptcha) Solve(ctx context.Context, challenge Challenge) (Result, error) {
	ctx, span := tracer.Start(ctx, "TwoCaptcha.Solve")
	defer span.End()

	var submitted twoCaptchaResponse
	res, err := s.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"key":       s.config.ApiKey,
			"method":    "userrecaptcha",
			"googlekey": challenge.SiteKey,
			"pageurl":   challenge.PageURL,
			"json":      "1",
		}).
		SetResult(&submitted).
		Post("/in.php")
	if err != nil {
		return Result{}, fmt.Errorf("submit challenge: %w", err)
	}
	if res.IsError() {
		return Result{}, fmt.Errorf("%w: submit returned http %d", ErrServiceFailure, res.StatusCode())
	}
	if submitted.Status != 1 {
		err := fmt.Errorf("%w: submit rejected: %s", ErrServiceFailure, submitted.Request)
		span.RecordError(err)
		span.SetStatus(codes.Error, "challenge submit rejected")
		return Result{}, err
	}
	jobId := submitted.Request

	deadline := time.Now().Add(s.config.SolveTimeout())
	for {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(s.config.PollInterval()):
		}

		var answer twoCaptchaResponse
		res, err := s.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"key":    s.config.ApiKey,
				"action": "get",
				"id":     jobId,
				"json":   "1",
			}).
			SetResult(&answer).
			Get("/res.php")
		if err != nil {
			return Result{}, fmt.Errorf("poll answer: %w", err)
		}
		if res.IsError() {
			return Result{}, fmt.Errorf("%w: poll returned http %d", ErrServiceFailure, res.StatusCode())
		}

		if answer.Status == 1 {
			return Result{Token: answer.Request}, nil
		}
		if answer.Request != notReady {
			err := fmt.Errorf("%w: %s", ErrServiceFailure, answer.Request)
			span.RecordError(err)
			span.SetStatus(codes.Error, "challenge solve failed")
			return Result{}, err
		}
		if time.Now().After(deadline) {
			err := fmt.Errorf("%w: no answer after %s", ErrServiceFailure, s.config.SolveTimeout())
			span.RecordError(err)
			span.SetStatus(codes.Error, "challenge solve timed out")
			return Result{}, err
		}
	}
}
