// Package captcha resolves the reCAPTCHA challenges the portal throws
// in front of its search form. Two strategies exist: a paid solving
// service, and a human operator watching the browser window.
package captcha

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("lib/captcha")

// ErrServiceFailure marks failures reported by the solving service
// itself. These are never retried: the service charges per solve and
// an account or key problem will fail every later lookup the same
// way, so the run terminates instead of burning budget.
var ErrServiceFailure = errors.New("challenge solving service failure")

type Challenge struct {
	SiteKey string
	PageURL string
	// Expect is a substring whose appearance in the page title means
	// the challenge was completed externally, the signal the manual
	// strategy waits on.
	Expect string
}

type Result struct {
	// Token gets injected into the page before submitting the search.
	// Empty means the challenge and the submission already happened
	// outside the engine (a human did both).
	Token string
}

type Resolver interface {
	Solve(ctx context.Context, challenge Challenge) (Result, error)
}
