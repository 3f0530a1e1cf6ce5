// Package benchmark walks a Benchmark court-records portal by guessing
// sequential case numbers, driving one browser search per candidate,
// classifying where the portal lands (not found, one case, several
// associated cases) and appending every case it finds to a CSV whose
// tail doubles as the resume checkpoint. The Bay County, FL deployment
// is the reference target; selectors and page titles live here.
package benchmark

import (
	"strings"
	"time"

	"caseharvest/lib/captcha"
	configlibsql "caseharvest/lib/configuration/libsql"
	"caseharvest/lib/retryutil"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/benchmark")
var meter = otel.Meter("services/benchmark")

var metricCasesScraped, _ = meter.Int64Counter("benchmark.cases_scraped")
var metricCasesMissing, _ = meter.Int64Counter("benchmark.cases_missing")
var metricSessionResets, _ = meter.Int64Counter("benchmark.session_resets")
var metricChallenges, _ = meter.Int64Counter("benchmark.challenges_presented")

const (
	AttachmentsNone   = "none"
	AttachmentsFiling = "filing"
	AttachmentsAll    = "all"
)

type Config struct {
	PortalBase string `json:"portal_base"`
	State      string `json:"state"`
	County     string `json:"county"`

	// years are walked newest first; StartYear itself is never scanned
	StartYear int `json:"start_year"`
	EndYear   int `json:"end_year"`

	// consecutive missing cases before a year is considered finished
	MissingThreshold int `json:"missing_threshold"`
	// attempts granted to every portal wait before the run dies
	ConnectAttempts int `json:"connect_attempts"`

	Output string `json:"output"`

	SolveChallenges bool                     `json:"solve_challenges"`
	Solver          captcha.TwoCaptchaConfig `json:"solver"`

	// none | filing | all
	SaveAttachments string `json:"save_attachments"`
	AttachmentDir   string `json:"attachment_dir"`

	RequestDockets bool                `json:"request_dockets"`
	Ledger         configlibsql.Struct `json:"ledger"`

	LookupIntervalMs int `json:"lookup_interval_ms"`
	LookupJitterMs   int `json:"lookup_jitter_ms"`
}

func (c Config) missingThreshold() int {
	if c.MissingThreshold == 0 {
		return 30
	}
	return c.MissingThreshold
}

// ConnectBudget is the retry budget every portal wait runs under.
func (c Config) ConnectBudget() retryutil.Budget {
	attempts := c.ConnectAttempts
	if attempts == 0 {
		attempts = 10
	}
	return retryutil.Budget{
		Attempts: uint(attempts),
		Interval: 500 * time.Millisecond,
	}
}

func (c Config) endYear() int {
	if c.EndYear == 0 {
		return time.Now().Year()
	}
	return c.EndYear
}

func (c Config) startYear() int {
	if c.StartYear == 0 {
		return 2000
	}
	return c.StartYear
}

func (c Config) lookupInterval() time.Duration {
	if c.LookupIntervalMs == 0 {
		return 2 * time.Second
	}
	return time.Duration(c.LookupIntervalMs) * time.Millisecond
}

// portalUrl joins a path onto the portal base regardless of whether the
// configured base carries a trailing slash.
func portalUrl(base, path string) string {
	return strings.TrimSuffix(base, "/") + "/" + path
}
