package benchmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"caseharvest/lib/browser"
	"caseharvest/lib/captcha"
	"caseharvest/lib/htmlutil"
	"caseharvest/lib/retryutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

const (
	searchPath        = "Home.aspx/Search"
	searchTitle       = "Search"
	searchReadyMarker = "Case Search"

	// title prefix of the page listing every case a search matched
	resultsTitlePrefix = "Search Results: CaseNumber:"

	titleBanner      = "#title"
	caseNumberInput  = "#caseNumber"
	caseSearchToggle = `input[searchtype="CaseNumber"]`
	nameSearchToggle = `input[searchtype="Name"]`
	searchButton     = "#searchButton"

	challengeWidget   = "div.g-recaptcha"
	challengeErrorBox = "div.alert.alert-error"
)

const (
	defaultTitleWait = 5 * time.Second
	// the challenge widget renders a beat after the rest of the form
	defaultWidgetSettle = 800 * time.Millisecond
)

// errChallengeRejected means the portal bounced the search back to the
// form because it did not like the challenge token. The session
// recovers from it by dropping cookies and starting the lookup over.
var errChallengeRejected = errors.New("challenge token rejected")

const challengeInjectJs = `(token) => {
	document.getElementById("g-recaptcha-response").innerHTML = token
}`

type OutcomeKind int

const (
	// no case exists under the searched number
	OutcomeNotFound OutcomeKind = iota
	// the search landed directly on a case detail page, which is left
	// open for extraction
	OutcomeSingle
	// the number matched several related cases, listed in
	// Outcome.Associated
	OutcomeAssociated
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNotFound:
		return "not found"
	case OutcomeSingle:
		return "single"
	case OutcomeAssociated:
		return "associated"
	}
	return "unknown"
}

type Outcome struct {
	Kind OutcomeKind
	// Associated holds the case numbers exactly as the results page
	// prints them, suffixes included, so they can be searched verbatim.
	Associated []string
}

// Session drives the portal's search form. One Session owns one
// browser surface; lookups run strictly one at a time.
type Session struct {
	surface  browser.Surface
	resolver captcha.Resolver
	base     string
	budget   retryutil.Budget
	// how long to wait for a page title to change before concluding
	// the portal is not going to navigate
	titleWait time.Duration
	settle    time.Duration
}

type SessionOptions struct {
	PortalBase string
	Budget     retryutil.Budget
	TitleWait  time.Duration
	// pause between the search page loading and the form being
	// touched, so the challenge widget finishes rendering
	WidgetSettle time.Duration
}

func NewSession(surface browser.Surface, resolver captcha.Resolver, options SessionOptions) *Session {
	titleWait := options.TitleWait
	if titleWait == 0 {
		titleWait = defaultTitleWait
	}
	settle := options.WidgetSettle
	if settle == 0 {
		settle = defaultWidgetSettle
	}
	return &Session{
		surface:   surface,
		resolver:  resolver,
		base:      options.PortalBase,
		budget:    options.Budget,
		titleWait: titleWait,
		settle:    settle,
	}
}

// Lookup searches the portal for one case number and classifies what
// came back. A rejected challenge restarts the lookup on fresh
// cookies; anything else that keeps failing after the connect budget
// is spent comes back as an error and should end the run.
func (s *Session) Lookup(ctx context.Context, caseNumber string) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "Session.Lookup")
	defer span.End()

	restarts := 0
	for {
		outcome, err := s.lookupOnce(ctx, caseNumber)
		if err == nil {
			return outcome, nil
		}
		if !errors.Is(err, errChallengeRejected) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return Outcome{}, err
		}

		restarts++
		if restarts >= s.restartCeiling() {
			err := fmt.Errorf("case %s: challenge rejected %d times", caseNumber, restarts)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return Outcome{}, err
		}
		slog.Info(
			"restarting session after rejected challenge",
			"case", caseNumber,
			"restarts", restarts,
		)
		if err := s.surface.ClearCookies(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return Outcome{}, fmt.Errorf("clearing cookies: %w", err)
		}
	}
}

func (s *Session) restartCeiling() int {
	if s.budget.Attempts == 0 {
		return 1
	}
	return int(s.budget.Attempts)
}

func (s *Session) lookupOnce(ctx context.Context, caseNumber string) (Outcome, error) {
	if err := s.loadSearchPage(ctx, caseNumber); err != nil {
		return Outcome{}, err
	}
	select {
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	case <-time.After(s.settle):
	}

	field, err := s.focusCaseInput(ctx, caseNumber)
	if err != nil {
		return Outcome{}, err
	}
	if err := field.Input(ctx, caseNumber); err != nil {
		return Outcome{}, fmt.Errorf("typing case number: %w", err)
	}

	submitted, err := s.solveChallenge(ctx, caseNumber)
	if err != nil {
		return Outcome{}, err
	}
	if !submitted {
		button, err := s.surface.Element(ctx, searchButton)
		if err != nil {
			return Outcome{}, err
		}
		if err := button.Click(ctx); err != nil {
			return Outcome{}, fmt.Errorf("submitting search: %w", err)
		}
	}

	return s.classify(ctx, caseNumber)
}

func (s *Session) loadSearchPage(ctx context.Context, caseNumber string) error {
	url := portalUrl(s.base, searchPath)
	return s.budget.Do(
		ctx,
		fmt.Sprintf("case %s: load search page", caseNumber),
		func(ctx context.Context) error {
			if err := s.surface.Navigate(ctx, url); err != nil {
				return err
			}
			return awaitTitle(ctx, s.surface, s.titleWait, func(title string) bool {
				return strings.Contains(title, searchTitle)
			})
		},
		nil,
	)
}

func (s *Session) focusCaseInput(ctx context.Context, caseNumber string) (browser.Element, error) {
	err := s.budget.Do(
		ctx,
		fmt.Sprintf("case %s: wait for search form", caseNumber),
		func(ctx context.Context) error {
			banner, err := s.surface.Element(ctx, titleBanner)
			if err != nil {
				return err
			}
			text, err := banner.Text(ctx)
			if err != nil {
				return err
			}
			if !strings.Contains(text, searchReadyMarker) {
				return fmt.Errorf("search form banner reads %q", text)
			}
			return nil
		},
		func(ctx context.Context) error {
			return s.surface.Navigate(ctx, portalUrl(s.base, searchPath))
		},
	)
	if err != nil {
		return nil, err
	}

	if err := s.clickToggle(ctx, caseSearchToggle); err != nil {
		return nil, err
	}
	field, err := s.surface.Element(ctx, caseNumberInput)
	if err != nil {
		return nil, err
	}
	if err := field.Click(ctx); err == nil {
		return field, nil
	}

	// The portal sometimes renders the case number input inert until
	// the search type is toggled away and back.
	if err := s.clickToggle(ctx, nameSearchToggle); err != nil {
		return nil, err
	}
	if err := s.clickToggle(ctx, caseSearchToggle); err != nil {
		return nil, err
	}
	field, err = s.surface.Element(ctx, caseNumberInput)
	if err != nil {
		return nil, err
	}
	if err := field.Click(ctx); err != nil {
		return nil, fmt.Errorf("case number input never became clickable: %w", err)
	}
	return field, nil
}

func (s *Session) clickToggle(ctx context.Context, selector string) error {
	toggle, err := s.surface.Element(ctx, selector)
	if err != nil {
		return err
	}
	return toggle.Click(ctx)
}

// solveChallenge handles the reCAPTCHA widget when one is on the page.
// It reports whether the search was already submitted along the way,
// which happens when a human operator completes the whole flow by
// hand.
func (s *Session) solveChallenge(ctx context.Context, caseNumber string) (bool, error) {
	present, err := s.surface.Has(ctx, challengeWidget)
	if err != nil {
		return false, err
	}
	if !present {
		return false, nil
	}

	widget, err := s.surface.Element(ctx, challengeWidget)
	if err != nil {
		return false, err
	}
	siteKey, err := widget.Attribute(ctx, "data-sitekey")
	if err != nil {
		return false, err
	}

	metricChallenges.Add(ctx, 1)
	slog.Info("challenge presented", "case", caseNumber)

	result, err := s.resolver.Solve(ctx, captcha.Challenge{
		SiteKey: siteKey,
		PageURL: portalUrl(s.base, searchPath),
		Expect:  caseNumber,
	})
	if err != nil {
		return false, fmt.Errorf("solving challenge: %w", err)
	}
	if result.Token == "" {
		// solved and submitted outside the engine
		return true, nil
	}
	if _, err := s.surface.Eval(ctx, challengeInjectJs, result.Token); err != nil {
		return false, fmt.Errorf("injecting challenge token: %w", err)
	}
	return false, nil
}

// classify waits out the navigation triggered by the search submit and
// reads what kind of page the portal landed on. A title that never
// leaves the search form means the challenge token was rejected.
func (s *Session) classify(ctx context.Context, caseNumber string) (Outcome, error) {
	var outcome Outcome
	err := s.budget.Do(
		ctx,
		fmt.Sprintf("case %s: classify search result", caseNumber),
		func(ctx context.Context) error {
			err := awaitTitle(ctx, s.surface, s.titleWait, func(title string) bool {
				return strings.Contains(title, resultsTitlePrefix) ||
					strings.Contains(title, caseNumber)
			})
			if err != nil {
				title, terr := s.surface.Title(ctx)
				if terr == nil && title == searchTitle {
					if flagged, ferr := s.surface.Has(ctx, challengeErrorBox); ferr == nil && flagged {
						slog.Warn("portal flagged the challenge answer as invalid", "case", caseNumber)
					}
					return retryutil.Permanent(errChallengeRejected)
				}
				return err
			}

			title, err := s.surface.Title(ctx)
			if err != nil {
				return err
			}
			switch {
			case strings.Contains(title, resultsTitlePrefix):
				count, err := s.resultCount(ctx)
				if err != nil {
					return err
				}
				if count > 1 {
					members, err := s.associatedCases(ctx)
					if err != nil {
						return err
					}
					outcome = Outcome{Kind: OutcomeAssociated, Associated: members}
					return nil
				}
				outcome = Outcome{Kind: OutcomeNotFound}
				return nil
			case strings.Contains(title, caseNumber):
				outcome = Outcome{Kind: OutcomeSingle}
				return nil
			default:
				return fmt.Errorf("unexpected page title %q", title)
			}
		},
		nil,
	)
	return outcome, err
}

// resultCount reads the match count off the results page. The count
// sits in the cell right after the CASES FOUND header of the first
// table.
func (s *Session) resultCount(ctx context.Context) (int, error) {
	html, err := s.surface.HTML(ctx)
	if err != nil {
		return 0, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, err
	}

	count := -1
	seen := false
	doc.Find("table").First().Find("th, td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		text := htmlutil.CleanText(cell)
		if !seen {
			seen = text == "CASES FOUND"
			return true
		}
		n, err := strconv.Atoi(text)
		if err != nil {
			return true
		}
		count = n
		return false
	})
	if count < 0 {
		return 0, errors.New("results page shows no CASES FOUND count")
	}
	return count, nil
}

func (s *Session) associatedCases(ctx context.Context) ([]string, error) {
	html, err := s.surface.HTML(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var members []string
	seen := map[string]bool{}
	doc.Find(".sorting_1").Each(func(_ int, cell *goquery.Selection) {
		text := htmlutil.CleanText(cell)
		if text == "" || seen[text] {
			return
		}
		seen[text] = true
		members = append(members, text)
	})
	if len(members) == 0 {
		return nil, errors.New("results page lists no case numbers")
	}
	return members, nil
}

// awaitTitle polls the page title until pred accepts it or the window
// runs out.
func awaitTitle(
	ctx context.Context,
	surface browser.Surface,
	within time.Duration,
	pred func(title string) bool,
) error {
	deadline := time.Now().Add(within)
	for {
		title, err := surface.Title(ctx)
		if err != nil {
			return err
		}
		if pred(title) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("unexpected page title %q", title)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
