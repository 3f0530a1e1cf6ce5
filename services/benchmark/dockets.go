package benchmark

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"caseharvest/lib/browser"
	"caseharvest/lib/restyutil"
	"caseharvest/lib/telemetry"
	"caseharvest/services/benchmark/db"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

// portalClient is the plain http side of the portal. The browser does
// the searching; downloads and form posts that would disturb the page
// the session is parked on go out of band through this client instead.
func portalClient(base string) *resty.Client {
	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(base, "/"))
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetTimeout(30 * time.Second)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	telemetry.InstrumentResty(client, "services/benchmark/http")
	restyutil.InstrumentClient(client, nil, restyInstrumentOutput)
	return client
}

// portalHeaders copies the browser's identity onto an out of band
// request so the portal treats it as the same visitor. The portal
// reads the raw Cookie header rather than individual cookies, so the
// pairs are joined by hand instead of going through a cookie jar.
func portalHeaders(ctx context.Context, surface browser.Surface) (map[string]string, error) {
	agent, err := surface.Eval(ctx, `() => navigator.userAgent`)
	if err != nil {
		return nil, fmt.Errorf("reading user agent: %w", err)
	}
	cookies, err := surface.Cookies(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading cookies: %w", err)
	}
	pairs := make([]string, 0, len(cookies))
	for _, cookie := range cookies {
		pairs = append(pairs, cookie.Name+"="+cookie.Value)
	}
	return map[string]string{
		"User-Agent":      agent,
		"Connection":      "keep-alive",
		"Accept-Language": "en-US,en;q=0.5",
		"Cookie":          strings.Join(pairs, "; "),
	}, nil
}

// DocketRequester asks the clerk to digitize docket papers that are
// listed on a case but not scanned yet. Requests already made are
// remembered in a sqlite ledger so revisited cases do not spam the
// clerk's queue.
type DocketRequester struct {
	client *resty.Client
	qry    *db.Queries
}

func NewDocketRequester(database *sql.DB, portalBase string) *DocketRequester {
	return &DocketRequester{
		client: portalClient(portalBase),
		qry:    db.New(database),
	}
}

// RequestAll files a digitization request for every requestable entry.
// Failures are logged per entry; one refused request is no reason to
// lose the rest of the case.
func (r *DocketRequester) RequestAll(ctx context.Context, surface browser.Surface, caseNumber string, entries []DocketEntry) {
	ctx, span := tracer.Start(ctx, "DocketRequester.RequestAll")
	defer span.End()

	for _, entry := range entries {
		if entry.RequestableId == "" {
			continue
		}
		if n, err := r.qry.HasRequestedDocket(ctx, entry.RequestableId); err == nil && n > 0 {
			slog.Debug("docket already requested", "case", caseNumber, "docket", entry.RequestableId)
			continue
		}
		if err := r.request(ctx, surface, caseNumber, entry); err != nil {
			span.RecordError(err)
			slog.Warn(
				"docket request failed",
				"case", caseNumber,
				"docket", entry.RequestableId,
				"err", err,
			)
			continue
		}
		slog.Info("docket requested", "case", caseNumber, "docket", entry.RequestableId)
	}
}

func (r *DocketRequester) request(ctx context.Context, surface browser.Surface, caseNumber string, entry DocketEntry) error {
	headers, err := portalHeaders(ctx, surface)
	if err != nil {
		return err
	}
	referer, err := surface.URL(ctx)
	if err != nil {
		return err
	}

	res, err := r.client.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetHeader("Referer", referer).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Upgrade-Insecure-Requests", "1").
		SetFormData(map[string]string{
			"caseDocketID": entry.RequestableId,
			"email":        "",
		}).
		Post("/CaseDocket.aspx/Request")
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("portal answered http %d", res.StatusCode())
	}

	return r.qry.CreateRequestedDocket(ctx, db.CreateRequestedDocketParams{
		RequestedAt: time.Now().Unix(),
		CaseNumber:  caseNumber,
		DocketID:    entry.RequestableId,
		DocketText:  entry.Text,
	})
}

// Requested lists everything the ledger has, newest first.
func (r *DocketRequester) Requested(ctx context.Context) ([]db.RequestedDocket, error) {
	return r.qry.ListRequestedDockets(ctx)
}
