package benchmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"caseharvest/lib/browser"

	"github.com/go-resty/resty/v2"
)

// AttachmentDownloader pulls the scanned papers linked off a case's
// docket. The portal has no direct download link; documents come out
// of a three step viewer handshake that must carry the browser's
// session cookies.
type AttachmentDownloader struct {
	client *resty.Client
	origin string
	dir    string
	mode   string
}

func NewAttachmentDownloader(portalBase, directory, mode string) *AttachmentDownloader {
	base := strings.TrimSuffix(portalBase, "/")
	origin := base
	if u, err := url.Parse(base); err == nil && u.Host != "" {
		origin = u.Scheme + "://" + u.Host
	}
	return &AttachmentDownloader{
		client: portalClient(portalBase),
		origin: origin,
		dir:    directory,
		mode:   mode,
	}
}

// filing papers are the charging documents that open a case
func (d *AttachmentDownloader) wants(text string) bool {
	switch d.mode {
	case AttachmentsAll:
		return true
	case AttachmentsFiling:
		return strings.Contains(text, "CITATION FILED") || strings.Contains(text, "CASE FILED")
	}
	return false
}

// Download saves every attachment the mode selects. Files already on
// disk are skipped, so revisited cases cost nothing. Failures are
// logged per entry and never fail the case itself.
func (d *AttachmentDownloader) Download(ctx context.Context, surface browser.Surface, caseNumber string, entries []DocketEntry) {
	ctx, span := tracer.Start(ctx, "AttachmentDownloader.Download")
	defer span.End()

	for _, entry := range entries {
		if entry.AttachmentRel == "" || !d.wants(entry.Text) {
			continue
		}
		path := attachmentPath(d.dir, fmt.Sprintf("%s-%s", caseNumber, entry.Text))
		if _, err := os.Stat(path); err == nil {
			slog.Debug("attachment already on disk", "path", path)
			continue
		}
		if err := d.download(ctx, surface, entry, path); err != nil {
			span.RecordError(err)
			slog.Warn(
				"attachment download failed",
				"case", caseNumber,
				"entry", entry.Text,
				"err", err,
			)
			continue
		}
		slog.Info("attachment saved", "case", caseNumber, "path", path)
	}
}

func (d *AttachmentDownloader) download(ctx context.Context, surface browser.Surface, entry DocketEntry, path string) error {
	headers, err := portalHeaders(ctx, surface)
	if err != nil {
		return err
	}
	referer, err := surface.URL(ctx)
	if err != nil {
		return err
	}

	// prime the viewer so the portal ties the document to this session
	viewerUrl := fmt.Sprintf(
		"/Image.aspx/PDFViewer2?cid=%s&digest=%s",
		entry.AttachmentRel, entry.AttachmentDigest,
	)
	res, err := d.client.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetHeader("Referer", referer).
		SetHeader("Upgrade-Insecure-Requests", "1").
		Get(viewerUrl)
	if err != nil {
		return fmt.Errorf("priming viewer: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("priming viewer: portal answered http %d", res.StatusCode())
	}

	// ask for a one shot download guid; the timestamp rides along in
	// the exact shape the viewer's own script sends it
	jsTime, err := surface.Eval(ctx, `() => String(new Date())`)
	if err != nil {
		return fmt.Errorf("reading browser clock: %w", err)
	}
	guidUrl := fmt.Sprintf(
		"/ImageAsync.aspx/GetPDFRequestGuid?cid=%s&digest=%s&time=%s&redacted=false",
		entry.AttachmentRel, entry.AttachmentDigest, strings.ReplaceAll(jsTime, " ", "+"),
	)
	res, err = d.client.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetHeader("Accept", "*/*").
		SetHeader("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8").
		SetHeader("X-Requested-With", "XMLHttpRequest").
		SetHeader("Origin", d.origin).
		SetHeader("Referer", d.client.BaseURL+viewerUrl).
		Post(guidUrl)
	if err != nil {
		return fmt.Errorf("requesting download guid: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("requesting download guid: portal answered http %d", res.StatusCode())
	}
	guid := strings.TrimSpace(string(res.Body()))
	if guid == "" {
		return errors.New("portal returned no download guid")
	}

	res, err = d.client.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetHeader("Referer", d.client.BaseURL+viewerUrl).
		Get("/ImageAsync.aspx/GetPDF?guid=" + guid)
	if err != nil {
		return fmt.Errorf("fetching document: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("fetching document: portal answered http %d", res.StatusCode())
	}

	return os.WriteFile(path, res.Body(), 0644)
}

// docket text routinely carries characters filesystems refuse
var filenameSanitizer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "",
	"?", "",
	`"`, "",
	"<", "",
	">", "",
	"|", "",
	"\x00", "",
)

const (
	maxFilenameLen = 255
	maxPathLen     = 256
)

// attachmentPath builds a filesystem safe path for a docket paper,
// clamped to common filename and path limits.
func attachmentPath(dir, name string) string {
	name = strings.TrimSpace(filenameSanitizer.Replace(name))
	if len(name) > maxFilenameLen-len(".pdf") {
		name = name[:maxFilenameLen-len(".pdf")]
	}
	path := filepath.Join(dir, name+".pdf")
	if len(path) > maxPathLen {
		path = path[:maxPathLen]
	}
	return path
}
