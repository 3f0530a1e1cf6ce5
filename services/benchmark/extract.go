package benchmark

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"caseharvest/lib/browser"
	"caseharvest/lib/htmlutil"
	"caseharvest/lib/retryutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

const (
	summaryPane    = "#summaryAccordion"
	summaryColumns = "#summaryAccordionCollapse table tr td:nth-child(%d) dl dd"
	chargesRows    = "#gridCharges tbody tr"
	docketPane     = "#gridDocketsView"
	docketRows     = "#gridDocketsView tbody tr"
	partiesRows    = "#gridParties tbody tr"

	// the party detail page puts its fields in a deeply nested layout
	// table, label cell then value cell
	partyRows = "#mainTableContent table table table tr"
)

// Extractor reads a case detail page the session landed on into a
// Record. It drives the same browser surface as the session, so it
// must run before the next lookup navigates away.
type Extractor struct {
	surface browser.Surface
	budget  retryutil.Budget
	state   string
	county  string
}

func NewExtractor(surface browser.Surface, budget retryutil.Budget, state, county string) *Extractor {
	return &Extractor{
		surface: surface,
		budget:  budget,
		state:   state,
		county:  county,
	}
}

// Extract scrapes the open detail page. The returned entries are the
// raw docket rows, which the attachment and docket request layers
// consume separately from the record itself.
func (e *Extractor) Extract(ctx context.Context, caseNumber string) (Record, []DocketEntry, error) {
	ctx, span := tracer.Start(ctx, "Extractor.Extract")
	defer span.End()

	fail := func(err error) (Record, []DocketEntry, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Record{}, nil, err
	}

	// the grids fill in from script after the document loads
	for _, selector := range []string{summaryPane, docketPane} {
		if err := e.waitFor(ctx, caseNumber, selector); err != nil {
			return fail(err)
		}
	}

	html, err := e.surface.HTML(ctx)
	if err != nil {
		return fail(err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fail(err)
	}

	record := NewRecord(e.state, e.county, caseNumber)

	col1 := summaryColumn(doc, 1)
	col2 := summaryColumn(doc, 2)
	col3 := summaryColumn(doc, 3)
	record.Judge = columnField(col1, 0)
	record.FilingDate = columnField(col1, 2)
	record.AgencyReportNumber = columnField(col1, 4)
	record.CaseNumber = columnField(col2, 1)
	record.CaseStatus = columnField(col3, 1)
	record.DivisionName = columnField(col3, 3)

	record.Charges = parseCharges(doc)
	entries := parseDocketRows(doc)

	record.DefenseAttorneys = dedupeNames(parseAttorneys(docketTexts(entries, "DEFENSE")))
	record.PublicDefenders = dedupeNames(parseAttorneys(docketTexts(entries, "COURT APPOINTED ATTORNEY")))
	applyPleas(record.Charges, entries)

	return record, entries, nil
}

// FillDefendant follows the defendant link off the parties grid and
// fills in identity fields from the party detail page. It navigates
// away from the case page, so it runs last in the harvest order. A
// case with no defendant party (some traffic filings) is not an
// error.
func (e *Extractor) FillDefendant(ctx context.Context, record *Record) error {
	ctx, span := tracer.Start(ctx, "Extractor.FillDefendant")
	defer span.End()

	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	html, err := e.surface.HTML(ctx)
	if err != nil {
		return fail(err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fail(err)
	}

	href := defendantLink(doc)
	if href == "" {
		slog.Warn("case lists no defendant party", "case", record.PortalId)
		record.PartyId = unknownField
		record.FirstName = unknownField
		record.Race = unknownField
		record.Sex = unknownField
		return nil
	}

	current, err := e.surface.URL(ctx)
	if err != nil {
		return fail(err)
	}
	target, err := resolveHref(current, href)
	if err != nil {
		return fail(fmt.Errorf("resolving party link %q: %w", href, err))
	}

	err = e.budget.Do(
		ctx,
		fmt.Sprintf("case %s: load party page", record.PortalId),
		func(ctx context.Context) error {
			if err := e.surface.Navigate(ctx, target); err != nil {
				return err
			}
			return awaitTitle(ctx, e.surface, defaultTitleWait, func(title string) bool {
				return strings.Contains(title, "Party Details:")
			})
		},
		nil,
	)
	if err != nil {
		return fail(err)
	}

	html, err = e.surface.HTML(ctx)
	if err != nil {
		return fail(err)
	}
	doc, err = goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fail(err)
	}

	rows := doc.Find(partyRows)
	name := partyField(rows, 0)
	record.Sex = partyField(rows, 5)
	record.Race = partyField(rows, 6)
	record.PartyId = partyField(rows, 7)
	if strings.Contains(name, ",") {
		record.FirstName, record.MiddleName, record.LastName = parseName(name)
	} else {
		// business entities come through as one undivided name
		record.FirstName = name
	}
	return nil
}

func (e *Extractor) waitFor(ctx context.Context, caseNumber, selector string) error {
	return e.budget.Do(
		ctx,
		fmt.Sprintf("case %s: wait for %s", caseNumber, selector),
		func(ctx context.Context) error {
			_, err := e.surface.Element(ctx, selector)
			return err
		},
		func(ctx context.Context) error {
			return e.surface.Reload(ctx)
		},
	)
}

func summaryColumn(doc *goquery.Document, column int) []string {
	var fields []string
	doc.Find(fmt.Sprintf(summaryColumns, column)).Each(func(_ int, dd *goquery.Selection) {
		fields = append(fields, htmlutil.CleanText(dd))
	})
	return fields
}

func columnField(column []string, idx int) string {
	if idx >= len(column) {
		return unknownField
	}
	return column[idx]
}

func parseCharges(doc *goquery.Document) []Charge {
	var charges []Charge
	doc.Find(chargesRows).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 7 {
			return
		}
		count, err := strconv.Atoi(htmlutil.CleanText(cells.Eq(0)))
		if err != nil {
			// grouping and continuation rows carry no count number
			return
		}
		description, statute := splitChargeStatute(htmlutil.CleanText(cells.Eq(1)))
		charges = append(charges, Charge{
			Count:           count,
			Description:     description,
			Statute:         statute,
			Level:           htmlutil.CleanText(cells.Eq(2)),
			Degree:          htmlutil.CleanText(cells.Eq(3)),
			Disposition:     htmlutil.CleanText(cells.Eq(5)),
			DispositionDate: htmlutil.CleanText(cells.Eq(6)),
		})
	})
	return charges
}

func parseDocketRows(doc *goquery.Document) []DocketEntry {
	var entries []DocketEntry
	doc.Find(docketRows).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}
		entry := DocketEntry{
			Date: htmlutil.CleanText(cells.Eq(1)),
			Text: htmlutil.CleanText(cells.Eq(2)),
		}
		if image := row.Find("a.casedocketimage").First(); image.Length() > 0 {
			entry.AttachmentRel, _ = image.Attr("rel")
			entry.AttachmentDigest, _ = image.Attr("digest")
		}
		if modal := row.Find(".popmodal").First(); modal.Length() > 0 {
			entry.RequestableId, _ = modal.Attr("casedocketid")
		}
		entries = append(entries, entry)
	})
	return entries
}

func docketTexts(entries []DocketEntry, marker string) []string {
	var texts []string
	for _, entry := range entries {
		if strings.Contains(entry.Text, marker) {
			texts = append(texts, entry.Text)
		}
	}
	return texts
}

// applyPleas walks the docket's "PLEA OF ..." entries onto the
// charges. Entries that name no counts cover every charge; later
// entries overwrite earlier ones, so the plea that sticks is the most
// recent one the docket shows.
func applyPleas(charges []Charge, entries []DocketEntry) {
	if len(charges) == 0 {
		return
	}
	valid := make([]int, len(charges))
	for i, charge := range charges {
		valid[i] = charge.Count
	}

	for _, entry := range entries {
		if !strings.Contains(entry.Text, "PLEA OF") {
			continue
		}
		kind := parsePleaKind(entry.Text)
		if kind == "" {
			continue
		}
		counts := parsePleaCounts(entry.Text, valid)
		if len(counts) == 0 {
			for i := range charges {
				charges[i].Plea = kind
				charges[i].PleaDate = entry.Date
			}
			continue
		}
		for _, count := range counts {
			for i := range charges {
				if charges[i].Count == count {
					charges[i].Plea = kind
					charges[i].PleaDate = entry.Date
				}
			}
		}
	}
}

func defendantLink(doc *goquery.Document) string {
	href := ""
	doc.Find(partiesRows).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		isDefendant := false
		row.Children().Each(func(_ int, cell *goquery.Selection) {
			if strings.Contains(cell.Text(), "DEFENDANT") {
				isDefendant = true
			}
		})
		if !isDefendant {
			return true
		}
		href, _ = row.Find("td").Eq(1).Find("div a").Attr("href")
		return href == ""
	})
	return href
}

func partyField(rows *goquery.Selection, idx int) string {
	cell := rows.Eq(idx).Find("td").Eq(1)
	if cell.Length() == 0 {
		return unknownField
	}
	text := htmlutil.CleanText(cell)
	if text == "" {
		return unknownField
	}
	return text
}

func resolveHref(current, href string) (string, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}
