package benchmark

import (
	"context"
	"os"
	"testing"
	"time"

	"caseharvest/lib/retryutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	raw, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatal(err)
	}
	return string(raw)
}

func newTestExtractor(surface *fakeSurface) *Extractor {
	budget := retryutil.Budget{Attempts: 2, Interval: time.Millisecond}
	return NewExtractor(surface, budget, "FL", "Bay")
}

func TestExtractCaseDetail(t *testing.T) {
	surface := newFakeSurface()
	surface.url = surface.base + "/CaseDetail.aspx?CaseID=8812345"
	surface.title = "21000123CFMA | Case Summary"
	surface.html = loadFixture(t, "case_detail.html")
	surface.pages[surface.base+"/PartyDetail.aspx?PartyID=1437821"] = fakePage{
		title: "Party Details: SMITH, JOHN MICHAEL",
		html:  loadFixture(t, "party.html"),
	}
	extractor := newTestExtractor(surface)

	record, entries, err := extractor.Extract(context.Background(), "21000123")
	require.NoError(t, err)
	require.NoError(t, extractor.FillDefendant(context.Background(), &record))

	require.NotEmpty(t, record.Id)
	record.Id = ""

	want := Record{
		State:              "FL",
		County:             "Bay",
		PortalId:           "21000123",
		CaseNumber:         "21000123CFMA",
		AgencyReportNumber: "BPD-21-001874",
		PartyId:            "1437821",
		FirstName:          "JOHN",
		MiddleName:         "MICHAEL",
		LastName:           "SMITH",
		Race:               "WHITE",
		Sex:                "MALE",
		FilingDate:         "03/15/2021",
		DivisionName:       "FELONY DIVISION A",
		CaseStatus:         "CLOSED",
		DefenseAttorneys:   []string{"LEWIS, RICHARD A"},
		PublicDefenders:    []string{"VANCE, AMANDA"},
		Judge:              "BROWN, DUSTIN S",
		Charges: []Charge{
			{
				Count:           1,
				Description:     "BATTERY (AGGRAVATED)",
				Statute:         "784.045(1)(a)1",
				Level:           "F",
				Degree:          "S",
				Disposition:     "ADJUDICATED GUILTY",
				DispositionDate: "09/22/2021",
				Plea:            "Guilty",
				PleaDate:        "09/20/2021",
			},
			{
				Count:           2,
				Description:     "POSSESSION OF A WEAPON",
				Statute:         "790.01(2)",
				Level:           "M",
				Degree:          "F",
				Disposition:     "NOLLE PROSEQUI",
				DispositionDate: "09/22/2021",
				Plea:            "Not Guilty",
				PleaDate:        "05/10/2021",
			},
		},
	}
	if diff := cmp.Diff(want, record); diff != "" {
		t.Fatal(diff)
	}

	require.Len(t, entries, 9)
	require.Equal(t, DocketEntry{
		Date:             "03/15/2021",
		Text:             "CASE FILED",
		AttachmentRel:    "8412967",
		AttachmentDigest: "a41f0c2de9",
	}, entries[0])
	require.Equal(t, "MOTION FOR DISCOVERY", entries[6].Text)
	require.Equal(t, "55812", entries[6].RequestableId)
	require.Equal(t, "8523001", entries[8].AttachmentRel)
}

func TestExtractNoDefendantParty(t *testing.T) {
	surface := newFakeSurface()
	surface.url = surface.base + "/CaseDetail.aspx?CaseID=9900011"
	surface.html = detailHtml()
	extractor := newTestExtractor(surface)

	record, entries, err := extractor.Extract(context.Background(), "21000777")
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Equal(t, unknownField, record.Judge)
	require.Equal(t, unknownField, record.CaseNumber)

	require.NoError(t, extractor.FillDefendant(context.Background(), &record))
	require.Equal(t, unknownField, record.FirstName)
	require.Equal(t, unknownField, record.Race)
	require.Equal(t, unknownField, record.Sex)
	require.Equal(t, unknownField, record.PartyId)
	require.Equal(t, 0, surface.navigations, "no party link, nothing to follow")
}

func TestExtractMissingGridExhaustsBudget(t *testing.T) {
	surface := newFakeSurface()
	surface.url = surface.base + "/CaseDetail.aspx?CaseID=9900012"
	surface.html = `<div id="summaryAccordion"></div>`
	extractor := newTestExtractor(surface)

	_, _, err := extractor.Extract(context.Background(), "21000778")
	require.ErrorContains(t, err, "wait for #gridDocketsView")
	require.ErrorContains(t, err, "gave up after 2 attempts")
}
