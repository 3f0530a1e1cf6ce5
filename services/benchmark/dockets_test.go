package benchmark

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"caseharvest/lib/testutil"
	"caseharvest/services/benchmark/db"

	"github.com/stretchr/testify/require"
)

func TestDocketRequestLedger(t *testing.T) {
	result, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/benchmark",
		DbSchema: db.Schema,
	})
	defer cleanup()

	var posts []*http.Request
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Error(err)
		}
		posts = append(posts, r)
		bodies = append(bodies, string(body))
	}))
	defer server.Close()

	surface := newFakeSurface()
	surface.url = surface.base + "/CaseDetail.aspx?CaseID=8812345"

	requester := NewDocketRequester(result.DB, server.URL)
	entries := []DocketEntry{
		{Date: "06/01/2021", Text: "MOTION FOR DISCOVERY", RequestableId: "55812"},
		{Date: "06/02/2021", Text: "ORDER ON MOTION"},
	}
	requester.RequestAll(context.Background(), surface, "21000123", entries)

	require.Len(t, posts, 1, "only the requestable entry goes out")
	require.Equal(t, "/CaseDocket.aspx/Request", posts[0].URL.Path)
	require.Contains(t, posts[0].Header.Get("Content-Type"), "application/x-www-form-urlencoded")
	require.Contains(t, bodies[0], "caseDocketID=55812")
	require.Contains(t, bodies[0], "email=")
	require.Equal(t, "ASP.NET_SessionId=fake-session", posts[0].Header.Get("Cookie"))
	require.Equal(t, "FakeBrowser/1.0", posts[0].Header.Get("User-Agent"))
	require.Equal(t, surface.url, posts[0].Header.Get("Referer"))

	rows, err := requester.Requested(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "21000123", rows[0].CaseNumber)
	require.Equal(t, "55812", rows[0].DocketID)
	require.Equal(t, "MOTION FOR DISCOVERY", rows[0].DocketText)

	// a revisited case must not file the same request twice
	requester.RequestAll(context.Background(), surface, "21000123", entries)
	require.Len(t, posts, 1)
}

func TestDocketRequestRefusedLeavesLedgerAlone(t *testing.T) {
	result, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/benchmark",
		DbSchema: db.Schema,
	})
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance window", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	surface := newFakeSurface()
	surface.url = surface.base + "/CaseDetail.aspx?CaseID=8812345"

	requester := NewDocketRequester(result.DB, server.URL)
	requester.RequestAll(context.Background(), surface, "21000123", []DocketEntry{
		{Text: "MOTION FOR DISCOVERY", RequestableId: "55812"},
	})

	rows, err := requester.Requested(context.Background())
	require.NoError(t, err)
	require.Empty(t, rows, "a refused request stays eligible for the next visit")
}
