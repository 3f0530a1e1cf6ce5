package benchmark

import (
	"context"
	"errors"
	"testing"
	"time"

	"caseharvest/lib/captcha"
	"caseharvest/lib/retryutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func newTestSession(surface *fakeSurface, resolver captcha.Resolver) *Session {
	return NewSession(surface, resolver, SessionOptions{
		PortalBase:   surface.base,
		Budget:       retryutil.Budget{Attempts: 3, Interval: time.Millisecond},
		TitleWait:    5 * time.Millisecond,
		WidgetSettle: time.Millisecond,
	})
}

func TestLookupSingleCase(t *testing.T) {
	surface := newFakeSurface()
	surface.details["21000123"] = fakePage{
		title: "21000123 | Case Summary",
		html:  detailHtml(),
	}
	resolver := &fakeResolver{}
	session := newTestSession(surface, resolver)

	outcome, err := session.Lookup(context.Background(), "21000123")
	require.NoError(t, err)
	require.Equal(t, OutcomeSingle, outcome.Kind)
	require.Equal(t, []string{"21000123"}, surface.lookups)
	require.Equal(t, 1, surface.searchClicks)
	require.Equal(t, 0, resolver.calls, "no widget on the form, nothing to solve")
}

func TestLookupNotFound(t *testing.T) {
	surface := newFakeSurface()
	session := newTestSession(surface, &fakeResolver{})

	outcome, err := session.Lookup(context.Background(), "21000999")
	require.NoError(t, err)
	require.Equal(t, OutcomeNotFound, outcome.Kind)
	require.Empty(t, outcome.Associated)
}

func TestLookupAssociated(t *testing.T) {
	surface := newFakeSurface()
	surface.listings["21000123"] = fakeListing{
		count: 3,
		cells: []string{"21000123CFMA", "21000123MMMA", "21000123TRAF"},
	}
	session := newTestSession(surface, &fakeResolver{})

	outcome, err := session.Lookup(context.Background(), "21000123")
	require.NoError(t, err)
	require.Equal(t, OutcomeAssociated, outcome.Kind)
	diff := cmp.Diff(
		[]string{"21000123CFMA", "21000123MMMA", "21000123TRAF"},
		outcome.Associated,
	)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestLookupChallengeReject(t *testing.T) {
	surface := newFakeSurface()
	surface.challengeSiteKey = "6LfXm-site-key"
	surface.acceptToken = "good-token"
	surface.details["21000123"] = fakePage{
		title: "21000123 | Case Summary",
		html:  detailHtml(),
	}
	resolver := &fakeResolver{tokens: []string{"stale-token", "good-token"}}
	session := newTestSession(surface, resolver)

	outcome, err := session.Lookup(context.Background(), "21000123")
	require.NoError(t, err)
	require.Equal(t, OutcomeSingle, outcome.Kind)
	require.Equal(t, 2, resolver.calls)
	require.Equal(t, 1, surface.cookieClears, "reject drops the cookies once")
	require.Equal(t, []string{"21000123", "21000123"}, surface.lookups)
}

func TestLookupChallengeRejectExhausts(t *testing.T) {
	surface := newFakeSurface()
	surface.challengeSiteKey = "6LfXm-site-key"
	surface.acceptToken = "good-token"
	resolver := &fakeResolver{tokens: []string{"stale-token"}}
	session := newTestSession(surface, resolver)

	_, err := session.Lookup(context.Background(), "21000123")
	require.ErrorContains(t, err, "case 21000123")
	require.ErrorContains(t, err, "rejected 3 times")
	require.Equal(t, 3, resolver.calls)
	require.Equal(t, 2, surface.cookieClears)
}

func TestLookupInputQuirk(t *testing.T) {
	surface := newFakeSurface()
	surface.inputQuirk = true
	surface.details["21000123"] = fakePage{
		title: "21000123 | Case Summary",
		html:  detailHtml(),
	}
	session := newTestSession(surface, &fakeResolver{})

	outcome, err := session.Lookup(context.Background(), "21000123")
	require.NoError(t, err)
	require.Equal(t, OutcomeSingle, outcome.Kind)
	require.Equal(t, 1, surface.quirkTrips, "input refused the first click, then the toggle dance fixed it")
}

func TestLookupManualSubmit(t *testing.T) {
	surface := newFakeSurface()
	surface.challengeSiteKey = "6LfXm-site-key"
	surface.acceptToken = "good-token"
	surface.details["21000123"] = fakePage{
		title: "21000123 | Case Summary",
		html:  detailHtml(),
	}
	operator := &fakeOperator{surface: surface}
	session := newTestSession(surface, operator)

	outcome, err := session.Lookup(context.Background(), "21000123")
	require.NoError(t, err)
	require.Equal(t, OutcomeSingle, outcome.Kind)
	require.Equal(t, 1, operator.calls)
	require.Equal(t, 0, surface.searchClicks, "the operator already submitted, the engine must not submit again")
}

func TestLookupLoadFailureExhausts(t *testing.T) {
	surface := newFakeSurface()
	surface.navigateErr = errors.New("connection refused")
	session := newTestSession(surface, &fakeResolver{})

	_, err := session.Lookup(context.Background(), "21000123")
	require.ErrorContains(t, err, "load search page")
	require.ErrorContains(t, err, "gave up after 3 attempts")
	require.Equal(t, 3, surface.navigations)
}
