package benchmark

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"caseharvest/lib/browser"
	"caseharvest/lib/captcha"
)

// fakeSurface scripts just enough of the portal to exercise the
// session and scanner without a browser: a search form, a challenge
// widget, detail pages keyed by case number, and results listings.
type fakeSurface struct {
	base string

	url    string
	title  string
	html   string
	banner string
	typed  string

	challengeSiteKey string // "" leaves the widget off the form
	acceptToken      string
	injected         string
	rejected         bool

	details  map[string]fakePage
	listings map[string]fakeListing
	pages    map[string]fakePage

	navigateErr error
	inputQuirk  bool
	quirkArmed  bool
	nameToggled bool

	cookies      []browser.Cookie
	navigations  int
	cookieClears int
	searchClicks int
	quirkTrips   int
	lookups      []string
}

type fakePage struct {
	title string
	html  string
}

type fakeListing struct {
	count int
	cells []string
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		base:     "https://court.example.org",
		details:  map[string]fakePage{},
		listings: map[string]fakeListing{},
		pages:    map[string]fakePage{},
		cookies:  []browser.Cookie{{Name: "ASP.NET_SessionId", Value: "fake-session"}},
	}
}

func (s *fakeSurface) searchUrl() string {
	return s.base + "/" + searchPath
}

func (s *fakeSurface) onSearchForm() bool {
	return s.url == s.searchUrl()
}

func (s *fakeSurface) Navigate(ctx context.Context, url string) error {
	s.navigations++
	if s.navigateErr != nil {
		return s.navigateErr
	}
	s.url = url
	if url == s.searchUrl() {
		s.title = searchTitle
		s.banner = searchReadyMarker
		s.html = ""
		s.typed = ""
		s.injected = ""
		s.rejected = false
		s.quirkArmed = s.inputQuirk
		s.nameToggled = false
		return nil
	}
	if page, ok := s.pages[url]; ok {
		s.title = page.title
		s.html = page.html
	} else {
		s.title = "Not Found"
		s.html = ""
	}
	return nil
}

func (s *fakeSurface) Reload(ctx context.Context) error {
	return nil
}

func (s *fakeSurface) Title(ctx context.Context) (string, error) {
	return s.title, nil
}

func (s *fakeSurface) URL(ctx context.Context) (string, error) {
	return s.url, nil
}

func (s *fakeSurface) HTML(ctx context.Context) (string, error) {
	return s.html, nil
}

func (s *fakeSurface) Element(ctx context.Context, selector string) (browser.Element, error) {
	if s.onSearchForm() {
		switch selector {
		case titleBanner, caseSearchToggle, nameSearchToggle, caseNumberInput, searchButton:
			return &fakeElement{surface: s, selector: selector}, nil
		case challengeWidget:
			if s.challengeSiteKey != "" {
				return &fakeElement{surface: s, selector: selector}, nil
			}
		}
		return nil, browser.ErrElementNotFound
	}
	if id, ok := strings.CutPrefix(selector, "#"); ok {
		if strings.Contains(s.html, `id="`+id+`"`) {
			return &fakeElement{surface: s, selector: selector}, nil
		}
	}
	return nil, browser.ErrElementNotFound
}

func (s *fakeSurface) Has(ctx context.Context, selector string) (bool, error) {
	switch selector {
	case challengeWidget:
		return s.onSearchForm() && s.challengeSiteKey != "", nil
	case challengeErrorBox:
		return s.rejected, nil
	}
	return strings.Contains(s.html, strings.TrimPrefix(selector, "#")), nil
}

func (s *fakeSurface) Eval(ctx context.Context, js string, args ...interface{}) (string, error) {
	switch {
	case js == challengeInjectJs:
		s.injected = args[0].(string)
		return "", nil
	case strings.Contains(js, "navigator.userAgent"):
		return "FakeBrowser/1.0", nil
	case strings.Contains(js, "new Date"):
		return "Mon Aug 24 2026 10:00:00 GMT-0500 (Central Daylight Time)", nil
	}
	return "", errors.New("unexpected eval: " + js)
}

func (s *fakeSurface) Cookies(ctx context.Context) ([]browser.Cookie, error) {
	return s.cookies, nil
}

func (s *fakeSurface) ClearCookies(ctx context.Context) error {
	s.cookieClears++
	return nil
}

// submit runs the search the portal side: a bad challenge token
// bounces back to the form with the error box up, anything else lands
// on a detail page or a results listing.
func (s *fakeSurface) submit() {
	s.lookups = append(s.lookups, s.typed)
	if s.challengeSiteKey != "" && s.injected != s.acceptToken {
		s.rejected = true
		return
	}
	if page, ok := s.details[s.typed]; ok {
		s.url = s.base + "/CaseDetail.aspx?CaseID=" + s.typed
		s.title = page.title
		s.html = page.html
		return
	}
	listing := s.listings[s.typed]
	s.url = s.base + "/Home.aspx/SearchResults"
	s.title = resultsTitlePrefix + " " + s.typed
	s.html = listingHtml(listing)
}

type fakeElement struct {
	surface  *fakeSurface
	selector string
}

func (e *fakeElement) Click(ctx context.Context) error {
	s := e.surface
	switch e.selector {
	case caseSearchToggle:
		if s.nameToggled {
			s.quirkArmed = false
		}
	case nameSearchToggle:
		s.nameToggled = true
	case caseNumberInput:
		if s.quirkArmed {
			s.quirkTrips++
			return errors.New("element not interactable")
		}
	case searchButton:
		s.searchClicks++
		s.submit()
	}
	return nil
}

func (e *fakeElement) Input(ctx context.Context, text string) error {
	if e.selector == caseNumberInput {
		e.surface.typed = text
	}
	return nil
}

func (e *fakeElement) Text(ctx context.Context) (string, error) {
	if e.selector == titleBanner {
		return e.surface.banner, nil
	}
	return "", nil
}

func (e *fakeElement) Attribute(ctx context.Context, name string) (string, error) {
	if e.selector == challengeWidget && name == "data-sitekey" {
		return e.surface.challengeSiteKey, nil
	}
	return "", nil
}

func listingHtml(listing fakeListing) string {
	var b strings.Builder
	b.WriteString(`<table><tr><th>CASES FOUND</th></tr><tr><td>`)
	b.WriteString(strconv.Itoa(listing.count))
	b.WriteString(`</td></tr></table><table class="results"><tbody>`)
	for _, cell := range listing.cells {
		b.WriteString(`<tr><td class="sorting_1">`)
		b.WriteString(cell)
		b.WriteString(`</td></tr>`)
	}
	b.WriteString(`</tbody></table>`)
	return b.String()
}

// detailHtml is the smallest detail page the extractor accepts. Field
// level extraction is covered separately against a full fixture.
func detailHtml() string {
	return `<div id="summaryAccordion"></div>` +
		`<table id="gridDocketsView"><tbody></tbody></table>`
}

// fakeResolver hands out scripted tokens, sticking on the last one.
type fakeResolver struct {
	tokens []string
	calls  int
}

func (r *fakeResolver) Solve(ctx context.Context, challenge captcha.Challenge) (captcha.Result, error) {
	r.calls++
	if len(r.tokens) == 0 {
		return captcha.Result{}, errors.New("fakeResolver: no tokens scripted")
	}
	token := r.tokens[0]
	if len(r.tokens) > 1 {
		r.tokens = r.tokens[1:]
	}
	return captcha.Result{Token: token}, nil
}

// fakeOperator behaves like a human watching the window: completes the
// challenge and clicks search themselves, so the engine gets an empty
// token back.
type fakeOperator struct {
	surface *fakeSurface
	calls   int
}

func (o *fakeOperator) Solve(ctx context.Context, challenge captcha.Challenge) (captcha.Result, error) {
	o.calls++
	o.surface.injected = o.surface.acceptToken
	o.surface.submit()
	return captcha.Result{}, nil
}
