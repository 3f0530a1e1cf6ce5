// Package browser is the thin slice of a real browser the harvester
// drives: navigate, read the title, poke elements, manage cookies.
// The portal renders its search flow with enough script that plain
// HTTP clients bounce off it, so lookups ride a headful Chrome while
// the extraction layer still works on static HTML snapshots.
package browser

import (
	"context"
	"errors"
	"time"
)

var ErrElementNotFound = errors.New("element not found")

type Cookie struct {
	Name  string
	Value string
}

// Element is one interactable node on the current page.
type Element interface {
	Click(ctx context.Context) error
	Input(ctx context.Context, text string) error
	Text(ctx context.Context) (string, error)
	// Attribute returns "" when the attribute is absent.
	Attribute(ctx context.Context, name string) (string, error)
}

// Surface is implemented by rod against a live Chrome; tests swap in a
// scripted fake.
type Surface interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	Title(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	// Element waits up to the configured element timeout for the
	// selector to appear. A missing element reports ErrElementNotFound.
	Element(ctx context.Context, selector string) (Element, error)
	// Has probes for a selector without waiting.
	Has(ctx context.Context, selector string) (bool, error)
	// Eval runs a js function on the page and returns its result
	// coerced to a string.
	Eval(ctx context.Context, js string, args ...interface{}) (string, error)
	Cookies(ctx context.Context) ([]Cookie, error)
	ClearCookies(ctx context.Context) error
}

type Config struct {
	// attach to an already running chrome instead of launching one
	DebuggerURL         string `json:"debugger_url"`
	Bin                 string `json:"bin"`
	Headless            bool   `json:"headless"`
	NavigationTimeoutMs int    `json:"navigation_timeout_ms"`
	ElementTimeoutMs    int    `json:"element_timeout_ms"`
}

func (c Config) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

func (c Config) ElementTimeout() time.Duration {
	if c.ElementTimeoutMs == 0 {
		return 5 * time.Second
	}
	return time.Duration(c.ElementTimeoutMs) * time.Millisecond
}
