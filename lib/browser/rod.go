package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Rod drives one page of a real Chrome. The harvester runs a single
// logical session, so one page is all there is.
type Rod struct {
	cfg     Config
	browser *rod.Browser
	page    *rod.Page
}

// Launch connects to cfg.DebuggerURL when set, otherwise launches a
// Chrome of its own, and opens the single page the session will use.
func Launch(ctx context.Context, cfg Config) (*Rod, error) {
	controlURL := cfg.DebuggerURL
	if controlURL == "" {
		launch := launcher.New().Headless(cfg.Headless)
		if cfg.Bin != "" {
			launch = launch.Bin(cfg.Bin)
		}
		url, err := launch.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = url
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	return &Rod{cfg: cfg, browser: b, page: page}, nil
}

func (r *Rod) Close() error {
	return r.browser.Close()
}

func (r *Rod) Navigate(ctx context.Context, url string) error {
	page := r.page.Context(ctx).Timeout(r.cfg.NavigationTimeout())
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

func (r *Rod) Reload(ctx context.Context) error {
	page := r.page.Context(ctx).Timeout(r.cfg.NavigationTimeout())
	if err := page.Reload(); err != nil {
		return err
	}
	return page.WaitLoad()
}

func (r *Rod) Title(ctx context.Context) (string, error) {
	info, err := r.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

func (r *Rod) URL(ctx context.Context) (string, error) {
	info, err := r.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (r *Rod) HTML(ctx context.Context) (string, error) {
	return r.page.Context(ctx).HTML()
}

func (r *Rod) Element(ctx context.Context, selector string) (Element, error) {
	el, err := r.page.Context(ctx).Timeout(r.cfg.ElementTimeout()).Element(selector)
	if err != nil {
		var notFound *rod.ElementNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%q: %w", selector, ErrElementNotFound)
		}
		return nil, err
	}
	return rodElement{el: el}, nil
}

func (r *Rod) Has(ctx context.Context, selector string) (bool, error) {
	has, _, err := r.page.Context(ctx).Has(selector)
	return has, err
}

func (r *Rod) Eval(ctx context.Context, js string, args ...interface{}) (string, error) {
	res, err := r.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (r *Rod) Cookies(ctx context.Context) ([]Cookie, error) {
	res, err := proto.NetworkGetCookies{}.Call(r.page.Context(ctx))
	if err != nil {
		return nil, err
	}
	cookies := make([]Cookie, 0, len(res.Cookies))
	for _, c := range res.Cookies {
		cookies = append(cookies, Cookie{Name: c.Name, Value: c.Value})
	}
	return cookies, nil
}

func (r *Rod) ClearCookies(ctx context.Context) error {
	return proto.NetworkClearBrowserCookies{}.Call(r.page.Context(ctx))
}

type rodElement struct {
	el *rod.Element
}

func (e rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e rodElement) Input(ctx context.Context, text string) error {
	return e.el.Context(ctx).Input(text)
}

func (e rodElement) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e rodElement) Attribute(ctx context.Context, name string) (string, error) {
	val, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", nil
	}
	return *val, nil
}
