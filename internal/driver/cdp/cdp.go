// Package cdp drives the routine builder in a running Chrome tab over the
// DevTools protocol. Start the browser with --remote-debugging-port and open
// the builder before attaching.
package cdp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/claude/routinecopy/internal/driver"
)

// Config selects the browser tab to attach to.
type Config struct {
	DebuggerURL string
	PageMatch   string
	Profile     *driver.Profile
}

// Driver implements driver.Session on one browser tab.
type Driver struct {
	tab         context.Context
	cancelAlloc context.CancelFunc
	profile     *driver.Profile
	log         *slog.Logger
}

var _ driver.Session = (*Driver)(nil)

// Opener returns a driver.Opener that attaches with cfg.
func Opener(cfg Config, log *slog.Logger) driver.Opener {
	return func(ctx context.Context) (driver.Session, error) {
		return Open(ctx, cfg, log)
	}
}

// Open attaches to the first page whose URL contains cfg.PageMatch.
func Open(ctx context.Context, cfg Config, log *slog.Logger) (*Driver, error) {
	if cfg.Profile == nil {
		cfg.Profile = driver.DefaultProfile()
	}

	wsURL, targets, err := discover(ctx, &http.Client{Timeout: 5 * time.Second}, cfg.DebuggerURL)
	if err != nil {
		return nil, err
	}
	t, err := pickTarget(targets, cfg.PageMatch)
	if err != nil {
		return nil, err
	}

	// The session outlives ctx; it ends with Close.
	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(context.Background(), wsURL, chromedp.NoModifyURL)
	tab, _ := chromedp.NewContext(allocCtx, chromedp.WithTargetID(target.ID(t.ID)))
	if err := chromedp.Run(tab); err != nil {
		cancelAlloc()
		return nil, fmt.Errorf("attaching to %s: %w", t.URL, err)
	}

	log.Info("attached to browser tab", "title", t.Title, "url", t.URL, "profile", cfg.Profile.Name, "profile_version", cfg.Profile.Version)
	return &Driver{tab: tab, cancelAlloc: cancelAlloc, profile: cfg.Profile, log: log}, nil
}

// Close detaches from the browser. Only the allocator is cancelled, which
// drops the connection and leaves the tab open.
func (d *Driver) Close() error {
	d.cancelAlloc()
	return nil
}

// eval runs a helper method in the tab, bounded by ctx.
func (d *Driver) eval(ctx context.Context, method string, args ...any) (result, error) {
	var res result
	expr, err := call(method, args...)
	if err != nil {
		return res, err
	}

	runCtx, cancel := context.WithCancel(d.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, chromedp.Evaluate(expr, &res)); err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, fmt.Errorf("cdp %s: %w", method, err)
	}
	return res, nil
}

// FindAll implements driver.Driver.
func (d *Driver) FindAll(ctx context.Context, scope driver.Element, desc driver.Descriptor) ([]driver.Element, error) {
	sel, err := d.profile.Lookup(desc)
	if err != nil {
		return nil, err
	}
	pattern, flags := jsPattern(sel.Text)
	res, err := d.eval(ctx, "findAll", string(scope), sel.CSS, pattern, flags, sel.Parent)
	if err != nil {
		return nil, err
	}
	if res.Stale {
		return nil, fmt.Errorf("scope of %s: %w", desc, driver.ErrNotFound)
	}
	out := make([]driver.Element, len(res.IDs))
	for i, id := range res.IDs {
		out[i] = driver.Element(id)
	}
	return out, nil
}

// Find implements driver.Driver.
func (d *Driver) Find(ctx context.Context, scope driver.Element, desc driver.Descriptor) (driver.Element, error) {
	all, err := d.FindAll(ctx, scope, desc)
	if err != nil {
		return "", err
	}
	if len(all) == 0 {
		return "", fmt.Errorf("%s: %w", desc, driver.ErrNotFound)
	}
	return all[0], nil
}

// Read implements driver.Driver.
func (d *Driver) Read(ctx context.Context, el driver.Element) (string, error) {
	res, err := d.eval(ctx, "read", string(el))
	if err != nil {
		return "", err
	}
	if res.Stale {
		return "", fmt.Errorf("element %s: %w", el, driver.ErrNotFound)
	}
	return res.Value, nil
}

// SetValue implements driver.Driver. The value goes through the element's
// native setter followed by input and change events, which is what reactive
// frameworks listen to.
func (d *Driver) SetValue(ctx context.Context, el driver.Element, value string) error {
	res, err := d.eval(ctx, "setValue", string(el), value)
	if err != nil {
		return err
	}
	if res.Stale {
		return fmt.Errorf("element %s: %w", el, driver.ErrNotFound)
	}
	d.log.Debug("set value", "element", el, "value", value)
	return nil
}

// Click implements driver.Driver.
func (d *Driver) Click(ctx context.Context, el driver.Element) error {
	res, err := d.eval(ctx, "click", string(el))
	if err != nil {
		return err
	}
	if res.Stale {
		return fmt.Errorf("element %s: %w", el, driver.ErrNotFound)
	}
	d.log.Debug("clicked", "element", el)
	return nil
}

// WaitSettle implements driver.Driver. The builder gives no completion
// signal, so settling is a plain wait.
func (d *Driver) WaitSettle(ctx context.Context, dur time.Duration) error {
	return driver.Sleep(ctx, dur)
}
