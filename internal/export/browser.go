// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"image"
	"image/png"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"tyohaarify/internal/imaging"
)

// ErrNoBrowser is returned when no Chromium binary can be found.
var ErrNoBrowser = errors.New("export: no chromium binary available")

// waitForImages resolves once every <img> and CSS background image in the
// document has decoded, and rejects if any of them fails.
const waitForImages = `() => {
	const waits = [...document.images].map(img =>
		img.complete && img.naturalWidth > 0 ? Promise.resolve() : img.decode());
	const urls = new Set();
	for (const el of document.querySelectorAll('*')) {
		const bg = getComputedStyle(el).backgroundImage;
		for (const m of bg.matchAll(/url\(["']?(.*?)["']?\)/g)) urls.add(m[1]);
	}
	for (const u of urls) {
		const bgImg = new Image();
		bgImg.src = u;
		waits.push(bgImg.decode());
	}
	return Promise.all(waits).then(() => waits.length);
}`

// Browser rasterizes cards with headless Chromium. The browser process is
// started lazily on first use and shared by all exports.
type Browser struct {
	bin     string
	baseURL string

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewBrowser returns a rasterizer using the Chromium binary at bin, or the
// one rod finds on the system when bin is empty. Relative image paths in
// cards resolve against baseURL.
func NewBrowser(bin, baseURL string) *Browser {
	return &Browser{bin: bin, baseURL: strings.TrimRight(baseURL, "/")}
}

// Available reports whether a Chromium binary can be located.
func (b *Browser) Available() bool {
	if b.bin != "" {
		return true
	}
	_, ok := launcher.LookPath()
	return ok
}

func (b *Browser) ensure() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return b.browser, nil
	}

	bin := b.bin
	if bin == "" {
		path, ok := launcher.LookPath()
		if !ok {
			return nil, ErrNoBrowser
		}
		bin = path
	}

	l := launcher.New().Bin(bin).Headless(true).Set("disable-gpu").Set("hide-scrollbars")
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chromium: %w", err)
	}

	slog.Info("chromium started", "bin", bin)
	b.launcher = l
	b.browser = browser
	return browser, nil
}

// page opens a blank page with a viewport of w x h and loads content. The
// returned page is bound to ctx; release closes the tab even after ctx is
// done.
func (b *Browser) page(ctx context.Context, content string, w, h int) (p *rod.Page, release func(), err error) {
	browser, err := b.ensure()
	if err != nil {
		return nil, nil, err
	}
	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, nil, fmt.Errorf("create page: %w", err)
	}
	release = func() {
		if err := page.Close(); err != nil {
			slog.Warn("close chromium page", "error", err)
		}
	}
	p = page.Context(ctx)

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             w,
		Height:            h,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(p); err != nil {
		release()
		return nil, nil, fmt.Errorf("set viewport: %w", err)
	}
	if err := p.SetDocumentContent(content); err != nil {
		release()
		return nil, nil, fmt.Errorf("load card: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		release()
		return nil, nil, fmt.Errorf("wait load: %w", err)
	}
	if _, err := p.Eval(waitForImages); err != nil {
		release()
		return nil, nil, fmt.Errorf("wait for images: %w", err)
	}
	return p, release, nil
}

// Rasterize renders the card HTML and screenshots the card element.
func (b *Browser) Rasterize(ctx context.Context, card Card) (image.Image, error) {
	p, release, err := b.page(ctx, b.withBase(card.HTML), card.Width, card.Height)
	if err != nil {
		return nil, err
	}
	defer release()

	el, err := p.Element("#card")
	if err != nil {
		return nil, fmt.Errorf("find card element: %w", err)
	}
	shot, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(shot))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

// EncodeWebP loads img into a page of the same size and captures it as WebP.
func (b *Browser) EncodeWebP(ctx context.Context, img image.Image) ([]byte, error) {
	raw, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	doc := fmt.Sprintf(`<!DOCTYPE html><html><head><style>html,body{margin:0;padding:0}img{display:block}</style></head>`+
		`<body><img id="card" width="%d" height="%d" src="data:image/png;base64,%s"></body></html>`,
		bounds.Dx(), bounds.Dy(), base64.StdEncoding.EncodeToString(raw))

	p, release, err := b.page(ctx, doc, bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}
	defer release()

	el, err := p.Element("#card")
	if err != nil {
		return nil, fmt.Errorf("find image element: %w", err)
	}
	data, err := el.Screenshot(proto.PageCaptureScreenshotFormatWebp, 90)
	if err != nil {
		return nil, fmt.Errorf("webp screenshot: %w", err)
	}
	return data, nil
}

// withBase adds a <base> element so root-relative image paths resolve
// against the application origin.
func (b *Browser) withBase(doc string) string {
	if b.baseURL == "" {
		return doc
	}
	tag := `<base href="` + html.EscapeString(b.baseURL) + `/">`
	if i := strings.Index(strings.ToLower(doc), "<head>"); i >= 0 {
		i += len("<head>")
		return doc[:i] + tag + doc[i:]
	}
	return tag + doc
}

// Close shuts down the browser process if it was started.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.launcher.Kill()
	b.browser = nil
	b.launcher = nil
	return err
}
