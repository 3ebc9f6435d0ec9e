package analyze

import (
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/pagelens/internal/snapshot"
)

// themeScript reads the computed design scalars and the CSS
// custom-property table. Custom properties come from same-origin
// :root/html rules plus inline style on the root element;
// cross-origin sheets throw on cssRules access and are skipped.
const themeScript = `() => {
	const body = getComputedStyle(document.body);
	const root = getComputedStyle(document.documentElement);

	const vars = {};
	for (const sheet of document.styleSheets) {
		let rules;
		try { rules = sheet.cssRules; } catch (e) { continue; }
		for (const rule of rules) {
			if (!rule.selectorText || !rule.style) continue;
			const hits = rule.selectorText.split(',').some(
				s => s.trim() === ':root' || s.trim() === 'html');
			if (!hits) continue;
			for (const prop of rule.style) {
				if (prop.startsWith('--')) {
					vars[prop] = rule.style.getPropertyValue(prop).trim();
				}
			}
		}
	}
	const inline = document.documentElement.style;
	for (const prop of inline) {
		if (prop.startsWith('--')) {
			vars[prop] = inline.getPropertyValue(prop).trim();
		}
	}

	const radii = new Set();
	for (const el of document.querySelectorAll('button, input, select, [class*="card"], [class*="btn"]')) {
		const r = getComputedStyle(el).borderRadius;
		if (r && r !== '0px') radii.add(r);
		if (radii.size >= 8) break;
	}

	const bg = body.backgroundColor;
	const ch = bg.match(/[\d.]+/g) || [];
	const lum = ch.length >= 3
		? 0.299 * ch[0] + 0.587 * ch[1] + 0.114 * ch[2]
		: 255;

	const varOf = (names) => {
		for (const n of names) {
			const v = root.getPropertyValue(n).trim();
			if (v) return v;
		}
		return '';
	};

	let primary = varOf(['--primary', '--color-primary', '--accent', '--brand']);
	if (!primary) {
		const btn = document.querySelector('button, [role="button"], [class*="btn"]');
		if (btn) primary = getComputedStyle(btn).backgroundColor;
	}
	if (!primary || primary === 'rgba(0, 0, 0, 0)') {
		const link = document.querySelector('a[href]');
		primary = link ? getComputedStyle(link).color : '';
	}

	let spacing = varOf(['--spacing', '--space', '--spacing-unit', '--space-md']);
	if (!spacing) {
		const p = document.querySelector('main p, p');
		if (p) spacing = getComputedStyle(p).marginBottom;
	}

	return JSON.stringify({
		mode: lum < 128 ? 'dark' : 'light',
		background: bg,
		foreground: body.color,
		primary: primary,
		font_family: body.fontFamily,
		base_font_size: root.fontSize,
		spacing: spacing,
		css_vars: vars,
		radii: [...radii].sort(),
		width: window.innerWidth,
		height: window.innerHeight,
	});
}`

type themeProbe struct {
	snapshot.Theme
	Width  int `json:"width"`
	Height int `json:"height"`
}

func captureTheme(page *rod.Page) (snapshot.Theme, snapshot.Viewport, error) {
	res, err := page.Eval(themeScript)
	if err != nil {
		return snapshot.Theme{}, snapshot.Viewport{}, err
	}
	var probe themeProbe
	if err := json.Unmarshal([]byte(res.Value.Str()), &probe); err != nil {
		return snapshot.Theme{}, snapshot.Viewport{}, fmt.Errorf("decode probe result: %w", err)
	}
	return probe.Theme, snapshot.Viewport{Width: probe.Width, Height: probe.Height}, nil
}
