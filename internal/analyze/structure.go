package analyze

import (
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/pagelens/internal/snapshot"
)

// structureScript walks the live DOM for landmarks, named sections,
// floating overlays and interactive elements. Each action carries the
// best locator hint available, in preference order: test-id attribute,
// raw DOM id, then role plus accessible name. Hidden controls are
// skipped; the list is capped so pathological pages stay bounded.
const structureScript = `() => {
	const fold = window.innerHeight;

	const landmarks = [];
	for (const tag of ['header', 'nav', 'main', 'footer', 'aside']) {
		const els = document.querySelectorAll(tag);
		els.forEach((el, i) => {
			landmarks.push({
				role: tag,
				selector: els.length > 1 ? tag + ':nth-of-type(' + (i + 1) + ')' : tag,
			});
		});
	}

	const sections = [];
	document.querySelectorAll('section, [data-section]').forEach((el, i) => {
		if (sections.length >= 40) return;
		const heading = el.querySelector('h1, h2, h3, h4');
		const name = (el.getAttribute('data-section')
			|| (heading ? heading.innerText : '')
			|| el.getAttribute('aria-label')
			|| '').trim().slice(0, 80);
		sections.push({
			id: el.id || '',
			name: name || 'section ' + (i + 1),
			selector: el.id ? '#' + CSS.escape(el.id) : 'section:nth-of-type(' + (i + 1) + ')',
		});
	});

	const overlays = [];
	for (const el of document.querySelectorAll('dialog, [role="dialog"], [role="alertdialog"], [class*="modal"], [class*="toast"], [class*="banner"]')) {
		if (overlays.length >= 20) break;
		const style = getComputedStyle(el);
		const rect = el.getBoundingClientRect();
		const visible = style.display !== 'none'
			&& style.visibility !== 'hidden'
			&& rect.width > 0 && rect.height > 0;
		const role = el.getAttribute('role') || '';
		const cls = el.className && el.className.toLowerCase ? el.className.toLowerCase() : '';
		let kind = 'banner';
		if (el.tagName === 'DIALOG' || role === 'dialog' || role === 'alertdialog' || cls.includes('modal')) kind = 'modal';
		else if (cls.includes('toast')) kind = 'toast';
		overlays.push({
			kind: kind,
			selector: el.id ? '#' + CSS.escape(el.id) : el.tagName.toLowerCase(),
			visible: visible,
		});
	}

	const actions = [];
	for (const el of document.querySelectorAll('button, a[href], input, select, textarea, [role="button"]')) {
		if (actions.length >= 120) break;
		const style = getComputedStyle(el);
		if (style.display === 'none' || style.visibility === 'hidden') continue;
		if (el.tagName === 'INPUT' && el.type === 'hidden') continue;

		let kind = el.tagName.toLowerCase();
		if (kind === 'a') kind = 'link';
		if (el.getAttribute('role') === 'button') kind = 'button';

		const label = (el.getAttribute('aria-label')
			|| el.innerText
			|| el.getAttribute('placeholder')
			|| el.value
			|| '').trim().slice(0, 80);

		const testid = el.getAttribute('data-testid');
		let locator;
		if (testid) {
			locator = { kind: 'testid', value: testid, selector: '[data-testid="' + testid + '"]' };
		} else if (el.id) {
			locator = { kind: 'id', value: el.id, selector: '#' + CSS.escape(el.id) };
		} else {
			const tag = kind === 'link' ? 'a' : el.tagName.toLowerCase();
			locator = { kind: 'role', value: label, selector: tag };
		}

		const rect = el.getBoundingClientRect();
		actions.push({
			label: label,
			kind: kind,
			locator: locator,
			above_fold: rect.top < fold && rect.bottom > 0,
		});
	}

	return JSON.stringify({
		landmarks: landmarks,
		sections: sections,
		overlays: overlays,
		actions: actions,
	});
}`

type structureProbe struct {
	Landmarks []snapshot.Landmark `json:"landmarks"`
	Sections  []snapshot.Section  `json:"sections"`
	Overlays  []snapshot.Overlay  `json:"overlays"`
	Actions   []snapshot.Action   `json:"actions"`
}

func captureStructure(page *rod.Page) (*structureProbe, error) {
	res, err := page.Eval(structureScript)
	if err != nil {
		return nil, err
	}
	var probe structureProbe
	if err := json.Unmarshal([]byte(res.Value.Str()), &probe); err != nil {
		return nil, fmt.Errorf("decode probe result: %w", err)
	}
	return &probe, nil
}
