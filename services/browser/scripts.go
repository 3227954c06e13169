package browser

// Lookup scripts run through ElementByJS, which retries while they return null.

// textLookupJS returns the innermost element whose visible text contains text.
const textLookupJS = `(text) => {
	const want = text.trim().toLowerCase();
	if (!want || !document.body) return null;
	const skip = new Set(['SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE']);
	const contains = (el) => (el.innerText || el.textContent || '').toLowerCase().includes(want);
	if (!contains(document.body)) return null;
	let node = document.body;
	for (;;) {
		const next = Array.from(node.children).find((c) => !skip.has(c.tagName) && contains(c));
		if (!next) return node;
		node = next;
	}
}`

// roleLookupJS matches explicit and implicit ARIA roles. An empty name
// matches any element with the role, otherwise the accessible name must equal
// name ignoring case.
const roleLookupJS = `(role, name) => {
	const implicit = {
		button: 'button, input[type=button], input[type=submit], input[type=reset], summary',
		link: 'a[href], area[href]',
		textbox: 'textarea, input:not([type]), input[type=text], input[type=email], input[type=search], input[type=tel], input[type=url], input[type=password]',
		searchbox: 'input[type=search]',
		checkbox: 'input[type=checkbox]',
		radio: 'input[type=radio]',
		combobox: 'select',
		option: 'option',
		heading: 'h1, h2, h3, h4, h5, h6',
		img: 'img[alt]',
		list: 'ul, ol',
		listitem: 'li',
		navigation: 'nav',
		main: 'main',
		form: 'form',
		table: 'table',
		row: 'tr',
		cell: 'td',
	};
	const r = role.toLowerCase();
	const selector = '[role="' + r + '"]' + (implicit[r] ? ', ' + implicit[r] : '');
	const want = (name || '').trim().toLowerCase();
	const accessibleName = (el) => {
		const aria = el.getAttribute('aria-label');
		if (aria) return aria;
		const by = el.getAttribute('aria-labelledby');
		if (by) {
			const text = by.split(/\s+/).map((id) => {
				const ref = document.getElementById(id);
				return ref ? ref.textContent : '';
			}).join(' ').trim();
			if (text) return text;
		}
		if (el.labels && el.labels.length) return Array.from(el.labels).map((l) => l.textContent).join(' ');
		if (el.tagName === 'INPUT' && ['button', 'submit', 'reset'].includes(el.type)) return el.value;
		return el.getAttribute('alt') || el.innerText || el.textContent || el.getAttribute('title') || el.getAttribute('placeholder') || '';
	};
	for (const el of document.querySelectorAll(selector)) {
		if (!want) return el;
		if (accessibleName(el).replace(/\s+/g, ' ').trim().toLowerCase() === want) return el;
	}
	return null;
}`

// labelLookupJS resolves the form control described by a label text.
const labelLookupJS = `(label) => {
	const want = label.trim().toLowerCase();
	if (!want) return null;
	const norm = (s) => (s || '').replace(/\s+/g, ' ').trim().toLowerCase();
	for (const l of document.querySelectorAll('label')) {
		if (!norm(l.textContent).includes(want)) continue;
		if (l.control) return l.control;
		if (l.htmlFor) {
			const el = document.getElementById(l.htmlFor);
			if (el) return el;
		}
		const nested = l.querySelector('input, textarea, select');
		if (nested) return nested;
	}
	for (const el of document.querySelectorAll('[aria-label]')) {
		if (norm(el.getAttribute('aria-label')) === want) return el;
	}
	for (const el of document.querySelectorAll('[aria-labelledby]')) {
		const text = el.getAttribute('aria-labelledby').split(/\s+/).map((id) => {
			const ref = document.getElementById(id);
			return ref ? ref.textContent : '';
		}).join(' ');
		if (norm(text).includes(want)) return el;
	}
	return null;
}`

// fingerprintJS hides the common automation tells. It is installed once per
// page and runs before any site script.
const fingerprintJS = `(() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
	Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
	window.chrome = { runtime: {} };
	const originalQuery = window.navigator.permissions.query;
	window.navigator.permissions.query = (parameters) => (
		parameters.name === 'notifications'
			? Promise.resolve({ state: Notification.permission })
			: originalQuery.call(window.navigator.permissions, parameters)
	);
})();`

const (
	textContentJS = `() => this.textContent`
	innerHTMLJS   = `() => this.innerHTML`
	caretToEndJS  = `() => {
	if (typeof this.value === 'string' && this.setSelectionRange) {
		try { const n = this.value.length; this.setSelectionRange(n, n); } catch (e) {}
	}
}`
)
