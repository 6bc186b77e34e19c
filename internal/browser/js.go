package browser

// helpersJS installs the in-page helpers used by Chrome. It is idempotent:
// re-evaluating on the same page is a no-op. Elements get stable refs via
// data-aa-ref attributes so later actions can target them by selector.
const helpersJS = `(() => {
  if (window.__aa) return true;

  let nextRef = 0;
  const tag = (el) => {
    if (!el.dataset.aaRef) {
      el.dataset.aaRef = "aa-" + (++nextRef);
    }
    return el.dataset.aaRef;
  };

  const visible = (el) => {
    if (!el) return false;
    const style = window.getComputedStyle(el);
    if (style.display === "none" || style.visibility === "hidden") return false;
    const rect = el.getBoundingClientRect();
    return rect.width > 0 && rect.height > 0;
  };

  const text = (el) => (el ? (el.innerText || el.textContent || "").trim() : "");

  const labelFor = (el) => {
    const aria = el.getAttribute("aria-label");
    if (aria && aria.trim()) return aria.trim();
    const labelledBy = el.getAttribute("aria-labelledby");
    if (labelledBy) {
      const parts = labelledBy.split(/\s+/)
        .map((id) => text(document.getElementById(id)))
        .filter(Boolean);
      if (parts.length) return parts.join(" ");
    }
    if (el.id) {
      const label = document.querySelector('label[for="' + CSS.escape(el.id) + '"]');
      if (label && text(label)) return text(label);
    }
    const wrapping = el.closest("label");
    if (wrapping && text(wrapping)) return text(wrapping);
    const fieldset = el.closest("fieldset");
    if (fieldset) {
      const legend = fieldset.querySelector("legend");
      if (legend && text(legend)) return text(legend);
    }
    let node = el.closest("div, section, li") || el.parentElement;
    for (let depth = 0; node && depth < 4; depth++) {
      const candidate = node.querySelector("label, legend, span, p");
      if (candidate && text(candidate)) return text(candidate);
      node = node.parentElement;
    }
    return el.getAttribute("placeholder") || el.name || "";
  };

  const activeDialog = () => {
    const dialogs = Array.from(document.querySelectorAll('[role="dialog"], [role="alertdialog"], dialog'))
      .filter(visible);
    return dialogs.length ? dialogs[dialogs.length - 1] : null;
  };

  const byRef = (ref) => document.querySelector('[data-aa-ref="' + ref + '"]');

  const fieldEntry = (el, kind, question, options, group, checked) => ({
    ref: tag(el),
    kind: kind,
    question: question,
    options: options || [],
    group: group || "",
    checked: !!checked,
    value: el.value || "",
    required: el.required || el.getAttribute("aria-required") === "true",
  });

  const fields = (dialog, kind) => {
    const out = [];
    if (kind === "radio") {
      const groups = new Map();
      for (const el of dialog.querySelectorAll('input[type="radio"]')) {
        if (!visible(el)) continue;
        const name = el.name || tag(el);
        if (!groups.has(name)) groups.set(name, []);
        groups.get(name).push(el);
      }
      for (const [name, els] of groups) {
        const first = els[0];
        const fieldset = first.closest("fieldset");
        const legend = fieldset ? text(fieldset.querySelector("legend")) : "";
        const question = legend || labelFor(first);
        const options = els.map((el) => labelFor(el) || el.value);
        const checked = els.some((el) => el.checked);
        const entry = fieldEntry(first, "radio", question, options, name, checked);
        els.forEach(tag);
        out.push(entry);
      }
      return out;
    }
    let selector;
    if (kind === "checkbox") selector = 'input[type="checkbox"]';
    else if (kind === "select") selector = "select";
    else if (kind === "combobox") selector = 'input[role="combobox"], [role="combobox"] input, input[aria-autocomplete]';
    else if (kind === "number") selector = 'input[type="number"], input[inputmode="numeric"]';
    else selector = 'input[type="text"]:not([role="combobox"]):not([aria-autocomplete]), input:not([type]), textarea';
    for (const el of dialog.querySelectorAll(selector)) {
      if (!visible(el)) continue;
      let options = [];
      if (kind === "select") {
        options = Array.from(el.options).map((o) => o.text.trim()).filter(Boolean);
      }
      out.push(fieldEntry(el, kind, labelFor(el), options, "", el.checked));
    }
    return out;
  };

  const listboxOptions = () => {
    const boxes = Array.from(document.querySelectorAll('[role="listbox"]')).filter(visible);
    if (!boxes.length) return [];
    return Array.from(boxes[boxes.length - 1].querySelectorAll('[role="option"]'))
      .filter(visible)
      .map((el) => ({ ref: tag(el), label: text(el) }));
  };

  const findControl = (dialog, source) => {
    const rx = new RegExp(source, "i");
    const buttons = Array.from(dialog.querySelectorAll('button, [role="button"], input[type="submit"]'));
    for (const el of buttons) {
      if (!visible(el) || el.disabled || el.getAttribute("aria-disabled") === "true") continue;
      const label = text(el) || el.getAttribute("aria-label") || el.value || "";
      if (rx.test(label)) return { ref: tag(el), label: label };
    }
    return null;
  };

  const validationErrors = (dialog) => {
    const sel = '[role="alert"], [aria-live="assertive"], .error, [class*="error"][class*="message"]';
    return Array.from(dialog.querySelectorAll(sel))
      .filter(visible)
      .map(text)
      .filter(Boolean);
  };

  const busy = () => {
    if (document.readyState !== "complete") return true;
    const sel = '[role="progressbar"], .spinner, [class*="loader"], [aria-busy="true"]';
    return Array.from(document.querySelectorAll(sel)).some(visible);
  };

  window.__aa = {
    tag, visible, labelFor, activeDialog, byRef, fields,
    listboxOptions, findControl, validationErrors, busy,
  };
  return true;
})()`
