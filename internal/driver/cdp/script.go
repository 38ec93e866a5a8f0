package cdp

import (
	"encoding/json"
	"fmt"
	"strings"
)

// helper is installed into the page once per load. Elements are tagged with a
// data attribute carrying a per-install prefix, so handles from before a
// reload never resolve to new nodes.
const helper = `(() => {
  if (window.__routinecopy) return;
  const prefix = Math.random().toString(36).slice(2, 8) + "-";
  let next = 0;
  const attr = "data-routinecopy-id";
  const byId = (id) => id === "" ? document : document.querySelector("[" + attr + "=\"" + id + "\"]");
  const tag = (el) => {
    let id = el.getAttribute(attr);
    if (!id || !id.startsWith(prefix)) {
      id = prefix + (++next);
      el.setAttribute(attr, id);
    }
    return id;
  };
  const setter = (el) => {
    const proto = el instanceof HTMLTextAreaElement ? HTMLTextAreaElement.prototype
      : el instanceof HTMLSelectElement ? HTMLSelectElement.prototype
      : HTMLInputElement.prototype;
    return Object.getOwnPropertyDescriptor(proto, "value").set;
  };
  window.__routinecopy = {
    findAll(scope, css, text, flags, parent) {
      const root = byId(scope);
      if (!root) return { stale: true };
      const re = text ? new RegExp(text, flags) : null;
      const seen = new Set();
      const ids = [];
      for (let el of root.querySelectorAll(css)) {
        if (re && !re.test((el.textContent || "").trim())) continue;
        if (parent) el = el.parentElement;
        if (!el || seen.has(el)) continue;
        seen.add(el);
        ids.push(tag(el));
      }
      return { ids };
    },
    read(id) {
      const el = byId(id);
      if (!el) return { stale: true };
      if (el instanceof HTMLInputElement || el instanceof HTMLTextAreaElement || el instanceof HTMLSelectElement) {
        return { value: el.value };
      }
      return { value: el.textContent || "" };
    },
    setValue(id, value) {
      const el = byId(id);
      if (!el) return { stale: true };
      el.focus();
      setter(el).call(el, value);
      el.dispatchEvent(new Event("input", { bubbles: true }));
      el.dispatchEvent(new Event("change", { bubbles: true }));
      el.blur();
      return {};
    },
    click(id) {
      const el = byId(id);
      if (!el) return { stale: true };
      el.scrollIntoView({ block: "center" });
      el.click();
      return {};
    },
  };
})()`

// result is what every helper call returns.
type result struct {
	Stale bool     `json:"stale"`
	IDs   []string `json:"ids"`
	Value string   `json:"value"`
}

// jsPattern converts a profile text pattern to a JavaScript pattern and
// flags. Profiles use Go syntax, where case folding is a leading (?i).
func jsPattern(text string) (pattern, flags string) {
	if rest, ok := strings.CutPrefix(text, "(?i)"); ok {
		return rest, "i"
	}
	return text, ""
}

// call builds an expression that installs the helper if needed and invokes
// method with JSON-encoded args.
func call(method string, args ...any) (string, error) {
	enc := make([]string, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("encoding argument %d of %s: %w", i, method, err)
		}
		enc[i] = string(b)
	}
	return fmt.Sprintf("%s, window.__routinecopy.%s(%s)", helper, method, strings.Join(enc, ", ")), nil
}
