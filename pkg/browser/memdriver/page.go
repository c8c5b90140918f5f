package memdriver

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/retrace-dev/retrace/pkg/browser"
)

// page is a read-page snapshot. Refs issued before the snapshot's generation
// was superseded resolve; older ones report as expired.
type page struct {
	url      string
	elements []browser.Element
	gen      int
	driver   *Driver
	tabID    string
}

func (p *page) URL() string {
	return p.url
}

func (p *page) Elements() []browser.Element {
	return append([]browser.Element(nil), p.elements...)
}

func (p *page) ResolveRef(ref browser.Ref) (*browser.Element, error) {
	p.driver.mu.Lock()
	current := -1

	if t, ok := p.driver.tabs[p.tabID]; ok {
		current = t.gen
	}
	p.driver.mu.Unlock()

	if current != p.gen {
		return nil, fmt.Errorf("%w: %s", browser.ErrRefExpired, ref)
	}

	for i := range p.elements {
		if p.elements[i].Ref == ref {
			el := p.elements[i]

			return &el, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", browser.ErrRefNotFound, ref)
}

// compound selector pieces: tag, #id, .class, [attr=value]
var cssPartPattern = regexp.MustCompile(`^([a-zA-Z][\w-]*|\*)?(#[\w-]+)?((?:\.[\w-]+)*)((?:\[[^\]]+\])*)$`)

// QueryCSS supports the compound-selector subset recorded targets use: tag,
// #id, .class and [attr=value] pieces, in any combination. Descendant
// combinators are not supported.
func (p *page) QueryCSS(selector string) ([]browser.Element, error) {
	selector = strings.TrimSpace(selector)

	parts := cssPartPattern.FindStringSubmatch(selector)
	if parts == nil || selector == "" {
		return nil, fmt.Errorf("unsupported css selector: %q", selector)
	}

	tag := parts[1]
	id := strings.TrimPrefix(parts[2], "#")
	classes := splitClasses(parts[3])
	attrs, err := splitAttrs(parts[4])
	if err != nil {
		return nil, err
	}

	var matches []browser.Element

	for _, el := range p.elements {
		if matchesCompound(el, tag, id, classes, attrs) {
			matches = append(matches, el)
		}
	}

	return matches, nil
}

var xpathPattern = regexp.MustCompile(`^//([\w-]+|\*)(?:\[@([\w-]+)=['"]([^'"]*)['"]\]|\[text\(\)=['"]([^'"]*)['"]\])?$`)

// QueryXPath supports //tag, //*, and one [@attr='v'] or [text()='v']
// predicate.
func (p *page) QueryXPath(expr string) ([]browser.Element, error) {
	parts := xpathPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if parts == nil {
		return nil, fmt.Errorf("unsupported xpath expression: %q", expr)
	}

	tag, attrName, attrValue, text := parts[1], parts[2], parts[3], parts[4]

	var matches []browser.Element

	for _, el := range p.elements {
		if tag != "*" && !strings.EqualFold(el.Tag, tag) {
			continue
		}

		if attrName != "" && el.Attr(attrName) != attrValue {
			continue
		}

		if text != "" && el.Text != text {
			continue
		}

		matches = append(matches, el)
	}

	return matches, nil
}

func splitClasses(raw string) []string {
	if raw == "" {
		return nil
	}

	return strings.Split(strings.TrimPrefix(raw, "."), ".")
}

func splitAttrs(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, nil
	}

	attrs := make(map[string]string)

	for _, group := range strings.Split(strings.Trim(raw, "[]"), "][") {
		key, value, found := strings.Cut(group, "=")
		if !found {
			attrs[group] = ""

			continue
		}

		attrs[key] = strings.Trim(value, `"'`)
	}

	return attrs, nil
}

func matchesCompound(el browser.Element, tag, id string, classes []string, attrs map[string]string) bool {
	if tag != "" && tag != "*" && !strings.EqualFold(el.Tag, tag) {
		return false
	}

	if id != "" && el.Attr("id") != id {
		return false
	}

	for _, class := range classes {
		if !hasClass(el, class) {
			return false
		}
	}

	for name, value := range attrs {
		if value == "" {
			if _, ok := el.Attrs[name]; !ok {
				return false
			}

			continue
		}

		if el.Attr(name) != value {
			return false
		}
	}

	return true
}

func hasClass(el browser.Element, class string) bool {
	for _, c := range strings.Fields(el.Attr("class")) {
		if c == class {
			return true
		}
	}

	return false
}
