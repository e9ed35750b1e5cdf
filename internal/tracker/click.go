package tracker

import (
	"strings"

	"golang.org/x/net/html"
)

// clickKeywords mark an element as a tracked call to action when its
// visible text contains one. Matching is case sensitive; these are the
// literal labels the landing pages use.
var clickKeywords = []string{
	"Register",
	"Join",
	"Get",
	"Yes",
	"Add to Calendar",
	"Share",
}

// hrefLabels map link destinations to canonical button labels.
var hrefLabels = []struct {
	fragment string
	label    string
}{
	{"whatsapp", "WhatsApp Share"},
	{"facebook", "Facebook Share"},
	{"twitter", "Twitter Share"},
	{"mailto:", "Email Share"},
}

// classLabels map CSS class markers to canonical button labels.
// Class labels win over both text and href labels.
var classLabels = map[string]string{
	"btn-whatsapp":  "WhatsApp Share",
	"btn-calendar":  "Add to Calendar",
	"btn-community": "Join Community Button",
	"btn-vip":       "VIP Upgrade Button",
}

// ClickTarget is a clickable element as seen by click classification.
type ClickTarget struct {
	// Text is the element's visible text content.
	Text string

	// Href is the link destination, empty for buttons.
	Href string

	// Classes are the element's CSS classes.
	Classes []string
}

// ClassifyClick decides whether a click on target should be tracked
// and, if so, under which button label. Text keywords, known link
// destinations, and class markers each qualify the element on their
// own. Keywords supply the trimmed text as the label, a known link
// destination replaces it with the canonical share label, and class
// markers win over everything else.
func ClassifyClick(target ClickTarget) (label string, ok bool) {
	text := strings.TrimSpace(target.Text)

	for _, keyword := range clickKeywords {
		if strings.Contains(text, keyword) {
			label = text
			ok = true
			break
		}
	}

	for _, h := range hrefLabels {
		if strings.Contains(target.Href, h.fragment) {
			label = h.label
			ok = true
			break
		}
	}

	for _, class := range target.Classes {
		if l, known := classLabels[class]; known {
			return l, true
		}
	}

	return label, ok
}

// TargetFromNode returns the click target for the nearest enclosing
// link or button of n, walking up the parsed document tree the way a
// delegated click handler would. It reports false when n is not inside
// a clickable element.
func TargetFromNode(n *html.Node) (ClickTarget, bool) {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && (cur.Data == "a" || cur.Data == "button") {
			return targetFromElement(cur), true
		}
	}
	return ClickTarget{}, false
}

// FindClickTargets walks a parsed document and returns every link or
// button that click classification would track.
func FindClickTargets(root *html.Node) []ClickTarget {
	var targets []ClickTarget

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "a" || n.Data == "button") {
			target := targetFromElement(n)
			if _, ok := ClassifyClick(target); ok {
				targets = append(targets, target)
			}
			// Links don't nest; no need to descend further.
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return targets
}

func targetFromElement(n *html.Node) ClickTarget {
	target := ClickTarget{Text: nodeText(n)}
	for _, attr := range n.Attr {
		switch attr.Key {
		case "href":
			target.Href = attr.Val
		case "class":
			target.Classes = strings.Fields(attr.Val)
		}
	}
	return target
}

// nodeText concatenates the text content of n's subtree.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
