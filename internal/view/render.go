package view

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/MrSnakeDoc/ideabox/internal/domain"
)

// Props is everything needed to draw one idea.
type Props struct {
	ID      int64
	Title   string
	Body    string
	Quality domain.Quality
}

func PropsOf(i domain.Idea) Props {
	return Props{ID: i.ID, Title: i.Title, Body: i.Body, Quality: i.Quality}
}

// Render builds a fresh element tree for p. It never reuses nodes, so the
// result can replace an older rendering wholesale.
func Render(p Props) *html.Node {
	id := strconv.FormatInt(p.ID, 10)

	root := element(atom.Div, "idea idea-"+id,
		html.Attribute{Key: "data-id", Val: id},
		html.Attribute{Key: "data-quality", Val: p.Quality.String()},
	)
	root.AppendChild(withText(element(atom.H2, "idea-title"), p.Title))
	root.AppendChild(withText(element(atom.P, "idea-body"), p.Body))
	root.AppendChild(withText(element(atom.P, "idea-quality"), p.Quality.Label()))

	buttons := element(atom.Div, "idea-qualities idea-buttons")
	buttons.AppendChild(button("idea-promote", "Promote"))
	buttons.AppendChild(button("idea-demote", "Demote"))
	buttons.AppendChild(button("idea-delete", "Delete"))
	root.AppendChild(buttons)

	return root
}

// RenderList renders ideas the way the board shows them: each one is
// prepended, so the newest ends up first.
func RenderList(ideas []domain.Idea) []*html.Node {
	out := make([]*html.Node, len(ideas))
	for i, idea := range ideas {
		out[len(ideas)-1-i] = Render(PropsOf(idea))
	}
	return out
}

// RenderHTML serialises RenderList(ideas).
func RenderHTML(ideas []domain.Idea) (string, error) {
	var buf bytes.Buffer
	for _, n := range RenderList(ideas) {
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("render idea: %w", err)
		}
	}
	return buf.String(), nil
}

func element(a atom.Atom, class string, attrs ...html.Attribute) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     a.String(),
		DataAtom: a,
	}
	if class != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: class})
	}
	n.Attr = append(n.Attr, attrs...)
	return n
}

func withText(n *html.Node, text string) *html.Node {
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}

func button(class, label string) *html.Node {
	return withText(element(atom.Button, class, html.Attribute{Key: "type", Val: "button"}), label)
}

// attr returns the value of key on n.
func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	v, ok := attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// findClass returns the first element under n (n included) carrying class.
func findClass(n *html.Node, class string) *html.Node {
	if hasClass(n, class) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findClass(c, class); found != nil {
			return found
		}
	}
	return nil
}

// textContent concatenates every text node under n.
func textContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

func setText(n *html.Node, text string) {
	removeChildren(n)
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

func prepend(parent, child *html.Node) {
	if parent.FirstChild == nil {
		parent.AppendChild(child)
		return
	}
	parent.InsertBefore(child, parent.FirstChild)
}
