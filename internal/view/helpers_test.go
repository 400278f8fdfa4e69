package view

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func stringsReader(s string) io.Reader { return strings.NewReader(s) }

// countClass parses fragment markup and counts elements carrying class.
func countClass(t *testing.T, markup, class string) int {
	t.Helper()
	nodes, err := html.ParseFragment(strings.NewReader(markup), &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div})
	require.NoError(t, err)

	var count func(*html.Node) int
	count = func(n *html.Node) int {
		c := 0
		if hasClass(n, class) {
			c++
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			c += count(ch)
		}
		return c
	}

	total := 0
	for _, n := range nodes {
		total += count(n)
	}
	return total
}
