package analyze

import (
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/pagelens/internal/snapshot"
)

const (
	maxTextSample   = 2000
	maxClassEntries = 200
)

// scanHTML parses the serialized page and derives the class-usage
// histogram and a visible-text sample. Script, style and noscript
// subtrees never contribute text. A parse failure yields empty values;
// both fields are advisory.
func scanHTML(raw string) (*snapshot.ClassUsage, string) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, ""
	}
	return classUsage(doc), textSample(doc)
}

// classUsage counts every class attribution across the document. When
// a page uses more distinct classes than the cap, only the most
// frequent survive; Total still reflects every occurrence.
func classUsage(doc *html.Node) *snapshot.ClassUsage {
	counts := map[string]int{}
	total := 0

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Key != "class" {
					continue
				}
				for _, c := range strings.Fields(attr.Val) {
					counts[c]++
					total++
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if total == 0 {
		return nil
	}
	if len(counts) > maxClassEntries {
		type entry struct {
			name string
			n    int
		}
		entries := make([]entry, 0, len(counts))
		for name, n := range counts {
			entries = append(entries, entry{name, n})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].n != entries[j].n {
				return entries[i].n > entries[j].n
			}
			return entries[i].name < entries[j].name
		})
		counts = make(map[string]int, maxClassEntries)
		for _, e := range entries[:maxClassEntries] {
			counts[e.name] = e.n
		}
	}
	return &snapshot.ClassUsage{Total: total, Classes: counts}
}

// textSample collects whitespace-normalized text from the body up to a
// fixed cap, skipping non-rendered subtrees.
func textSample(doc *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if sb.Len() >= maxTextSample {
			return
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}

	sample := sb.String()
	if len(sample) > maxTextSample {
		sample = sample[:maxTextSample]
	}
	return sample
}

func findBody(doc *html.Node) *html.Node {
	var body *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return body
}
