// Package markup turns authoring HTML into normalised HTML plus the question
// and stats records it declares.
package markup

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"textinput-service/internal/domain"
)

const (
	questionTag = domain.TextInputType
	statsTag    = "asq-text-input-q-stats"
	stemTag     = "asq-stem"
	solutionTag = "asq-solution"
	hintTag     = "asq-hint"
)

// Result is the outcome of Normalize.
type Result struct {
	HTML      string
	Questions []domain.Question
	Stats     []domain.StatsConfig
}

// Normalize assigns a uid to every question element lacking one, extracts its
// stem, solution and hint, strips solution and hint elements from the output
// and links stats elements to their question through a for-uid attribute.
//
// Only the first solution and first hint of a question are used; further ones
// are dropped without error. Each call parses its own tree.
func Normalize(src string, newUID func() string) (Result, error) {
	nodes, err := parse(src)
	if err != nil {
		return Result{}, fmt.Errorf("parse markup: %w", err)
	}

	var (
		questionEls []*html.Node
		statsEls    []*html.Node
		byID        = make(map[string]*html.Node)
	)
	for _, n := range nodes {
		walk(n, func(el *html.Node) {
			if id := attr(el, "id"); id != "" {
				if _, seen := byID[id]; !seen {
					byID[id] = el
				}
			}
			switch el.Data {
			case questionTag:
				questionEls = append(questionEls, el)
			case statsTag:
				statsEls = append(statsEls, el)
			}
		})
	}

	res := Result{}
	for _, el := range questionEls {
		res.Questions = append(res.Questions, processQuestion(el, newUID))
	}

	for _, el := range statsEls {
		stats, ok, err := processStats(el, byID)
		if err != nil {
			return Result{}, err
		}
		if ok {
			res.Stats = append(res.Stats, stats)
		}
	}

	var sb strings.Builder
	for _, n := range nodes {
		if err := html.Render(&sb, n); err != nil {
			return Result{}, fmt.Errorf("render markup: %w", err)
		}
	}
	res.HTML = sb.String()
	return res, nil
}

// parse keeps full documents intact and treats anything else as a body fragment.
func parse(src string) ([]*html.Node, error) {
	src, err := expandSelfClosing(src)
	if err != nil {
		return nil, err
	}
	if strings.Contains(strings.ToLower(src), "<html") {
		doc, err := html.Parse(strings.NewReader(src))
		if err != nil {
			return nil, err
		}
		return []*html.Node{doc}, nil
	}
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	return html.ParseFragment(strings.NewReader(src), body)
}

// expandSelfClosing rewrites <asq-x/> as <asq-x></asq-x>. The HTML5 parser
// ignores the slash on custom elements and would nest every later sibling.
func expandSelfClosing(src string) (string, error) {
	if !strings.Contains(src, "/>") {
		return src, nil
	}
	var out strings.Builder
	z := html.NewTokenizer(strings.NewReader(src))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				return out.String(), nil
			}
			return "", z.Err()
		}
		if tt != html.SelfClosingTagToken {
			out.Write(z.Raw())
			continue
		}
		tok := z.Token()
		if !strings.HasPrefix(tok.Data, "asq-") {
			out.WriteString(tok.String())
			continue
		}
		tok.Type = html.StartTagToken
		out.WriteString(tok.String())
		out.WriteString("</" + tok.Data + ">")
	}
}

func processQuestion(el *html.Node, newUID func() string) domain.Question {
	uid := strings.TrimSpace(attr(el, "uid"))
	if uid == "" {
		uid = newUID()
		setAttr(el, "uid", uid)
	}

	q := domain.Question{UID: uid, Type: domain.TextInputType}
	if stem := first(el, stemTag); stem != nil {
		q.Data.Stem = strings.TrimSpace(innerHTML(stem))
	}
	if solution := first(el, solutionTag); solution != nil {
		q.Data.Solution = strings.TrimSpace(textContent(solution))
	}
	if hint := first(el, hintTag); hint != nil {
		q.Data.Hint = strings.TrimSpace(innerHTML(hint))
	}
	removeAll(el, solutionTag)
	removeAll(el, hintTag)

	q.Data.HTML = outerHTML(el)
	return q
}

func processStats(el *html.Node, byID map[string]*html.Node) (domain.StatsConfig, bool, error) {
	qid := strings.TrimSpace(attr(el, "for"))
	if qid == "" {
		return domain.StatsConfig{}, false, nil
	}
	target, ok := byID[qid]
	if !ok || target.Data != questionTag {
		return domain.StatsConfig{}, false, nil
	}
	quid := strings.TrimSpace(attr(target, "uid"))
	if quid == "" {
		return domain.StatsConfig{}, false, nil
	}
	setAttr(el, "for-uid", quid)

	showViewer, err := domain.ParseShowViewer(attr(el, "show-viewer"))
	if err != nil {
		return domain.StatsConfig{}, false, fmt.Errorf("stats for %s: %w", qid, err)
	}
	return domain.StatsConfig{QuestionUID: quid, ShowViewer: showViewer}, true, nil
}

func walk(n *html.Node, visit func(*html.Node)) {
	if n.Type == html.ElementNode {
		visit(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

// first returns the first descendant element named tag in document order.
func first(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
		if found := first(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func removeAll(n *html.Node, tag string) {
	var doomed []*html.Node
	walk(n, func(el *html.Node) {
		if el != n && el.Data == tag {
			doomed = append(doomed, el)
		}
	})
	for _, el := range doomed {
		if el.Parent != nil {
			el.Parent.RemoveChild(el)
		}
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
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

func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}

func innerHTML(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&sb, c)
	}
	return sb.String()
}

func outerHTML(n *html.Node) string {
	var sb strings.Builder
	_ = html.Render(&sb, n)
	return sb.String()
}
