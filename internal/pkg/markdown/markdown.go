// Package markdown converts Markdown into Editor.js documents.
package markdown

import (
	"bytes"
	"strings"
	"time"

	"github.com/inkwell-cms/inkwell/internal/pkg/editorjs"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

var parser = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
).Parser()

type listItem struct {
	Content string     `json:"content"`
	Items   []listItem `json:"items"`
}

type checkItem struct {
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

// ToDocument parses src and maps each top-level Markdown block to an Editor.js block.
func ToDocument(src []byte) editorjs.Document {
	root := parser.Parse(text.NewReader(src))
	doc := editorjs.Document{
		Time:    time.Now().UnixMilli(),
		Version: editorjs.Version,
		Blocks:  []editorjs.Block{},
	}
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if b, ok := convertBlock(n, src); ok {
			doc.Blocks = append(doc.Blocks, b)
		}
	}
	return doc
}

func convertBlock(n ast.Node, src []byte) (editorjs.Block, bool) {
	switch node := n.(type) {
	case *ast.Heading:
		return editorjs.NewBlock("header", map[string]interface{}{
			"text":  inlineHTML(node, src),
			"level": node.Level,
		}), true
	case *ast.Paragraph, *ast.TextBlock:
		if img, ok := soleImage(node); ok {
			return editorjs.NewBlock("image", map[string]interface{}{
				"file":    map[string]string{"url": string(img.Destination)},
				"caption": plain(img, src),
			}), true
		}
		t := inlineHTML(node, src)
		if strings.TrimSpace(t) == "" {
			return editorjs.Block{}, false
		}
		return editorjs.NewBlock("paragraph", map[string]string{"text": t}), true
	case *ast.List:
		if isTaskList(node) {
			return editorjs.NewBlock("checklist", map[string]interface{}{"items": checkItems(node, src)}), true
		}
		style := "unordered"
		if node.IsOrdered() {
			style = "ordered"
		}
		return editorjs.NewBlock("list", map[string]interface{}{
			"style": style,
			"items": listItems(node, src),
		}), true
	case *ast.Blockquote:
		var parts []string
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			parts = append(parts, inlineHTML(c, src))
		}
		return editorjs.NewBlock("quote", map[string]string{
			"text":      strings.Join(parts, "<br>"),
			"caption":   "",
			"alignment": "left",
		}), true
	case *ast.FencedCodeBlock:
		return editorjs.NewBlock("code", map[string]string{"code": lines(node, src)}), true
	case *ast.CodeBlock:
		return editorjs.NewBlock("code", map[string]string{"code": lines(node, src)}), true
	case *ast.ThematicBreak:
		return editorjs.NewBlock("delimiter", map[string]string{}), true
	case *ast.HTMLBlock:
		return editorjs.NewBlock("raw", map[string]string{"html": lines(node, src)}), true
	case *east.Table:
		return editorjs.NewBlock("table", map[string]interface{}{
			"withHeadings": true,
			"content":      tableRows(node, src),
		}), true
	}
	return editorjs.Block{}, false
}

func soleImage(n ast.Node) (*ast.Image, bool) {
	if n.ChildCount() != 1 {
		return nil, false
	}
	img, ok := n.FirstChild().(*ast.Image)
	return img, ok
}

func isTaskList(l *ast.List) bool {
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		if first := item.FirstChild(); first != nil {
			if _, ok := first.FirstChild().(*east.TaskCheckBox); ok {
				return true
			}
		}
	}
	return false
}

func checkItems(l *ast.List, src []byte) []checkItem {
	var out []checkItem
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		ci := checkItem{}
		if first := item.FirstChild(); first != nil {
			if box, ok := first.FirstChild().(*east.TaskCheckBox); ok {
				ci.Checked = box.IsChecked
			}
			ci.Text = strings.TrimSpace(inlineHTML(first, src))
		}
		out = append(out, ci)
	}
	return out
}

func listItems(l *ast.List, src []byte) []listItem {
	out := []listItem{}
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		li := listItem{Items: []listItem{}}
		var content []string
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if nested, ok := c.(*ast.List); ok {
				li.Items = append(li.Items, listItems(nested, src)...)
				continue
			}
			content = append(content, inlineHTML(c, src))
		}
		li.Content = strings.Join(content, "<br>")
		out = append(out, li)
	}
	return out
}

func tableRows(t *east.Table, src []byte) [][]string {
	var rows [][]string
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, inlineHTML(cell, src))
		}
		rows = append(rows, cells)
	}
	return rows
}

func lines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	l := n.Lines()
	for i := 0; i < l.Len(); i++ {
		seg := l.At(i)
		buf.Write(seg.Value(src))
	}
	return strings.TrimRight(buf.String(), "\n")
}

// plain concatenates the literal text under n.
func plain(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// inlineHTML renders the inline children of n as the HTML subset Editor.js stores.
func inlineHTML(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		writeInline(&b, c, src)
	}
	return b.String()
}

func writeInline(b *strings.Builder, n ast.Node, src []byte) {
	switch node := n.(type) {
	case *ast.Text:
		b.WriteString(html.EscapeString(string(node.Segment.Value(src))))
		switch {
		case node.HardLineBreak():
			b.WriteString("<br>")
		case node.SoftLineBreak():
			b.WriteByte(' ')
		}
	case *ast.String:
		b.WriteString(html.EscapeString(string(node.Value)))
	case *ast.Emphasis:
		tag := "i"
		if node.Level >= 2 {
			tag = "b"
		}
		b.WriteString("<" + tag + ">" + inlineHTML(node, src) + "</" + tag + ">")
	case *ast.CodeSpan:
		b.WriteString(`<code class="inline-code">` + html.EscapeString(plain(node, src)) + "</code>")
	case *ast.Link:
		b.WriteString(`<a href="` + html.EscapeString(string(node.Destination)) + `">` + inlineHTML(node, src) + "</a>")
	case *ast.AutoLink:
		u := string(node.URL(src))
		b.WriteString(`<a href="` + html.EscapeString(u) + `">` + html.EscapeString(string(node.Label(src))) + "</a>")
	case *ast.Image:
		// Inline images degrade to their alt text.
		b.WriteString(html.EscapeString(plain(node, src)))
	case *east.Strikethrough:
		b.WriteString("<s>" + inlineHTML(node, src) + "</s>")
	case *east.TaskCheckBox:
	case *ast.RawHTML:
		segs := node.Segments
		for i := 0; i < segs.Len(); i++ {
			seg := segs.At(i)
			b.WriteString(html.EscapeString(string(seg.Value(src))))
		}
	default:
		b.WriteString(inlineHTML(node, src))
	}
}
