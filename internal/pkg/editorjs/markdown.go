package editorjs

import (
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Markdown renders doc as CommonMark. Inline bold, italic, code and links
// survive; other inline markup is dropped.
func Markdown(doc Document) string {
	parts := make([]string, 0, len(doc.Blocks))
	for _, blk := range doc.Blocks {
		if md := blockMarkdown(blk); md != "" {
			parts = append(parts, md)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "\n\n") + "\n"
}

func blockMarkdown(blk Block) string {
	switch blk.Type {
	case "paragraph":
		var d textData
		if json.Unmarshal(blk.Data, &d) == nil {
			return inlineMarkdown(d.Text)
		}
	case "header":
		var d textData
		if json.Unmarshal(blk.Data, &d) == nil {
			level := d.Level
			if level < 1 || level > 6 {
				level = 2
			}
			return strings.Repeat("#", level) + " " + inlineMarkdown(d.Text)
		}
	case "quote":
		var d quoteData
		if json.Unmarshal(blk.Data, &d) == nil {
			out := "> " + strings.ReplaceAll(inlineMarkdown(d.Text), "\n", "\n> ")
			if c := inlineMarkdown(d.Caption); c != "" {
				out += "\n>\n> -- " + c
			}
			return out
		}
	case "list", "nestedList":
		var d listData
		if json.Unmarshal(blk.Data, &d) == nil {
			var b strings.Builder
			listMarkdown(&b, d.Style == "ordered", d.Items, 0)
			return strings.TrimRight(b.String(), "\n")
		}
	case "checklist":
		var d checklistData
		if json.Unmarshal(blk.Data, &d) == nil {
			lines := make([]string, 0, len(d.Items))
			for _, it := range d.Items {
				mark := " "
				if it.Checked {
					mark = "x"
				}
				lines = append(lines, "- ["+mark+"] "+inlineMarkdown(it.Text))
			}
			return strings.Join(lines, "\n")
		}
	case "code":
		var d codeData
		if json.Unmarshal(blk.Data, &d) == nil {
			fence := "```"
			for strings.Contains(d.Code, fence) {
				fence += "`"
			}
			return fence + "\n" + strings.TrimRight(d.Code, "\n") + "\n" + fence
		}
	case "delimiter":
		return "---"
	case "image":
		var d imageData
		if json.Unmarshal(blk.Data, &d) == nil && d.src() != "" {
			return "![" + StripTags(d.Caption) + "](" + d.src() + ")"
		}
	case "embed":
		var d embedData
		if json.Unmarshal(blk.Data, &d) == nil && d.Source != "" {
			return "<" + d.Source + ">"
		}
	case "table":
		var d tableData
		if json.Unmarshal(blk.Data, &d) == nil && len(d.Content) > 0 {
			return tableMarkdown(d)
		}
	case "warning":
		var d warningData
		if json.Unmarshal(blk.Data, &d) == nil {
			return "> **" + inlineMarkdown(d.Title) + "** " + inlineMarkdown(d.Message)
		}
	case "raw":
		var d rawData
		if json.Unmarshal(blk.Data, &d) == nil {
			return strings.TrimSpace(SanitizeRaw(d.HTML))
		}
	}
	return ""
}

func listMarkdown(b *strings.Builder, ordered bool, items []json.RawMessage, depth int) {
	indent := strings.Repeat("   ", depth)
	for i, raw := range items {
		item := decodeListItem(raw)
		marker := "- "
		if ordered {
			marker = strconv.Itoa(i+1) + ". "
		}
		b.WriteString(indent + marker + inlineMarkdown(item.Content) + "\n")
		if len(item.Items) > 0 {
			listMarkdown(b, ordered, item.Items, depth+1)
		}
	}
}

func tableMarkdown(d tableData) string {
	cols := 0
	for _, row := range d.Content {
		if len(row) > cols {
			cols = len(row)
		}
	}
	row := func(cells []string) string {
		out := make([]string, cols)
		for i := range out {
			if i < len(cells) {
				out[i] = strings.ReplaceAll(inlineMarkdown(cells[i]), "|", "\\|")
			}
		}
		return "| " + strings.Join(out, " | ") + " |"
	}
	rows := d.Content
	header := make([]string, cols)
	if d.WithHeadings {
		header = rows[0]
		rows = rows[1:]
	}
	sep := make([]string, cols)
	for i := range sep {
		sep[i] = "---"
	}
	lines := []string{row(header), "| " + strings.Join(sep, " | ") + " |"}
	for _, r := range rows {
		lines = append(lines, row(r))
	}
	return strings.Join(lines, "\n")
}

// inlineMarkdown converts Editor.js inline HTML to Markdown.
func inlineMarkdown(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	var b strings.Builder
	var hrefs []string
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.WriteString(string(z.Text()))
		case html.StartTagToken, html.EndTagToken:
			tok := z.Token()
			closing := tok.Type == html.EndTagToken
			switch tok.Data {
			case "b", "strong":
				b.WriteString("**")
			case "i", "em":
				b.WriteString("_")
			case "code":
				b.WriteString("`")
			case "br":
				b.WriteString("  \n")
			case "a":
				if closing {
					if n := len(hrefs); n > 0 {
						if hrefs[n-1] != "" {
							b.WriteString("](" + hrefs[n-1] + ")")
						}
						hrefs = hrefs[:n-1]
					}
					continue
				}
				href := ""
				for _, a := range tok.Attr {
					if a.Key == "href" && SafeURL(a.Val) {
						href = a.Val
					}
				}
				hrefs = append(hrefs, href)
				if href != "" {
					b.WriteString("[")
				}
			}
		case html.SelfClosingTagToken:
			if z.Token().Data == "br" {
				b.WriteString("  \n")
			}
		}
	}
}
