package editorjs

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// PlainText extracts readable text from every block, one block per line.
func PlainText(doc Document) string {
	lines := make([]string, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		if t := blockText(b); t != "" {
			lines = append(lines, t)
		}
	}
	return strings.Join(lines, "\n")
}

func blockText(b Block) string {
	switch b.Type {
	case "paragraph", "header":
		var d textData
		if json.Unmarshal(b.Data, &d) != nil {
			return ""
		}
		return Clean(d.Text)
	case "quote":
		var d quoteData
		if json.Unmarshal(b.Data, &d) != nil {
			return ""
		}
		return joinNonEmpty(Clean(d.Text), Clean(d.Caption))
	case "list", "nestedList":
		var d listData
		if json.Unmarshal(b.Data, &d) != nil {
			return ""
		}
		return joinNonEmpty(listText(d.Items)...)
	case "checklist":
		var d checklistData
		if json.Unmarshal(b.Data, &d) != nil {
			return ""
		}
		parts := make([]string, 0, len(d.Items))
		for _, it := range d.Items {
			parts = append(parts, Clean(it.Text))
		}
		return joinNonEmpty(parts...)
	case "code":
		var d codeData
		if json.Unmarshal(b.Data, &d) != nil {
			return ""
		}
		return strings.TrimSpace(d.Code)
	case "table":
		var d tableData
		if json.Unmarshal(b.Data, &d) != nil {
			return ""
		}
		rows := make([]string, 0, len(d.Content))
		for _, row := range d.Content {
			cells := make([]string, 0, len(row))
			for _, cell := range row {
				if c := Clean(cell); c != "" {
					cells = append(cells, c)
				}
			}
			rows = append(rows, strings.Join(cells, " "))
		}
		return joinNonEmpty(rows...)
	case "warning":
		var d warningData
		if json.Unmarshal(b.Data, &d) != nil {
			return ""
		}
		return joinNonEmpty(Clean(d.Title), Clean(d.Message))
	case "image":
		var d imageData
		if json.Unmarshal(b.Data, &d) != nil {
			return ""
		}
		return Clean(d.Caption)
	case "embed":
		var d embedData
		if json.Unmarshal(b.Data, &d) != nil {
			return ""
		}
		return Clean(d.Caption)
	case "raw":
		var d rawData
		if json.Unmarshal(b.Data, &d) != nil {
			return ""
		}
		return Clean(d.HTML)
	default:
		// delimiter and unknown tools carry no text.
		return ""
	}
}

func listText(items []json.RawMessage) []string {
	var out []string
	for _, raw := range items {
		item := decodeListItem(raw)
		if c := Clean(item.Content); c != "" {
			out = append(out, c)
		}
		out = append(out, listText(item.Items)...)
	}
	return out
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}

var inlineTags = map[string]bool{
	"a": true, "b": true, "strong": true, "i": true, "em": true, "u": true, "s": true,
	"mark": true, "code": true, "span": true, "sup": true, "sub": true, "font": true,
}

// Clean strips tags, decodes entities and collapses whitespace.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(StripTags(s)), " ")
}

// StripTags returns the text content of an HTML fragment. Line breaks and
// block boundaries become spaces; script and style bodies are dropped.
func StripTags(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch tag := string(name); {
			case tag == "script" || tag == "style":
				skip++
			case !inlineTags[tag]:
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch tag := string(name); {
			case tag == "script" || tag == "style":
				if skip > 0 {
					skip--
				}
			case !inlineTags[tag]:
				b.WriteByte(' ')
			}
		}
	}
}

// Excerpt returns at most n runes of text, cut at a word boundary and
// suffixed with "..." when shortened.
func Excerpt(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:n])
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	cut = strings.TrimRight(cut, " ,.;:-")
	return cut + "..."
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// ReadingTime estimates minutes to read text at wordsPerMinute (200 when <= 0).
func ReadingTime(text string, wordsPerMinute int) int {
	if wordsPerMinute <= 0 {
		wordsPerMinute = 200
	}
	words := WordCount(text)
	if words == 0 {
		return 0
	}
	return (words + wordsPerMinute - 1) / wordsPerMinute
}
