package editorjs

import (
	"encoding/json"
	"html/template"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// RenderHTML renders the document for the public site. Inline markup inside
// text fields is kept after sanitizing; everything else is escaped.
func RenderHTML(doc Document) template.HTML {
	var b strings.Builder
	for _, blk := range doc.Blocks {
		renderBlock(&b, blk)
	}
	return template.HTML(b.String())
}

func renderBlock(b *strings.Builder, blk Block) {
	switch blk.Type {
	case "paragraph":
		var d textData
		if json.Unmarshal(blk.Data, &d) == nil && strings.TrimSpace(d.Text) != "" {
			b.WriteString("<p>" + SanitizeInline(d.Text) + "</p>\n")
		}
	case "header":
		var d textData
		if json.Unmarshal(blk.Data, &d) != nil {
			return
		}
		level := d.Level
		if level < 1 || level > 6 {
			level = 2
		}
		tag := "h" + strconv.Itoa(level)
		b.WriteString("<" + tag + ">" + SanitizeInline(d.Text) + "</" + tag + ">\n")
	case "quote":
		var d quoteData
		if json.Unmarshal(blk.Data, &d) != nil {
			return
		}
		b.WriteString("<blockquote><p>" + SanitizeInline(d.Text) + "</p>")
		if d.Caption != "" {
			b.WriteString("<cite>" + SanitizeInline(d.Caption) + "</cite>")
		}
		b.WriteString("</blockquote>\n")
	case "list", "nestedList":
		var d listData
		if json.Unmarshal(blk.Data, &d) != nil {
			return
		}
		renderList(b, d.Style, d.Items)
		b.WriteByte('\n')
	case "checklist":
		var d checklistData
		if json.Unmarshal(blk.Data, &d) != nil {
			return
		}
		b.WriteString(`<ul class="checklist">`)
		for _, it := range d.Items {
			if it.Checked {
				b.WriteString(`<li class="checked">`)
			} else {
				b.WriteString("<li>")
			}
			b.WriteString(SanitizeInline(it.Text) + "</li>")
		}
		b.WriteString("</ul>\n")
	case "code":
		var d codeData
		if json.Unmarshal(blk.Data, &d) == nil {
			b.WriteString("<pre><code>" + html.EscapeString(d.Code) + "</code></pre>\n")
		}
	case "table":
		var d tableData
		if json.Unmarshal(blk.Data, &d) != nil {
			return
		}
		b.WriteString("<table>")
		for i, row := range d.Content {
			cell := "td"
			if i == 0 && d.WithHeadings {
				cell = "th"
			}
			b.WriteString("<tr>")
			for _, c := range row {
				b.WriteString("<" + cell + ">" + SanitizeInline(c) + "</" + cell + ">")
			}
			b.WriteString("</tr>")
		}
		b.WriteString("</table>\n")
	case "warning":
		var d warningData
		if json.Unmarshal(blk.Data, &d) != nil {
			return
		}
		b.WriteString(`<div class="warning"><strong>` + SanitizeInline(d.Title) + "</strong><p>" +
			SanitizeInline(d.Message) + "</p></div>\n")
	case "delimiter":
		b.WriteString("<hr>\n")
	case "image":
		var d imageData
		if json.Unmarshal(blk.Data, &d) != nil || !SafeURL(d.src()) {
			return
		}
		classes := []string{"image"}
		if d.WithBorder {
			classes = append(classes, "with-border")
		}
		if d.Stretched {
			classes = append(classes, "stretched")
		}
		if d.WithBackground {
			classes = append(classes, "with-background")
		}
		b.WriteString(`<figure class="` + strings.Join(classes, " ") + `"><img src="` + html.EscapeString(d.src()) +
			`" alt="` + html.EscapeString(Clean(d.Caption)) + `" loading="lazy">`)
		if d.Caption != "" {
			b.WriteString("<figcaption>" + SanitizeInline(d.Caption) + "</figcaption>")
		}
		b.WriteString("</figure>\n")
	case "embed":
		var d embedData
		if json.Unmarshal(blk.Data, &d) != nil || !strings.HasPrefix(strings.ToLower(d.Embed), "https://") {
			return
		}
		b.WriteString(`<figure class="embed"><iframe src="` + html.EscapeString(d.Embed) + `"`)
		if d.Width > 0 && d.Height > 0 {
			b.WriteString(` width="` + strconv.Itoa(d.Width) + `" height="` + strconv.Itoa(d.Height) + `"`)
		}
		b.WriteString(` frameborder="0" allowfullscreen></iframe>`)
		if d.Caption != "" {
			b.WriteString("<figcaption>" + SanitizeInline(d.Caption) + "</figcaption>")
		}
		b.WriteString("</figure>\n")
	case "raw":
		var d rawData
		if json.Unmarshal(blk.Data, &d) == nil {
			b.WriteString(SanitizeRaw(d.HTML) + "\n")
		}
	}
}

func renderList(b *strings.Builder, style string, items []json.RawMessage) {
	tag := "ul"
	if style == "ordered" {
		tag = "ol"
	}
	b.WriteString("<" + tag + ">")
	for _, raw := range items {
		item := decodeListItem(raw)
		b.WriteString("<li>" + SanitizeInline(item.Content))
		if len(item.Items) > 0 {
			renderList(b, style, item.Items)
		}
		b.WriteString("</li>")
	}
	b.WriteString("</" + tag + ">")
}
