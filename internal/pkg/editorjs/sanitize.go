package editorjs

import (
	"strings"

	"golang.org/x/net/html"
)

// policy decides which tags and attributes survive sanitizing.
type policy struct {
	// tags maps an allowed tag to its allowed attributes; nil allows any tag
	// not listed in blocked.
	tags    map[string][]string
	blocked map[string]bool
}

var inlinePolicy = policy{
	tags: map[string][]string{
		"a":      {"href", "target", "rel", "title"},
		"b":      nil,
		"strong": nil,
		"i":      nil,
		"em":     nil,
		"u":      nil,
		"s":      nil,
		"mark":   {"class"},
		"code":   {"class"},
		"sup":    nil,
		"sub":    nil,
		"br":     nil,
		"span":   {"class"},
	},
}

var rawPolicy = policy{
	blocked: map[string]bool{
		"script": true, "style": true, "iframe": true, "object": true,
		"embed": true, "form": true, "input": true, "button": true,
		"link": true, "meta": true, "base": true,
	},
}

var voidTags = map[string]bool{
	"br": true, "hr": true, "img": true, "wbr": true, "source": true, "col": true,
}

// SanitizeInline keeps the inline formatting Editor.js produces and escapes everything else.
func SanitizeInline(s string) string {
	return sanitize(s, inlinePolicy)
}

// SanitizeRaw keeps most markup from raw HTML blocks but removes active content
// and event-handler attributes.
func SanitizeRaw(s string) string {
	return sanitize(s, rawPolicy)
}

func sanitize(s string, p policy) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			if skip == 0 {
				b.WriteString(html.EscapeString(string(z.Text())))
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if p.blocked[tok.Data] {
				if tt == html.StartTagToken && !voidTags[tok.Data] {
					skip++
				}
				continue
			}
			attrs, ok := p.allow(tok.Data)
			if !ok || skip > 0 {
				continue
			}
			b.WriteByte('<')
			b.WriteString(tok.Data)
			for _, a := range tok.Attr {
				if !attrAllowed(a, attrs) {
					continue
				}
				b.WriteByte(' ')
				b.WriteString(a.Key)
				b.WriteString(`="`)
				b.WriteString(html.EscapeString(a.Val))
				b.WriteByte('"')
			}
			b.WriteByte('>')
		case html.EndTagToken:
			tok := z.Token()
			if p.blocked[tok.Data] {
				if skip > 0 {
					skip--
				}
				continue
			}
			if _, ok := p.allow(tok.Data); ok && skip == 0 && !voidTags[tok.Data] {
				b.WriteString("</")
				b.WriteString(tok.Data)
				b.WriteByte('>')
			}
		}
	}
}

// allow returns the permitted attributes for tag; a nil slice with ok=true under
// a permissive policy means "any safe attribute".
func (p policy) allow(tag string) ([]string, bool) {
	if p.tags == nil {
		return nil, !p.blocked[tag]
	}
	attrs, ok := p.tags[tag]
	if ok && attrs == nil {
		attrs = []string{}
	}
	return attrs, ok
}

func attrAllowed(a html.Attribute, allowed []string) bool {
	key := strings.ToLower(a.Key)
	if strings.HasPrefix(key, "on") || key == "style" || key == "srcdoc" {
		return false
	}
	if (key == "href" || key == "src" || key == "action") && !SafeURL(a.Val) {
		return false
	}
	if allowed == nil {
		return true
	}
	for _, k := range allowed {
		if k == key {
			return true
		}
	}
	return false
}

// SafeURL accepts http(s), mailto, tel and relative URLs.
func SafeURL(u string) bool {
	v := strings.ToLower(strings.TrimSpace(u))
	if v == "" {
		return false
	}
	if strings.HasPrefix(v, "/") || strings.HasPrefix(v, "#") || strings.HasPrefix(v, "?") {
		return true
	}
	for _, scheme := range []string{"http://", "https://", "mailto:", "tel:"} {
		if strings.HasPrefix(v, scheme) {
			return true
		}
	}
	return !strings.Contains(v, ":")
}
