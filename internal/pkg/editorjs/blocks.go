package editorjs

import "encoding/json"

type textData struct {
	Text  string `json:"text"`
	Level int    `json:"level"`
}

type quoteData struct {
	Text    string `json:"text"`
	Caption string `json:"caption"`
}

type listData struct {
	Style string            `json:"style"`
	Items []json.RawMessage `json:"items"`
}

// listItem is the nested-list item shape; older lists use bare strings.
type listItem struct {
	Content string            `json:"content"`
	Items   []json.RawMessage `json:"items"`
	Meta    struct {
		Checked bool `json:"checked"`
	} `json:"meta"`
}

type checklistData struct {
	Items []struct {
		Text    string `json:"text"`
		Checked bool   `json:"checked"`
	} `json:"items"`
}

type codeData struct {
	Code string `json:"code"`
}

type tableData struct {
	WithHeadings bool       `json:"withHeadings"`
	Content      [][]string `json:"content"`
}

type warningData struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

type imageData struct {
	File struct {
		URL string `json:"url"`
	} `json:"file"`
	URL            string `json:"url"`
	Caption        string `json:"caption"`
	WithBorder     bool   `json:"withBorder"`
	Stretched      bool   `json:"stretched"`
	WithBackground bool   `json:"withBackground"`
}

func (d imageData) src() string {
	if d.File.URL != "" {
		return d.File.URL
	}
	return d.URL
}

type embedData struct {
	Service string `json:"service"`
	Source  string `json:"source"`
	Embed   string `json:"embed"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Caption string `json:"caption"`
}

type rawData struct {
	HTML string `json:"html"`
}

// decodeListItem accepts either a bare string or a nested item object.
func decodeListItem(raw json.RawMessage) listItem {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return listItem{Content: s}
	}
	var item listItem
	_ = json.Unmarshal(raw, &item)
	return item
}
