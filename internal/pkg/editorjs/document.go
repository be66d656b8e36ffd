// Package editorjs models Editor.js documents: parsing, plain-text extraction
// and HTML rendering.
package editorjs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Version is stamped on documents created server-side.
const Version = "2.28.2"

// Document is an Editor.js output object.
type Document struct {
	Time    int64   `json:"time,omitempty"`
	Blocks  []Block `json:"blocks"`
	Version string  `json:"version,omitempty"`
}

// Block is a single Editor.js block; Data is decoded per Type.
type Block struct {
	ID   string          `json:"id,omitempty"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Parse decodes raw into a Document. Empty input yields an empty document and
// input that is not a JSON object is kept as a single legacy paragraph.
func Parse(raw []byte) (Document, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Document{Blocks: []Block{}}, nil
	}

	if trimmed[0] != '{' || !json.Valid(trimmed) {
		text := string(trimmed)
		var s string
		if json.Unmarshal(trimmed, &s) == nil {
			text = s
		}
		return FromText(text), nil
	}

	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return Document{}, fmt.Errorf("decode editor.js document: %w", err)
	}
	if doc.Blocks == nil {
		doc.Blocks = []Block{}
	}
	for i, b := range doc.Blocks {
		if strings.TrimSpace(b.Type) == "" {
			return Document{}, fmt.Errorf("block %d has no type", i)
		}
		if len(b.Data) == 0 {
			doc.Blocks[i].Data = json.RawMessage("{}")
		}
	}
	return doc, nil
}

// FromText wraps legacy plain text into a one-paragraph document.
func FromText(text string) Document {
	text = strings.TrimSpace(text)
	if text == "" {
		return Document{Blocks: []Block{}, Version: Version}
	}
	escaped := strings.ReplaceAll(html.EscapeString(text), "\n", "<br>")
	return Document{
		Time:    time.Now().UnixMilli(),
		Version: Version,
		Blocks:  []Block{NewBlock("paragraph", map[string]string{"text": escaped})},
	}
}

// NewBlock builds a block from any JSON-encodable data value.
func NewBlock(kind string, data interface{}) Block {
	b, err := json.Marshal(data)
	if err != nil {
		b = []byte("{}")
	}
	return Block{Type: kind, Data: b}
}

// Marshal encodes the document.
func (d Document) Marshal() ([]byte, error) {
	if d.Blocks == nil {
		d.Blocks = []Block{}
	}
	return json.Marshal(d)
}

// IsEmpty reports whether the document has no blocks.
func (d Document) IsEmpty() bool {
	return len(d.Blocks) == 0
}

// Normalize parses raw and returns its canonical JSON encoding together with
// the plain text used for the body column.
func Normalize(raw []byte) ([]byte, string, error) {
	doc, err := Parse(raw)
	if err != nil {
		return nil, "", err
	}
	out, err := doc.Marshal()
	if err != nil {
		return nil, "", err
	}
	return out, PlainText(doc), nil
}

// Images returns the URLs of image blocks in document order.
func (d Document) Images() []string {
	var urls []string
	for _, b := range d.Blocks {
		if b.Type != "image" {
			continue
		}
		var data imageData
		if json.Unmarshal(b.Data, &data) == nil {
			if u := data.src(); u != "" {
				urls = append(urls, u)
			}
		}
	}
	return urls
}
