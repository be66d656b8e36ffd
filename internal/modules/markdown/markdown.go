// Package markdown converts between Markdown and stored Editor.js content.
package markdown

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
	"github.com/inkwell-cms/inkwell/internal/pkg/editorjs"
	mdpkg "github.com/inkwell-cms/inkwell/internal/pkg/markdown"
	"github.com/inkwell-cms/inkwell/internal/pkg/pagination"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
	"github.com/inkwell-cms/inkwell/internal/pkg/slug"
	"github.com/inkwell-cms/inkwell/internal/repository"
	"gopkg.in/yaml.v3"
)

const exportBatch = pagination.MaxSize

type Handler struct {
	posts repository.PostRepository
	pages repository.PageRepository
	now   func() time.Time
}

func NewHandler(posts repository.PostRepository, pages repository.PageRepository) *Handler {
	return &Handler{posts: posts, pages: pages, now: func() time.Time { return time.Now().UTC() }}
}

// RegisterAdminRoutes mounts /content. exportGuard restricts the full export.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup, exportGuard gin.HandlerFunc) {
	g := rg.Group("/content")
	g.POST("/markdown", h.convert)
	g.GET("/export", exportGuard, h.export)
}

type convertDTO struct {
	Markdown string `json:"markdown" binding:"required"`
}

type heading struct {
	Level  int    `json:"level"`
	Text   string `json:"text"`
	Anchor string `json:"anchor"`
}

type convertResponse struct {
	Content     editorjs.Document `json:"content"`
	Body        string            `json:"body"`
	Excerpt     string            `json:"excerpt"`
	Headings    []heading         `json:"headings"`
	WordCount   int               `json:"word_count"`
	ReadingTime int               `json:"reading_time"`
}

// convert POST /content/markdown
func (h *Handler) convert(c *gin.Context) {
	var dto convertDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	doc := mdpkg.ToDocument([]byte(dto.Markdown))
	body := editorjs.PlainText(doc)
	response.OK(c, convertResponse{
		Content:     doc,
		Body:        body,
		Excerpt:     editorjs.Excerpt(body, 200),
		Headings:    outline(doc),
		WordCount:   editorjs.WordCount(body),
		ReadingTime: editorjs.ReadingTime(body, 200),
	})
}

// outline lists header blocks with anchors unique within the document.
func outline(doc editorjs.Document) []heading {
	out := []heading{}
	seen := map[string]int{}
	for _, blk := range doc.Blocks {
		if blk.Type != "header" {
			continue
		}
		var d struct {
			Text  string `json:"text"`
			Level int    `json:"level"`
		}
		if json.Unmarshal(blk.Data, &d) != nil {
			continue
		}
		text := editorjs.StripTags(d.Text)
		anchor := slug.Make(text)
		if anchor == "" {
			anchor = "section"
		}
		seen[anchor]++
		if n := seen[anchor]; n > 1 {
			anchor = fmt.Sprintf("%s-%d", anchor, n)
		}
		out = append(out, heading{Level: d.Level, Text: text, Anchor: anchor})
	}
	return out
}

type exportMeta struct {
	Title      string     `yaml:"title"`
	Slug       string     `yaml:"slug"`
	Excerpt    string     `yaml:"excerpt,omitempty"`
	Status     string     `yaml:"status"`
	Date       *time.Time `yaml:"date,omitempty"`
	Image      string     `yaml:"image,omitempty"`
	Template   string     `yaml:"template,omitempty"`
	Categories []string   `yaml:"categories,omitempty"`
	Tags       []string   `yaml:"tags,omitempty"`
}

// export GET /content/export
func (h *Handler) export(c *gin.Context) {
	buf, err := h.Export(c.Request.Context())
	if err != nil {
		apperr.Write(c, err)
		return
	}
	name := fmt.Sprintf("inkwell-export-%s.zip", h.now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

// Export writes every post and page as Markdown with YAML front matter into
// a zip archive. Post files round-trip through the post import endpoint.
func (h *Handler) Export(ctx context.Context) (*bytes.Buffer, error) {
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)

	for page := 1; ; page++ {
		posts, meta, err := h.posts.List(ctx, repository.PostFilter{}, pagination.New(page, exportBatch))
		if err != nil {
			return nil, err
		}
		for i := range posts {
			if err := writeEntry(w, "posts/"+posts[i].Slug+".md", postMeta(&posts[i]), posts[i].Content); err != nil {
				return nil, err
			}
		}
		if !meta.HasNextPage {
			break
		}
	}
	for page := 1; ; page++ {
		pages, meta, err := h.pages.List(ctx, repository.PageFilter{}, pagination.New(page, exportBatch))
		if err != nil {
			return nil, err
		}
		for i := range pages {
			p := &pages[i]
			m := exportMeta{Title: p.Title, Slug: p.Slug, Status: p.Status, Date: p.PublishedAt, Template: p.Template}
			if err := writeEntry(w, "pages/"+p.Slug+".md", m, p.Content); err != nil {
				return nil, err
			}
		}
		if !meta.HasNextPage {
			break
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf, nil
}

func postMeta(p *models.PostModel) exportMeta {
	m := exportMeta{
		Title: p.Title, Slug: p.Slug, Excerpt: p.Excerpt, Status: p.Status,
		Date: p.PublishedAt, Image: p.FeaturedImage,
	}
	for _, cat := range p.Categories {
		m.Categories = append(m.Categories, cat.Slug)
	}
	for _, tag := range p.Tags {
		m.Tags = append(m.Tags, tag.Slug)
	}
	return m
}

func writeEntry(w *zip.Writer, name string, meta exportMeta, content []byte) error {
	doc, err := editorjs.Parse(content)
	if err != nil {
		return fmt.Errorf("export %s: %w", name, err)
	}
	header, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("export %s: %w", name, err)
	}
	f, err := w.Create(name)
	if err != nil {
		return err
	}
	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(header)
	b.WriteString("---\n\n")
	b.WriteString(editorjs.Markdown(doc))
	_, err = f.Write(b.Bytes())
	return err
}
