package markdown

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-cms/inkwell/internal/database/dbtest"
	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/pkg/editorjs"
	"github.com/inkwell-cms/inkwell/internal/repository"
)

func TestConvert(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := dbtest.New(t)
	r := gin.New()
	pass := func(c *gin.Context) { c.Next() }
	NewHandler(repository.NewPostRepository(db), repository.NewPageRepository(db)).RegisterAdminRoutes(r.Group("/admin"), pass)

	body, _ := json.Marshal(convertDTO{Markdown: "# Intro\n\nHello **world**.\n\n## Intro\n\n- a\n- b\n"})
	req := httptest.NewRequest(http.MethodPost, "/admin/content/markdown", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var res convertResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Content.Blocks) != 4 {
		t.Errorf("blocks = %d, want 4", len(res.Content.Blocks))
	}
	if !strings.Contains(res.Body, "Hello world.") {
		t.Errorf("body = %q", res.Body)
	}
	if len(res.Headings) != 2 || res.Headings[0].Anchor != "intro" || res.Headings[1].Anchor != "intro-2" {
		t.Errorf("headings = %+v", res.Headings)
	}
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	posts := repository.NewPostRepository(db)
	pages := repository.NewPageRepository(db)

	cat := &models.CategoryModel{Name: "News", Slug: "news"}
	if err := db.Create(cat).Error; err != nil {
		t.Fatal(err)
	}
	doc := editorjs.Document{Blocks: []editorjs.Block{
		editorjs.NewBlock("header", map[string]interface{}{"text": "Hi", "level": 2}),
		editorjs.NewBlock("paragraph", map[string]string{"text": "Body <b>text</b>"}),
	}}
	raw, _ := doc.Marshal()
	published := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := &models.PostModel{Title: "First", Slug: "first", Content: raw, Status: models.StatusPublished, PublishedAt: &published}
	ids := []string{cat.ID}
	if err := posts.Create(ctx, p, repository.PostRelations{CategoryIDs: &ids}); err != nil {
		t.Fatal(err)
	}
	if err := pages.Create(ctx, &models.PageModel{Title: "About", Slug: "about", Content: raw, Status: models.StatusDraft}); err != nil {
		t.Fatal(err)
	}

	buf, err := NewHandler(posts, pages).Export(ctx)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	files := map[string]string{}
	for _, f := range zr.File {
		rc, _ := f.Open()
		data, _ := io.ReadAll(rc)
		rc.Close()
		files[f.Name] = string(data)
	}

	post, ok := files["posts/first.md"]
	if !ok {
		t.Fatalf("archive files = %v", files)
	}
	for _, want := range []string{"title: First\n", "categories:\n    - news\n", "## Hi", "Body **text**"} {
		if !strings.Contains(post, want) {
			t.Errorf("post export missing %q:\n%s", want, post)
		}
	}
	if _, ok := files["pages/about.md"]; !ok {
		t.Errorf("page missing from archive")
	}
}
