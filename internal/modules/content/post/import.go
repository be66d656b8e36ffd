package post

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
	"gopkg.in/yaml.v3"
)

// frontMatter is the optional YAML header of an imported Markdown file.
type frontMatter struct {
	Title      string     `yaml:"title"`
	Slug       string     `yaml:"slug"`
	Excerpt    string     `yaml:"excerpt"`
	Status     string     `yaml:"status"`
	Date       *time.Time `yaml:"date"`
	Image      string     `yaml:"image"`
	Categories []string   `yaml:"categories"`
	Tags       []string   `yaml:"tags"`
}

var fence = []byte("---")

// splitFrontMatter separates a leading "---" delimited YAML block from the body.
func splitFrontMatter(src []byte) (frontMatter, []byte, error) {
	var fm frontMatter
	src = bytes.TrimPrefix(src, []byte("\xef\xbb\xbf"))
	trimmed := bytes.TrimLeft(src, "\r\n")
	if !bytes.HasPrefix(trimmed, fence) {
		return fm, src, nil
	}
	rest := trimmed[len(fence):]
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 || len(bytes.TrimSpace(rest[:nl])) != 0 {
		return fm, src, nil
	}
	rest = rest[nl+1:]

	end := -1
	for off := 0; off < len(rest); {
		line := rest[off:]
		if i := bytes.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
		}
		if bytes.Equal(bytes.TrimRight(line, "\r "), fence) {
			end = off
			break
		}
		off += len(line) + 1
	}
	if end < 0 {
		return fm, src, nil
	}
	if err := yaml.Unmarshal(rest[:end], &fm); err != nil {
		return fm, nil, apperr.Invalid("file", "front matter: %v", err)
	}
	body := rest[end+len(fence):]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}
	return fm, body, nil
}

// Import creates a post from a Markdown file. Front matter supplies the
// metadata; categories and tags are matched by slug and unknown ones ignored.
func (s *Service) Import(ctx context.Context, actor *models.UserModel, filename string, src []byte) (*models.PostModel, error) {
	fm, body, err := splitFrontMatter(src)
	if err != nil {
		return nil, err
	}
	md := string(body)

	title := strings.TrimSpace(fm.Title)
	if title == "" {
		title, md = leadingHeading(md)
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}

	dto := &CreatePostDTO{
		Title:         title,
		Slug:          fm.Slug,
		Markdown:      &md,
		Excerpt:       fm.Excerpt,
		FeaturedImage: fm.Image,
		Status:        strings.ToLower(strings.TrimSpace(fm.Status)),
		PublishedAt:   fm.Date,
	}
	for _, name := range fm.Categories {
		if c, err := s.categories.FindBySlug(ctx, name); err == nil {
			dto.CategoryIDs = append(dto.CategoryIDs, c.ID)
		}
	}
	for _, name := range fm.Tags {
		if t, err := s.tags.FindBySlug(ctx, name); err == nil {
			dto.TagIDs = append(dto.TagIDs, t.ID)
		}
	}
	return s.Create(ctx, actor, dto)
}

// leadingHeading pops a first-line "# Title" off md.
func leadingHeading(md string) (string, string) {
	trimmed := strings.TrimLeft(md, "\r\n\t ")
	if !strings.HasPrefix(trimmed, "# ") {
		return "", md
	}
	line, rest, _ := strings.Cut(trimmed, "\n")
	return strings.TrimSpace(strings.TrimPrefix(line, "# ")), rest
}
