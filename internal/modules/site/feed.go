package site

import (
	"context"
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/modules/content/post"
	"github.com/inkwell-cms/inkwell/internal/modules/search"
	"github.com/inkwell-cms/inkwell/internal/pkg/pagination"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
	"go.uber.org/zap"
)

const feedSize = 20

type rssDoc struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	GUID        rssGUID  `xml:"guid"`
	PubDate     string   `xml:"pubDate,omitempty"`
	Author      string   `xml:"author,omitempty"`
	Categories  []string `xml:"category"`
	Description string   `xml:"description"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// rss GET /blog/rss
func (h *Handler) rss(c *gin.Context) {
	posts, _, err := h.src.Posts.ListPublished(c.Request.Context(), post.ListQuery{}, pagination.New(1, feedSize))
	if err != nil {
		h.logger.Error("feed failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "error generating feed")
		return
	}
	body, err := buildRSS(h.site.Title, h.site.Description, h.baseURL(), posts, h.now())
	if err != nil {
		h.logger.Error("feed failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "error generating feed")
		return
	}
	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", body)
}

func buildRSS(title, desc, base string, posts []models.PostModel, now time.Time) ([]byte, error) {
	doc := rssDoc{
		Version: "2.0",
		Channel: rssChannel{
			Title:         title,
			Link:          base + "/blog",
			Description:   desc,
			LastBuildDate: now.Format(time.RFC1123Z),
		},
	}
	for i := range posts {
		p := &posts[i]
		link := base + search.URLFor(search.KindPost, p.Slug)
		item := rssItem{
			Title:       p.Title,
			Link:        link,
			GUID:        rssGUID{Value: p.ID},
			Description: p.Excerpt,
		}
		if p.PublishedAt != nil {
			item.PubDate = p.PublishedAt.Format(time.RFC1123Z)
		}
		if p.Author != nil {
			item.Author = p.Author.DisplayName()
		}
		for _, cat := range p.Categories {
			item.Categories = append(item.Categories, cat.Name)
		}
		doc.Channel.Items = append(doc.Channel.Items, item)
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

func (h *Handler) baseURL() string {
	return strings.TrimRight(h.site.URL, "/")
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// sitemap GET /sitemap.xml
func (h *Handler) sitemap(c *gin.Context) {
	urls, err := h.sitemapURLs(c.Request.Context())
	if err != nil {
		h.logger.Error("sitemap failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "error generating sitemap")
		return
	}
	out, err := xml.MarshalIndent(urlSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9", URLs: urls}, "", "  ")
	if err != nil {
		h.logger.Error("sitemap failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "error generating sitemap")
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", append([]byte(xml.Header), out...))
}

func (h *Handler) sitemapURLs(ctx context.Context) ([]sitemapURL, error) {
	base := h.baseURL()
	day := func(t time.Time) string { return t.Format("2006-01-02") }

	urls := []sitemapURL{
		{Loc: base + "/", LastMod: day(h.now()), ChangeFreq: "daily", Priority: "1.0"},
		{Loc: base + "/blog", LastMod: day(h.now()), ChangeFreq: "daily", Priority: "0.9"},
		{Loc: base + "/events", LastMod: day(h.now()), ChangeFreq: "daily", Priority: "0.7"},
	}

	for q := pagination.New(1, pagination.MaxSize); ; q.Page++ {
		posts, pag, err := h.src.Posts.ListPublished(ctx, post.ListQuery{}, q)
		if err != nil {
			return nil, err
		}
		for _, p := range posts {
			urls = append(urls, sitemapURL{
				Loc: base + search.URLFor(search.KindPost, p.Slug), LastMod: day(p.UpdatedAt),
				ChangeFreq: "weekly", Priority: "0.8",
			})
		}
		if !pag.HasNextPage {
			break
		}
	}

	pages, err := h.src.Pages.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range pages {
		urls = append(urls, sitemapURL{
			Loc: base + search.URLFor(search.KindPage, p.Slug), LastMod: day(p.UpdatedAt),
			ChangeFreq: "monthly", Priority: "0.5",
		})
	}

	for _, list := range []func(context.Context, string, pagination.Query) ([]models.EventModel, response.Pagination, error){
		h.src.Events.Upcoming, h.src.Events.Past,
	} {
		for q := pagination.New(1, pagination.MaxSize); ; q.Page++ {
			events, pag, err := list(ctx, "", q)
			if err != nil {
				return nil, err
			}
			for _, e := range events {
				urls = append(urls, sitemapURL{
					Loc: base + search.URLFor(search.KindEvent, e.Slug), LastMod: day(e.UpdatedAt),
					ChangeFreq: "weekly", Priority: "0.6",
				})
			}
			if !pag.HasNextPage {
				break
			}
		}
	}
	return urls, nil
}
