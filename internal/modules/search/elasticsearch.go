package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/inkwell-cms/inkwell/internal/config"
)

const defaultIndex = "inkwell"

type elasticBackend struct {
	client *elasticsearch.Client
	index  string
}

// NewElasticBackend connects to Elasticsearch and creates the index if missing.
func NewElasticBackend(ctx context.Context, cfg config.ElasticsearchConfig) (Backend, error) {
	esCfg := elasticsearch.Config{Addresses: cfg.Addresses}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}
	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	index := cfg.Index
	if index == "" {
		index = defaultIndex
	}
	b := &elasticBackend{client: client, index: index}
	if err := b.ensureIndex(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *elasticBackend) Name() string { return "elasticsearch" }

func (b *elasticBackend) ensureIndex(ctx context.Context) error {
	res, err := b.client.Indices.Exists([]string{b.index}, b.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", b.index, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"kind":         map[string]string{"type": "keyword"},
				"slug":         map[string]string{"type": "keyword"},
				"title":        map[string]string{"type": "text"},
				"summary":      map[string]string{"type": "text"},
				"body":         map[string]string{"type": "text"},
				"published_at": map[string]string{"type": "date"},
			},
		},
	}
	body, _ := json.Marshal(mapping)
	createRes, err := b.client.Indices.Create(b.index,
		b.client.Indices.Create.WithContext(ctx),
		b.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", b.index, err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("create index %s: %s", b.index, createRes.String())
	}
	return nil
}

func documentID(kind, id string) string { return kind + ":" + id }

func (b *elasticBackend) Index(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      b.index,
		DocumentID: documentID(doc.Kind, doc.ID),
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, b.client)
	if err != nil {
		return fmt.Errorf("index %s %s: %w", doc.Kind, doc.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index %s %s: %s", doc.Kind, doc.ID, res.String())
	}
	return nil
}

func (b *elasticBackend) Delete(ctx context.Context, kind, id string) error {
	req := esapi.DeleteRequest{Index: b.index, DocumentID: documentID(kind, id), Refresh: "true"}
	res, err := req.Do(ctx, b.client)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete %s %s: %s", kind, id, res.String())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (b *elasticBackend) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title^3", "summary^2", "body"},
			},
		},
	})
	res, err := b.client.Search(
		b.client.Search.WithContext(ctx),
		b.client.Search.WithIndex(b.index),
		b.client.Search.WithBody(bytes.NewReader(body)),
		b.client.Search.WithTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search %q: %s", query, res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	hits := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, hitFor(h.Source))
	}
	return hits, nil
}
