package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/elastic/go-elasticsearch/v9"
)

type ChannelDoc struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

type Config struct {
	URL      string
	User     string
	Password string
}

func NewClient(ctx context.Context, cfg Config) (*elasticsearch.Client, error) {
	slog.Info("connecting to elasticsearch", "url", cfg.URL)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch info: %s: %s", res.Status(), body)
	}

	return client, nil
}

type ChannelIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewChannelIndex(es *elasticsearch.Client, index string) *ChannelIndex {
	return &ChannelIndex{es: es, index: index}
}

// Index upserts the channel document under its user id.
func (c *ChannelIndex) Index(ctx context.Context, doc ChannelDoc) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	res, err := c.es.Index(
		c.index,
		bytes.NewReader(body),
		c.es.Index.WithDocumentID(doc.ID),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index channel: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index channel: %s", res.Status())
	}
	return nil
}

func (c *ChannelIndex) Search(ctx context.Context, query string, from, size int) (int64, []ChannelDoc, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"username^2", "fullName"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search channels: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search channels: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search channels: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source ChannelDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("decode search response: %w", err)
	}

	docs := make([]ChannelDoc, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		docs = append(docs, h.Source)
	}
	return r.Hits.Total.Value, docs, nil
}

// Nop is used when no search cluster is configured.
type Nop struct{}

func (Nop) Index(context.Context, ChannelDoc) error { return nil }

func (Nop) Search(context.Context, string, int, int) (int64, []ChannelDoc, error) {
	return 0, []ChannelDoc{}, nil
}
