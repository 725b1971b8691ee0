package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/snapp-incubator/updatelog/internal/config"
)

// ElasticStorage is the cache Store that keeps one Elasticsearch document per key
type ElasticStorage struct {
	ES    *elasticsearch.Client
	Index string
}

// OpenElastic connects to the cluster described by cfg.
func OpenElastic(cfg config.Elasticsearch) (*ElasticStorage, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:              cfg.Addresses,
		Username:               cfg.Username,
		Password:               cfg.Password,
		CloudID:                cfg.CloudID,
		APIKey:                 cfg.APIKey,
		ServiceToken:           cfg.ServiceToken,
		CertificateFingerprint: cfg.CertificateFingerprint,
	})
	if err != nil {
		return nil, fmt.Errorf("error in creating the elasticsearch client: %w", err)
	}
	return &ElasticStorage{ES: es, Index: cfg.Index}, nil
}

// Get fetches the document of key and returns its value field.
func (s *ElasticStorage) Get(ctx context.Context, key string) (string, bool, error) {
	if s.ES == nil {
		return "", false, ErrClosed
	}
	r := esapi.GetRequest{
		Index:      s.Index,
		DocumentID: key,
	}

	res, err := r.Do(ctx, s.ES)
	if err != nil {
		return "", false, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return "", false, err
	}
	if res.IsError() {
		return "", false, fmt.Errorf("elasticsearch get %q: %s", key, res.Status())
	}

	v := gjson.GetBytes(b, "_source.value")
	if !v.Exists() {
		return "", false, nil
	}
	return v.String(), true, nil
}

// Set indexes the document of key, refreshing so a following Get sees it.
func (s *ElasticStorage) Set(ctx context.Context, key, value string) error {
	if s.ES == nil {
		return ErrClosed
	}
	doc, err := sjson.SetBytes([]byte(`{}`), "value", value)
	if err != nil {
		return err
	}
	doc, err = sjson.SetBytes(doc, "updated_at", time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return err
	}

	r := esapi.IndexRequest{
		Index:      s.Index,
		DocumentID: key,
		Body:       bytes.NewReader(doc),
		Refresh:    "true",
	}

	res, err := r.Do(ctx, s.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch index %q: %s", key, res.Status())
	}
	return nil
}

func (s *ElasticStorage) Close() error {
	s.ES = nil
	return nil
}
