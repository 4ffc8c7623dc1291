package storage

import (
	"context"
	"net/http"
	"time"

	"bt-search/common/language"
	"bt-search/common/model"

	"github.com/juju/errors"
	"github.com/olivere/elastic/v7"
	"github.com/zeromicro/go-zero/core/logx"
)

type ESIndex struct {
	client *elastic.Client
	index  string
}

func NewESIndex(url, index string, timeout time.Duration) (*ESIndex, error) {
	client, err := elastic.NewClient(
		elastic.SetURL(url),
		elastic.SetSniff(false),
		elastic.SetHealthcheck(false),
		elastic.SetHttpClient(&http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &ESIndex{client: client, index: index}, nil
}

// EnsureIndex creates the index with its mapping if it does not exist yet.
func (i *ESIndex) EnsureIndex(ctx context.Context) error {
	exists, err := i.client.IndexExists(i.index).Do(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	if exists {
		return nil
	}
	_, err = i.client.CreateIndex(i.index).BodyJson(indexMapping()).Do(ctx)
	if err != nil {
		return errors.Annotatef(err, "create index %s", i.index)
	}
	logx.Infof("Created index %s", i.index)
	return nil
}

// BulkUpsert writes docs keyed by infohash in one bulk request. It returns the number
// of documents the cluster rejected individually; the error is reserved for failures
// of the request as a whole.
func (i *ESIndex) BulkUpsert(ctx context.Context, docs []*model.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	bulk := i.client.Bulk().Index(i.index)
	for _, doc := range docs {
		bulk.Add(elastic.NewBulkIndexRequest().Id(doc.ID()).Doc(doc))
	}
	res, err := bulk.Do(ctx)
	if err != nil {
		return 0, errors.Trace(err)
	}
	failed := res.Failed()
	for _, item := range failed {
		if item.Error != nil {
			logx.Errorf("Failed to index torrent %s: %s %s", item.Id, item.Error.Type, item.Error.Reason)
		}
	}
	return len(failed), nil
}

func (i *ESIndex) Count(ctx context.Context) (int64, error) {
	cnt, err := i.client.Count(i.index).Do(ctx)
	if err != nil {
		return 0, errors.Trace(err)
	}
	return cnt, nil
}

func (i *ESIndex) Stop() {
	i.client.Stop()
}

// indexMapping indexes name once with the standard analyzer plus one sub-field per
// language analyzer.
func indexMapping() map[string]any {
	nameFields := map[string]any{}
	for _, l := range language.All() {
		if l.Analyzer() == "standard" {
			continue
		}
		nameFields[l.Code()] = map[string]any{
			"type":     "text",
			"analyzer": l.Analyzer(),
		}
	}
	return map[string]any{
		"settings": map[string]any{
			"refresh_interval": "30s",
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"info_hash": map[string]any{"type": "keyword"},
				"name": map[string]any{
					"type":     "text",
					"analyzer": "standard",
					"fields":   nameFields,
				},
				"size":               map[string]any{"type": "long"},
				"files":              map[string]any{"type": "integer"},
				"piece_length":       map[string]any{"type": "long"},
				"piece_count":        map[string]any{"type": "integer"},
				"create_time":        map[string]any{"type": "date", "format": "epoch_millis"},
				"find_time":          map[string]any{"type": "date", "format": "epoch_millis"},
				"comment":            map[string]any{"type": "text"},
				"created_by":         map[string]any{"type": "keyword"},
				"encoding":           map[string]any{"type": "keyword"},
				"detected_languages": map[string]any{"type": "keyword"},
				"magnet_uri":         map[string]any{"type": "keyword", "index": false},
				"seeders":            map[string]any{"type": "integer"},
				"leechers":           map[string]any{"type": "integer"},
				"peers":              map[string]any{"type": "integer"},
				"lang":               map[string]any{"type": "byte"},
				"file_list": map[string]any{
					"type": "nested",
					"properties": map[string]any{
						"path":   map[string]any{"type": "text"},
						"length": map[string]any{"type": "long"},
					},
				},
			},
		},
	}
}
