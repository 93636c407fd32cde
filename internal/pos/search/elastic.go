// internal/pos/search/elastic.go
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"pos-interpreter/internal/models"
)

var (
	ErrSearchQueryFailed = errors.New("SEARCH_QUERY_FAILED")
	ErrSearchTimeout     = errors.New("SEARCH_TIMEOUT")
	ErrIndexNotFound     = errors.New("INDEX_NOT_FOUND")
)

const maxPageSize = 100

// itemFields are the indexed item fields, boosted by how identifying they are.
var itemFields = []string{
	"item_code^4",
	"item_name^3",
	"description^2",
	"item_group",
	"brand",
	"item_barcode",
}

// BuildItemQuery returns the search body for a free-text item lookup.
func BuildItemQuery(term string) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{
					map[string]interface{}{
						"multi_match": map[string]interface{}{
							"query":     term,
							"fields":    itemFields,
							"type":      "best_fields",
							"fuzziness": "AUTO",
						},
					},
					map[string]interface{}{
						"term": map[string]interface{}{
							"item_code.keyword": map[string]interface{}{"value": term, "boost": 10},
						},
					},
				},
				"minimum_should_match": 1,
				"must_not": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"disabled": true}},
				},
			},
		},
	}
}

// ElasticSource searches the item index.
type ElasticSource struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticSource(client *elasticsearch.Client, index string) *ElasticSource {
	if index == "" {
		index = "items"
	}
	return &ElasticSource{client: client, index: index}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.Item `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ElasticSource) SearchItems(ctx context.Context, query string, limit int) ([]models.Item, error) {
	if limit < 1 {
		limit = 20
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	body, err := json.Marshal(BuildItemQuery(query))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	from := 0
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(body)),
		From:  &from,
		Size:  &limit,
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrSearchTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, s.index)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchQueryFailed, res.String())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSearchQueryFailed, err)
	}

	items := make([]models.Item, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		if h.Source == nil || h.Source.Code() == "" {
			continue
		}
		items = append(items, h.Source)
	}
	return items, nil
}
