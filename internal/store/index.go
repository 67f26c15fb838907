package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve"
	"github.com/mohammad-safakhou/prizm/models"
)

// businessIndex is an in-memory full-text index used to pre-rank search candidates.
type businessIndex struct {
	idx bleve.Index
}

type indexedBusiness struct {
	Description     string `json:"description"`
	Category        string `json:"category"`
	Location        string `json:"location"`
	Services        string `json:"services"`
	Keywords        string `json:"keywords"`
	Specializations string `json:"specializations"`
}

func newBusinessIndex() (*businessIndex, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	return &businessIndex{idx: idx}, nil
}

func (b *businessIndex) add(biz models.Business) error {
	doc := indexedBusiness{
		Description: biz.Description,
		Category:    biz.Category,
		Location:    biz.Location,
		Services:    strings.Join(biz.Services, " "),
	}
	if r := biz.IndustryRules; r != nil {
		doc.Keywords = strings.Join(r.Keywords, " ")
		doc.Specializations = strings.Join(r.Specializations, " ")
	}
	return b.idx.Index(strconv.Itoa(biz.ID), doc)
}

// search returns ids of businesses lexically matching query, best first.
func (b *businessIndex) search(ctx context.Context, query string, size int) ([]int, error) {
	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequestOptions(q, size, 0, false)
	res, err := b.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := strconv.Atoi(hit.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (b *businessIndex) Close() error {
	return b.idx.Close()
}
