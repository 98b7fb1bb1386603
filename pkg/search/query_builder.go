package search

import (
	"strings"

	"github.com/blevesearch/bleve/v2"
	q "github.com/blevesearch/bleve/v2/search/query"
)

func buildQuery(req Query) q.Query {
	var must []q.Query

	if text := strings.TrimSpace(req.Text); text != "" {
		should := make([]q.Query, 0, len(TextFields)+1)
		for _, f := range TextFields {
			mq := bleve.NewMatchQuery(text)
			mq.SetField(f)
			should = append(should, mq)

			pq := bleve.NewMatchPhraseQuery(text)
			pq.SetField(f)
			pq.SetBoost(2)
			should = append(should, pq)
		}
		must = append(must, bleve.NewDisjunctionQuery(should...))
	}

	if req.Status != "" {
		tq := bleve.NewTermQuery(req.Status)
		tq.SetField("status")
		must = append(must, tq)
	}

	if req.Approved != nil {
		bq := bleve.NewBoolFieldQuery(*req.Approved)
		bq.SetField("is_approved")
		must = append(must, bq)
	}

	if len(must) == 0 {
		return bleve.NewMatchAllQuery()
	}
	return bleve.NewConjunctionQuery(must...)
}
