package chi

import (
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/query"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/search/result"
	"github.com/PonchoGAD/auto-search-mvp/internal/usecase/diversify"
	searchuc "github.com/PonchoGAD/auto-search-mvp/internal/usecase/search"
)

// SearchRequest is the POST /api/v1/search body.
type SearchRequest struct {
	Query         string `json:"query"`
	IncludeAnswer bool   `json:"include_answer,omitempty"`
	TopK          int    `json:"top_k,omitempty"`
}

// SearchResultItem is one listing in the search response. Absent fields are omitted.
type SearchResultItem struct {
	Brand          string  `json:"brand,omitempty"`
	Model          string  `json:"model,omitempty"`
	Year           *int64  `json:"year,omitempty"`
	Mileage        *int64  `json:"mileage,omitempty"`
	Price          *int64  `json:"price,omitempty"`
	Currency       string  `json:"currency,omitempty"`
	Fuel           string  `json:"fuel,omitempty"`
	Color          string  `json:"color,omitempty"`
	Region         string  `json:"region,omitempty"`
	Condition      string  `json:"condition,omitempty"`
	PaintCondition string  `json:"paint_condition,omitempty"`
	Score          float64 `json:"score"`
	WhyMatch       string  `json:"why_match"`
	SourceURL      string  `json:"source_url"`
	SourceName     string  `json:"source_name"`
	Dominant       bool    `json:"dominant_source,omitempty"`
}

// SearchResponse is the POST /api/v1/search response.
type SearchResponse struct {
	StructuredQuery query.StructuredQuery   `json:"structuredQuery"`
	Results         []SearchResultItem      `json:"results"`
	Sources         []diversify.SourceCount `json:"sources"`
	Debug           searchuc.Debug          `json:"debug"`
	Answer          *searchuc.Answer        `json:"answer,omitempty"`
}

// HealthResponse is the /health and /ready body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func searchResponseFromUsecase(resp *searchuc.Response) SearchResponse {
	items := make([]SearchResultItem, len(resp.Results))
	for i := range resp.Results {
		items[i] = searchResultItem(&resp.Results[i])
	}

	sources := resp.Sources
	if sources == nil {
		sources = []diversify.SourceCount{}
	}

	return SearchResponse{
		StructuredQuery: resp.StructuredQuery,
		Results:         items,
		Sources:         sources,
		Debug:           resp.Debug,
		Answer:          resp.Answer,
	}
}

func searchResultItem(r *result.Result) SearchResultItem {
	d := r.Document()
	return SearchResultItem{
		Brand:          d.Brand,
		Model:          d.Model,
		Year:           d.Year,
		Mileage:        d.Mileage,
		Price:          d.Price,
		Currency:       d.Currency,
		Fuel:           d.Fuel,
		Color:          d.Color,
		Region:         d.Region,
		Condition:      d.Condition,
		PaintCondition: d.PaintCondition,
		Score:          r.Score(),
		WhyMatch:       r.WhyMatch(),
		SourceURL:      r.SourceURL(),
		SourceName:     r.SourceName(),
		Dominant:       r.Dominant(),
	}
}
