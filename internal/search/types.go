package search

// Result is one hit returned by the search provider.
type Result struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	Author        string   `json:"author,omitempty"`
	Score         float64  `json:"score"`
	Text          string   `json:"text,omitempty"`
	Highlights    []string `json:"highlights,omitempty"`
}

// Response is the provider response, relayed to API callers unchanged.
type Response struct {
	Results          []Result `json:"results"`
	AutopromptString string   `json:"autopromptString,omitempty"`
}

// Citation is the source reference attached to an assistant message.
type Citation struct {
	ID             string  `json:"id" yaml:"id"`
	Title          string  `json:"title" yaml:"title"`
	URL            string  `json:"url" yaml:"url"`
	Author         string  `json:"author,omitempty" yaml:"author,omitempty"`
	PublishedDate  string  `json:"publishedDate,omitempty" yaml:"published_date,omitempty"`
	RelevanceScore float64 `json:"relevanceScore" yaml:"relevance_score"`
}

type request struct {
	Query         string `json:"query"`
	NumResults    int    `json:"numResults"`
	Type          string `json:"type"`
	UseAutoprompt bool   `json:"useAutoprompt"`
}
