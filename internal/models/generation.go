package models

// Source tags which stage of the resolution chain produced an answer.
type Source string

const (
	SourceExact Source = "exact" // knowledge base hit
	SourceWeb   Source = "web"   // web search snippet
	SourceAI    Source = "ai"    // model generation (including degraded messages)
)

// GenerationParams are the decoding settings sent to the text-generation API.
type GenerationParams struct {
	MaxNewTokens int     `json:"max_new_tokens"`
	Temperature  float64 `json:"temperature"`
	TopP         float64 `json:"top_p"`
	DoSample     bool    `json:"do_sample"`
}

// Answer is a resolved response together with its provenance.
type Answer struct {
	Text   string
	Source Source
}
