package dto

// AnswerRequest asks a question to be answered from web search
type AnswerRequest struct {
	Question string `json:"question" msgpack:"question"`
}

// SourceResponse is one cited source of an answer
type SourceResponse struct {
	Title   string `json:"title" msgpack:"title"`
	URL     string `json:"url" msgpack:"url"`
	Snippet string `json:"snippet,omitempty" msgpack:"snippet,omitempty"`
}

// AnswerResponse carries a grounded answer with its sources. Source
// numbering matches the [[n]] citations in the answer text.
type AnswerResponse struct {
	Question string           `json:"question" msgpack:"question"`
	Answer   string           `json:"answer" msgpack:"answer"`
	Sources  []SourceResponse `json:"sources" msgpack:"sources"`
}
