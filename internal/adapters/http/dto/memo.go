package dto

// GenerateTemplateRequest asks for a memo template from requirements
type GenerateTemplateRequest struct {
	Requirements string `json:"requirements" msgpack:"requirements"`
}

// GenerateTemplateResponse carries the generated template
type GenerateTemplateResponse struct {
	Requirements string `json:"requirements" msgpack:"requirements"`
	Template     string `json:"template" msgpack:"template"`
}

// AnalyzeRequirementRequest asks for the facets of a requirement
type AnalyzeRequirementRequest struct {
	Requirement string `json:"requirement" msgpack:"requirement"`
}

// AnalyzeRequirementResponse is the structured facet breakdown
type AnalyzeRequirementResponse struct {
	Requirement string `json:"requirement" msgpack:"requirement"`
	Language    string `json:"language" msgpack:"language"`
	Style       string `json:"style" msgpack:"style"`
	Tone        string `json:"tone" msgpack:"tone"`
	Audience    string `json:"audience" msgpack:"audience"`
	Verbosity   string `json:"verbosity" msgpack:"verbosity"`
}
