package dto

// BuildTrainsetRequest mines search results into a trainset
type BuildTrainsetRequest struct {
	Queries []string `json:"queries" msgpack:"queries"`
}

// BuildTrainsetResponse reports how the build went
type BuildTrainsetResponse struct {
	App      string `json:"app" msgpack:"app"`
	Examples int    `json:"examples" msgpack:"examples"`
	Skipped  int    `json:"skipped" msgpack:"skipped"`
	Path     string `json:"path" msgpack:"path"`
}

// TrainsetStatsResponse reports stored example counts for an app
type TrainsetStatsResponse struct {
	App      string `json:"app" msgpack:"app"`
	Examples int    `json:"examples" msgpack:"examples"`
}
