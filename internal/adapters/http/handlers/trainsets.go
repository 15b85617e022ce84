package handlers

import (
	"net/http"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/http/dto"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/application/services"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain/models"
)

// TrainsetHandler manages trainset building and inspection
type TrainsetHandler struct {
	trainsets *services.TrainsetService
}

func NewTrainsetHandler(trainsets *services.TrainsetService) *TrainsetHandler {
	return &TrainsetHandler{trainsets: trainsets}
}

// Build handles POST /api/v1/trainsets/web_answer/build. Only the web
// answer trainset is mined from search; memo trainsets are curated.
func (h *TrainsetHandler) Build(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[dto.BuildTrainsetRequest](r, w)
	if !ok {
		return
	}

	examples, err := h.trainsets.BuildWebAnswerTrainset(r.Context(), req.Queries)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respond(w, r, http.StatusCreated, dto.BuildTrainsetResponse{
		App:      models.AppWebAnswer,
		Examples: len(examples),
		Skipped:  len(req.Queries) - len(examples),
		Path:     h.trainsets.TrainsetPath(models.AppWebAnswer),
	})
}

// Stats handles GET /api/v1/trainsets/{app}
func (h *TrainsetHandler) Stats(w http.ResponseWriter, r *http.Request) {
	app, ok := validateURLParam(r, w, "app", "App")
	if !ok {
		return
	}

	count, err := h.trainsets.Count(r.Context(), app)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, dto.TrainsetStatsResponse{App: app, Examples: count})
}

// Examples handles GET /api/v1/trainsets/{app}/examples
func (h *TrainsetHandler) Examples(w http.ResponseWriter, r *http.Request) {
	app, ok := validateURLParam(r, w, "app", "App")
	if !ok {
		return
	}

	examples, err := h.trainsets.LoadTrainset(app)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	limit := parseIntQuery(r, "limit", 50)
	if limit > 0 && limit < len(examples) {
		examples = examples[:limit]
	}

	// flatten to plain maps so both JSON and msgpack render the fields
	records := make([]map[string]any, 0, len(examples))
	for _, ex := range examples {
		record := make(map[string]any, ex.Len())
		for _, name := range ex.Names() {
			value, _ := ex.Get(name)
			record[name] = value
		}
		records = append(records, record)
	}

	respond(w, r, http.StatusOK, struct {
		App      string           `json:"app" msgpack:"app"`
		Examples []map[string]any `json:"examples" msgpack:"examples"`
	}{App: app, Examples: records})
}
