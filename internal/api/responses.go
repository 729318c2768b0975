package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/openclaw/forager/internal/catalog"
)

var errInvalidCategory = errors.New("unknown category")

type searchHit struct {
	catalog.Entry
	Score float64 `json:"score"`
}

type searchResponse struct {
	Results []searchHit `json:"results"`
	Total   int         `json:"total"`
}

type browseResponse struct {
	Entries []catalog.Entry `json:"entries"`
	Total   int             `json:"total"`
}

type queryResponse struct {
	Entries []catalog.Entry `json:"entries"`
	Stage   string          `json:"stage"`
}

type skillHit struct {
	catalog.Skill
	Score float64 `json:"score"`
}

type skillSearchResponse struct {
	Results []skillHit `json:"results"`
	Total   int        `json:"total"`
}

type skillBrowseResponse struct {
	Skills []catalog.Skill `json:"skills"`
	Total  int             `json:"total"`
}

func isNotFound(err error) bool {
	return errors.Is(err, catalog.ErrNotFound)
}

func writeJSON(w http.ResponseWriter, status int, payload any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string, logger *zap.Logger) {
	writeJSON(w, status, map[string]string{"error": msg}, logger)
}
