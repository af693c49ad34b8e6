package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/quickwhats/quickwhats/settings"
	"github.com/quickwhats/quickwhats/vision"
)

func (s *Server) handleListModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"models":  vision.Models,
		"default": vision.DefaultModel,
	})
}

// handleGetSettings reports the selected model and whether a credential is
// stored. The credential itself never leaves the daemon.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, err := s.cfg.Settings.APIKey(ctx)
	if err != nil {
		jsonErr(w, "internal error", http.StatusInternalServerError)
		return
	}
	model, err := s.cfg.Settings.Model(ctx)
	if err != nil {
		jsonErr(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"apiKeySet": key != "",
		"model":     model,
	})
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 32*1024)

	var req struct {
		APIKey *string `json:"apiKey"`
		Model  *string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, "invalid request body", http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	if req.APIKey != nil {
		if err := s.cfg.Settings.SetAPIKey(ctx, *req.APIKey); err != nil {
			jsonErr(w, "internal error", http.StatusInternalServerError)
			return
		}
	}
	if req.Model != nil {
		if err := s.cfg.Settings.SetModel(ctx, *req.Model); err != nil {
			if errors.Is(err, settings.ErrUnknownModel) {
				jsonErr(w, err.Error(), http.StatusBadRequest)
				return
			}
			jsonErr(w, "internal error", http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
