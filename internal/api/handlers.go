package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medassist/device-assistant/internal/identity"
	"github.com/medassist/device-assistant/internal/model"
)

// maxUploadBytes bounds uploaded device photos (16 MiB).
const maxUploadBytes = 16 << 20

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleManufacturers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"manufacturers": s.catalog.Manufacturers(),
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	manufacturer := pathParam(r, "manufacturer")

	models := s.catalog.Models(manufacturer)
	if models == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"models": []string{},
			"error":  "Manufacturer '" + manufacturer + "' not found",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

// extractResponse is the extract-model payload: the validated extraction
// plus the identity decision derived from it.
type extractResponse struct {
	model.ExtractionResult
	Classification identity.Classification `json:"classification"`
	Image          string                  `json:"image,omitempty"`
}

func (s *Server) handleExtractModel(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read image upload")
		return
	}

	savedPath := s.saveUpload(header.Filename, data)

	ext, err := s.extractor.Extract(r.Context(), data, mediaTypeFor(header.Filename))
	if err != nil {
		// Recoverable: the user proceeds via manual entry. The result
		// already carries ERROR_API_FAILURE and a suggestion.
		zap.L().Warn("vision extraction failed", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, extractResponse{
		ExtractionResult: ext,
		Classification:   s.classifier.Classify(ext),
		Image:            savedPath,
	})
}

// matchRequest carries possibly free-text device values. Unlisted marks the
// explicit "my device is not on this list" choice, replacing the UI's old
// magic sentinel string.
type matchRequest struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Unlisted     bool   `json:"unlisted,omitempty"`
}

func (s *Server) handleMatchDevice(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		writeError(w, http.StatusBadRequest, "model is required")
		return
	}

	if req.Unlisted {
		// The user already told us the device is not cataloged; skip
		// matching and confirm the entered values.
		writeJSON(w, http.StatusOK, identity.MatchResult{
			Manufacturer: req.Manufacturer,
			Model:        req.Model,
			Reasoning:    "device reported as not listed",
		})
		return
	}

	writeJSON(w, http.StatusOK, s.matcher.Match(r.Context(), req.Manufacturer, req.Model))
}

func (s *Server) handleCheckManual(w http.ResponseWriter, r *http.Request) {
	identity := model.DeviceIdentity{
		Manufacturer: pathParam(r, "manufacturer"),
		Model:        pathParam(r, "model"),
	}

	resp := map[string]any{
		"has_manual":  false,
		"device_name": identity.DisplayName(),
	}
	if manualName, ok := s.manuals.Available(identity); ok {
		resp["has_manual"] = true
		resp["manual_name"] = manualName
	}
	writeJSON(w, http.StatusOK, resp)
}

// chatRequest is one question about one device. History is caller-owned and
// resent on every request; the server stores nothing between calls.
type chatRequest struct {
	Manufacturer string                   `json:"manufacturer"`
	Model        string                   `json:"model"`
	Question     string                   `json:"question"`
	History      []model.ConversationTurn `json:"history,omitempty"`
}

type chatResponse struct {
	model.Answer
	Error bool `json:"error"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Model) == "" || strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "model and question are required")
		return
	}

	identity := model.DeviceIdentity{Manufacturer: req.Manufacturer, Model: req.Model}

	ans, err := s.answerer.Answer(r.Context(), identity, req.Question, req.History)
	if err != nil {
		// Hard failure: manual exists but could not be read, or generation
		// failed. Distinct from the fallback path, which is a valid answer.
		zap.L().Error("chat failed",
			zap.String("device", identity.DisplayName()),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, map[string]any{
			"error":   true,
			"message": "Could not answer this question right now. Please try again.",
		})
		return
	}

	if ans.Sources == nil {
		ans.Sources = []model.Source{}
	}
	writeJSON(w, http.StatusOK, chatResponse{Answer: ans, Error: false})
}

func (s *Server) handleDevicesByType(w http.ResponseWriter, _ *http.Request) {
	byType := s.catalog.ByType()

	out := make(map[string][]deviceEntry, len(byType))
	for deviceType, entries := range byType {
		list := make([]deviceEntry, len(entries))
		for i, e := range entries {
			_, ok := s.manuals.Available(model.DeviceIdentity{
				Manufacturer: e.Manufacturer,
				Model:        e.Model,
			})
			list[i] = deviceEntry{
				Manufacturer: e.Manufacturer,
				Model:        e.Model,
				HasManual:    ok,
			}
		}
		out[string(deviceType)] = list
	}
	writeJSON(w, http.StatusOK, map[string]any{"device_types": out})
}

type deviceEntry struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	HasManual    bool   `json:"has_manual"`
}

// saveUpload keeps a copy of the uploaded photo for traceability. Failure is
// logged only; extraction proceeds from the in-memory bytes either way.
func (s *Server) saveUpload(filename string, data []byte) string {
	if s.uploadsDir == "" {
		return ""
	}
	name := uuid.New().String() + "_" + filepath.Base(filename)
	path := filepath.Join(s.uploadsDir, name)
	if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
		zap.L().Warn("could not save upload", zap.Error(err))
		return ""
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		zap.L().Warn("could not save upload", zap.Error(err))
		return ""
	}
	return path
}

func mediaTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// pathParam returns a URL path parameter with percent-escapes decoded, so
// manufacturers like Dräger survive the round trip.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": true, "message": message})
}
