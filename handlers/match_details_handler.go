package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/inmatch/models"
	"github.com/Dosada05/inmatch/services"
)

type MatchDetailsHandler struct {
	detailsService services.MatchDetailsService
	maxUploadBytes int64
}

func NewMatchDetailsHandler(detailsService services.MatchDetailsService, maxUploadBytes int64) *MatchDetailsHandler {
	return &MatchDetailsHandler{detailsService: detailsService, maxUploadBytes: maxUploadBytes}
}

// videoEntryRequest - элемент списка videos. File ссылается на multipart-поле с новым файлом.
type videoEntryRequest struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	VideoURL          string  `json:"videoUrl"`
	ExternalStorageID *string `json:"externalStorageId"`
	IsExternalLink    bool    `json:"isExternalLink"`
	File              string  `json:"file"`
}

type matchDetailsRequest struct {
	Stats        *models.MatchStats   `json:"stats"`
	GoalsDetails *models.GoalsDetails `json:"goalsDetails"`
	// nil means "leave videos unchanged"; an empty array clears them.
	Videos       *[]videoEntryRequest `json:"videos"`
}

// GetMatchDetails godoc
// @Summary  Get a match with its details
// @Tags     match-details
// @Produce  json
// @Param    matchId path int true "Match ID"
// @Success  200 {object} services.MatchDetailsView
// @Failure  404 {object} map[string]interface{}
// @Router   /api/match-details/{matchId} [get]
func (h *MatchDetailsHandler) GetMatchDetails(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchId")
	if err != nil {
		badRequestResponse(w, r, errors.New("invalid match ID format"))
		return
	}
	view, err := h.detailsService.Get(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, view, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreateMatchDetails godoc
// @Summary  Add details to a match
// @Description Accepts JSON, or multipart/form-data with a "payload" JSON field and file parts referenced by videos[].file.
// @Tags     match-details
// @Accept   json,mpfd
// @Produce  json
// @Security BearerAuth
// @Param    matchId path int true "Match ID"
// @Success  201 {object} map[string]interface{}
// @Failure  400 {object} map[string]interface{}
// @Failure  500 {object} map[string]interface{}
// @Router   /api/match-details/{matchId} [post]
func (h *MatchDetailsHandler) CreateMatchDetails(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchId")
	if err != nil {
		badRequestResponse(w, r, errors.New("invalid match ID format"))
		return
	}
	input, cleanup, err := h.parseDetailsInput(w, r)
	defer cleanup()
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	details, err := h.detailsService.Create(r.Context(), matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	response := jsonResponse{"message": "Match details added successfully", "details": details}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateMatchDetails godoc
// @Summary  Partially update match details
// @Description Stats and goalsDetails are replaced when present. A videos array replaces the list; stored files dropped from it are deleted.
// @Tags     match-details
// @Accept   json,mpfd
// @Produce  json
// @Security BearerAuth
// @Param    matchId path int true "Match ID"
// @Success  200 {object} map[string]interface{}
// @Failure  404 {object} map[string]interface{}
// @Failure  500 {object} map[string]interface{}
// @Router   /api/match-details/{matchId} [patch]
func (h *MatchDetailsHandler) UpdateMatchDetails(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchId")
	if err != nil {
		badRequestResponse(w, r, errors.New("invalid match ID format"))
		return
	}
	input, cleanup, err := h.parseDetailsInput(w, r)
	defer cleanup()
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	details, err := h.detailsService.Update(r.Context(), matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"details": details}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RemoveVideo godoc
// @Summary  Remove one video from match details
// @Tags     match-details
// @Produce  json
// @Security BearerAuth
// @Param    matchId path  int    true "Match ID"
// @Param    videoId path  string true "Video entry ID"
// @Param    mode    query string true "detach or purge"
// @Success  200 {object} map[string]interface{}
// @Router   /api/match-details/{matchId}/videos/{videoId} [delete]
func (h *MatchDetailsHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchId")
	if err != nil {
		badRequestResponse(w, r, errors.New("invalid match ID format"))
		return
	}
	videoID := strings.TrimSpace(chi.URLParam(r, "videoId"))
	if videoID == "" {
		badRequestResponse(w, r, errors.New("video id is required"))
		return
	}
	mode := services.RemovalMode(r.URL.Query().Get("mode"))

	details, err := h.detailsService.RemoveVideo(r.Context(), matchID, videoID, mode)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	response := jsonResponse{"message": "Video removed", "details": details}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// parseDetailsInput reads either a JSON body or a multipart form whose
// "payload" field holds the same JSON.
func (h *MatchDetailsHandler) parseDetailsInput(w http.ResponseWriter, r *http.Request) (services.MatchDetailsInput, func(), error) {
	var req matchDetailsRequest

	if !isMultipart(r) {
		if err := readJSON(w, r, &req); err != nil {
			return services.MatchDetailsInput{}, func() {}, fmt.Errorf("%w: %v", services.ErrValidationFailed, err)
		}
		input, err := buildDetailsInput(r, req)
		return input, func() {}, err
	}

	cleanup, err := parseUploadForm(w, r, h.maxUploadBytes)
	if err != nil {
		return services.MatchDetailsInput{}, cleanup, err
	}
	raw := r.FormValue("payload")
	if strings.TrimSpace(raw) == "" {
		return services.MatchDetailsInput{}, cleanup, fmt.Errorf("%w: multipart body needs a payload field", services.ErrValidationFailed)
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := decodeJSON(dec, &req, len(raw)); err != nil {
		return services.MatchDetailsInput{}, cleanup, fmt.Errorf("%w: payload: %v", services.ErrValidationFailed, err)
	}
	input, err := buildDetailsInput(r, req)
	return input, cleanup, err
}

func buildDetailsInput(r *http.Request, req matchDetailsRequest) (services.MatchDetailsInput, error) {
	input := services.MatchDetailsInput{
		Stats:        req.Stats,
		GoalsDetails: req.GoalsDetails,
	}
	if req.Videos == nil {
		return input, nil
	}
	entries, err := buildVideoEntries(r, *req.Videos)
	if err != nil {
		return services.MatchDetailsInput{}, err
	}
	input.Videos = entries
	input.ReplaceVideos = true
	return input, nil
}

// buildVideoEntries turns request entries into the reconciler's tagged union.
func buildVideoEntries(r *http.Request, reqs []videoEntryRequest) ([]services.VideoEntry, error) {
	used := make(map[string]bool)
	entries := make([]services.VideoEntry, 0, len(reqs))
	for i, v := range reqs {
		switch {
		case v.File != "":
			if used[v.File] {
				return nil, fmt.Errorf("%w: videos[%d]: file %q referenced twice", services.ErrValidationFailed, i, v.File)
			}
			payload, ok := formFileByField(r, v.File)
			if !ok {
				return nil, fmt.Errorf("%w: videos[%d]: no uploaded file named %q", services.ErrValidationFailed, i, v.File)
			}
			if !services.IsVideoFile(payload.Filename(), payload.ContentType()) {
				return nil, fmt.Errorf("%w: videos[%d]: %s is not a video file", services.ErrValidationFailed, i, payload.Filename())
			}
			used[v.File] = true
			title := strings.TrimSpace(v.Title)
			if title == "" {
				title = strings.TrimSuffix(payload.Filename(), filepath.Ext(payload.Filename()))
			}
			entries = append(entries, services.PendingUpload{Title: title, Payload: payload})
		case v.IsExternalLink:
			entries = append(entries, services.ExternalLink{ID: v.ID, Title: v.Title, URL: v.VideoURL})
		case v.ExternalStorageID != nil && *v.ExternalStorageID != "":
			entries = append(entries, services.PersistedUpload{
				ID:        v.ID,
				Title:     v.Title,
				StorageID: *v.ExternalStorageID,
			})
		case v.VideoURL != "":
			// Ссылка без флага считается внешней.
			entries = append(entries, services.ExternalLink{ID: v.ID, Title: v.Title, URL: v.VideoURL})
		default:
			return nil, fmt.Errorf("%w: videos[%d]: entry needs a file, a videoUrl or an externalStorageId", services.ErrValidationFailed, i)
		}
	}
	return entries, nil
}
