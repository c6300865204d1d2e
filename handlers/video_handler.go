package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/inmatch/services"
)

type VideoHandler struct {
	videoService   services.VideoService
	maxUploadBytes int64
}

func NewVideoHandler(videoService services.VideoService, maxUploadBytes int64) *VideoHandler {
	return &VideoHandler{videoService: videoService, maxUploadBytes: maxUploadBytes}
}

// UploadVideo godoc
// @Summary  Upload a video file to object storage
// @Tags     videos
// @Accept   mpfd
// @Produce  json
// @Security BearerAuth
// @Param    video   formData file   true  "Video file"
// @Param    title   formData string false "Title"
// @Param    matchId formData int    false "Match ID"
// @Success  201 {object} map[string]interface{}
// @Failure  400 {object} map[string]interface{}
// @Failure  500 {object} map[string]interface{}
// @Router   /api/videos/upload [post]
func (h *VideoHandler) UploadVideo(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		badRequestResponse(w, r, errors.New("request must be multipart/form-data"))
		return
	}
	cleanup, err := parseUploadForm(w, r, h.maxUploadBytes)
	defer cleanup()
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	payload, ok := formFileByField(r, "video")
	if !ok {
		mapServiceErrorToHTTP(w, r, services.ErrVideoFileRequired)
		return
	}

	input := services.UploadVideoInput{
		Title:   r.FormValue("title"),
		Payload: payload,
	}
	if raw := strings.TrimSpace(r.FormValue("matchId")); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			badRequestResponse(w, r, fmt.Errorf("invalid matchId: %q", raw))
			return
		}
		input.MatchID = &id
	}

	video, err := h.videoService.Upload(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	response := jsonResponse{"message": "Video uploaded successfully", "video": video}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *VideoHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := h.videoService.List(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, videos, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *VideoHandler) GetVideo(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	video, err := h.videoService.Get(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, video, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *VideoHandler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.videoService.Delete(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
