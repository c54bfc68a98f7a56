package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/calermo/seo-manager/internal/cache"
	"github.com/calermo/seo-manager/internal/catalog"
	"github.com/calermo/seo-manager/internal/importer"
	"github.com/calermo/seo-manager/internal/service"
)

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		hardRefresh := r.URL.Query().Get("refresh") == "1"
		channelID := r.URL.Query().Get("channel")

		var snap cache.Snapshot
		var err error
		if channelID != "" {
			snap, err = s.svc.LoadChannelVideos(r.Context(), channelID, hardRefresh, nil)
		} else {
			snap, err = s.svc.LoadVideos(r.Context(), hardRefresh, nil)
		}
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, snap)
	case http.MethodPost:
		var req createVideoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		video, err := s.svc.CreateVideo(r.Context(), service.CreateVideoInput{
			ChannelID:   req.ChannelID,
			VideoID:     req.VideoID,
			Title:       req.Title,
			PublishedAt: req.PublishedAt,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, video)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type createVideoRequest struct {
	ChannelID   string     `json:"channel_id"`
	VideoID     string     `json:"video_id"`
	Title       string     `json:"title"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

type assignRequest struct {
	VideoIDs []string `json:"video_ids"`
	Member   string   `json:"member"`
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Member == "" {
		writeError(w, http.StatusBadRequest, "member is required")
		return
	}
	if err := s.svc.AssignVideos(r.Context(), req.VideoIDs, req.Member); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"queued": true})
}

func (s *Server) handleUnassign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := s.svc.UnassignVideos(r.Context(), req.VideoIDs); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"queued": true})
}

// handleVideoByID dispatches /api/videos/{id} and its sub-resources.
func (s *Server) handleVideoByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/videos/")
	parts := strings.SplitN(rest, "/", 3)
	videoID := parts[0]
	if decoded, err := url.PathUnescape(videoID); err == nil {
		videoID = decoded
	}
	if videoID == "" {
		writeError(w, http.StatusBadRequest, "missing video id")
		return
	}

	if len(parts) == 1 {
		s.handleVideo(w, r, videoID)
		return
	}

	switch parts[1] {
	case "toggle-seo":
		s.handleToggleSeo(w, r, videoID)
	case "seo":
		s.handleSeoFields(w, r, videoID)
	case "comments":
		s.handleComments(w, r, videoID)
	case "tasks":
		s.handleVideoTasks(w, r, videoID)
	case "versions":
		s.handleVersions(w, r, videoID, parts)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	switch r.Method {
	case http.MethodGet:
		video, err := s.svc.GetVideo(r.Context(), videoID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, video)
	case http.MethodDelete:
		if err := s.svc.DeleteVideo(r.Context(), videoID); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleToggleSeo(w http.ResponseWriter, r *http.Request, videoID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	video, err := s.svc.GetVideo(r.Context(), videoID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := s.svc.ToggleSeoDone(r.Context(), video); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"queued": true})
}

type seoFieldsRequest struct {
	TitleV1     *string  `json:"title_v1,omitempty"`
	TitleV2     *string  `json:"title_v2,omitempty"`
	TitleV3     *string  `json:"title_v3,omitempty"`
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

func (s *Server) handleSeoFields(w http.ResponseWriter, r *http.Request, videoID string) {
	if r.Method != http.MethodPatch && r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req seoFieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	video, err := s.svc.GetVideo(r.Context(), videoID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	err = s.svc.UpdateSeoFields(r.Context(), video, service.SeoFieldsInput{
		TitleV1:     req.TitleV1,
		TitleV2:     req.TitleV2,
		TitleV3:     req.TitleV3,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"queued": true})
}

func (s *Server) handleComments(w http.ResponseWriter, r *http.Request, videoID string) {
	switch r.Method {
	case http.MethodGet:
		comments, err := s.svc.ListComments(r.Context(), videoID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, comments)
	case http.MethodPost:
		var req struct {
			Body string `json:"body"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		comment, err := s.svc.AddComment(r.Context(), videoID, req.Body)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, comment)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleVideoTasks(w http.ResponseWriter, r *http.Request, videoID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tasks, err := s.svc.ListTasks(r.Context(), videoID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request, videoID string, parts []string) {
	// /api/videos/{id}/versions
	// /api/videos/{id}/versions/{versionID}/activate
	if len(parts) == 2 {
		switch r.Method {
		case http.MethodGet:
			versions, err := s.svc.ListSeoVersions(r.Context(), videoID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, versions)
		case http.MethodPost:
			video, err := s.svc.GetVideo(r.Context(), videoID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			version, err := s.svc.SaveSeoVersion(r.Context(), video)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, version)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	sub := strings.SplitN(parts[2], "/", 2)
	versionID := sub[0]
	if len(sub) != 2 || sub[1] != "activate" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.svc.ActivateSeoVersion(r.Context(), videoID, versionID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"queued": true})
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	channels, err := s.svc.ListChannels(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, channels)
}

// handleChannelByID covers /api/channels/{id}: the admin-only rename.
func (s *Server) handleChannelByID(w http.ResponseWriter, r *http.Request) {
	channelID := strings.TrimPrefix(r.URL.Path, "/api/channels/")
	if channelID == "" || strings.Contains(channelID, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodPatch && r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	channel, err := s.svc.UpdateChannelName(r.Context(), channelID, req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, channel)
}

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stats, err := s.svc.DashboardStats(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRecentVideos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	videos, err := s.svc.RecentVideos(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, videos)
}

func (s *Server) handleTeamMembers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if r.URL.Query().Get("assignable") == "1" {
		members, err := s.svc.GetAssignableUsers(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, members)
		return
	}
	members, err := s.svc.ListTeamMembers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleIdentity(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		member, ok := s.svc.WorkingIdentity(r.Context())
		if !ok {
			writeError(w, http.StatusNotFound, "no working identity selected")
			return
		}
		writeJSON(w, http.StatusOK, member)
	case http.MethodPut:
		var member catalog.TeamMember
		if err := json.NewDecoder(r.Body).Decode(&member); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if err := s.svc.SetWorkingIdentity(r.Context(), member); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, member)
	case http.MethodDelete:
		if err := s.svc.ClearWorkingIdentity(r.Context()); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleImport takes a JSON array of import records and runs them through
// the same path as the import command. The caller's working identity gates
// the writes.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if _, ok := s.svc.WorkingIdentity(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "no working identity selected")
		return
	}
	var records []importer.Record
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	report, err := importer.New(s.svc).ImportRecords(r.Context(), "api", records)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type navigationRequest struct {
	VideoIDs []string `json:"video_ids"`
	Position int      `json:"position"`
}

func (s *Server) handleNavigation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req navigationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := s.svc.SetNavigationContext(r.Context(), req.VideoIDs, req.Position); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		VideoID string `json:"video_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	moved, err := s.svc.Advance(r.Context(), req.VideoID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"moved": moved})
}

func (s *Server) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	prev, next, err := s.svc.Neighbors(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"prev": prev,
		"next": next,
	})
}

func (s *Server) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	// /api/tasks/{id}/status or /api/tasks/{id}/assign
	rest := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	parts := strings.SplitN(rest, "/", 2)
	taskID := parts[0]
	if taskID == "" || len(parts) != 2 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	switch parts[1] {
	case "status":
		var req struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		task, err := s.svc.UpdateTaskStatus(r.Context(), taskID, catalog.TaskStatus(req.Status))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, task)
	case "assign":
		var req struct {
			Member string `json:"member"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		task, err := s.svc.AssignTask(r.Context(), taskID, req.Member)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, task)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	if s.console == nil {
		writeError(w, http.StatusNotImplemented, "research console is not configured")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	answer, err := s.console.Generate(r.Context(), req.Prompt)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, notificationsSnapshot(s.svc))
}

func (s *Server) handleJanitorStatus(w http.ResponseWriter, r *http.Request) {
	if s.janitor == nil {
		writeError(w, http.StatusNotImplemented, "janitor is not configured")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	info, err := s.janitor.Status(time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

// writeServiceError maps classified service failures onto HTTP codes.
// Unclassified errors fall back on message shape.
func writeServiceError(w http.ResponseWriter, err error) {
	msg := err.Error()
	switch {
	case service.IsErrorType(err, service.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, msg)
	case service.IsErrorType(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, msg)
	case service.IsErrorType(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, msg)
	case service.IsErrorType(err, service.ErrValidation),
		service.IsErrorType(err, service.ErrDuplicate):
		writeError(w, http.StatusBadRequest, msg)
	case strings.Contains(msg, "not found"):
		writeError(w, http.StatusNotFound, msg)
	case strings.Contains(msg, "required"),
		strings.Contains(msg, "is empty"),
		strings.Contains(msg, "no videos selected"):
		writeError(w, http.StatusBadRequest, msg)
	default:
		writeError(w, http.StatusInternalServerError, msg)
	}
}
