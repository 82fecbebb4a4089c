package report

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/miniforum/mini-forum-server/cmd/models"
	"github.com/miniforum/mini-forum-server/cmd/utils"
	"github.com/miniforum/mini-forum-server/service/user"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/reports", utils.AuthMiddleware(h.GetReports)).Methods("GET")
	router.HandleFunc("/reports", utils.AuthMiddleware(h.CreateReport)).Methods("POST")
	router.HandleFunc("/reports/{id}", utils.AuthMiddleware(h.GetReport)).Methods("GET")
	router.HandleFunc("/reports/{id}", utils.AuthMiddleware(h.UpdateReport)).Methods("PUT", "PATCH")
	router.HandleFunc("/reports/{id}", utils.AuthMiddleware(h.DeleteReport)).Methods("DELETE")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) requester(r *http.Request) (*models.User, error) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := h.db.First(&u, userID).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func serialize(rep *models.Report, r *http.Request) map[string]interface{} {
	var reporter interface{}
	if rep.User != nil {
		reporter = user.SerializeUserBrief(rep.User, r)
	}
	return map[string]interface{}{
		"id":          rep.ID,
		"user":        reporter,
		"report_type": rep.ReportType,
		"post":        rep.PostID,
		"comment":     rep.CommentID,
		"reason":      rep.Reason,
		"action":      rep.Action,
		"resolved":    rep.Resolved,
		"created_at":  rep.CreatedAt,
	}
}

// GetReports lists reports. Admins see everything, everyone else only the
// reports they filed.
func (h *Handler) GetReports(w http.ResponseWriter, r *http.Request) {
	requester, err := h.requester(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	query := h.db.Preload("User").Order("created_at DESC")
	if !requester.IsAdmin() {
		query = query.Where("user_id = ?", requester.ID)
	}
	if raw := r.URL.Query().Get("resolved"); raw != "" {
		if resolved, err := strconv.ParseBool(raw); err == nil {
			query = query.Where("resolved = ?", resolved)
		}
	}

	var reports []models.Report
	if err := query.Find(&reports).Error; err != nil {
		http.Error(w, "Error retrieving reports", http.StatusInternalServerError)
		return
	}

	response := make([]map[string]interface{}, 0, len(reports))
	for i := range reports {
		response = append(response, serialize(&reports[i], r))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reportID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid report ID", http.StatusBadRequest)
		return
	}

	requester, err := h.requester(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var report models.Report
	if err := h.db.Preload("User").First(&report, reportID).Error; err != nil {
		http.Error(w, "Report not found", http.StatusNotFound)
		return
	}

	if !requester.IsAdmin() && (report.UserID == nil || *report.UserID != requester.ID) {
		http.Error(w, "You do not have permission to perform this action", http.StatusForbidden)
		return
	}

	writeJSON(w, http.StatusOK, serialize(&report, r))
}

// CreateReport files a report against a post or a comment. Reporting your
// own content is rejected.
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	requester, err := h.requester(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var payload struct {
		ReportType string `json:"report_type"`
		Post       *uint  `json:"post"`
		Comment    *uint  `json:"comment"`
		Reason     string `json:"reason"`
		Action     string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if payload.ReportType == "" {
		payload.ReportType = models.ReportTypePost
	}
	if payload.ReportType != models.ReportTypePost && payload.ReportType != models.ReportTypeComment {
		writeJSON(w, http.StatusBadRequest, map[string]string{"report_type": "report_type must be post or comment"})
		return
	}
	if payload.Action != models.ReportActionDelete && payload.Action != models.ReportActionEdit {
		writeJSON(w, http.StatusBadRequest, map[string]string{"action": "action must be delete or edit"})
		return
	}

	report := models.Report{
		UserID:     &requester.ID,
		ReportType: payload.ReportType,
		Reason:     payload.Reason,
		Action:     payload.Action,
	}

	switch payload.ReportType {
	case models.ReportTypePost:
		if payload.Post == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"post": "post is required"})
			return
		}
		var post models.Post
		if err := h.db.First(&post, *payload.Post).Error; err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"post": "post does not exist"})
			return
		}
		if post.UserID == requester.ID {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "You cannot report your own content"})
			return
		}
		report.PostID = &post.ID
	case models.ReportTypeComment:
		if payload.Comment == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"comment": "comment is required"})
			return
		}
		var comment models.Comment
		if err := h.db.First(&comment, *payload.Comment).Error; err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"comment": "comment does not exist"})
			return
		}
		if comment.UserID != nil && *comment.UserID == requester.ID {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "You cannot report your own content"})
			return
		}
		report.CommentID = &comment.ID
	}

	if err := h.db.Create(&report).Error; err != nil {
		http.Error(w, "Error creating report", http.StatusInternalServerError)
		return
	}

	report.User = requester
	writeJSON(w, http.StatusCreated, serialize(&report, r))
}

// UpdateReport resolves or re-opens a report. Admin only.
func (h *Handler) UpdateReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reportID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid report ID", http.StatusBadRequest)
		return
	}

	requester, err := h.requester(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !requester.IsAdmin() {
		http.Error(w, "You do not have permission to perform this action", http.StatusForbidden)
		return
	}

	var report models.Report
	if err := h.db.Preload("User").First(&report, reportID).Error; err != nil {
		http.Error(w, "Report not found", http.StatusNotFound)
		return
	}

	var payload struct {
		Resolved *bool   `json:"resolved"`
		Reason   *string `json:"reason"`
		Action   *string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if payload.Resolved != nil {
		report.Resolved = *payload.Resolved
	}
	if payload.Reason != nil {
		report.Reason = *payload.Reason
	}
	if payload.Action != nil {
		if *payload.Action != models.ReportActionDelete && *payload.Action != models.ReportActionEdit {
			writeJSON(w, http.StatusBadRequest, map[string]string{"action": "action must be delete or edit"})
			return
		}
		report.Action = *payload.Action
	}

	if err := h.db.Save(&report).Error; err != nil {
		http.Error(w, "Error updating report", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, serialize(&report, r))
}

// DeleteReport withdraws a report. Reporter or admin only.
func (h *Handler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reportID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid report ID", http.StatusBadRequest)
		return
	}

	requester, err := h.requester(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var report models.Report
	if err := h.db.First(&report, reportID).Error; err != nil {
		http.Error(w, "Report not found", http.StatusNotFound)
		return
	}

	if !requester.IsAdmin() && (report.UserID == nil || *report.UserID != requester.ID) {
		http.Error(w, "You do not have permission to perform this action", http.StatusForbidden)
		return
	}

	if err := h.db.Delete(&report).Error; err != nil {
		http.Error(w, "Error deleting report", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Report deleted successfully",
	})
}
