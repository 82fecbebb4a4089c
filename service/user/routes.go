package user

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"

	"github.com/miniforum/mini-forum-server/cmd/models"
	"github.com/miniforum/mini-forum-server/cmd/utils"
)

const (
	loginRateLimit   = 5
	loginRateWindow  = time.Minute
	resetRateLimit   = 3
	resetRateWindow  = 5 * time.Minute
	minPasswordChars = 6
)

type Handler struct {
	db      *gorm.DB
	limiter *utils.RateLimiter
}

func NewHandler(db *gorm.DB, limiter *utils.RateLimiter) *Handler {
	return &Handler{db: db, limiter: limiter}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	// /users/me must be wired before /users/{id}.
	router.HandleFunc("/users/me", utils.AuthMiddleware(h.Me)).Methods("GET")
	router.HandleFunc("/users", h.HandleRegister).Methods("POST")
	router.HandleFunc("/users", h.GetUsers).Methods("GET")
	router.HandleFunc("/users/{id}", h.GetUser).Methods("GET")
	router.HandleFunc("/users/{id}", utils.AuthMiddleware(h.UpdateUser)).Methods("PUT", "PATCH")
	router.HandleFunc("/users/{id}", utils.AuthMiddleware(h.DeleteUser)).Methods("DELETE")

	router.HandleFunc("/token", h.HandleToken).Methods("POST")
	router.HandleFunc("/token/refresh", h.HandleTokenRefresh).Methods("POST")
	router.HandleFunc("/auth/password-reset", h.HandlePasswordResetRequest).Methods("POST")
	router.HandleFunc("/auth/password-reset-confirm", h.HandlePasswordResetConfirm).Methods("POST")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeFieldError(w http.ResponseWriter, field, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{field: message})
}

// resolveByIdentifier finds a user by username or email, both matched
// case-insensitively. Returns nil when nothing matches.
func (h *Handler) resolveByIdentifier(identifier string) *models.User {
	ident := strings.TrimSpace(identifier)
	if ident == "" {
		return nil
	}

	var user models.User
	var result *gorm.DB
	if strings.Contains(ident, "@") {
		result = h.db.Where("LOWER(email) = LOWER(?)", ident).First(&user)
	} else {
		result = h.db.Where("LOWER(username) = LOWER(?)", ident).First(&user)
	}
	if result.Error != nil {
		return nil
	}
	return &user
}

func (h *Handler) requester(r *http.Request) (*models.User, error) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// HandleRegister creates a new account with the default user role.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var registerRequest struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&registerRequest); err != nil {
		http.Error(w, "Invalid JSON input", http.StatusBadRequest)
		return
	}

	registerRequest.Username = strings.TrimSpace(registerRequest.Username)
	if registerRequest.Username == "" {
		writeFieldError(w, "username", "This field is required")
		return
	}
	if len(registerRequest.Password) < minPasswordChars {
		writeFieldError(w, "password", fmt.Sprintf("Password must be at least %d characters long", minPasswordChars))
		return
	}

	var existing models.User
	if result := h.db.Where("LOWER(username) = LOWER(?)", registerRequest.Username).First(&existing); !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		if result.Error != nil {
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}
		writeFieldError(w, "username", "A user with that username already exists")
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(registerRequest.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}

	user := models.User{
		Username:     registerRequest.Username,
		Email:        registerRequest.Email,
		PasswordHash: string(passwordHash),
		Role:         models.RoleUser,
		Social:       "{}",
	}

	if err := h.db.Create(&user).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "UNIQUE constraint") {
			writeFieldError(w, "username", "A user with that username already exists")
			return
		}
		http.Error(w, "Error registering user", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, SerializeUser(&user, r))
}

// GetUsers lists all accounts.
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	if result := h.db.Order("id").Find(&users); result.Error != nil {
		http.Error(w, "Error retrieving users", http.StatusInternalServerError)
		return
	}

	response := make([]map[string]interface{}, 0, len(users))
	for i := range users {
		response = append(response, SerializeUser(&users[i], r))
	}
	writeJSON(w, http.StatusOK, response)
}

// GetUser retrieves one profile.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, SerializeUser(&user, r))
}

// Me returns the caller's own record.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	requester, err := h.requester(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, SerializeUser(requester, r))
}

// UpdateUser applies a partial profile update. Only the profile's owner or an
// admin may write; role/is_staff changes additionally require admin.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	requester, err := h.requester(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !requester.IsAdmin() && requester.ID != uint(userID) {
		http.Error(w, "You do not have permission to perform this action", http.StatusForbidden)
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	var updateData struct {
		Username *string         `json:"username"`
		Email    *string         `json:"email"`
		Bio      *string         `json:"bio"`
		Role     *string         `json:"role"`
		IsStaff  *bool           `json:"is_staff"`
		Social   json.RawMessage `json:"social"`
	}

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(utils.MaxImageSize); err != nil {
			http.Error(w, "Error parsing form", http.StatusBadRequest)
			return
		}
		for key, assign := range map[string]**string{
			"username": &updateData.Username,
			"email":    &updateData.Email,
			"bio":      &updateData.Bio,
			"role":     &updateData.Role,
		} {
			if vals, ok := r.MultipartForm.Value[key]; ok && len(vals) > 0 {
				v := vals[0]
				*assign = &v
			}
		}
		if vals, ok := r.MultipartForm.Value["is_staff"]; ok && len(vals) > 0 {
			b, err := strconv.ParseBool(vals[0])
			if err == nil {
				updateData.IsStaff = &b
			}
		}
		if vals, ok := r.MultipartForm.Value["social"]; ok && len(vals) > 0 {
			updateData.Social = json.RawMessage(vals[0])
		}
		if file, header, err := r.FormFile("avatar"); err == nil {
			defer file.Close()
			avatarPath, err := utils.SaveImage(file, header, "avatars")
			if err != nil {
				writeFieldError(w, "avatar", err.Error())
				return
			}
			user.AvatarPath = avatarPath
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&updateData); err != nil {
			http.Error(w, "Invalid JSON input", http.StatusBadRequest)
			return
		}
	}

	if (updateData.Role != nil || updateData.IsStaff != nil) && !requester.IsAdmin() {
		http.Error(w, "Only admins can change role or is_staff", http.StatusForbidden)
		return
	}

	if updateData.Username != nil && strings.TrimSpace(*updateData.Username) != "" {
		user.Username = strings.TrimSpace(*updateData.Username)
	}
	if updateData.Email != nil {
		user.Email = *updateData.Email
	}
	if updateData.Bio != nil {
		user.Bio = *updateData.Bio
	}
	if updateData.Role != nil {
		if *updateData.Role != models.RoleAdmin && *updateData.Role != models.RoleUser {
			writeFieldError(w, "role", "Role must be admin or user")
			return
		}
		user.Role = *updateData.Role
	}
	if updateData.IsStaff != nil {
		user.IsStaff = *updateData.IsStaff
	}
	if len(updateData.Social) > 0 {
		user.Social = normalizeSocial(updateData.Social)
	}

	if err := h.db.Save(&user).Error; err != nil {
		http.Error(w, "Error updating user", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, SerializeUser(&user, r))
}

// normalizeSocial accepts the social links as a JSON object or as a
// JSON-encoded string of one (multipart transport) and returns canonical text.
func normalizeSocial(raw json.RawMessage) string {
	var links map[string]string
	if err := json.Unmarshal(raw, &links); err == nil {
		return utils.EncodeSocial(links)
	}

	var nested string
	if err := json.Unmarshal(raw, &nested); err == nil {
		if err := json.Unmarshal([]byte(nested), &links); err == nil {
			return utils.EncodeSocial(links)
		}
	}

	// Raw multipart value may already be the object text.
	if err := json.Unmarshal([]byte(string(raw)), &links); err == nil {
		return utils.EncodeSocial(links)
	}
	return "{}"
}

// DeleteUser removes an account. Admin only; posts cascade, comments and
// reports keep their rows with the author nulled.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	requester, err := h.requester(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !requester.IsAdmin() {
		http.Error(w, "Only admins can delete users", http.StatusForbidden)
		return
	}

	result := h.db.Delete(&models.User{}, userID)
	if result.Error != nil {
		http.Error(w, "Error deleting user", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "User deleted successfully",
	})
}

// HandleToken issues an access/refresh pair. The identifier may be a
// username or an email; failures are deliberately indistinguishable.
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var loginRequest struct {
		Username   string `json:"username"`
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&loginRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ident := strings.TrimSpace(loginRequest.Identifier)
	if ident == "" {
		ident = strings.TrimSpace(loginRequest.Username)
	}
	if ident == "" || loginRequest.Password == "" {
		writeFieldError(w, "detail", "Username/email and password are required")
		return
	}

	if !h.limiter.Allow(r.Context(), strings.ToLower(ident), "login", loginRateLimit, loginRateWindow) {
		http.Error(w, "Too many login attempts, try again later", http.StatusTooManyRequests)
		return
	}

	user := h.resolveByIdentifier(ident)
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Invalid username/email or password",
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(loginRequest.Password)); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Invalid username/email or password",
		})
		return
	}

	accessToken, err := utils.GenerateAccessToken(user.ID)
	if err != nil {
		http.Error(w, "Error generating access token", http.StatusInternalServerError)
		return
	}
	refreshToken, err := utils.GenerateRefreshToken(user.ID)
	if err != nil {
		http.Error(w, "Error generating refresh token", http.StatusInternalServerError)
		return
	}

	var avatar interface{}
	if user.AvatarPath != "" {
		avatar = utils.AbsoluteMediaURL(r, user.AvatarPath)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access":   accessToken,
		"refresh":  refreshToken,
		"username": user.Username,
		"avatar":   avatar,
	})
}

// HandleTokenRefresh exchanges a refresh token for a fresh access token.
// Stateless: nothing is stored or revoked server-side.
func (h *Handler) HandleTokenRefresh(w http.ResponseWriter, r *http.Request) {
	var refreshRequest struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&refreshRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	claims, err := utils.ParseToken(refreshRequest.Refresh)
	if err != nil || claims.TokenType != utils.TokenTypeRefresh {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Token is invalid or expired",
		})
		return
	}

	userID, err := claims.UserID()
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Token is invalid or expired",
		})
		return
	}

	accessToken, err := utils.GenerateAccessToken(userID)
	if err != nil {
		http.Error(w, "Error generating access token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access": accessToken,
	})
}

// HandlePasswordResetRequest emits a reset link for a matching account. The
// response is identical whether or not the account exists.
func (h *Handler) HandlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var resetRequest struct {
		Identifier string `json:"identifier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&resetRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ident := strings.TrimSpace(resetRequest.Identifier)
	if ident == "" {
		writeFieldError(w, "identifier", "This field is required")
		return
	}

	if !h.limiter.Allow(r.Context(), strings.ToLower(ident), "password_reset", resetRateLimit, resetRateWindow) {
		http.Error(w, "Too many reset requests, try again later", http.StatusTooManyRequests)
		return
	}

	vagueResponse := map[string]string{
		"detail": "If an account exists, a password reset email has been sent",
	}

	user := h.resolveByIdentifier(ident)
	if user == nil {
		writeJSON(w, http.StatusOK, vagueResponse)
		return
	}

	token := MakeResetToken(user, time.Now())
	uid := EncodeUID(user.ID)

	frontendBase := strings.TrimSuffix(os.Getenv("FRONTEND_BASE_URL"), "/")
	if frontendBase == "" {
		frontendBase = "http://localhost:5173"
	}
	resetLink := fmt.Sprintf("%s/reset-password/confirm?uid=%s&token=%s", frontendBase, uid, token)

	// Delivery failures are logged, never surfaced to the caller.
	if err := sendResetEmail(user.Email, resetLink); err != nil {
		log.Printf("Error sending password reset email: %v", err)
	}

	// Echo the link in development so the flow is testable without SMTP.
	if debug, _ := strconv.ParseBool(os.Getenv("APP_DEBUG")); debug {
		writeJSON(w, http.StatusOK, map[string]string{
			"detail":     vagueResponse["detail"],
			"reset_link": resetLink,
		})
		return
	}

	writeJSON(w, http.StatusOK, vagueResponse)
}

// HandlePasswordResetConfirm validates uid+token and sets the new password.
func (h *Handler) HandlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var confirmRequest struct {
		UID         string `json:"uid"`
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&confirmRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(confirmRequest.NewPassword) < minPasswordChars {
		writeFieldError(w, "new_password", fmt.Sprintf("Password must be at least %d characters long", minPasswordChars))
		return
	}

	userID, err := DecodeUID(confirmRequest.UID)
	if err != nil {
		writeFieldError(w, "uid", "Invalid uid")
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		writeFieldError(w, "uid", "Invalid uid")
		return
	}

	if !CheckResetToken(&user, confirmRequest.Token, time.Now()) {
		writeFieldError(w, "token", "Invalid or expired token")
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(confirmRequest.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}

	user.PasswordHash = string(passwordHash)
	if err := h.db.Save(&user).Error; err != nil {
		http.Error(w, "Error updating password", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"detail": "Password has been reset successfully",
	})
}

func sendResetEmail(email, resetLink string) error {
	if email == "" {
		return nil
	}

	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	if smtpHost == "" {
		log.Printf("SMTP not configured, reset link for %s: %s", email, resetLink)
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", smtpUser)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Password reset for Mini Forum")
	m.SetBody("text/plain", fmt.Sprintf("Use the following link to reset your password:\n%s\nIf you did not request this, ignore.", resetLink))

	port, err := strconv.Atoi(smtpPort)
	if err != nil {
		return fmt.Errorf("invalid SMTP port: %v", err)
	}
	d := gomail.NewDialer(smtpHost, port, smtpUser, smtpPass)

	return d.DialAndSend(m)
}
