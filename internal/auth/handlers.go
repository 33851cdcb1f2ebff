package auth

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/forestlens/mspo-maps/internal/db"
	"github.com/forestlens/mspo-maps/internal/middleware"
	"github.com/forestlens/mspo-maps/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type MeResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// sessionCookie builds the session cookie. Deployed behind TLS (PORT set by
// the platform) it is Secure and SameSite=None; locally it stays Lax.
func sessionCookie(value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if os.Getenv("PORT") != "" {
		c.Secure = true
		c.SameSite = http.SameSiteNoneMode
	}
	return c
}

func RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.RespondError(w, r, http.StatusBadRequest, "Invalid Request Format")
		return
	}

	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		utils.RespondError(w, r, http.StatusBadRequest, "Username and password are required")
		return
	}

	var existing User
	if err := db.DB.First(&existing, "username = ?", in.Username).Error; err == nil {
		utils.RespondError(w, r, http.StatusConflict, "Username already taken")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondError(w, r, http.StatusInternalServerError, "Server error hashing password")
		return
	}

	user := User{
		UserID:         utils.GenerateUUID(),
		Username:       in.Username,
		Email:          in.Email,
		HashedPassword: string(hashed),
	}
	if err := db.DB.Create(&user).Error; err != nil {
		if db.IsUniqueViolation(err) {
			utils.RespondError(w, r, http.StatusConflict, "Username already taken")
			return
		}
		log.Printf("[auth] register %s: %v", in.Username, err)
		utils.RespondError(w, r, http.StatusInternalServerError, "Failed to register user")
		return
	}

	utils.RespondData(w, r, http.StatusCreated, MeResponse{UserID: user.UserID, Username: user.Username})
}

func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.RespondError(w, r, http.StatusBadRequest, "Invalid Data")
		return
	}

	var user User
	if err := db.DB.First(&user, "username = ?", in.Username).Error; err != nil {
		utils.RespondError(w, r, http.StatusUnauthorized, "Invalid Credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(in.Password)); err != nil {
		utils.RespondError(w, r, http.StatusUnauthorized, "Invalid Credentials")
		return
	}

	// One session per user: logging in again rotates the id.
	sessionID := utils.GenerateUUID()
	expires := time.Now().Add(SessionTTL)

	var existing Session
	err := db.DB.Where("user_id = ?", user.UserID).First(&existing).Error
	switch {
	case err == nil:
		err = db.DB.Model(&Session{}).Where("user_id = ?", user.UserID).
			Updates(map[string]interface{}{"session_id": sessionID, "expires_at": expires}).Error
	case db.IsNotFound(err):
		err = db.DB.Create(&Session{SessionID: sessionID, UserID: user.UserID, ExpiresAt: expires}).Error
	}
	if err != nil {
		log.Printf("[auth] login %s: %v", user.UserID, err)
		utils.RespondError(w, r, http.StatusInternalServerError, "Failed to create session")
		return
	}

	http.SetCookie(w, sessionCookie(sessionID, expires))
	utils.RespondMessage(w, r, http.StatusOK, "Login successful", MeResponse{UserID: user.UserID, Username: user.Username})
}

func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	if err := db.DB.Where("user_id = ?", userID).Delete(&Session{}).Error; err != nil {
		log.Printf("[auth] logout %s: %v", userID, err)
		utils.RespondError(w, r, http.StatusInternalServerError, "Failed to end session")
		return
	}

	expired := sessionCookie("", time.Unix(0, 0))
	expired.MaxAge = -1
	http.SetCookie(w, expired)
	utils.RespondMessage(w, r, http.StatusOK, "Logout successful", nil)
}

func MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.RespondError(w, r, http.StatusUnauthorized, "Unauthorized: missing user ID in context")
		return
	}

	var user User
	if err := db.DB.First(&user, "user_id = ?", userID).Error; err != nil {
		utils.RespondNotFound(w, r, "User")
		return
	}

	utils.RespondData(w, r, http.StatusOK, MeResponse{UserID: userID, Username: user.Username})
}

func UpdatePasswordHandler(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}

	userID, _ := utils.GetUserIDFromContext(r.Context())
	var user User
	if err := db.DB.First(&user, "user_id = ?", userID).Error; err != nil {
		utils.RespondError(w, r, http.StatusUnauthorized, "Couldn't find user")
		return
	}

	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.NewPassword == "" {
		utils.RespondError(w, r, http.StatusBadRequest, "Current and new password are required")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(in.CurrentPassword)); err != nil {
		utils.RespondError(w, r, http.StatusUnauthorized, "Invalid current password")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondError(w, r, http.StatusInternalServerError, "Server error hashing password")
		return
	}

	if err := db.DB.Model(&user).Update("hashed_password", string(hashed)).Error; err != nil {
		utils.RespondError(w, r, http.StatusInternalServerError, "Failed to update password")
		return
	}
	utils.RespondMessage(w, r, http.StatusOK, "Password updated", nil)
}
