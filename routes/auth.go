package routes

import (
	"net/http"
	"time"

	"student-intake-platform/internal/config"
	"student-intake-platform/models"
	"student-intake-platform/services"
	"student-intake-platform/utils"

	"github.com/gin-gonic/gin"
)

// SetupAuthRoutes wires the login endpoint. Admins and activated
// students share it; admin accounts are checked first.
func SetupAuthRoutes(router *gin.Engine, cfg *config.Config, students *services.StudentService) {
	auth := router.Group("/auth")

	auth.POST("/login", func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()

		// Admin accounts take precedence over student accounts.
		if admin, err := students.FindAdminByLogin(ctx, req.Username); err == nil {
			if !utils.CheckPassword(req.Password, admin.PasswordHash) {
				utils.RespondWithUnauthorized(c, "Invalid username or password")
				return
			}

			token, err := utils.GenerateJWT(admin.ID.Hex(), admin.Role, "", cfg.JWTSecret, cfg.JWTExpiresIn)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to generate token", nil)
				return
			}

			c.JSON(http.StatusOK, models.LoginResponse{
				Token:     token,
				ExpiresAt: time.Now().Add(cfg.JWTExpiresIn),
				User: models.AuthUser{
					ID:       admin.ID.Hex(),
					Username: admin.Username,
					Email:    admin.Email,
					Role:     admin.Role,
				},
			})
			return
		}

		student, err := students.FindActiveStudentByLogin(ctx, req.Username)
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid username or password")
			return
		}
		if !utils.CheckPassword(req.Password, student.PasswordHash) {
			utils.RespondWithUnauthorized(c, "Invalid username or password")
			return
		}

		token, err := utils.GenerateJWT(student.ID.Hex(), "student", student.AIKey, cfg.JWTSecret, cfg.JWTExpiresIn)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to generate token", nil)
			return
		}

		c.JSON(http.StatusOK, models.LoginResponse{
			Token:     token,
			ExpiresAt: time.Now().Add(cfg.JWTExpiresIn),
			User: models.AuthUser{
				ID:       student.ID.Hex(),
				Username: student.Username,
				Email:    student.Email,
				Role:     "student",
				AIKey:    student.AIKey,
			},
		})
	})

	// Exchange a still-valid token for a fresh one with the same claims.
	auth.POST("/refresh", func(c *gin.Context) {
		tokenString := utils.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if tokenString == "" {
			utils.RespondWithUnauthorized(c, "Authentication token is required")
			return
		}

		token, err := utils.RefreshJWT(tokenString, cfg.JWTSecret, cfg.JWTExpiresIn)
		if err != nil {
			utils.RespondWithUnauthorized(c, "Your session has expired. Please log in again.")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":      token,
			"expires_at": time.Now().Add(cfg.JWTExpiresIn),
		})
	})
}
