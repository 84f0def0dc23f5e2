package routes

import (
	"log/slog"
	"net/http"

	"student-intake-platform/models"
	"student-intake-platform/services"
	"student-intake-platform/utils"

	"github.com/gin-gonic/gin"
)

// SetupContactRoutes wires the public contact-form endpoint. A
// submission creates a pending student profile awaiting activation.
func SetupContactRoutes(router *gin.Engine, students *services.StudentService, mailer services.EmailSender) {
	router.POST("/api/contact", func(c *gin.Context) {
		var req struct {
			Name    string `json:"name" binding:"required,min=2,max=100"`
			Email   string `json:"email" binding:"required,email"`
			Phone   string `json:"phone" binding:"max=30"`
			Message string `json:"message" binding:"max=2000"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		info := models.ContactInfo{
			Name:    req.Name,
			Email:   req.Email,
			Phone:   req.Phone,
			Message: req.Message,
		}

		student, err := students.CreateContact(c.Request.Context(), info)
		if err == services.ErrContactExists {
			utils.RespondWithConflict(c, "A contact request for this email is already pending")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to submit contact request", nil)
			return
		}

		if mailer != nil {
			if err := mailer.SendContactNotification(info); err != nil {
				slog.Warn("contact notification email failed", "email", info.Email, "error", err)
			}
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Contact request received",
			"id":      student.ID.Hex(),
		})
	})
}
