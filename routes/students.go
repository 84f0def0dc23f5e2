package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"student-intake-platform/internal/config"
	"student-intake-platform/middleware"
	"student-intake-platform/models"
	"student-intake-platform/services"
	"student-intake-platform/utils"

	"github.com/gin-gonic/gin"
)

// StudentView is the API shape of a student profile: extracted fields
// in priority order and documents as an array in upload order.
type StudentView struct {
	ID          string                  `json:"id"`
	AIKey       string                  `json:"aiKey"`
	Username    string                  `json:"username,omitempty"`
	Email       string                  `json:"email,omitempty"`
	Status      string                  `json:"status"`
	ContactInfo *models.ContactInfo     `json:"contactInfo,omitempty"`
	Fields      services.OrderedFields  `json:"fields"`
	Documents   []models.DocumentRecord `json:"documents"`
	CreatedAt   time.Time               `json:"createdAt"`
	UpdatedAt   time.Time               `json:"updatedAt"`
}

func NewStudentView(s *models.Student) *StudentView {
	if s == nil {
		return nil
	}
	docs := s.Documents.Records()
	if docs == nil {
		docs = []models.DocumentRecord{}
	}
	return &StudentView{
		ID:          s.ID.Hex(),
		AIKey:       s.AIKey,
		Username:    s.Username,
		Email:       s.Email,
		Status:      s.Status,
		ContactInfo: s.ContactInfo,
		Fields:      services.PrioritizeFields(s.NormalizedFields()),
		Documents:   docs,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// SetupStudentRoutes wires the admin surface for managing student
// profiles.
func SetupStudentRoutes(router *gin.Engine, cfg *config.Config, auth *middleware.AuthMiddleware,
	students *services.StudentService, exporter *services.ExportService, mailer services.EmailSender) {

	admin := router.Group("/api/students")
	admin.Use(auth.RequireAuth(), middleware.EnrichTrace(), auth.RequireRole("admin", "superadmin"))

	// List students, optionally filtered by status or a name/email
	// search term.
	admin.GET("", func(c *gin.Context) {
		list, err := students.List(c.Request.Context(), c.Query("status"), c.Query("search"))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list students", nil)
			return
		}

		views := make([]*StudentView, 0, len(list))
		for i := range list {
			views = append(views, NewStudentView(&list[i]))
		}
		c.JSON(http.StatusOK, gin.H{"students": views, "count": len(views)})
	})

	// Export all student profiles as an xlsx workbook.
	admin.GET("/export", func(c *gin.Context) {
		list, err := students.List(c.Request.Context(), c.Query("status"), "")
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list students", nil)
			return
		}

		ptrs := make([]*models.Student, 0, len(list))
		for i := range list {
			ptrs = append(ptrs, &list[i])
		}

		buf, err := exporter.ExportStudents(ptrs)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to build export", gin.H{"error": err.Error()})
			return
		}

		filename := fmt.Sprintf("students-%s.xlsx", time.Now().Format("2006-01-02"))
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Data(http.StatusOK,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			buf.Bytes())
	})

	admin.GET("/:aiKey", func(c *gin.Context) {
		student, err := students.FindByAIKey(c.Request.Context(), c.Param("aiKey"))
		if err == services.ErrStudentNotFound {
			utils.RespondWithNotFound(c, "Student not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load student", nil)
			return
		}
		c.JSON(http.StatusOK, NewStudentView(student))
	})

	// Activate a pending contact into a student account. The generated
	// password is returned once and never stored in the clear.
	admin.POST("/:id/activate", func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required,min=3,max=50"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		password, err := utils.GenerateTemporaryPassword()
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to generate password", nil)
			return
		}

		student, err := students.Activate(c.Request.Context(), c.Param("id"), req.Username, password, cfg.BcryptCost)
		switch {
		case err == services.ErrStudentNotFound:
			utils.RespondWithNotFound(c, "Student not found")
			return
		case err == services.ErrNotPending:
			utils.RespondWithConflict(c, "Student is not pending activation")
			return
		case err != nil:
			utils.RespondWithInternalError(c, "Failed to activate student", gin.H{"error": err.Error()})
			return
		}

		// Notify the student; activation already succeeded, so a mail
		// failure only gets logged.
		if mailer != nil {
			if err := mailer.SendActivationEmail(student, req.Username); err != nil {
				slog.Warn("activation email failed", "ai_key", student.AIKey, "error", err)
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"student":           NewStudentView(student),
			"temporaryPassword": password,
		})
	})

	// Students can read their own profile.
	me := router.Group("/api/me")
	me.Use(auth.RequireAuth(), middleware.EnrichTrace())
	me.GET("", func(c *gin.Context) {
		aiKey := middleware.GetAIKey(c)
		if aiKey == "" {
			utils.RespondWithForbidden(c, "Only student accounts have a profile")
			return
		}
		student, err := students.FindByAIKey(c.Request.Context(), aiKey)
		if err == services.ErrStudentNotFound {
			utils.RespondWithNotFound(c, "Student not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load student", nil)
			return
		}
		c.JSON(http.StatusOK, NewStudentView(student))
	})
}
