package handler

import (
	"net/http"

	"gametable/backend/internal/database"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AdminHandler provides operator endpoints.
type AdminHandler struct {
	db *gorm.DB
}

func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

// RepairSchema godoc
// @Summary      Check and repair the database schema (admin)
// @Description  Re-runs every table and column existence check and adds missing structure. Never destroys data.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]interface{} "{"issues_found": 0, "fixes_applied": 0, "checks": [...]}"
// @Failure      403 {object} ErrorResponse "Admin access required"
// @Router       /admin/repair [post]
func (h *AdminHandler) RepairSchema(c *gin.Context) {
	report := database.Repair(h.db)

	var issues, fixes int
	for _, check := range report {
		if check.IssueFound {
			issues++
		}
		if check.FixApplied {
			fixes++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"issues_found":  issues,
		"fixes_applied": fixes,
		"checks":        report,
	})
}
