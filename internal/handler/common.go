package handler

import (
	"errors"
	"log"
	"net/http"

	"gametable/backend/internal/models"
	"gametable/backend/internal/repository"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
}

// respondError maps the repository error taxonomy onto HTTP statuses.
// Validation, conflict and permission problems carry their message to the
// user; storage failures log the detail and answer generically.
func respondError(c *gin.Context, err error) {
	var (
		validationErr *repository.ValidationError
		conflictErr   *repository.ConflictError
		capacityErr   *repository.CapacityError
		permissionErr *repository.PermissionError
		storageErr    *repository.StorageError
	)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{"error": conflictErr.Error()})
	case errors.As(err, &capacityErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":             capacityErr.Error(),
			"waitlist_possible": true,
		})
	case errors.As(err, &permissionErr):
		c.JSON(http.StatusForbidden, gin.H{"error": permissionErr.Error()})
	case errors.As(err, &storageErr):
		log.Printf("storage error: %v", storageErr)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong, please try again"})
	default:
		log.Printf("unexpected error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong, please try again"})
	}
}

// currentRequester resolves the authenticated caller into a repository
// Requester, including the admin predicate.
func currentRequester(c *gin.Context, db *gorm.DB) repository.Requester {
	userID, exists := c.Get("userID")
	if !exists {
		return repository.Requester{}
	}
	id := userID.(uint)

	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		return repository.Requester{ID: id}
	}
	return repository.Requester{ID: id, Admin: user.IsAdmin()}
}
