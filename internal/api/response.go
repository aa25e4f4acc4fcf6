package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/apperror"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// envelope is the body of every JSON response
type envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Count      *int        `json:"count,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
	Details    []string    `json:"details,omitempty"`
	Error      string      `json:"error,omitempty"`
}

type pagination struct {
	Total       int `json:"total"`
	Pages       int `json:"pages"`
	CurrentPage int `json:"currentPage"`
	PerPage     int `json:"perPage"`
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func respondList(c *gin.Context, data interface{}, count int) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data, Count: &count})
}

func respondPage(c *gin.Context, data interface{}, total int, page service.Page) {
	pages := 0
	if page.Size > 0 {
		pages = int(math.Ceil(float64(total) / float64(page.Size)))
	}
	c.JSON(http.StatusOK, envelope{
		Success: true,
		Data:    data,
		Pagination: &pagination{
			Total:       total,
			Pages:       pages,
			CurrentPage: page.Number,
			PerPage:     page.Size,
		},
	})
}

// respondError writes err as an error envelope. Errors outside the
// apperror taxonomy are logged and reported as 500; their text is only
// exposed outside production.
func (h *Handler) respondError(c *gin.Context, err error) {
	appErr := apperror.From(err)
	body := envelope{Success: false, Message: appErr.Message, Details: appErr.Details}

	if appErr.Kind == apperror.KindInternal {
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		body.Message = "Server Error"
		if !h.opts.Production {
			body.Error = err.Error()
		}
	}

	c.AbortWithStatusJSON(appErr.Status(), body)
}

// bindJSON decodes the request body into dest, writing a 400 on failure
func (h *Handler) bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		h.respondError(c, bindingError(err))
		return false
	}
	return true
}

// bindingError turns gin binding failures into validation errors with
// one detail per offending field
func bindingError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperror.Validation("Invalid request body", err.Error())
	}

	details := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		field := lowerCamel(fieldError.Field())
		switch fieldError.Tag() {
		case "required":
			details = append(details, fmt.Sprintf("%s is required", field))
		case "email":
			details = append(details, fmt.Sprintf("%s must be a valid email", field))
		case "gt", "gte", "min":
			details = append(details, fmt.Sprintf("%s must be at least %s", field, fieldError.Param()))
		default:
			details = append(details, fmt.Sprintf("%s is invalid", field))
		}
	}
	return apperror.Validation("Validation failed", details...)
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// parsePage reads page and limit, falling back to defaults on bad input
func (h *Handler) parsePage(c *gin.Context) service.Page {
	page := service.Page{Number: 1, Size: h.opts.DefaultPageSize}

	if n, err := strconv.Atoi(c.Query("page")); err == nil && n > 0 {
		page.Number = n
	}
	if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 {
		page.Size = n
	}
	if h.opts.MaxPageSize > 0 && page.Size > h.opts.MaxPageSize {
		page.Size = h.opts.MaxPageSize
	}
	return page
}

func parseID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.Validation("Invalid ID")
	}
	return id, nil
}
