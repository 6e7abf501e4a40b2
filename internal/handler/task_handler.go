package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"taskvault/internal/errors"
	"taskvault/internal/model"
	"taskvault/internal/repository"
	"taskvault/internal/service"
)

// TaskHandler handles task endpoints.
type TaskHandler struct {
	taskService service.TaskService
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(taskService service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// TaskCreateRequest represents a task creation request.
type TaskCreateRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"omitempty,max=1000"`
	Category    string     `json:"category" validate:"omitempty,max=50"`
	Priority    int        `json:"priority" validate:"omitempty,min=1,max=3"`
	DueDate     *time.Time `json:"due_date"`
}

// TaskUpdateRequest represents a partial task update. Absent fields are
// left untouched.
type TaskUpdateRequest struct {
	Title       *string    `json:"title" validate:"omitempty,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=1000"`
	Category    *string    `json:"category" validate:"omitempty,max=50"`
	Status      *string    `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
	Priority    *int       `json:"priority" validate:"omitempty,min=1,max=3"`
	DueDate     *time.Time `json:"due_date"`
}

// Create godoc
// @Summary Create a task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TaskCreateRequest true "Task data"
// @Success 201 {object} model.Task
// @Failure 400 {object} errors.ErrorResponse
// @Router /tasks [post]
func (h *TaskHandler) Create(c echo.Context) error {
	var req TaskCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "title must not be blank",
			Code:  "INVALID_TITLE",
		})
	}
	if req.DueDate != nil && !req.DueDate.After(time.Now()) {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "due date must be in the future",
			Code:  "INVALID_DUE_DATE",
		})
	}

	task, err := h.taskService.Create(c.Request().Context(), currentUserID(c), service.TaskCreateInput{
		Title:       title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    model.TaskPriority(req.Priority),
		DueDate:     req.DueDate,
	})
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusCreated, task)
}

// List godoc
// @Summary List the authenticated user's tasks
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status" Enums(pending, in_progress, completed)
// @Param priority query int false "Filter by priority (1-3)"
// @Param category query string false "Filter by category"
// @Param is_completed query bool false "Filter by completion flag"
// @Param search query string false "Search in title and description"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (1-100, default 10)"
// @Param sort_by query string false "Sort field (default created_at)"
// @Param order query string false "Sort order" Enums(asc, desc)
// @Success 200 {object} service.TaskPage
// @Failure 400 {object} errors.ErrorResponse
// @Router /tasks [get]
func (h *TaskHandler) List(c echo.Context) error {
	filter, err := parseTaskFilter(c)
	if err != nil {
		return err
	}

	page := intQueryParam(c, "page", 1)
	pageSize := intQueryParam(c, "page_size", 10)
	sortBy := c.QueryParam("sort_by")
	order := c.QueryParam("order")

	result, svcErr := h.taskService.List(c.Request().Context(), currentUserID(c), filter, page, pageSize, sortBy, order)
	if svcErr != nil {
		httpErr := errors.MapErrorToHTTP(svcErr)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, result)
}

// Stats godoc
// @Summary Task counts for the authenticated user
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.TaskStats
// @Router /tasks/stats [get]
func (h *TaskHandler) Stats(c echo.Context) error {
	stats, err := h.taskService.Stats(c.Request().Context(), currentUserID(c))
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, stats)
}

// Get godoc
// @Summary Get a task by id
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} model.Task
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id} [get]
func (h *TaskHandler) Get(c echo.Context) error {
	id, err := taskIDParam(c)
	if err != nil {
		return err
	}

	task, svcErr := h.taskService.Get(c.Request().Context(), id, currentUserID(c))
	if svcErr != nil {
		httpErr := errors.MapErrorToHTTP(svcErr)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, task)
}

// Update godoc
// @Summary Update a task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Param request body TaskUpdateRequest true "Fields to update"
// @Success 200 {object} model.Task
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id} [put]
func (h *TaskHandler) Update(c echo.Context) error {
	id, err := taskIDParam(c)
	if err != nil {
		return err
	}

	var req TaskUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	in := service.TaskUpdateInput{
		Description: req.Description,
		Category:    req.Category,
		DueDate:     req.DueDate,
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
				Error: "title must not be blank",
				Code:  "INVALID_TITLE",
			})
		}
		in.Title = &title
	}
	if req.Status != nil {
		status := model.TaskStatus(*req.Status)
		in.Status = &status
	}
	if req.Priority != nil {
		priority := model.TaskPriority(*req.Priority)
		in.Priority = &priority
	}

	task, svcErr := h.taskService.Update(c.Request().Context(), id, currentUserID(c), in)
	if svcErr != nil {
		httpErr := errors.MapErrorToHTTP(svcErr)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, task)
}

// Complete godoc
// @Summary Mark a task as completed
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} model.Task
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id}/complete [patch]
func (h *TaskHandler) Complete(c echo.Context) error {
	id, err := taskIDParam(c)
	if err != nil {
		return err
	}

	task, svcErr := h.taskService.Complete(c.Request().Context(), id, currentUserID(c))
	if svcErr != nil {
		httpErr := errors.MapErrorToHTTP(svcErr)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, task)
}

// Delete godoc
// @Summary Delete a task
// @Tags tasks
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id} [delete]
func (h *TaskHandler) Delete(c echo.Context) error {
	id, err := taskIDParam(c)
	if err != nil {
		return err
	}

	if svcErr := h.taskService.Delete(c.Request().Context(), id, currentUserID(c)); svcErr != nil {
		httpErr := errors.MapErrorToHTTP(svcErr)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.NoContent(http.StatusNoContent)
}

func taskIDParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid task id",
			Code:  "INVALID_ID",
		})
	}
	return uint(id), nil
}

func intQueryParam(c echo.Context, name string, def int) int {
	if v := c.QueryParam(name); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseTaskFilter(c echo.Context) (repository.TaskFilter, error) {
	var filter repository.TaskFilter

	if v := c.QueryParam("status"); v != "" {
		status := model.TaskStatus(v)
		if !status.Valid() {
			return filter, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
				Error: "invalid status filter",
				Code:  "INVALID_STATUS",
			})
		}
		filter.Status = &status
	}
	if v := c.QueryParam("priority"); v != "" {
		parsed, err := strconv.Atoi(v)
		priority := model.TaskPriority(parsed)
		if err != nil || !priority.Valid() {
			return filter, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
				Error: "invalid priority filter",
				Code:  "INVALID_PRIORITY",
			})
		}
		filter.Priority = &priority
	}
	if v := c.QueryParam("category"); v != "" {
		filter.Category = &v
	}
	if v := c.QueryParam("is_completed"); v != "" {
		completed, err := strconv.ParseBool(v)
		if err != nil {
			return filter, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
				Error: "invalid is_completed filter",
				Code:  "INVALID_FILTER",
			})
		}
		filter.IsCompleted = &completed
	}
	filter.Search = c.QueryParam("search")

	return filter, nil
}
