package handler

import (
	"errors"
	"net/http"

	"github.com/CodesWithRakib/edutrack-exam-backend/internal/middleware"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/model"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/response"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/service"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// DeliveryHandler handles the student-facing exam taking endpoints.
type DeliveryHandler struct {
	deliveryService *service.DeliveryService
	examService     *service.ExamService
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(deliveryService *service.DeliveryService, examService *service.ExamService) *DeliveryHandler {
	return &DeliveryHandler{
		deliveryService: deliveryService,
		examService:     examService,
	}
}

// failDelivery maps delivery service errors onto API error codes.
func failDelivery(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExamNotAvailable), errors.Is(err, service.ErrPayloadNotCached):
		response.Fail(c, http.StatusNotFound, response.ErrExamNotAvailable)
	case errors.Is(err, service.ErrAttemptNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
	case errors.Is(err, service.ErrAttemptCompleted), errors.Is(err, service.ErrStaleAttempt):
		response.Fail(c, http.StatusConflict, response.ErrAttemptCompleted)
	case errors.Is(err, service.ErrAttemptInProgress):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	case errors.Is(err, service.ErrSubmitInProgress):
		response.Fail(c, http.StatusConflict, response.ErrSubmitInProgress)
	case errors.Is(err, service.ErrResultNotReady):
		response.Fail(c, http.StatusNotFound, response.ErrResultNotReady)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// ListAvailable godoc
// GET /api/v1/delivery/exams
// Lists published exams the student can start, overlaid with attempt status.
func (h *DeliveryHandler) ListAvailable(c *gin.Context) {
	claims := middleware.GetClaims(c)

	exams, err := h.deliveryService.ListAvailable(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// StartAttempt godoc
// POST /api/v1/delivery/exams/:exam_id/start
// Starts (or resumes) the student's attempt. Idempotent.
func (h *DeliveryHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	attempt, err := h.deliveryService.StartAttempt(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failDelivery(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// GetPaper godoc
// GET /api/v1/delivery/exams/:exam_id/paper
// Returns the cached question payload, correct answers stripped.
func (h *DeliveryHandler) GetPaper(c *gin.Context) {
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	payload, err := h.examService.GetExamPayload(c.Request.Context(), examID)
	if err != nil {
		failDelivery(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": payload})
}

// GetState godoc
// GET /api/v1/delivery/exams/:exam_id/state
// Returns autosaved answers and the authoritative remaining time.
func (h *DeliveryHandler) GetState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	state, err := h.deliveryService.GetState(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failDelivery(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": state})
}

// SubmitAttempt godoc
// POST /api/v1/delivery/exams/:exam_id/submit
// Grades the attempt exactly once and returns the result.
func (h *DeliveryHandler) SubmitAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	var req model.SubmitAttemptRequest
	if c.Request.ContentLength > 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	state, err := h.deliveryService.GetState(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failDelivery(c, err)
		return
	}

	result, err := h.deliveryService.Submit(c.Request.Context(), examID, claims.UserID, state.AttemptNumber, req.Answers)
	if err != nil {
		failDelivery(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// GetResult godoc
// GET /api/v1/delivery/exams/:exam_id/result
// Returns the graded result of the latest completed attempt.
func (h *DeliveryHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	result, err := h.deliveryService.GetResult(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failDelivery(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// RetakeAttempt godoc
// POST /api/v1/delivery/exams/:exam_id/retake
// Reopens a completed attempt with a fresh clock and empty answers.
func (h *DeliveryHandler) RetakeAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	attempt, err := h.deliveryService.Retake(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failDelivery(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}
