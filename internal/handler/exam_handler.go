package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/CodesWithRakib/edutrack-exam-backend/internal/exam"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/middleware"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/model"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/response"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/service"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ExamHandler handles the teacher-facing authoring endpoints.
type ExamHandler struct {
	examService      *service.ExamService
	deliveryService  *service.DeliveryService
	generatorService *service.GeneratorService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(
	examService *service.ExamService,
	deliveryService *service.DeliveryService,
	generatorService *service.GeneratorService,
) *ExamHandler {
	return &ExamHandler{
		examService:      examService,
		deliveryService:  deliveryService,
		generatorService: generatorService,
	}
}

// failAuthoring maps authoring service errors onto API error codes.
// Validation errors carry their field map through to the response.
func failAuthoring(c *gin.Context, err error) {
	var verr exam.ValidationErrors
	switch {
	case errors.As(err, &verr):
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, verr.Fields())
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotExamAuthor):
		response.Fail(c, http.StatusForbidden, response.ErrNotExamAuthor)
	case errors.Is(err, service.ErrExamNotDraft):
		response.Fail(c, http.StatusConflict, response.ErrExamNotDraft)
	case errors.Is(err, service.ErrExamNotPublished):
		response.Fail(c, http.StatusConflict, response.ErrExamNotPublished)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusBadRequest, response.ErrNoQuestions)
	case errors.Is(err, exam.ErrIndexOutOfRange):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// examIDParam parses the :exam_id path parameter.
func examIDParam(c *gin.Context) (uuid.UUID, bool) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return examID, true
}

// ListExams godoc
// GET /api/v1/exams
// Lists the caller's exams with pagination.
func (h *ExamHandler) ListExams(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	exams, pagination, err := h.examService.ListByAuthor(c.Request.Context(), claims.UserID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"exams": exams}, pagination)
}

// GetExam godoc
// GET /api/v1/exams/:exam_id
// Returns one exam with its questions, correct answers included.
func (h *ExamHandler) GetExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	detail, err := h.examService.GetDetail(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failAuthoring(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": detail})
}

// CreateExam godoc
// POST /api/v1/exams
// Creates a new draft exam with no questions.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	created, err := h.examService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": created})
}

// UpdateExam godoc
// PUT /api/v1/exams/:exam_id
// Replaces a draft's title, subject and full question list after validation.
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	detail, err := h.examService.Update(c.Request.Context(), examID, claims.UserID, &req)
	if err != nil {
		failAuthoring(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": detail})
}

// DeleteExam godoc
// DELETE /api/v1/exams/:exam_id
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	if err := h.examService.Delete(c.Request.Context(), examID, claims.UserID); err != nil {
		failAuthoring(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// PublishExam godoc
// POST /api/v1/exams/:exam_id/publish
// Validates the draft, warms the cache, and flips the status.
func (h *ExamHandler) PublishExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	if err := h.examService.Publish(c.Request.Context(), examID, claims.UserID); err != nil {
		failAuthoring(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": model.ExamStatusPublished})
}

// UnpublishExam godoc
// POST /api/v1/exams/:exam_id/unpublish
func (h *ExamHandler) UnpublishExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	if err := h.examService.Unpublish(c.Request.Context(), examID, claims.UserID); err != nil {
		failAuthoring(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": model.ExamStatusDraft})
}

// ExamStats godoc
// GET /api/v1/exams/:exam_id/stats
// Returns the question-mix analysis and authoring recommendations.
func (h *ExamHandler) ExamStats(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	stats, err := h.examService.Stats(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failAuthoring(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}

// ExamResults godoc
// GET /api/v1/exams/:exam_id/results
// Lists per-student outcomes for the author.
func (h *ExamHandler) ExamResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	rows, pagination, err := h.deliveryService.ListResults(c.Request.Context(), examID, claims.UserID, page, perPage)
	if err != nil {
		failAuthoring(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": rows}, pagination)
}

// AddQuestion godoc
// POST /api/v1/exams/:exam_id/questions
// Appends a question to the draft. An empty body appends the blank template.
func (h *ExamHandler) AddQuestion(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	var req model.AddQuestionRequest
	if c.Request.ContentLength > 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	detail, err := h.examService.AddQuestion(c.Request.Context(), examID, claims.UserID, &req)
	if err != nil {
		failAuthoring(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": detail})
}

// DuplicateQuestion godoc
// POST /api/v1/exams/:exam_id/questions/:index/duplicate
func (h *ExamHandler) DuplicateQuestion(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	detail, err := h.examService.DuplicateQuestion(c.Request.Context(), examID, claims.UserID, index)
	if err != nil {
		failAuthoring(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": detail})
}

// RemoveQuestion godoc
// DELETE /api/v1/exams/:exam_id/questions/:index
func (h *ExamHandler) RemoveQuestion(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	detail, err := h.examService.RemoveQuestion(c.Request.Context(), examID, claims.UserID, index)
	if err != nil {
		failAuthoring(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": detail})
}

// ReorderQuestion godoc
// POST /api/v1/exams/:exam_id/questions/reorder
func (h *ExamHandler) ReorderQuestion(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	var req model.ReorderQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	detail, err := h.examService.ReorderQuestion(c.Request.Context(), examID, claims.UserID, &req)
	if err != nil {
		failAuthoring(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": detail})
}

// GenerateExam godoc
// POST /api/v1/exams/generate
// Builds a new draft from the LLM for the requested subject and counts.
func (h *ExamHandler) GenerateExam(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.GenerateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	detail, err := h.generatorService.Generate(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGeneratorDisabled):
			response.Fail(c, http.StatusServiceUnavailable, response.ErrGeneratorDisabled)
		case errors.Is(err, service.ErrGenerationFailed):
			response.Fail(c, http.StatusBadGateway, response.ErrGenerationFailed)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": detail})
}
