package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-skill/internal/dto"
	"github.com/noah-isme/timetable-skill/internal/models"
	appErrors "github.com/noah-isme/timetable-skill/pkg/errors"
	"github.com/noah-isme/timetable-skill/pkg/response"
)

type skillService interface {
	Handle(ctx context.Context, q models.SkillQuery) models.SkillAnswer
}

// SkillHandler is the voice platform webhook.
type SkillHandler struct {
	service       skillService
	applicationID string
}

// NewSkillHandler builds the handler. A non-empty applicationID rejects
// requests addressed to any other skill.
func NewSkillHandler(service skillService, applicationID string) *SkillHandler {
	return &SkillHandler{service: service, applicationID: applicationID}
}

// Handle godoc
// @Summary Answer a voice request
// @Tags Skill
// @Accept json
// @Produce json
// @Param payload body dto.SkillRequest true "Voice request envelope"
// @Success 200 {object} dto.SkillResponse
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /skill [post]
func (h *SkillHandler) Handle(c *gin.Context) {
	var req dto.SkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid skill request"))
		return
	}
	if h.applicationID != "" && req.ApplicationID() != h.applicationID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "request is addressed to another skill"))
		return
	}
	answer := h.service.Handle(c.Request.Context(), req.Query())
	c.JSON(http.StatusOK, dto.NewSkillResponse(answer))
}
