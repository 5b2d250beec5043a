// Package handler 提供 HTTP 请求处理器
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"z-notebook-ai-api/internal/domain/repository"
	"z-notebook-ai-api/internal/interfaces/http/dto"
)

// ArtifactHandler 产物查询处理器
type ArtifactHandler struct {
	artifacts repository.ArtifactRepository
}

// NewArtifactHandler 创建产物查询处理器
func NewArtifactHandler(artifacts repository.ArtifactRepository) *ArtifactHandler {
	return &ArtifactHandler{artifacts: artifacts}
}

// Get 获取单个产物
// @Summary 获取产物
// @Tags Artifacts
// @Produce json
// @Param id path string true "产物 ID"
// @Success 200 {object} dto.Response[entity.Artifact]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/artifacts/{id} [get]
func (h *ArtifactHandler) Get(c *gin.Context) {
	id := c.Param("id")
	artifact, err := h.artifacts.GetByID(c.Request.Context(), id)
	if err != nil {
		dto.InternalError(c, "failed to load artifact")
		return
	}
	if artifact == nil {
		dto.NotFound(c, "artifact not found")
		return
	}
	dto.Success(c, artifact)
}

// List 按笔记本分页查询产物
// @Summary 产物列表
// @Tags Artifacts
// @Produce json
// @Param notebook_id query string true "笔记本 ID"
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Success 200 {object} dto.Response[[]dto.ArtifactSummary]
// @Router /v1/artifacts [get]
func (h *ArtifactHandler) List(c *gin.Context) {
	notebookID := c.Query("notebook_id")
	if notebookID == "" {
		dto.BadRequest(c, "notebook_id is required")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	pagination := repository.NewPagination(page, pageSize)

	result, err := h.artifacts.ListByNotebook(c.Request.Context(), notebookID, pagination)
	if err != nil {
		dto.InternalError(c, "failed to list artifacts")
		return
	}

	items := make([]*dto.ArtifactSummary, 0, len(result.Items))
	for _, a := range result.Items {
		items = append(items, dto.FromArtifact(a))
	}
	dto.SuccessWithPage(c, items, dto.NewPageMeta(pagination.Page, pagination.PageSize, int(result.Total)))
}
