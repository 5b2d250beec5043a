// Package handler 提供 HTTP 请求处理器
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"z-notebook-ai-api/internal/domain/repository"
	"z-notebook-ai-api/internal/interfaces/http/dto"
)

// RunHandler 运行记录查询处理器
type RunHandler struct {
	runs repository.RunRepository
}

// NewRunHandler 创建运行记录查询处理器
func NewRunHandler(runs repository.RunRepository) *RunHandler {
	return &RunHandler{runs: runs}
}

// Get 获取单条运行记录
// @Summary 获取运行记录
// @Tags Runs
// @Produce json
// @Param id path string true "运行 ID"
// @Success 200 {object} dto.Response[dto.RunSummary]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/runs/{id} [get]
func (h *RunHandler) Get(c *gin.Context) {
	id := c.Param("id")
	run, err := h.runs.GetByID(c.Request.Context(), id)
	if err != nil {
		dto.InternalError(c, "failed to load run")
		return
	}
	if run == nil {
		dto.NotFound(c, "run not found")
		return
	}
	dto.Success(c, dto.FromRun(run))
}

// List 按用户分页查询运行记录
// @Summary 运行记录列表
// @Tags Runs
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Success 200 {object} dto.Response[[]dto.RunSummary]
// @Router /v1/runs [get]
func (h *RunHandler) List(c *gin.Context) {
	userID := c.GetHeader(UserIDHeader)
	if userID == "" {
		dto.BadRequest(c, "missing "+UserIDHeader+" header")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	pagination := repository.NewPagination(page, pageSize)

	result, err := h.runs.ListByUser(c.Request.Context(), userID, pagination)
	if err != nil {
		dto.InternalError(c, "failed to list runs")
		return
	}

	items := make([]*dto.RunSummary, 0, len(result.Items))
	for _, r := range result.Items {
		items = append(items, dto.FromRun(r))
	}
	dto.SuccessWithPage(c, items, dto.NewPageMeta(pagination.Page, pagination.PageSize, int(result.Total)))
}
