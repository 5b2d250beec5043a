// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"

	"z-notebook-ai-api/internal/application/generation"
	"z-notebook-ai-api/internal/config"
	"z-notebook-ai-api/internal/domain/entity"
	"z-notebook-ai-api/internal/domain/repository"
	"z-notebook-ai-api/internal/interfaces/http/dto"
	"z-notebook-ai-api/pkg/logger"
)

// UserIDHeader 调用方身份头，网关鉴权后注入
const UserIDHeader = "X-User-ID"

// GenerationHandler 生成流水线处理器
type GenerationHandler struct {
	orchestrator *generation.Orchestrator
	runs         repository.RunRepository
	llmCfg       *config.LLMConfig
}

// NewGenerationHandler 创建生成流水线处理器
func NewGenerationHandler(
	orchestrator *generation.Orchestrator,
	runs repository.RunRepository,
	llmCfg *config.LLMConfig,
) *GenerationHandler {
	return &GenerationHandler{
		orchestrator: orchestrator,
		runs:         runs,
		llmCfg:       llmCfg,
	}
}

// Stream 流式执行一次生成
// @Summary 流式生成
// @Description 通过 SSE 推送各阶段进度，最后一条事件携带产物或错误
// @Tags Generation
// @Accept json
// @Produce text/event-stream
// @Param request body dto.GenerateRequest true "生成请求"
// @Success 200 "SSE stream"
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/generations/stream [post]
func (h *GenerationHandler) Stream(c *gin.Context) {
	var body dto.GenerateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	userID := c.GetHeader(UserIDHeader)
	if userID == "" {
		dto.BadRequest(c, "missing "+UserIDHeader+" header")
		return
	}
	c.Set("user_id", userID)

	req := body.ToEntity(userID)
	if err := req.Validate(); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}

	provider, err := generation.ResolveProvider(h.llmCfg, "")
	if err != nil {
		dto.InternalError(c, "llm provider not configured")
		return
	}

	ctx := logger.WithContext(c.Request.Context(), logger.UserIDKey, userID)

	// 运行记录尽力维护，写入失败不阻断生成
	run := &entity.GenerationRun{
		UserID:     userID,
		NotebookID: req.NotebookID,
		Mode:       req.Mode,
		Query:      req.Query(),
	}
	run.LLMProvider = provider.Provider
	run.LLMModel = provider.Model
	run.Start()
	if err := h.runs.Create(ctx, run); err != nil {
		logger.Warn(ctx, "failed to create generation run record", "error", err.Error())
		run = nil
	}
	if run != nil {
		ctx = logger.WithContext(ctx, logger.RunIDKey, run.ID)
	}

	// SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	updates := h.orchestrator.Generate(ctx, req, provider)

	var terminal *entity.StageUpdate

	c.Stream(func(w io.Writer) bool {
		select {
		case update, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("stage", update)
			if update.Terminal() {
				terminal = &update
			}
			if run != nil {
				run.UpdateProgress(int(update.Progress * 100))
			}
			return !update.Terminal()

		case <-c.Request.Context().Done():
			// 客户端断开，流水线在下个阶段边界自行停止
			return false
		}
	})

	h.finishRun(ctx, run, terminal)
}

// finishRun 根据终止更新收尾运行记录。
// 请求上下文此时可能已取消，落库用独立上下文。
func (h *GenerationHandler) finishRun(ctx context.Context, run *entity.GenerationRun, terminal *entity.StageUpdate) {
	if run == nil {
		return
	}

	updateCtx := context.WithoutCancel(ctx)
	switch {
	case terminal == nil:
		run.Fail("run aborted before completion")
	case terminal.Error != nil:
		run.Fail(terminal.Error.Message)
	default:
		artifactID := ""
		if terminal.Result != nil {
			artifactID = terminal.Result.ID
		}
		if terminal.Usage != nil {
			run.SetLLMMetrics(terminal.Usage.Provider, terminal.Usage.Model,
				terminal.Usage.PromptTokens, terminal.Usage.CompletionTokens)
		}
		run.Complete(artifactID, terminal.Warning)
	}

	if err := h.runs.Update(updateCtx, run); err != nil {
		logger.Warn(updateCtx, "failed to update generation run record", "run_id", run.ID, "error", err.Error())
	}
}
