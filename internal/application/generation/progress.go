package generation

import "z-notebook-ai-api/internal/domain/entity"

// 各阶段进度预算。进度在一次运行内单调不减，成功终止时为 1.0。
const (
	progressInitiated     = 0.0
	progressCreditChecked = 0.1
	progressSearching     = 0.1
	progressSearched      = 0.3
	progressFetching      = 0.3
	progressFetched       = 0.5
	progressSynthesizing  = 0.5
	progressSynthesized   = 0.8
	progressMedia         = 0.8
	progressMediaDone     = 0.95
	progressAssembling    = 0.95
	progressCompleted     = 1.0
)

// stageStatus 阶段的人类可读描述
func stageStatus(stage entity.Stage, mode entity.GenerationMode) string {
	switch stage {
	case entity.StageInitiated:
		return "Validating request"
	case entity.StageCreditChecked:
		return "Credits reserved"
	case entity.StageSearching:
		return "Searching the web"
	case entity.StageFetching:
		return "Reading sources"
	case entity.StageSynthesizing:
		if mode == entity.ModeResearch {
			return "Writing report"
		}
		return "Writing story"
	case entity.StageMediaGenerating:
		return "Illustrating chapters"
	case entity.StageAssembling:
		return "Assembling result"
	case entity.StageCompleted:
		return "Done"
	default:
		return string(stage)
	}
}
