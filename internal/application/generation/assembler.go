package generation

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"z-notebook-ai-api/internal/domain/entity"
)

// MediaResult 配图阶段产出
type MediaResult struct {
	CoverURL string
	// ChapterURLs 与章节同序，失败的位置为空串
	ChapterURLs []string
}

// Assemble 将合成结果、配图与来源元数据组装为不可变产物。
// 除生成的 ID 与时间戳外为纯函数：章节重排为连续 0 起下标，
// 来源只保留 URL（抓取正文不落库），标题缺失时回退到请求主题。
func Assemble(req *entity.GenerationRequest, parsed *ParsedResult, sources []entity.SourceRecord, media MediaResult) *entity.Artifact {
	now := time.Now()

	title := strings.TrimSpace(parsed.Title)
	if title == "" {
		title = req.Query()
	}

	chapters := make([]entity.Chapter, 0, len(parsed.Chapters))
	imageURLs := make([]string, 0, len(parsed.Chapters))
	for i, ch := range parsed.Chapters {
		chapter := entity.Chapter{
			Title:       ch.Title,
			Content:     ch.Content,
			Order:       i,
			Hook:        ch.Hook,
			Cliffhanger: ch.Cliffhanger,
		}
		if i < len(media.ChapterURLs) && media.ChapterURLs[i] != "" {
			chapter.ImageURL = media.ChapterURLs[i]
			imageURLs = append(imageURLs, media.ChapterURLs[i])
		}
		chapters = append(chapters, chapter)
	}

	sourceURLs := make([]string, 0, len(sources))
	for _, src := range sources {
		sourceURLs = append(sourceURLs, src.URL)
	}

	artifact := &entity.Artifact{
		ID:            uuid.New().String(),
		UserID:        req.UserID,
		NotebookID:    req.NotebookID,
		Mode:          req.Mode,
		Title:         title,
		Synopsis:      parsed.Synopsis,
		Chapters:      chapters,
		ImageURLs:     imageURLs,
		CoverImageURL: media.CoverURL,
		SourceURLs:    sourceURLs,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if req.Mode == entity.ModeFiction {
		characters := make([]entity.Character, 0, len(parsed.Characters))
		for _, c := range parsed.Characters {
			characters = append(characters, entity.Character{
				Name:        c.Name,
				Role:        c.Role,
				Description: c.Description,
			})
		}
		artifact.Characters = characters
	}

	return artifact
}
