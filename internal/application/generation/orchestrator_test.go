package generation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-notebook-ai-api/internal/domain/entity"
	"z-notebook-ai-api/internal/domain/repository"
	wfmodel "z-notebook-ai-api/internal/workflow/model"
	"z-notebook-ai-api/pkg/errors"
)

// ---- 测试替身 ----

type stubCredits struct {
	mu    sync.Mutex
	allow bool
	err   error
	calls int
}

func (s *stubCredits) TryConsume(ctx context.Context, userID string, amount int64, feature string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.allow, s.err
}

type stubSearch struct {
	mu      sync.Mutex
	results []entity.SearchResult
	images  []entity.SearchResult
	textErr error
	imgErr  error
	calls   int
}

func (s *stubSearch) Search(ctx context.Context, query string, kind SearchKind, count int) ([]entity.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if kind == SearchKindImage {
		return s.images, s.imgErr
	}
	return s.results, s.textErr
}

type stubFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	fail  map[string]bool
	calls int
}

func (s *stubFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail[url] {
		return "", fmt.Errorf("fetch failed: %s", url)
	}
	return s.pages[url], nil
}

type stubImages struct {
	mu       sync.Mutex
	coverErr error
	fail     map[string]bool
	calls    int
}

func (s *stubImages) Generate(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.coverErr != nil && s.calls == 1 {
		return "", s.coverErr
	}
	for key := range s.fail {
		if containsSubstring(prompt, key) {
			return "", fmt.Errorf("image generation failed")
		}
	}
	return fmt.Sprintf("https://img.example.com/%d.png", s.calls), nil
}

func containsSubstring(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

type stubRunner struct {
	mu      sync.Mutex
	content string
	meta    wfmodel.LLMUsageMeta
	err     error
	calls   int
}

func (s *stubRunner) Invoke(ctx context.Context, in *wfmodel.SynthesisInput) (*wfmodel.SynthesisOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &wfmodel.SynthesisOutput{Content: s.content, Meta: s.meta}, nil
}

type stubArtifacts struct {
	mu      sync.Mutex
	saveErr error
	saved   *entity.Artifact
	calls   int
}

func (s *stubArtifacts) Save(ctx context.Context, artifact *entity.Artifact) (*repository.SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	s.saved = artifact
	return &repository.SaveResult{ID: artifact.ID, Persisted: true}, nil
}

func (s *stubArtifacts) GetByID(ctx context.Context, id string) (*entity.Artifact, error) {
	return nil, nil
}

func (s *stubArtifacts) ListByNotebook(ctx context.Context, notebookID string, p repository.Pagination) (*repository.PagedResult[*entity.Artifact], error) {
	return &repository.PagedResult[*entity.Artifact]{}, nil
}

type stubPublisher struct {
	mu    sync.Mutex
	calls int
}

func (s *stubPublisher) PublishArtifactCreated(ctx context.Context, artifact *entity.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return nil
}

// ---- 测试脚手架 ----

type testEnv struct {
	credits   *stubCredits
	search    *stubSearch
	fetcher   *stubFetcher
	images    *stubImages
	runner    *stubRunner
	artifacts *stubArtifacts
	publisher *stubPublisher
	orch      *Orchestrator
}

func newTestEnv() *testEnv {
	env := &testEnv{
		credits: &stubCredits{allow: true},
		search: &stubSearch{
			results: []entity.SearchResult{
				{Title: "Alpha", Link: "https://a.example.com", Snippet: "snippet a"},
				{Title: "Beta", Link: "https://b.example.com", Snippet: "snippet b"},
				{Title: "Gamma", Link: "https://c.example.com", Snippet: "snippet c"},
			},
		},
		fetcher: &stubFetcher{
			pages: map[string]string{
				"https://a.example.com": longText("alpha body ", 200),
				"https://b.example.com": longText("beta body ", 200),
				"https://c.example.com": longText("gamma body ", 200),
			},
			fail: map[string]bool{},
		},
		images:    &stubImages{fail: map[string]bool{}},
		runner:    &stubRunner{content: researchJSON},
		artifacts: &stubArtifacts{},
		publisher: &stubPublisher{},
	}
	env.orch = NewOrchestrator(
		env.credits,
		env.search,
		NewCorpusBuilder(env.fetcher, DefaultCorpusOptions()),
		NewSynthesisInvoker(env.runner),
		NewMediaStage(env.images, 2),
		env.artifacts,
		env.publisher,
		Options{SearchResultCount: 3},
	)
	return env
}

func longText(unit string, repeat int) string {
	out := ""
	for i := 0; i < repeat; i++ {
		out += unit
	}
	return out
}

const researchJSON = `{
	"title": "深海采矿产业现状",
	"synopsis": "对深海采矿的技术与监管现状的梳理。",
	"chapters": [
		{"title": "技术路线", "content": "多金属结核的采集技术……"},
		{"title": "监管格局", "content": "国际海底管理局的规则进展……"}
	]
}`

const fictionJSON = `{
	"title": "灯塔尽头",
	"synopsis": "守塔人在风暴夜迎来不速之客。",
	"cover_description": "A lighthouse on a stormy cliff at night",
	"characters": [
		{"name": "老周", "role": "protagonist", "description": "沉默的守塔人"},
		{"name": "阿澜", "role": "stranger", "description": "来历不明的访客"}
	],
	"chapters": [
		{"title": "风暴将至", "content": "海面在傍晚开始变色……", "image_description": "dark sea before a storm", "hook": "灯突然灭了", "cliffhanger": "门外传来敲门声"},
		{"title": "不速之客", "content": "门开了一条缝……", "image_description": "a shadowy figure at the door", "hook": "访客浑身湿透", "cliffhanger": "他说出了老周的名字"}
	]
}`

func researchRequest() *entity.GenerationRequest {
	return &entity.GenerationRequest{
		UserID: "user-1",
		Mode:   entity.ModeResearch,
		Topic:  "深海采矿",
		Length: entity.LengthShort,
	}
}

func fictionRequest() *entity.GenerationRequest {
	return &entity.GenerationRequest{
		UserID: "user-1",
		Mode:   entity.ModeFiction,
		Prompt: "风暴夜的灯塔",
		Length: entity.LengthShort,
	}
}

func collect(t *testing.T, ch <-chan entity.StageUpdate) []entity.StageUpdate {
	t.Helper()
	var updates []entity.StageUpdate
	timeout := time.After(10 * time.Second)
	for {
		select {
		case u, ok := <-ch:
			if !ok {
				return updates
			}
			updates = append(updates, u)
		case <-timeout:
			t.Fatal("timed out waiting for updates")
		}
	}
}

func provider() ProviderConfig {
	return ProviderConfig{Provider: "openai", Model: "gpt-4o"}
}

// ---- 行为测试 ----

func TestResearchRunHappyPath(t *testing.T) {
	env := newTestEnv()

	updates := collect(t, env.orch.Generate(context.Background(), researchRequest(), provider()))
	require.NotEmpty(t, updates)

	last := updates[len(updates)-1]
	require.NotNil(t, last.Result)
	assert.Nil(t, last.Error)
	assert.Equal(t, entity.StageCompleted, last.Stage)
	assert.Equal(t, 1.0, last.Progress)
	assert.True(t, last.Persisted)
	assert.Empty(t, last.Warning)

	assert.Equal(t, entity.ModeResearch, last.Result.Mode)
	assert.Len(t, last.Result.SourceURLs, 3)
	assert.Len(t, last.Result.Chapters, 2)
	assert.Empty(t, last.Result.CoverImageURL)
	assert.Equal(t, 1, env.artifacts.calls)
	assert.Equal(t, 1, env.publisher.calls)
	// research 模式不触发图像生成
	assert.Equal(t, 0, env.images.calls)
}

func TestFictionRunHappyPath(t *testing.T) {
	env := newTestEnv()
	env.runner.content = fictionJSON

	updates := collect(t, env.orch.Generate(context.Background(), fictionRequest(), provider()))
	last := updates[len(updates)-1]

	require.NotNil(t, last.Result)
	assert.Equal(t, "灯塔尽头", last.Result.Title)
	assert.Len(t, last.Result.Chapters, 2)
	assert.NotEmpty(t, last.Result.CoverImageURL)
	assert.Len(t, last.Result.Characters, 2)
	assert.Empty(t, last.Result.SourceURLs)
	// 封面 + 两章配图
	assert.Equal(t, 3, env.images.calls)
	// fiction 模式不触发搜索与抓取
	assert.Equal(t, 0, env.search.calls)
	assert.Equal(t, 0, env.fetcher.calls)
}

func TestTerminalUpdateCarriesLLMUsage(t *testing.T) {
	env := newTestEnv()
	env.runner.meta = wfmodel.LLMUsageMeta{
		Provider:         "openai",
		Model:            "gpt-4o",
		PromptTokens:     1200,
		CompletionTokens: 800,
	}

	updates := collect(t, env.orch.Generate(context.Background(), researchRequest(), provider()))
	last := updates[len(updates)-1]

	require.NotNil(t, last.Result)
	require.NotNil(t, last.Usage)
	assert.Equal(t, "openai", last.Usage.Provider)
	assert.Equal(t, "gpt-4o", last.Usage.Model)
	assert.Equal(t, 1200, last.Usage.PromptTokens)
	assert.Equal(t, 800, last.Usage.CompletionTokens)
}

func TestTerminalUpdateOmitsUsageWhenMetaEmpty(t *testing.T) {
	env := newTestEnv()

	updates := collect(t, env.orch.Generate(context.Background(), researchRequest(), provider()))
	last := updates[len(updates)-1]

	require.NotNil(t, last.Result)
	assert.Nil(t, last.Usage)
}

func TestProgressMonotonic(t *testing.T) {
	for name, req := range map[string]*entity.GenerationRequest{
		"research": researchRequest(),
		"fiction":  fictionRequest(),
	} {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv()
			if req.Mode == entity.ModeFiction {
				env.runner.content = fictionJSON
			}

			updates := collect(t, env.orch.Generate(context.Background(), req, provider()))
			require.NotEmpty(t, updates)

			prev := -1.0
			for _, u := range updates {
				assert.GreaterOrEqual(t, u.Progress, prev, "progress must not decrease")
				assert.LessOrEqual(t, u.Progress, 1.0)
				prev = u.Progress
			}
			assert.Equal(t, 1.0, updates[len(updates)-1].Progress)
		})
	}
}

func TestExactlyOneTerminalUpdate(t *testing.T) {
	scenarios := map[string]func(env *testEnv) *entity.GenerationRequest{
		"success": func(env *testEnv) *entity.GenerationRequest {
			return researchRequest()
		},
		"credit denied": func(env *testEnv) *entity.GenerationRequest {
			env.credits.allow = false
			return researchRequest()
		},
		"search down": func(env *testEnv) *entity.GenerationRequest {
			env.search.textErr = fmt.Errorf("connection refused")
			return researchRequest()
		},
		"synthesis down": func(env *testEnv) *entity.GenerationRequest {
			env.runner.err = fmt.Errorf("provider 503")
			return researchRequest()
		},
	}

	for name, setup := range scenarios {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv()
			req := setup(env)

			updates := collect(t, env.orch.Generate(context.Background(), req, provider()))
			require.NotEmpty(t, updates)

			terminals := 0
			for i, u := range updates {
				if u.Terminal() {
					terminals++
					assert.Equal(t, len(updates)-1, i, "terminal update must be the last one")
					// Result 与 Error 互斥
					assert.False(t, u.Result != nil && u.Error != nil)
				}
			}
			assert.Equal(t, 1, terminals)
		})
	}
}

func TestCreditDenialBeforeAnyNetworkCall(t *testing.T) {
	env := newTestEnv()
	env.credits.allow = false

	updates := collect(t, env.orch.Generate(context.Background(), researchRequest(), provider()))

	require.Len(t, updates, 2) // initiated + failed
	last := updates[len(updates)-1]
	require.NotNil(t, last.Error)
	assert.Equal(t, string(errors.CodeCreditInsufficient), last.Error.Code)
	assert.Nil(t, last.Result)

	assert.Equal(t, 1, env.credits.calls)
	assert.Equal(t, 0, env.search.calls)
	assert.Equal(t, 0, env.fetcher.calls)
	assert.Equal(t, 0, env.runner.calls)
	assert.Equal(t, 0, env.images.calls)
	assert.Equal(t, 0, env.artifacts.calls)
}

func TestCreditGateErrorIsFatal(t *testing.T) {
	env := newTestEnv()
	env.credits.err = fmt.Errorf("redis down")
	env.credits.allow = false

	updates := collect(t, env.orch.Generate(context.Background(), researchRequest(), provider()))
	last := updates[len(updates)-1]
	require.NotNil(t, last.Error)
	assert.Equal(t, 0, env.search.calls)
}

func TestZeroSearchResultsStillCompletes(t *testing.T) {
	env := newTestEnv()
	env.search.results = nil

	updates := collect(t, env.orch.Generate(context.Background(), researchRequest(), provider()))
	last := updates[len(updates)-1]

	require.NotNil(t, last.Result)
	assert.Nil(t, last.Error)
	assert.Empty(t, last.Result.SourceURLs)
	// 没有来源可抓取
	assert.Equal(t, 0, env.fetcher.calls)
	// 合成仍然执行
	assert.Equal(t, 1, env.runner.calls)
}

func TestSearchUnavailableIsFatal(t *testing.T) {
	env := newTestEnv()
	env.search.textErr = fmt.Errorf("serper unavailable")

	updates := collect(t, env.orch.Generate(context.Background(), researchRequest(), provider()))
	last := updates[len(updates)-1]

	require.NotNil(t, last.Error)
	assert.Equal(t, string(errors.CodeSearchUnavailable), last.Error.Code)
	assert.Equal(t, 0, env.runner.calls)
}

func TestImageSearchFailureIsTolerated(t *testing.T) {
	env := newTestEnv()
	env.search.imgErr = fmt.Errorf("images endpoint down")

	updates := collect(t, env.orch.Generate(context.Background(), researchRequest(), provider()))
	last := updates[len(updates)-1]
	require.NotNil(t, last.Result)
	assert.Nil(t, last.Error)
}

func TestFetchFailureDegradesToSnippet(t *testing.T) {
	env := newTestEnv()
	env.fetcher.fail["https://b.example.com"] = true

	updates := collect(t, env.orch.Generate(context.Background(), researchRequest(), provider()))
	last := updates[len(updates)-1]

	require.NotNil(t, last.Result)
	// 结果里仍包含全部 3 个来源
	assert.Len(t, last.Result.SourceURLs, 3)

	// fetching 阶段推送的来源顺序与搜索结果一致，失败项标记为降级
	var fetched []entity.SourceRecord
	for _, u := range updates {
		if u.Stage == entity.StageFetching && len(u.Sources) > 0 {
			fetched = u.Sources
		}
	}
	require.Len(t, fetched, 3)
	assert.Equal(t, "https://a.example.com", fetched[0].URL)
	assert.Equal(t, "https://b.example.com", fetched[1].URL)
	assert.Equal(t, "https://c.example.com", fetched[2].URL)
	assert.False(t, fetched[0].Degraded)
	assert.True(t, fetched[1].Degraded)
	assert.False(t, fetched[2].Degraded)
	// 推送的来源不携带正文
	for _, src := range fetched {
		assert.Empty(t, src.Content)
	}
}

func TestUnparsableSynthesisDegradesToEmptyResult(t *testing.T) {
	env := newTestEnv()
	env.runner.content = "I am sorry, I cannot produce structured output today."

	updates := collect(t, env.orch.Generate(context.Background(), researchRequest(), provider()))
	last := updates[len(updates)-1]

	require.NotNil(t, last.Result)
	assert.Nil(t, last.Error)
	assert.NotEmpty(t, last.Warning)
	assert.Empty(t, last.Result.Chapters)
	// 标题回退到请求主题
	assert.Equal(t, "深海采矿", last.Result.Title)
}

func TestStrictParseTurnsUnparsableIntoFailure(t *testing.T) {
	env := newTestEnv()
	env.runner.content = "no structure here"
	req := researchRequest()
	req.StrictParse = true

	updates := collect(t, env.orch.Generate(context.Background(), req, provider()))
	last := updates[len(updates)-1]

	require.NotNil(t, last.Error)
	assert.Equal(t, string(errors.CodeSynthesisFailed), last.Error.Code)
	assert.Nil(t, last.Result)
}

func TestCoverFailureIsFatal(t *testing.T) {
	env := newTestEnv()
	env.runner.content = fictionJSON
	env.images.coverErr = fmt.Errorf("image provider 500")

	updates := collect(t, env.orch.Generate(context.Background(), fictionRequest(), provider()))
	last := updates[len(updates)-1]

	require.NotNil(t, last.Error)
	assert.Equal(t, string(errors.CodeMediaFailed), last.Error.Code)
	assert.Equal(t, 0, env.artifacts.calls)
}

func TestChapterImageFailureIsNotFatal(t *testing.T) {
	env := newTestEnv()
	env.runner.content = fictionJSON
	// 第二章的配图提示词包含该描述，使其失败
	env.images.fail["shadowy figure"] = true

	updates := collect(t, env.orch.Generate(context.Background(), fictionRequest(), provider()))
	last := updates[len(updates)-1]

	require.NotNil(t, last.Result)
	assert.Nil(t, last.Error)
	require.Len(t, last.Result.Chapters, 2)
	assert.NotEmpty(t, last.Result.Chapters[0].ImageURL)
	assert.Empty(t, last.Result.Chapters[1].ImageURL)
	assert.NotEmpty(t, last.Result.CoverImageURL)
}

func TestPersistenceFailureKeepsResult(t *testing.T) {
	env := newTestEnv()
	env.artifacts.saveErr = fmt.Errorf("postgres down")

	updates := collect(t, env.orch.Generate(context.Background(), researchRequest(), provider()))
	last := updates[len(updates)-1]

	require.NotNil(t, last.Result)
	assert.Nil(t, last.Error)
	assert.False(t, last.Persisted)
	assert.NotEmpty(t, last.Warning)
	// 未落库不发布事件
	assert.Equal(t, 0, env.publisher.calls)
}

func TestChapterOrderContiguous(t *testing.T) {
	env := newTestEnv()
	env.runner.content = fictionJSON

	updates := collect(t, env.orch.Generate(context.Background(), fictionRequest(), provider()))
	last := updates[len(updates)-1]

	require.NotNil(t, last.Result)
	for i, ch := range last.Result.Chapters {
		assert.Equal(t, i, ch.Order)
	}
}

func TestInvalidRequestFailsFast(t *testing.T) {
	env := newTestEnv()
	req := &entity.GenerationRequest{UserID: "user-1", Mode: entity.ModeResearch, Topic: "   "}

	updates := collect(t, env.orch.Generate(context.Background(), req, provider()))
	last := updates[len(updates)-1]

	require.NotNil(t, last.Error)
	assert.Equal(t, string(errors.CodeInvalidRequest), last.Error.Code)
	assert.Equal(t, 0, env.credits.calls)
}

func TestCancelledContextStopsAtStageBoundary(t *testing.T) {
	env := newTestEnv()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	updates := collect(t, env.orch.Generate(ctx, researchRequest(), provider()))

	// 取消后运行在阶段边界停止：通道关闭，且不产生终止更新
	for _, u := range updates {
		assert.False(t, u.Terminal(), "no terminal update after cancellation")
	}
}
