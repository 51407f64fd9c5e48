package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/sashabaranov/go-openai"
)

// Analyzer proposes which candidate tasks a video shows as done.
type Analyzer interface {
	SuggestCompletedTasks(ctx context.Context, req AnalysisRequest) ([]uuid.UUID, error)
}

// AnalysisRequest is what the analyzer gets to look at.
type AnalysisRequest struct {
	Video   *models.Video
	Project *models.Project
	// Tasks are the project's tasks that are not completed yet
	Tasks []models.Task
}

// OpenAIAnalyzer asks a chat completion model to pick task ids from the
// candidate list.
type OpenAIAnalyzer struct {
	client *openai.Client
	model  string
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	// HTTPClient overrides the transport, mainly for tests
	HTTPClient *http.Client
}

func NewOpenAIAnalyzer(cfg OpenAIConfig) *OpenAIAnalyzer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIAnalyzer{client: openai.NewClientWithConfig(clientCfg), model: model}
}

type analysisTask struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Status      models.TaskStatus `json:"status"`
}

type analysisResponse struct {
	CompletedTaskIDs []string `json:"completed_task_ids"`
}

// SuggestCompletedTasks implements Analyzer. Ids that do not parse are
// dropped; the caller still intersects the result with the candidates.
func (a *OpenAIAnalyzer) SuggestCompletedTasks(ctx context.Context, req AnalysisRequest) ([]uuid.UUID, error) {
	if len(req.Tasks) == 0 {
		return []uuid.UUID{}, nil
	}

	candidates := make([]analysisTask, len(req.Tasks))
	for i, t := range req.Tasks {
		candidates[i] = analysisTask{ID: t.ID, Name: t.Name, Description: t.Description, Status: t.Status}
	}
	taskJSON, err := json.Marshal(candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tasks: %w", err)
	}

	prompt := fmt.Sprintf(`You review bodycam footage from construction sites and decide which planned tasks it shows as finished.

Project: %s
Location: %s
Video file: %s
Video URL: %s
Uploader notes: %s

Candidate tasks (JSON):
%s

Answer with a JSON object of the form {"completed_task_ids": ["<task id>", ...]}.
Only use ids from the candidate list. Return an empty array when the footage shows no finished task.`,
		req.Project.Name, req.Project.Location, req.Video.FileName, req.Video.URL, req.Video.Notes, taskJSON)

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature:    0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	return parseSuggestion(resp.Choices[0].Message.Content)
}

func parseSuggestion(content string) ([]uuid.UUID, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimSuffix(strings.TrimPrefix(content, "```"), "```")

	var parsed analysisResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}
	ids := make([]uuid.UUID, 0, len(parsed.CompletedTaskIDs))
	for _, raw := range parsed.CompletedTaskIDs {
		if id, err := uuid.Parse(raw); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
