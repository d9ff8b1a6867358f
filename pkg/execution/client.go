package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/leadflowhq/leadflow/pkg/models"
)

const defaultEngineTimeout = 10 * time.Second

// EngineClient triggers workflow runs over HTTP on the external workflow
// engine. The engine reports completion back through the executions
// webhook.
type EngineClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewEngineClient creates a client for the engine at baseURL.
func NewEngineClient(baseURL, apiKey string) *EngineClient {
	return &EngineClient{
		client:  &http.Client{Timeout: defaultEngineTimeout},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type triggerPayload struct {
	ExecutionID  string         `json:"executionId"`
	WorkflowID   string         `json:"workflowId"`
	WorkflowType string         `json:"workflowType"`
	CompanyID    string         `json:"companyId"`
	InputData    map[string]any `json:"inputData,omitempty"`
	RetryCount   int            `json:"retryCount"`
}

// TriggerWorkflow asks the engine to run the workflow for the execution.
func (c *EngineClient) TriggerWorkflow(ctx context.Context, execution *models.WorkflowExecution) error {
	body, err := json.Marshal(triggerPayload{
		ExecutionID:  execution.ID,
		WorkflowID:   execution.WorkflowID,
		WorkflowType: execution.WorkflowType,
		CompanyID:    execution.CompanyID,
		InputData:    execution.InputData,
		RetryCount:   execution.RetryCount,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal trigger payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/workflows/trigger", bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("engine trigger request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("engine responded with status %d", resp.StatusCode)
	}

	return nil
}
