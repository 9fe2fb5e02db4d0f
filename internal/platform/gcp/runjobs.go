package gcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/hudai/ingest-backend/internal/pkg/logger"
)

// RunJobsService starts Cloud Run Job executions through the v2 REST API
// with per-execution container env overrides. This is the handoff from a
// synchronous upload request to an asynchronous worker run.
type RunJobsService interface {
	RunJob(ctx context.Context, jobName string, envOverrides map[string]string) (string, error)
}

type runJobsService struct {
	log         *logger.Logger
	projectID   string
	region      string
	tokenSource oauth2.TokenSource
	httpClient  *http.Client
}

func NewRunJobsService(log *logger.Logger, projectID, region string) (RunJobsService, error) {
	serviceLog := log.With("service", "RunJobsService")

	ts, err := google.DefaultTokenSource(
		context.Background(),
		"https://www.googleapis.com/auth/cloud-platform",
	)
	if err != nil {
		return nil, fmt.Errorf("resolve default credentials: %w", err)
	}

	return &runJobsService{
		log:         serviceLog,
		projectID:   projectID,
		region:      region,
		tokenSource: ts,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type envVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type containerOverride struct {
	Env []envVar `json:"env"`
}

type runJobRequest struct {
	Overrides struct {
		ContainerOverrides []containerOverride `json:"containerOverrides"`
	} `json:"overrides"`
}

// RunJob triggers one execution and returns the execution name reported
// by the API.
func (s *runJobsService) RunJob(ctx context.Context, jobName string, envOverrides map[string]string) (string, error) {
	url := fmt.Sprintf(
		"https://run.googleapis.com/v2/projects/%s/locations/%s/jobs/%s:run",
		s.projectID, s.region, jobName,
	)

	env := make([]envVar, 0, len(envOverrides))
	for k, v := range envOverrides {
		env = append(env, envVar{Name: k, Value: v})
	}
	var payload runJobRequest
	payload.Overrides.ContainerOverrides = []containerOverride{{Env: env}}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal run request: %w", err)
	}

	tok, err := s.tokenSource.Token()
	if err != nil {
		return "", fmt.Errorf("fetch access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("run job %s: %w", jobName, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("run job %s failed (%d): %s", jobName, resp.StatusCode, string(respBody))
	}

	var data struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(respBody, &data); err != nil {
		return "", fmt.Errorf("decode run response: %w", err)
	}

	s.log.Info("Started Cloud Run Job execution", "job", jobName, "execution", data.Name)
	return data.Name, nil
}
