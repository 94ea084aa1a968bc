package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Engine status ids, judge0-compatible: 1 and 2 mean the submission is
// still running, anything above is a terminal verdict.
const (
	engineStatusInQueue    = 1
	engineStatusProcessing = 2
	engineStatusAccepted   = 3
)

type EngineSubmission struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
	Stdin      string `json:"stdin,omitempty"`
}

type EngineResult struct {
	StatusID int    `json:"status_id"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	Message  string `json:"message"`
}

func (r EngineResult) Terminal() bool { return r.StatusID > engineStatusProcessing }

// EngineClient is the external execution service. The HTTP
// implementation below is the real thing; tests swap in fakes.
type EngineClient interface {
	Submit(ctx context.Context, sub EngineSubmission) (string, error)
	Status(ctx context.Context, token string) (EngineResult, error)
}

// HTTPEngine talks to a judge0-style execution service. Endpoint and
// credential are injected, never embedded.
type HTTPEngine struct {
	baseURL   string
	authToken string
	client    *http.Client
}

func NewHTTPEngine(baseURL, authToken string) *HTTPEngine {
	return &HTTPEngine{
		baseURL:   baseURL,
		authToken: authToken,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (e *HTTPEngine) Submit(ctx context.Context, sub EngineSubmission) (string, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return "", err
	}

	url := e.baseURL + "/submissions?base64_encoded=false&wait=false"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	e.authorize(req)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("engine submit: status %d: %s", resp.StatusCode, string(b))
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("engine submit: decode: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("engine submit: empty token")
	}
	return out.Token, nil
}

func (e *HTTPEngine) Status(ctx context.Context, token string) (EngineResult, error) {
	url := fmt.Sprintf("%s/submissions/%s?base64_encoded=false&fields=status_id,stdout,stderr,message", e.baseURL, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return EngineResult{}, err
	}
	e.authorize(req)

	resp, err := e.client.Do(req)
	if err != nil {
		return EngineResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return EngineResult{}, fmt.Errorf("engine status: status %d: %s", resp.StatusCode, string(b))
	}

	var res EngineResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return EngineResult{}, fmt.Errorf("engine status: decode: %w", err)
	}
	return res, nil
}

func (e *HTTPEngine) authorize(req *http.Request) {
	if e.authToken != "" {
		req.Header.Set("X-Auth-Token", e.authToken)
	}
}
