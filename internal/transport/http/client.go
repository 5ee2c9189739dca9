package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"quizctl/internal/auth"
	"quizctl/internal/domain"
)

// APIError is a non-2xx gateway response. Kind, when set, is the domain
// sentinel the status maps to for the endpoint that failed.
type APIError struct {
	StatusCode int
	Message    string
	Kind       error
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Kind }

type statusKinds map[int]error

var (
	startKinds = statusKinds{
		http.StatusBadRequest:      domain.ErrInvalidCredentials,
		http.StatusUnauthorized:    domain.ErrInvalidCredentials,
		http.StatusForbidden:       domain.ErrInvalidCredentials,
		http.StatusNotFound:        domain.ErrQuizNotFound,
		http.StatusTooManyRequests: domain.ErrRateLimited,
	}
	defaultKinds = statusKinds{
		http.StatusUnauthorized:    domain.ErrUnauthorized,
		http.StatusForbidden:       domain.ErrUnauthorized,
		http.StatusNotFound:        domain.ErrQuizNotFound,
		http.StatusTooManyRequests: domain.ErrRateLimited,
	}
	resultKinds = statusKinds{
		http.StatusUnauthorized: domain.ErrUnauthorized,
		http.StatusForbidden:    domain.ErrUnauthorized,
		http.StatusNotFound:     domain.ErrResultNotFound,
	}
)

// errorResponse covers both error shapes the gateway family emits.
type errorResponse struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

func (r errorResponse) text() string {
	var detail string
	if len(r.Detail) > 0 && json.Unmarshal(r.Detail, &detail) == nil && strings.TrimSpace(detail) != "" {
		return detail
	}
	return strings.TrimSpace(r.Message)
}

// Client talks to an attempt gateway over HTTP/JSON. It implements the
// controller's Gateway and IdentityStore.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	now        func() time.Time
}

func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(token),
		httpClient: httpClient,
		now:        time.Now,
	}
}

func (c *Client) StartAttempt(ctx context.Context, req domain.StartRequest) (domain.AttemptPayload, error) {
	var payload domain.AttemptPayload
	if err := c.doJSON(ctx, http.MethodPost, "/quiz_process/start_quiz", req, &payload, startKinds); err != nil {
		return domain.AttemptPayload{}, err
	}
	return payload, nil
}

func (c *Client) EndAttempt(ctx context.Context, req domain.EndRequest) (domain.GradeResult, error) {
	var result domain.GradeResult
	if err := c.doJSON(ctx, http.MethodPost, "/quiz_process/end_quiz", req, &result, defaultKinds); err != nil {
		return domain.GradeResult{}, err
	}
	return result, nil
}

func (c *Client) ListQuizzes(ctx context.Context, filter domain.QuizFilter) (domain.QuizPage, error) {
	page, limit := domain.NormalizePage(filter.Page, filter.Limit)
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))
	if title := strings.TrimSpace(filter.Title); title != "" {
		query.Set("title", title)
	}
	if filter.IsActive != nil {
		query.Set("is_active", strconv.FormatBool(*filter.IsActive))
	}

	var out domain.QuizPage
	if err := c.doJSON(ctx, http.MethodGet, "/quiz/?"+query.Encode(), nil, &out, defaultKinds); err != nil {
		return domain.QuizPage{}, err
	}
	return out, nil
}

func (c *Client) GetQuiz(ctx context.Context, quizID int64) (domain.QuizSummary, error) {
	var out domain.QuizSummary
	path := "/quiz/" + strconv.FormatInt(quizID, 10)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out, defaultKinds); err != nil {
		return domain.QuizSummary{}, err
	}
	return out, nil
}

func (c *Client) ListResults(ctx context.Context, userID *int64, page, limit int) (domain.ResultPage, error) {
	page, limit = domain.NormalizePage(page, limit)
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))
	if userID != nil {
		query.Set("user_id", strconv.FormatInt(*userID, 10))
	}

	var out domain.ResultPage
	if err := c.doJSON(ctx, http.MethodGet, "/result/?"+query.Encode(), nil, &out, defaultKinds); err != nil {
		return domain.ResultPage{}, err
	}
	return out, nil
}

func (c *Client) GetResult(ctx context.Context, id int64) (domain.Result, error) {
	var out domain.Result
	path := "/result/" + strconv.FormatInt(id, 10)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out, resultKinds); err != nil {
		return domain.Result{}, err
	}
	return out, nil
}

// CurrentUser resolves the token via GET /user/me. Without a token the
// caller is anonymous and no request is made.
func (c *Client) CurrentUser(ctx context.Context) (*domain.User, error) {
	if c.token == "" {
		return nil, nil
	}
	if err := auth.CheckExpiry(c.token, c.now()); err != nil {
		return nil, err
	}
	var user domain.User
	if err := c.doJSON(ctx, http.MethodGet, "/user/me", nil, &user, defaultKinds); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, requestBody, responseBody any, kinds statusKinds) error {
	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	request.Header.Set("Accept", "application/json")
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{StatusCode: response.StatusCode, Kind: kinds[response.StatusCode]}
		var payload errorResponse
		if err := json.NewDecoder(response.Body).Decode(&payload); err == nil {
			apiErr.Message = payload.text()
		}
		if apiErr.Message == "" {
			apiErr.Message = response.Status
		}
		switch response.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			apiErr.Kind = domain.ErrServiceUnavailable
		}
		return apiErr
	}

	if responseBody == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(responseBody); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
