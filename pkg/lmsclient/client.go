package lmsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"lms_backend/internal/progress"
	"lms_backend/pkg/logger"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

// Client 课程进度服务的 REST 客户端
type Client struct {
	http *resty.Client
}

// envelope 服务端统一响应结构
type envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"errorCode"`
}

// New baseURL 形如 http://host:8080/api，token 为身份提供方签发的 JWT
func New(baseURL, token string) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultTimeout).
		SetHeader("Accept", "application/json")
	if token != "" {
		rc.SetAuthToken(token)
	}
	return &Client{http: rc}
}

// NewWithResty 使用调用方配置好的 resty 客户端
func NewWithResty(rc *resty.Client) *Client {
	return &Client{http: rc}
}

func (c *Client) FetchCourse(ctx context.Context, courseID uint) (*Course, error) {
	var course Course
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/courses/%d", courseID), nil, nil, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *Client) FetchProgress(ctx context.Context, courseID uint) (*Progress, error) {
	var p Progress
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/courses/%d/progress", courseID), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// FetchLatestAttempt 没有作答记录时返回 nil, nil；userID 为 0 表示当前用户
func (c *Client) FetchLatestAttempt(ctx context.Context, courseID, quizID, userID uint) (*Attempt, error) {
	var query map[string]string
	if userID != 0 {
		query = map[string]string{"userId": strconv.FormatUint(uint64(userID), 10)}
	}

	var a Attempt
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/courses/%d/quizzes/%d/attempts/latest", courseID, quizID), query, nil, &a)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) WriteProgress(ctx context.Context, req progress.WriteRequest) (*WriteResult, error) {
	var res WriteResult
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/courses/%d/progress", req.CourseID), nil, req, &res)
	if err != nil {
		if retryable(err) {
			return nil, &StoreWriteError{Op: "write progress", Err: err}
		}
		return nil, err
	}
	return &res, nil
}

func (c *Client) SubmitQuiz(ctx context.Context, courseID, quizID uint, answers []int) (*QuizResult, error) {
	body := map[string][]int{"answers": answers}
	var res QuizResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/courses/%d/quizzes/%d/submit", courseID, quizID), nil, body, &res)
	if err != nil {
		if retryable(err) {
			return nil, &StoreWriteError{Op: "submit quiz", Err: err}
		}
		return nil, err
	}
	return &res, nil
}

// GenerateCertificate 证书已存在时返回 *AlreadyExistsError，其中带有已有证书
func (c *Client) GenerateCertificate(ctx context.Context, courseID uint) (*Certificate, error) {
	var cert Certificate
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/courses/%d/certificate", courseID), nil, nil, &cert); err != nil {
		return nil, err
	}
	return &cert, nil
}

// Enroll 选修课程，重复选修不报错
func (c *Client) Enroll(ctx context.Context, courseID uint) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/courses/%d/enroll", courseID), nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body, out interface{}) error {
	req := c.http.R().SetContext(ctx)
	if query != nil {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	op := method + " " + path
	resp, err := req.Execute(method, path)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	var env envelope
	if raw := resp.Body(); len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && !resp.IsError() {
			return fmt.Errorf("%s: decode response: %w", op, err)
		}
	}

	if resp.IsError() {
		return statusError(resp.StatusCode(), env)
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s: decode data: %w", op, err)
		}
	}
	return nil
}

func statusError(status int, env envelope) error {
	switch {
	case status == http.StatusForbidden && env.ErrorCode == "module_locked":
		var data struct {
			ModuleID uint `json:"moduleId"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			logger.Log.Warn("decode module_locked data",
				zap.ByteString("data", env.Data),
				zap.Error(err),
			)
		}
		return &progress.LockedModuleError{ModuleID: data.ModuleID}
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return &ValidationError{StatusCode: status, Code: env.ErrorCode, Message: env.Message}
	case status == http.StatusConflict:
		e := &AlreadyExistsError{Message: env.Message}
		if len(env.Data) > 0 && string(env.Data) != "null" {
			var cert Certificate
			if err := json.Unmarshal(env.Data, &cert); err != nil {
				logger.Log.Warn("decode conflicting certificate",
					zap.ByteString("data", env.Data),
					zap.Error(err),
				)
			} else {
				e.Certificate = &cert
			}
		}
		return e
	}
	return &StatusError{StatusCode: status, Code: env.ErrorCode, Message: env.Message}
}
