package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gopenai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

const contentPolicyCode = "content_policy_violation"

// classifyOpenAIError maps a go-openai error to an outcome.
func classifyOpenAIError(err error) Result {
	if err == nil {
		return Result{Outcome: Success}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return failure(Unavailable, err.Error())
	}
	if errors.Is(err, context.Canceled) {
		return failure(Unavailable, err.Error())
	}

	var apiErr *gopenai.APIError
	if errors.As(err, &apiErr) {
		if isContentPolicy(fmt.Sprint(apiErr.Code), apiErr.Message) {
			return failure(ContentPolicy, apiErr.Message)
		}
		return failure(classifyStatus(apiErr.HTTPStatusCode), apiErr.Error())
	}

	var reqErr *gopenai.RequestError
	if errors.As(err, &reqErr) {
		if isContentPolicy("", reqErr.Error()) {
			return failure(ContentPolicy, reqErr.Error())
		}
		return failure(classifyStatus(reqErr.HTTPStatusCode), reqErr.Error())
	}

	return failure(ProviderError, err.Error())
}

// classifyGeminiError maps a genai error to an outcome.
func classifyGeminiError(err error) Result {
	if err == nil {
		return Result{Outcome: Success}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return failure(Unavailable, err.Error())
	}

	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return failure(classifyStatus(apiErr.Code), apiErr.Error())
	}

	return failure(ProviderError, err.Error())
}

func classifyStatus(status int) Outcome {
	switch {
	case status == http.StatusTooManyRequests:
		return RateLimited
	case status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout:
		return Unavailable
	default:
		return ProviderError
	}
}

func isContentPolicy(code, message string) bool {
	return code == contentPolicyCode || strings.Contains(message, contentPolicyCode)
}
