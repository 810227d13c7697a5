package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// Handle serves an API Gateway proxy event through the same routes as
// ServeHTTP. Response headers are returned in both the single and the
// multi-value maps.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	resp, err := h.proxy.ProxyWithContext(ctx, event)
	if err != nil {
		h.logger.ErrorContext(ctx, "invalid proxy event", "path", event.Path, "err", err)
		return jsonEvent(http.StatusBadRequest, errorResponse{Error: "Invalid request", Details: err.Error()}), nil
	}
	if resp.Headers == nil {
		resp.Headers = make(map[string]string, len(resp.MultiValueHeaders))
	}
	for k, vs := range resp.MultiValueHeaders {
		resp.Headers[k] = strings.Join(vs, ",")
	}
	return resp, nil
}

func jsonEvent(status int, v any) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(v)
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}
