package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"portfolio-relay/internal/lib/sl"
	"portfolio-relay/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	maxBodyBytes      = 64 << 10
)

type RelayUseCase interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

// chatRequest uses a pointer so a missing or null message is distinguishable
// from an empty string.
type chatRequest struct {
	Message *string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error          string `json:"error"`
	Detail         string `json:"detail,omitempty"`
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
	CorrelationID  string `json:"correlationId,omitempty"`
}

type Handler struct {
	uc  RelayUseCase
	log *slog.Logger
}

func NewHandler(uc RelayUseCase, log *slog.Logger) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{uc: uc, log: log.With(sl.Module("handler"))}, nil
}

// ServeChat handles POST /chat.
func (h *Handler) ServeChat(w http.ResponseWriter, r *http.Request) {
	corrID := correlationID(r.Header.Get(correlationHeader))
	w.Header().Set(correlationHeader, corrID)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusBadRequest, invalidInput("request body too large", corrID))
			return
		}
		writeJSON(w, http.StatusBadRequest, invalidInput("could not read request body", corrID))
		return
	}

	status, payload := h.process(r.Context(), corrID, body)
	writeJSON(w, status, payload)
}

// HandleAPIGateway serves the same contract behind an API Gateway proxy
// integration.
func (h *Handler) HandleAPIGateway(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(headerValue(event.Headers, correlationHeader))

	status, payload := h.gatewayPayload(ctx, corrID, event)
	raw, err := json.Marshal(payload)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: corrID,
		},
		Body: string(raw),
	}, nil
}

func (h *Handler) gatewayPayload(ctx context.Context, corrID string, event events.APIGatewayProxyRequest) (int, any) {
	if event.HTTPMethod != "" && event.HTTPMethod != http.MethodPost {
		return http.StatusMethodNotAllowed, errorResponse{
			Error:         string(usecase.ErrorInvalidInput),
			Detail:        "method not allowed",
			CorrelationID: corrID,
		}
	}
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return http.StatusBadRequest, invalidInput("request body is not valid base64", corrID)
		}
		body = decoded
	}
	if len(body) > maxBodyBytes {
		return http.StatusBadRequest, invalidInput("request body too large", corrID)
	}
	return h.process(ctx, corrID, body)
}

func (h *Handler) process(ctx context.Context, corrID string, body []byte) (int, any) {
	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return http.StatusBadRequest, invalidInput("request body must be a JSON object with a string message", corrID)
	}
	if req.Message == nil {
		return http.StatusBadRequest, invalidInput("message is required", corrID)
	}

	out, err := h.uc.Chat(ctx, usecase.ChatInput{Message: *req.Message})
	if err != nil {
		status, resp := mapError(err)
		resp.CorrelationID = corrID
		h.log.Info("chat request failed",
			slog.String("correlation_id", corrID),
			slog.Int("status", status),
			slog.String("code", resp.Error),
			sl.Err(err),
		)
		return status, resp
	}
	return http.StatusOK, chatResponse{Response: out.Response}
}

func mapError(err error) (int, errorResponse) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, errorResponse{
			Error:  string(usecase.ErrorInternal),
			Detail: "internal error",
		}
	}

	resp := errorResponse{Error: string(ucErr.Code)}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		resp.Detail = invalidInputDetail(ucErr.Reason)
		return http.StatusBadRequest, resp
	case usecase.ErrorUpstream:
		resp.Detail = ucErr.Detail
		resp.UpstreamStatus = ucErr.UpstreamStatus
		if ucErr.UpstreamStatus >= 400 && ucErr.UpstreamStatus <= 599 {
			return ucErr.UpstreamStatus, resp
		}
		return http.StatusBadGateway, resp
	case usecase.ErrorUpstreamMalformed:
		resp.Detail = "upstream returned an unexpected response"
		return http.StatusBadGateway, resp
	case usecase.ErrorTransport:
		resp.Detail = "upstream is unreachable"
		return http.StatusBadGateway, resp
	case usecase.ErrorUpstreamTimeout:
		resp.Detail = "upstream did not respond in time"
		return http.StatusGatewayTimeout, resp
	default:
		resp.Error = string(usecase.ErrorInternal)
		resp.Detail = "internal error"
		return http.StatusInternalServerError, resp
	}
}

func invalidInputDetail(reason string) string {
	switch reason {
	case "empty_message":
		return "message must not be empty"
	case "message_too_long":
		return "message is too long"
	default:
		return "invalid input"
	}
}

func invalidInput(detail, corrID string) errorResponse {
	return errorResponse{
		Error:         string(usecase.ErrorInvalidInput),
		Detail:        detail,
		CorrelationID: corrID,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func correlationID(provided string) string {
	if id := strings.TrimSpace(provided); id != "" {
		return id
	}
	return uuid.NewString()
}

// headerValue looks a header up case-insensitively; API Gateway keeps
// whatever casing the client sent.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
