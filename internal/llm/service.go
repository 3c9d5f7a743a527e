package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"whodunit/internal/debug"
	"whodunit/internal/observability"
)

// Context keys for operation tracing
type contextKey string

const (
	operationTypeKey contextKey = "operation_type"
	gameContextKey   contextKey = "game_context"
)

type Service struct {
	client *openai.Client
	model  string
	debug  *debug.Logger
	tracer trace.Tracer
}

func NewService(apiKey string, debug *debug.Logger) *Service {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Service{
		client: &client,
		model:  "gpt-4o-mini",
		debug:  debug,
		tracer: otel.Tracer("llm-service"),
	}
}

// Model reports the default model, for call sites that record metadata.
func (s *Service) Model() string {
	return s.model
}

type TextCompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
	Model        string // optional override
}

type JSONCompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
	Model        string // optional override
}

type StreamCompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
	Model        string // optional override
}

type JSONSchemaCompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
	Model        string // optional override
	SchemaName   string
	Schema       interface{}
}

func (s *Service) CompleteText(ctx context.Context, req TextCompletionRequest) (string, error) {
	operationType := "text_completion"
	if opType := getOperationType(ctx); opType != "" {
		operationType = opType
	}

	sc := trace.SpanFromContext(ctx).SpanContext()
	if s.debug != nil {
		if !sc.IsValid() {
			s.debug.Printf("NO PARENT: ctx missing active span for %s", operationType)
		} else {
			s.debug.Printf("CompleteText trace=%s parentSpan=%s op=%s", sc.TraceID(), sc.SpanID(), operationType)
		}
	}

	model := s.resolveModel(req.Model)
	ctx, span := s.tracer.Start(ctx, operationType,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			observability.CreateGenAIAttributes("openai", model, 0, 0, req.Temperature)...,
		),
	)
	defer span.End()

	span.SetAttributes(s.requestAttributes(ctx, operationType, req.MaxTokens, "text")...)

	span.AddEvent("gen_ai.user.message", trace.WithAttributes(
		attribute.String("gen_ai.system", "openai"),
		attribute.String("content", req.UserPrompt),
	))

	startTime := time.Now()

	openaiReq := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
		MaxCompletionTokens: openai.Int(int64(req.MaxTokens)),
	}

	if req.Temperature > 0 {
		openaiReq.Temperature = openai.Float(req.Temperature)
	}

	if s.debug != nil {
		s.debug.Printf("LLM Text Completion - MaxTokens: %d, Temp: %.2f, SystemPrompt length: %d", req.MaxTokens, req.Temperature, len(req.SystemPrompt))
	}

	resp, err := s.client.Chat.Completions.New(ctx, openaiReq)
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "llm_completion_error"))
		span.RecordError(err)
		if s.debug != nil {
			s.debug.Printf("LLM Text Completion error: %v", err)
		}
		return "", &GenerationError{Op: "text completion", Err: err}
	}

	if len(resp.Choices) == 0 {
		err := &GenerationError{Op: "text completion", Err: fmt.Errorf("no completion choices returned")}
		span.RecordError(err)
		return "", err
	}

	content := resp.Choices[0].Message.Content
	duration := time.Since(startTime)

	span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", resp.Usage.PromptTokens),
		attribute.Int64("gen_ai.usage.output_tokens", resp.Usage.CompletionTokens),
		attribute.Int64("response_time_ms", duration.Milliseconds()),
		attribute.String("langfuse.observation.input", req.SystemPrompt+"\n\n"+req.UserPrompt),
		attribute.String("langfuse.observation.output", content),
		attribute.String("langfuse.observation.output_format", "text"),
		attribute.String("langfuse.observation.model.name", model),
	)

	span.AddEvent("gen_ai.choice", trace.WithAttributes(
		attribute.String("gen_ai.system", "openai"),
		attribute.String("content", content),
	))

	if s.debug != nil {
		s.debug.Printf("LLM Text Completion response length: %d, tokens: %d/%d, duration: %v",
			len(content), resp.Usage.PromptTokens, resp.Usage.CompletionTokens, duration)
	}

	return content, nil
}

func (s *Service) CompleteJSON(ctx context.Context, req JSONCompletionRequest) (string, error) {
	operationType := "json_completion"
	if opType := getOperationType(ctx); opType != "" {
		operationType = opType
	}

	sc := trace.SpanFromContext(ctx).SpanContext()
	if s.debug != nil {
		if !sc.IsValid() {
			s.debug.Printf("NO PARENT: ctx missing active span for %s", operationType)
		} else {
			s.debug.Printf("CompleteJSON trace=%s parentSpan=%s op=%s", sc.TraceID(), sc.SpanID(), operationType)
		}
	}

	model := s.resolveModel(req.Model)
	ctx, span := s.tracer.Start(ctx, operationType,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			observability.CreateGenAIAttributes("openai", model, 0, 0, req.Temperature)...,
		),
	)
	defer span.End()

	span.SetAttributes(s.requestAttributes(ctx, operationType, req.MaxTokens, "json")...)

	span.AddEvent("gen_ai.user.message", trace.WithAttributes(
		attribute.String("gen_ai.system", "openai"),
		attribute.String("content", req.UserPrompt),
	))

	startTime := time.Now()

	openaiReq := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
		MaxCompletionTokens: openai.Int(int64(req.MaxTokens)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: func() *shared.ResponseFormatJSONObjectParam {
				p := shared.NewResponseFormatJSONObjectParam()
				return &p
			}(),
		},
	}

	if req.Temperature > 0 {
		openaiReq.Temperature = openai.Float(req.Temperature)
	}

	if s.debug != nil {
		s.debug.Printf("LLM JSON Completion - MaxTokens: %d, Temp: %.2f, SystemPrompt length: %d", req.MaxTokens, req.Temperature, len(req.SystemPrompt))
	}

	resp, err := s.client.Chat.Completions.New(ctx, openaiReq)
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "llm_completion_error"))
		span.RecordError(err)
		if s.debug != nil {
			s.debug.Printf("LLM JSON Completion error: %v", err)
		}
		return "", &GenerationError{Op: "JSON completion", Err: err}
	}

	if len(resp.Choices) == 0 {
		err := &GenerationError{Op: "JSON completion", Err: fmt.Errorf("no completion choices returned")}
		span.RecordError(err)
		return "", err
	}

	content := resp.Choices[0].Message.Content
	duration := time.Since(startTime)

	if s.debug != nil {
		s.debug.Printf("JSON Response Debug: content=%q, finish_reason=%s, choices_count=%d",
			content, resp.Choices[0].FinishReason, len(resp.Choices))
		if resp.Choices[0].FinishReason == "length" {
			s.debug.Printf("JSON Length Debug: input_tokens=%d, completion_tokens=%d, total_available=%d",
				resp.Usage.PromptTokens, resp.Usage.CompletionTokens, req.MaxTokens)
		}
	}

	span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", resp.Usage.PromptTokens),
		attribute.Int64("gen_ai.usage.output_tokens", resp.Usage.CompletionTokens),
		attribute.Int64("response_time_ms", duration.Milliseconds()),
		attribute.String("langfuse.observation.input", req.SystemPrompt+"\n\n"+req.UserPrompt),
		attribute.String("langfuse.observation.output", content),
		attribute.String("langfuse.observation.output_format", "json"),
		attribute.String("langfuse.observation.model.name", model),
	)

	span.AddEvent("gen_ai.choice", trace.WithAttributes(
		attribute.String("gen_ai.system", "openai"),
		attribute.String("content", content),
	))

	return content, nil
}

func (s *Service) CompleteJSONSchema(ctx context.Context, req JSONSchemaCompletionRequest) (string, error) {
	operationType := "json_schema_completion"
	if opType := getOperationType(ctx); opType != "" {
		operationType = opType
	}

	model := s.resolveModel(req.Model)
	ctx, span := s.tracer.Start(ctx, operationType,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			observability.CreateGenAIAttributes("openai", model, 0, 0, req.Temperature)...,
		),
	)
	defer span.End()

	span.SetAttributes(s.requestAttributes(ctx, operationType, req.MaxTokens, "json_schema")...)

	span.AddEvent("gen_ai.user.message", trace.WithAttributes(
		attribute.String("gen_ai.system", "openai"),
		attribute.String("content", req.UserPrompt),
	))

	startTime := time.Now()

	openaiReq := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
		MaxCompletionTokens: openai.Int(int64(req.MaxTokens)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				Type: constant.JSONSchema("json_schema"),
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.SchemaName,
					Schema: req.Schema,
					Strict: openai.Bool(true),
				},
			},
		},
	}

	if req.Temperature > 0 {
		openaiReq.Temperature = openai.Float(req.Temperature)
	}

	if s.debug != nil {
		s.debug.Printf("LLM JSON Schema Completion - MaxTokens: %d, Schema: %s", req.MaxTokens, req.SchemaName)
	}

	resp, err := s.client.Chat.Completions.New(ctx, openaiReq)
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "llm_completion_error"))
		span.RecordError(err)
		if s.debug != nil {
			s.debug.Printf("LLM JSON Schema Completion error: %v", err)
		}
		return "", &GenerationError{Op: "JSON schema completion", Err: err}
	}

	if len(resp.Choices) == 0 {
		err := &GenerationError{Op: "JSON schema completion", Err: fmt.Errorf("no completion choices returned")}
		span.RecordError(err)
		return "", err
	}

	content := resp.Choices[0].Message.Content
	duration := time.Since(startTime)

	if s.debug != nil {
		s.debug.Printf("JSON Schema Response: content=%q, finish_reason=%s",
			content, resp.Choices[0].FinishReason)
	}

	span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", resp.Usage.PromptTokens),
		attribute.Int64("gen_ai.usage.output_tokens", resp.Usage.CompletionTokens),
		attribute.Int64("response_time_ms", duration.Milliseconds()),
		attribute.String("langfuse.observation.input", req.SystemPrompt+"\n\n"+req.UserPrompt),
		attribute.String("langfuse.observation.output", content),
		attribute.String("langfuse.observation.output_format", "json_schema"),
		attribute.String("langfuse.observation.model.name", model),
	)

	span.AddEvent("gen_ai.choice", trace.WithAttributes(
		attribute.String("gen_ai.system", "openai"),
		attribute.String("content", content),
	))

	return content, nil
}

func (s *Service) CompleteStream(ctx context.Context, req StreamCompletionRequest) *Stream {
	model := s.resolveModel(req.Model)
	openaiReq := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
		MaxCompletionTokens: openai.Int(int64(req.MaxTokens)),
	}

	if req.Temperature > 0 {
		openaiReq.Temperature = openai.Float(req.Temperature)
	}

	if s.debug != nil {
		s.debug.Printf("LLM Stream Completion - MaxTokens: %d, Temp: %.2f, SystemPrompt length: %d", req.MaxTokens, req.Temperature, len(req.SystemPrompt))
		s.debug.Printf("LLM Stream Request - Model: %s", model)
	}

	return &Stream{inner: s.client.Chat.Completions.NewStreaming(ctx, openaiReq)}
}

func (s *Service) resolveModel(override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return s.model
}

func (s *Service) requestAttributes(ctx context.Context, operationType string, maxTokens int, format string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int("gen_ai.request.max_tokens", maxTokens),
		attribute.String("langfuse.observation.type", "generation"),
		attribute.String("response_format", format),
		attribute.String("game.operation_type", operationType),
	}

	if sessionID := getSessionID(ctx); sessionID != "" {
		attrs = append(attrs,
			attribute.String("langfuse.session.id", sessionID),
			attribute.String("session.id", sessionID),
		)
	}

	if gameCtx := getGameContext(ctx); gameCtx != nil {
		for k, v := range gameCtx {
			switch val := v.(type) {
			case string:
				attrs = append(attrs, attribute.String("game."+k, val))
			case int:
				attrs = append(attrs, attribute.Int("game."+k, val))
			case []string:
				attrs = append(attrs, attribute.StringSlice("game."+k, val))
			}
		}
	}

	return attrs
}

func WithOperationType(ctx context.Context, opType string) context.Context {
	return context.WithValue(ctx, operationTypeKey, opType)
}

func WithGameContext(ctx context.Context, gameCtx map[string]interface{}) context.Context {
	// Merge with any existing game context instead of overwriting
	if existing, ok := ctx.Value(gameContextKey).(map[string]interface{}); ok && existing != nil {
		merged := make(map[string]interface{}, len(existing)+len(gameCtx))
		for k, v := range existing {
			merged[k] = v
		}
		for k, v := range gameCtx {
			merged[k] = v
		}
		return context.WithValue(ctx, gameContextKey, merged)
	}
	return context.WithValue(ctx, gameContextKey, gameCtx)
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, observability.GetSessionIDKey(), sessionID)
}

func getOperationType(ctx context.Context) string {
	if opType, ok := ctx.Value(operationTypeKey).(string); ok {
		return opType
	}
	return ""
}

func getGameContext(ctx context.Context) map[string]interface{} {
	if gameCtx, ok := ctx.Value(gameContextKey).(map[string]interface{}); ok {
		return gameCtx
	}
	return nil
}

func getSessionID(ctx context.Context) string {
	return observability.GetSessionIDFromContext(ctx)
}
