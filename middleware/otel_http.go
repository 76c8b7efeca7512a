package middleware

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/ncecere/llm-sdk/provider"
)

// GenAISystemOpenAI marks spans produced for OpenAI HTTP calls.
var GenAISystemOpenAI = GenAISystemKey.String("openai")

// HTTPTracingConfig configures TracingHTTPClient.
type HTTPTracingConfig struct {
	// AddEventDetails records prompts and completions as span events.
	AddEventDetails bool
	// SampleRoot starts spans even when the request carries no parent span.
	SampleRoot bool
}

// TracingHTTPClient wraps next so that every POST to a completions
// endpoint produces a client span carrying gen_ai request and response
// attributes. Other requests get a plain HTTP span.
func TracingHTTPClient(next provider.HTTPClient, tp trace.TracerProvider, config HTTPTracingConfig) provider.HTTPClient {
	return &tracingHTTPClient{
		next:   next,
		tracer: tp.Tracer(instrumentationName + "/http"),
		config: config,
	}
}

type tracingHTTPClient struct {
	next   provider.HTTPClient
	tracer trace.Tracer
	config HTTPTracingConfig
}

func (c *tracingHTTPClient) Do(req *http.Request) (*http.Response, error) {
	parentSpan := trace.SpanFromContext(req.Context())
	if !c.config.SampleRoot && !parentSpan.SpanContext().IsValid() {
		return c.next.Do(req)
	}

	isCompletion := req.Method == http.MethodPost && strings.HasSuffix(req.URL.Path, "/completions") &&
		!strings.HasSuffix(req.URL.Path, "/chat/completions")

	var reqBody []byte
	if isCompletion && req.Body != nil {
		var err error
		reqBody, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(reqBody))
	}

	attributes := []attribute.KeyValue{
		semconv.HTTPRequestMethodKey.String(req.Method),
		semconv.URLFull(req.URL.String()),
	}
	if req.URL.Host != "" {
		attributes = append(attributes, semconv.ServerAddress(req.URL.Hostname()))
		if port := req.URL.Port(); port != "" {
			if portInt, err := strconv.Atoi(port); err == nil {
				attributes = append(attributes, semconv.ServerPort(portInt))
			}
		}
	}

	model := gjson.GetBytes(reqBody, "model").String()
	spanName := fmt.Sprintf("%s %s", req.Method, req.URL.Path)
	if isCompletion && model != "" {
		attributes = append(attributes,
			GenAISystemOpenAI,
			GenAIOperationNameKey.String(OperationTextCompletion),
			GenAIRequestModelKey.String(model),
		)
		attributes = append(attributes, completionRequestAttributes(reqBody)...)
		spanName = fmt.Sprintf("%s %s", OperationTextCompletion, model)
	}

	ctx, span := c.tracer.Start(req.Context(), spanName, trace.WithAttributes(attributes...), trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if isCompletion && c.config.AddEventDetails {
		gjson.GetBytes(reqBody, "prompt").ForEach(func(_, value gjson.Result) bool {
			span.AddEvent(GenAIUserMessageEvent, trace.WithAttributes(GenAIContentKey.String(value.String())))
			return true
		})
	}

	resp, err := c.next.Do(req.WithContext(ctx))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(semconv.ErrorTypeKey.String(reflect.TypeOf(err).String()))
		return resp, err
	}

	span.SetAttributes(semconv.HTTPResponseStatusCode(resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		span.SetAttributes(semconv.ErrorTypeKey.String(strconv.Itoa(resp.StatusCode)))
		return resp, nil
	}

	if isCompletion {
		c.hydrateFromResponse(span, resp)
	}
	return resp, nil
}

// hydrateFromResponse reads the completion body, records its metadata on
// span and restores the body for the caller.
func (c *tracingHTTPClient) hydrateFromResponse(span trace.Span, resp *http.Response) {
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || !gjson.ValidBytes(body) {
		return
	}

	parsed := gjson.ParseBytes(body)
	if id := parsed.Get("id").String(); id != "" {
		span.SetAttributes(GenAIResponseIDKey.String(id))
	}
	if model := parsed.Get("model").String(); model != "" {
		span.SetAttributes(GenAIResponseModelKey.String(model))
	}
	if usage := parsed.Get("usage"); usage.Exists() {
		span.SetAttributes(
			GenAIUsageInputTokensKey.Int64(usage.Get("prompt_tokens").Int()),
			GenAIUsageOutputTokensKey.Int64(usage.Get("completion_tokens").Int()),
		)
	}

	var reasons []string
	parsed.Get("choices").ForEach(func(_, choice gjson.Result) bool {
		if r := choice.Get("finish_reason").String(); r != "" {
			reasons = append(reasons, r)
		}
		if c.config.AddEventDetails {
			span.AddEvent(GenAIChoiceEvent, trace.WithAttributes(GenAIContentKey.String(choice.Get("text").String())))
		}
		return true
	})
	if len(reasons) > 0 {
		span.SetAttributes(GenAIResponseFinishReasonsKey.StringSlice(reasons))
	}
}

func completionRequestAttributes(body []byte) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	fields := gjson.GetManyBytes(body, "temperature", "max_tokens", "top_p", "frequency_penalty", "presence_penalty", "n")
	if fields[0].Exists() {
		attrs = append(attrs, GenAIRequestTemperatureKey.Float64(fields[0].Float()))
	}
	if fields[1].Exists() {
		attrs = append(attrs, GenAIRequestMaxTokensKey.Int64(fields[1].Int()))
	}
	if fields[2].Exists() {
		attrs = append(attrs, GenAIRequestTopPKey.Float64(fields[2].Float()))
	}
	if fields[3].Exists() {
		attrs = append(attrs, GenAIRequestFrequencyPenaltyKey.Float64(fields[3].Float()))
	}
	if fields[4].Exists() {
		attrs = append(attrs, GenAIRequestPresencePenaltyKey.Float64(fields[4].Float()))
	}
	if fields[5].Exists() {
		attrs = append(attrs, GenAIRequestChoiceCountKey.Int64(fields[5].Int()))
	}
	if prompts := gjson.GetBytes(body, "prompt"); prompts.IsArray() {
		attrs = append(attrs, LLMPromptCountKey.Int(len(prompts.Array())))
	}
	return attrs
}
