// Package summary turns a window of access-log records into a prompt for a
// hosted language model and reads back a one-field structured answer.
package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultPrompt is the port-security-analyst instruction. The logs
// placeholder is substituted unescaped.
const DefaultPrompt = `You are a port security analyst. Your task is to summarize vehicle access logs for the Port Authority. The logs are provided as a JSON string.

Generate a concise summary based on the provided logs. Highlight key statistics like total access events, number of grants vs. denials, and identify any unusual patterns. For example, mention any vehicles with multiple denied access attempts or gates with unusually high activity.

The access logs are between {{.startTime}} and {{.endTime}}.
Here are the logs:
{{.logs}}`

var ErrEmptySummary = errors.New("model returned an empty summary")

// Model is a hosted text generator.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	Prompt     string
	StartField string // template key for the range start, default "startTime"
	EndField   string // template key for the range end, default "endTime"
	Timeout    time.Duration
}

// Input is what the prompt is rendered from. Logs is already serialized.
type Input struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Logs      string `json:"logs"`
}

type Output struct {
	Summary string `json:"summary"`
}

// Flow renders the prompt, calls the model once and parses the reply.
type Flow struct {
	tmpl    *template.Template
	model   Model
	start   string
	end     string
	timeout time.Duration
}

func NewFlow(cfg Config, model Model) (*Flow, error) {
	if model == nil {
		return nil, errors.New("summary: model is nil")
	}
	if cfg.StartField == "" {
		cfg.StartField = "startTime"
	}
	if cfg.EndField == "" {
		cfg.EndField = "endTime"
	}
	if cfg.Prompt == "" {
		cfg.Prompt = defaultPromptFor(cfg.StartField, cfg.EndField)
	}

	tmpl, err := template.New("summary").Option("missingkey=error").Parse(cfg.Prompt)
	if err != nil {
		return nil, fmt.Errorf("summary: parse prompt: %w", err)
	}

	f := &Flow{
		tmpl:    tmpl,
		model:   model,
		start:   cfg.StartField,
		end:     cfg.EndField,
		timeout: cfg.Timeout,
	}
	// A prompt naming a key the flow never supplies fails here, not per request.
	if _, err := f.Render(Input{}); err != nil {
		return nil, err
	}
	return f, nil
}

// defaultPromptFor rewrites DefaultPrompt's range keys to start and end.
func defaultPromptFor(start, end string) string {
	key := func(name string) string { return "{{index . " + strconv.Quote(name) + "}}" }
	return strings.NewReplacer(
		"{{.startTime}}", key(start),
		"{{.endTime}}", key(end),
	).Replace(DefaultPrompt)
}

// Render returns the prompt that Run would send.
func (f *Flow) Render(in Input) (string, error) {
	data := map[string]string{
		f.start: in.StartTime,
		f.end:   in.EndTime,
		"logs":  in.Logs,
	}
	var buf bytes.Buffer
	if err := f.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("summary: render prompt: %w", err)
	}
	return buf.String(), nil
}

func (f *Flow) Run(ctx context.Context, in Input) (Output, error) {
	ctx, span := otel.Tracer("portcullis/summary").Start(ctx, "summary.Flow.Run",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("summary.start", in.StartTime),
			attribute.String("summary.end", in.EndTime),
			attribute.Int("summary.logs_bytes", len(in.Logs)),
		),
	)
	defer span.End()

	prompt, err := f.Render(in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render")
		return Output{}, err
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	reply, err := f.model.Generate(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate")
		return Output{}, fmt.Errorf("summary: generate: %w", err)
	}

	out, err := ParseReply(reply)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse")
		return Output{}, err
	}
	return out, nil
}

// ParseReply reads {"summary": "..."}. A bare JSON string is unquoted and
// any other reply is taken as the summary text itself.
func ParseReply(reply string) (Output, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return Output{}, ErrEmptySummary
	}

	var out Output
	if err := json.Unmarshal([]byte(reply), &out); err != nil {
		var text string
		if json.Unmarshal([]byte(reply), &text) != nil {
			return Output{Summary: reply}, nil
		}
		out.Summary = strings.TrimSpace(text)
	}
	if strings.TrimSpace(out.Summary) == "" {
		return Output{}, ErrEmptySummary
	}
	return out, nil
}
