// Package tracing provides lightweight span tracing for swipebraille.
//
// Spans follow OpenTelemetry concepts without the SDK: trace and span IDs,
// parent links, attributes, events and a status. Finished, sampled spans
// are handed to an Exporter. Trace context crosses HTTP boundaries in the
// W3C traceparent header.
package tracing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// TraceID identifies a trace.
type TraceID [16]byte

func (t TraceID) String() string {
	return hex.EncodeToString(t[:])
}

// IsValid reports whether t is non-zero.
func (t TraceID) IsValid() bool {
	return t != TraceID{}
}

// SpanID identifies a span.
type SpanID [8]byte

func (s SpanID) String() string {
	return hex.EncodeToString(s[:])
}

// IsValid reports whether s is non-zero.
func (s SpanID) IsValid() bool {
	return s != SpanID{}
}

// SpanKind describes a span's role.
type SpanKind int

const (
	SpanKindInternal SpanKind = iota
	SpanKindServer
	SpanKindClient
)

func (k SpanKind) String() string {
	switch k {
	case SpanKindServer:
		return "server"
	case SpanKindClient:
		return "client"
	default:
		return "internal"
	}
}

// StatusCode is the outcome of a span.
type StatusCode int

const (
	StatusUnset StatusCode = iota
	StatusOK
	StatusError
)

func (s StatusCode) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	default:
		return "unset"
	}
}

// Attribute is a key-value pair attached to a span or event.
type Attribute struct {
	Key   string
	Value any
}

// Attr is shorthand for an Attribute.
func Attr(key string, value any) Attribute {
	return Attribute{Key: key, Value: value}
}

// Event is a timestamped annotation on a span.
type Event struct {
	Name       string
	Timestamp  time.Time
	Attributes []Attribute
}

// SpanContext is the part of a span that propagates.
type SpanContext struct {
	TraceID    TraceID
	SpanID     SpanID
	TraceFlags byte
	TraceState string
	Remote     bool
}

// IsValid reports whether both IDs are set.
func (sc SpanContext) IsValid() bool {
	return sc.TraceID.IsValid() && sc.SpanID.IsValid()
}

// IsSampled reports whether the sampled flag is set.
func (sc SpanContext) IsSampled() bool {
	return sc.TraceFlags&0x01 != 0
}

// Span is one timed operation. A nil tracer makes every method a no-op
// apart from bookkeeping, so callers never check whether tracing is on.
type Span struct {
	mu         sync.RWMutex
	tracer     *Tracer
	name       string
	context    SpanContext
	parent     SpanContext
	kind       SpanKind
	startTime  time.Time
	endTime    time.Time
	attributes []Attribute
	events     []Event
	status     StatusCode
	statusMsg  string
	ended      atomic.Bool
}

// Context returns the span's propagated context.
func (s *Span) Context() SpanContext {
	return s.context
}

// SetAttributes appends attributes.
func (s *Span) SetAttributes(attrs ...Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attributes = append(s.attributes, attrs...)
}

// AddEvent records a named event now.
func (s *Span) AddEvent(name string, attrs ...Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, Event{Name: name, Timestamp: time.Now(), Attributes: attrs})
}

// SetStatus sets the outcome.
func (s *Span) SetStatus(code StatusCode, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = code
	s.statusMsg = message
}

// RecordError adds an exception event and marks the span failed.
func (s *Span) RecordError(err error) {
	if err == nil {
		return
	}
	s.AddEvent("exception",
		Attr("exception.type", fmt.Sprintf("%T", err)),
		Attr("exception.message", err.Error()),
	)
	s.SetStatus(StatusError, err.Error())
}

// End finishes the span and exports it if sampled. Later calls do nothing.
func (s *Span) End() {
	if s.ended.Swap(true) {
		return
	}
	s.mu.Lock()
	s.endTime = time.Now()
	s.mu.Unlock()

	if s.tracer != nil && s.context.IsSampled() {
		s.tracer.exporter.ExportSpan(s.Data())
	}
}

// SpanData is the exported form of a finished span.
type SpanData struct {
	Name       string         `json:"name"`
	TraceID    string         `json:"trace_id"`
	SpanID     string         `json:"span_id"`
	ParentID   string         `json:"parent_id,omitempty"`
	Kind       string         `json:"kind"`
	StartTime  time.Time      `json:"start_time"`
	EndTime    time.Time      `json:"end_time"`
	Duration   time.Duration  `json:"duration_ns"`
	Status     string         `json:"status"`
	StatusMsg  string         `json:"status_message,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Events     []EventData    `json:"events,omitempty"`
}

// EventData is the exported form of an Event.
type EventData struct {
	Name       string         `json:"name"`
	Timestamp  time.Time      `json:"timestamp"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func attrMap(attrs []Attribute) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	m := make(map[string]any, len(attrs))
	for _, a := range attrs {
		m[a.Key] = a.Value
	}
	return m
}

// Data returns a snapshot of the span.
func (s *Span) Data() SpanData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]EventData, len(s.events))
	for i, e := range s.events {
		events[i] = EventData{Name: e.Name, Timestamp: e.Timestamp, Attributes: attrMap(e.Attributes)}
	}
	var parentID string
	if s.parent.SpanID.IsValid() {
		parentID = s.parent.SpanID.String()
	}
	return SpanData{
		Name:       s.name,
		TraceID:    s.context.TraceID.String(),
		SpanID:     s.context.SpanID.String(),
		ParentID:   parentID,
		Kind:       s.kind.String(),
		StartTime:  s.startTime,
		EndTime:    s.endTime,
		Duration:   s.endTime.Sub(s.startTime),
		Status:     s.status.String(),
		StatusMsg:  s.statusMsg,
		Attributes: attrMap(s.attributes),
		Events:     events,
	}
}

// Exporter receives finished spans.
type Exporter interface {
	ExportSpan(SpanData)
	Shutdown() error
}

// WriterExporter writes one JSON object per span.
type WriterExporter struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
}

// NewWriterExporter exports to w, typically os.Stdout or os.Stderr.
func NewWriterExporter(w io.Writer) *WriterExporter {
	return &WriterExporter{enc: json.NewEncoder(w)}
}

// NewFileExporter appends spans to the file at path.
func NewFileExporter(path string) (*WriterExporter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return &WriterExporter{enc: json.NewEncoder(f), closer: f}, nil
}

// ExportSpan writes d.
func (e *WriterExporter) ExportSpan(d SpanData) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enc.Encode(d)
}

// Shutdown closes the file, if the exporter owns one.
func (e *WriterExporter) Shutdown() error {
	if e.closer == nil {
		return nil
	}
	return e.closer.Close()
}

// NoopExporter drops every span.
type NoopExporter struct{}

func (NoopExporter) ExportSpan(SpanData) {}
func (NoopExporter) Shutdown() error     { return nil }

// Sampler decides whether a new root trace is recorded.
type Sampler interface {
	ShouldSample(traceID TraceID, name string) bool
}

// AlwaysSample records every trace.
type AlwaysSample struct{}

func (AlwaysSample) ShouldSample(TraceID, string) bool { return true }

// NeverSample records nothing.
type NeverSample struct{}

func (NeverSample) ShouldSample(TraceID, string) bool { return false }

// RatioSampler records a fixed fraction of traces, chosen by trace ID so
// that every service sharing the ID agrees.
type RatioSampler struct {
	ratio float64
}

// NewRatioSampler clamps ratio to [0, 1].
func NewRatioSampler(ratio float64) *RatioSampler {
	return &RatioSampler{ratio: min(max(ratio, 0), 1)}
}

func (s *RatioSampler) ShouldSample(traceID TraceID, _ string) bool {
	if s.ratio >= 1 {
		return true
	}
	var h uint64
	for i := 0; i < 8; i++ {
		h = h<<8 | uint64(traceID[i])
	}
	return float64(h) < s.ratio*float64(^uint64(0))
}

// Config configures a Tracer.
type Config struct {
	ServiceName string
	Exporter    Exporter
	Sampler     Sampler
	Enabled     bool
}

// Tracer starts spans.
type Tracer struct {
	serviceName string
	exporter    Exporter
	sampler     Sampler
	enabled     bool
}

// NewTracer builds a tracer. A nil cfg gives a disabled tracer.
func NewTracer(cfg *Config) *Tracer {
	if cfg == nil {
		cfg = &Config{}
	}
	t := &Tracer{
		serviceName: cfg.ServiceName,
		exporter:    cfg.Exporter,
		sampler:     cfg.Sampler,
		enabled:     cfg.Enabled,
	}
	if t.exporter == nil {
		t.exporter = NoopExporter{}
	}
	if t.sampler == nil {
		t.sampler = AlwaysSample{}
	}
	return t
}

// Enabled reports whether the tracer records spans.
func (t *Tracer) Enabled() bool {
	return t != nil && t.enabled
}

// SpanOption configures a span at start.
type SpanOption func(*Span)

// WithSpanKind sets the span kind.
func WithSpanKind(kind SpanKind) SpanOption {
	return func(s *Span) { s.kind = kind }
}

// WithAttributes sets initial attributes.
func WithAttributes(attrs ...Attribute) SpanOption {
	return func(s *Span) { s.attributes = append(s.attributes, attrs...) }
}

// Start begins a span as a child of the span in ctx, or of a remote parent
// placed there by ContextWithRemoteParent. Without a parent it starts a
// new trace, sampled by the tracer's sampler; children inherit the
// parent's sampling decision.
func (t *Tracer) Start(ctx context.Context, name string, opts ...SpanOption) (context.Context, *Span) {
	if !t.Enabled() {
		return ctx, &Span{name: name}
	}

	var parent SpanContext
	if p := SpanFromContext(ctx); p != nil {
		parent = p.Context()
	} else if sc, ok := ctx.Value(remoteParentKey{}).(SpanContext); ok {
		parent = sc
	}

	sc := SpanContext{TraceState: parent.TraceState}
	if parent.IsValid() {
		sc.TraceID = parent.TraceID
		sc.TraceFlags = parent.TraceFlags
	} else {
		rand.Read(sc.TraceID[:])
		if t.sampler.ShouldSample(sc.TraceID, name) {
			sc.TraceFlags = 0x01
		}
	}
	rand.Read(sc.SpanID[:])

	span := &Span{
		tracer:    t,
		name:      name,
		context:   sc,
		parent:    parent,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(span)
	}
	if t.serviceName != "" {
		span.attributes = append(span.attributes, Attr("service.name", t.serviceName))
	}
	return ContextWithSpan(ctx, span), span
}

// Run wraps fn in a span, recording its error.
func (t *Tracer) Run(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := t.Start(ctx, name)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
	} else {
		span.SetStatus(StatusOK, "")
	}
	return err
}

// Shutdown flushes and closes the exporter.
func (t *Tracer) Shutdown() error {
	if t == nil {
		return nil
	}
	return t.exporter.Shutdown()
}

type (
	spanContextKey  struct{}
	remoteParentKey struct{}
)

// ContextWithSpan returns ctx carrying span.
func ContextWithSpan(ctx context.Context, span *Span) context.Context {
	return context.WithValue(ctx, spanContextKey{}, span)
}

// SpanFromContext returns the span in ctx, or nil.
func SpanFromContext(ctx context.Context) *Span {
	if ctx == nil {
		return nil
	}
	span, _ := ctx.Value(spanContextKey{}).(*Span)
	return span
}

// ContextWithRemoteParent records an extracted parent for the next Start.
func ContextWithRemoteParent(ctx context.Context, sc SpanContext) context.Context {
	if !sc.IsValid() {
		return ctx
	}
	return context.WithValue(ctx, remoteParentKey{}, sc)
}

// W3C trace context.

// ErrInvalidTraceParent is returned for a malformed traceparent header.
var ErrInvalidTraceParent = errors.New("invalid traceparent")

// ParseTraceParent parses a version 00 traceparent header such as
// 00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01.
func ParseTraceParent(header string) (SpanContext, error) {
	if len(header) != 55 || header[2] != '-' || header[35] != '-' || header[52] != '-' {
		return SpanContext{}, fmt.Errorf("%w: bad format", ErrInvalidTraceParent)
	}
	if header[0:2] != "00" {
		return SpanContext{}, fmt.Errorf("%w: unsupported version %s", ErrInvalidTraceParent, header[0:2])
	}

	var sc SpanContext
	if _, err := hex.Decode(sc.TraceID[:], []byte(header[3:35])); err != nil {
		return SpanContext{}, fmt.Errorf("%w: trace id: %v", ErrInvalidTraceParent, err)
	}
	if _, err := hex.Decode(sc.SpanID[:], []byte(header[36:52])); err != nil {
		return SpanContext{}, fmt.Errorf("%w: span id: %v", ErrInvalidTraceParent, err)
	}
	var flags [1]byte
	if _, err := hex.Decode(flags[:], []byte(header[53:55])); err != nil {
		return SpanContext{}, fmt.Errorf("%w: flags: %v", ErrInvalidTraceParent, err)
	}
	if !sc.IsValid() {
		return SpanContext{}, fmt.Errorf("%w: zero id", ErrInvalidTraceParent)
	}
	sc.TraceFlags = flags[0] & 0x01
	sc.Remote = true
	return sc, nil
}

// FormatTraceParent renders sc as a traceparent header.
func FormatTraceParent(sc SpanContext) string {
	flags := "00"
	if sc.IsSampled() {
		flags = "01"
	}
	return fmt.Sprintf("00-%s-%s-%s", sc.TraceID, sc.SpanID, flags)
}

// InjectTraceContext writes the context of the span in ctx through set.
func InjectTraceContext(ctx context.Context, set func(key, value string)) {
	span := SpanFromContext(ctx)
	if span == nil || !span.Context().IsValid() {
		return
	}
	set("traceparent", FormatTraceParent(span.Context()))
	if ts := span.Context().TraceState; ts != "" {
		set("tracestate", ts)
	}
}

// ExtractTraceContext reads a remote parent through get. A missing or
// malformed header yields the zero SpanContext.
func ExtractTraceContext(get func(key string) string) SpanContext {
	sc, err := ParseTraceParent(get("traceparent"))
	if err != nil {
		return SpanContext{}
	}
	sc.TraceState = get("tracestate")
	return sc
}
