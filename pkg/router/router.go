// Package router routes node feedback events from the host to widgets. A
// feedback event names a node, a widget, and a value; the router resolves the
// node through the identifier registry, coerces the value according to the
// event's type tag, assigns it, and invokes the widget's change callback.
//
// The router is the error boundary for feedback handling: a malformed
// payload, an unknown node, or a missing widget is logged and dropped, never
// propagated. The host keeps emitting regardless of what the relay thinks of
// any single event.
package router

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/promptkit/textbatch/pkg/event"
	"github.com/promptkit/textbatch/pkg/registry"
)

// Router applies feedback events to node widgets.
type Router struct {
	registry *registry.Registry
	logger   *zap.Logger
	tracer   trace.Tracer
}

// New creates a router over the given registry.
func New(reg *registry.Registry, logger *zap.Logger) *Router {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &Router{
		registry: reg,
		logger:   logger,
		tracer:   otel.Tracer("textbatch/router"),
	}
}

// Handler returns the event handler to subscribe under
// event.SubjectNodeFeedback.
func (r *Router) Handler() event.Handler {
	return r.Route
}

// Route applies a single feedback event. Every failure mode is a logged
// no-op: the widget state is left untouched and nil is returned so the bus
// keeps dispatching.
func (r *Router) Route(ctx context.Context, ev *event.Event) error {
	// Registry and widget access take no context; only the span joins the
	// caller's trace.
	_, span := r.tracer.Start(ctx, "router.Route",
		trace.WithAttributes(
			attribute.String("event.subject", ev.Subject),
			attribute.String("event.correlation_id", ev.CorrelationID),
		))
	defer span.End()

	fb, err := ev.Feedback()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed feedback payload")
		r.logger.Warn("Dropping malformed feedback event",
			zap.String("correlation_id", ev.CorrelationID),
			zap.Error(err))
		return nil
	}

	span.SetAttributes(
		attribute.String("node.id", fb.NodeID.String()),
		attribute.String("widget.name", fb.WidgetName),
	)

	if !fb.NodeID.Valid() {
		span.SetStatus(codes.Error, "feedback without node id")
		r.logger.Warn("Dropping feedback without node id",
			zap.String("widget", fb.WidgetName))
		return nil
	}

	node, err := r.registry.Resolve(fb.NodeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "node not found")
		r.logger.Warn("Dropping feedback for unknown node",
			zap.Stringer("node_id", fb.NodeID),
			zap.String("widget", fb.WidgetName))
		return nil
	}

	widget := node.Widget(fb.WidgetName)
	if widget == nil {
		span.SetStatus(codes.Error, "widget not found")
		r.logger.Warn("Dropping feedback for unknown widget",
			zap.Stringer("node_id", fb.NodeID),
			zap.String("widget", fb.WidgetName))
		return nil
	}

	value, err := fb.CoercedValue()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "value coercion failed")
		r.logger.Warn("Dropping feedback with uncoercible value",
			zap.Stringer("node_id", fb.NodeID),
			zap.String("widget", fb.WidgetName),
			zap.Error(err))
		return nil
	}

	widget.Assign(value)
	span.SetStatus(codes.Ok, "feedback applied")
	r.logger.Debug("Applied feedback",
		zap.Stringer("node_id", fb.NodeID),
		zap.String("widget", fb.WidgetName),
		zap.Any("value", value))
	return nil
}
