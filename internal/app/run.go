package app

import (
	"context"
	"fmt"

	"github.com/vk/depsgraph/internal/builder"
	"github.com/vk/depsgraph/internal/ctxlog"
	"github.com/vk/depsgraph/internal/depsgraph"
	"github.com/vk/depsgraph/internal/document"
	"github.com/vk/depsgraph/internal/flush"
	"github.com/vk/depsgraph/internal/notify"
	"github.com/vk/depsgraph/internal/trace"
	"go.opentelemetry.io/otel"
)

const tracerName = "github.com/vk/depsgraph"

// Run loads the scene, builds the graph instances and drives them through
// the initial pass, the configured tags and the configured frames.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if err := a.startHealthCheckServer(a.config.HealthcheckPort); err != nil {
		return err
	}
	defer a.closeHealthCheckServer()

	callbacks := notify.Log()
	if a.config.NotifyURL != "" {
		n, err := notify.Dial(ctx, notify.SocketIOOptions{URL: a.config.NotifyURL})
		if err != nil {
			return fmt.Errorf("connecting editor notifier: %w", err)
		}
		defer n.Close(ctx)
		callbacks = flush.Chain(callbacks, n.Callbacks())
	}

	var sink trace.Sink = trace.Nop{}
	if a.config.Trace {
		sink = trace.Multi(trace.NewSlogSink(), trace.NewOTelSink(otel.Tracer(tracerName)))
	}

	scene, err := a.loader.Load(ctx, a.config.ScenePaths...)
	if err != nil {
		return fmt.Errorf("failed to load scene: %w", err)
	}
	doc, err := scene.Document(a.config.ScenePaths[0])
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	a.logger.Info("Scene loaded.", "elements", len(scene.Elements))

	engine := depsgraph.NewEngine(depsgraph.Config{
		Registry:   a.registry,
		Callbacks:  callbacks,
		Workers:    a.config.WorkerCount,
		Sink:       sink,
		Timestamps: a.config.Timestamps,
		Metrics:    a.metrics,
	})
	source := depsgraph.SourceFunc(func(ctx context.Context) (builder.Description, error) {
		s, err := a.loader.Load(ctx, a.config.ScenePaths...)
		if err != nil {
			return builder.Description{}, err
		}
		return s.Description()
	})

	viewport := engine.NewInstance(doc, "ViewLayer", "Scene", depsgraph.Viewport)
	viewport.MakeActive()
	instances := []*depsgraph.Instance{viewport}
	if a.config.Render {
		instances = append(instances, engine.NewInstance(doc, "ViewLayer", "Scene", depsgraph.Render))
	}
	a.mu.Lock()
	a.engine, a.instances = engine, instances
	a.mu.Unlock()

	for _, inst := range instances {
		inst.SetSource(source)
		res, err := inst.Rebuild(ctx)
		if err != nil {
			return fmt.Errorf("failed to build dependency graph: %w", err)
		}
		a.logger.Debug("Dependency graph built.", "instance", inst.String(), "added", len(res.Added), "relations", res.RelationsAdded)
	}

	a.logger.Info("🚀 Starting evaluation...")
	if err := a.evaluateAll(ctx, instances, nil); err != nil {
		return err
	}

	if len(a.config.Tags) > 0 {
		for _, tag := range a.config.Tags {
			if _, ok := doc.Element(document.ID(tag.Element)); !ok {
				a.logger.Warn("Tagging element missing from the scene.", "element", tag.Element)
			}
			engine.TagElement(ctx, doc, document.ID(tag.Element), tag.Mask)
		}
		a.logger.Info("Tags applied, re-evaluating.", "count", len(a.config.Tags))
		if err := a.evaluateAll(ctx, instances, nil); err != nil {
			return err
		}
	}

	for f := 1; f <= a.config.Frames; f++ {
		frame := float64(f)
		if err := a.evaluateAll(ctx, instances, &frame); err != nil {
			return err
		}
	}

	for _, inst := range instances {
		s := inst.Stats()
		a.logger.Info("Evaluation summary.",
			"instance", inst.String(),
			"nodes", s.Nodes,
			"relations", s.Relations,
			"passes", s.Passes,
			"last_evaluated", s.LastPass.Evaluated,
			"dirty", s.Dirty,
		)
	}
	a.logger.Info("🏁 Evaluation finished.")
	return nil
}

// evaluateAll runs one pass on every instance, then clears their recalc
// masks. A nil frame refreshes at the current time.
func (a *App) evaluateAll(ctx context.Context, instances []*depsgraph.Instance, frame *float64) error {
	for _, inst := range instances {
		var err error
		if frame != nil {
			err = inst.EvaluateOnFrameChange(ctx, *frame)
		} else {
			err = inst.EvaluateOnRefresh(ctx)
		}
		if err != nil {
			return fmt.Errorf("evaluation failed: %w", err)
		}
		inst.ClearRecalc(false)
	}
	return nil
}
