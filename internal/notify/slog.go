package notify

import (
	"context"

	"github.com/vk/depsgraph/internal/ctxlog"
	"github.com/vk/depsgraph/internal/flush"
)

// Log returns callbacks that log every editor update through the context
// logger.
func Log() flush.Callbacks {
	return flush.Callbacks{
		Element: func(ctx context.Context, u flush.ElementUpdate) {
			ctxlog.FromContext(ctx).Info("Editors: Element updated.", "instance", u.Instance, "element", u.Element, "reasons", u.Mask.String())
		},
		Graph: func(ctx context.Context, u flush.GraphUpdate) {
			ctxlog.FromContext(ctx).Info("Editors: Scene updated.", "instance", u.Instance, "time", u.Time, "any_changed", u.AnyChanged)
		},
	}
}
