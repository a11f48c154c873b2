package app

import (
	"github.com/vk/depsgraph/internal/registry"
	"github.com/vk/depsgraph/modules/fail"
	"github.com/vk/depsgraph/modules/noop"
	"github.com/vk/depsgraph/modules/print"
	"github.com/vk/depsgraph/modules/sleep"
)

// coreModules returns every operation module compiled into the depsgraph
// binary. print writes to the app's output.
func (a *App) coreModules() []registry.Module {
	return []registry.Module{
		&print.Module{Out: a.outW},
		noop.Module{},
		sleep.Module{},
		fail.Module{},
	}
}
