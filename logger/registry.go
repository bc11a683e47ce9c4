package logger

import (
	"sync"

	"github.com/rs/zerolog"
)

// componentLevels holds per-component level overrides installed by Init.
var componentLevels = struct {
	mu     sync.RWMutex
	levels map[string]zerolog.Level
}{levels: map[string]zerolog.Level{}}

func setComponentLevels(overrides map[string]string) {
	levels := make(map[string]zerolog.Level, len(overrides))
	for name, lvl := range overrides {
		if l, err := zerolog.ParseLevel(lvl); err == nil {
			levels[name] = l
		}
	}
	componentLevels.mu.Lock()
	componentLevels.levels = levels
	componentLevels.mu.Unlock()
}

// Get returns the global logger tagged with a component name, at the level
// configured for that component under logging.components.
func Get(name string) *Logger {
	l := GetGlobalLogger().WithComponent(name)
	componentLevels.mu.RLock()
	lvl, ok := componentLevels.levels[name]
	componentLevels.mu.RUnlock()
	if ok {
		l.logger = l.logger.Level(lvl)
	}
	return l
}
