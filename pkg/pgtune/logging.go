package pgtune

import (
	"fmt"
	"sync"

	"github.com/flanksource/commons/logger"
)

// logPool buffers non-fatal correction-pass warnings (such as the
// reserved-connection clamp) and flushes them through commons/logger at the
// end of a request, so a warning raised mid-pass is never swallowed.
type logPool struct {
	mu       sync.Mutex
	warnings []string
}

func (p *logPool) add(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *logPool) flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range p.warnings {
		logger.Warnf("%s", w)
	}
	p.warnings = nil
}

// logWarnf is used by catalog construction, which runs at package-level
// cache-fill time rather than per-request, so it logs immediately instead
// of buffering into a request-scoped logPool.
func logWarnf(format string, args ...any) {
	logger.Warnf(format, args...)
}
