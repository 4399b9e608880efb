package source

import (
	"fmt"
	"io"
	"time"

	"github.com/querie/querie/internal/config"
	"github.com/querie/querie/internal/version"
)

var userAgent = "querie/" + version.Version

func pace(cfg config.SourceConfig) time.Duration {
	return time.Duration(cfg.PaceMS) * time.Millisecond
}

func timeout(cfg config.SourceConfig) time.Duration {
	return time.Duration(cfg.TimeoutSec) * time.Second
}

// drainClose discards the rest of a response body so the connection can be
// reused, then closes it.
func drainClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

func statusError(provider string, code int) error {
	return fmt.Errorf("%s API returned HTTP %d", provider, code)
}

func capResults(requested, limit int) int {
	if requested <= 0 || requested > limit {
		return limit
	}
	return requested
}
