package catalog

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/banker-pool/internal/config"
)

// New builds the catalog source described by cfg.
// A base_url of the form file:///path selects a FileSource.
func New(cfg config.CatalogConfig, logger *logrus.Logger) (Source, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("catalog is disabled")
	}
	if dir, ok := fileDir(cfg.BaseURL); ok {
		return NewFileSource(dir), nil
	}

	httpCfg := DefaultHTTPClientConfig()
	if cfg.TimeoutSeconds > 0 {
		httpCfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	httpCfg.MaxRetries = cfg.MaxRetries
	if cfg.RateLimit > 0 {
		httpCfg.RateLimit = cfg.RateLimit
	}

	return NewHTTPSource(NewRateLimitedHTTPClient(httpCfg, logger), cfg.BaseURL, cfg.APIKey, logger), nil
}

func fileDir(baseURL string) (string, bool) {
	const scheme = "file://"
	if len(baseURL) > len(scheme) && baseURL[:len(scheme)] == scheme {
		return baseURL[len(scheme):], true
	}
	return "", false
}
