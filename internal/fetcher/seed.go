// Package fetcher downloads catalog seed data from a remote JSON source with
// polite rate limiting and bounded retries.
package fetcher

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/d4tools/loothound/internal/config"
	"github.com/d4tools/loothound/internal/model"
)

// SeedPayload is the wire format of a catalog seed document.
type SeedPayload struct {
	Version   string                `json:"version"`
	Affixes   []model.CatalogAffix  `json:"affixes"`
	Aspects   []model.CatalogAspect `json:"aspects"`
	ItemTypes []model.ItemType      `json:"item_types"`
	Classes   []model.Class         `json:"classes"`
}

// SeedClient fetches seed documents.
type SeedClient struct {
	http    *http.Client
	limiter *rate.Limiter
	cfg     config.CatalogConfig
}

// NewSeedClient creates a client from catalog config.
func NewSeedClient(cfg config.CatalogConfig) *SeedClient {
	r := cfg.SyncRatePerSec
	if r <= 0 {
		r = 0.5
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SeedClient{
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(r), 1),
		cfg:     cfg,
	}
}

// Fetch downloads and decodes the seed document, retrying transient failures
// with linear backoff.
func (c *SeedClient) Fetch(ctx context.Context) (*SeedPayload, error) {
	if c.cfg.SeedURL == "" {
		return nil, eris.New("fetcher: catalog.seed_url is not configured")
	}

	retries := c.cfg.SyncRetries
	if retries < 0 {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limit wait")
		}

		payload, err := c.fetchOnce(ctx)
		if err == nil {
			zap.L().Info("fetcher: seed downloaded",
				zap.String("url", c.cfg.SeedURL),
				zap.Int("affixes", len(payload.Affixes)),
				zap.Int("aspects", len(payload.Aspects)),
			)
			return payload, nil
		}
		lastErr = err
		zap.L().Warn("fetcher: seed download failed",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, eris.Wrap(ctx.Err(), "fetcher: cancelled")
		case <-time.After(time.Duration(attempt+1) * time.Second):
		}
	}
	return nil, eris.Wrapf(lastErr, "fetcher: seed download failed after %d attempts", retries+1)
}

func (c *SeedClient) fetchOnce(ctx context.Context) (*SeedPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.SeedURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: execute request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, eris.Errorf("fetcher: seed source returned %d", resp.StatusCode)
	}

	var payload SeedPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, eris.Wrap(err, "fetcher: decode seed")
	}
	if len(payload.Affixes) == 0 {
		return nil, eris.New("fetcher: seed document has no affixes")
	}
	return &payload, nil
}

// LoadSeedFile decodes a seed document from a local file, for offline loads.
func LoadSeedFile(path string) (*SeedPayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read seed file %s", path)
	}
	var payload SeedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, eris.Wrapf(err, "fetcher: decode seed file %s", path)
	}
	return &payload, nil
}
