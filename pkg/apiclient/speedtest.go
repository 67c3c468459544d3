package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
)

// SpeedTestAPI submits and queries crowd-sourced connectivity measurements.
type SpeedTestAPI struct {
	client *Client
	paths  Paths
}

// Submit records one measurement.
func (s *SpeedTestAPI) Submit(ctx context.Context, in domain.SpeedTestInput) (*domain.SpeedTestResult, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	var out domain.SpeedTestResult
	if err := s.client.do(ctx, request{op: "speedtest.submit", method: http.MethodPost, path: s.paths.SpeedTest, body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SpeedTestAPI) GetAll(ctx context.Context) ([]domain.SpeedTestResult, error) {
	return list[domain.SpeedTestResult](ctx, s.client, request{op: "speedtest.list", path: s.paths.SpeedTest})
}

// GetFiltered lists measurements matching the filter. Empty filter fields are
// not sent, so a city-only filter ignores provider entirely.
func (s *SpeedTestAPI) GetFiltered(ctx context.Context, f domain.SpeedTestFilter) ([]domain.SpeedTestResult, error) {
	q := url.Values{}
	if city := strings.TrimSpace(f.City); city != "" {
		q.Set("city", city)
	}
	if provider := strings.TrimSpace(f.Provider); provider != "" {
		q.Set("provider", provider)
	}
	return list[domain.SpeedTestResult](ctx, s.client, request{op: "speedtest.filter", path: s.paths.SpeedTestFilter, query: q})
}

// GetInBounds lists measurements inside a bounding box.
func (s *SpeedTestAPI) GetInBounds(ctx context.Context, b domain.Bounds) ([]domain.SpeedTestResult, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("minLat", formatCoord(b.MinLat))
	q.Set("maxLat", formatCoord(b.MaxLat))
	q.Set("minLng", formatCoord(b.MinLng))
	q.Set("maxLng", formatCoord(b.MaxLng))
	return list[domain.SpeedTestResult](ctx, s.client, request{op: "speedtest.bounds", path: s.paths.SpeedTestBounds, query: q})
}

// StatsByCity aggregates measurements per city.
func (s *SpeedTestAPI) StatsByCity(ctx context.Context) ([]domain.SpeedTestStats, error) {
	return list[domain.SpeedTestStats](ctx, s.client, request{op: "speedtest.stats_city", path: s.paths.SpeedTestStatsCity})
}

// StatsByProvider aggregates measurements per provider.
func (s *SpeedTestAPI) StatsByProvider(ctx context.Context) ([]domain.SpeedTestStats, error) {
	return list[domain.SpeedTestStats](ctx, s.client, request{op: "speedtest.stats_provider", path: s.paths.SpeedTestStatsProvider})
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
