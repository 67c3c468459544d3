package devapi

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
)

func (s *Server) mountSpeedTest(r chi.Router) {
	p := s.opts.Paths
	r.Post(p.SpeedTest, s.handleSubmitSpeedTest)
	r.Get(p.SpeedTest, func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, s.store.speedTests.list(nil))
	})
	r.Get(p.SpeedTestFilter, s.handleFilterSpeedTests)
	r.Get(p.SpeedTestBounds, s.handleSpeedTestsInBounds)
	r.Get(p.SpeedTestStatsCity, func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, s.speedTestStats(func(st domain.SpeedTestResult) string { return st.City }))
	})
	r.Get(p.SpeedTestStatsProvider, func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, s.speedTestStats(func(st domain.SpeedTestResult) string { return st.Provider }))
	})
}

// handleSubmitSpeedTest accepts anonymous measurements.
func (s *Server) handleSubmitSpeedTest(w http.ResponseWriter, r *http.Request) {
	var in domain.SpeedTestInput
	if err := decodePayload(r, &in, nil); err != nil {
		s.respondWithError(w, r, err)
		return
	}
	now := s.now()
	row := s.store.speedTests.insert(func(id int64) domain.SpeedTestResult {
		return domain.SpeedTestResult{
			ID:           id,
			Latitude:     in.Latitude,
			Longitude:    in.Longitude,
			City:         strings.TrimSpace(in.City),
			Provider:     strings.TrimSpace(in.Provider),
			DownloadMbps: in.DownloadMbps,
			UploadMbps:   in.UploadMbps,
			PingMs:       in.PingMs,
			CreatedAt:    domain.NewTimestamp(now),
		}
	})
	respondWithJSON(w, http.StatusCreated, row)
}

// handleFilterSpeedTests matches city and provider case-insensitively; an
// absent parameter does not filter.
func (s *Server) handleFilterSpeedTests(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	provider := strings.TrimSpace(r.URL.Query().Get("provider"))
	rows := s.store.speedTests.list(func(st domain.SpeedTestResult) bool {
		if city != "" && !strings.EqualFold(st.City, city) {
			return false
		}
		return provider == "" || strings.EqualFold(st.Provider, provider)
	})
	respondWithJSON(w, http.StatusOK, rows)
}

func (s *Server) handleSpeedTestsInBounds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var box domain.Bounds
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"minLat", &box.MinLat},
		{"maxLat", &box.MaxLat},
		{"minLng", &box.MinLng},
		{"maxLng", &box.MaxLng},
	} {
		v, err := strconv.ParseFloat(strings.TrimSpace(q.Get(f.name)), 64)
		if err != nil {
			s.respondWithError(w, r, domain.NewValidationError(f.name, "must be a number"))
			return
		}
		*f.dst = v
	}
	if err := box.Validate(); err != nil {
		s.respondWithError(w, r, err)
		return
	}
	rows := s.store.speedTests.list(func(st domain.SpeedTestResult) bool {
		return box.Contains(st.Latitude, st.Longitude)
	})
	respondWithJSON(w, http.StatusOK, rows)
}

// speedTestStats groups measurements by key, ignoring case; the first
// spelling seen names the group. Rows with an empty key are skipped.
func (s *Server) speedTestStats(key func(domain.SpeedTestResult) string) []domain.SpeedTestStats {
	groups := map[string]*domain.SpeedTestStats{}
	for _, st := range s.store.speedTests.list(nil) {
		k := strings.TrimSpace(key(st))
		if k == "" {
			continue
		}
		g, ok := groups[strings.ToLower(k)]
		if !ok {
			g = &domain.SpeedTestStats{Key: k}
			groups[strings.ToLower(k)] = g
		}
		g.Count++
		g.AvgDownload += st.DownloadMbps
		g.AvgUpload += st.UploadMbps
		g.AvgPing += st.PingMs
		if st.DownloadMbps > g.MaxDownload {
			g.MaxDownload = st.DownloadMbps
		}
	}

	out := make([]domain.SpeedTestStats, 0, len(groups))
	for _, g := range groups {
		n := float64(g.Count)
		g.AvgDownload /= n
		g.AvgUpload /= n
		g.AvgPing /= n
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Key) < strings.ToLower(out[j].Key) })
	return out
}
