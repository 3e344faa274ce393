package greenhouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// SoilGridsURL queries volumetric water content at 10 kPa for a point.
const SoilGridsURL = "https://rest.isric.org/soilgrids/v2.0/properties/query?lat=%f&lon=%f&property=wv0010"

// SoilSeeder derives the initial soil moisture from SoilGrids. It fetches
// once; later calls reuse the first result.
type SoilSeeder struct {
	BaseURL    string
	HTTPClient *http.Client
	MaxRetries uint64

	mu       sync.Mutex
	seeded   bool
	moisture float64
}

func NewSoilSeeder() *SoilSeeder {
	return &SoilSeeder{
		BaseURL:    SoilGridsURL,
		HTTPClient: &http.Client{Timeout: 8 * time.Second},
		MaxRetries: 2,
	}
}

// Seed returns default soil values with the moisture taken from SoilGrids
// at (lat, lon). Any failure falls back to DefaultMoisture.
func (s *SoilSeeder) Seed(ctx context.Context, lat, lon float64) SoilState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := DefaultSoil()
	if s.seeded {
		st.Moisture = s.moisture
		return st
	}
	s.seeded = true
	s.moisture = DefaultMoisture
	if lat == 0 && lon == 0 {
		return st
	}
	m, err := s.fetch(ctx, lat, lon)
	if err != nil {
		log.Printf("seed: soilgrids unavailable, using default moisture: %v", err)
		return st
	}
	s.moisture = m
	st.Moisture = m
	log.Printf("seed: soilgrids moisture=%.1f%% lat=%f lon=%f", m, lat, lon)
	return st
}

func (s *SoilSeeder) fetch(ctx context.Context, lat, lon float64) (float64, error) {
	url := fmt.Sprintf(s.BaseURL, lat, lon)

	var out float64
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", "greenhouse-server/1.0")

		resp, err := s.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		_ = resp.Body.Close()
		if err != nil {
			return err
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("soilgrids HTTP %d", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("soilgrids HTTP %d", resp.StatusCode))
		}

		var parsed any
		if err := json.Unmarshal(body, &parsed); err != nil {
			return backoff.Permanent(err)
		}
		v := extractMoisture(parsed)
		if v < 0 {
			return backoff.Permanent(errors.New("soilgrids: moisture field not found"))
		}
		out = normalizeWV(v) * 100
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 600 * time.Millisecond
	bo.MaxElapsedTime = 10 * time.Second
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, s.MaxRetries), ctx))
	if err != nil {
		return 0, err
	}
	return out, nil
}

// extractMoisture looks for the first depth value of the first layer, either
// at the top level or under features[0].
//
//	{"properties":{"layers":[{"depths":[{"values":{"Q0.5":270}}]}]}}
func extractMoisture(v any) float64 {
	m, ok := v.(map[string]any)
	if !ok {
		return -1
	}
	if feats, ok := m["features"].([]any); ok && len(feats) > 0 {
		if f0, ok := feats[0].(map[string]any); ok {
			if p, ok := f0["properties"].(map[string]any); ok {
				if x := fromProperties(p); x >= 0 {
					return x
				}
			}
		}
	}
	if p, ok := m["properties"].(map[string]any); ok {
		return fromProperties(p)
	}
	return -1
}

func fromProperties(p map[string]any) float64 {
	layers, ok := p["layers"].([]any)
	if !ok || len(layers) == 0 {
		return -1
	}
	l0, ok := layers[0].(map[string]any)
	if !ok {
		return -1
	}
	depths, ok := l0["depths"].([]any)
	if !ok || len(depths) == 0 {
		return -1
	}
	d0, ok := depths[0].(map[string]any)
	if !ok {
		return -1
	}
	vals, ok := d0["values"].(map[string]any)
	if !ok {
		return -1
	}
	for _, k := range []string{"Q0.5", "mean", "Q0.95", "Q0.05"} {
		if f, ok := vals[k].(float64); ok {
			return f
		}
	}
	return -1
}

// normalizeWV maps SoilGrids wv values to [0,1]. Most layers are stored as
// thousandths of m3/m3.
func normalizeWV(x float64) float64 {
	if x > 1.5 {
		x = x / 1000.0
	}
	return clamp(x, 0, 1)
}
