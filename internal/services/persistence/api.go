package persistence

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LeonardoBeccarini/greenhouse_project/internal/greenhouse"
)

// ConnChecker is satisfied by mqtt.Client.
type ConnChecker interface {
	IsConnectionOpen() bool
}

// HTTPDeps are the parts of the server the admin API reports on. Sink and
// MQTT may be nil when the integration is disabled.
type HTTPDeps struct {
	Greenhouses func() []*greenhouse.GreenHouse
	Lookup      func(id int) (*greenhouse.GreenHouse, bool)
	Sink        *Sink
	MQTT        ConnChecker
	MinErrorAge time.Duration
}

type readingOut struct {
	SensorID int     `json:"sensor_id"`
	Kind     string  `json:"kind"`
	Value    float64 `json:"value"`
}

type applianceOut struct {
	ID      int    `json:"id"`
	Type    string `json:"type"`
	Powered bool   `json:"powered"`
	Mode    string `json:"mode,omitempty"`
}

type greenhouseOut struct {
	ID         int            `json:"id"`
	Readings   []readingOut   `json:"readings"`
	Appliances []applianceOut `json:"appliances"`
}

func NewHTTPMux(d HTTPDeps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		type status struct {
			Status          string   `json:"status"`
			Greenhouses     int      `json:"greenhouses"`
			MQTTConnected   *bool    `json:"mqtt_connected,omitempty"`
			LastWriteErrorS *float64 `json:"last_write_error_age_sec,omitempty"`
		}
		st := status{Status: "ok", Greenhouses: len(d.Greenhouses())}
		if d.MQTT != nil {
			up := d.MQTT.IsConnectionOpen()
			st.MQTTConnected = &up
			if !up {
				st.Status = "degraded"
			}
		}
		if d.Sink != nil {
			age := d.Sink.LastErrorAge()
			secs := age.Seconds()
			st.LastWriteErrorS = &secs
			if age <= d.MinErrorAge {
				st.Status = "degraded"
			}
		}
		writeJSON(w, http.StatusOK, st)
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ready := (d.MQTT == nil || d.MQTT.IsConnectionOpen()) &&
			(d.Sink == nil || d.Sink.LastErrorAge() > d.MinErrorAge)
		code := http.StatusOK
		if !ready {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]bool{"ready": ready})
	})

	mux.HandleFunc("GET /greenhouses", func(w http.ResponseWriter, _ *http.Request) {
		list := d.Greenhouses()
		out := make([]greenhouseOut, 0, len(list))
		for _, gh := range list {
			out = append(out, describe(gh))
		}
		writeJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("GET /greenhouses/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(r.PathValue("id"))
		if err != nil {
			http.Error(w, "invalid greenhouse id", http.StatusBadRequest)
			return
		}
		gh, ok := d.Lookup(id)
		if !ok {
			http.Error(w, "greenhouse not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, describe(gh))
	})

	return mux
}

func describe(gh *greenhouse.GreenHouse) greenhouseOut {
	out := greenhouseOut{ID: gh.ID(), Readings: []readingOut{}, Appliances: []applianceOut{}}
	for _, r := range gh.Readings() {
		out.Readings = append(out.Readings, readingOut{SensorID: r.SensorID, Kind: string(r.Kind), Value: r.Value})
	}
	for _, a := range gh.Appliances() {
		ao := applianceOut{ID: a.ID(), Type: string(a.Kind()), Powered: a.Powered()}
		if m := a.Mode(); m != greenhouse.ModeNone {
			ao.Mode = string(m)
		}
		out.Appliances = append(out.Appliances, ao)
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
