package service

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/lai/breadcrumbs/pipeline"
)

// Frame types sent to live map clients.
const (
	FrameLatest      = "latest"      // last known position, sent on connect
	FrameBreadcrumbs = "breadcrumbs" // newly loaded breadcrumbs of one vehicle
)

// Frame is one websocket message. Breadcrumbs are in timestamp order.
type Frame struct {
	Type        string                `json:"type"`
	VehicleID   int64                 `json:"vehicle_id"`
	Breadcrumbs []pipeline.Breadcrumb `json:"breadcrumbs"`
}

type viewer struct {
	conn      *websocket.Conn
	vehicleID int64
	send      chan []byte
}

// Hub fans loaded breadcrumbs out to the clients watching each vehicle and
// remembers the latest position per vehicle for clients that join later.
type Hub struct {
	mu      sync.RWMutex
	viewers map[int64]map[*viewer]struct{}
	latest  map[int64]pipeline.Breadcrumb
}

func NewHub() *Hub {
	return &Hub{
		viewers: make(map[int64]map[*viewer]struct{}),
		latest:  make(map[int64]pipeline.Breadcrumb),
	}
}

func vehicleFromPath(p string) (int64, bool) {
	id := strings.TrimSuffix(strings.TrimPrefix(p, "/api/vehicle/"), "/")
	n, err := strconv.ParseInt(id, 10, 64)
	return n, err == nil
}

// ServeWS follows one vehicle: GET /api/vehicle/{vehicleId}
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	vehicleID, ok := vehicleFromPath(r.URL.Path)
	if !ok {
		http.Error(w, "numeric vehicle id required", http.StatusBadRequest)
		return
	}

	websocket.Handler(func(conn *websocket.Conn) {
		v := &viewer{conn: conn, vehicleID: vehicleID, send: make(chan []byte, 256)}
		h.subscribe(v)
		defer h.unsubscribe(v)

		slog.Info("viewer connected", "vehicle_id", vehicleID, "remote", conn.Request().RemoteAddr)

		go func() {
			for msg := range v.send {
				if _, err := conn.Write(msg); err != nil {
					return
				}
			}
		}()

		// clients only listen; reading detects the close
		buf := make([]byte, 512)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}).ServeHTTP(w, r)
}

// subscribe registers v and queues the last known position, if any.
func (h *Hub) subscribe(v *viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.viewers[v.vehicleID] == nil {
		h.viewers[v.vehicleID] = make(map[*viewer]struct{})
	}
	h.viewers[v.vehicleID][v] = struct{}{}

	if last, ok := h.latest[v.vehicleID]; ok {
		if data, err := encodeFrame(FrameLatest, v.vehicleID, []pipeline.Breadcrumb{last}); err == nil {
			v.send <- data
		}
	}
}

func (h *Hub) unsubscribe(v *viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.viewers[v.vehicleID]
	if !ok {
		return
	}
	if _, ok := set[v]; ok {
		delete(set, v)
		close(v.send)
		slog.Info("viewer disconnected", "vehicle_id", v.vehicleID)
	}
	if len(set) == 0 {
		delete(h.viewers, v.vehicleID)
	}
}

// Viewers returns the number of clients watching vehicleID.
func (h *Hub) Viewers(vehicleID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers[vehicleID])
}

// Latest returns the newest breadcrumb pushed for vehicleID.
func (h *Hub) Latest(vehicleID int64) (pipeline.Breadcrumb, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	b, ok := h.latest[vehicleID]
	return b, ok
}

// Push records crumbs as the newest positions and sends each watched
// vehicle its share as one frame. Slow viewers miss frames rather than
// block the consumer.
func (h *Hub) Push(crumbs []pipeline.Breadcrumb) {
	byVehicle := make(map[int64][]pipeline.Breadcrumb)
	var order []int64
	for _, b := range crumbs {
		if _, ok := byVehicle[b.VehicleID]; !ok {
			order = append(order, b.VehicleID)
		}
		byVehicle[b.VehicleID] = append(byVehicle[b.VehicleID], b)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, id := range order {
		group := byVehicle[id]
		for _, b := range group {
			if last, ok := h.latest[id]; !ok || b.Timestamp.After(last.Timestamp) {
				h.latest[id] = b
			}
		}

		set := h.viewers[id]
		if len(set) == 0 {
			continue
		}
		data, err := encodeFrame(FrameBreadcrumbs, id, group)
		if err != nil {
			slog.Error("encode frame failed", "error", err, "vehicle_id", id)
			continue
		}
		for v := range set {
			select {
			case v.send <- data:
			default:
				slog.Warn("viewer buffer full, frame dropped", "vehicle_id", id)
			}
		}
	}
}

func encodeFrame(typ string, vehicleID int64, crumbs []pipeline.Breadcrumb) ([]byte, error) {
	return json.Marshal(Frame{Type: typ, VehicleID: vehicleID, Breadcrumbs: crumbs})
}

// CloseAll disconnects every viewer.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, set := range h.viewers {
		for v := range set {
			close(v.send)
			v.conn.Close()
		}
	}
	h.viewers = make(map[int64]map[*viewer]struct{})
}
