package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/muurk/lightify/internal/bridge"
	"github.com/muurk/lightify/internal/logging"
	"github.com/muurk/lightify/internal/protocol"
	"github.com/muurk/lightify/internal/relay"
)

const maxBodySize = 4096

// Health is the /healthz response body.
type Health struct {
	Status         string `json:"status"`
	State          string `json:"state"`
	FramesSent     uint64 `json:"frames_sent"`
	FramesReceived uint64 `json:"frames_received"`
	Unsolicited    uint64 `json:"unsolicited"`
	ProtocolErrors uint64 `json:"protocol_errors"`
	Timeouts       uint64 `json:"timeouts"`
	WSClients      int    `json:"ws_clients"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	stats := s.bridge.Stats()
	health := Health{
		Status:         "ok",
		State:          stats.State.String(),
		FramesSent:     stats.FramesSent,
		FramesReceived: stats.FramesReceived,
		Unsolicited:    stats.Unsolicited,
		ProtocolErrors: stats.ProtocolErrors,
		Timeouts:       stats.Timeouts,
		WSClients:      s.hub.ClientCount(),
	}

	status := http.StatusOK
	if stats.State == bridge.StateDisconnected {
		health.Status = "disconnected"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (s *Server) handleListGroups(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.bridge.Groups())
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	id, err := groupID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	g, ok := s.bridge.Group(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("group %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleListLights(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.bridge.Lights())
}

// handleGetLight serves the cached light. ?refresh=true asks the bridge
// for the light's current status first.
func (s *Server) handleGetLight(w http.ResponseWriter, r *http.Request) {
	address, err := protocol.ParseAddress(r.PathValue("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		if err := s.bridge.RequestLightStatus(r.Context(), address); err != nil {
			writeBridgeError(w, err)
			return
		}
	}

	l, ok := s.bridge.Light(address)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("light %s not found", protocol.FormatAddress(address)))
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleSetGroupState(w http.ResponseWriter, r *http.Request) {
	id, err := groupID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := s.bridge.Group(id); !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("group %d not found", id))
		return
	}

	if !s.applyCommand(w, r, protocol.GroupTarget(id)) {
		return
	}
	g, _ := s.bridge.Group(id)
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleSetLightState(w http.ResponseWriter, r *http.Request) {
	address, err := protocol.ParseAddress(r.PathValue("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.applyCommand(w, r, protocol.DeviceTarget(address)) {
		return
	}
	l, _ := s.bridge.Light(address)
	writeJSON(w, http.StatusOK, l)
}

// applyCommand decodes a state change body and sends it to target. It
// reports whether the caller should continue writing a response.
func (s *Server) applyCommand(w http.ResponseWriter, r *http.Request, target protocol.Target) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return false
	}

	cmd, err := relay.ParseCommand(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if err := cmd.Apply(s.bridge, target, s.config.DefaultFade); err != nil {
		writeBridgeError(w, err)
		return false
	}
	return true
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.bridge.Refresh(r.Context()); err != nil {
		writeBridgeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"groups": s.bridge.Groups(),
		"lights": s.bridge.Lights(),
	})
}

func groupID(r *http.Request) (uint16, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid group id %q", r.PathValue("id"))
	}
	return uint16(id), nil
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// writeBridgeError maps a bridge failure onto an HTTP status.
func writeBridgeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case bridge.IsInvalidArgument(err), errors.Is(err, protocol.ErrInvalidTarget):
		status = http.StatusBadRequest
	case bridge.IsBusy(err):
		status = http.StatusConflict
	case bridge.IsTimeout(err):
		status = http.StatusGatewayTimeout
	case bridge.IsClosed(err), bridge.IsTransportError(err):
		status = http.StatusServiceUnavailable
	case bridge.IsCancelled(err):
		// Client went away; the status is never seen.
		status = http.StatusRequestTimeout
	}
	writeError(w, status, err.Error())
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the WebSocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// logRequests logs every request with its final status.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, rec.status)
	})
}
