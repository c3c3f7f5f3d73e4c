package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"listings_dashboard/internal/gateway"
	"listings_dashboard/internal/model"
)

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	resp, err := s.proxy.FetchListings(r.Context())
	s.relay(w, r, resp, err)
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	resp, err := s.proxy.FetchTestPing(r.Context())
	s.relay(w, r, resp, err)
}

func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "could not read request body")
		return
	}
	resp, err := s.proxy.SubmitOCRJob(r.Context(), body)
	s.relay(w, r, resp, err)
}

// relay writes the upstream reply unchanged or maps the gateway error to
// its JSON body.
func (s *Server) relay(w http.ResponseWriter, r *http.Request, resp *gateway.Response, err error) {
	if err != nil {
		s.proxyError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", resp.ContentType())
	w.WriteHeader(resp.Status)
	if _, err := w.Write(resp.Body); err != nil {
		s.log.Warn("write relayed body", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

func (s *Server) proxyError(w http.ResponseWriter, r *http.Request, err error) {
	status := gateway.HTTPStatus(err)
	s.log.Error("proxy request failed",
		zap.String("request_id", RequestID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	)

	var (
		missing     *gateway.ConfigurationMissingError
		invalid     *gateway.InvalidPayloadError
		unreachable *gateway.GatewayUnreachableError
	)
	switch {
	case errors.As(err, &missing):
		s.jsonResponse(w, status, map[string]string{"error": missing.Error(), "hint": missing.Hint()})
	case errors.As(err, &invalid):
		s.errorResponse(w, status, invalid.Message)
	case errors.As(err, &unreachable):
		s.jsonResponse(w, status, map[string]string{
			"error":   "proxy error",
			"details": unreachable.Err.Error(),
			"hint":    unreachable.Hint(),
		})
	default:
		s.errorResponse(w, status, err.Error())
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if raw := q.Get("sort"); raw != "" {
		option, err := model.ParseSortOption(raw)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		s.session.SetSort(option)
	}

	page, err := intParam(q.Get("page"), 1)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid page")
		return
	}
	size, err := intParam(q.Get("size"), 0)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid size")
		return
	}

	s.jsonResponse(w, http.StatusOK, s.session.View(page, size))
}

func (s *Server) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	res := s.session.NewItems()
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"count":    res.Count(),
		"items":    res.Items,
		"messages": res.Messages,
	})
}

type markReadRequest struct {
	IDs []int64 `json:"ids"`
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "could not read request body")
		return
	}

	var req markReadRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			s.errorResponse(w, http.StatusBadRequest, "expected {\"ids\": [number, ...]}")
			return
		}
	}

	var marked int
	if req.IDs == nil {
		marked, err = s.session.AcknowledgeNew(r.Context())
	} else {
		marked, err = s.session.Acknowledge(r.Context(), req.IDs)
	}
	if err != nil {
		s.log.Error("mark listings read", zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "could not persist read state")
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]int{
		"marked":    marked,
		"new_count": s.session.NewItems().Count(),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	if s.poller == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "refresh is not available")
		return
	}
	s.poller.Trigger()
	s.jsonResponse(w, http.StatusAccepted, map[string]string{"status": "refresh scheduled"})
}

func (s *Server) handleSeen(w http.ResponseWriter, _ *http.Request) {
	ids := s.session.SeenIDs()
	if ids == nil {
		ids = []int64{}
	}
	s.jsonResponse(w, http.StatusOK, ids)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn("encode json response", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
