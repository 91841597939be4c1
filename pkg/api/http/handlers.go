package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/aescanero/irrigation/internal/application/controller"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

// Client-facing messages.
const (
	statusRunning          = "Backend running 🚀"
	msgSensorDataUpdated   = "ESP32 data updated"
	msgManualDataUpdated   = "Manual data updated"
	msgInvalidSensorFormat = "Invalid sensor data format"
	msgInvalidSafetyValue  = "Invalid safety value"
	msgInvalidJSON         = "Invalid JSON body"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse confirms a data update
type MessageResponse struct {
	Message string `json:"message"`
}

// PumpCommandResponse is returned by POST /api/pump
type PumpCommandResponse struct {
	Success      bool   `json:"success"`
	State        string `json:"state"`
	Mode         string `json:"mode"`
	SafetyActive bool   `json:"safetyActive"`
}

// SafetyResponse is returned by POST /api/safety
type SafetyResponse struct {
	Success      bool   `json:"success"`
	SafetyActive bool   `json:"safetyActive"`
	PumpState    string `json:"pumpState"`
}

// handleRoot reports that the backend is up
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": statusRunning})
}

// handleHealth handles detailed health check requests
func (s *Server) handleHealth(c *gin.Context) {
	health := s.controller.Health(s.staleAfter)

	body := gin.H{
		"status":    "healthy",
		"timestamp": health.Timestamp.UTC().Format(time.RFC3339),
		"checks": gin.H{
			"controller":  "ok",
			"sensor_node": string(health.SensorNode),
		},
		"safetyActive": health.SafetyActive,
	}
	if health.SensorNode != controller.NodeNeverReported {
		body["sensor_age_seconds"] = health.Age.Seconds()
	}

	c.JSON(http.StatusOK, body)
}

// handleGetSensors returns the latest readings merged with pump and safety state
func (s *Server) handleGetSensors(c *gin.Context) {
	c.JSON(http.StatusOK, s.controller.Snapshot().SensorsView())
}

// handleSensorReport handles readings pushed by the sensor node
func (s *Server) handleSensorReport(c *gin.Context) {
	payload, err := s.decodePayload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidSensorFormat})
		return
	}

	if _, err := s.controller.ReportSensorData(c.Request.Context(), payload); err != nil {
		if errors.Is(err, controller.ErrInvalidSensorFormat) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidSensorFormat})
			return
		}
		s.logger.Error("failed to store sensor data", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: msgSensorDataUpdated})
}

// handleManualUpdate handles operator pH and weather overrides
func (s *Server) handleManualUpdate(c *gin.Context) {
	payload, err := s.decodePayload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidJSON})
		return
	}

	s.controller.ManualUpdate(c.Request.Context(), payload)

	c.JSON(http.StatusOK, MessageResponse{Message: msgManualDataUpdated})
}

// handleGetPump returns the effective pump status
func (s *Server) handleGetPump(c *gin.Context) {
	c.JSON(http.StatusOK, s.controller.Pump())
}

// handleSetPump handles pump state and mode commands
func (s *Server) handleSetPump(c *gin.Context) {
	payload, err := s.decodePayload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidJSON})
		return
	}

	status := s.controller.SetPump(c.Request.Context(), payload).PumpStatus()

	c.JSON(http.StatusOK, PumpCommandResponse{
		Success:      true,
		State:        string(status.State),
		Mode:         string(status.Mode),
		SafetyActive: status.SafetyActive,
	})
}

// handleSetSafety handles the safety override
func (s *Server) handleSetSafety(c *gin.Context) {
	payload, err := s.decodePayload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidSafetyValue})
		return
	}

	snap, err := s.controller.SetSafety(c.Request.Context(), payload)
	if err != nil {
		if errors.Is(err, controller.ErrInvalidSafetyValue) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidSafetyValue})
			return
		}
		s.logger.Error("failed to set safety", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	status := snap.SafetyStatus()
	c.JSON(http.StatusOK, SafetyResponse{
		Success:      true,
		SafetyActive: status.SafetyActive,
		PumpState:    string(status.PumpState),
	})
}

// decodePayload reads a JSON body. Only an unparsable body is an error: an
// empty body, a body sent with a non-JSON content type, and any JSON value
// other than an object all decode to an empty payload.
func (s *Server) decodePayload(c *gin.Context) (controller.Payload, error) {
	if ct := c.ContentType(); ct != "" && ct != binding.MIMEJSON {
		return controller.Payload{}, nil
	}

	var body interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return controller.Payload{}, nil
		}
		s.controller.RecordInvalidJSON()
		s.logger.Warn("invalid JSON body",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		return nil, err
	}

	if obj, ok := body.(map[string]interface{}); ok {
		return controller.Payload(obj), nil
	}
	return controller.Payload{}, nil
}
