package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"asset-tracker/internal/query"
	apperrors "asset-tracker/pkg/errors"
	"asset-tracker/pkg/utils"
)

// QueryHandler serves the dashboard read-side: device snapshots, telemetry
// history, journeys and alerts.
type QueryHandler struct {
	service *query.Service
}

func NewQueryHandler(service *query.Service) *QueryHandler {
	return &QueryHandler{service: service}
}

func (h *QueryHandler) RegisterRoutes(router *gin.RouterGroup) {
	devices := router.Group("/devices")
	{
		devices.GET("", h.ListDevices)
		devices.GET("/:id/state", h.GetDeviceState)
		devices.GET("/:id/telemetry", h.ListTelemetry)
		devices.GET("/:id/journeys", h.ListJourneys)
	}

	alerts := router.Group("/alerts")
	{
		alerts.GET("", h.ListAlerts)
		alerts.POST("/:id/ack", h.AcknowledgeAlert)
	}
}

type listDevicesRequest struct {
	Mode   string `form:"mode" binding:"omitempty,devicemode"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
}

func (h *QueryHandler) ListDevices(c *gin.Context) {
	var req listDevicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	states, err := h.service.ListDevices(c.Request.Context(), req.Mode, req.Limit, req.Offset)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Devices retrieved successfully", states)
}

func (h *QueryHandler) GetDeviceState(c *gin.Context) {
	state, err := h.service.GetDevice(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, apperrors.ErrDeviceStateNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Device not found")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device state retrieved successfully", state)
}

type listTelemetryRequest struct {
	DataType string `form:"type" binding:"omitempty,oneof=telemetry power health tracking mode_change"`
	Since    int64  `form:"since" binding:"omitempty,min=0"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=1000"`
}

func (h *QueryHandler) ListTelemetry(c *gin.Context) {
	var req listTelemetryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	records, err := h.service.ListTelemetry(c.Request.Context(), &query.TelemetryFilter{
		DeviceID: c.Param("id"),
		DataType: req.DataType,
		Since:    req.Since,
		Limit:    req.Limit,
	})
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Telemetry retrieved successfully", records)
}

type listJourneysRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=active completed"`
}

func (h *QueryHandler) ListJourneys(c *gin.Context) {
	var req listJourneysRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	journeys, err := h.service.ListJourneys(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Journeys retrieved successfully", journeys)
}

type listAlertsRequest struct {
	Acknowledged string `form:"acknowledged" binding:"omitempty,oneof=true false"`
	Limit        int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

func (h *QueryHandler) ListAlerts(c *gin.Context) {
	var req listAlertsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	alerts, err := h.service.ListAlerts(c.Request.Context(), req.Acknowledged, req.Limit)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Alerts retrieved successfully", alerts)
}

func (h *QueryHandler) AcknowledgeAlert(c *gin.Context) {
	if err := h.service.AcknowledgeAlert(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, apperrors.ErrAlertNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Alert not found")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Alert acknowledged successfully", nil)
}
