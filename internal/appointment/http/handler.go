package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/felop/appointment-booking-backend/internal/appointment"
	"github.com/felop/appointment-booking-backend/internal/pkg/request"
	"github.com/felop/appointment-booking-backend/internal/pkg/response"
)

type Handler struct {
	service appointment.Service
	clock   appointment.Clock
}

func NewHandler(service appointment.Service, clock appointment.Clock) *Handler {
	return &Handler{service: service, clock: clock}
}

// bindAppointment binds and structurally validates the write body shared
// by Create and Update. A nil ok result means the response is already sent.
func (h *Handler) bindAppointment(c *gin.Context) (appointment.CreateRequest, bool) {
	var body AppointmentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.ValidationFailed(c, bindingFieldErrors(err))
		return appointment.CreateRequest{}, false
	}

	req, errs := body.Parse(h.clock.Now())
	if errs != nil {
		response.ValidationFailed(c, errs)
		return appointment.CreateRequest{}, false
	}
	return req, true
}

func (h *Handler) pathID(c *gin.Context) (int64, bool) {
	id, err := request.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "invalid appointment id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) pathDate(c *gin.Context) (time.Time, bool) {
	date, err := time.Parse(time.DateOnly, c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "invalid date, expected YYYY-MM-DD"})
		return time.Time{}, false
	}
	return date, true
}

func (h *Handler) Create(c *gin.Context) {
	req, ok := h.bindAppointment(c)
	if !ok {
		return
	}

	apt, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewBookingConfirmation(apt))
}

func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	apts, total, err := h.service.List(c.Request.Context(), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]AppointmentResponse, len(apts))
	for i, a := range apts {
		items[i] = NewAppointmentResponse(a)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, page, pageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	apt, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAppointmentResponse(apt))
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	req, ok := h.bindAppointment(c)
	if !ok {
		return
	}

	apt, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAppointmentResponse(apt))
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetByCode(c *gin.Context) {
	apt, err := h.service.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAppointmentResponse(apt))
}

func (h *Handler) ListByEmail(c *gin.Context) {
	apts, err := h.service.ListByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, newListResponse(apts))
}

func (h *Handler) ListByStatus(c *gin.Context) {
	status, err := appointment.ParseStatus(c.Param("status"))
	if err != nil {
		response.Error(c, err)
		return
	}

	apts, err := h.service.ListByStatus(c.Request.Context(), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, newListResponse(apts))
}

func (h *Handler) ListByDate(c *gin.Context) {
	date, ok := h.pathDate(c)
	if !ok {
		return
	}

	apts, err := h.service.ListByDate(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, newListResponse(apts))
}

func (h *Handler) Availability(c *gin.Context) {
	date, ok := h.pathDate(c)
	if !ok {
		return
	}

	av, err := h.service.Availability(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAvailabilityResponse(av))
}

func (h *Handler) Confirm(c *gin.Context) {
	h.applyTransition(c, h.service.Confirm)
}

func (h *Handler) Cancel(c *gin.Context) {
	h.applyTransition(c, h.service.Cancel)
}

func (h *Handler) Complete(c *gin.Context) {
	h.applyTransition(c, h.service.Complete)
}

func (h *Handler) applyTransition(c *gin.Context, op func(ctx context.Context, id int64) (*appointment.Appointment, error)) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	apt, err := op(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAppointmentResponse(apt))
}

func newListResponse(apts []*appointment.Appointment) []AppointmentResponse {
	items := make([]AppointmentResponse, len(apts))
	for i, a := range apts {
		items[i] = NewAppointmentResponse(a)
	}
	return items
}
