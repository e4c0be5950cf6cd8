package http

import (
	"exchange_calendar/core/port/in"
	"exchange_calendar/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

type CalendarHandler struct {
	calendarService in.CalendarEntityService
}

func NewCalendarHandler(calendarService in.CalendarEntityService) *CalendarHandler {
	return &CalendarHandler{calendarService: calendarService}
}

func (h *CalendarHandler) Register(app fiber.Router) {
	cal := app.Group("/calendars")
	cal.Get("/", h.ListCalendars)
	cal.Get("/:entity_id", h.ListEvents)
	cal.Post("/:entity_id/update", h.UpdateEntity)

	states := app.Group("/states")
	states.Get("/", h.ListStates)
	states.Get("/:entity_id", h.GetState)
}

func (h *CalendarHandler) ListCalendars(c *fiber.Ctx) error {
	return c.JSON(h.calendarService.ListCalendars(c.UserContext()))
}

// ListEvents returns the events overlapping [start, end).
func (h *CalendarHandler) ListEvents(c *fiber.Ctx) error {
	entityID := c.Params("entity_id")

	start, err := queryTime(c, "start")
	if err != nil {
		return err
	}
	end, err := queryTime(c, "end")
	if err != nil {
		return err
	}
	if !end.After(start) {
		return apperr.InvalidInput("end", "must be after start")
	}

	events, err := h.calendarService.GetEvents(c.UserContext(), entityID, start, end)
	if err != nil {
		return serviceError(err, entityID)
	}

	return c.JSON(events)
}

func (h *CalendarHandler) UpdateEntity(c *fiber.Ctx) error {
	entityID := c.Params("entity_id")

	result, err := h.calendarService.UpdateEntity(c.UserContext(), entityID)
	if err != nil {
		return serviceError(err, entityID)
	}

	return c.JSON(result)
}

func (h *CalendarHandler) ListStates(c *fiber.Ctx) error {
	return c.JSON(h.calendarService.States(c.UserContext()))
}

func (h *CalendarHandler) GetState(c *fiber.Ctx) error {
	entityID := c.Params("entity_id")

	state, err := h.calendarService.State(c.UserContext(), entityID)
	if err != nil {
		return serviceError(err, entityID)
	}

	return c.JSON(state)
}
