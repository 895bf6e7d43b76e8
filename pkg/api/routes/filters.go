package routes

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/travigo/disruptions/pkg/ctdf"

	iso8601 "github.com/senseyeio/duration"
)

const (
	defaultCount = 25
	maxCount     = 1000
)

// impactFilter selects impacts by status at now and by activity within an
// ISO 8601 window starting at now.
type impactFilter struct {
	now    time.Time
	until  time.Time
	status ctdf.ImpactStatus
}

func parseImpactFilter(c *fiber.Ctx, now time.Time) (impactFilter, error) {
	filter := impactFilter{now: now}

	if window := c.Query("window"); window != "" {
		duration, err := iso8601.ParseISO8601(window)
		if err != nil {
			return filter, fmt.Errorf("window must be an ISO 8601 duration: %w", err)
		}
		filter.until = duration.Shift(now)
	}

	if status := c.Query("status"); status != "" {
		switch ctdf.ImpactStatus(status) {
		case ctdf.ImpactStatusActive, ctdf.ImpactStatusFuture, ctdf.ImpactStatusPast:
			filter.status = ctdf.ImpactStatus(status)
		default:
			return filter, fmt.Errorf("unknown status %q", status)
		}
	}

	return filter, nil
}

func (f impactFilter) empty() bool {
	return f.until.IsZero() && f.status == ""
}

func (f impactFilter) matches(impact *ctdf.Impact) bool {
	if f.status != "" && impact.Status(f.now) != f.status {
		return false
	}
	if !f.until.IsZero() && !impact.ActiveDuring(f.now, f.until) {
		return false
	}

	return true
}

func (f impactFilter) apply(impacts []*ctdf.Impact) []*ctdf.Impact {
	var matching []*ctdf.Impact
	for _, impact := range impacts {
		if f.matches(impact) {
			matching = append(matching, impact)
		}
	}

	return matching
}

type pagination struct {
	StartPage    int `groups:"basic"`
	ItemsPerPage int `groups:"basic"`
	TotalResult  int `groups:"basic"`
}

// paginate returns the bounds of the requested page of total items.
func paginate(c *fiber.Ctx, total int) (pagination, int, int) {
	count := c.QueryInt("count", defaultCount)
	if count <= 0 || count > maxCount {
		count = defaultCount
	}
	page := c.QueryInt("start_page", 0)
	if page < 0 {
		page = 0
	}

	start := page * count
	if start > total {
		start = total
	}
	end := start + count
	if end > total {
		end = total
	}

	return pagination{StartPage: page, ItemsPerPage: count, TotalResult: total}, start, end
}

func badRequest(c *fiber.Ctx, err error) error {
	c.Status(fiber.StatusBadRequest)
	return c.JSON(fiber.Map{
		"error": err.Error(),
	})
}

func notFound(c *fiber.Ctx, what string) error {
	c.Status(fiber.StatusNotFound)
	return c.JSON(fiber.Map{
		"error": what + " not found",
	})
}

func reduceFailed(c *fiber.Ctx, what string) error {
	c.Status(fiber.StatusInternalServerError)
	return c.JSON(fiber.Map{
		"error": "Sheriff could not reduce " + what,
	})
}
