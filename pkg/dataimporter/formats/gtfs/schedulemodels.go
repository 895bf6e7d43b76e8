package gtfs

import (
	"time"

	"github.com/travigo/disruptions/pkg/ctdf"
)

// Only the columns the schedule builder reads are mapped, gocsv skips the rest.

const (
	locationStopPoint = "0"
	locationStation   = "1"

	noPickUpOrDropOff = 1

	accessibilityAllowed = 1

	serviceAdded   = 1
	serviceRemoved = 2
)

type Agency struct {
	ID   string `csv:"agency_id"`
	Name string `csv:"agency_name"`
}

type Stop struct {
	ID     string `csv:"stop_id"`
	Name   string `csv:"stop_name"`
	Type   string `csv:"location_type"`
	Parent string `csv:"parent_station"`
}

func (s Stop) IsStation() bool {
	return s.Type == locationStation
}

// IsStopPoint is true for boarding locations, an empty location type included.
func (s Stop) IsStopPoint() bool {
	return s.Type == "" || s.Type == locationStopPoint
}

type Route struct {
	ID        string `csv:"route_id"`
	AgencyID  string `csv:"agency_id"`
	ShortName string `csv:"route_short_name"`
	LongName  string `csv:"route_long_name"`
	Type      int    `csv:"route_type"`
}

type Trip struct {
	RouteID              string `csv:"route_id"`
	ServiceID            string `csv:"service_id"`
	ID                   string `csv:"trip_id"`
	Headsign             string `csv:"trip_headsign"`
	Name                 string `csv:"trip_short_name"`
	BlockID              string `csv:"block_id"`
	WheelchairAccessible int8   `csv:"wheelchair_accessible"`
	BikesAllowed         int8   `csv:"bikes_allowed"`
	DirectionID          bool   `csv:"direction_id"`
}

// Direction is the suffix of the route a trip is grouped into.
func (t Trip) Direction() int {
	if t.DirectionID {
		return 1
	}
	return 0
}

type StopTime struct {
	TripID        string `csv:"trip_id"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
	StopID        string `csv:"stop_id"`
	StopSequence  int    `csv:"stop_sequence"`
	PickupType    int8   `csv:"pickup_type"`
	DropOffType   int8   `csv:"drop_off_type"`
}

func (s StopTime) PickUpAllowed() bool {
	return s.PickupType != noPickUpOrDropOff
}

func (s StopTime) DropOffAllowed() bool {
	return s.DropOffType != noPickUpOrDropOff
}

// clocks returns the arrival and departure in seconds after midnight, each
// falling back to the other when missing.
func (s StopTime) clocks() (int, int, error) {
	arrivalClock, departureClock := s.ArrivalTime, s.DepartureTime
	if arrivalClock == "" {
		arrivalClock = departureClock
	}
	if departureClock == "" {
		departureClock = arrivalClock
	}

	arrival, err := ctdf.ParseClock(arrivalClock)
	if err != nil {
		return 0, 0, err
	}
	departure, err := ctdf.ParseClock(departureClock)
	if err != nil {
		return 0, 0, err
	}

	return arrival, departure, nil
}

type Calendar struct {
	ServiceID string `csv:"service_id"`
	Monday    int    `csv:"monday"`
	Tuesday   int    `csv:"tuesday"`
	Wednesday int    `csv:"wednesday"`
	Thursday  int    `csv:"thursday"`
	Friday    int    `csv:"friday"`
	Saturday  int    `csv:"saturday"`
	Sunday    int    `csv:"sunday"`
	Start     string `csv:"start_date"`
	End       string `csv:"end_date"`
}

// RunsOn reports whether the calendar's weekday flags include day.
func (c *Calendar) RunsOn(day time.Weekday) bool {
	flags := [...]int{c.Sunday, c.Monday, c.Tuesday, c.Wednesday, c.Thursday, c.Friday, c.Saturday}
	return flags[day] == 1
}

type CalendarDate struct {
	ServiceID     string `csv:"service_id"`
	Date          string `csv:"date"`
	ExceptionType int    `csv:"exception_type"`
}
