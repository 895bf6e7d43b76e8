package ctdf

import (
	"fmt"
	"strconv"
	"strings"
)

// StopTime times are seconds after midnight of the day the vehicle journey's
// validity pattern bit designates. They may exceed SecondsPerDay.
type StopTime struct {
	StopPoint int `groups:"internal"`

	ArrivalTime   int `groups:"basic"`
	DepartureTime int `groups:"basic"`
	BoardingTime  int `groups:"detailed"`
	AlightingTime int `groups:"detailed"`

	PickUpAllowed  bool `groups:"detailed"`
	DropOffAllowed bool `groups:"detailed"`
}

func (st StopTime) Shifted(seconds int) StopTime {
	st.ArrivalTime += seconds
	st.DepartureTime += seconds
	st.BoardingTime += seconds
	st.AlightingTime += seconds

	return st
}

// ParseClock reads "HH:MM" or "HH:MM:SS"; hours may exceed 23.
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	total := 0
	multipliers := []int{3600, 60, 1}
	for i, part := range parts {
		value, err := strconv.Atoi(part)
		if err != nil || value < 0 {
			return 0, fmt.Errorf("invalid time %q", s)
		}
		total += value * multipliers[i]
	}

	return total, nil
}

// FormatClock writes seconds as "HH:MM:SS", hours past 24 included.
func FormatClock(seconds int) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}

	return fmt.Sprintf("%s%02d:%02d:%02d", sign, seconds/3600, (seconds%3600)/60, seconds%60)
}
