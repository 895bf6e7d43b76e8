package gtfs

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/travigo/disruptions/pkg/ctdf"
)

type Schedule struct {
	Agencies      []Agency
	Stops         []Stop
	Routes        []Route
	Trips         []Trip
	StopTimes     []StopTime
	Calendars     []Calendar
	CalendarDates []CalendarDate
}

func (gtfs *Schedule) ParseFile(reader io.Reader) error {
	// Allow us to ignore those naughty records that have missing columns
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.FieldsPerRecord = -1
		return r
	})

	fileMap := map[string]interface{}{
		"agency.txt":         &gtfs.Agencies,
		"stops.txt":          &gtfs.Stops,
		"routes.txt":         &gtfs.Routes,
		"trips.txt":          &gtfs.Trips,
		"stop_times.txt":     &gtfs.StopTimes,
		"calendar.txt":       &gtfs.Calendars,
		"calendar_dates.txt": &gtfs.CalendarDates,
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	archive, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return err
	}

	for _, zipFile := range archive.File {
		destination, exists := fileMap[zipFile.Name]
		if !exists {
			log.Debug().Str("file", zipFile.Name).Msg("Skipping gtfs file")
			continue
		}

		log.Info().Str("file", zipFile.Name).Msg("Loading file")

		if err := unmarshalZipFile(zipFile, destination); err != nil {
			log.Error().Str("file", zipFile.Name).Err(err).Msg("Failed to parse csv file")
			return err
		}
	}

	return nil
}

func unmarshalZipFile(zipFile *zip.File, destination interface{}) error {
	fileReader, err := zipFile.Open()
	if err != nil {
		return err
	}
	defer fileReader.Close()

	return gocsv.Unmarshal(fileReader, destination)
}

// Build converts the parsed feed into a base schedule covering production.
func (gtfs *Schedule) Build(production ctdf.DatePeriod) (*ctdf.Data, error) {
	builder := ctdf.NewBuilder(production.Begin, production.Days)

	for _, agency := range gtfs.Agencies {
		network := builder.Network(agencyURI(agency.ID))
		network.Name = agency.Name
		company := builder.Company(agencyURI(agency.ID))
		company.Name = agency.Name
	}

	// Stations first so their platforms can join them
	for _, stop := range gtfs.Stops {
		if stop.IsStation() {
			builder.StopArea(stop.ID).Name = stop.Name
		}
	}
	for _, stop := range gtfs.Stops {
		if !stop.IsStopPoint() {
			continue
		}
		stopPoint := builder.StopPoint(stop.ID, stop.Parent)
		stopPoint.Name = stop.Name
		if stop.Parent == "" {
			builder.StopArea(stop.ID).Name = stop.Name
		}
	}

	routes := map[string]Route{}
	for _, route := range gtfs.Routes {
		routes[route.ID] = route

		line := builder.Line(route.ID, agencyURI(route.AgencyID))
		line.Name = route.LongName
		if line.Name == "" {
			line.Name = route.ShortName
		}
		if route.ShortName != "" {
			line.Code = route.ShortName
		}
		line.CommercialMode = physicalMode(route.Type)
	}

	patterns := gtfs.servicePatterns(builder.Data().EmptyVP())

	stopTimes := map[string][]StopTime{}
	for _, stopTime := range gtfs.StopTimes {
		stopTimes[stopTime.TripID] = append(stopTimes[stopTime.TripID], stopTime)
	}

	type blockKey struct {
		block   string
		service string
	}
	blocks := map[blockKey][]*ctdf.VehicleJourney{}

	var skipped int
	for _, trip := range gtfs.Trips {
		route, exists := routes[trip.RouteID]
		if !exists {
			log.Debug().Str("trip", trip.ID).Str("route", trip.RouteID).Msg("Trip references unknown route")
			skipped++
			continue
		}

		vp, exists := patterns[trip.ServiceID]
		if !exists || vp.None() {
			skipped++
			continue
		}

		tripStops := stopTimes[trip.ID]
		if len(tripStops) == 0 {
			skipped++
			continue
		}
		sort.Slice(tripStops, func(i, j int) bool {
			return tripStops[i].StopSequence < tripStops[j].StopSequence
		})

		vjBuilder := builder.VJ(route.ID, "").
			URI(trip.ID).
			MetaVJ(trip.ID).
			Route(fmt.Sprintf("%s:%d", route.ID, trip.Direction())).
			Pattern(vp).
			PhysicalMode(physicalMode(route.Type)).
			Attributes(ctdf.VehicleJourneyAttributes{
				Headsign:             trip.Headsign,
				WheelchairAccessible: trip.WheelchairAccessible == accessibilityAllowed,
				BikeAccepted:         trip.BikesAllowed == accessibilityAllowed,
			})
		if trip.Name != "" {
			vjBuilder.Name(trip.Name)
		}
		if route.AgencyID != "" {
			vjBuilder.Company(agencyURI(route.AgencyID))
		}

		valid := true
		for _, stopTime := range tripStops {
			arrival, departure, err := stopTime.clocks()
			if err != nil {
				log.Debug().Err(err).Str("trip", trip.ID).Msg("Trip has an unusable stop time")
				valid = false
				break
			}
			vjBuilder.StSeconds(stopTime.StopID, arrival, departure, departure, arrival).
				Boarding(stopTime.PickUpAllowed(), stopTime.DropOffAllowed())
		}
		if !valid {
			skipped++
			continue
		}

		vj := vjBuilder.Make()
		if trip.BlockID != "" {
			key := blockKey{block: trip.BlockID, service: trip.ServiceID}
			blocks[key] = append(blocks[key], vj)
		}
	}

	for _, journeys := range blocks {
		sort.Slice(journeys, func(i, j int) bool {
			return journeys[i].FirstDeparture() < journeys[j].FirstDeparture()
		})
		for i := 1; i < len(journeys); i++ {
			builder.Block(journeys[i-1], journeys[i])
		}
	}

	data := builder.Finish()

	log.Info().
		Int("vehiclejourneys", len(data.PT.VehicleJourneys)).
		Int("lines", len(data.PT.Lines)).
		Int("stoppoints", len(data.PT.StopPoints)).
		Int("skipped", skipped).
		Msg("Built base schedule")

	return data, nil
}

// servicePatterns resolves every service id to the production days it runs.
func (gtfs *Schedule) servicePatterns(empty ctdf.ValidityPattern) map[string]ctdf.ValidityPattern {
	patterns := map[string]ctdf.ValidityPattern{}

	for _, calendar := range gtfs.Calendars {
		vp := empty
		start, startErr := time.Parse(dateLayout, calendar.Start)
		end, endErr := time.Parse(dateLayout, calendar.End)
		if startErr != nil || endErr != nil {
			log.Debug().Str("service", calendar.ServiceID).Msg("Calendar has invalid dates")
			patterns[calendar.ServiceID] = vp
			continue
		}

		for day := 0; day < vp.Length; day++ {
			date := vp.Date(day)
			if date.Before(start) || date.After(end) {
				continue
			}
			if calendar.RunsOn(date.Weekday()) {
				vp.Add(day)
			}
		}
		patterns[calendar.ServiceID] = vp
	}

	for _, calendarDate := range gtfs.CalendarDates {
		date, err := time.Parse(dateLayout, calendarDate.Date)
		if err != nil {
			continue
		}

		vp, exists := patterns[calendarDate.ServiceID]
		if !exists {
			vp = empty
		}
		switch calendarDate.ExceptionType {
		case serviceAdded:
			vp.AddDate(date)
		case serviceRemoved:
			vp.Remove(vp.DayOf(date))
		}
		patterns[calendarDate.ServiceID] = vp
	}

	return patterns
}

const dateLayout = "20060102"

func agencyURI(id string) string {
	if id == "" {
		return "base_network"
	}
	return id
}

func physicalMode(routeType int) string {
	switch routeType {
	case 0, 900:
		return "Tramway"
	case 1, 401:
		return "Metro"
	case 2, 100, 101, 102, 103, 106:
		return "Train"
	case 3, 700, 702, 704:
		return "Bus"
	case 4, 1000, 1200:
		return "Ferry"
	case 5:
		return "CableCar"
	case 6, 1300:
		return "SuspendedCableCar"
	case 7, 1400:
		return "Funicular"
	case 11, 800:
		return "Trolleybus"
	case 12, 405:
		return "Monorail"
	default:
		return "Bus"
	}
}
