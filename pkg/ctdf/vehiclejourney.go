package ctdf

import (
	"time"

	"github.com/jinzhu/copier"
)

// VehicleJourneyAttributes are the descriptive properties a derived vehicle
// journey inherits from the journey it was built from.
type VehicleJourneyAttributes struct {
	Headsign             string `groups:"basic"`
	JourneyType          string `groups:"detailed"`
	ODTMessage           string `groups:"detailed"`
	WheelchairAccessible bool   `groups:"detailed"`
	BikeAccepted         bool   `groups:"detailed"`
	AirConditioned       bool   `groups:"detailed"`
}

type VehicleJourney struct {
	Handle Handle `groups:"internal"`
	Idx    int    `groups:"basic"`

	URI           string  `groups:"basic"`
	Name          string  `groups:"basic"`
	RealtimeLevel RTLevel `groups:"basic"`

	ValidityPatterns [len(RTLevels)]ValidityPattern `groups:"internal"`
	// Shift is the number of days between the validity pattern bits and the
	// base day the stop times were planned for.
	Shift     int        `groups:"detailed"`
	StopTimes []StopTime `groups:"detailed"`

	Route        int    `groups:"internal"`
	MetaVJ       Handle `groups:"internal"`
	Company      int    `groups:"internal"`
	PhysicalMode int    `groups:"internal"`

	Attributes VehicleJourneyAttributes `groups:"detailed"`

	PrevVJ Handle `groups:"internal"`
	NextVJ Handle `groups:"internal"`
}

func (vj *VehicleJourney) VP(level RTLevel) ValidityPattern {
	return vj.ValidityPatterns[level]
}

func (vj *VehicleJourney) SetVP(level RTLevel, vp ValidityPattern) {
	vj.ValidityPatterns[level] = vp
}

// Empty reports whether the journey runs on no day at any level.
func (vj *VehicleJourney) Empty() bool {
	for _, level := range RTLevels {
		if vj.ValidityPatterns[level].Any() {
			return false
		}
	}

	return true
}

func (vj *VehicleJourney) IsBase() bool {
	return vj.RealtimeLevel == RTLevelBase
}

// FirstDeparture and LastArrival bound the journey on its own time frame,
// ignoring stop times where nobody can board or alight.
func (vj *VehicleJourney) FirstDeparture() int {
	first := -1
	for _, st := range vj.StopTimes {
		if st.PickUpAllowed && (first < 0 || st.DepartureTime < first) {
			first = st.DepartureTime
		}
	}
	if first < 0 && len(vj.StopTimes) > 0 {
		first = vj.StopTimes[0].DepartureTime
	}

	return first
}

func (vj *VehicleJourney) LastArrival() int {
	last := -1
	for _, st := range vj.StopTimes {
		if st.DropOffAllowed && st.ArrivalTime > last {
			last = st.ArrivalTime
		}
	}
	if last < 0 && len(vj.StopTimes) > 0 {
		last = vj.StopTimes[len(vj.StopTimes)-1].ArrivalTime
	}

	return last
}

// ExecutionPeriod is the time span the journey runs on validity pattern day.
func (vj *VehicleJourney) ExecutionPeriod(day int, production DatePeriod) (time.Time, time.Time) {
	date := production.Begin.AddDate(0, 0, day)

	return date.Add(time.Duration(vj.FirstDeparture()) * time.Second),
		date.Add(time.Duration(vj.LastArrival()) * time.Second)
}

// CopyAttributesFrom copies the descriptive properties, company and block
// linkage of other onto vj.
func (vj *VehicleJourney) CopyAttributesFrom(other *VehicleJourney) error {
	vj.Company = other.Company
	vj.PrevVJ = other.PrevVJ
	vj.NextVJ = other.NextVJ

	return copier.CopyWithOption(&vj.Attributes, &other.Attributes, copier.Option{DeepCopy: true})
}

func (vj VehicleJourney) clone() *VehicleJourney {
	vj.StopTimes = append([]StopTime(nil), vj.StopTimes...)
	return &vj
}

type MetaVehicleJourney struct {
	Handle Handle `groups:"internal"`
	URI    string `groups:"basic"`

	VehicleJourneys [len(RTLevels)][]Handle `groups:"internal"`

	// ModifiedBy lists the impacts currently altering the journeys.
	ModifiedBy ImpactRefs `groups:"internal"`
	// Impacts lists the impacts informing this journey, for display.
	Impacts ImpactRefs `groups:"internal"`
}

func (mvj MetaVehicleJourney) clone() *MetaVehicleJourney {
	for level := range mvj.VehicleJourneys {
		mvj.VehicleJourneys[level] = append([]Handle(nil), mvj.VehicleJourneys[level]...)
	}
	mvj.ModifiedBy = mvj.ModifiedBy.clone()
	mvj.Impacts = mvj.Impacts.clone()
	return &mvj
}

// PushUniqueImpact records impact as modifying the journey and reports
// whether it was not already there.
func (mvj *MetaVehicleJourney) PushUniqueImpact(impact *Impact) bool {
	return mvj.ModifiedBy.Add(impact.Handle)
}

func (mvj *MetaVehicleJourney) IsModifiedBy(impact *Impact) bool {
	return mvj.ModifiedBy.Contains(impact.Handle)
}
