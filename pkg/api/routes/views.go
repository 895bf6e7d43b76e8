package routes

import (
	"time"

	"github.com/jinzhu/copier"
	"github.com/travigo/disruptions/pkg/ctdf"
)

type objectView struct {
	Type string `groups:"basic"`
	URI  string `groups:"basic"`
	Name string `groups:"basic"`

	StartStopArea string   `groups:"detailed"`
	EndStopArea   string   `groups:"detailed"`
	Routes        []string `groups:"detailed"`
}

type stopTimeView struct {
	StopPoint     string `groups:"basic"`
	StopPointName string `groups:"basic"`
	Arrival       string `groups:"basic"`
	Departure     string `groups:"basic"`

	PickUpAllowed  bool `groups:"detailed"`
	DropOffAllowed bool `groups:"detailed"`

	ArrivalStatus   ctdf.StopTimeStatus `groups:"detailed"`
	DepartureStatus ctdf.StopTimeStatus `groups:"detailed"`
	Message         string              `groups:"detailed"`
}

type impactView struct {
	URI           string            `groups:"basic"`
	DisruptionURI string            `groups:"basic" copier:"-"`
	Status        ctdf.ImpactStatus `groups:"basic" copier:"-"`
	Effect        ctdf.Effect       `groups:"basic" copier:"-"`

	Severity           *ctdf.Severity    `groups:"basic"`
	ApplicationPeriods []ctdf.TimePeriod `groups:"basic"`
	Messages           []ctdf.Message    `groups:"basic"`
	Objects            []objectView      `groups:"basic" copier:"-"`

	CompanyID string         `groups:"detailed"`
	CreatedAt time.Time      `groups:"detailed"`
	UpdatedAt time.Time      `groups:"detailed"`
	StopTimes []stopTimeView `groups:"detailed" copier:"-"`
}

type disruptionView struct {
	URI         string       `groups:"basic"`
	Reference   string       `groups:"basic"`
	Contributor string       `groups:"basic"`
	RTLevel     ctdf.RTLevel `groups:"basic"`

	PublicationPeriod ctdf.TimePeriod `groups:"basic"`
	Cause             *ctdf.Cause     `groups:"basic"`
	Tags              []*ctdf.Tag     `groups:"basic"`
	Impacts           []impactView    `groups:"basic" copier:"-"`

	CreatedAt  time.Time       `groups:"detailed"`
	UpdatedAt  time.Time       `groups:"detailed"`
	Properties []ctdf.Property `groups:"detailed"`
	Note       string          `groups:"detailed"`
}

type vehicleJourneyView struct {
	URI           string       `groups:"basic"`
	Name          string       `groups:"basic"`
	RealtimeLevel ctdf.RTLevel `groups:"basic"`
	MetaVJ        string       `groups:"basic"`
	Line          string       `groups:"basic"`
	Route         string       `groups:"basic"`

	// ValidityPatterns are keyed by realtime level, day 0 rightmost.
	ValidityPatterns map[string]string `groups:"basic"`

	Company      string                        `groups:"detailed"`
	PhysicalMode string                        `groups:"detailed"`
	Shift        int                           `groups:"detailed"`
	Attributes   ctdf.VehicleJourneyAttributes `groups:"detailed"`
	StopTimes    []stopTimeView                `groups:"detailed"`
	Impacts      []impactView                  `groups:"detailed"`
}

func newImpactView(pt *ctdf.PTData, impact *ctdf.Impact, now time.Time) (impactView, error) {
	var view impactView
	if err := copier.CopyWithOption(&view, impact, copier.Option{DeepCopy: true}); err != nil {
		return view, err
	}

	if impact.Disruption != nil {
		view.DisruptionURI = impact.Disruption.URI
	}
	view.Status = impact.Status(now)
	view.Effect = impact.Effect()

	describer := &objectDescriber{pt: pt}
	for _, entity := range impact.InformedEntities {
		entity.Accept(describer)
	}
	view.Objects = describer.objects

	for _, update := range impact.StopTimeUpdates {
		stopTime := newStopTimeView(pt, update.StopTime)
		stopTime.ArrivalStatus = update.ArrivalStatus
		stopTime.DepartureStatus = update.DepartureStatus
		stopTime.Message = update.Message
		view.StopTimes = append(view.StopTimes, stopTime)
	}

	return view, nil
}

func newDisruptionView(pt *ctdf.PTData, disruption *ctdf.Disruption, impacts []*ctdf.Impact, now time.Time) (disruptionView, error) {
	var view disruptionView
	if err := copier.CopyWithOption(&view, disruption, copier.Option{DeepCopy: true}); err != nil {
		return view, err
	}

	for _, impact := range impacts {
		impactView, err := newImpactView(pt, impact, now)
		if err != nil {
			return view, err
		}
		view.Impacts = append(view.Impacts, impactView)
	}

	return view, nil
}

func newStopTimeView(pt *ctdf.PTData, stopTime ctdf.StopTime) stopTimeView {
	view := stopTimeView{
		Arrival:        ctdf.FormatClock(stopTime.ArrivalTime),
		Departure:      ctdf.FormatClock(stopTime.DepartureTime),
		PickUpAllowed:  stopTime.PickUpAllowed,
		DropOffAllowed: stopTime.DropOffAllowed,
	}
	if stopTime.StopPoint >= 0 && stopTime.StopPoint < len(pt.StopPoints) {
		view.StopPoint = pt.StopPoints[stopTime.StopPoint].URI
		view.StopPointName = pt.StopPoints[stopTime.StopPoint].Name
	}

	return view
}

func newVehicleJourneyView(pt *ctdf.PTData, vj *ctdf.VehicleJourney) vehicleJourneyView {
	view := vehicleJourneyView{
		URI:              vj.URI,
		Name:             vj.Name,
		RealtimeLevel:    vj.RealtimeLevel,
		Shift:            vj.Shift,
		Attributes:       vj.Attributes,
		ValidityPatterns: map[string]string{},
	}

	for _, level := range ctdf.RTLevels {
		view.ValidityPatterns[level.String()] = vj.VP(level).String()
	}
	if mvj, ok := pt.MetaVJ(vj.MetaVJ); ok {
		view.MetaVJ = mvj.URI
	}
	if vj.Route >= 0 {
		route := pt.Routes[vj.Route]
		view.Route = route.URI
		view.Line = pt.Lines[route.Line].URI
	}
	if vj.Company >= 0 {
		view.Company = pt.Companies[vj.Company].Name
	}
	if vj.PhysicalMode >= 0 {
		view.PhysicalMode = pt.PhysicalModes[vj.PhysicalMode].Name
	}
	for _, stopTime := range vj.StopTimes {
		view.StopTimes = append(view.StopTimes, newStopTimeView(pt, stopTime))
	}

	return view
}

// objectDescriber turns informed entities back into their public identifiers.
type objectDescriber struct {
	pt      *ctdf.PTData
	objects []objectView
}

func (d *objectDescriber) add(kind string, uri string, name string) {
	d.objects = append(d.objects, objectView{Type: kind, URI: uri, Name: name})
}

func (d *objectDescriber) VisitNetwork(e ctdf.NetworkEntity) {
	network := d.pt.Networks[e.Network]
	d.add("network", network.URI, network.Name)
}

func (d *objectDescriber) VisitLine(e ctdf.LineEntity) {
	line := d.pt.Lines[e.Line]
	d.add("line", line.URI, line.Name)
}

func (d *objectDescriber) VisitRoute(e ctdf.RouteEntity) {
	route := d.pt.Routes[e.Route]
	d.add("route", route.URI, route.Name)
}

func (d *objectDescriber) VisitStopArea(e ctdf.StopAreaEntity) {
	stopArea := d.pt.StopAreas[e.StopArea]
	d.add("stop_area", stopArea.URI, stopArea.Name)
}

func (d *objectDescriber) VisitStopPoint(e ctdf.StopPointEntity) {
	stopPoint := d.pt.StopPoints[e.StopPoint]
	d.add("stop_point", stopPoint.URI, stopPoint.Name)
}

func (d *objectDescriber) VisitMetaVJ(e ctdf.MetaVJEntity) {
	if mvj, ok := d.pt.MetaVJ(e.MetaVJ); ok {
		d.add("meta_vehicle_journey", mvj.URI, mvj.URI)
	}
}

func (d *objectDescriber) VisitLineSection(e ctdf.LineSectionEntity) {
	line := d.pt.Lines[e.Line]
	object := objectView{
		Type:          "line_section",
		URI:           line.URI,
		Name:          line.Name,
		StartStopArea: d.pt.StopAreas[e.StartArea].URI,
		EndStopArea:   d.pt.StopAreas[e.EndArea].URI,
	}
	for _, route := range e.Routes {
		object.Routes = append(object.Routes, d.pt.Routes[route].URI)
	}
	d.objects = append(d.objects, object)
}

func (d *objectDescriber) VisitUnknown(ctdf.UnknownEntity) {}
