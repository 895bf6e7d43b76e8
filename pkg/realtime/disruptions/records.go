package disruptions

import (
	"time"

	"github.com/travigo/disruptions/pkg/ctdf"
)

// DisruptionRecord is the ingestion form of a disruption, as carried by the
// queue, stored in the database and read from disruption files.
type DisruptionRecord struct {
	ID          string `json:"id" yaml:"id" bson:"_id" validate:"required"`
	Reference   string `json:"reference,omitempty" yaml:"reference" bson:"reference"`
	Contributor string `json:"contributor,omitempty" yaml:"contributor" bson:"contributor"`
	RTLevel     string `json:"rt_level,omitempty" yaml:"rt_level" bson:"rt_level" validate:"omitempty,oneof=Base Adapted RealTime base adapted realtime"`

	PublicationPeriod PeriodRecord `json:"publication_period" yaml:"publication_period" bson:"publication_period"`
	CreatedAt         time.Time    `json:"created_at" yaml:"created_at" bson:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at" yaml:"updated_at" bson:"updated_at"`

	Cause      *CauseRecord     `json:"cause,omitempty" yaml:"cause" bson:"cause,omitempty"`
	Tags       []TagRecord      `json:"tags,omitempty" yaml:"tags" bson:"tags,omitempty" validate:"dive"`
	Properties []PropertyRecord `json:"properties,omitempty" yaml:"properties" bson:"properties,omitempty"`
	Note       string           `json:"note,omitempty" yaml:"note" bson:"note,omitempty"`

	Impacts []ImpactRecord `json:"impacts" yaml:"impacts" bson:"impacts" validate:"dive"`
}

type PeriodRecord struct {
	Start time.Time  `json:"start" yaml:"start" bson:"start" validate:"required"`
	End   *time.Time `json:"end,omitempty" yaml:"end" bson:"end,omitempty"`
}

func (p PeriodRecord) TimePeriod() ctdf.TimePeriod {
	period := ctdf.TimePeriod{Begin: p.Start.UTC()}
	if p.End != nil {
		period.End = p.End.UTC()
	}
	return period
}

type CauseRecord struct {
	ID       string `json:"id" yaml:"id" bson:"id" validate:"required"`
	Wording  string `json:"wording" yaml:"wording" bson:"wording"`
	Category string `json:"category,omitempty" yaml:"category" bson:"category,omitempty"`
}

type TagRecord struct {
	ID   string `json:"id" yaml:"id" bson:"id" validate:"required"`
	Name string `json:"name" yaml:"name" bson:"name"`
}

type PropertyRecord struct {
	Key   string `json:"key" yaml:"key" bson:"key"`
	Type  string `json:"type" yaml:"type" bson:"type"`
	Value string `json:"value" yaml:"value" bson:"value"`
}

type ImpactRecord struct {
	ID        string    `json:"id" yaml:"id" bson:"id" validate:"required"`
	CompanyID string    `json:"company_id,omitempty" yaml:"company_id" bson:"company_id,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at" bson:"updated_at"`

	Severity           SeverityRecord   `json:"severity" yaml:"severity" bson:"severity"`
	ApplicationPeriods []PeriodRecord   `json:"application_periods" yaml:"application_periods" bson:"application_periods" validate:"min=1,dive"`
	InformedEntities   []EntityRecord   `json:"informed_entities" yaml:"informed_entities" bson:"informed_entities" validate:"dive"`
	Messages           []MessageRecord  `json:"messages,omitempty" yaml:"messages" bson:"messages,omitempty"`
	StopTimes          []StopTimeRecord `json:"stop_times,omitempty" yaml:"stop_times" bson:"stop_times,omitempty" validate:"dive"`
}

// SeverityRecord with no effect refers to a severity registered earlier.
type SeverityRecord struct {
	ID       string `json:"id" yaml:"id" bson:"id" validate:"required"`
	Wording  string `json:"wording,omitempty" yaml:"wording" bson:"wording,omitempty"`
	Effect   string `json:"effect,omitempty" yaml:"effect" bson:"effect,omitempty"`
	Priority int    `json:"priority,omitempty" yaml:"priority" bson:"priority,omitempty"`
	Color    string `json:"color,omitempty" yaml:"color" bson:"color,omitempty"`
}

const (
	EntityKindNetwork     = "network"
	EntityKindLine        = "line"
	EntityKindRoute       = "route"
	EntityKindStopArea    = "stop_area"
	EntityKindStopPoint   = "stop_point"
	EntityKindMetaVJ      = "meta_vehicle_journey"
	EntityKindLineSection = "line_section"
)

type EntityRecord struct {
	Kind        string             `json:"kind" yaml:"kind" bson:"kind" validate:"required"`
	URI         string             `json:"uri,omitempty" yaml:"uri" bson:"uri,omitempty"`
	LineSection *LineSectionRecord `json:"line_section,omitempty" yaml:"line_section" bson:"line_section,omitempty"`
}

type LineSectionRecord struct {
	LineURI          string   `json:"line_uri" yaml:"line_uri" bson:"line_uri"`
	StartStopAreaURI string   `json:"start_stop_area_uri" yaml:"start_stop_area_uri" bson:"start_stop_area_uri"`
	EndStopAreaURI   string   `json:"end_stop_area_uri" yaml:"end_stop_area_uri" bson:"end_stop_area_uri"`
	RouteURIs        []string `json:"route_uris,omitempty" yaml:"route_uris" bson:"route_uris,omitempty"`
}

type MessageRecord struct {
	Text    string        `json:"text" yaml:"text" bson:"text"`
	Channel ChannelRecord `json:"channel" yaml:"channel" bson:"channel"`
}

type ChannelRecord struct {
	ID          string   `json:"id" yaml:"id" bson:"id"`
	Name        string   `json:"name" yaml:"name" bson:"name"`
	ContentType string   `json:"content_type,omitempty" yaml:"content_type" bson:"content_type,omitempty"`
	Types       []string `json:"types,omitempty" yaml:"types" bson:"types,omitempty"`
}

// StopTimeRecord times are seconds after midnight of the trip's reference day.
type StopTimeRecord struct {
	StopURI         string `json:"stop_uri" yaml:"stop_uri" bson:"stop_uri" validate:"required"`
	Arrival         int    `json:"arrival" yaml:"arrival" bson:"arrival"`
	Departure       int    `json:"departure" yaml:"departure" bson:"departure"`
	PickUpAllowed   *bool  `json:"pick_up_allowed,omitempty" yaml:"pick_up_allowed" bson:"pick_up_allowed,omitempty"`
	DropOffAllowed  *bool  `json:"drop_off_allowed,omitempty" yaml:"drop_off_allowed" bson:"drop_off_allowed,omitempty"`
	Message         string `json:"message,omitempty" yaml:"message" bson:"message,omitempty"`
	ArrivalStatus   string `json:"arrival_status,omitempty" yaml:"arrival_status" bson:"arrival_status,omitempty"`
	DepartureStatus string `json:"departure_status,omitempty" yaml:"departure_status" bson:"departure_status,omitempty"`
}

// TripUpdateRecord is a live update of one trip on one reference day.
type TripUpdateRecord struct {
	ID                string    `json:"id" yaml:"id" bson:"_id" validate:"required"`
	Contributor       string    `json:"contributor,omitempty" yaml:"contributor" bson:"contributor"`
	VehicleJourneyURI string    `json:"vehicle_journey_uri" yaml:"vehicle_journey_uri" bson:"vehicle_journey_uri" validate:"required"`
	ReferenceDate     string    `json:"reference_date" yaml:"reference_date" bson:"reference_date" validate:"required,datetime=20060102"`
	Cancelled         bool      `json:"cancelled,omitempty" yaml:"cancelled" bson:"cancelled,omitempty"`
	CompanyID         string    `json:"company_id,omitempty" yaml:"company_id" bson:"company_id,omitempty"`
	Message           string    `json:"message,omitempty" yaml:"message" bson:"message,omitempty"`
	UpdatedAt         time.Time `json:"updated_at" yaml:"updated_at" bson:"updated_at"`

	StopTimes []TripUpdateStopRecord `json:"stop_times,omitempty" yaml:"stop_times" bson:"stop_times,omitempty" validate:"dive"`
}

type TripUpdateStopRecord struct {
	StopURI   string    `json:"stop_uri" yaml:"stop_uri" bson:"stop_uri" validate:"required"`
	Arrival   time.Time `json:"arrival" yaml:"arrival" bson:"arrival" validate:"required_unless=Skipped true"`
	Departure time.Time `json:"departure,omitempty" yaml:"departure" bson:"departure,omitempty"`
	Skipped   bool      `json:"skipped,omitempty" yaml:"skipped" bson:"skipped,omitempty"`
}
