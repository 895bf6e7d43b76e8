package ctdf

import (
	"time"

	"golang.org/x/exp/slices"
)

type Effect string

const (
	EffectNoService         Effect = "NO_SERVICE"
	EffectReducedService    Effect = "REDUCED_SERVICE"
	EffectSignificantDelays Effect = "SIGNIFICANT_DELAYS"
	EffectDetour            Effect = "DETOUR"
	EffectAdditionalService Effect = "ADDITIONAL_SERVICE"
	EffectModifiedService   Effect = "MODIFIED_SERVICE"
	EffectOtherEffect       Effect = "OTHER_EFFECT"
	EffectUnknownEffect     Effect = "UNKNOWN_EFFECT"
	EffectStopMoved         Effect = "STOP_MOVED"
)

// Modifying reports whether an impact with this effect alters the schedule.
func (e Effect) Modifying() bool {
	switch e {
	case EffectNoService, EffectSignificantDelays, EffectModifiedService, EffectReducedService, EffectDetour:
		return true
	default:
		return false
	}
}

// NeedsStopTimes reports whether the effect only applies with replacement stop times.
func (e Effect) NeedsStopTimes() bool {
	switch e {
	case EffectSignificantDelays, EffectModifiedService, EffectReducedService, EffectDetour:
		return true
	default:
		return false
	}
}

type Severity struct {
	ID       string `groups:"basic"`
	Wording  string `groups:"basic"`
	Color    string `groups:"basic"`
	Priority int    `groups:"basic"`
	Effect   Effect `groups:"basic"`

	CreatedAt time.Time `groups:"detailed"`
	UpdatedAt time.Time `groups:"detailed"`
}

type Cause struct {
	ID       string `groups:"basic"`
	Wording  string `groups:"basic"`
	Category string `groups:"detailed"`
}

type Tag struct {
	ID   string `groups:"basic"`
	Name string `groups:"basic"`
}

type Channel struct {
	ID          string   `groups:"basic"`
	Name        string   `groups:"basic"`
	ContentType string   `groups:"detailed"`
	Types       []string `groups:"detailed"`
}

type Message struct {
	Text    string  `groups:"basic"`
	Channel Channel `groups:"basic"`
}

type Property struct {
	Key   string `groups:"basic"`
	Type  string `groups:"basic"`
	Value string `groups:"basic"`
}

type StopTimeStatus string

const (
	StopTimeStatusUnchanged StopTimeStatus = "unchanged"
	StopTimeStatusAdded     StopTimeStatus = "added"
	StopTimeStatusDeleted   StopTimeStatus = "deleted"
	StopTimeStatusDelayed   StopTimeStatus = "delayed"
)

// StopTimeUpdate is one replacement stop time carried by a delay or detour impact.
// Times are seconds relative to the midnight of the trip's reference day.
type StopTimeUpdate struct {
	StopTime StopTime `groups:"basic"`

	Message         string         `groups:"detailed"`
	ArrivalStatus   StopTimeStatus `groups:"detailed"`
	DepartureStatus StopTimeStatus `groups:"detailed"`
}

func (u StopTimeUpdate) Deleted() bool {
	return u.ArrivalStatus == StopTimeStatusDeleted && u.DepartureStatus == StopTimeStatusDeleted
}

type Impact struct {
	Handle Handle `groups:"internal"`

	URI       string    `groups:"basic"`
	CompanyID string    `groups:"detailed"`
	CreatedAt time.Time `groups:"detailed"`
	UpdatedAt time.Time `groups:"detailed"`

	ApplicationPeriods []TimePeriod `groups:"basic"`
	Severity           *Severity    `groups:"basic"`
	Messages           []Message    `groups:"basic"`

	StopTimeUpdates []StopTimeUpdate `groups:"detailed"`

	InformedEntities []InformedEntity `groups:"internal"`

	Disruption *Disruption `groups:"internal"`
}

func (i *Impact) Effect() Effect {
	if i.Severity == nil {
		return EffectUnknownEffect
	}

	return i.Severity.Effect
}

// StopTimes returns the replacement stop times that still serve their stop.
func (i *Impact) StopTimes() []StopTime {
	stopTimes := make([]StopTime, 0, len(i.StopTimeUpdates))
	for _, update := range i.StopTimeUpdates {
		if update.Deleted() {
			continue
		}
		stopTimes = append(stopTimes, update.StopTime)
	}

	return stopTimes
}

type ImpactStatus string

const (
	ImpactStatusActive ImpactStatus = "active"
	ImpactStatusFuture ImpactStatus = "future"
	ImpactStatusPast   ImpactStatus = "past"
)

func (i *Impact) Status(now time.Time) ImpactStatus {
	future := false
	for _, period := range i.ApplicationPeriods {
		if period.Contains(now) {
			return ImpactStatusActive
		}
		if period.Begin.After(now) {
			future = true
		}
	}
	if future {
		return ImpactStatusFuture
	}

	return ImpactStatusPast
}

// ActiveDuring reports whether an application period intersects [begin, end].
func (i *Impact) ActiveDuring(begin, end time.Time) bool {
	for _, period := range i.ApplicationPeriods {
		if period.Intersects(begin, end) {
			return true
		}
	}

	return false
}

// ApplicationDays sets in a copy of template every day touched by an
// application period, from the begin date to the date of the last instant.
func (i *Impact) ApplicationDays(template ValidityPattern) ValidityPattern {
	vp := NewValidityPattern(template.Beginning, template.Length)
	for _, period := range i.ApplicationPeriods {
		first := vp.DayOf(period.Begin)
		last := vp.Length - 1
		if !period.OpenEnded() {
			last = vp.DayOf(period.End.Add(-time.Second))
		}
		if first < 0 {
			first = 0
		}
		for day := first; day <= last && day < vp.Length; day++ {
			vp.Add(day)
		}
	}

	return vp
}

type Disruption struct {
	URI         string  `groups:"basic"`
	Reference   string  `groups:"basic"`
	Contributor string  `groups:"basic"`
	RTLevel     RTLevel `groups:"basic"`

	PublicationPeriod TimePeriod `groups:"basic"`
	CreatedAt         time.Time  `groups:"detailed"`
	UpdatedAt         time.Time  `groups:"detailed"`

	Cause      *Cause     `groups:"basic"`
	Tags       []*Tag     `groups:"basic"`
	Properties []Property `groups:"detailed"`
	Note       string     `groups:"detailed"`

	Impacts []*Impact `groups:"basic"`
}

// AddImpact takes ownership of impact and registers it with the holder.
func (d *Disruption) AddImpact(impact *Impact, holder *DisruptionHolder) *Impact {
	impact.Disruption = d
	impact.Handle = holder.impacts.Insert(impact)
	holder.weakImpacts = append(holder.weakImpacts, impact.Handle)
	d.Impacts = append(d.Impacts, impact)

	return impact
}

func (d *Disruption) ImpactByURI(uri string) *Impact {
	index := slices.IndexFunc(d.Impacts, func(i *Impact) bool { return i.URI == uri })
	if index < 0 {
		return nil
	}

	return d.Impacts[index]
}
