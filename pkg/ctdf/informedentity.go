package ctdf

// InformedEntity is the target of an impact. The set of kinds is closed:
// every implementation dispatches to exactly one EntityVisitor method, so a
// visitor that misses a kind does not compile.
type InformedEntity interface {
	Accept(v EntityVisitor)
}

type EntityVisitor interface {
	VisitNetwork(e NetworkEntity)
	VisitLine(e LineEntity)
	VisitRoute(e RouteEntity)
	VisitStopArea(e StopAreaEntity)
	VisitStopPoint(e StopPointEntity)
	VisitMetaVJ(e MetaVJEntity)
	VisitLineSection(e LineSectionEntity)
	VisitUnknown(e UnknownEntity)
}

type NetworkEntity struct{ Network int }

type LineEntity struct{ Line int }

type RouteEntity struct{ Route int }

type StopAreaEntity struct{ StopArea int }

type StopPointEntity struct{ StopPoint int }

type MetaVJEntity struct{ MetaVJ Handle }

// LineSectionEntity targets the stops of a line between two stop areas.
// An empty Routes list means every route of the line.
type LineSectionEntity struct {
	Line      int
	StartArea int
	EndArea   int
	Routes    []int
}

// UnknownEntity is what an unresolved descriptor becomes. It is ignored.
type UnknownEntity struct {
	Kind string
	URI  string
}

func (e NetworkEntity) Accept(v EntityVisitor)     { v.VisitNetwork(e) }
func (e LineEntity) Accept(v EntityVisitor)        { v.VisitLine(e) }
func (e RouteEntity) Accept(v EntityVisitor)       { v.VisitRoute(e) }
func (e StopAreaEntity) Accept(v EntityVisitor)    { v.VisitStopArea(e) }
func (e StopPointEntity) Accept(v EntityVisitor)   { v.VisitStopPoint(e) }
func (e MetaVJEntity) Accept(v EntityVisitor)      { v.VisitMetaVJ(e) }
func (e LineSectionEntity) Accept(v EntityVisitor) { v.VisitLineSection(e) }
func (e UnknownEntity) Accept(v EntityVisitor)     { v.VisitUnknown(e) }
