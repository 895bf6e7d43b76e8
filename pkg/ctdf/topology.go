package ctdf

type Network struct {
	Idx  int    `groups:"internal"`
	URI  string `groups:"basic"`
	Name string `groups:"basic"`

	Lines   []int      `groups:"internal"`
	Impacts ImpactRefs `groups:"internal"`
}

type Line struct {
	Idx            int    `groups:"internal"`
	URI            string `groups:"basic"`
	Name           string `groups:"basic"`
	Code           string `groups:"basic"`
	CommercialMode string `groups:"detailed"`

	Network int        `groups:"internal"`
	Routes  []int      `groups:"internal"`
	Impacts ImpactRefs `groups:"internal"`
}

type Route struct {
	Idx       int    `groups:"internal"`
	URI       string `groups:"basic"`
	Name      string `groups:"basic"`
	Direction string `groups:"detailed"`

	Line            int        `groups:"internal"`
	VehicleJourneys []Handle   `groups:"internal"`
	Impacts         ImpactRefs `groups:"internal"`
}

type StopArea struct {
	Idx  int    `groups:"internal"`
	URI  string `groups:"basic"`
	Name string `groups:"basic"`

	StopPoints []int      `groups:"internal"`
	Impacts    ImpactRefs `groups:"internal"`
}

type StopPoint struct {
	Idx  int    `groups:"internal"`
	URI  string `groups:"basic"`
	Name string `groups:"basic"`

	StopArea int        `groups:"internal"`
	Impacts  ImpactRefs `groups:"internal"`
}

type Company struct {
	Idx  int    `groups:"internal"`
	URI  string `groups:"basic"`
	Name string `groups:"basic"`
}

type PhysicalMode struct {
	Idx  int    `groups:"internal"`
	URI  string `groups:"basic"`
	Name string `groups:"basic"`
}

func (n Network) clone() *Network {
	n.Lines = append([]int(nil), n.Lines...)
	n.Impacts = n.Impacts.clone()
	return &n
}

func (l Line) clone() *Line {
	l.Routes = append([]int(nil), l.Routes...)
	l.Impacts = l.Impacts.clone()
	return &l
}

func (r Route) clone() *Route {
	r.VehicleJourneys = append([]Handle(nil), r.VehicleJourneys...)
	r.Impacts = r.Impacts.clone()
	return &r
}

func (s StopArea) clone() *StopArea {
	s.StopPoints = append([]int(nil), s.StopPoints...)
	s.Impacts = s.Impacts.clone()
	return &s
}

func (s StopPoint) clone() *StopPoint {
	s.Impacts = s.Impacts.clone()
	return &s
}
