package ctdf

import "fmt"

const SecondsPerDay = 86400

type RTLevel int

const (
	RTLevelBase RTLevel = iota
	RTLevelAdapted
	RTLevelRealTime
)

// RTLevels lists every level from Base to RealTime.
var RTLevels = [...]RTLevel{RTLevelBase, RTLevelAdapted, RTLevelRealTime}

func (l RTLevel) String() string {
	switch l {
	case RTLevelBase:
		return "Base"
	case RTLevelAdapted:
		return "Adapted"
	case RTLevelRealTime:
		return "RealTime"
	default:
		return fmt.Sprintf("RTLevel(%d)", int(l))
	}
}

func ParseRTLevel(s string) (RTLevel, error) {
	switch s {
	case "Base", "base":
		return RTLevelBase, nil
	case "Adapted", "adapted":
		return RTLevelAdapted, nil
	case "RealTime", "realtime", "real_time":
		return RTLevelRealTime, nil
	default:
		return RTLevelBase, fmt.Errorf("unknown realtime level %q", s)
	}
}

func (l RTLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *RTLevel) UnmarshalText(text []byte) error {
	level, err := ParseRTLevel(string(text))
	if err != nil {
		return err
	}
	*l = level

	return nil
}
