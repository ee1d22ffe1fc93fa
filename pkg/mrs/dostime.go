package mrs

import "time"

// DosTime is a modification timestamp in the packed DOS convention used by
// the header records: a 16-bit time word and a 16-bit date word. The time
// word stores seconds at 2-second resolution, so round-trips through DosTime
// lose the low bit of the seconds value.
type DosTime struct {
	Time uint16
	Date uint16
}

// NewDosTime packs t (interpreted in its own location) into DOS time words.
func NewDosTime(t time.Time) DosTime {
	return DosTime{
		Time: uint16(t.Second()/2) | uint16(t.Minute())<<5 | uint16(t.Hour())<<11,
		Date: uint16(t.Day()) | uint16(t.Month())<<5 | uint16(t.Year()-1980)<<9,
	}
}

// Value unpacks the DOS words into a local wall-clock time. Seconds come
// back rounded down to the nearest even second; all other components are
// exact.
func (d DosTime) Value() time.Time {
	return time.Date(
		int(d.Date>>9&0x7F)+1980,
		time.Month(d.Date>>5&0x0F),
		int(d.Date&0x1F),
		int(d.Time>>11&0x1F),
		int(d.Time>>5&0x3F),
		int(d.Time&0x1F)*2,
		0, time.Local,
	)
}
