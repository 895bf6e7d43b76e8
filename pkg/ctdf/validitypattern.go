package ctdf

import (
	"math/bits"
	"strings"
	"time"
)

// MaxValidityDays is the largest production period a ValidityPattern can hold.
const MaxValidityDays = 512

const validityWords = MaxValidityDays / 64

// ValidityPattern is a per-day bitset anchored to the production period start.
// It is a plain value: assigning a pattern copies it.
type ValidityPattern struct {
	Beginning time.Time
	Length    int

	days [validityWords]uint64
}

func NewValidityPattern(beginning time.Time, length int) ValidityPattern {
	if length > MaxValidityDays {
		length = MaxValidityDays
	}
	if length < 0 {
		length = 0
	}

	return ValidityPattern{Beginning: beginning, Length: length}
}

// ParseValidityPattern reads a pattern written with day 0 as the rightmost
// character, the same layout String produces.
func ParseValidityPattern(beginning time.Time, length int, pattern string) ValidityPattern {
	vp := NewValidityPattern(beginning, length)
	for i := 0; i < len(pattern); i++ {
		if pattern[len(pattern)-1-i] == '1' {
			vp.Add(i)
		}
	}

	return vp
}

func (vp ValidityPattern) inRange(day int) bool {
	return day >= 0 && day < vp.Length
}

func (vp ValidityPattern) Check(day int) bool {
	if !vp.inRange(day) {
		return false
	}

	return vp.days[day/64]&(1<<(uint(day)%64)) != 0
}

func (vp *ValidityPattern) Add(day int) {
	if !vp.inRange(day) {
		return
	}

	vp.days[day/64] |= 1 << (uint(day) % 64)
}

func (vp *ValidityPattern) Remove(day int) {
	if !vp.inRange(day) {
		return
	}

	vp.days[day/64] &^= 1 << (uint(day) % 64)
}

// AddDate sets the day of the given date. Dates outside the period are ignored.
func (vp *ValidityPattern) AddDate(date time.Time) {
	vp.Add(vp.DayOf(date))
}

// DayOf returns the day index of date, which may be out of range.
func (vp ValidityPattern) DayOf(date time.Time) int {
	date = date.UTC()
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	diff := day.Sub(vp.Beginning)
	if diff < 0 {
		return -1 - int((-diff-1)/(24*time.Hour))
	}

	return int(diff / (24 * time.Hour))
}

func (vp ValidityPattern) Date(day int) time.Time {
	return vp.Beginning.AddDate(0, 0, day)
}

func (vp *ValidityPattern) trim() {
	for w := 0; w < validityWords; w++ {
		low := w * 64
		switch {
		case low >= vp.Length:
			vp.days[w] = 0
		case low+64 > vp.Length:
			vp.days[w] &= (uint64(1) << uint(vp.Length-low)) - 1
		}
	}
}

func (vp ValidityPattern) And(other ValidityPattern) ValidityPattern {
	for w := range vp.days {
		vp.days[w] &= other.days[w]
	}

	return vp
}

func (vp ValidityPattern) Or(other ValidityPattern) ValidityPattern {
	for w := range vp.days {
		vp.days[w] |= other.days[w]
	}
	vp.trim()

	return vp
}

func (vp ValidityPattern) Xor(other ValidityPattern) ValidityPattern {
	for w := range vp.days {
		vp.days[w] ^= other.days[w]
	}
	vp.trim()

	return vp
}

func (vp ValidityPattern) Not() ValidityPattern {
	for w := range vp.days {
		vp.days[w] = ^vp.days[w]
	}
	vp.trim()

	return vp
}

// ShiftLeft moves every day n days later.
func (vp ValidityPattern) ShiftLeft(n int) ValidityPattern {
	if n < 0 {
		return vp.ShiftRight(-n)
	}
	var out [validityWords]uint64
	wordShift, bitShift := n/64, uint(n%64)
	for w := validityWords - 1; w >= wordShift; w-- {
		out[w] = vp.days[w-wordShift] << bitShift
		if bitShift != 0 && w-wordShift-1 >= 0 {
			out[w] |= vp.days[w-wordShift-1] >> (64 - bitShift)
		}
	}
	vp.days = out
	vp.trim()

	return vp
}

// ShiftRight moves every day n days earlier; days falling before 0 are lost.
func (vp ValidityPattern) ShiftRight(n int) ValidityPattern {
	if n < 0 {
		return vp.ShiftLeft(-n)
	}
	var out [validityWords]uint64
	wordShift, bitShift := n/64, uint(n%64)
	for w := 0; w+wordShift < validityWords; w++ {
		out[w] = vp.days[w+wordShift] >> bitShift
		if bitShift != 0 && w+wordShift+1 < validityWords {
			out[w] |= vp.days[w+wordShift+1] << (64 - bitShift)
		}
	}
	vp.days = out

	return vp
}

func (vp ValidityPattern) None() bool {
	for _, w := range vp.days {
		if w != 0 {
			return false
		}
	}

	return true
}

func (vp ValidityPattern) Any() bool {
	return !vp.None()
}

func (vp ValidityPattern) Count() int {
	count := 0
	for _, w := range vp.days {
		count += bits.OnesCount64(w)
	}

	return count
}

// Days lists the set days in increasing order.
func (vp ValidityPattern) Days() []int {
	var days []int
	for w, word := range vp.days {
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			days = append(days, w*64+bit)
			word &= word - 1
		}
	}

	return days
}

func (vp ValidityPattern) Equal(other ValidityPattern) bool {
	return vp.days == other.days
}

// String prints the pattern with the last day first and day 0 last.
func (vp ValidityPattern) String() string {
	var b strings.Builder
	b.Grow(vp.Length)
	for day := vp.Length - 1; day >= 0; day-- {
		if vp.Check(day) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}

	return b.String()
}
