package ctdf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testBeginning = time.Date(2012, time.June, 14, 0, 0, 0, 0, time.UTC)

func TestValidityPatternOutOfRange(t *testing.T) {
	vp := NewValidityPattern(testBeginning, 7)

	vp.Add(-1)
	vp.Add(7)
	vp.Add(400)
	assert.True(t, vp.None())
	assert.False(t, vp.Check(7))
	assert.False(t, vp.Check(-3))

	vp.Remove(12)
	assert.True(t, vp.None())
}

func TestValidityPatternString(t *testing.T) {
	vp := ParseValidityPattern(testBeginning, 7, "0011001")

	assert.True(t, vp.Check(0))
	assert.False(t, vp.Check(1))
	assert.True(t, vp.Check(3))
	assert.True(t, vp.Check(4))
	assert.Equal(t, "0011001", vp.String())
	assert.Equal(t, []int{0, 3, 4}, vp.Days())
	assert.Equal(t, 3, vp.Count())
}

func TestValidityPatternCombinators(t *testing.T) {
	a := ParseValidityPattern(testBeginning, 7, "1111000")
	b := ParseValidityPattern(testBeginning, 7, "0101010")

	assert.Equal(t, "0101000", a.And(b).String())
	assert.Equal(t, "1111010", a.Or(b).String())
	assert.Equal(t, "1010010", a.Xor(b).String())
	assert.Equal(t, "0000111", a.Not().String())

	// operands are values and stay untouched
	assert.Equal(t, "1111000", a.String())
}

func TestValidityPatternShift(t *testing.T) {
	vp := ParseValidityPattern(testBeginning, 7, "0000011")

	assert.Equal(t, "0001100", vp.ShiftLeft(2).String())
	assert.Equal(t, "0000001", vp.ShiftRight(1).String())
	assert.Equal(t, "0000000", vp.ShiftRight(2).String())
	assert.Equal(t, "1000000", ParseValidityPattern(testBeginning, 7, "0000001").ShiftLeft(6).String())
	assert.True(t, ParseValidityPattern(testBeginning, 7, "1000000").ShiftLeft(1).None())
}

func TestValidityPatternShiftAcrossWords(t *testing.T) {
	vp := NewValidityPattern(testBeginning, 300)
	vp.Add(63)
	vp.Add(130)

	shifted := vp.ShiftLeft(70)
	assert.Equal(t, []int{133, 200}, shifted.Days())
	assert.Equal(t, []int{63, 130}, shifted.ShiftRight(70).Days())
}

func TestValidityPatternDates(t *testing.T) {
	vp := NewValidityPattern(testBeginning, 7)

	assert.Equal(t, 0, vp.DayOf(testBeginning.Add(23*time.Hour)))
	assert.Equal(t, 2, vp.DayOf(time.Date(2012, time.June, 16, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, -1, vp.DayOf(time.Date(2012, time.June, 13, 8, 0, 0, 0, time.UTC)))

	vp.AddDate(time.Date(2012, time.June, 15, 12, 0, 0, 0, time.UTC))
	vp.AddDate(time.Date(2013, time.June, 15, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, "0000010", vp.String())
	assert.Equal(t, time.Date(2012, time.June, 20, 0, 0, 0, 0, time.UTC), vp.Date(6))
}

func TestValidityPatternEqual(t *testing.T) {
	a := ParseValidityPattern(testBeginning, 7, "0011001")
	b := NewValidityPattern(testBeginning, 7)
	b.Add(0)
	b.Add(3)
	b.Add(4)

	assert.True(t, a.Equal(b))
	b.Remove(4)
	assert.False(t, a.Equal(b))
}
