package fixture

import (
	"strconv"
	"strings"
)

// StateVector is the complete, comparable snapshot of the fixture. All
// fields are discrete, so plain == compares every field including Count.
// Change detection deliberately ignores the count, which advances on every
// moving tick; use EqualIgnoringCount for that.
type StateVector struct {
	State        State
	Count        uint32
	PWMFrequency uint32

	Jumper          bool
	DebugButton     bool
	SensorExtremeUp bool
	SensorUp        bool
	SensorDown      bool
	SensorSafety    bool

	MotorDir    bool
	MotorEnable bool
	MotorLock   bool
	MotorDuty   bool
}

// EqualIgnoringCount reports whether v and o match on every field except
// the rotation count. A vector that differs only in Count describes the
// same fixture condition, just observed a few motor ticks apart.
func (v StateVector) EqualIgnoringCount(o StateVector) bool {
	v.Count = 0
	o.Count = 0
	return v == o
}

// Encode renders the vector as the debug-channel dump frame:
//
//	<SJBEUDSdelDIRENLOCKDUTY.PWMFREQ.COUNT>
//
// i.e. '<', the single-character state code, the ten boolean fields in a
// fixed order with no separators, '.', the PWM frequency in decimal, '.',
// the rotation count in decimal, '>'.
//
// Compatibility contract: each boolean is rendered as Go's "true"/"false".
// Host tooling parses the frame positionally, so the field order and the
// boolean text form must never change.
func (v StateVector) Encode() string {
	flags := [...]bool{
		v.Jumper, v.DebugButton,
		v.SensorExtremeUp, v.SensorUp, v.SensorDown, v.SensorSafety,
		v.MotorDir, v.MotorEnable, v.MotorLock, v.MotorDuty,
	}

	var b strings.Builder
	b.WriteByte('<')
	b.WriteByte(byte(v.State))
	for _, f := range flags {
		b.WriteString(strconv.FormatBool(f))
	}
	b.WriteByte('.')
	b.WriteString(strconv.FormatUint(uint64(v.PWMFrequency), 10))
	b.WriteByte('.')
	b.WriteString(strconv.FormatUint(uint64(v.Count), 10))
	b.WriteByte('>')
	return b.String()
}
