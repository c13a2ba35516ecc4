package fixture

import "testing"

func TestVectorEquality(t *testing.T) {
	base := StateVector{
		State:        StateGoingUp,
		Count:        7,
		PWMFrequency: 1200,
		Jumper:       true,
		MotorDuty:    true,
	}

	same := base
	if base != same {
		t.Fatal("identical vectors should compare equal")
	}

	mutations := map[string]func(*StateVector){
		"State":           func(v *StateVector) { v.State = StateGoingDown },
		"Count":           func(v *StateVector) { v.Count = 8 },
		"PWMFrequency":    func(v *StateVector) { v.PWMFrequency = 2400 },
		"Jumper":          func(v *StateVector) { v.Jumper = false },
		"DebugButton":     func(v *StateVector) { v.DebugButton = true },
		"SensorExtremeUp": func(v *StateVector) { v.SensorExtremeUp = true },
		"SensorUp":        func(v *StateVector) { v.SensorUp = true },
		"SensorDown":      func(v *StateVector) { v.SensorDown = true },
		"SensorSafety":    func(v *StateVector) { v.SensorSafety = true },
		"MotorDir":        func(v *StateVector) { v.MotorDir = true },
		"MotorEnable":     func(v *StateVector) { v.MotorEnable = true },
		"MotorLock":       func(v *StateVector) { v.MotorLock = true },
		"MotorDuty":       func(v *StateVector) { v.MotorDuty = false },
	}

	for field, mutate := range mutations {
		v := base
		mutate(&v)
		if v == base {
			t.Errorf("changing %s should make vectors unequal", field)
		}
		wantEqual := field == "Count"
		if got := v.EqualIgnoringCount(base); got != wantEqual {
			t.Errorf("changing %s: EqualIgnoringCount = %v, want %v", field, got, wantEqual)
		}
	}
}

func TestEncodePowerOnVector(t *testing.T) {
	v := StateVector{State: StateInit}

	const want = "<ifalsefalsefalsefalsefalsefalsefalsefalsefalsefalse.0.0>"
	if got := v.Encode(); got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestEncodeMovingVector(t *testing.T) {
	v := StateVector{
		State:        StateGoingDown,
		Count:        42,
		PWMFrequency: 1200,
		Jumper:       true,
		SensorDown:   true,
		MotorDir:     true, // down
		MotorLock:    true,
		MotorDuty:    true,
	}

	const want = "<dtruefalsefalsefalsetruefalsetruefalsetruetrue.1200.42>"
	if got := v.Encode(); got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateInit, "init"},
		{StateGoingDown, "going-down"},
		{StateGoingUp, "going-up"},
		{StateStopDown, "stop-down"},
		{StateStopUp, "stop-up"},
		{StateEmergencyStop, "emergency-stop"},
		{StateGoingUpAfterEmergency, "going-up-after-emergency"},
		{State('x'), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%q).String() = %q, want %q", byte(tt.state), got, tt.want)
		}
	}
}
