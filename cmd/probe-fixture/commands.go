package main

import (
	"log"

	"github.com/sweeney/probe-fixture/internal/comm"
	"github.com/sweeney/probe-fixture/internal/fixture"
	"github.com/sweeney/probe-fixture/internal/hw"
	"github.com/sweeney/probe-fixture/internal/status"
)

// Control-channel command bytes. The host sends one byte per command and
// reads one byte back.
const (
	cmdDown    = 'd' // lower the probe onto the panel
	cmdUp      = 'u' // raise the probe to its rest position
	cmdRecover = 'b' // raise the probe after an emergency stop
	cmdState   = 's' // query the current state code
)

// Control-channel response bytes. A state query answers with the state
// code itself instead.
const (
	respOK  = '+'
	respErr = '!'
)

// dispatchCommand executes one control-channel command against the fixture
// and returns the single response byte to send back.
//
// Motion commands are only accepted at rest, and never while the safety
// sensor is active; the recover command is the one path out of an
// emergency stop.
func dispatchCommand(cmd byte, fix *fixture.Fixture, driveFreq uint32, counts *status.Counts) byte {
	switch cmd {
	case cmdState:
		return byte(fix.State())

	case cmdDown:
		// The first descent of a session starts from Init; later ones from
		// StopUp.
		if fix.State() != fixture.StateStopUp && fix.State() != fixture.StateInit {
			return respErr
		}
		if fix.IsSensorSafety() {
			return respErr
		}
		if err := fix.DriveProbe(fixture.StateGoingDown, driveFreq, fixture.DirDown); err != nil {
			log.Printf("command 'd': %v", err)
			return respErr
		}
		counts.Drives++
		return respOK

	case cmdUp:
		if fix.State() != fixture.StateStopDown || fix.IsSensorSafety() {
			return respErr
		}
		if err := fix.DriveProbe(fixture.StateGoingUp, driveFreq, fixture.DirUp); err != nil {
			log.Printf("command 'u': %v", err)
			return respErr
		}
		counts.Drives++
		return respOK

	case cmdRecover:
		if fix.State() != fixture.StateEmergencyStop || fix.IsSensorSafety() {
			return respErr
		}
		if err := fix.DriveProbe(fixture.StateGoingUpAfterEmergency, driveFreq, fixture.DirUp); err != nil {
			log.Printf("command 'b': %v", err)
			return respErr
		}
		counts.Drives++
		return respOK

	default:
		return respErr
	}
}

// debugDirection picks the manual-motion target for a debug-button press:
// up when the probe rests down, down from the up position. An emergency
// stop is only ever left through the dedicated recovery state, button or
// host alike.
func debugDirection(fix *fixture.Fixture) (fixture.State, hw.Level) {
	switch fix.State() {
	case fixture.StateStopDown:
		return fixture.StateGoingUp, fixture.DirUp
	case fixture.StateEmergencyStop:
		return fixture.StateGoingUpAfterEmergency, fixture.DirUp
	}
	return fixture.StateGoingDown, fixture.DirDown
}

// handleDebugChannel drains pending bytes on the debug channel. Any byte
// is treated as a dump request and answered with the full state frame.
func handleDebugChannel(debugCh *comm.Debug, fix *fixture.Fixture, counts *status.Counts) {
	for {
		_, ok, err := debugCh.ReadCommand()
		if err != nil {
			log.Printf("debug channel read error: %v", err)
			return
		}
		if !ok {
			return
		}
		if err := debugCh.WriteStateVector(fix.Vector()); err != nil {
			log.Printf("debug channel write error: %v", err)
			return
		}
		counts.Dumps++
	}
}
