package internal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sweeney/probe-fixture/internal/comm"
	"github.com/sweeney/probe-fixture/internal/fixture"
	"github.com/sweeney/probe-fixture/internal/hw"
	"github.com/sweeney/probe-fixture/internal/mqtt"
	"github.com/sweeney/probe-fixture/internal/status"
)

const pollInterval = 10 * time.Millisecond

// newQuietPort returns a FakePort with every sensor inactive. The safety
// sensor is active-low, so its pin idles High.
func newQuietPort() *hw.FakePort {
	port := hw.NewFakePort()
	port.SetInput(hw.PinSensorSafety, hw.High)
	return port
}

// runTicks advances the fixture n poll cycles starting at start, publishing
// every transition, and returns the time after the last tick.
func runTicks(t *testing.T, fix *fixture.Fixture, publisher mqtt.Publisher, start time.Time, n int) time.Time {
	t.Helper()
	now := start
	for i := 0; i < n; i++ {
		now = now.Add(pollInterval)
		transition, err := fix.Tick(now)
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if transition != nil {
			event := mqtt.TransitionEvent{
				Timestamp: now,
				From:      transition.From,
				To:        transition.To,
				Vector:    fix.Vector(),
			}
			if err := publisher.Publish(event); err != nil {
				t.Fatalf("tick %d: publish error: %v", i, err)
			}
		}
	}
	return now
}

// TestIntegrationFullFlow drives a complete down-then-up cycle from fake
// hardware to published MQTT events.
func TestIntegrationFullFlow(t *testing.T) {
	port := newQuietPort()
	fix := fixture.New(port, false)
	publisher := mqtt.NewFakePublisher()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// Descent: the host commands down, the down sensor fires after 100ms
	// of travel and debounces 200ms later.
	if err := fix.DriveProbe(fixture.StateGoingDown, 1200, fixture.DirDown); err != nil {
		t.Fatalf("drive down: %v", err)
	}
	publisher.Publish(mqtt.TransitionEvent{
		Timestamp: now, From: fixture.StateInit, To: fixture.StateGoingDown, Vector: fix.Vector(),
	})
	now = runTicks(t, fix, publisher, now, 10)
	port.SetInput(hw.PinSensorDown, hw.High)
	now = runTicks(t, fix, publisher, now, 25)

	if fix.State() != fixture.StateStopDown {
		t.Fatalf("expected stop-down after descent, got %s", fix.State())
	}

	// Ascent: release the down sensor, command up, the up sensor fires.
	port.SetInput(hw.PinSensorDown, hw.Low)
	if err := fix.DriveProbe(fixture.StateGoingUp, 1200, fixture.DirUp); err != nil {
		t.Fatalf("drive up: %v", err)
	}
	publisher.Publish(mqtt.TransitionEvent{
		Timestamp: now, From: fixture.StateStopDown, To: fixture.StateGoingUp, Vector: fix.Vector(),
	})
	now = runTicks(t, fix, publisher, now, 10)
	port.SetInput(hw.PinSensorUp, hw.High)
	runTicks(t, fix, publisher, now, 25)

	if fix.State() != fixture.StateStopUp {
		t.Fatalf("expected stop-up after ascent, got %s", fix.State())
	}

	wantTransitions := []fixture.Transition{
		{From: fixture.StateInit, To: fixture.StateGoingDown},
		{From: fixture.StateGoingDown, To: fixture.StateStopDown},
		{From: fixture.StateStopDown, To: fixture.StateGoingUp},
		{From: fixture.StateGoingUp, To: fixture.StateStopUp},
	}
	if len(publisher.Events) != len(wantTransitions) {
		t.Fatalf("expected %d events, got %d", len(wantTransitions), len(publisher.Events))
	}
	for i, want := range wantTransitions {
		if publisher.Events[i].From != want.From || publisher.Events[i].To != want.To {
			t.Errorf("event %d: expected %s -> %s, got %s -> %s",
				i, want.From, want.To, publisher.Events[i].From, publisher.Events[i].To)
		}
	}

	// Every payload must carry a parseable probe object with a dump frame.
	for i, payload := range publisher.Payloads {
		var parsed mqtt.Payload
		if err := json.Unmarshal(payload, &parsed); err != nil {
			t.Errorf("payload %d: invalid JSON: %v", i, err)
			continue
		}
		if parsed.Probe.Timestamp == "" {
			t.Errorf("payload %d: missing timestamp", i)
		}
		if parsed.Probe.Vector == "" || parsed.Probe.Vector[0] != '<' {
			t.Errorf("payload %d: malformed vector %q", i, parsed.Probe.Vector)
		}
	}
}

// TestIntegrationEmergencyFlow verifies the safety sensor halts motion and
// the recovery sequence returns the probe to stop-up.
func TestIntegrationEmergencyFlow(t *testing.T) {
	port := newQuietPort()
	fix := fixture.New(port, false)
	publisher := mqtt.NewFakePublisher()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if err := fix.DriveProbe(fixture.StateGoingDown, 1200, fixture.DirDown); err != nil {
		t.Fatalf("drive down: %v", err)
	}
	now = runTicks(t, fix, publisher, now, 5)

	// Safety sensor is active-low.
	port.SetInput(hw.PinSensorSafety, hw.Low)
	now = runTicks(t, fix, publisher, now, 15)

	if fix.State() != fixture.StateEmergencyStop {
		t.Fatalf("expected emergency-stop, got %s", fix.State())
	}
	duty, err := port.LastDuty()
	if err != nil {
		t.Fatalf("no duty commanded: %v", err)
	}
	if duty != 0 {
		t.Errorf("expected duty 0 after emergency stop, got %d", duty)
	}

	// Operator clears the obstruction, host commands recovery.
	port.SetInput(hw.PinSensorSafety, hw.High)
	now = runTicks(t, fix, publisher, now, 5)
	if err := fix.DriveProbe(fixture.StateGoingUpAfterEmergency, 1200, fixture.DirUp); err != nil {
		t.Fatalf("drive recovery: %v", err)
	}
	now = runTicks(t, fix, publisher, now, 5)
	port.SetInput(hw.PinSensorUp, hw.High)
	runTicks(t, fix, publisher, now, 25)

	if fix.State() != fixture.StateStopUp {
		t.Fatalf("expected stop-up after recovery, got %s", fix.State())
	}

	// The published record must include the emergency halt.
	found := false
	for _, e := range publisher.Events {
		if e.To == fixture.StateEmergencyStop {
			found = true
			if e.From != fixture.StateGoingDown {
				t.Errorf("emergency stop from %s, expected going-down", e.From)
			}
		}
	}
	if !found {
		t.Error("expected an emergency-stop transition event")
	}
}

// TestIntegrationDebugDump verifies the debug channel frame agrees with
// the status JSON for the same snapshot.
func TestIntegrationDebugDump(t *testing.T) {
	port := newQuietPort()
	fix := fixture.New(port, false)
	publisher := mqtt.NewFakePublisher()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if err := fix.DriveProbe(fixture.StateGoingDown, 1200, fixture.DirDown); err != nil {
		t.Fatalf("drive down: %v", err)
	}
	port.SetInput(hw.PinSensorDown, hw.High)
	runTicks(t, fix, publisher, now, 25)

	if fix.State() != fixture.StateStopDown {
		t.Fatalf("expected stop-down, got %s", fix.State())
	}

	debugPort := comm.NewFakePort()
	debugCh := comm.NewDebug(debugPort)
	if err := debugCh.WriteStateVector(fix.Vector()); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if len(debugPort.Written) != 1 {
		t.Fatalf("expected 1 dump frame, got %d", len(debugPort.Written))
	}
	frame := string(debugPort.Written[0])
	if frame != fix.Vector().Encode() {
		t.Errorf("dump frame %q does not match vector encoding", frame)
	}

	tracker := status.NewTracker(now, status.Config{})
	tracker.Update(fix.Vector(), status.Counts{})
	var parsed status.StatusJSON
	if err := json.Unmarshal(status.FormatJSON(tracker.Snapshot()), &parsed); err != nil {
		t.Fatalf("invalid status JSON: %v", err)
	}
	if parsed.Status.Vector != frame {
		t.Errorf("status vector %q does not match dump frame %q", parsed.Status.Vector, frame)
	}
	if parsed.Status.StateCode != "D" {
		t.Errorf("expected state_code D, got %q", parsed.Status.StateCode)
	}
	if !parsed.Status.Sensors.Down {
		t.Error("expected down sensor flag in status JSON")
	}
}

// TestIntegrationPayloadFormat verifies the exact JSON structure.
func TestIntegrationPayloadFormat(t *testing.T) {
	event := mqtt.TransitionEvent{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		From:      fixture.StateGoingDown,
		To:        fixture.StateStopDown,
		Vector: fixture.StateVector{
			State:        fixture.StateStopDown,
			Count:        3,
			PWMFrequency: 1200,
			SensorDown:   true,
			MotorDir:     true,
			MotorLock:    true,
		},
	}

	publisher := mqtt.NewFakePublisher()
	publisher.Publish(event)

	expected := `{"probe":{"timestamp":"2026-02-02T22:18:12Z","from":"going-down","to":"stop-down","state":"D","count":3,"vector":"<Dfalsefalsefalsefalsetruefalsetruefalsetruefalse.1200.3>"}}`

	if string(publisher.Payloads[0]) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(publisher.Payloads[0]), expected)
	}
}

// TestIntegrationStartupThenShutdown verifies the lifecycle event ordering
// and that both events carry a parseable status snapshot.
func TestIntegrationStartupThenShutdown(t *testing.T) {
	port := newQuietPort()
	fix := fixture.New(port, false)
	publisher := mqtt.NewFakePublisher()
	start := time.Date(2026, 2, 3, 19, 5, 51, 0, time.UTC)

	tracker := status.NewTracker(start, status.Config{
		PollMs: 10,
		Broker: "tcp://192.168.1.200:1883",
	})
	tracker.Update(fix.Vector(), status.Counts{})
	tracker.SetStarted()

	startup := mqtt.SystemEvent{
		Timestamp:  start,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(tracker.Snapshot(), "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		t.Fatalf("startup publish error: %v", err)
	}

	if err := fix.DriveProbe(fixture.StateGoingDown, 1200, fixture.DirDown); err != nil {
		t.Fatalf("drive down: %v", err)
	}
	publisher.Publish(mqtt.TransitionEvent{
		Timestamp: start, From: fixture.StateInit, To: fixture.StateGoingDown, Vector: fix.Vector(),
	})

	tracker.Update(fix.Vector(), status.Counts{Drives: 1, Commands: 1})
	shutdown := mqtt.SystemEvent{
		Timestamp:  start.Add(time.Minute),
		Event:      "SHUTDOWN",
		Reason:     "SIGTERM",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", "SIGTERM"),
	}
	if err := publisher.PublishSystem(shutdown); err != nil {
		t.Fatalf("shutdown publish error: %v", err)
	}

	if len(publisher.SystemEvents) != 2 {
		t.Fatalf("expected 2 system events, got %d", len(publisher.SystemEvents))
	}
	if publisher.SystemEvents[0].Event != "STARTUP" {
		t.Errorf("first system event should be STARTUP, got %s", publisher.SystemEvents[0].Event)
	}
	if publisher.SystemEvents[1].Event != "SHUTDOWN" {
		t.Errorf("second system event should be SHUTDOWN, got %s", publisher.SystemEvents[1].Event)
	}

	// Both raw payloads are full status snapshots.
	var parsed status.StatusJSON
	if err := json.Unmarshal(publisher.SystemPayloads[0], &parsed); err != nil {
		t.Fatalf("startup payload: invalid JSON: %v", err)
	}
	if parsed.Status.Event != "STARTUP" {
		t.Errorf("startup payload event: got %q", parsed.Status.Event)
	}
	if parsed.Status.StateCode != "i" {
		t.Errorf("startup payload state_code: got %q, want i", parsed.Status.StateCode)
	}
	if parsed.Status.Config.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("startup payload broker: got %q", parsed.Status.Config.Broker)
	}

	if err := json.Unmarshal(publisher.SystemPayloads[1], &parsed); err != nil {
		t.Fatalf("shutdown payload: invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("shutdown payload: got event %q reason %q", parsed.Status.Event, parsed.Status.Reason)
	}
	if parsed.Status.StateCode != "d" {
		t.Errorf("shutdown payload state_code: got %q, want d", parsed.Status.StateCode)
	}
	if parsed.Status.Counts.Drives != 1 {
		t.Errorf("shutdown payload drives count: got %d, want 1", parsed.Status.Counts.Drives)
	}
}

// TestIntegrationRotationCountResets verifies the counter runs while moving
// and resets on every stop.
func TestIntegrationRotationCountResets(t *testing.T) {
	port := newQuietPort()
	fix := fixture.New(port, false)
	publisher := mqtt.NewFakePublisher()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if err := fix.DriveProbe(fixture.StateGoingDown, 1200, fixture.DirDown); err != nil {
		t.Fatalf("drive down: %v", err)
	}
	now = runTicks(t, fix, publisher, now, 8)
	if fix.Vector().Count != 8 {
		t.Errorf("expected count 8 while moving, got %d", fix.Vector().Count)
	}

	port.SetInput(hw.PinSensorDown, hw.High)
	runTicks(t, fix, publisher, now, 25)
	if fix.State() != fixture.StateStopDown {
		t.Fatalf("expected stop-down, got %s", fix.State())
	}
	if fix.Vector().Count != 0 {
		t.Errorf("expected count reset to 0 at stop, got %d", fix.Vector().Count)
	}
}
