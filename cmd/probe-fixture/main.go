// Command probe-fixture runs the touch-probe test fixture controller:
// it polls the position sensors, drives the probe motor, and serves the
// host command channels.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/probe-fixture/internal/comm"
	"github.com/sweeney/probe-fixture/internal/fixture"
	"github.com/sweeney/probe-fixture/internal/hw"
	"github.com/sweeney/probe-fixture/internal/mqtt"
	"github.com/sweeney/probe-fixture/internal/status"
	"github.com/sweeney/probe-fixture/internal/web"
)

func main() {
	poll := flag.Duration("poll", 10*time.Millisecond, "Sensor polling interval")
	chip := flag.String("gpio-chip", "gpiochip0", "GPIO character device name")
	pwmChip := flag.Int("pwm-chip", 0, "sysfs PWM chip number for the motor step signal")
	pwmChannel := flag.Int("pwm-channel", 0, "sysfs PWM channel number for the motor step signal")
	controlDev := flag.String("control", "/dev/ttyUSB0", "Control channel serial device (empty to disable)")
	debugDev := flag.String("debug", "/dev/ttyUSB1", "Debug channel serial device (empty to disable)")
	baud := flag.Int("baud", comm.DefaultBaudRate, "Serial baud rate for both channels")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address (empty to disable)")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")
	driveFreq := flag.Uint("drive-freq", 1200, "Motor step frequency in Hz while moving")
	forceJumper := flag.Bool("force-jumper", true, "Treat the jumper as set regardless of the pin (factory default; the debug button stays usable)")
	printState := flag.Bool("print-state", false, "Print current sensor levels and exit")

	flag.Parse()

	if err := run(*poll, *chip, *pwmChip, *pwmChannel, *controlDev, *debugDev, *baud,
		*broker, *heartbeat, *httpAddr, uint32(*driveFreq), *forceJumper, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(poll time.Duration, chip string, pwmChip, pwmChannel int, controlDev, debugDev string, baud int, broker string, heartbeat time.Duration, httpAddr string, driveFreq uint32, forceJumper, printState bool) error {
	// Initialize hardware
	port, err := hw.NewRealPort(hw.Config{
		Chip:       chip,
		PWMChip:    pwmChip,
		PWMChannel: pwmChannel,
	})
	if err != nil {
		return fmt.Errorf("init hardware: %w", err)
	}
	defer port.Close()

	// Print state mode
	if printState {
		return printSensorLevels(port)
	}

	fix := fixture.New(port, forceJumper)

	// Warm-up: enable the motor, then let the debouncer settle before the
	// state machine sees any flags.
	if err := fix.Start(time.Now); err != nil {
		return fmt.Errorf("start fixture: %w", err)
	}

	// Open command channels
	var control *comm.Control
	if controlDev != "" {
		sp, err := comm.OpenSerial(controlDev, baud)
		if err != nil {
			return fmt.Errorf("open control channel: %w", err)
		}
		control = comm.NewControl(sp)
		defer control.Close()
	}
	var debugCh *comm.Debug
	if debugDev != "" {
		sp, err := comm.OpenSerial(debugDev, baud)
		if err != nil {
			return fmt.Errorf("open debug channel: %w", err)
		}
		debugCh = comm.NewDebug(sp)
		defer debugCh.Close()
	}

	// Initialize MQTT
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if broker != "" {
		real, err := mqtt.NewRealPublisher(broker)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer real.Close()
		publisher = real
		mqttStatus = real
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:         poll.Milliseconds(),
		ControlDevice:  controlDev,
		DebugDevice:    debugDev,
		BaudRate:       baud,
		Broker:         broker,
		HTTPPort:       httpAddr,
		JumperOverride: forceJumper,
		PWMFrequency:   int64(driveFreq),
		HeartbeatMs:    heartbeat.Milliseconds(),
	})
	tracker.Update(fix.Vector(), status.Counts{})
	tracker.SetStarted()

	// Publish startup event with full status snapshot
	if publisher != nil {
		snap := tracker.Snapshot()
		startupEvent := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startupEvent); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		} else {
			log.Printf("published startup event")
		}
	}

	// Start HTTP status server
	if httpAddr != "" {
		srv := web.New(httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", httpAddr)
	}

	log.Printf("started: poll=%v control=%s debug=%s broker=%s drive-freq=%dHz",
		poll, controlDev, debugDev, broker, driveFreq)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(fix, control, debugCh, publisher, mqttStatus, tracker, driveFreq, heartbeat, time.Now, ticker.C, sigCh)
}

func runLoop(fix *fixture.Fixture, control *comm.Control, debugCh *comm.Debug, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, driveFreq uint32, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	counts := status.Counts{}
	wasDebugPressed := false
	lastHeartbeat := now()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				tracker.Update(fix.Vector(), counts)
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if publisher != nil {
				if err := publisher.PublishSystem(event); err != nil {
					log.Printf("failed to publish shutdown event: %v", err)
				} else {
					log.Printf("published shutdown event")
				}
			}
			return nil

		case <-tick:
			t := now()
			transition, err := fix.Tick(t)
			if err != nil {
				log.Printf("tick error: %v", err)
				continue
			}
			if transition != nil {
				log.Printf("transition: %s -> %s", transition.From, transition.To)
				if transition.To == fixture.StateEmergencyStop {
					counts.EmergencyStops++
				} else {
					counts.Stops++
				}
				if publisher != nil {
					event := mqtt.TransitionEvent{
						Timestamp: t,
						From:      transition.From,
						To:        transition.To,
						Vector:    fix.Vector(),
					}
					if err := publisher.Publish(event); err != nil {
						log.Printf("publish error: %v", err)
						// Don't crash on publish failure
					}
				}
			}

			// Control channel: one command per tick keeps motion commands
			// serialized with the sensor scan.
			if control != nil {
				from := fix.State()
				cmd, ok, err := control.ReadCommand()
				if err != nil {
					log.Printf("control channel read error: %v", err)
				} else if ok {
					counts.Commands++
					resp := dispatchCommand(cmd, fix, driveFreq, &counts)
					log.Printf("command %q -> %q (state %s)", cmd, resp, fix.State())
					if err := control.WriteResponse(resp); err != nil {
						log.Printf("control channel write error: %v", err)
					}
					publishIfMoved(publisher, fix, from, t)
				}
			}

			if debugCh != nil {
				handleDebugChannel(debugCh, fix, &counts)
			}

			// Debug button: edge-triggered manual motion for bench work,
			// only honored with the jumper set and the probe at rest.
			pressed := fix.IsDebugPressed()
			if pressed && !wasDebugPressed && fix.IsJumperSet() && fix.IsInStopState() && !fix.IsSensorSafety() {
				from := fix.State()
				target, dir := debugDirection(fix)
				if err := fix.DriveProbe(target, driveFreq, dir); err != nil {
					log.Printf("debug button drive error: %v", err)
				} else {
					counts.Drives++
					log.Printf("debug button: driving %s", target)
					publishIfMoved(publisher, fix, from, t)
				}
			}
			wasDebugPressed = pressed

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(fix.Vector(), counts)
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			if heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				event := mqtt.SystemEvent{
					Timestamp: t,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
				}
				if publisher != nil {
					if err := publisher.PublishSystem(event); err != nil {
						log.Printf("heartbeat publish error: %v", err)
					}
				}
			}
		}
	}
}

// publishIfMoved reports a command-initiated transition. Sensor-initiated
// transitions are reported by the Tick handler instead.
func publishIfMoved(publisher mqtt.Publisher, fix *fixture.Fixture, from fixture.State, t time.Time) {
	if publisher == nil || fix.State() == from {
		return
	}
	event := mqtt.TransitionEvent{
		Timestamp: t,
		From:      from,
		To:        fix.State(),
		Vector:    fix.Vector(),
	}
	if err := publisher.Publish(event); err != nil {
		log.Printf("publish error: %v", err)
	}
}

func printSensorLevels(port hw.Port) error {
	pins := []hw.Pin{
		hw.PinJumper, hw.PinDebugButton, hw.PinSensorExtremeUp,
		hw.PinSensorUp, hw.PinSensorDown, hw.PinSensorSafety,
	}
	for _, pin := range pins {
		level, err := port.ReadDigital(pin)
		if err != nil {
			return fmt.Errorf("read %s: %w", pin, err)
		}
		fmt.Printf("%s: %s\n", pin, levelString(level))
	}
	return nil
}

func levelString(l hw.Level) string {
	if l == hw.High {
		return "HIGH"
	}
	return "LOW"
}
