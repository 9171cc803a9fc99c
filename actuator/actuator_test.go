package actuator

import (
	"errors"
	"math"
	"testing"

	"k8s.io/klog/v2"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
)

func TestToDutyCycle(t *testing.T) {
	t.Parallel()
	nan := float32(math.NaN())
	tests := []struct {
		name string
		y    float32
		want int
	}{
		{"minimum", -1, 0},
		{"maximum", 1, 255},
		{"zero rounds half away from zero", 0, 128},
		{"just below zero", -0.001, 127},
		{"just above zero", 0.001, 128},
		{"half", 0.5, 191},
		{"overshoot", 1.03, 255},
		{"undershoot", -1.03, 0},
		{"far above", 1e9, 255},
		{"far below", -1e9, 0},
		{"positive infinity", float32(math.Inf(1)), 255},
		{"negative infinity", float32(math.Inf(-1)), 0},
		{"nan", nan, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToDutyCycle(tt.y); got != tt.want {
				t.Errorf("ToDutyCycle(%v) = %d, want %d", tt.y, got, tt.want)
			}
		})
	}
}

func TestToDutyCycleMonotonic(t *testing.T) {
	t.Parallel()
	prev := ToDutyCycle(-3)
	for y := float32(-3); y <= 3; y += 0.0005 {
		got := ToDutyCycle(y)
		if got < prev {
			t.Fatalf("ToDutyCycle(%v) = %d < %d", y, got, prev)
		}
		if got < 0 || got > 255 {
			t.Fatalf("ToDutyCycle(%v) = %d out of range", y, got)
		}
		prev = got
	}
}

func TestMapperResolution(t *testing.T) {
	t.Parallel()
	m := NewMapper(1024)
	if m.Top != 1023 {
		t.Fatalf("Top = %d, want 1023", m.Top)
	}
	if got := m.Duty(1); got != 1023 {
		t.Errorf("Duty(1) = %d, want 1023", got)
	}
	if got := m.Duty(0); got != 512 {
		t.Errorf("Duty(0) = %d, want 512", got)
	}
}

// recordingChannel records every call in order.
type recordingChannel struct {
	calls []string
	fail  string
}

func (c *recordingChannel) record(call string) error {
	c.calls = append(c.calls, call)
	if call == c.fail {
		return errors.New("hardware fault")
	}
	return nil
}

func (c *recordingChannel) Configure(top uint32) error { return c.record("configure") }
func (c *recordingChannel) Set(level uint32) error     { return c.record("set") }
func (c *recordingChannel) Enable(on bool) error       { return c.record("enable") }

func TestBringup(t *testing.T) {
	t.Parallel()
	ch := &recordingChannel{}
	if err := Bringup(ch, Resolution); err != nil {
		t.Fatalf("Bringup failed: %v", err)
	}
	want := []string{"configure", "set", "enable"}
	if len(ch.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", ch.calls, want)
	}
	for i := range want {
		if ch.calls[i] != want[i] {
			t.Errorf("call %d = %s, want %s", i, ch.calls[i], want[i])
		}
	}

	failing := &recordingChannel{fail: "set"}
	if err := Bringup(failing, Resolution); err == nil {
		t.Error("Bringup ignored a failing Set")
	}
	if len(failing.calls) != 2 {
		t.Errorf("Bringup continued after failure: %v", failing.calls)
	}

	if err := Bringup(&recordingChannel{}, 1); err == nil {
		t.Error("Bringup accepted resolution 1")
	}
}

func TestLogChannel(t *testing.T) {
	t.Parallel()
	ch := NewLogChannel(klog.Background())
	if err := Bringup(ch, Resolution); err != nil {
		t.Fatal(err)
	}
	if !ch.Enabled() {
		t.Error("channel not enabled")
	}
	if err := ch.Set(200); err != nil {
		t.Fatal(err)
	}
	if ch.Level() != 200 {
		t.Errorf("Level() = %d, want 200", ch.Level())
	}
	if err := ch.Set(256); err == nil {
		t.Error("Set accepted a level above top")
	}
}

func TestPeriphChannel(t *testing.T) {
	t.Parallel()
	pin := &gpiotest.Pin{N: "GPIO18", Num: 18}
	ch := NewPeriphChannel(pin, 0)

	if err := ch.Set(1); err == nil {
		t.Error("Set succeeded before Configure")
	}
	if err := Bringup(ch, Resolution); err != nil {
		t.Fatalf("Bringup failed: %v", err)
	}
	if pin.D != 0 || pin.F != DefaultFrequency {
		t.Errorf("after bring-up duty %v, frequency %v", pin.D, pin.F)
	}

	if err := ch.Set(255); err != nil {
		t.Fatal(err)
	}
	if pin.D != gpio.DutyMax {
		t.Errorf("Set(255) duty = %v, want %v", pin.D, gpio.DutyMax)
	}
	if err := ch.Set(1000); err != nil {
		t.Fatal(err)
	}
	if pin.D != gpio.DutyMax {
		t.Errorf("Set(1000) duty = %v, want clamped %v", pin.D, gpio.DutyMax)
	}

	if err := ch.Enable(false); err != nil {
		t.Fatal(err)
	}
	if pin.L != gpio.Low {
		t.Error("disabled pin not driven low")
	}
	if err := ch.Set(128); err != nil {
		t.Fatal(err)
	}
	if pin.D != gpio.DutyMax {
		t.Error("disabled channel still wrote duty")
	}
	if err := ch.Enable(true); err != nil {
		t.Fatal(err)
	}
	if want := gpio.Duty(128 * uint64(gpio.DutyMax) / 255); pin.D != want {
		t.Errorf("re-enabled duty = %v, want %v", pin.D, want)
	}

	custom := NewPeriphChannel(&gpiotest.Pin{N: "PWM0"}, 25*physic.KiloHertz)
	if custom.freq != 25*physic.KiloHertz {
		t.Errorf("frequency = %v", custom.freq)
	}
}
