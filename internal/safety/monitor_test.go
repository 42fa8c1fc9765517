package safety

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"
)

// ─── Helpers ────────────────────────────────────────────────────────────────

// newTestMonitor creates a Monitor with default thresholds and a fixed,
// manually advanceable clock.
func newTestMonitor(t *testing.T) (*Monitor, *fakeClock) {
	t.Helper()

	m, err := NewMonitor(DefaultThresholds())
	if err != nil {
		t.Fatalf("NewMonitor() error = %v", err)
	}
	clk := &fakeClock{t: time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)}
	m.now = clk.now
	return m, clk
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// clearSample is a weather reading with nothing wrong with it.
func clearSample() WeatherSample {
	return WeatherSample{
		WindSpeedMPH: 5,
		WindGustMPH:  8,
		HumidityPct:  45,
		TemperatureF: 55,
		DewPointF:    30,
	}
}

func mustUpdateWeather(t *testing.T, m *Monitor, s WeatherSample) {
	t.Helper()
	if err := m.UpdateWeather(s); err != nil {
		t.Fatalf("UpdateWeather(%+v) error = %v", s, err)
	}
}

// checkSafeInvariant asserts IsSafe equals the AND of the domain booleans.
func checkSafeInvariant(t *testing.T, st Status) {
	t.Helper()
	want := st.WeatherOK && st.HoldoffOK && st.AltitudeOK && st.PowerOK && st.EnclosureOK && st.DaylightOK
	if st.IsSafe != want {
		t.Errorf("IsSafe = %v, want AND of domain booleans = %v (status %+v)", st.IsSafe, want, st)
	}
}

func hasReasonContaining(st Status, substr string) bool {
	for _, r := range st.Reasons {
		if strings.Contains(r, substr) {
			return true
		}
	}
	return false
}

// ─── Construction and validation ────────────────────────────────────────────

func TestNewMonitor_InvalidThresholds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Thresholds)
	}{
		{"zero wind limit", func(th *Thresholds) { th.WindLimitMPH = 0 }},
		{"margin above limit", func(th *Thresholds) { th.WindHysteresisMarginMPH = 30 }},
		{"inverted battery tiers", func(th *Thresholds) { th.UPSEmergencyPct = 60 }},
		{"critical above warning", func(th *Thresholds) { th.UPSCriticalPct = 55 }},
		{"negative holdoff", func(th *Thresholds) { th.RainHoldoff = -time.Minute }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := DefaultThresholds()
			tt.mutate(&th)
			if _, err := NewMonitor(th); !errors.Is(err, ErrInvalidThresholds) {
				t.Errorf("NewMonitor() error = %v, want ErrInvalidThresholds", err)
			}
		})
	}
}

func TestUpdateWeather_RejectsInvalidValues(t *testing.T) {
	m, _ := newTestMonitor(t)
	mustUpdateWeather(t, m, clearSample())

	invalid := []WeatherSample{
		func() WeatherSample { s := clearSample(); s.WindSpeedMPH = math.NaN(); return s }(),
		func() WeatherSample { s := clearSample(); s.TemperatureF = math.Inf(1); return s }(),
		func() WeatherSample { s := clearSample(); s.HumidityPct = 130; return s }(),
		func() WeatherSample { s := clearSample(); s.HumidityPct = -1; return s }(),
		func() WeatherSample { s := clearSample(); s.RainRateInHr = -0.5; return s }(),
		func() WeatherSample { s := clearSample(); s.WindGustMPH = -2; return s }(),
	}

	for i, s := range invalid {
		if err := m.UpdateWeather(s); !errors.Is(err, ErrInvalidSample) {
			t.Errorf("sample %d: UpdateWeather() error = %v, want ErrInvalidSample", i, err)
		}
	}

	// Prior state is retained: the monitor still evaluates on the last
	// valid sample.
	st := m.Evaluate()
	if !st.WeatherOK {
		t.Errorf("WeatherOK = false after rejected updates, want true (state must be unchanged)")
	}
}

func TestUpdatePowerStatus_RejectsInvalidPercent(t *testing.T) {
	m, _ := newTestMonitor(t)

	for _, pct := range []float64{-1, 101, math.NaN(), math.Inf(-1)} {
		if err := m.UpdatePowerStatus(pct, false); !errors.Is(err, ErrInvalidPercent) {
			t.Errorf("UpdatePowerStatus(%v) error = %v, want ErrInvalidPercent", pct, err)
		}
	}

	st := m.Evaluate()
	if st.UPSBatteryPercent != nil {
		t.Error("UPSBatteryPercent set after rejected updates, want nil")
	}
}

func TestUpdateAltitude_RejectsOutOfRange(t *testing.T) {
	m, _ := newTestMonitor(t)

	for _, deg := range []float64{-91, 91, math.NaN()} {
		if err := m.UpdateTargetAltitude(deg); !errors.Is(err, ErrInvalidAltitude) {
			t.Errorf("UpdateTargetAltitude(%v) error = %v, want ErrInvalidAltitude", deg, err)
		}
		if err := m.UpdateSunAltitude(deg); !errors.Is(err, ErrInvalidAltitude) {
			t.Errorf("UpdateSunAltitude(%v) error = %v, want ErrInvalidAltitude", deg, err)
		}
	}
}

// ─── Wind hysteresis ────────────────────────────────────────────────────────

func TestWindHysteresis_StickyBand(t *testing.T) {
	// limit=25, margin=5: 10→30→22→18 must produce
	// latch false→true→true→false, weather not-ok exactly while latched.
	m, _ := newTestMonitor(t)

	steps := []struct {
		windMPH       float64
		wantWeatherOK bool
	}{
		{10, true},  // below limit, latch stays clear
		{30, false}, // above limit, latch trips
		{22, false}, // inside sticky band, latch holds
		{18, true},  // at/below limit-margin, latch clears
	}

	for _, step := range steps {
		s := clearSample()
		s.WindSpeedMPH = step.windMPH
		mustUpdateWeather(t, m, s)

		st := m.Evaluate()
		checkSafeInvariant(t, st)
		if st.WeatherOK != step.wantWeatherOK {
			t.Errorf("wind %.0f mph: WeatherOK = %v, want %v", step.windMPH, st.WeatherOK, step.wantWeatherOK)
		}
		if !step.wantWeatherOK && !hasReasonContaining(st, "Wind") {
			t.Errorf("wind %.0f mph: no wind reason in %v", step.windMPH, st.Reasons)
		}
	}
}

func TestWindHysteresis_ClearsAtExactThreshold(t *testing.T) {
	m, _ := newTestMonitor(t)

	s := clearSample()
	s.WindSpeedMPH = 26
	mustUpdateWeather(t, m, s)

	// Exactly limit - margin clears the latch.
	s.WindSpeedMPH = 20
	mustUpdateWeather(t, m, s)

	if st := m.Evaluate(); !st.WeatherOK {
		t.Errorf("WeatherOK = false at clear threshold, want true")
	}
}

// ─── Rain and holdoff ───────────────────────────────────────────────────────

func TestRainHoldoff_Countdown(t *testing.T) {
	m, clk := newTestMonitor(t)
	th := DefaultThresholds()
	th.RainHoldoff = 5 * time.Minute
	m.thresholds = th

	s := clearSample()
	s.IsRaining = true
	mustUpdateWeather(t, m, s)

	// Rain stops immediately, but the holdoff runs from t0.
	s.IsRaining = false
	mustUpdateWeather(t, m, s)

	st := m.Evaluate()
	if st.HoldoffOK {
		t.Fatal("HoldoffOK = true at t0, want false")
	}
	if st.RainHoldoffRemainingMin < 4.9 || st.RainHoldoffRemainingMin > 5.0 {
		t.Errorf("remaining = %.2f min at t0, want ≈5", st.RainHoldoffRemainingMin)
	}

	clk.advance(4*time.Minute + 59*time.Second)
	st = m.Evaluate()
	if st.HoldoffOK {
		t.Fatal("HoldoffOK = true at t0+4m59s, want false")
	}
	if st.RainHoldoffRemainingMin <= 0 || st.RainHoldoffRemainingMin > 0.1 {
		t.Errorf("remaining = %.3f min at t0+4m59s, want just above 0", st.RainHoldoffRemainingMin)
	}
	if !hasReasonContaining(st, "holdoff") {
		t.Errorf("no holdoff reason in %v", st.Reasons)
	}

	clk.advance(2 * time.Second) // t0+5m01s
	st = m.Evaluate()
	if !st.HoldoffOK {
		t.Error("HoldoffOK = false at t0+5m01s, want true")
	}
	if st.RainHoldoffActive {
		t.Error("RainHoldoffActive = true after expiry, want false")
	}
}

func TestRainHoldoff_LastRainTimeAdvancesOnly(t *testing.T) {
	m, clk := newTestMonitor(t)

	s := clearSample()
	s.IsRaining = true
	mustUpdateWeather(t, m, s)

	clk.advance(10 * time.Minute)
	mustUpdateWeather(t, m, s) // still raining: holdoff restarts from now

	st := m.Evaluate()
	want := m.thresholds.RainHoldoff.Minutes()
	if st.RainHoldoffRemainingMin < want-0.1 {
		t.Errorf("remaining = %.1f min after renewed rain, want ≈%.0f", st.RainHoldoffRemainingMin, want)
	}
}

func TestRain_PositiveRateCountsAsRain(t *testing.T) {
	m, _ := newTestMonitor(t)

	s := clearSample()
	s.RainRateInHr = 0.2
	mustUpdateWeather(t, m, s)

	st := m.Evaluate()
	if st.Action != ActionEmergencyClose {
		t.Errorf("Action = %v with positive rain rate, want %v", st.Action, ActionEmergencyClose)
	}
}

// ─── Altitude tri-state ─────────────────────────────────────────────────────

func TestAltitude_TriState(t *testing.T) {
	// min=10, buffer=2.
	tests := []struct {
		altitudeDeg  float64
		wantOK       bool
		wantAdvisory bool
	}{
		{5, false, false},
		{11, true, true},
		{45, true, false},
	}

	for _, tt := range tests {
		m, _ := newTestMonitor(t)
		if err := m.UpdateTargetAltitude(tt.altitudeDeg); err != nil {
			t.Fatalf("UpdateTargetAltitude(%v) error = %v", tt.altitudeDeg, err)
		}

		st := m.Evaluate()
		checkSafeInvariant(t, st)
		if st.AltitudeOK != tt.wantOK {
			t.Errorf("altitude %.0f: AltitudeOK = %v, want %v", tt.altitudeDeg, st.AltitudeOK, tt.wantOK)
		}
		advisory := hasReasonContaining(st, "horizon")
		if advisory != tt.wantAdvisory {
			t.Errorf("altitude %.0f: horizon advisory present = %v, want %v", tt.altitudeDeg, advisory, tt.wantAdvisory)
		}
		if tt.altitudeDeg == 45 && len(st.Reasons) != 0 {
			t.Errorf("altitude 45: Reasons = %v, want none", st.Reasons)
		}
	}
}

func TestAltitude_ClearTarget(t *testing.T) {
	m, _ := newTestMonitor(t)

	if err := m.UpdateTargetAltitude(5); err != nil {
		t.Fatal(err)
	}
	if st := m.Evaluate(); st.AltitudeOK {
		t.Fatal("AltitudeOK = true with target at 5°, want false")
	}

	m.ClearTarget()
	st := m.Evaluate()
	if !st.AltitudeOK {
		t.Error("AltitudeOK = false with no target, want true")
	}
	if st.TargetAltitudeDeg != nil {
		t.Error("TargetAltitudeDeg echoed after ClearTarget, want nil")
	}
}

// ─── Power tiers ────────────────────────────────────────────────────────────

func TestPower_Tiers(t *testing.T) {
	tests := []struct {
		name        string
		percent     float64
		onBattery   bool
		wantOK      bool
		wantLevel   AlertLevel // expected overall alert level
		wantAction  Action
		wantInText  string // substring expected in reasons; "" for none
	}{
		{"full battery", 100, false, true, AlertInfo, ActionSafeToObserve, ""},
		{"on battery advisory", 80, true, true, AlertInfo, ActionSafeToObserve, "battery power"},
		{"warning tier", 45, false, true, AlertInfo, ActionSafeToObserve, "warning"},
		{"critical tier", 20, false, false, AlertCritical, ActionParkAndWait, "parking"},
		{"emergency tier", 10, false, false, AlertEmergency, ActionEmergencyClose, "emergency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestMonitor(t)
			if err := m.UpdatePowerStatus(tt.percent, tt.onBattery); err != nil {
				t.Fatalf("UpdatePowerStatus() error = %v", err)
			}

			st := m.Evaluate()
			checkSafeInvariant(t, st)
			if st.PowerOK != tt.wantOK {
				t.Errorf("PowerOK = %v, want %v", st.PowerOK, tt.wantOK)
			}
			if st.AlertLevel != tt.wantLevel {
				t.Errorf("AlertLevel = %v, want %v", st.AlertLevel, tt.wantLevel)
			}
			if st.Action != tt.wantAction {
				t.Errorf("Action = %v, want %v", st.Action, tt.wantAction)
			}
			if tt.wantInText != "" && !hasReasonContaining(st, tt.wantInText) {
				t.Errorf("Reasons = %v, want one containing %q", st.Reasons, tt.wantInText)
			}
			if tt.name == "full battery" && len(st.Reasons) != 0 {
				t.Errorf("Reasons = %v at 100%%, want none", st.Reasons)
			}
		})
	}
}

// ─── Enclosure and daylight ─────────────────────────────────────────────────

func TestEnclosure_States(t *testing.T) {
	t.Run("unknown is advisory", func(t *testing.T) {
		m, _ := newTestMonitor(t)
		st := m.Evaluate()
		if !st.EnclosureOK {
			t.Error("EnclosureOK = false with no data, want true")
		}
		if !hasReasonContaining(st, "unknown") {
			t.Errorf("Reasons = %v, want enclosure-unknown advisory", st.Reasons)
		}
	})

	t.Run("closed vetoes", func(t *testing.T) {
		m, _ := newTestMonitor(t)
		m.UpdateEnclosureStatus(false)
		st := m.Evaluate()
		if st.EnclosureOK {
			t.Error("EnclosureOK = true when closed, want false")
		}
		if st.Action != ActionParkAndWait || st.AlertLevel != AlertCritical {
			t.Errorf("Action/Level = %v/%v, want park_and_wait/critical", st.Action, st.AlertLevel)
		}
	})

	t.Run("check disabled", func(t *testing.T) {
		th := DefaultThresholds()
		th.RequireEnclosureOpen = false
		m, err := NewMonitor(th)
		if err != nil {
			t.Fatal(err)
		}
		m.UpdateEnclosureStatus(false)
		st := m.Evaluate()
		if !st.EnclosureOK {
			t.Error("EnclosureOK = false with check disabled, want true")
		}
		if len(st.Reasons) != 0 {
			t.Errorf("Reasons = %v with check disabled, want none", st.Reasons)
		}
	})
}

func TestDaylight_TooBright(t *testing.T) {
	m, _ := newTestMonitor(t)
	if err := m.UpdateSunAltitude(-5); err != nil {
		t.Fatal(err)
	}

	st := m.Evaluate()
	if st.DaylightOK {
		t.Error("DaylightOK = true with sun at -5°, want false")
	}
	if st.Action != ActionParkAndWait || st.AlertLevel != AlertWarning {
		t.Errorf("Action/Level = %v/%v, want park_and_wait/warning", st.Action, st.AlertLevel)
	}
}

// ─── Priority merge ─────────────────────────────────────────────────────────

func TestPriority_RainAndPowerEmergencyUnion(t *testing.T) {
	m, _ := newTestMonitor(t)

	s := clearSample()
	s.IsRaining = true
	mustUpdateWeather(t, m, s)
	if err := m.UpdatePowerStatus(10, true); err != nil {
		t.Fatal(err)
	}

	st := m.Evaluate()
	checkSafeInvariant(t, st)
	if st.Action != ActionEmergencyClose {
		t.Errorf("Action = %v, want emergency_close", st.Action)
	}
	if st.AlertLevel != AlertEmergency {
		t.Errorf("AlertLevel = %v, want emergency", st.AlertLevel)
	}
	if st.IsSafe {
		t.Error("IsSafe = true, want false")
	}
	// Rain comes from the first evaluator, so it is the lead reason.
	if len(st.Reasons) == 0 || !strings.Contains(st.Reasons[0], "Rain") {
		t.Errorf("Reasons[0] = %v, want rain first", st.Reasons)
	}
}

func TestPriority_CriticalBeatsWarning(t *testing.T) {
	m, _ := newTestMonitor(t)

	// Humidity failure alone is WARNING tier; a closed enclosure
	// escalates the same evaluation to CRITICAL.
	s := clearSample()
	s.HumidityPct = 95
	mustUpdateWeather(t, m, s)
	m.UpdateEnclosureStatus(false)

	st := m.Evaluate()
	if st.AlertLevel != AlertCritical {
		t.Errorf("AlertLevel = %v, want critical", st.AlertLevel)
	}
	if st.Action != ActionParkAndWait {
		t.Errorf("Action = %v, want park_and_wait", st.Action)
	}
}

// ─── End-to-end scenarios ───────────────────────────────────────────────────

func TestScenario_NoSensorsIsSafe(t *testing.T) {
	m, _ := newTestMonitor(t)
	th := DefaultThresholds()
	th.RequireEnclosureOpen = false
	m.thresholds = th

	st := m.Evaluate()
	checkSafeInvariant(t, st)
	if !st.IsSafe {
		t.Errorf("IsSafe = false with no sensors reporting, want true (reasons %v)", st.Reasons)
	}
	if st.Action != ActionSafeToObserve {
		t.Errorf("Action = %v, want safe_to_observe", st.Action)
	}
}

func TestScenario_NominalNight(t *testing.T) {
	m, _ := newTestMonitor(t)

	mustUpdateWeather(t, m, clearSample())
	if err := m.UpdateSunAltitude(-18); err != nil {
		t.Fatal(err)
	}
	m.UpdateEnclosureStatus(true)
	if err := m.UpdatePowerStatus(100, false); err != nil {
		t.Fatal(err)
	}

	st := m.Evaluate()
	checkSafeInvariant(t, st)
	if !st.IsSafe || st.Action != ActionSafeToObserve || st.AlertLevel != AlertInfo {
		t.Errorf("got %v/%v/safe=%v, want safe_to_observe/info/true (reasons %v)",
			st.Action, st.AlertLevel, st.IsSafe, st.Reasons)
	}
}

func TestScenario_RainDuringNominalNight(t *testing.T) {
	m, _ := newTestMonitor(t)

	s := clearSample()
	s.IsRaining = true
	mustUpdateWeather(t, m, s)
	if err := m.UpdateSunAltitude(-18); err != nil {
		t.Fatal(err)
	}
	m.UpdateEnclosureStatus(true)
	if err := m.UpdatePowerStatus(100, false); err != nil {
		t.Fatal(err)
	}

	st := m.Evaluate()
	checkSafeInvariant(t, st)
	if st.IsSafe {
		t.Error("IsSafe = true in rain, want false")
	}
	if st.Action != ActionEmergencyClose || st.AlertLevel != AlertEmergency {
		t.Errorf("got %v/%v, want emergency_close/emergency", st.Action, st.AlertLevel)
	}
	if len(st.Reasons) == 0 || !strings.Contains(st.Reasons[0], "Rain") {
		t.Errorf("Reasons[0] = %v, want rain reference", st.Reasons)
	}
}

func TestScenario_EnclosureClosedOtherwiseNominal(t *testing.T) {
	m, _ := newTestMonitor(t)

	mustUpdateWeather(t, m, clearSample())
	if err := m.UpdateSunAltitude(-18); err != nil {
		t.Fatal(err)
	}
	m.UpdateEnclosureStatus(false)
	if err := m.UpdatePowerStatus(100, false); err != nil {
		t.Fatal(err)
	}

	st := m.Evaluate()
	checkSafeInvariant(t, st)
	if st.IsSafe || st.EnclosureOK {
		t.Errorf("IsSafe/EnclosureOK = %v/%v, want false/false", st.IsSafe, st.EnclosureOK)
	}
	if st.Action != ActionParkAndWait {
		t.Errorf("Action = %v, want park_and_wait", st.Action)
	}
}

// ─── Concurrency ────────────────────────────────────────────────────────────

func TestMonitor_ConcurrentUpdatesAndEvaluate(t *testing.T) {
	m, _ := newTestMonitor(t)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Writers: one per adapter, hammering their own field.
	wg.Add(1)
	go func() {
		defer wg.Done()
		s := clearSample()
		for i := 0; i < 500; i++ {
			s.WindSpeedMPH = float64(i % 40)
			_ = m.UpdateWeather(s)
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = m.UpdatePowerStatus(float64(i%100), i%2 == 0)
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			m.UpdateEnclosureStatus(i%2 == 0)
			_ = m.UpdateSunAltitude(float64(i%90) - 45)
			_ = m.UpdateTargetAltitude(float64(i % 90))
		}
	}()

	// Readers: every produced Status must satisfy the safety invariant.
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					checkSafeInvariant(t, m.Evaluate())
				}
			}
		}()
	}

	// Let writers finish, then stop readers.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	close(stop)
	<-done
}
