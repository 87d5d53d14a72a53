package humanize

import (
	"math/rand"
	"testing"
	"time"
)

func newTestModel(cfg Config) *Model {
	return New(cfg, rand.New(rand.NewSource(1)))
}

func TestNormalizeFillsDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{}.Normalize()
	if cfg.ReadingSpeedWPM != defaultReadingWPM {
		t.Fatalf("reading speed = %d, want %d", cfg.ReadingSpeedWPM, defaultReadingWPM)
	}
	if cfg.MinPageDwell <= 0 || cfg.MaxPageDwell <= cfg.MinPageDwell {
		t.Fatalf("dwell bounds not normalized: %v/%v", cfg.MinPageDwell, cfg.MaxPageDwell)
	}
	if cfg.BreakAfterN <= 0 || cfg.LongBreakAfter <= 0 {
		t.Fatalf("break counters not normalized: %d/%d", cfg.BreakAfterN, cfg.LongBreakAfter)
	}
}

func TestNormalizeChanceConventions(t *testing.T) {
	t.Parallel()

	// Zero is an explicit "never" for every chance; operators can switch
	// each behavior off.
	off := Config{}.Normalize()
	if off.ScrollChance != 0 || off.AddressClickChance != 0 || off.QuickSkipChance != 0 {
		t.Fatalf("zero chances must be honored, got %v/%v/%v",
			off.ScrollChance, off.AddressClickChance, off.QuickSkipChance)
	}

	// Negative asks for the default.
	def := Config{ScrollChance: -1, AddressClickChance: -1, QuickSkipChance: -1}.Normalize()
	if def.ScrollChance != defaultScrollChance {
		t.Fatalf("scroll chance = %v, want %v", def.ScrollChance, defaultScrollChance)
	}
	if def.AddressClickChance != defaultAddressChance {
		t.Fatalf("address chance = %v, want %v", def.AddressClickChance, defaultAddressChance)
	}
	if def.QuickSkipChance != defaultQuickSkipChance {
		t.Fatalf("quick skip chance = %v, want %v", def.QuickSkipChance, defaultQuickSkipChance)
	}

	if c := (Config{ScrollChance: 3}).Normalize(); c.ScrollChance != 1 {
		t.Fatalf("chances must clamp to 1, got %v", c.ScrollChance)
	}
}

func TestNormalizeKeepsPartialConfig(t *testing.T) {
	t.Parallel()

	cfg := Config{ReadingSpeedWPM: 100, MinPageDwell: time.Second}.Normalize()
	if cfg.ReadingSpeedWPM != 100 {
		t.Fatalf("reading speed overwritten: %d", cfg.ReadingSpeedWPM)
	}
	if cfg.MinPageDwell != time.Second {
		t.Fatalf("min dwell overwritten: %v", cfg.MinPageDwell)
	}
	if cfg.MaxPageDwell <= cfg.MinPageDwell {
		t.Fatalf("max dwell must exceed min, got %v", cfg.MaxPageDwell)
	}
}

func TestDwellForClampsToBounds(t *testing.T) {
	t.Parallel()

	m := newTestModel(Config{
		ReadingSpeedWPM: 200,
		MinPageDwell:    2 * time.Second,
		MaxPageDwell:    10 * time.Second,
	})

	cases := []struct {
		name  string
		words int
		want  time.Duration
	}{
		{"below minimum", 1, 2 * time.Second},
		{"proportional", 20, 6 * time.Second},
		{"above maximum", 10000, 10 * time.Second},
		{"negative treated as empty", -5, 2 * time.Second},
	}
	for _, tc := range cases {
		if got := m.DwellFor(tc.words); got != tc.want {
			t.Fatalf("%s: DwellFor(%d) = %v, want %v", tc.name, tc.words, got, tc.want)
		}
	}
}

func TestNavDelayWithinBounds(t *testing.T) {
	t.Parallel()

	m := newTestModel(Config{MinNavDelay: time.Second, MaxNavDelay: 3 * time.Second})
	for i := 0; i < 100; i++ {
		d := m.NavDelay()
		if d < time.Second || d >= 3*time.Second {
			t.Fatalf("nav delay %v outside [1s,3s)", d)
		}
	}
}

func TestPickScrollPatternGatedByChance(t *testing.T) {
	t.Parallel()

	never := newTestModel(Config{ScrollChance: 0})
	for i := 0; i < 50; i++ {
		if p := never.PickScrollPattern(); p != ScrollNone {
			t.Fatalf("scroll chance 0 produced pattern %v", p)
		}
	}

	always := newTestModel(Config{ScrollChance: 1})
	seen := map[ScrollPattern]bool{}
	for i := 0; i < 200; i++ {
		p := always.PickScrollPattern()
		if p == ScrollNone {
			t.Fatal("scroll chance 1 produced no-op")
		}
		seen[p] = true
	}
	for _, want := range []ScrollPattern{ScrollDown, ScrollDownThenUp, ScrollDoubleDown} {
		if !seen[want] {
			t.Fatalf("pattern %v never chosen over 200 draws", want)
		}
	}
}

func TestProgressiveScrollBuckets(t *testing.T) {
	t.Parallel()

	cases := []struct {
		index int
		want  int
	}{
		{0, 250},
		{4, 250},
		{5, 700},
		{9, 700},
		{10, 1300},
		{14, 1300},
		{15, 2000},
		{19, 2000},
		{20, 250}, // wraps around with items-per-page
	}
	for _, tc := range cases {
		if got := ProgressiveScroll(tc.index, 20); got != tc.want {
			t.Fatalf("ProgressiveScroll(%d, 20) = %d, want %d", tc.index, got, tc.want)
		}
	}
}

func TestBreakAfterSchedule(t *testing.T) {
	t.Parallel()

	m := newTestModel(Config{
		BreakAfterN:    3,
		ShortBreakMin:  time.Second,
		ShortBreakMax:  2 * time.Second,
		LongBreakAfter: 6,
		LongBreakMin:   time.Minute,
		LongBreakMax:   2 * time.Minute,
	})

	if d := m.BreakAfter(2); d != 0 {
		t.Fatalf("no break expected after 2 items, got %v", d)
	}
	if d := m.BreakAfter(3); d < time.Second || d >= 2*time.Second {
		t.Fatalf("short break out of range: %v", d)
	}
	// Long break takes precedence where both schedules coincide.
	if d := m.BreakAfter(6); d < time.Minute || d >= 2*time.Minute {
		t.Fatalf("long break out of range: %v", d)
	}
	if d := m.BreakAfter(0); d != 0 {
		t.Fatalf("zero processed must not break, got %v", d)
	}
}

func TestQuickSkipChance(t *testing.T) {
	t.Parallel()

	m := newTestModel(Config{QuickSkipChance: 0})
	for i := 0; i < 50; i++ {
		if m.QuickSkip() {
			t.Fatal("quick skip with chance 0")
		}
	}
	m.cfg.QuickSkipChance = 1
	for i := 0; i < 50; i++ {
		if !m.QuickSkip() {
			t.Fatal("no quick skip with chance 1")
		}
	}
}
