// Package humanize models the timing and gesture behavior of a human
// visitor: navigation delays, reading dwell, scroll gestures, and break
// scheduling. Everything is a pure function over a Config plus an injected
// random source, so the orchestrator's tests can run without sleeping.
package humanize

import (
	"math/rand"
	"time"
)

// Config holds every knob of the humanization model. All fields are
// optional; Normalize fills in defaults so partial configs are legal.
type Config struct {
	Warmup             time.Duration `mapstructure:"warmup" json:"warmup"`
	ScrollChance       float64       `mapstructure:"scroll_chance" json:"scroll_chance"`
	AddressClickChance float64       `mapstructure:"address_click_chance" json:"address_click_chance"`
	QuickSkipChance    float64       `mapstructure:"quick_skip_chance" json:"quick_skip_chance"`
	ReadingSpeedWPM    int           `mapstructure:"reading_speed_wpm" json:"reading_speed_wpm"`
	MinNavDelay        time.Duration `mapstructure:"min_nav_delay" json:"min_nav_delay"`
	MaxNavDelay        time.Duration `mapstructure:"max_nav_delay" json:"max_nav_delay"`
	MinPageDwell       time.Duration `mapstructure:"min_page_dwell" json:"min_page_dwell"`
	MaxPageDwell       time.Duration `mapstructure:"max_page_dwell" json:"max_page_dwell"`
	BreakAfterN        int           `mapstructure:"break_after_n" json:"break_after_n"`
	ShortBreakMin      time.Duration `mapstructure:"short_break_min" json:"short_break_min"`
	ShortBreakMax      time.Duration `mapstructure:"short_break_max" json:"short_break_max"`
	LongBreakAfter     int           `mapstructure:"long_break_after" json:"long_break_after"`
	LongBreakMin       time.Duration `mapstructure:"long_break_min" json:"long_break_min"`
	LongBreakMax       time.Duration `mapstructure:"long_break_max" json:"long_break_max"`
}

// Defaults mirrored by Normalize.
const (
	defaultWarmup          = 2 * time.Second
	defaultScrollChance    = 0.7
	defaultAddressChance   = 0.25
	defaultQuickSkipChance = 0.1
	defaultReadingWPM      = 220
	defaultMinNavDelay     = 1500 * time.Millisecond
	defaultMaxNavDelay     = 4 * time.Second
	defaultMinPageDwell    = 4 * time.Second
	defaultMaxPageDwell    = 45 * time.Second
	defaultBreakAfterN     = 8
	defaultShortBreakMin   = 30 * time.Second
	defaultShortBreakMax   = 90 * time.Second
	defaultLongBreakAfter  = 25
	defaultLongBreakMin    = 4 * time.Minute
	defaultLongBreakMax    = 9 * time.Minute
)

// Normalize returns a copy of c with every zero field replaced by its
// default. Chances are clamped to [0, 1]; zero is an explicit "never", a
// negative value asks for the default.
func (c Config) Normalize() Config {
	if c.Warmup <= 0 {
		c.Warmup = defaultWarmup
	}
	if c.ScrollChance < 0 {
		c.ScrollChance = defaultScrollChance
	}
	if c.AddressClickChance < 0 {
		c.AddressClickChance = defaultAddressChance
	}
	if c.QuickSkipChance < 0 {
		c.QuickSkipChance = defaultQuickSkipChance
	}
	if c.ReadingSpeedWPM <= 0 {
		c.ReadingSpeedWPM = defaultReadingWPM
	}
	if c.MinNavDelay <= 0 {
		c.MinNavDelay = defaultMinNavDelay
	}
	if c.MaxNavDelay <= c.MinNavDelay {
		c.MaxNavDelay = c.MinNavDelay + (defaultMaxNavDelay - defaultMinNavDelay)
	}
	if c.MinPageDwell <= 0 {
		c.MinPageDwell = defaultMinPageDwell
	}
	if c.MaxPageDwell <= c.MinPageDwell {
		c.MaxPageDwell = c.MinPageDwell + (defaultMaxPageDwell - defaultMinPageDwell)
	}
	if c.BreakAfterN <= 0 {
		c.BreakAfterN = defaultBreakAfterN
	}
	if c.ShortBreakMin <= 0 {
		c.ShortBreakMin = defaultShortBreakMin
	}
	if c.ShortBreakMax <= c.ShortBreakMin {
		c.ShortBreakMax = c.ShortBreakMin + (defaultShortBreakMax - defaultShortBreakMin)
	}
	if c.LongBreakAfter <= 0 {
		c.LongBreakAfter = defaultLongBreakAfter
	}
	if c.LongBreakMin <= 0 {
		c.LongBreakMin = defaultLongBreakMin
	}
	if c.LongBreakMax <= c.LongBreakMin {
		c.LongBreakMax = c.LongBreakMin + (defaultLongBreakMax - defaultLongBreakMin)
	}
	for _, p := range []*float64{&c.ScrollChance, &c.AddressClickChance, &c.QuickSkipChance} {
		if *p > 1 {
			*p = 1
		}
	}
	return c
}

// ScrollPattern names a coarse scroll gesture performed while "reading".
type ScrollPattern int

// Supported scroll gestures, from least to most motion.
const (
	ScrollNone ScrollPattern = iota
	ScrollDown
	ScrollDownThenUp
	ScrollDoubleDown
)

// Model derives human-plausible timings from a normalized Config.
type Model struct {
	cfg Config
	rng *rand.Rand
}

// New builds a Model. A nil rng falls back to a time-seeded source.
func New(cfg Config, rng *rand.Rand) *Model {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Model{cfg: cfg.Normalize(), rng: rng}
}

// Config returns the normalized configuration backing the model.
func (m *Model) Config() Config { return m.cfg }

// DwellFor converts a word count into a reading pause: words at the
// configured reading speed, clamped to [MinPageDwell, MaxPageDwell].
func (m *Model) DwellFor(wordCount int) time.Duration {
	if wordCount < 0 {
		wordCount = 0
	}
	d := time.Duration(float64(wordCount) / float64(m.cfg.ReadingSpeedWPM) * float64(time.Minute))
	if d < m.cfg.MinPageDwell {
		return m.cfg.MinPageDwell
	}
	if d > m.cfg.MaxPageDwell {
		return m.cfg.MaxPageDwell
	}
	return d
}

// NavDelay returns a random pre-navigation pause in [MinNavDelay, MaxNavDelay].
func (m *Model) NavDelay() time.Duration {
	return m.between(m.cfg.MinNavDelay, m.cfg.MaxNavDelay)
}

// Warmup returns the initial settle delay applied once per incarnation.
func (m *Model) Warmup() time.Duration { return m.cfg.Warmup }

// QuickSkip reports whether this target should be skipped entirely,
// simulating a visitor who opens an item and immediately loses interest.
func (m *Model) QuickSkip() bool {
	return m.rng.Float64() < m.cfg.QuickSkipChance
}

// AddressClick reports whether to simulate an extra address/map glance.
// Timing-only: it never changes what gets extracted.
func (m *Model) AddressClick() bool {
	return m.rng.Float64() < m.cfg.AddressClickChance
}

// PickScrollPattern chooses a reading gesture. With probability
// 1-ScrollChance no scrolling happens at all; otherwise the three motion
// patterns are equally likely.
func (m *Model) PickScrollPattern() ScrollPattern {
	if m.rng.Float64() >= m.cfg.ScrollChance {
		return ScrollNone
	}
	switch m.rng.Intn(3) {
	case 0:
		return ScrollDown
	case 1:
		return ScrollDownThenUp
	default:
		return ScrollDoubleDown
	}
}

// ProgressiveScroll maps a position within the listing page to a scroll
// depth in pixels: items further down the page need a deeper scan to come
// into view, simulating a natural top-to-bottom read of the listing.
func ProgressiveScroll(indexWithinPage, itemsPerPage int) int {
	if itemsPerPage <= 0 {
		itemsPerPage = 20
	}
	idx := indexWithinPage % itemsPerPage
	switch {
	case idx < 5:
		return 250
	case idx < 10:
		return 700
	case idx < 15:
		return 1300
	default:
		return 2000
	}
}

// BreakAfter returns how long to rest after having processed n items.
// Every LongBreakAfter items a long break wins; every BreakAfterN items a
// short break applies; otherwise zero.
func (m *Model) BreakAfter(processed int) time.Duration {
	if processed <= 0 {
		return 0
	}
	if processed%m.cfg.LongBreakAfter == 0 {
		return m.between(m.cfg.LongBreakMin, m.cfg.LongBreakMax)
	}
	if processed%m.cfg.BreakAfterN == 0 {
		return m.between(m.cfg.ShortBreakMin, m.cfg.ShortBreakMax)
	}
	return 0
}

func (m *Model) between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(m.rng.Int63n(int64(hi-lo)))
}
