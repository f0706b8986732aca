// Package catalog provides the fixed band, mode, RST and QSL-method tables
// shared by the ADIF codec, manual entry validation and filtering.
//
// A Catalog is immutable once built. Default returns the process-wide
// instance; callers that need a different table set can build their own with
// New.
package catalog

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Band is an amateur band and the frequency, in MHz, at which it starts.
type Band struct {
	Name     string  `json:"name"`
	StartMHz float64 `json:"start_mhz"`
}

// Mode is a transmission mode with a human readable description.
type Mode struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// QSLMethod is a way of confirming a contact.
type QSLMethod struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// bandTolerance is how close, in MHz, a frequency must be to a band's start
// frequency for BandForFrequency to match it.
const bandTolerance = 0.1

var lenientRSTPattern = regexp.MustCompile(`^[1-5][1-9][1-9]?[1-9]?$`)

var standardBands = []Band{
	{"160m", 1.8},
	{"80m", 3.5},
	{"40m", 7.0},
	{"30m", 10.1},
	{"20m", 14.0},
	{"17m", 18.068},
	{"15m", 21.0},
	{"12m", 24.89},
	{"10m", 28.0},
	{"6m", 50.0},
	{"2m", 144.0},
	{"70cm", 432.0},
	{"23cm", 1296.0},
	{"13cm", 2304.0},
	{"9cm", 3456.0},
	{"6cm", 5760.0},
	{"3cm", 10368.0},
}

var standardModes = []Mode{
	{"SSB", "Single Side Band"},
	{"AM", "Amplitude Modulation"},
	{"FM", "Frequency Modulation"},
	{"CW", "Continuous Wave"},
	{"FT8", "FT8 Digital"},
	{"FT4", "FT4 Digital"},
	{"RTTY", "Radio Teletype"},
	{"PSK31", "PSK31 Digital"},
	{"SSTV", "Slow Scan TV"},
	{"JT65", "JT65 Digital"},
	{"JT9", "JT9 Digital"},
	{"WSPR", "Weak Signal Propagation Reporter"},
	{"FSK441", "FSK441 Digital"},
	{"Hellschreiber", "Hellschreiber"},
	{"Olivia", "Olivia Digital"},
	{"Contestia", "Contestia Digital"},
	{"MFSK16", "MFSK16 Digital"},
	{"DominoEX", "DominoEX Digital"},
	{"THOR", "THOR Digital"},
	{"MT63", "MT63 Digital"},
	{"PACTOR", "PACTOR Digital"},
	{"WINMOR", "WINMOR Digital"},
	{"VARA", "VARA Digital"},
	{"Packet", "Packet Radio"},
	{"APRS", "Automatic Packet Reporting System"},
	{"D-Star", "D-Star Digital Voice"},
	{"DMR", "Digital Mobile Radio"},
	{"P25", "Project 25"},
	{"Fusion", "Yaesu System Fusion"},
	{"DPMR", "Digital Private Mobile Radio"},
	{"NXDN", "NXDN Digital"},
	{"POCSAG", "POCSAG Paging"},
	{"ADS-B", "Automatic Dependent Surveillance-Broadcast"},
	{"AIS", "Automatic Identification System"},
	{"WEFAX", "Weather Facsimile"},
	{"NAVTEX", "Navigational Telex"},
	{"DSC", "Digital Selective Calling"},
}

var standardQSLMethods = []QSLMethod{
	{"Bureau", "QSL Bureau"},
	{"Direct", "Direct Mail"},
	{"LoTW", "Logbook of the World"},
	{"Manager", "QSL Manager"},
	{"Paper", "Paper QSL Card"},
	{"eQSL", "eQSL.cc"},
}

// Catalog is an immutable set of lookup tables.
type Catalog struct {
	bands      []Band
	modes      []Mode
	qslMethods []QSLMethod

	bandIndex map[string]int
	modeIndex map[string]int

	contest []string
	digital []string
	voice   []string
}

// New builds a catalog from the given tables. Bands are kept in ascending
// frequency order and modes in ascending name order.
func New(bands []Band, modes []Mode, methods []QSLMethod) *Catalog {
	c := &Catalog{
		bands:      append([]Band(nil), bands...),
		modes:      append([]Mode(nil), modes...),
		qslMethods: append([]QSLMethod(nil), methods...),
		bandIndex:  make(map[string]int, len(bands)),
		modeIndex:  make(map[string]int, len(modes)),
	}
	sort.SliceStable(c.bands, func(i, j int) bool { return c.bands[i].StartMHz < c.bands[j].StartMHz })
	sort.SliceStable(c.modes, func(i, j int) bool { return c.modes[i].Name < c.modes[j].Name })
	for i, b := range c.bands {
		c.bandIndex[strings.ToLower(b.Name)] = i
	}
	for i, m := range c.modes {
		c.modeIndex[strings.ToLower(m.Name)] = i
	}
	return c
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c := New(standardBands, standardModes, standardQSLMethods)
	c.contest = []string{"SSB", "CW", "FT8", "FT4", "RTTY", "PSK31"}
	c.digital = []string{"FT8", "FT4", "RTTY", "PSK31", "JT65", "JT9", "WSPR", "FSK441",
		"Olivia", "Contestia", "MFSK16", "DominoEX", "THOR", "MT63"}
	c.voice = []string{"SSB", "AM", "FM", "D-Star", "DMR", "P25", "Fusion", "DPMR", "NXDN"}
	return c
})

// Default returns the standard amateur radio catalog.
func Default() *Catalog {
	return defaultCatalog()
}

// Bands returns a copy of the band table in frequency order.
func (c *Catalog) Bands() []Band {
	return append([]Band(nil), c.bands...)
}

// BandNames returns band names in frequency order.
func (c *Catalog) BandNames() []string {
	names := make([]string, len(c.bands))
	for i, b := range c.bands {
		names[i] = b.Name
	}
	return names
}

// Modes returns a copy of the mode table in name order.
func (c *Catalog) Modes() []Mode {
	return append([]Mode(nil), c.modes...)
}

// ModeNames returns mode names in sorted order.
func (c *Catalog) ModeNames() []string {
	names := make([]string, len(c.modes))
	for i, m := range c.modes {
		names[i] = m.Name
	}
	return names
}

// IsBand reports whether name is a known band, ignoring case.
func (c *Catalog) IsBand(name string) bool {
	_, ok := c.bandIndex[strings.ToLower(name)]
	return ok
}

// IsMode reports whether name is a known mode, ignoring case.
func (c *Catalog) IsMode(name string) bool {
	_, ok := c.modeIndex[strings.ToLower(name)]
	return ok
}

// FrequencyForBand returns the start frequency of a band.
func (c *Catalog) FrequencyForBand(name string) (float64, bool) {
	i, ok := c.bandIndex[strings.ToLower(name)]
	if !ok {
		return 0, false
	}
	return c.bands[i].StartMHz, true
}

// BandForFrequency returns the band whose start frequency lies within
// 0.1 MHz of mhz.
func (c *Catalog) BandForFrequency(mhz float64) (string, bool) {
	for _, b := range c.bands {
		if math.Abs(b.StartMHz-mhz) < bandTolerance {
			return b.Name, true
		}
	}
	return "", false
}

// ModeDescription returns the description of a mode, ignoring case.
func (c *Catalog) ModeDescription(name string) (string, bool) {
	i, ok := c.modeIndex[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	return c.modes[i].Description, true
}

// ContestModes returns the modes commonly used in contests.
func (c *Catalog) ContestModes() []string { return append([]string(nil), c.contest...) }

// DigitalModes returns the data modes.
func (c *Catalog) DigitalModes() []string { return append([]string(nil), c.digital...) }

// VoiceModes returns the phone modes, analogue and digital.
func (c *Catalog) VoiceModes() []string { return append([]string(nil), c.voice...) }

// QSLMethods returns the QSL methods sorted by code.
func (c *Catalog) QSLMethods() []QSLMethod {
	return append([]QSLMethod(nil), c.qslMethods...)
}

// QSLMethodDescription returns the description for a QSL method code.
func (c *Catalog) QSLMethodDescription(code string) (string, bool) {
	for _, m := range c.qslMethods {
		if m.Code == code {
			return m.Description, true
		}
	}
	return "", false
}

// IsValidRST reports whether rst looks like a signal report: readability
// 1-5, strength 1-9, and an optional tone and extra digit. "59", "599" and
// "5999" are all accepted.
func IsValidRST(rst string) bool {
	return lenientRSTPattern.MatchString(rst)
}

// FormatRST joins report components. tone may be empty for phone reports.
func FormatRST(readability, strength, tone string) string {
	return readability + strength + tone
}
