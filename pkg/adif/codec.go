package adif

import (
	"time"

	"github.com/ssargent/qsolog/pkg/catalog"
	"go.uber.org/zap"
)

// DuplicateWindow is how far apart two contacts with the same callsign, band
// and mode may be and still count as the same contact.
const DuplicateWindow = 120 * time.Second

const (
	defaultProgramID      = "QSO Log"
	defaultProgramVersion = "1.0"
)

// Options configures a Codec. Zero values select the defaults.
type Options struct {
	// ProgramID is written as Generated-By and PROGRAMID. Defaults to "QSO Log".
	ProgramID string
	// ProgramVersion is written as PROGRAMVERSION. Defaults to "1.0".
	ProgramVersion string
	// Catalog supplies the band and mode tables. Defaults to catalog.Default().
	Catalog *catalog.Catalog
	Logger  *zap.Logger
}

// Codec exports and imports ADIF text. A Codec holds no per-call state and
// is safe for concurrent use.
type Codec struct {
	programID      string
	programVersion string
	validator      *Validator
	log            *zap.Logger
}

// NewCodec returns a codec configured by opts.
func NewCodec(opts Options) *Codec {
	c := &Codec{
		programID:      opts.ProgramID,
		programVersion: opts.ProgramVersion,
		log:            opts.Logger,
	}
	if c.programID == "" {
		c.programID = defaultProgramID
	}
	if c.programVersion == "" {
		c.programVersion = defaultProgramVersion
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	c.validator = NewValidator(cat)
	return c
}
