package mutation

import (
	"github.com/rs/zerolog"

	"github.com/dshills/mutwatch/internal/object"
)

// Reporter is the default handler: it logs each record at warn level and
// does nothing else.
type Reporter struct {
	logger zerolog.Logger
}

// NewReporter creates a reporter writing to logger.
func NewReporter(logger zerolog.Logger) *Reporter {
	return &Reporter{logger: logger}
}

// Report logs r. Its signature matches Handler.
func (rp *Reporter) Report(r Record) {
	ev := rp.logger.Warn().
		Str("kind", r.Kind.String()).
		Str("target", object.Describe(r.Target)).
		Str("property", r.Property)

	switch r.Kind {
	case KindSet:
		ev = ev.Str("value", object.Describe(r.Value))
	case KindDefineProperty:
		if r.Descriptor.IsAccessor() {
			ev = ev.Bool("accessor", true)
		} else {
			ev = ev.Str("value", object.Describe(r.Descriptor.Value))
		}
	case KindSetPrototype:
		ev = ev.Str("prototype", object.Describe(r.Prototype))
	}

	ev.Msg("mutation detected")
}
