package document

const (
	DefaultMaxBytes     int64 = 10 * 1024 * 1024
	DefaultMaxUnits           = 100
	DefaultMaxTextBytes       = 2 * 1024 * 1024
)

// Limits bound the work a single Extract call may do.
type Limits struct {
	MaxBytes     int64 `json:"maxBytes" yaml:"maxBytes"`
	MaxUnits     int   `json:"maxUnits" yaml:"maxUnits"`
	MaxTextBytes int   `json:"maxTextBytes" yaml:"maxTextBytes"`
}

func DefaultLimits() Limits {
	return Limits{
		MaxBytes:     DefaultMaxBytes,
		MaxUnits:     DefaultMaxUnits,
		MaxTextBytes: DefaultMaxTextBytes,
	}
}

// WithDefaults fills zero or negative fields from DefaultLimits.
func (l Limits) WithDefaults() Limits {
	d := DefaultLimits()
	if l.MaxBytes <= 0 {
		l.MaxBytes = d.MaxBytes
	}
	if l.MaxUnits <= 0 {
		l.MaxUnits = d.MaxUnits
	}
	if l.MaxTextBytes <= 0 {
		l.MaxTextBytes = d.MaxTextBytes
	}
	return l
}
