// Package newsletter contains the newsletter domain model and the send
// pipeline: component extraction, live data fetching, document assembly and
// dispatch.
package newsletter

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCorruptComponent indicates a component row whose kind tag does not
	// match its populated payload, or whose payload is missing entirely.
	// Treated as a data-integrity failure, never silently defaulted.
	ErrCorruptComponent = errors.New("newsletter: corrupt component")

	ErrUnknownKind     = errors.New("newsletter: unknown component kind")
	ErrInvalidInterval = errors.New("newsletter: invalid delivery interval")
)

// Kind tags a component as one of the three supported content blocks.
type Kind string

const (
	KindWeather Kind = "weather"
	KindCrypto  Kind = "crypto"
	KindQuote   Kind = "quote"
)

// Valid reports whether the kind is one of the closed set.
func (k Kind) Valid() bool {
	switch k {
	case KindWeather, KindCrypto, KindQuote:
		return true
	}
	return false
}

// Interval is the user-declared delivery cadence. Stored metadata only:
// nothing in this service schedules recurring sends.
type Interval string

const (
	IntervalDaily   Interval = "daily"
	IntervalWeekly  Interval = "weekly"
	IntervalMonthly Interval = "monthly"
)

// Valid reports whether the interval is one of the closed set.
func (i Interval) Valid() bool {
	switch i {
	case IntervalDaily, IntervalWeekly, IntervalMonthly:
		return true
	}
	return false
}

// WeatherParams configures a weather component.
type WeatherParams struct {
	City string `json:"city"`
}

// CryptoParams configures a crypto component. Symbols are stored uppercase.
type CryptoParams struct {
	Symbols []string `json:"currencies"`
}

// QuoteParams holds a stored quote. Quotes are kept verbatim, never fetched.
type QuoteParams struct {
	Text   string `json:"quote"`
	Author string `json:"author"`
}

// Component is one content block of a newsletter. Exactly one of the three
// payloads must be populated, and it must match Kind. The invariant is
// enforced at the system boundary (store writes and reads) and re-checked by
// ExtractParams before a send.
type Component struct {
	ID       string         `json:"id"`
	Kind     Kind           `json:"type"`
	Position int            `json:"order"`
	Weather  *WeatherParams `json:"weather,omitempty"`
	Crypto   *CryptoParams  `json:"crypto,omitempty"`
	Quote    *QuoteParams   `json:"quote,omitempty"`
}

// Validate checks the kind/payload consistency invariant.
func (c Component) Validate() error {
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, c.Kind)
	}

	populated := 0
	if c.Weather != nil {
		populated++
	}
	if c.Crypto != nil {
		populated++
	}
	if c.Quote != nil {
		populated++
	}
	if populated != 1 {
		return fmt.Errorf("%w: component %s has %d payloads, want exactly 1", ErrCorruptComponent, c.ID, populated)
	}

	switch c.Kind {
	case KindWeather:
		if c.Weather == nil {
			return fmt.Errorf("%w: component %s tagged %q without weather payload", ErrCorruptComponent, c.ID, c.Kind)
		}
	case KindCrypto:
		if c.Crypto == nil {
			return fmt.Errorf("%w: component %s tagged %q without crypto payload", ErrCorruptComponent, c.ID, c.Kind)
		}
	case KindQuote:
		if c.Quote == nil {
			return fmt.Errorf("%w: component %s tagged %q without quote payload", ErrCorruptComponent, c.ID, c.Kind)
		}
	}

	return nil
}

// ComponentParam is the normalized {kind, params, position} view of a stored
// component, produced by ExtractParams for the send pipeline.
type ComponentParam struct {
	Kind     Kind
	Position int
	Weather  *WeatherParams
	Crypto   *CryptoParams
	Quote    *QuoteParams
}

// ExtractParams validates every component and returns the normalized list,
// preserving each row's persisted position. Any kind/payload mismatch fails
// the whole extraction.
func ExtractParams(components []Component) ([]ComponentParam, error) {
	params := make([]ComponentParam, 0, len(components))
	for _, c := range components {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		params = append(params, ComponentParam{
			Kind:     c.Kind,
			Position: c.Position,
			Weather:  c.Weather,
			Crypto:   c.Crypto,
			Quote:    c.Quote,
		})
	}
	return params, nil
}

// Newsletter is a user-configured newsletter with its ordered components.
type Newsletter struct {
	CreatedAt  time.Time   `json:"created_at"`
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	Title      string      `json:"title"`
	Interval   Interval    `json:"interval"`
	TimeOfDay  string      `json:"time"`
	Token      string      `json:"token"`
	Active     bool        `json:"active"`
	Components []Component `json:"components"`
}
