package registry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"regsync/internal/timezone"
)

// timestampLayout matches the registry's format once the timezone token has
// been cut out, e.g. "Sat Jul 13 23:00:00 CEST 2024" -> "Sat Jul 13 23:00:00 2024".
const timestampLayout = "Mon Jan 2 15:04:05 2006"

// ErrMalformedTimestamp is returned when a registry timestamp does not have
// the expected structure.
var ErrMalformedTimestamp = errors.New("malformed maintenance timestamp")

// TimestampParser converts the registry's timestamp strings into UTC instants.
type TimestampParser struct {
	zones *timezone.Resolver
}

func NewTimestampParser(zones *timezone.Resolver) *TimestampParser {
	return &TimestampParser{zones: zones}
}

// Parse extracts the timezone token (the second-to-last field), validates the
// remaining fields against the fixed calendar pattern, and realizes the naive
// instant in the resolved zone. The zone's offset is taken at that local
// instant, so daylight-saving dates come out correctly. The result is UTC.
func (p *TimestampParser) Parse(raw string) (time.Time, error) {
	parts := strings.Fields(raw)
	if len(parts) < 3 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, raw)
	}

	token := parts[len(parts)-2]
	rest := make([]string, 0, len(parts)-1)
	rest = append(rest, parts[:len(parts)-2]...)
	rest = append(rest, parts[len(parts)-1])

	naive, err := time.Parse(timestampLayout, strings.Join(rest, " "))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, raw)
	}

	loc, err := p.zones.Resolve(token)
	if err != nil {
		return time.Time{}, err
	}

	local := time.Date(naive.Year(), naive.Month(), naive.Day(),
		naive.Hour(), naive.Minute(), naive.Second(), 0, loc)
	return local.UTC(), nil
}
