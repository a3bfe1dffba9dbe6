package timezone

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	// Fallback zone data for hosts without a system zoneinfo database.
	_ "time/tzdata"
)

// ErrUnresolvable is returned when a timezone token matches no known zone.
var ErrUnresolvable = errors.New("unresolvable timezone")

// The registry tags its timestamps with whatever the JVM on its side prints:
// sometimes a full IANA identifier, sometimes a bare hour offset, usually a
// three/four-letter abbreviation like "CEST". Abbreviations are not unique, so
// the Resolver keeps an index of every abbreviation each known zone has used
// and breaks ties deterministically.
type Resolver struct {
	zones    map[string]*time.Location   // canonical IANA identifier -> zone
	byAbbrev map[string][]*time.Location // upper-cased abbreviation -> candidates, shortest identifier first
}

// NewResolver builds a resolver over the given IANA zone identifiers.
// Identifiers that cannot be loaded are skipped; an empty result is an error.
func NewResolver(names []string) (*Resolver, error) {
	r := &Resolver{
		zones:    make(map[string]*time.Location, len(names)),
		byAbbrev: make(map[string][]*time.Location),
	}

	for _, name := range names {
		loc, err := time.LoadLocation(name)
		if err != nil {
			// System zoneinfo trees contain non-zone files; ignore them.
			continue
		}
		r.zones[name] = loc
		for _, abbrev := range abbreviations(loc) {
			key := strings.ToUpper(abbrev)
			if !containsLocation(r.byAbbrev[key], loc) {
				r.byAbbrev[key] = append(r.byAbbrev[key], loc)
			}
		}
	}

	if len(r.zones) == 0 {
		return nil, errors.New("no usable timezone identifiers")
	}

	for _, candidates := range r.byAbbrev {
		sort.Slice(candidates, func(i, j int) bool {
			a, b := candidates[i].String(), candidates[j].String()
			if len(a) != len(b) {
				return len(a) < len(b)
			}
			return a < b
		})
	}

	return r, nil
}

// Resolve maps a raw timezone token to a concrete zone. Tokens are tried as an
// exact IANA identifier first, then as a signed hour offset, then as an
// abbreviation. Abbreviations matching several zones resolve to the one with
// the shortest identifier.
func (r *Resolver) Resolve(token string) (*time.Location, error) {
	if loc, ok := r.zones[token]; ok {
		return loc, nil
	}

	if offset, err := strconv.Atoi(token); err == nil {
		return fixedOffsetZone(offset), nil
	}

	candidates := r.byAbbrev[strings.ToUpper(token)]
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnresolvable, token)
	}
	return candidates[0], nil
}

// fixedOffsetZone synthesizes a zone for a bare hour offset. The registry's
// sign convention is kept as-is, so the zone is built with time.FixedZone
// rather than loading the IANA Etc/ zone of the same name, which inverts it.
func fixedOffsetZone(hours int) *time.Location {
	name := "Etc/GMT" + strconv.Itoa(hours)
	if hours > 0 {
		name = "Etc/GMT+" + strconv.Itoa(hours)
	}
	return time.FixedZone(name, hours*3600)
}

// abbreviations returns the abbreviations the zone is known to have used.
// Go exposes no transition table, so the zone is sampled four times a year
// across its recorded history plus the present; quarterly samples bracket
// every seasonal rule observed in practice. An abbreviation in force only
// within a window containing none of the sample dates is still missed.
func abbreviations(loc *time.Location) []string {
	seen := make(map[string]struct{})
	now := time.Now()

	for year := 1900; year <= now.Year()+1; year++ {
		for _, month := range []time.Month{time.January, time.April, time.July, time.October} {
			name, _ := time.Date(year, month, 1, 12, 0, 0, 0, time.UTC).In(loc).Zone()
			seen[name] = struct{}{}
		}
	}
	name, _ := now.In(loc).Zone()
	seen[name] = struct{}{}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	return out
}

func containsLocation(locs []*time.Location, loc *time.Location) bool {
	for _, l := range locs {
		if l == loc {
			return true
		}
	}
	return false
}

// zoneDirs are the zoneinfo trees checked in order, matching the places the
// time package itself looks.
var zoneDirs = []string{
	"/usr/share/zoneinfo",
	"/usr/share/lib/zoneinfo",
	"/usr/lib/locale/TZ",
}

// SystemZoneNames enumerates the IANA identifiers available on this host.
// Hosts without any zoneinfo tree (scratch containers) get the compiled-in
// list instead: the embedded time/tzdata copy can load zones by name but
// cannot enumerate them.
func SystemZoneNames() []string {
	return zoneNamesWithFallback(zoneDirs)
}

func zoneNamesWithFallback(dirs []string) []string {
	for _, dir := range dirs {
		if names := zoneNamesFromDir(dir); len(names) > 0 {
			return names
		}
	}
	return fallbackZoneNames
}

func zoneNamesFromDir(dir string) []string {
	var names []string
	fsys := os.DirFS(dir)
	_ = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		base := d.Name()
		if d.IsDir() {
			// The posix/ and right/ trees duplicate every zone.
			if p != "." && (base == "posix" || base == "right") {
				return fs.SkipDir
			}
			return nil
		}
		// Zone files start with an upper-case letter; metadata files
		// (zone.tab, leapseconds, tzdata.zi, ...) do not, or carry a dot.
		if strings.Contains(base, ".") || base[0] < 'A' || base[0] > 'Z' {
			return nil
		}
		names = append(names, p)
		return nil
	})
	sort.Strings(names)
	return names
}
