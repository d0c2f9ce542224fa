package matcher

import (
	"math"
	"strings"

	"github.com/trialscout/trialscout/internal/model"
)

const earthRadiusMiles = 3958.8

// haversineMiles returns the great-circle distance between two points in
// miles.
func haversineMiles(a, b model.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(h))
}

// nearestSiteMiles returns the distance from the patient to the closest trial
// site with coordinates, or false when neither side has a usable location.
func nearestSiteMiles(loc *model.PatientLocation, sites []model.TrialSite) (float64, bool) {
	if loc == nil || loc.Coord == nil {
		return 0, false
	}

	best := math.Inf(1)
	for _, s := range sites {
		if s.Lat == nil || s.Lng == nil {
			continue
		}
		d := haversineMiles(*loc.Coord, model.GeoPoint{Lat: *s.Lat, Lng: *s.Lng})
		if d < best {
			best = d
		}
	}
	if math.IsInf(best, 1) {
		return 0, false
	}
	return best, true
}

// sameState reports whether any trial site shares the patient's state. It is
// the coarse fallback when coordinates are unavailable.
func sameState(loc *model.PatientLocation, sites []model.TrialSite) bool {
	if loc == nil || loc.State == "" {
		return false
	}
	for _, s := range sites {
		if strings.EqualFold(s.State, loc.State) {
			return true
		}
	}
	return false
}
