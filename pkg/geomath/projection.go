package geomath

import (
	"errors"
	"fmt"
	"math"
)

// Family names a projection formula.  The renderer supports exactly three
// families; every region in the catalog declares which one fits its shape
// and extent.
type Family string

const (
	// Equirectangular maps longitude and latitude straight to X and Y
	// with an aspect correction at a reference latitude.  Valid
	// everywhere, least accurate over large areas.  Units: degrees.
	Equirectangular Family = "equirectangular"

	// ZonedConformal is a UTM-style ellipsoidal transverse Mercator
	// projection.  Accurate near its zone's central meridian and
	// undefined use far from it, so callers must pre-filter points to
	// the matching region.  Units: meters.
	ZonedConformal Family = "zoned-conformal"

	// ConicEqualArea is an Albers-style conic projection parameterized
	// by two standard parallels.  Preserves area, not angles; the usual
	// pick for country-scale regions.  Units: meters.
	ConicEqualArea Family = "conic-equal-area"
)

// ErrOutOfZone reports that a point was handed to a zoned conformal
// projection outside the zone's validity band.  This is an upstream
// filtering bug, not a data problem, so the projection refuses to emit a
// silently distorted coordinate.
var ErrOutOfZone = errors.New("point outside projection zone")

// zoneHalfWidthDeg is the accepted distance from a zone's central
// meridian.  The nominal UTM band is ±3° plus overlap; we allow ±6° so a
// region box that straddles a zone edge still projects, and fail loudly
// beyond that.
const zoneHalfWidthDeg = 6.0

// WGS84 ellipsoid constants for the zoned conformal family.  The other
// two families use the spherical radius; mixing models is fine because
// planar outputs from different projections never share a document.
const (
	wgs84SemiMajor        = 6378137.0
	wgs84Flattening       = 1.0 / 298.257223563
	utmScaleFactor        = 0.9996
	utmFalseEasting       = 500000.0
	utmFalseNorthingSouth = 10000000.0
)

// Projection is a tagged union over the three families.  Only the fields
// belonging to the selected family are meaningful; Project dispatches on
// Family in a single switch so the transform stays pure and inspectable.
type Projection struct {
	Family Family

	// Equirectangular: reference latitude for the aspect correction,
	// normally the center latitude of the data bounds.
	RefLat float64

	// ZonedConformal: UTM zone number (1..60) and hemisphere.
	Zone  int
	South bool

	// ConicEqualArea: two standard parallels, the latitude and central
	// meridian of the projection origin.
	StdLat1    float64
	StdLat2    float64
	OriginLat  float64
	CentralLon float64
}

// String renders the projection with only its own parameters, for logs
// and the -list-regions output.
func (p Projection) String() string {
	switch p.Family {
	case ZonedConformal:
		hemi := "N"
		if p.South {
			hemi = "S"
		}
		return fmt.Sprintf("%s zone %d%s", p.Family, p.Zone, hemi)
	case ConicEqualArea:
		return fmt.Sprintf("%s parallels %.1f/%.1f origin %.1f,%.1f",
			p.Family, p.StdLat1, p.StdLat2, p.OriginLat, p.CentralLon)
	default:
		return fmt.Sprintf("%s ref-lat %.2f", Equirectangular, p.RefLat)
	}
}

// CentralMeridian returns the longitude of a UTM zone's central meridian.
func CentralMeridian(zone int) float64 {
	return float64(zone)*6 - 183
}

// ZoneFor returns the UTM zone number covering the longitude.
func ZoneFor(lon float64) int {
	zone := int(math.Floor((lon+180)/6)) + 1
	if zone < 1 {
		zone = 1
	}
	if zone > 60 {
		zone = 60
	}
	return zone
}

// Project maps a geographic point to planar coordinates.  The transform
// is deterministic: the same Projection and Point always yield the same
// Planar up to floating-point arithmetic.  Only the zoned family can
// fail, and only when handed a point outside its validity band.
func (p Projection) Project(pt Point) (Planar, error) {
	switch p.Family {
	case ZonedConformal:
		return p.projectZoned(pt)
	case ConicEqualArea:
		return p.projectConic(pt), nil
	default:
		return p.projectEquirectangular(pt), nil
	}
}

// projectEquirectangular flattens the sphere with a cosine aspect
// correction at the reference latitude.  X and Y stay in degrees, which
// keeps the inverse exact away from the poles.
func (p Projection) projectEquirectangular(pt Point) Planar {
	return Planar{
		X: pt.Lon * math.Cos(p.RefLat*math.Pi/180),
		Y: pt.Lat,
	}
}

// Unproject inverts the equirectangular transform.  Other families have
// no inverse here because nothing in the pipeline needs one; callers get
// an error rather than a wrong answer.
func (p Projection) Unproject(pl Planar) (Point, error) {
	if p.Family != Equirectangular {
		return Point{}, fmt.Errorf("unproject: %s has no inverse", p.Family)
	}
	cos := math.Cos(p.RefLat * math.Pi / 180)
	if cos == 0 {
		return Point{}, fmt.Errorf("unproject: reference latitude %.2f degenerates at the pole", p.RefLat)
	}
	return Point{Lat: pl.Y, Lon: pl.X / cos}, nil
}

// projectZoned is the standard ellipsoidal transverse Mercator series
// used by UTM, with false easting/northing so coordinates stay positive
// within the zone.
func (p Projection) projectZoned(pt Point) (Planar, error) {
	lon0 := CentralMeridian(p.Zone)
	if math.Abs(pt.Lon-lon0) > zoneHalfWidthDeg {
		return Planar{}, fmt.Errorf("zone %d (meridian %.0f): lon %.4f: %w", p.Zone, lon0, pt.Lon, ErrOutOfZone)
	}

	a := wgs84SemiMajor
	f := wgs84Flattening
	e2 := f * (2 - f)
	ep2 := e2 / (1 - e2)

	lat := pt.Lat * math.Pi / 180
	dLon := (pt.Lon - lon0) * math.Pi / 180

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	tanLat := math.Tan(lat)

	n := a / math.Sqrt(1-e2*sinLat*sinLat)
	t := tanLat * tanLat
	c := ep2 * cosLat * cosLat
	aa := cosLat * dLon

	// Meridional arc length from the equator.
	m := a * ((1-e2/4-3*e2*e2/64-5*e2*e2*e2/256)*lat -
		(3*e2/8+3*e2*e2/32+45*e2*e2*e2/1024)*math.Sin(2*lat) +
		(15*e2*e2/256+45*e2*e2*e2/1024)*math.Sin(4*lat) -
		(35*e2*e2*e2/3072)*math.Sin(6*lat))

	x := utmScaleFactor*n*(aa+(1-t+c)*aa*aa*aa/6+
		(5-18*t+t*t+72*c-58*ep2)*math.Pow(aa, 5)/120) + utmFalseEasting
	y := utmScaleFactor * (m + n*tanLat*(aa*aa/2+
		(5-t+9*c+4*c*c)*math.Pow(aa, 4)/24+
		(61-58*t+t*t+600*c-330*ep2)*math.Pow(aa, 6)/720))
	if p.South {
		y += utmFalseNorthingSouth
	}
	return Planar{X: x, Y: y}, nil
}

// projectConic is the spherical Albers equal-area formula.  Distortion is
// minimized between the two standard parallels, which the region catalog
// places at roughly one-sixth in from the region's latitude edges.
func (p Projection) projectConic(pt Point) Planar {
	rad := math.Pi / 180
	phi := pt.Lat * rad
	phi0 := p.OriginLat * rad
	phi1 := p.StdLat1 * rad
	phi2 := p.StdLat2 * rad
	lam := (pt.Lon - p.CentralLon) * rad

	n := (math.Sin(phi1) + math.Sin(phi2)) / 2
	if n == 0 {
		// Symmetric parallels about the equator collapse the cone to a
		// cylinder; fall back to the limiting Lambert cylindrical form.
		return Planar{
			X: EarthRadiusMeters * lam * math.Cos(phi1),
			Y: EarthRadiusMeters * math.Sin(phi) / math.Cos(phi1),
		}
	}
	cc := math.Cos(phi1)*math.Cos(phi1) + 2*n*math.Sin(phi1)
	rho := EarthRadiusMeters * math.Sqrt(cc-2*n*math.Sin(phi)) / n
	rho0 := EarthRadiusMeters * math.Sqrt(cc-2*n*math.Sin(phi0)) / n
	theta := n * lam

	return Planar{
		X: rho * math.Sin(theta),
		Y: rho0 - rho*math.Cos(theta),
	}
}
