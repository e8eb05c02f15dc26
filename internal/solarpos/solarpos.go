// Package solarpos computes apparent solar altitude and azimuth for a
// position and UTC instant, using the NOAA general solar position
// equations. The functions are pure and deterministic; the solar geometry
// module consumes them as its ephemeris.
package solarpos

import (
	"math"
	"time"
)

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }

// Position returns the solar altitude and azimuth in degrees for latitude,
// longitude (degrees, east positive) and a UTC instant. Azimuth is measured
// clockwise from true north; altitude is unrefracted.
func Position(lat, lon float64, t time.Time) (altitude, azimuth float64) {
	t = t.UTC()

	jd := float64(t.UnixNano())/1e9/86400.0 + 2440587.5
	jc := (jd - 2451545.0) / 36525.0

	// Geometric mean longitude and anomaly of the sun.
	l0 := math.Mod(280.46646+jc*(36000.76983+0.0003032*jc), 360)
	m := 357.52911 + jc*(35999.05029-0.0001537*jc)
	ecc := 0.016708634 - jc*(0.000042037+0.0000001267*jc)

	center := math.Sin(deg2rad(m))*(1.914602-jc*(0.004817+0.000014*jc)) +
		math.Sin(deg2rad(2*m))*(0.019993-0.000101*jc) +
		math.Sin(deg2rad(3*m))*0.000289

	trueLong := l0 + center
	omega := 125.04 - 1934.136*jc
	appLong := trueLong - 0.00569 - 0.00478*math.Sin(deg2rad(omega))

	// Obliquity of the ecliptic, corrected.
	obliq0 := 23 + (26+(21.448-jc*(46.815+jc*(0.00059-jc*0.001813)))/60)/60
	obliq := obliq0 + 0.00256*math.Cos(deg2rad(omega))

	decl := math.Asin(math.Sin(deg2rad(obliq)) * math.Sin(deg2rad(appLong)))

	// Equation of time, minutes.
	y := math.Tan(deg2rad(obliq / 2))
	y *= y
	eqTime := 4 * rad2deg(
		y*math.Sin(2*deg2rad(l0))-
			2*ecc*math.Sin(deg2rad(m))+
			4*ecc*y*math.Sin(deg2rad(m))*math.Cos(2*deg2rad(l0))-
			0.5*y*y*math.Sin(4*deg2rad(l0))-
			1.25*ecc*ecc*math.Sin(2*deg2rad(m)))

	minutes := float64(t.Hour())*60 + float64(t.Minute()) +
		float64(t.Second())/60 + float64(t.Nanosecond())/6e10

	tst := math.Mod(minutes+eqTime+4*lon, 1440)
	if tst < 0 {
		tst += 1440
	}
	hourAngle := tst/4 - 180
	if tst/4 < 0 {
		hourAngle = tst/4 + 180
	}

	latR := deg2rad(lat)
	haR := deg2rad(hourAngle)

	cosZenith := math.Sin(latR)*math.Sin(decl) +
		math.Cos(latR)*math.Cos(decl)*math.Cos(haR)
	cosZenith = math.Max(-1, math.Min(1, cosZenith))
	zenith := math.Acos(cosZenith)

	altitude = 90 - rad2deg(zenith)

	denom := math.Cos(latR) * math.Sin(zenith)
	if denom == 0 {
		return altitude, 0
	}
	cosAz := (math.Sin(latR)*math.Cos(zenith) - math.Sin(decl)) / denom
	cosAz = math.Max(-1, math.Min(1, cosAz))
	az := rad2deg(math.Acos(cosAz))
	if hourAngle > 0 {
		azimuth = math.Mod(az+180, 360)
	} else {
		azimuth = math.Mod(540-az, 360)
	}
	return altitude, azimuth
}

// Altitude returns the solar altitude in degrees.
func Altitude(lat, lon float64, t time.Time) float64 {
	alt, _ := Position(lat, lon, t)
	return alt
}

// Azimuth returns the solar azimuth in degrees clockwise from north.
func Azimuth(lat, lon float64, t time.Time) float64 {
	_, az := Position(lat, lon, t)
	return az
}
