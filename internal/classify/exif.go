package classify

import (
	"math"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

// ExtractGPS reads the capture location from the image's EXIF GPS block.
// ok is false when the image carries no usable coordinates.
func ExtractGPS(imageData []byte) (latitude, longitude float64, ok bool) {
	// go-exif panics on some malformed IFDs
	defer func() {
		if recover() != nil {
			latitude, longitude, ok = 0, 0, false
		}
	}()

	rawExif, err := exif.SearchAndExtractExif(imageData)
	if err != nil || rawExif == nil {
		return 0, 0, false
	}

	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return 0, 0, false
	}

	_, index, err := exif.Collect(im, exif.NewTagIndex(), rawExif)
	if err != nil {
		return 0, 0, false
	}

	gpsIfd, err := index.RootIfd.ChildWithIfdPath(exifcommon.IfdGpsInfoStandardIfdIdentity)
	if err != nil {
		return 0, 0, false
	}

	gi, err := gpsIfd.GpsInfo()
	if err != nil {
		return 0, 0, false
	}

	latitude = gi.Latitude.Decimal()
	longitude = gi.Longitude.Decimal()
	if !validCoordinates(latitude, longitude) {
		return 0, 0, false
	}
	return latitude, longitude, true
}

func validCoordinates(latitude, longitude float64) bool {
	if math.IsNaN(latitude) || math.IsNaN(longitude) {
		return false
	}
	return latitude >= -90 && latitude <= 90 && longitude >= -180 && longitude <= 180
}
