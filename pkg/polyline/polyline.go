// Package polyline encodes and decodes line strings in Google's polyline format
// at precision 5. The algorithm is documented at:
// https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// ErrTruncated is returned when the input ends in the middle of a value or
// holds a latitude without its longitude.
var ErrTruncated = errors.New("polyline: truncated input")

const precision = 1e5

// Decode decodes an encoded polyline into a (lon, lat) line string.
func Decode(encoded string) (orb.LineString, error) {
	if encoded == "" {
		return nil, nil
	}

	var ls orb.LineString
	index := 0
	lat := 0
	lon := 0

	for index < len(encoded) {
		latDelta, next, ok := decodeValue(encoded, index)
		if !ok {
			return nil, ErrTruncated
		}
		lonDelta, next, ok := decodeValue(encoded, next)
		if !ok {
			return nil, ErrTruncated
		}
		index = next
		lat += latDelta
		lon += lonDelta

		ls = append(ls, orb.Point{float64(lon) / precision, float64(lat) / precision})
	}

	return ls, nil
}

// decodeValue decodes one value starting at index. ok is false when the input
// ends before the value's last chunk.
func decodeValue(encoded string, index int) (value, next int, ok bool) {
	shift := 0
	result := 0

	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			if result&1 != 0 {
				return ^(result >> 1), index, true
			}
			return result >> 1, index, true
		}
	}

	return 0, index, false
}

// Encode encodes a (lon, lat) line string.
func Encode(ls orb.LineString) string {
	if len(ls) == 0 {
		return ""
	}

	encoded := make([]byte, 0, len(ls)*4)
	prevLat := 0
	prevLon := 0

	for _, p := range ls {
		lat := int(math.Round(p.Lat() * precision))
		lon := int(math.Round(p.Lon() * precision))

		encoded = encodeValue(encoded, lat-prevLat)
		encoded = encodeValue(encoded, lon-prevLon)

		prevLat = lat
		prevLon = lon
	}

	return string(encoded)
}

func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	buf = append(buf, byte(value)+63)

	return buf
}

// Length returns the haversine length of the line string in meters.
func Length(ls orb.LineString) float64 {
	return geo.LengthHaversine(ls)
}
