package fat

import "time"

// PackTime packs t into the FAT on-disk timestamp format.
func PackTime(t time.Time) uint32 {
	return uint32(t.Year()-1980)<<25 |
		uint32(t.Month())<<21 |
		uint32(t.Day())<<16 |
		uint32(t.Hour())<<11 |
		uint32(t.Minute())<<5 |
		uint32(t.Second()/2)
}

// UnpackTime is the inverse of PackTime. Seconds are stored with two
// second granularity.
func UnpackTime(v uint32) time.Time {
	return time.Date(
		int(v>>25)+1980,
		time.Month(v>>21&0xf),
		int(v>>16&0x1f),
		int(v>>11&0x1f),
		int(v>>5&0x3f),
		int(v&0x1f)*2,
		0,
		time.Local,
	)
}
