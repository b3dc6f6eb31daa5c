package kwp2000

import (
	"fmt"
	"time"

	"github.com/albenik/bcd"
)

// IdentDate decodes a BCD encoded YYYYMMDD date such as the one returned
// for IdentCalibrationDate. The identification option byte is skipped.
func IdentDate(r Response) (time.Time, error) {
	if len(r.Data) < 5 {
		return time.Time{}, fmt.Errorf("identification date too short: % X", r.Data)
	}
	d := r.Data[1:5]
	for _, b := range d {
		if b>>4 > 9 || b&0x0F > 9 {
			return time.Time{}, fmt.Errorf("identification date is not bcd: % X", d)
		}
	}
	year := int(bcd.ToUint16(d[0:2]))
	md := int(bcd.ToUint16(d[2:4]))
	month, day := md/100, md%100
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("invalid identification date % X", d)
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}
