package calendar

import (
	"fmt"
	"time"
)

// Breaks converts with the astronomical leap-year break table. Years
// between consecutive breaks follow the 33-year rule; the breaks carry
// the drift.
type Breaks struct{}

var leapBreaks = [...]int{
	-61, 9, 38, 199, 426, 686, 756, 818, 1111, 1181, 1210,
	1635, 2060, 2097, 2192, 2262, 2324, 2394, 2456, 3178,
}

func (Breaks) Name() string { return AlgorithmBreaks }

func (Breaks) ToSecondary(d Date) (SecondaryDate, error) {
	if err := checkSupported(d); err != nil {
		return SecondaryDate{}, err
	}
	return dayToSecondary(gregorianToDay(d.Year(), int(d.Month()), d.Day())), nil
}

func (b Breaks) ToPrimary(year, month, day int) (Date, error) {
	if year < leapBreaks[0] || year >= leapBreaks[len(leapBreaks)-1] {
		return Date{}, fmt.Errorf("%w: year %d", ErrOutOfRange, year)
	}
	return toPrimaryChecked(b, breaksToPrimary, year, month, day)
}

func breaksToPrimary(jy, jm, jd int) Date {
	return dayToGregorian(secondaryToDay(jy, jm, jd))
}

type breaksYear struct {
	leap  int // years since the last leap year, 0 when jy itself is leap
	gy    int // Gregorian year in which jy begins
	march int // March day of 1 Farvardin
}

func breaksCalendar(jy int) breaksYear {
	gy := jy + 621
	leapJ := -14
	jp := leapBreaks[0]
	jump := 0
	for i := 1; i < len(leapBreaks); i++ {
		jm := leapBreaks[i]
		jump = jm - jp
		if jy < jm {
			break
		}
		leapJ += jump/33*8 + (jump%33)/4
		jp = jm
	}
	n := jy - jp

	leapJ += n/33*8 + (n%33+3)/4
	if jump%33 == 4 && jump-n == 4 {
		leapJ++
	}
	leapG := gy/4 - (gy/100+1)*3/4 - 150
	march := 20 + leapJ - leapG

	if jump-n < 6 {
		n = n - jump + (jump+4)/33*33
	}
	leap := ((n+1)%33 - 1) % 4
	if leap == -1 {
		leap = 4
	}
	return breaksYear{leap: leap, gy: gy, march: march}
}

// Julian day number of a Gregorian date.
func gregorianToDay(gy, gm, gd int) int {
	d := (gy+(gm-8)/6+100100)*1461/4 + (153*((gm+9)%12)+2)/5 + gd - 34840408
	return d - (gy+100100+(gm-8)/6)/100*3/4 + 752
}

func dayToGregorian(jdn int) Date {
	j := 4*jdn + 139361631
	j += (4*jdn+183187720)/146097*3/4*4 - 3908
	i := (j%1461)/4*5 + 308
	gd := (i%153)/5 + 1
	gm := (i/153)%12 + 1
	gy := j/1461 - 100100 + (8-gm)/6
	return NewDate(gy, time.Month(gm), gd)
}

func secondaryToDay(jy, jm, jd int) int {
	r := breaksCalendar(jy)
	return gregorianToDay(r.gy, 3, r.march) + (jm-1)*31 - jm/7*(jm-7) + jd - 1
}

func dayToSecondary(jdn int) SecondaryDate {
	gy := dayToGregorian(jdn).Year()
	jy := gy - 621
	r := breaksCalendar(jy)
	farvardin1 := gregorianToDay(gy, 3, r.march)

	k := jdn - farvardin1
	if k >= 0 {
		if k <= 185 {
			return SecondaryDate{Year: jy, Month: 1 + k/31, Day: k%31 + 1}
		}
		k -= 186
	} else {
		jy--
		k += 179
		if r.leap == 1 {
			k++
		}
	}
	return SecondaryDate{Year: jy, Month: 7 + k/30, Day: k%30 + 1}
}
