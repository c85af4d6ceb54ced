package calendar

import "time"

// Arithmetic converts with fixed 33-year cycle arithmetic anchored at
// Gregorian 1600 / secondary 979.
type Arithmetic struct{}

func (Arithmetic) Name() string { return AlgorithmArithmetic }

func (Arithmetic) ToSecondary(d Date) (SecondaryDate, error) {
	if err := checkSupported(d); err != nil {
		return SecondaryDate{}, err
	}
	return arithmeticToSecondary(d.Year(), int(d.Month()), d.Day()), nil
}

func (a Arithmetic) ToPrimary(year, month, day int) (Date, error) {
	return toPrimaryChecked(a, arithmeticToPrimary, year, month, day)
}

func arithmeticToSecondary(gy, gm, gd int) SecondaryDate {
	y := gy - 1600
	days := 365*y + (y+3)/4 - (y+99)/100 + (y+399)/400
	for i := 0; i < gm-1; i++ {
		days += gregorianMonthDays[i]
	}
	if gm > 2 && isGregorianLeap(gy) {
		days++
	}
	days += gd - 1

	j := days - 79
	cycles := j / 12053
	j %= 12053
	jy := 979 + 33*cycles + 4*(j/1461)
	j %= 1461
	if j >= 366 {
		jy += (j - 1) / 365
		j = (j - 1) % 365
	}

	// Esfand takes whatever is left so day 30 of a leap year stays in month 12.
	jm := 1
	for jm < 12 && j >= monthDays[jm-1] {
		j -= monthDays[jm-1]
		jm++
	}
	return SecondaryDate{Year: jy, Month: jm, Day: j + 1}
}

func arithmeticToPrimary(jy, jm, jd int) Date {
	y := jy - 979
	days := 365*y + (y/33)*8 + (y%33+3)/4
	for i := 0; i < jm-1; i++ {
		days += monthDays[i]
	}
	days += jd - 1

	g := days + 79
	gy := 1600 + 400*(g/146097)
	g %= 146097
	if g >= 36525 {
		g--
		gy += 100 * (g / 36524)
		g %= 36524
		if g >= 365 {
			g++
		}
	}
	gy += 4 * (g / 1461)
	g %= 1461
	if g >= 366 {
		g--
		gy += g / 365
		g %= 365
	}

	gm := 0
	for ; gm < 11; gm++ {
		dim := gregorianMonthDays[gm]
		if gm == 1 && isGregorianLeap(gy) {
			dim++
		}
		if g < dim {
			break
		}
		g -= dim
	}
	return NewDate(gy, time.Month(gm+1), g+1)
}
