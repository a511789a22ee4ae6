package query

import (
	"strconv"
	"strings"
	"time"

	"github.com/mchl/mairix/internal/dateexpr"
	"github.com/mchl/mairix/internal/mairixdb"
)

// DateRange is a parsed d: comma-group; either bound may be absent
// (open-ended, spec §4.12).
type DateRange struct {
	HasStart bool
	Start    int64
	HasEnd   bool
	End      int64
}

func parseDateRange(raw string, now time.Time) (DateRange, error) {
	hasStart, start, hasEnd, end, err := dateexpr.Parse(strings.TrimSpace(raw), now)
	if err != nil {
		return DateRange{}, ErrInvalidQuery
	}
	dr := DateRange{HasStart: hasStart, HasEnd: hasEnd}
	if hasStart {
		dr.Start = start.Unix()
	}
	if hasEnd {
		dr.End = end.Unix()
	}
	return dr, nil
}

func (dr DateRange) matches(date int64) bool {
	if date == 0 {
		return false // unparseable Date: header never matches a strictly-positive range
	}
	if dr.HasStart && date < dr.Start {
		return false
	}
	if dr.HasEnd && date > dr.End {
		return false
	}
	return true
}

// SizeRange is a parsed z: comma-group: N, N-, -N, or N-M, with optional
// K/M binary-multiplier suffixes (spec §4.12).
type SizeRange struct {
	HasMin bool
	Min    int64
	HasMax bool
	Max    int64
}

func parseSizeRange(raw string) (SizeRange, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return SizeRange{}, ErrInvalidQuery
	}
	i := strings.IndexByte(raw, '-')
	if i < 0 {
		v, err := parseSizeValue(raw)
		if err != nil {
			return SizeRange{}, err
		}
		return SizeRange{HasMin: true, Min: v, HasMax: true, Max: v}, nil
	}
	left, right := raw[:i], raw[i+1:]
	var sr SizeRange
	if left != "" {
		v, err := parseSizeValue(left)
		if err != nil {
			return SizeRange{}, err
		}
		sr.HasMin, sr.Min = true, v
	}
	if right != "" {
		v, err := parseSizeValue(right)
		if err != nil {
			return SizeRange{}, err
		}
		sr.HasMax, sr.Max = true, v
	}
	if !sr.HasMin && !sr.HasMax {
		return SizeRange{}, ErrInvalidQuery
	}
	return sr, nil
}

func parseSizeValue(s string) (int64, error) {
	mult := int64(1)
	switch {
	case strings.HasSuffix(s, "K") || strings.HasSuffix(s, "k"):
		mult = 1024
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "M") || strings.HasSuffix(s, "m"):
		mult = 1024 * 1024
		s = s[:len(s)-1]
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidQuery
	}
	return v * mult, nil
}

func (sr SizeRange) matches(size int64) bool {
	if sr.HasMin && size < sr.Min {
		return false
	}
	if sr.HasMax && size > sr.Max {
		return false
	}
	return true
}

// FlagExpr is a parsed F: comma-group: a set of required flags and a set
// of forbidden flags (spec §4.12).
type FlagExpr struct {
	Require uint8
	Forbid  uint8
}

func parseFlagExpr(raw string) (FlagExpr, error) {
	raw = strings.TrimSpace(raw)
	var fe FlagExpr
	i := 0
	for i < len(raw) {
		negate := false
		if raw[i] == '-' {
			negate = true
			i++
			if i >= len(raw) {
				return FlagExpr{}, ErrInvalidQuery
			}
		}
		var bit uint8
		switch raw[i] {
		case 's':
			bit = mairixdb.FlagSeen
		case 'r':
			bit = mairixdb.FlagReplied
		case 'f':
			bit = mairixdb.FlagFlagged
		default:
			return FlagExpr{}, ErrInvalidQuery
		}
		if negate {
			fe.Forbid |= bit
		} else {
			fe.Require |= bit
		}
		i++
	}
	return fe, nil
}

func (fe FlagExpr) matches(flags uint8) bool {
	if flags&fe.Require != fe.Require {
		return false
	}
	if flags&fe.Forbid != 0 {
		return false
	}
	return true
}
