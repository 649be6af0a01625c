package models

import (
	"sort"
	"time"

	"github.com/lottoml/lotto-engine/internal/errs"
)

const (
	// MinNumber and MaxNumber bound every drawn number
	MinNumber = 1
	MaxNumber = 45
	// NumbersPerDraw is the count of primary numbers in a draw
	NumbersPerDraw = 6
	// DateLayout is the wire and storage format of DrawDate
	DateLayout = "2006-01-02"
)

// Draw represents one official drawing: six primary numbers and a bonus
type Draw struct {
	DrawNo    int       `bson:"drawNo" json:"draw_no"`
	DrawDate  string    `bson:"drawDate" json:"draw_date"`
	Numbers   []int     `bson:"numbers" json:"numbers"`
	Bonus     int       `bson:"bonus" json:"bonus"`
	Prize1st  *int64    `bson:"prize1st,omitempty" json:"prize_1st,omitempty"`
	UpdatedAt time.Time `bson:"updatedAt" json:"-"`
}

// Validate checks the draw invariants and returns an invalid_draw error on violation
func (d *Draw) Validate() error {
	if d.DrawNo <= 0 {
		return errs.New(errs.KindInvalidDraw, "draw_no must be positive, got %d", d.DrawNo)
	}
	if _, err := time.Parse(DateLayout, d.DrawDate); err != nil {
		return errs.New(errs.KindInvalidDraw, "draw %d: draw_date %q is not a YYYY-MM-DD date", d.DrawNo, d.DrawDate)
	}
	if len(d.Numbers) != NumbersPerDraw {
		return errs.New(errs.KindInvalidDraw, "draw %d: expected %d numbers, got %d", d.DrawNo, NumbersPerDraw, len(d.Numbers))
	}
	var seen uint64
	for _, n := range d.Numbers {
		if n < MinNumber || n > MaxNumber {
			return errs.New(errs.KindInvalidDraw, "draw %d: number %d out of range", d.DrawNo, n)
		}
		if seen&(1<<uint(n)) != 0 {
			return errs.New(errs.KindInvalidDraw, "draw %d: duplicate number %d", d.DrawNo, n)
		}
		seen |= 1 << uint(n)
	}
	if d.Bonus < MinNumber || d.Bonus > MaxNumber {
		return errs.New(errs.KindInvalidDraw, "draw %d: bonus %d out of range", d.DrawNo, d.Bonus)
	}
	if seen&(1<<uint(d.Bonus)) != 0 {
		return errs.New(errs.KindInvalidDraw, "draw %d: bonus %d repeats a primary number", d.DrawNo, d.Bonus)
	}
	if d.Prize1st != nil && *d.Prize1st < 0 {
		return errs.New(errs.KindInvalidDraw, "draw %d: prize_1st must not be negative", d.DrawNo)
	}
	return nil
}

// Normalized returns a copy with numbers sorted ascending
func (d Draw) Normalized() Draw {
	nums := append([]int(nil), d.Numbers...)
	sort.Ints(nums)
	d.Numbers = nums
	if d.Prize1st != nil {
		p := *d.Prize1st
		d.Prize1st = &p
	}
	return d
}

// SameContent reports whether two draws carry identical data, ignoring bookkeeping fields
func (d Draw) SameContent(o Draw) bool {
	if d.DrawNo != o.DrawNo || d.DrawDate != o.DrawDate || d.Bonus != o.Bonus {
		return false
	}
	if len(d.Numbers) != len(o.Numbers) {
		return false
	}
	for i := range d.Numbers {
		if d.Numbers[i] != o.Numbers[i] {
			return false
		}
	}
	switch {
	case d.Prize1st == nil && o.Prize1st == nil:
		return true
	case d.Prize1st == nil || o.Prize1st == nil:
		return false
	default:
		return *d.Prize1st == *o.Prize1st
	}
}

// Mask returns the primary numbers as a bit set (bit n set for number n)
func (d Draw) Mask() uint64 {
	var m uint64
	for _, n := range d.Numbers {
		m |= 1 << uint(n)
	}
	return m
}
