package simulation

import (
	"math/bits"

	"github.com/lottoml/lotto-engine/internal/models"
)

// Tier is a prize class of one simulated ticket
type Tier int

const (
	NoPrize Tier = iota
	FirstPlace
	SecondPlace
	ThirdPlace
	FourthPlace
	FifthPlace
	tierCount
)

var tierKeys = [tierCount]string{
	NoPrize:     "no_prize",
	FirstPlace:  "1st_place",
	SecondPlace: "2nd_place",
	ThirdPlace:  "3rd_place",
	FourthPlace: "4th_place",
	FifthPlace:  "5th_place",
}

// Key returns the wire name of the tier
func (t Tier) Key() string {
	if t < 0 || t >= tierCount {
		return "unknown"
	}
	return tierKeys[t]
}

// Reference is the winning draw tickets are graded against
type Reference struct {
	DrawNo   int
	DrawDate string
	Numbers  []int
	Bonus    int

	mask      uint64
	bonusMask uint64
}

// DefaultReference is used when neither configuration nor the archive
// supplies a draw
func DefaultReference() Reference {
	ref, _ := NewReference(models.Draw{
		DrawNo:   1205,
		DrawDate: "2023-12-30",
		Numbers:  []int{1, 4, 16, 23, 31, 41},
		Bonus:    2,
	})
	return ref
}

// NewReference validates a draw and precomputes its masks
func NewReference(d models.Draw) (Reference, error) {
	if err := d.Validate(); err != nil {
		return Reference{}, err
	}
	d = d.Normalized()
	return Reference{
		DrawNo:    d.DrawNo,
		DrawDate:  d.DrawDate,
		Numbers:   d.Numbers,
		Bonus:     d.Bonus,
		mask:      d.Mask(),
		bonusMask: 1 << uint(d.Bonus),
	}, nil
}

// Classify grades a six-number ticket given as a bitmask (bit n set for number n)
func (r Reference) Classify(ticket uint64) Tier {
	switch bits.OnesCount64(ticket & r.mask) {
	case 6:
		return FirstPlace
	case 5:
		if ticket&r.bonusMask != 0 {
			return SecondPlace
		}
		return ThirdPlace
	case 4:
		return FourthPlace
	case 3:
		return FifthPlace
	default:
		return NoPrize
	}
}

// maskOf builds a ticket mask from numbers
func maskOf(nums ...int) uint64 {
	var m uint64
	for _, n := range nums {
		m |= 1 << uint(n)
	}
	return m
}

// numbersOf expands a ticket mask into ascending numbers
func numbersOf(m uint64) []int {
	out := make([]int, 0, models.NumbersPerDraw)
	for m != 0 {
		n := bits.TrailingZeros64(m)
		out = append(out, n)
		m &= m - 1
	}
	return out
}
