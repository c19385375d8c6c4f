package matching

import (
	"cmp"
)

// KeyComparator orders two keys: negative when a ranks before b
type KeyComparator func(a, b BookEntryKey) int

// HighestBuyOrLowestSellPriceFirst ranks better prices first for the side.
// An absent price ranks before any present one on both sides.
func HighestBuyOrLowestSellPriceFirst(side Side) KeyComparator {
	return func(a, b BookEntryKey) int {
		pa, aSet := a.Price.Value()
		pb, bSet := b.Price.Value()
		switch {
		case !aSet && !bSet:
			return 0
		case !aSet:
			return -1
		case !bSet:
			return 1
		case side == SideBuy:
			return cmp.Compare(pb, pa)
		default:
			return cmp.Compare(pa, pb)
		}
	}
}

// EarliestSubmittedTimeFirst ranks earlier submissions first
func EarliestSubmittedTimeFirst(a, b BookEntryKey) int {
	return a.WhenSubmitted.Compare(b.WhenSubmitted)
}

// SmallestEventIDFirst ranks smaller event ids first
func SmallestEventIDFirst(a, b BookEntryKey) int {
	return cmp.Compare(a.EventID, b.EventID)
}

// Chain evaluates rules in order and returns the first non-zero result
func Chain(rules ...KeyComparator) KeyComparator {
	return func(a, b BookEntryKey) int {
		for _, rule := range rules {
			if c := rule(a, b); c != 0 {
				return c
			}
		}
		return 0
	}
}

var (
	buyPriority  = Chain(HighestBuyOrLowestSellPriceFirst(SideBuy), EarliestSubmittedTimeFirst, SmallestEventIDFirst)
	sellPriority = Chain(HighestBuyOrLowestSellPriceFirst(SideSell), EarliestSubmittedTimeFirst, SmallestEventIDFirst)
)

// PriorityFor returns the matching priority order of a side
func PriorityFor(side Side) KeyComparator {
	if side == SideBuy {
		return buyPriority
	}
	return sellPriority
}
