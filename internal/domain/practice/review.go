package practice

// ReviewStatus classifies an exercise by how many calls it has collected.
type ReviewStatus string

const (
	ReviewUnbid  ReviewStatus = "unbid"
	ReviewSingle ReviewStatus = "single"
	ReviewRebid  ReviewStatus = "rebid"
)

// Status returns the review bucket for the tally.
func (t BidTally) Status() ReviewStatus {
	switch {
	case t.Bids == 0:
		return ReviewUnbid
	case t.Bids == 1:
		return ReviewSingle
	default:
		return ReviewRebid
	}
}

// Inconsistent reports whether repeated calls on the exercise disagree.
func (t BidTally) Inconsistent() bool {
	return t.Bids > 1 && t.DistinctBids > 1
}

// ReviewSummary groups exercise ids by review status.
type ReviewSummary struct {
	Unbid        []string
	Single       []string
	Rebid        []string
	Inconsistent []string
}

// Summarise buckets the tallies, keeping their order.
func Summarise(tallies []BidTally) ReviewSummary {
	var s ReviewSummary
	for _, t := range tallies {
		switch t.Status() {
		case ReviewUnbid:
			s.Unbid = append(s.Unbid, t.ExerciseID)
		case ReviewSingle:
			s.Single = append(s.Single, t.ExerciseID)
		case ReviewRebid:
			s.Rebid = append(s.Rebid, t.ExerciseID)
			if t.Inconsistent() {
				s.Inconsistent = append(s.Inconsistent, t.ExerciseID)
			}
		}
	}
	return s
}
