package domain

import "sort"

// LatestSubmissions reduces an answer log of one (session, question) to the
// effective submission of each answeree: the record with the greatest
// SubmitDate. On equal dates the record seen last wins, which only reflects
// scan order and is not a guarantee. The result is ordered by SubmitDate.
func LatestSubmissions(log []Answer) []Submission {
	index := make(map[string]int)
	out := make([]Submission, 0)
	for _, a := range log {
		sub := Submission{Answeree: a.Answeree, SubmitDate: a.SubmitDate, Submission: a.Submission}
		i, ok := index[a.Answeree]
		if !ok {
			index[a.Answeree] = len(out)
			out = append(out, sub)
			continue
		}
		if !a.SubmitDate.Before(out[i].SubmitDate) {
			out[i] = sub
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmitDate.Before(out[j].SubmitDate)
	})
	return out
}
