package game

import "math/rand/v2"

// Letters is the full Arabic alphabet the spinner draws from.
var Letters = []string{
	"أ", "ب", "ت", "ث", "ج", "ح", "خ", "د", "ذ", "ر",
	"ز", "س", "ش", "ص", "ض", "ط", "ظ", "ع", "غ", "ف",
	"ق", "ك", "ل", "م", "ن", "هـ", "و", "ي",
}

// PickLetter returns a random letter that has not been spun yet.
// The second return is false once the alphabet is exhausted.
func PickLetter(used []string) (string, bool) {
	taken := make(map[string]bool, len(used))
	for _, l := range used {
		taken[l] = true
	}

	candidates := make([]string, 0, len(Letters))
	for _, l := range Letters {
		if !taken[l] {
			candidates = append(candidates, l)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[rand.IntN(len(candidates))], true
}
