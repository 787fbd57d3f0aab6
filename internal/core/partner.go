package core

import (
	"strings"
	"unicode"
)

// Partner match weights.
const (
	partnerNameWeight    = 3
	partnerPhoneWeight   = 2
	partnerAddressWeight = 1
)

// PartnerGuess is the partner identity read off a receipt.
type PartnerGuess struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// PartnerMatch is the outcome of MatchPartner. When Matched is false the caller falls back to
// creating a new partner record from Guess.
type PartnerMatch struct {
	Matched bool         `json:"matched"`
	Partner Partner      `json:"partner"`
	Score   int          `json:"score"`
	Guess   PartnerGuess `json:"guess"`
}

// MatchPartner scores every candidate (name 3, phone 2, address 1) and accepts the best one
// only if its score reaches threshold. Ties keep the first candidate in catalog order, which
// is stable for a given catalog but decided by whoever supplied the catalog.
func MatchPartner(guess PartnerGuess, candidates []Partner, threshold int) PartnerMatch {
	result := PartnerMatch{Guess: guess}
	if foldKey(guess.Name) == "" {
		return result
	}

	best := 0
	for _, c := range candidates {
		if foldKey(c.Name) == "" {
			continue
		}
		score := PartnerScore(guess, c)
		if score >= threshold && score > best {
			best = score
			result.Matched = true
			result.Partner = c
			result.Score = score
		}
	}
	return result
}

// PartnerScore is the weighted similarity between a receipt guess and one catalog partner.
func PartnerScore(guess PartnerGuess, candidate Partner) int {
	score := 0
	if containsEitherWay(foldKey(guess.Name), foldKey(candidate.Name)) {
		score += partnerNameWeight
	}
	if p := phoneDigits(guess.Phone); p != "" && p == phoneDigits(candidate.Phone) {
		score += partnerPhoneWeight
	}
	if containsEitherWay(foldKey(guess.Address), foldKey(candidate.Address)) {
		score += partnerAddressWeight
	}
	return score
}

// containsEitherWay is equality or containment in either direction; empty never matches.
func containsEitherWay(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}

func phoneDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
