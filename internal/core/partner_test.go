package core_test

import (
	"testing"

	"inventory-intake/internal/core"
)

func TestMatchPartner_PrefersHigherScoreOverCatalogOrder(t *testing.T) {
	candidates := []core.Partner{
		{ID: 1, Name: "Công ty TNHH Minh Phát Group", Phone: "0281234567"},
		{ID: 2, Name: "Minh Phát", Phone: "090 123 4567"},
	}
	guess := core.PartnerGuess{Name: "Minh Phát", Phone: "0901-234-567"}

	if got := core.PartnerScore(guess, candidates[0]); got != 3 {
		t.Errorf("score of first candidate = %d, want 3", got)
	}
	m := core.MatchPartner(guess, candidates, 4)
	if !m.Matched || m.Partner.ID != 2 || m.Score != 5 {
		t.Errorf("got %+v, want candidate 2 with score 5", m)
	}
}

func TestMatchPartner(t *testing.T) {
	candidates := []core.Partner{
		{ID: 10, Name: "Công ty ABC", Phone: "0901234567", Address: "12 Lê Lợi, Quận 1"},
		{ID: 11, Name: "Công ty ABC", Phone: "0901234567", Address: "99 Hai Bà Trưng"},
		{ID: 12, Name: "", Phone: "0909999999"},
	}

	tests := []struct {
		name        string
		guess       core.PartnerGuess
		threshold   int
		wantMatched bool
		wantID      int64
		wantScore   int
	}{
		{
			name:        "ties keep the first candidate",
			guess:       core.PartnerGuess{Name: "công ty abc", Phone: "0901234567"},
			threshold:   4,
			wantMatched: true, wantID: 10, wantScore: 5,
		},
		{
			name:        "address breaks the tie",
			guess:       core.PartnerGuess{Name: "Công ty ABC", Phone: "0901234567", Address: "Hai Bà Trưng"},
			threshold:   4,
			wantMatched: true, wantID: 11, wantScore: 6,
		},
		{
			name:      "name only stays below threshold",
			guess:     core.PartnerGuess{Name: "ABC"},
			threshold: 4,
		},
		{
			name:      "no guess name means no match even if phone matches",
			guess:     core.PartnerGuess{Phone: "0909999999"},
			threshold: 1,
		},
		{
			name:        "lower threshold accepts name only",
			guess:       core.PartnerGuess{Name: "ABC"},
			threshold:   3,
			wantMatched: true, wantID: 10, wantScore: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := core.MatchPartner(tt.guess, candidates, tt.threshold)
			if m.Matched != tt.wantMatched {
				t.Fatalf("matched = %v, want %v (%+v)", m.Matched, tt.wantMatched, m)
			}
			if !tt.wantMatched {
				return
			}
			if m.Partner.ID != tt.wantID || m.Score != tt.wantScore {
				t.Errorf("got id %d score %d, want id %d score %d", m.Partner.ID, m.Score, tt.wantID, tt.wantScore)
			}
		})
	}
}

func TestPartnerRefFromMatch(t *testing.T) {
	matched := core.PartnerRefFromMatch(core.PartnerMatch{Matched: true, Partner: core.Partner{ID: 7}})
	if matched.ID != 7 || matched.New != nil {
		t.Errorf("matched ref = %+v", matched)
	}

	created := core.PartnerRefFromMatch(core.PartnerMatch{Guess: core.PartnerGuess{Name: " Shop Lan ", Phone: "0912"}})
	if created.ID != 0 || created.New == nil || created.New.Name != "Shop Lan" || created.New.Phone != "0912" {
		t.Errorf("new partner ref = %+v", created)
	}

	if ref := core.PartnerRefFromMatch(core.PartnerMatch{}); !ref.IsZero() {
		t.Errorf("empty guess should give a zero ref, got %+v", ref)
	}
}
