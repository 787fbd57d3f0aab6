package core

import (
	"regexp"
	"strconv"
	"strings"
)

// MatchTier is the confidence level at which a reference was accepted.
type MatchTier int

const (
	TierNone MatchTier = iota
	TierCode
	TierName
	TierSubstring
	TierParenCode
	TierNumericLabel
	TierHint     // OCR suggested product id
	TierSelected // store picked explicitly by the user
	TierFallback // first store used because nothing matched
)

var tierNames = map[MatchTier]string{
	TierNone:         "none",
	TierCode:         "code",
	TierName:         "name",
	TierSubstring:    "substring",
	TierParenCode:    "paren_code",
	TierNumericLabel: "numeric_label",
	TierHint:         "hint",
	TierSelected:     "selected",
	TierFallback:     "fallback",
}

func (t MatchTier) String() string {
	if s, ok := tierNames[t]; ok {
		return s
	}
	return "unknown"
}

func (t MatchTier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *MatchTier) UnmarshalText(b []byte) error {
	for k, v := range tierNames {
		if v == string(b) {
			*t = k
			return nil
		}
	}
	*t = TierNone
	return nil
}

// MatchCandidate is the Entity Resolver's answer: which entity, and at what tier.
type MatchCandidate struct {
	ID   int64
	Tier MatchTier
}

var (
	parenSegment     = regexp.MustCompile(`\(([^)]+)\)`)
	storeNumberLabel = regexp.MustCompile(`(?:kho|warehouse|store)\s*#?\s*(\d+)`)
	storeLabelPrefix = regexp.MustCompile(`^(?:kho|warehouse|store)\s*`)
)

// Resolve matches a free-text token against a catalog using tiered rules; the first tier that
// hits wins and the first entity in catalog order wins within a tier:
//
//  1. exact code (case-insensitive)
//  2. exact name (case-insensitive)
//  3. stores only: code inside a parenthetical segment, e.g. "Kho 3 (WH03)"
//  4. stores only: "kho <digits>" as a literal store id, then as a substring of a store name
//  5. bidirectional substring of the name
//
// For stores the parenthetical and numeric heuristics run before the substring tier so that an
// explicit code is not shadowed by a looser name containment.
func Resolve(token string, candidates []CatalogEntry, kind EntityKind) (MatchCandidate, bool) {
	key := foldKey(token)
	if key == "" || len(candidates) == 0 {
		return MatchCandidate{}, false
	}

	if id, ok := matchCode(key, candidates); ok {
		return MatchCandidate{ID: id, Tier: TierCode}, true
	}
	if id, ok := matchName(key, candidates); ok {
		return MatchCandidate{ID: id, Tier: TierName}, true
	}
	if kind == KindStore {
		if id, ok := matchParenCode(key, candidates); ok {
			return MatchCandidate{ID: id, Tier: TierParenCode}, true
		}
		if id, ok := matchNumericLabel(key, candidates); ok {
			return MatchCandidate{ID: id, Tier: TierNumericLabel}, true
		}
	}
	if id, ok := matchSubstring(key, candidates, kind); ok {
		return MatchCandidate{ID: id, Tier: TierSubstring}, true
	}
	return MatchCandidate{}, false
}

func matchCode(key string, candidates []CatalogEntry) (int64, bool) {
	for _, c := range candidates {
		if c.codeKey != "" && c.codeKey == key {
			return c.ID, true
		}
	}
	return 0, false
}

func matchName(key string, candidates []CatalogEntry) (int64, bool) {
	for _, c := range candidates {
		if c.nameKey != "" && c.nameKey == key {
			return c.ID, true
		}
	}
	return 0, false
}

func matchParenCode(key string, candidates []CatalogEntry) (int64, bool) {
	for _, m := range parenSegment.FindAllStringSubmatch(key, -1) {
		if id, ok := matchCode(strings.TrimSpace(m[1]), candidates); ok {
			return id, true
		}
	}
	return 0, false
}

func matchNumericLabel(key string, candidates []CatalogEntry) (int64, bool) {
	m := storeNumberLabel.FindStringSubmatch(key)
	if m == nil {
		return 0, false
	}
	digits := m[1]
	if n, err := strconv.ParseInt(digits, 10, 64); err == nil {
		for _, c := range candidates {
			if c.ID == n {
				return c.ID, true
			}
		}
	}
	for _, c := range candidates {
		if strings.Contains(c.nameKey, digits) {
			return c.ID, true
		}
	}
	return 0, false
}

func matchSubstring(key string, candidates []CatalogEntry, kind EntityKind) (int64, bool) {
	stripped := ""
	if kind == KindStore {
		stripped = strings.TrimSpace(storeLabelPrefix.ReplaceAllString(key, ""))
	}
	for _, c := range candidates {
		if c.nameKey == "" {
			continue
		}
		if strings.Contains(key, c.nameKey) || strings.Contains(c.nameKey, key) {
			return c.ID, true
		}
		if stripped != "" && stripped != key && strings.Contains(c.nameKey, stripped) {
			return c.ID, true
		}
	}
	return 0, false
}

// ResolveProduct resolves a product token against the index.
func (c *CatalogIndex) ResolveProduct(token string) (MatchCandidate, bool) {
	return Resolve(token, c.Entries(KindProduct), KindProduct)
}

// ResolveStore resolves a warehouse label against the index.
func (c *CatalogIndex) ResolveStore(token string) (MatchCandidate, bool) {
	return Resolve(token, c.Entries(KindStore), KindStore)
}
