package sources

import (
	"strings"

	"cardsync/core/utils"
)

// DefaultMaxPages bounds pagination when no limit is configured.
const DefaultMaxPages = 200

// Priorities of the built-in sources. Lower wins.
const (
	PriorityDecklog   = 1
	PriorityOfficial  = 2
	PriorityHolodelta = 3
	PrioritySheet     = 4
	PriorityYuyutei   = 5
)

// Card types produced by CardType.
const (
	TypeOshi    = "oshi"
	TypeHolomem = "holomem"
	TypeStaff   = "staff"
	TypeItem    = "item"
	TypeEvent   = "event"
	TypeTool    = "tool"
	TypeMascot  = "mascot"
	TypeFan     = "fan"
	TypeCheer   = "cheer"
	TypeOther   = "other"
)

// Bloom levels produced by BloomLevel.
const (
	BloomDebut  = "debut"
	BloomFirst  = "1st"
	BloomSecond = "2nd"
	BloomSpot   = "spot"
)

var cardKinds = []struct {
	marker string
	kind   string
}{
	{"推し", TypeOshi},
	{"ホロメン", TypeHolomem},
	{"スタッフ", TypeStaff},
	{"アイテム", TypeItem},
	{"イベント", TypeEvent},
	{"ツール", TypeTool},
	{"マスコット", TypeMascot},
	{"ファン", TypeFan},
}

// CardType maps a Japanese card kind label ("Buzzホロメン", "サポート・アイテム")
// or an English one to a stable type name. Unknown labels map to TypeOther,
// empty labels to "".
func CardType(label string) string {
	s := strings.ToLower(utils.NormalizeText(label))
	if s == "" {
		return ""
	}
	for _, k := range cardKinds {
		if strings.Contains(s, k.marker) {
			return k.kind
		}
	}
	if s == "エール" {
		return TypeCheer
	}
	for _, k := range []string{TypeOshi, TypeHolomem, TypeStaff, TypeItem, TypeEvent, TypeTool, TypeMascot, TypeFan, TypeCheer} {
		if strings.Contains(s, k) {
			return k
		}
	}
	if strings.Contains(s, "member") {
		return TypeHolomem
	}
	return TypeOther
}

// BloomLevel maps a bloom level label ("1st", "Debut", "Spot") to a stable
// name, or "" when the label names none.
func BloomLevel(label string) string {
	s := strings.ToLower(utils.NormalizeText(label))
	for _, level := range []string{BloomFirst, BloomSecond, BloomDebut, BloomSpot} {
		if strings.Contains(s, level) {
			return level
		}
	}
	return ""
}

// Flag renders a boolean attribute: "true" or "".
func Flag(set bool) string {
	if set {
		return "true"
	}
	return ""
}

// Buzz reports whether a card kind label marks a Buzz member.
func Buzz(label string) bool {
	return strings.Contains(strings.ToLower(label), "buzz")
}

// Limited reports whether a card kind label marks a LIMITED support.
func Limited(label string) bool {
	return strings.Contains(strings.ToLower(label), "limited")
}
