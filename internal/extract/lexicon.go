package extract

import (
	"strings"

	"deyn/internal/core"
)

// lexiconEntry maps known counterparty names, in either script, to a
// canonical display name and entity kind.
type lexiconEntry struct {
	aliases []string
	name    string
	kind    core.EntityKind
}

// Known counterparties, scanned by substring containment. Banks take
// priority over retailers, retailers over BNPL providers; the first hit
// fixes both the entity name and kind.
var (
	banks = []lexiconEntry{
		{[]string{"الأهلي", "الاهلي", "alahli", "al ahli", "snb"}, "البنك الأهلي", core.EntityBank},
		{[]string{"الراجحي", "alrajhi", "al rajhi"}, "مصرف الراجحي", core.EntityBank},
		{[]string{"الرياض", "riyad bank"}, "بنك الرياض", core.EntityBank},
		{[]string{"ساب", "sabb"}, "بنك ساب", core.EntityBank},
		{[]string{"الإنماء", "الانماء", "alinma"}, "مصرف الإنماء", core.EntityBank},
		{[]string{"البلاد", "albilad"}, "بنك البلاد", core.EntityBank},
	}

	retailers = []lexiconEntry{
		{[]string{"اكسترا", "إكسترا", "extra"}, "إكسترا", core.EntityRetailer},
		{[]string{"جرير", "jarir"}, "مكتبة جرير", core.EntityRetailer},
		{[]string{"ايكيا", "إيكيا", "ikea"}, "ايكيا", core.EntityRetailer},
		{[]string{"أمازون", "امازون", "amazon"}, "أمازون", core.EntityRetailer},
		{[]string{"نون", "noon"}, "نون", core.EntityRetailer},
	}

	bnplProviders = []lexiconEntry{
		{[]string{"تابي", "tabby"}, "تابي", core.EntityBNPL},
		{[]string{"تمارا", "tamara"}, "تمارا", core.EntityBNPL},
		{[]string{"مدفوع", "madfu"}, "مدفوع", core.EntityBNPL},
		{[]string{"بوست باي", "postpay"}, "بوست باي", core.EntityBNPL},
	}
)

// placeholderEntity is used when nothing in the lexicon matches. No
// assumption is logged for it: the case is ambiguous and left for the
// caller to fill in.
const placeholderEntity = "غير محدد"

func lookupEntity(text string) (lexiconEntry, bool) {
	for _, group := range [][]lexiconEntry{banks, retailers, bnplProviders} {
		for _, entry := range group {
			for _, alias := range entry.aliases {
				if strings.Contains(text, alias) {
					return entry, true
				}
			}
		}
	}
	return lexiconEntry{}, false
}
