// Package extract turns unstructured bilingual (Arabic/English) text,
// typically copied from a message, into an obligation draft plus a list
// of assumptions the caller must confirm.
//
// The pipeline is a single pass over an explicit, ordered list of
// (predicate, extractor) rules. The first rule that matches wins per
// field, which keeps precedence auditable and each rule independently
// testable. The extractor is a best-effort assistant: it produces
// drafts for human confirmation, never committed records.
package extract

import (
	"regexp"
	"strings"

	"deyn/internal/core"
)

// Draft is a best-guess obligation shaped like core.Obligation minus
// identity fields. Assumptions record every inferred-but-unstated
// field; fields parsed from an explicit pattern carry no assumption.
type Draft struct {
	EntityName         string
	EntityKind         core.EntityKind
	Kind               core.ObligationKind
	Principal          core.Money
	Installment        core.Money
	Schedule           core.Schedule
	DueDay             int
	APR                float64
	RelationshipFactor float64
}

// Assumption strings shown to the user for confirmation. They are
// written in Arabic, the primary language of the product.
const (
	assumeDefaultDueDay = "استخدمت يوم 15 كموعد افتراضي"
	assumeDerivedCount  = "حسبت عدد الأقساط من قيمة القسط"
)

const defaultDueDay = 15

var (
	amountRe      = regexp.MustCompile(`\d+(?:\.\d{1,3})?`)
	monthsRe      = regexp.MustCompile(`(\d+)\s*(?:شهر|أشهر|اشهر|شهور|months?)`)
	installmentRe = regexp.MustCompile(`(?:قسطها|قسطه|قسط|installments?\s+of|installment)\s*(\d+(?:\.\d{1,3})?)`)
	dueDayRe      = regexp.MustCompile(`(?:يوم|on day|day)\s*(\d{1,2})`)
	aprRe         = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	friendRe      = regexp.MustCompile(`(?:سلفت من|استلفت من|اقترضت من|سلفة من|دين ل|borrowed from|lent to|owe)\s+([\p{L}]+)`)

	loanWords = []string{"قرض", "قروض", "تمويل", "loan"}
	bnplWords = []string{"قسط", "أقساط", "اقساط", "تقسيط", "دفعات", "installment", "bnpl"}
)

// state carries the working draft through the rule pipeline.
type state struct {
	text        string
	draft       Draft
	assumptions []string

	hasMonths      bool
	hasInstallment bool
}

type rule struct {
	name string
	when func(*state) bool
	run  func(*state)
}

// pipeline is evaluated strictly top to bottom; each rule fires at most
// once. The order encodes the field precedence contract.
var pipeline = []rule{
	{
		name: "entity-lexicon",
		when: func(s *state) bool {
			_, ok := lookupEntity(s.text)
			return ok
		},
		run: func(s *state) {
			entry, _ := lookupEntity(s.text)
			s.draft.EntityName = entry.name
			s.draft.EntityKind = entry.kind
		},
	},
	{
		// Ambiguous counterparty: placeholder, deliberately without an
		// assumption, so the caller fills it in.
		name: "entity-placeholder",
		when: func(s *state) bool { return s.draft.EntityName == "" },
		run: func(s *state) {
			s.draft.EntityName = placeholderEntity
			s.draft.EntityKind = core.EntityOther
		},
	},
	{
		name: "kind-loan",
		when: func(s *state) bool { return containsAny(s.text, loanWords) },
		run:  func(s *state) { s.draft.Kind = core.KindLoan },
	},
	{
		name: "kind-bnpl",
		when: func(s *state) bool {
			return s.draft.Kind == "" && containsAny(s.text, bnplWords)
		},
		run: func(s *state) { s.draft.Kind = core.KindBNPL },
	},
	{
		name: "kind-friend",
		when: func(s *state) bool {
			return s.draft.Kind == "" && friendRe.MatchString(s.text)
		},
		run: func(s *state) {
			s.draft.Kind = core.KindFriend
			// A named person displaces any earlier entity guess.
			s.draft.EntityName = friendRe.FindStringSubmatch(s.text)[1]
			s.draft.EntityKind = core.EntityPerson
		},
	},
	{
		name: "kind-default",
		when: func(s *state) bool { return s.draft.Kind == "" },
		run:  func(s *state) { s.draft.Kind = core.KindOneOff },
	},
	{
		// "<N> months" fixes the installment count and splits the
		// principal evenly. Both values were stated, so no assumption.
		name: "schedule-months",
		when: func(s *state) bool { return monthsRe.MatchString(s.text) },
		run: func(s *state) {
			n := mustInt(monthsRe.FindStringSubmatch(s.text)[1])
			if n < 1 {
				return
			}
			s.hasMonths = true
			s.draft.Schedule = core.BoundedSchedule(n, n)
			s.draft.Installment = s.draft.Principal.DivInt(n)
		},
	},
	{
		// An explicit installment amount overrides the even split. It
		// combines with the months signal instead of replacing it.
		name: "schedule-installment",
		when: func(s *state) bool { return installmentRe.MatchString(s.text) },
		run: func(s *state) {
			amount, err := core.ParseAmount(installmentRe.FindStringSubmatch(s.text)[1])
			if err != nil || !amount.IsPositive() {
				return
			}
			s.hasInstallment = true
			s.draft.Installment = amount
		},
	},
	{
		name: "due-day",
		when: func(s *state) bool { return dueDayRe.MatchString(s.text) },
		run: func(s *state) {
			if d := mustInt(dueDayRe.FindStringSubmatch(s.text)[1]); d >= 1 && d <= 31 {
				s.draft.DueDay = d
			}
		},
	},
	{
		name: "due-day-default",
		when: func(s *state) bool { return s.draft.DueDay == 0 },
		run: func(s *state) {
			s.draft.DueDay = defaultDueDay
			s.assumptions = append(s.assumptions, assumeDefaultDueDay)
		},
	},
	{
		// With only an installment amount, the count is guessed as
		// ceil(principal / installment) and flagged as an assumption.
		name: "schedule-derive-count",
		when: func(s *state) bool { return s.hasInstallment && !s.hasMonths },
		run: func(s *state) {
			n := int(s.draft.Principal.Amount.Div(s.draft.Installment.Amount).Ceil().IntPart())
			if n < 1 {
				n = 1
			}
			s.draft.Schedule = core.BoundedSchedule(n, n)
			s.assumptions = append(s.assumptions, assumeDerivedCount)
		},
	},
	{
		// No schedule signal at all: a single payment of the whole
		// principal, the natural shape for a one-off bill.
		name: "schedule-single",
		when: func(s *state) bool { return !s.hasMonths && !s.hasInstallment },
		run: func(s *state) {
			s.draft.Schedule = core.BoundedSchedule(1, 1)
			s.draft.Installment = s.draft.Principal
		},
	},
	{
		// A percentage is only read as an interest rate on loans.
		name: "apr",
		when: func(s *state) bool {
			return s.draft.Kind == core.KindLoan && aprRe.MatchString(s.text)
		},
		run: func(s *state) {
			s.draft.APR = mustFloat(aprRe.FindStringSubmatch(s.text)[1])
		},
	},
	{
		name: "relationship-factor",
		when: func(s *state) bool { return s.draft.Kind == core.KindFriend },
		run:  func(s *state) { s.draft.RelationshipFactor = 0.3 },
	},
}

// Extract parses free text into an obligation draft. It returns a nil
// draft only when no monetary amount can be located; the amount is the
// one mandatory field.
func Extract(text string) (*Draft, []string) {
	s := &state{text: normalize(text)}

	// The amount gates everything else: first decimal number wins.
	m := amountRe.FindString(s.text)
	if m == "" {
		return nil, nil
	}
	principal, err := core.ParseAmount(m)
	if err != nil || !principal.IsPositive() {
		return nil, nil
	}
	s.draft.Principal = principal

	for _, r := range pipeline {
		if r.when(s) {
			r.run(s)
		}
	}
	s.draft.Installment = s.draft.Installment.Round()
	return &s.draft, s.assumptions
}

// normalize trims, lower-cases Latin substrings (Arabic has no case)
// and rewrites Arabic-Indic digits and separators to Latin forms.
func normalize(text string) string {
	return core.NormalizeDigits(strings.ToLower(strings.TrimSpace(text)))
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func mustInt(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

func mustFloat(s string) float64 {
	m, err := core.ParseAmount(s)
	if err != nil {
		return 0
	}
	return m.Float64()
}
