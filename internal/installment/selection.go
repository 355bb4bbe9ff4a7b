// Package installment turns a customer's open installments into an editable
// selection and produces the bulk payment submitted for it.
package installment

import (
	"sort"

	"github.com/luizaugustom/montshop-desktop-sub000/internal/domain"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/money"
)

type Entry struct {
	Selected  bool    `json:"selected"`
	Amount    float64 `json:"amount"`
	Remaining float64 `json:"remaining"`
}

// Selection maps installment id to its entry. Transitions never modify the
// receiver; each returns a new Selection.
type Selection struct {
	entries map[string]Entry
	order   []string
}

// New seeds a selection with every installment that still has a balance,
// selected for full payoff.
func New(installments []domain.Installment) Selection {
	s := Selection{entries: make(map[string]Entry, len(installments))}
	for _, inst := range installments {
		if inst.RemainingAmount <= 0 {
			continue
		}
		if _, dup := s.entries[inst.ID]; dup {
			continue
		}
		s.entries[inst.ID] = Entry{
			Selected:  true,
			Amount:    money.Round(inst.RemainingAmount),
			Remaining: inst.RemainingAmount,
		}
		s.order = append(s.order, inst.ID)
	}
	return s
}

func (s Selection) clone() Selection {
	out := Selection{entries: make(map[string]Entry, len(s.entries)), order: s.order}
	for id, e := range s.entries {
		out.entries[id] = e
	}
	return out
}

func (s Selection) Len() int { return len(s.order) }

func (s Selection) IDs() []string {
	return append([]string(nil), s.order...)
}

func (s Selection) Get(id string) (Entry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

func (s Selection) unknown(id string) error {
	return domain.NewValidationError(domain.CodeUnknownInstallment, "installment %s is not open for payment", id)
}

// Toggle flips the selected flag. The amount is kept so re-selecting brings
// back the last edited value.
func (s Selection) Toggle(id string) (Selection, error) {
	e, ok := s.entries[id]
	if !ok {
		return s, s.unknown(id)
	}
	out := s.clone()
	e.Selected = !e.Selected
	out.entries[id] = e
	return out, nil
}

// SetAmount sets the amount to pay on one installment, clamped to
// [0, remaining].
func (s Selection) SetAmount(id string, value float64) (Selection, error) {
	e, ok := s.entries[id]
	if !ok {
		return s, s.unknown(id)
	}
	out := s.clone()
	e.Amount = money.Clamp(value, 0, e.Remaining)
	out.entries[id] = e
	return out, nil
}

// SelectAll selects every entry for its full remaining balance, discarding
// partial edits.
func (s Selection) SelectAll() Selection {
	out := s.clone()
	for id, e := range out.entries {
		e.Selected = true
		e.Amount = money.Round(e.Remaining)
		out.entries[id] = e
	}
	return out
}

func (s Selection) Clear() Selection {
	out := s.clone()
	for id, e := range out.entries {
		e.Selected = false
		e.Amount = 0
		out.entries[id] = e
	}
	return out
}

type Totals struct {
	TotalRemaining float64 `json:"total_remaining"`
	SelectedCount  int     `json:"selected_count"`
	TotalToPay     float64 `json:"total_to_pay"`
}

func (s Selection) Totals() Totals {
	var t Totals
	remaining := make([]float64, 0, len(s.order))
	toPay := make([]float64, 0, len(s.order))
	for _, id := range s.order {
		e := s.entries[id]
		remaining = append(remaining, e.Remaining)
		if e.Selected {
			t.SelectedCount++
			toPay = append(toPay, e.Amount)
		}
	}
	t.TotalRemaining = money.Sum(remaining...)
	t.TotalToPay = money.Sum(toPay...)
	return t
}

// Reconcile rebuilds the selection against a refreshed installment list.
// Installments that are still open keep their flag and edited amount, clamped
// to the new balance; new ones come in selected for full payoff.
func (s Selection) Reconcile(installments []domain.Installment) Selection {
	fresh := New(installments)
	for _, id := range fresh.order {
		prev, ok := s.entries[id]
		if !ok {
			continue
		}
		e := fresh.entries[id]
		e.Selected = prev.Selected
		e.Amount = money.Clamp(prev.Amount, 0, e.Remaining)
		fresh.entries[id] = e
	}
	return fresh
}

// Sorted returns installments ordered by due date, then number.
func Sorted(installments []domain.Installment) []domain.Installment {
	out := append([]domain.Installment(nil), installments...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].InstallmentNumber < out[j].InstallmentNumber
	})
	return out
}
