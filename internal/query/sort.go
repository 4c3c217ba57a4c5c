package query

import (
	"cmp"
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/adanyl0v/go-task-tracker/internal/models"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

func (o SortOrder) Valid() bool {
	return o == SortAsc || o == SortDesc
}

// fieldKind is the declared semantic type of a sortable field. It
// selects the comparator, so values are never inspected to pick one.
type fieldKind int

const (
	kindString fieldKind = iota
	kindNumber
	kindTime
	kindBool
)

type field struct {
	kind fieldKind
	// value returns nil when the field is unset on the task.
	value func(task *models.Task) any
}

// fields maps the JSON names accepted by sortBy to task fields.
var fields = map[string]field{
	"id":    {kindNumber, func(t *models.Task) any { return t.ID }},
	"title": {kindString, func(t *models.Task) any { return t.Title }},
	"description": {kindString, func(t *models.Task) any {
		if t.Description == nil {
			return nil
		}
		return *t.Description
	}},
	"priority":   {kindString, func(t *models.Task) any { return string(t.Priority) }},
	"isComplete": {kindBool, func(t *models.Task) any { return t.IsComplete }},
	"archived":   {kindBool, func(t *models.Task) any { return t.Archived }},
	"dateDue": {kindTime, func(t *models.Task) any {
		if t.DateDue == nil {
			return nil
		}
		return *t.DateDue
	}},
	"createdAt": {kindTime, func(t *models.Task) any { return t.CreatedAt }},
	"updatedAt": {kindTime, func(t *models.Task) any { return t.UpdatedAt }},
}

type comparator func(a, b any) int

func comparatorFor(kind fieldKind) comparator {
	switch kind {
	case kindString:
		// Collator keeps internal buffers; one per Sort call.
		collator := collate.New(language.English)
		return func(a, b any) int {
			return collator.CompareString(a.(string), b.(string))
		}
	case kindNumber:
		return func(a, b any) int {
			return cmp.Compare(a.(int64), b.(int64))
		}
	case kindTime:
		return func(a, b any) int {
			return a.(time.Time).Compare(b.(time.Time))
		}
	case kindBool:
		return func(a, b any) int {
			return cmp.Compare(boolRank(a.(bool)), boolRank(b.(bool)))
		}
	}
	return func(a, b any) int { return 0 }
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Sort orders tasks by the field named key. With an empty key or an
// order other than asc/desc it returns tasks as is. Unknown keys and
// unset values compare equal; the sort is stable so equal elements keep
// their input order. The input slice is not modified.
func Sort(tasks []*models.Task, key string, order SortOrder) []*models.Task {
	if key == "" || !order.Valid() {
		return tasks
	}

	sorted := slices.Clone(tasks)
	f, ok := fields[key]
	if !ok {
		return sorted
	}

	compare := comparatorFor(f.kind)
	slices.SortStableFunc(sorted, func(a, b *models.Task) int {
		av, bv := f.value(a), f.value(b)
		if av == nil || bv == nil {
			return 0
		}
		if order == SortDesc {
			return compare(bv, av)
		}
		return compare(av, bv)
	})
	return sorted
}
