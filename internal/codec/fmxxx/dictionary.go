// Package fmxxx holds the AVL IO element dictionary for Teltonika FMxxx
// trackers: labels, physical units and enumerated value names.
//
// The table is built once at init and never written afterwards, so lookups
// are safe from any number of goroutines without locking.
package fmxxx

import "strconv"

// Definition describes one IO element id.
type Definition struct {
	Label     string
	Dimension string
	// Values maps raw values to display names. A nil map means the element
	// has no enumeration table at all.
	Values map[int64]string
}

// HumanKind tells how a raw value resolved against a Definition.
type HumanKind uint8

const (
	// HumanNoTable: the element declares no enumeration table (or is unknown).
	// The human value is present and empty.
	HumanNoTable HumanKind = iota
	// HumanUnmapped: a table exists but does not list the value.
	// The human value is absent.
	HumanUnmapped
	// HumanMatched: the table lists the value.
	HumanMatched
)

func (k HumanKind) String() string {
	switch k {
	case HumanNoTable:
		return "no-table"
	case HumanUnmapped:
		return "unmapped"
	case HumanMatched:
		return "matched"
	default:
		return "HumanKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Human is the resolved display value of one IO element.
type Human struct {
	Kind HumanKind
	Text string
}

// Present reports whether the human value belongs in serialized output.
func (h Human) Present() bool {
	return h.Kind != HumanUnmapped
}

// Ptr returns the human value as an optional string: nil when absent.
func (h Human) Ptr() *string {
	if !h.Present() {
		return nil
	}
	s := h.Text
	return &s
}

// Meta is the enrichment attached to a decoded IO element.
type Meta struct {
	Label     string
	Dimension string
	Human     Human
}

// Lookup returns the definition registered for id.
func Lookup(id uint16) (Definition, bool) {
	d, ok := elements[id]
	return d, ok
}

// Resolve enriches (id, value). Unknown ids get the label "Unknown-<id>", no
// dimension and an empty human value.
func Resolve(id uint16, value int64) Meta {
	d, ok := elements[id]
	if !ok {
		return Meta{
			Label: "Unknown-" + strconv.Itoa(int(id)),
			Human: Human{Kind: HumanNoTable},
		}
	}
	m := Meta{Label: d.Label, Dimension: d.Dimension}
	switch {
	case d.Values == nil:
		m.Human = Human{Kind: HumanNoTable}
	default:
		if text, hit := d.Values[value]; hit {
			m.Human = Human{Kind: HumanMatched, Text: text}
		} else {
			m.Human = Human{Kind: HumanUnmapped}
		}
	}
	return m
}

// Len returns the number of known ids.
func Len() int {
	return len(elements)
}
