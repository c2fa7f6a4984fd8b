// Package header enumerates the TTP message tags ("masks") and maps between
// the wire integer and its symbolic name.
//
// The catalog is advisory: the wire carries only the integer mask, never the
// name, and a decoder that meets an unregistered mask does not fail — it
// simply has no name for it. New catalogs may add tags but must not reuse an
// existing mask.
package header

// Mask is the wire-level integer tag carried by every frame's header field.
type Mask int32

// Reference catalog. Category is the first decimal digit of the mask:
// 0 = operation, 1 = datum, 2 = response.
const (
	NOP     Mask = 0   // No operation / placeholder
	OP      Mask = 1   // Caller-defined operation; footer carries subtype
	BOOLEAN Mask = 100 // Body is UTF-8 of "true" or "false"
	INTEGER Mask = 101 // Body is UTF-8 decimal integer
	DOUBLE  Mask = 102 // Body is UTF-8 decimal double
	STRING  Mask = 103 // Body is UTF-8 text
	BAD     Mask = 200 // Negative response
	OK      Mask = 201 // Positive response
)

var names = map[Mask]string{
	NOP:     "NOP",
	OP:      "OP",
	BOOLEAN: "BOOLEAN",
	INTEGER: "INTEGER",
	DOUBLE:  "DOUBLE",
	STRING:  "STRING",
	BAD:     "BAD",
	OK:      "OK",
}

var masks = func() map[string]Mask {
	m := make(map[string]Mask, len(names))
	for mask, name := range names {
		m[name] = mask
	}
	return m
}()

// Name returns the registered symbolic name for mask, or ("none", false) if
// mask is not registered. It never fails — unknown masks are permitted on
// the wire.
func Name(mask Mask) (string, bool) {
	n, ok := names[mask]
	if !ok {
		return "none", false
	}
	return n, true
}

// MaskOf is the inverse of Name: a total function over the registered set,
// returning (0, false) for an unregistered name.
func MaskOf(name string) (Mask, bool) {
	m, ok := masks[name]
	return m, ok
}

// Category returns the first decimal digit of mask written zero-padded to
// three digits, as in a packet's string form (its class: operation, datum,
// or response), so NOP (000) and OP (001) are both 0. It is defined for any
// mask, registered or not.
func Category(mask Mask) int {
	m := int64(mask)
	if m < 0 {
		m = -m
	}
	for m >= 1000 {
		m /= 10
	}
	return int(m / 100)
}

// Catalog is the plain function-pair lookup a foreign catalog must supply:
// (mask -> name) and (name -> mask). It exists so callers can extend the
// known tag set without reflection — the catalog is a closed table at
// compile time, and this interface is the only extension point.
type Catalog interface {
	Name(mask Mask) (string, bool)
	MaskOf(name string) (Mask, bool)
}

type defaultCatalog struct{}

func (defaultCatalog) Name(mask Mask) (string, bool)    { return Name(mask) }
func (defaultCatalog) MaskOf(name string) (Mask, bool)  { return MaskOf(name) }

// Default is the reference catalog described in this package's constants.
var Default Catalog = defaultCatalog{}
