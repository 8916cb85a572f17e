package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Unit is a value object representing a canonical stock unit.
// It is immutable - all operations return new Unit instances.
// A Unit has a code (identifier), a display name, and a fractional flag that
// states whether partial quantities of the unit can be consumed (grams can,
// a sealed pack cannot).
type Unit struct {
	code       string
	name       string
	fractional bool
}

// Common unit codes for convenience
const (
	UnitCodePiece  = "PIECE"
	UnitCodePack   = "PACK"
	UnitCodeBottle = "BOTTLE"
	UnitCodeKG     = "KG"
	UnitCodeG      = "G"
	UnitCodeL      = "L"
	UnitCodeML     = "ML"
	UnitCodeScoop  = "SCOOP"
)

// NewUnit creates a new Unit with the specified code, name, and fractional flag.
// Returns error if:
//   - code is empty or too long (max 20 chars)
//   - name is empty or too long (max 50 chars)
func NewUnit(code, name string, fractional bool) (Unit, error) {
	code = strings.TrimSpace(strings.ToUpper(code))
	name = strings.TrimSpace(name)

	if err := validateUnitCode(code); err != nil {
		return Unit{}, err
	}
	if err := validateUnitName(name); err != nil {
		return Unit{}, err
	}

	return Unit{
		code:       code,
		name:       name,
		fractional: fractional,
	}, nil
}

// NewFractionalUnit creates a Unit that allows partial quantities.
func NewFractionalUnit(code, name string) (Unit, error) {
	return NewUnit(code, name, true)
}

// NewWholeUnit creates a Unit that only allows whole quantities.
func NewWholeUnit(code, name string) (Unit, error) {
	return NewUnit(code, name, false)
}

// MustNewUnit creates a Unit and panics on error.
// Use only when you're certain the inputs are valid.
func MustNewUnit(code, name string, fractional bool) Unit {
	u, err := NewUnit(code, name, fractional)
	if err != nil {
		panic(err)
	}
	return u
}

// Code returns the unit code (normalized to uppercase).
func (u Unit) Code() string {
	return u.code
}

// Name returns the unit name.
func (u Unit) Name() string {
	return u.name
}

// Fractional returns true if partial quantities of the unit may be consumed.
func (u Unit) Fractional() bool {
	return u.fractional
}

// IsZero returns true if this is a zero-value Unit.
func (u Unit) IsZero() bool {
	return u.code == "" && u.name == ""
}

// Equals returns true if both Units have the same code (case-insensitive).
func (u Unit) Equals(other Unit) bool {
	return strings.EqualFold(u.code, other.code)
}

// String returns a human-readable representation.
func (u Unit) String() string {
	return u.code
}

// unitJSON is the serialized form of Unit.
type unitJSON struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Fractional bool   `json:"fractional"`
}

// MarshalJSON implements json.Marshaler.
func (u Unit) MarshalJSON() ([]byte, error) {
	return json.Marshal(unitJSON{Code: u.code, Name: u.name, Fractional: u.fractional})
}

// UnmarshalJSON implements json.Unmarshaler.
func (u *Unit) UnmarshalJSON(data []byte) error {
	var raw unitJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewUnit(raw.Code, raw.Name, raw.Fractional)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// Value implements driver.Valuer so Unit can be stored as JSON in a column.
func (u Unit) Value() (driver.Value, error) {
	b, err := json.Marshal(u)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (u *Unit) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return u.UnmarshalJSON(v)
	case string:
		return u.UnmarshalJSON([]byte(v))
	case nil:
		*u = Unit{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Unit", src)
	}
}

func validateUnitCode(code string) error {
	if code == "" {
		return fmt.Errorf("unit code cannot be empty")
	}
	if len(code) > 20 {
		return fmt.Errorf("unit code cannot exceed 20 characters")
	}
	return nil
}

func validateUnitName(name string) error {
	if name == "" {
		return fmt.Errorf("unit name cannot be empty")
	}
	if len(name) > 50 {
		return fmt.Errorf("unit name cannot exceed 50 characters")
	}
	return nil
}
