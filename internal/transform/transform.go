// Package transform converts an ANPR birth record into the German
// civil-registry shape, field by field.
package transform

import (
	"fmt"
	"strings"
	"time"

	"crossborder/internal/records"
)

const (
	anprDateLayout     = "02/01/2006"
	registryDateLayout = "2006-01-02T00:00:00Z"
)

// Warning flags a field that was passed through unconverted.
type Warning struct {
	Field  string
	Value  string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s=%q: %s", w.Field, w.Value, w.Reason)
}

// Result is the converted record plus any pass-through warnings.
type Result struct {
	Record   records.TargetRecord
	Warnings []Warning
}

// Apply converts src, which originates in from, into the target registry shape.
func Apply(src records.SourceRecord, from records.Country) Result {
	var res Result
	date, err := ConvertDate(src.DataNascita)
	if err != nil {
		res.Warnings = append(res.Warnings, Warning{Field: "data_nascita", Value: src.DataNascita, Reason: err.Error()})
		date = src.DataNascita
	}
	res.Record = records.TargetRecord{
		Familienname:         src.Cognome,
		Vorname:              src.Nome,
		Geburtsdatum:         date,
		Geburtsort:           src.LuogoNascita,
		Staatsangehoerigkeit: DeriveNationality(from),
		Eltern:               ParentsToList(src.Genitori),
		Geschlecht:           ConvertSex(src.Sesso),
	}
	return res
}

// ConvertDate turns DD/MM/YYYY into midnight UTC ISO 8601.
func ConvertDate(value string) (string, error) {
	parsed, err := time.Parse(anprDateLayout, strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("not a DD/MM/YYYY date: %w", err)
	}
	return parsed.Format(registryDateLayout), nil
}

// ConvertSex maps the ANPR sesso code onto the registry enumeration.
// Only the exact codes "M" and "F" map; anything else passes through unchanged.
func ConvertSex(code string) string {
	switch code {
	case "M":
		return "MALE"
	case "F":
		return "FEMALE"
	default:
		return code
	}
}

// ParentsToList flattens genitori into father, mother order, dropping blanks.
func ParentsToList(p records.Parents) []string {
	out := make([]string, 0, 2)
	for _, name := range []string{p.Padre, p.Madre} {
		if strings.TrimSpace(name) != "" {
			out = append(out, name)
		}
	}
	return out
}

// DeriveNationality infers staatsangehoerigkeit from the issuing country of
// the national tax identifier.
func DeriveNationality(from records.Country) string {
	switch from {
	case records.Italy:
		return "Italian"
	case records.Germany:
		return "German"
	default:
		return string(from)
	}
}
