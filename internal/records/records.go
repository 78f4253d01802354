// Package records holds the two fixed civil-registry records the demo
// negotiates between: the Italian ANPR birth record and the German
// civil-registry entry for the same person.
package records

import (
	"fmt"
	"strings"
)

// Country is an ISO 3166-1 alpha-2 code.
type Country string

const (
	Italy   Country = "IT"
	Germany Country = "DE"
)

// Parents is the ANPR genitori structure.
type Parents struct {
	Padre string `json:"padre" yaml:"padre"`
	Madre string `json:"madre" yaml:"madre"`
}

// SourceRecord is the origin-system (ANPR) birth record.
type SourceRecord struct {
	Cognome       string  `json:"cognome" yaml:"cognome"`
	Nome          string  `json:"nome" yaml:"nome"`
	DataNascita   string  `json:"data_nascita" yaml:"data_nascita"`
	LuogoNascita  string  `json:"luogo_nascita" yaml:"luogo_nascita"`
	CodiceFiscale string  `json:"codice_fiscale" yaml:"codice_fiscale"`
	Genitori      Parents `json:"genitori" yaml:"genitori"`
	Sesso         string  `json:"sesso" yaml:"sesso"`
}

// TargetRecord is the record as the German civil registry expects it.
type TargetRecord struct {
	Familienname         string   `json:"familienname" yaml:"familienname"`
	Vorname              string   `json:"vorname" yaml:"vorname"`
	Geburtsdatum         string   `json:"geburtsdatum" yaml:"geburtsdatum"`
	Geburtsort           string   `json:"geburtsort" yaml:"geburtsort"`
	Staatsangehoerigkeit string   `json:"staatsangehoerigkeit" yaml:"staatsangehoerigkeit"`
	Eltern               []string `json:"eltern" yaml:"eltern"`
	Geschlecht           string   `json:"geschlecht" yaml:"geschlecht"`
}

// Source returns the fixed ANPR record for Marco Rossi.
func Source() SourceRecord {
	return SourceRecord{
		Cognome:       "Rossi",
		Nome:          "Marco",
		DataNascita:   "15/03/1985",
		LuogoNascita:  "Roma",
		CodiceFiscale: "RSSMRC85C15H501Z",
		Genitori: Parents{
			Padre: "Giuseppe Rossi",
			Madre: "Maria Bianchi",
		},
		Sesso: "M",
	}
}

// Target returns the fixed German registry record for Marco Rossi. Each call
// returns a fresh Eltern slice.
func Target() TargetRecord {
	return TargetRecord{
		Familienname:         "Rossi",
		Vorname:              "Marco",
		Geburtsdatum:         "1985-03-15T00:00:00Z",
		Geburtsort:           "Roma",
		Staatsangehoerigkeit: "Italian",
		Eltern:               []string{"Giuseppe Rossi", "Maria Bianchi"},
		Geschlecht:           "MALE",
	}
}

// Field is one display row of a record. Value is already quoted for display.
type Field struct {
	Name  string
	Value string
}

func (f Field) String() string {
	return f.Name + ": " + f.Value
}

// Fields lists the record in schema order.
func (r SourceRecord) Fields() []Field {
	return []Field{
		{Name: "cognome", Value: quote(r.Cognome)},
		{Name: "nome", Value: quote(r.Nome)},
		{Name: "data_nascita", Value: quote(r.DataNascita)},
		{Name: "luogo_nascita", Value: quote(r.LuogoNascita)},
		{Name: "codice_fiscale", Value: quote(r.CodiceFiscale)},
		{Name: "genitori", Value: fmt.Sprintf("{padre: %s, madre: %s}", quote(r.Genitori.Padre), quote(r.Genitori.Madre))},
		{Name: "sesso", Value: quote(r.Sesso)},
	}
}

// Fields lists the record in schema order.
func (r TargetRecord) Fields() []Field {
	parents := make([]string, 0, len(r.Eltern))
	for _, name := range r.Eltern {
		parents = append(parents, quote(name))
	}
	return []Field{
		{Name: "familienname", Value: quote(r.Familienname)},
		{Name: "vorname", Value: quote(r.Vorname)},
		{Name: "geburtsdatum", Value: quote(r.Geburtsdatum)},
		{Name: "geburtsort", Value: quote(r.Geburtsort)},
		{Name: "staatsangehoerigkeit", Value: quote(r.Staatsangehoerigkeit)},
		{Name: "eltern", Value: "[" + strings.Join(parents, ", ") + "]"},
		{Name: "geschlecht", Value: quote(r.Geschlecht)},
	}
}

// Lines renders fields one per line.
func Lines(fields []Field) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.String())
	}
	return out
}

func quote(v string) string {
	return `"` + v + `"`
}
