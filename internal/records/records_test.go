package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceRecordFields(t *testing.T) {
	fields := Source().Fields()
	require.Len(t, fields, 7)
	assert.Equal(t, `cognome: "Rossi"`, fields[0].String())
	assert.Equal(t, `data_nascita: "15/03/1985"`, fields[2].String())
	assert.Equal(t, `genitori: {padre: "Giuseppe Rossi", madre: "Maria Bianchi"}`, fields[5].String())
}

func TestTargetRecordFields(t *testing.T) {
	lines := Lines(Target().Fields())
	require.Len(t, lines, 7)
	assert.Equal(t, []string{
		`familienname: "Rossi"`,
		`vorname: "Marco"`,
		`geburtsdatum: "1985-03-15T00:00:00Z"`,
		`geburtsort: "Roma"`,
		`staatsangehoerigkeit: "Italian"`,
		`eltern: ["Giuseppe Rossi", "Maria Bianchi"]`,
		`geschlecht: "MALE"`,
	}, lines)
}

func TestTargetReturnsIndependentCopies(t *testing.T) {
	first := Target()
	first.Eltern[0] = "mutated"
	assert.Equal(t, "Giuseppe Rossi", Target().Eltern[0])
}
