package transform

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossborder/internal/records"
)

func TestApplyYieldsTargetRecord(t *testing.T) {
	res := Apply(records.Source(), records.Italy)
	require.Empty(t, res.Warnings)
	if diff := cmp.Diff(records.Target(), res.Record); diff != "" {
		t.Fatalf("transformed record mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyPassesThroughBadDate(t *testing.T) {
	src := records.Source()
	src.DataNascita = "1985-03-15"
	res := Apply(src, records.Italy)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "data_nascita", res.Warnings[0].Field)
	assert.Equal(t, "1985-03-15", res.Record.Geburtsdatum)
}

func TestConvertDate(t *testing.T) {
	got, err := ConvertDate("01/12/2000")
	require.NoError(t, err)
	assert.Equal(t, "2000-12-01T00:00:00Z", got)

	_, err = ConvertDate("31/02/2000")
	assert.Error(t, err)
}

func TestConvertSex(t *testing.T) {
	assert.Equal(t, "MALE", ConvertSex("M"))
	assert.Equal(t, "FEMALE", ConvertSex("F"))
	assert.Equal(t, "X", ConvertSex("X"))
}

func TestConvertSexIsCaseSensitive(t *testing.T) {
	for _, code := range []string{"m", "f", " M", "F ", ""} {
		assert.Equal(t, code, ConvertSex(code), "code %q", code)
	}
}

func TestParentsToListDropsBlank(t *testing.T) {
	assert.Equal(t, []string{"Maria Bianchi"}, ParentsToList(records.Parents{Madre: "Maria Bianchi"}))
	assert.Empty(t, ParentsToList(records.Parents{}))
}

func TestDeriveNationality(t *testing.T) {
	assert.Equal(t, "Italian", DeriveNationality(records.Italy))
	assert.Equal(t, "German", DeriveNationality(records.Germany))
	assert.Equal(t, "FR", DeriveNationality(records.Country("FR")))
}
