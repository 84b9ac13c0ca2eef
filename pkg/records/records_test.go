package records

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "Four Tet", NormalizeName("  Four   Tet\t"))
	assert.Equal(t, "", NormalizeName(" \n "))
	assert.Equal(t, "AZtek", NormalizeName("AZtek"))
}

func TestMalformed(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{"valid", Record{TrackName: "Opus", Slots: map[string]string{"DJ": "Four Tet"}}, ""},
		{"missing track", Record{TrackName: "  ", Slots: map[string]string{"DJ": "Four Tet"}}, "missing track name"},
		{"no slots", Record{TrackName: "Opus"}, "all performer slots are null"},
		{"blank slots", Record{TrackName: "Opus", Slots: map[string]string{"DJ": " "}}, "all performer slots are null"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.Malformed())
		})
	}
}

func TestColumnMatcher(t *testing.T) {
	m := NewColumnMatcher([]string{"DJ*", "Support", " "})
	assert.True(t, m.Match("DJ"))
	assert.True(t, m.Match("DJ3"))
	assert.True(t, m.Match("Support"))
	assert.False(t, m.Match("Support1"))
	assert.False(t, m.Match("Genre"))
}

func TestDistinctNames(t *testing.T) {
	recs := []Record{
		{Slots: map[string]string{"DJ": "Four Tet", "Genre": "House"}},
		{Slots: map[string]string{"DJ": "Four  Tet", "Support": "Floating Points"}},
	}
	names, counts := DistinctNames(recs, NewColumnMatcher([]string{"DJ", "Support"}))
	assert.Equal(t, []string{"Floating Points", "Four Tet"}, names)
	assert.Equal(t, 2, counts["Four Tet"])
	assert.Equal(t, 1, counts["Floating Points"])
}

func TestSplitCollaborations(t *testing.T) {
	r := SplitCollaborations(Record{Slots: map[string]string{
		"DJ":      "Four Tet b2b Floating Points",
		"Artist":  "Bicep & Hammer",
		"Artist7": "Simon & Garfunkel",
	}})
	assert.Equal(t, map[string]string{
		"DJ0":     "Four Tet",
		"DJ1":     "Floating Points",
		"Artist0": "Bicep",
		"Artist1": "Hammer",
		"Artist7": "Simon & Garfunkel",
	}, r.Slots)
}

func TestExtractRemixers(t *testing.T) {
	r := ExtractRemixers(Record{
		TrackName: "Baby (Four Tet & Floating Points Remix)",
		Slots:     map[string]string{"Artist0": "Ellie Goulding"},
	})
	assert.Equal(t, "Four Tet", r.Slots["RemixOrEdit0"])
	assert.Equal(t, "Floating Points", r.Slots["RemixOrEdit1"])
	assert.Equal(t, "Ellie Goulding", r.Slots["Artist0"])

	plain := Record{TrackName: "Opus (Original Mix)", Slots: map[string]string{}}
	assert.Equal(t, map[string]string{"RemixOrEdit0": "Original"}, ExtractRemixers(plain).Slots)

	none := Record{TrackName: "Opus", Slots: map[string]string{}}
	assert.Empty(t, ExtractRemixers(none).Slots)
}

func TestReadCSV(t *testing.T) {
	in := strings.Join([]string{
		"TrackName,Date,Genre,DJ,Support",
		"Opus,2019-05-01,,Four Tet,",
		"Angel,2019-05-01,Techno,Four Tet,Floating Points",
	}, "\n")
	recs, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "1", recs[0].ID)
	assert.Equal(t, map[string]string{"DJ": "Four Tet"}, recs[0].Slots)
	assert.Equal(t, "Techno", recs[1].Genre)
	assert.Equal(t, "Floating Points", recs[1].Slots["Support"])
	assert.Equal(t, []string{"DJ", "Support"}, recs[1].Columns())
}

func TestReadCSVEmpty(t *testing.T) {
	recs, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestTokenSet(t *testing.T) {
	s := NewTokenSet([]string{"ID", " Unknown  Artist ", ""})
	assert.True(t, s.Contains("id"))
	assert.True(t, s.Contains("unknown artist"))
	assert.False(t, s.Contains("Idris"))
	assert.Len(t, s, 2)

	var empty TokenSet
	assert.False(t, empty.Contains("ID"))
}
