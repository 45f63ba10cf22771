package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDMarshal(t *testing.T) {
	tests := map[ID]string{
		"5":   `5`,
		"-3":  `-3`,
		"007": `"007"`,
		"+5":  `"+5"`,
		"-0":  `"-0"`,
		"abc": `"abc"`,
		"":    `""`,
		"1e3": `"1e3"`,
		"99x": `"99x"`,
		"0":   `0`,
	}
	for id, want := range tests {
		got, err := json.Marshal(id)
		require.NoError(t, err, string(id))
		assert.Equal(t, want, string(got), string(id))
	}
}

func TestIDRoundTrip(t *testing.T) {
	for _, id := range []ID{"5", "007", "+5", "abc", "0"} {
		data, err := json.Marshal(struct {
			ID ID `json:"id"`
		}{id})
		require.NoError(t, err)

		var back struct {
			ID ID `json:"id"`
		}
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, id, back.ID)
	}
}

func TestIDUnmarshalNumberAndNull(t *testing.T) {
	var v struct {
		A ID `json:"a"`
		B ID `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":42,"b":null}`), &v))
	assert.Equal(t, ID("42"), v.A)
	assert.Equal(t, ID(""), v.B)
}

func TestWeekByFullNameMergesAliases(t *testing.T) {
	week := Week{Days: map[string]Day{
		"monday":  {"lunch": {ID: "1"}, "dinner": {ID: "2"}},
		"MON":     {"lunch": {ID: "9"}, "Snacks": {ID: "3"}, "breakfast": nil},
		"1":       {"snacks": {ID: "8"}, "breakfast": {ID: "4"}},
		"FRI":     {"dinner": {ID: "5"}},
		"someday": {"lunch": {ID: "6"}},
	}}

	for i := 0; i < 20; i++ {
		got := week.ByFullName()
		require.Len(t, got, 2)
		mon := got["monday"]
		require.Len(t, mon, 4)
		assert.Equal(t, ID("1"), mon["lunch"].ID, "full-name key wins")
		assert.Equal(t, ID("2"), mon["dinner"].ID)
		assert.Equal(t, ID("3"), mon["snacks"].ID, "later sorted alias wins")
		assert.Equal(t, ID("4"), mon["breakfast"].ID)
		assert.Equal(t, ID("5"), got["friday"]["dinner"].ID)
	}
}
