package fetcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTable(t *testing.T) {
	in := "geoid,lat,lon\n490351126021,40.76,-111.89\n490111255012,41.06,-111.97\n"

	tbl, err := ReadTable(strings.NewReader(in), TableOptions{TrimSpace: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"geoid", "lat", "lon"}, tbl.Header)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "490351126021", tbl.Get(tbl.Rows[0], "geoid"))
	assert.Equal(t, "-111.97", tbl.Get(tbl.Rows[1], "lon"))
	assert.Equal(t, "", tbl.Get(tbl.Rows[0], "missing"))
}

func TestReadTableStripsBOM(t *testing.T) {
	in := "\ufeffgeoid,lat\n490351126021,40.76\n"

	tbl, err := ReadTable(strings.NewReader(in), TableOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Col("geoid"))
}

func TestReadTableEmpty(t *testing.T) {
	_, err := ReadTable(strings.NewReader(""), TableOptions{})
	assert.Error(t, err)
}

func TestRequireCols(t *testing.T) {
	tbl, err := ReadTable(strings.NewReader("a,b\n1,2\n"), TableOptions{})
	require.NoError(t, err)

	assert.NoError(t, tbl.RequireCols("a", "b"))
	assert.Error(t, tbl.RequireCols("a", "c"))
}
