package census

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/buildtrends/internal/fetcher"
)

const acsBody = `[
["NAME","B25034_001E","B25034_002E","state","county","tract","block group"],
["Block Group 1, Tract 1126.02, Salt Lake County, Utah","350","28","49","035","112602","1"],
["Block Group 2, Tract 1126.02, Salt Lake County, Utah","0","0","49","035","112602","2"],
["Block Group 1, Tract 1255.01, Davis County, Utah","-666666666",null,"49","011","125501","1"]
]`

func newTestClient(srvURL string) *Client {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:     5 * time.Second,
		MaxAttempts: 3,
	})
	return NewClient(f, srvURL, "")
}

func TestFetchBlockGroups(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2023/acs/acs5", r.URL.Path)
		assert.Equal(t, "block group:*", r.URL.Query().Get("for"))
		assert.Contains(t, r.URL.Query()["in"], "state:49")
		assert.Equal(t, "NAME,B25034_001E,B25034_002E", r.URL.Query().Get("get"))
		fmt.Fprint(w, acsBody)
	}))
	defer srv.Close()

	rows, err := newTestClient(srv.URL).FetchBlockGroups(
		context.Background(), 2023, "49", []string{"B25034_001E", "B25034_002E"})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "490351126021", rows[0].GEOID)
	assert.Equal(t, 350.0, rows[0].Values["B25034_001E"])
	assert.Equal(t, 28.0, rows[0].Values["B25034_002E"])

	// Sentinel values are preserved, not rewritten.
	assert.Equal(t, -666666666.0, rows[2].Values["B25034_001E"])

	// Null cells are absent, distinguishable from zero.
	_, ok := rows[2].Values["B25034_002E"]
	assert.False(t, ok)
	assert.Equal(t, 0.0, rows[1].Values["B25034_002E"])
}

func TestFetchVintageNotAvailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "error: unknown dataset", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchBlockGroups(
		context.Background(), 2099, "49", []string{"B25034_001E"})
	require.Error(t, err)
	assert.True(t, IsVintageNotAvailable(err))
	assert.Contains(t, err.Error(), "2099")
	assert.Equal(t, int32(1), calls.Load(), "vintage-not-found must not be retried")
}

func TestFetchVariableDiscontinued(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "error: error: unknown variable 'B25034_099E'", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchBlockGroups(
		context.Background(), 2023, "49", []string{"B25034_001E", "B25034_099E"})
	require.Error(t, err)
	assert.True(t, IsVariableDiscontinued(err))
	assert.Contains(t, err.Error(), "B25034_099E")
	assert.False(t, IsVintageNotAvailable(err), "failure kinds must not be conflated")
}

func TestFetchAllEmptyColumnIsDiscontinued(t *testing.T) {
	body := `[
["NAME","B25034_001E","B99999_001E","state","county","tract","block group"],
["BG 1","350",null,"49","035","112602","1"],
["BG 2","120",null,"49","035","112602","2"]
]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchBlockGroups(
		context.Background(), 2023, "49", []string{"B25034_001E", "B99999_001E"})
	require.Error(t, err)
	assert.True(t, IsVariableDiscontinued(err))
	assert.Contains(t, err.Error(), "B99999_001E")
}

func TestFetchHeaderOnlyResponse(t *testing.T) {
	body := `[
["NAME","B25034_001E","B25034_002E","state","county","tract","block group"]
]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchBlockGroups(
		context.Background(), 2023, "49", []string{"B25034_001E", "B25034_002E"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no block group rows")

	// An empty row set is a geography problem, not a retired variable.
	assert.False(t, IsVariableDiscontinued(err))
}

func TestFetchRetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, acsBody)
	}))
	defer srv.Close()

	rows, err := newTestClient(srv.URL).FetchBlockGroups(
		context.Background(), 2023, "49", []string{"B25034_001E", "B25034_002E"})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchMalformedGEOID(t *testing.T) {
	body := `[
["NAME","B25034_001E","state","county","tract","block group"],
["BG 1","350","49","035","112602","11"]
]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchBlockGroups(
		context.Background(), 2023, "49", []string{"B25034_001E"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "12 characters"))
}

func TestFetchNoVariables(t *testing.T) {
	_, err := newTestClient("http://unused").FetchBlockGroups(
		context.Background(), 2023, "49", nil)
	assert.Error(t, err)
}
