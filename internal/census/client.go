// Package census fetches ACS 5-year block group estimates from the Census
// Bureau API and maps its failure modes to typed, operator-actionable errors.
package census

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/buildtrends/internal/fetcher"
)

// DefaultBaseURL is the Census data API root.
const DefaultBaseURL = "https://api.census.gov/data"

// Row is one fetched block group: identity plus raw variable values.
// Values the API returned empty or null are absent from Values; suppression
// sentinels (-666666666 family) are kept as-is.
type Row struct {
	GEOID  string             `json:"geoid"`
	Name   string             `json:"name"`
	Values map[string]float64 `json:"values"`
}

// Client talks to the ACS 5-year endpoint.
type Client struct {
	http    *fetcher.HTTPFetcher
	baseURL string
	apiKey  string
}

// NewClient creates a census API client. baseURL may be empty for the
// production endpoint; apiKey may be empty for keyless access.
func NewClient(f *fetcher.HTTPFetcher, baseURL, apiKey string) *Client {
	if f == nil {
		f = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{})
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: f, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

// matches the variable code the API names in 400-level error bodies,
// e.g. `error: error: unknown variable 'B25034_002E'`.
var varErrPattern = regexp.MustCompile(`'([A-Za-z0-9_]+)'`)

// FetchBlockGroups retrieves one row per block group in the state for the
// given vintage and variable codes.
//
// Failure mapping: HTTP 404 means the vintage is not published
// (VintageNotAvailableError, no retry); HTTP 400 naming a variable, or a
// variable whose column comes back entirely empty, means the code was
// renamed or retired (VariableDiscontinuedError, no retry); 429/5xx and
// network failures are retried with bounded backoff inside the fetcher.
func (c *Client) FetchBlockGroups(ctx context.Context, vintage int, stateFIPS string, varCodes []string) ([]Row, error) {
	if len(varCodes) == 0 {
		return nil, eris.New("census: no variable codes configured")
	}

	codes := append([]string(nil), varCodes...)
	sort.Strings(codes)

	reqURL := c.buildURL(vintage, stateFIPS, codes)
	log := zap.L().With(zap.String("component", "census"), zap.Int("vintage", vintage))
	log.Info("fetching ACS block group data", zap.Int("variables", len(codes)))

	resp, err := c.http.Get(ctx, reqURL)
	if err != nil {
		return nil, eris.Wrapf(err, "census: fetch vintage %d", vintage)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "census: read response")
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &VintageNotAvailableError{Vintage: vintage}
	case resp.StatusCode == http.StatusBadRequest:
		if m := varErrPattern.FindSubmatch(body); m != nil {
			return nil, &VariableDiscontinuedError{Code: string(m[1]), Vintage: vintage}
		}
		return nil, eris.Errorf("census: bad request: %s", truncate(string(body), 300))
	case resp.StatusCode != http.StatusOK:
		return nil, eris.Errorf("census: unexpected status %d: %s",
			resp.StatusCode, truncate(string(body), 300))
	}

	rows, err := parseResponse(body, stateFIPS, codes)
	if err != nil {
		return nil, eris.Wrapf(err, "census: parse vintage %d response", vintage)
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("census: vintage %d returned no block group rows for state %s", vintage, stateFIPS)
	}

	// A variable that exists in the vintage but returns no data for any
	// block group was retired mid-series under the same table name.
	for _, code := range codes {
		if populated := countPopulated(rows, code); populated == 0 {
			return nil, &VariableDiscontinuedError{Code: code, Vintage: vintage}
		}
	}

	log.Info("ACS fetch complete", zap.Int("block_groups", len(rows)))
	return rows, nil
}

func (c *Client) buildURL(vintage int, stateFIPS string, codes []string) string {
	q := url.Values{}
	q.Set("get", "NAME,"+strings.Join(codes, ","))
	q.Set("for", "block group:*")
	q.Add("in", "state:"+stateFIPS)
	q.Add("in", "county:*")
	q.Add("in", "tract:*")
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	return fmt.Sprintf("%s/%d/acs/acs5?%s", c.baseURL, vintage, q.Encode())
}

// parseResponse decodes the API's array-of-arrays payload: a header row of
// column names followed by all-string data rows (nulls for missing values).
func parseResponse(body []byte, stateFIPS string, codes []string) ([]Row, error) {
	var raw [][]*string
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, eris.Wrap(err, "decode response array")
	}
	if len(raw) < 1 {
		return nil, eris.New("response has no header row")
	}

	col := make(map[string]int, len(raw[0]))
	for i, h := range raw[0] {
		if h != nil {
			col[*h] = i
		}
	}
	for _, required := range []string{"NAME", "state", "county", "tract", "block group"} {
		if _, ok := col[required]; !ok {
			return nil, eris.Errorf("response missing column %q", required)
		}
	}

	cell := func(rec []*string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) || rec[i] == nil {
			return ""
		}
		return *rec[i]
	}

	rows := make([]Row, 0, len(raw)-1)
	for _, rec := range raw[1:] {
		geoid := pad(cell(rec, "state"), 2) +
			pad(cell(rec, "county"), 3) +
			pad(cell(rec, "tract"), 6) +
			pad(cell(rec, "block group"), 1)
		if len(geoid) != 12 {
			return nil, eris.Errorf("assembled geoid %q is not 12 characters", geoid)
		}
		if stateFIPS != "" && !strings.HasPrefix(geoid, stateFIPS) {
			continue
		}

		r := Row{
			GEOID:  geoid,
			Name:   cell(rec, "NAME"),
			Values: make(map[string]float64, len(codes)),
		}
		for _, code := range codes {
			s := cell(rec, code)
			if s == "" {
				continue
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "geoid %s: variable %s value %q", geoid, code, s)
			}
			r.Values[code] = v
		}
		rows = append(rows, r)
	}

	return rows, nil
}

func countPopulated(rows []Row, code string) int {
	n := 0
	for _, r := range rows {
		if _, ok := r.Values[code]; ok {
			n++
		}
	}
	return n
}

func pad(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
