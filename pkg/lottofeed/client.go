// Package lottofeed is a client for the lottery publisher's draw result feed.
package lottofeed

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://www.dhlottery.co.kr/common.do"
	DefaultPageURL = "https://www.dhlottery.co.kr/gameResult.do?method=byWin"
)

// ErrNotPublished is returned for draw numbers the publisher does not have yet
var ErrNotPublished = errors.New("draw not published")

var kst = time.FixedZone("KST", 9*60*60)

// FirstDraw is when draw 1 took place. Draws follow weekly.
var FirstDraw = time.Date(2002, 12, 7, 20, 45, 0, 0, kst)

// Result is one draw as reported by the publisher
type Result struct {
	DrawNo   int
	DrawDate string
	Numbers  []int
	Bonus    int
	Prize1st int64
}

// Options configures a Client
type Options struct {
	BaseURL string
	PageURL string
	// CurrentDrawNo pins the latest draw number; 0 estimates it from the calendar
	CurrentDrawNo     int
	MockAPI           bool
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Client fetches draws from the publisher
type Client struct {
	BaseURL       string
	PageURL       string
	CurrentDrawNo int
	MockAPI       bool
	client        *http.Client
	limiter       *rate.Limiter
	now           func() time.Time
}

// NewClient creates a new feed client
func NewClient(opts Options) *Client {
	c := &Client{
		BaseURL:       opts.BaseURL,
		PageURL:       opts.PageURL,
		CurrentDrawNo: opts.CurrentDrawNo,
		MockAPI:       opts.MockAPI,
		client:        &http.Client{Timeout: opts.Timeout},
		now:           time.Now,
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.PageURL == "" {
		c.PageURL = DefaultPageURL
	}
	if opts.Timeout <= 0 {
		c.client.Timeout = 10 * time.Second
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	} else {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return c
}

// EstimateLatestDrawNo returns the number of the most recent weekly draw at t,
// or 0 before the first draw
func EstimateLatestDrawNo(t time.Time) int {
	if t.Before(FirstDraw) {
		return 0
	}
	return int(t.Sub(FirstDraw)/(7*24*time.Hour)) + 1
}

// LatestDrawNo returns the configured draw number or the calendar estimate
func (c *Client) LatestDrawNo(ctx context.Context) (int, error) {
	if c.CurrentDrawNo > 0 {
		return c.CurrentDrawNo, nil
	}
	return EstimateLatestDrawNo(c.now()), nil
}

// FetchDraw retrieves one draw. It tries the JSON endpoint first and falls
// back to the result page when the publisher answers with HTML.
func (c *Client) FetchDraw(ctx context.Context, drawNo int) (*Result, error) {
	if drawNo < 1 {
		return nil, fmt.Errorf("invalid draw number %d", drawNo)
	}
	if c.MockAPI {
		return c.mockFetchDraw(ctx, drawNo)
	}

	q := url.Values{}
	q.Set("method", "getLottoNumber")
	q.Set("drwNo", strconv.Itoa(drawNo))
	body, err := c.get(ctx, c.BaseURL+"?"+q.Encode(), "application/json, text/javascript, */*; q=0.01")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch draw %d: %w", drawNo, err)
	}
	if !gjson.ValidBytes(body) {
		return c.fetchPage(ctx, drawNo)
	}
	return parseJSON(body, drawNo)
}

func parseJSON(body []byte, drawNo int) (*Result, error) {
	doc := gjson.ParseBytes(body)
	if doc.Get("returnValue").String() != "success" {
		return nil, ErrNotPublished
	}

	fields := gjson.GetManyBytes(body, "drwNo", "drwNoDate", "drwtNo1", "drwtNo2", "drwtNo3",
		"drwtNo4", "drwtNo5", "drwtNo6", "bnusNo", "firstWinamnt")
	for i, f := range fields[:9] {
		if !f.Exists() {
			return nil, fmt.Errorf("draw %d response is missing field %d", drawNo, i)
		}
	}

	nums := make([]int, 0, 6)
	for _, f := range fields[2:8] {
		nums = append(nums, int(f.Int()))
	}
	sort.Ints(nums)
	return &Result{
		DrawNo:   int(fields[0].Int()),
		DrawDate: fields[1].String(),
		Numbers:  nums,
		Bonus:    int(fields[8].Int()),
		Prize1st: fields[9].Int(),
	}, nil
}

func (c *Client) get(ctx context.Context, target, accept string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; lotto-engine/1.0)")
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en;q=0.5")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("publisher returned non-OK status: %d", resp.StatusCode)
	}

	var r io.Reader = resp.Body
	if strings.Contains(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// mockFetchDraw returns a reproducible draw for every number up to the
// latest draw
func (c *Client) mockFetchDraw(ctx context.Context, drawNo int) (*Result, error) {
	latest, err := c.LatestDrawNo(ctx)
	if err != nil {
		return nil, err
	}
	if drawNo > latest {
		return nil, ErrNotPublished
	}

	rng := rand.New(rand.NewPCG(uint64(drawNo), 0))
	perm := rng.Perm(45)
	nums := make([]int, 6)
	for i := range nums {
		nums[i] = perm[i] + 1
	}
	sort.Ints(nums)
	return &Result{
		DrawNo:   drawNo,
		DrawDate: FirstDraw.AddDate(0, 0, 7*(drawNo-1)).Format("2006-01-02"),
		Numbers:  nums,
		Bonus:    perm[6] + 1,
		Prize1st: int64(1_000_000_000 + rng.IntN(2_000_000_000)),
	}, nil
}
