package lottofeed

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	pageDatePattern = regexp.MustCompile(`(\d{4})\D+(\d{1,2})\D+(\d{1,2})`)
	digitsPattern   = regexp.MustCompile(`\d+`)
)

// fetchPage scrapes the draw result page for one draw
func (c *Client) fetchPage(ctx context.Context, drawNo int) (*Result, error) {
	target := c.PageURL + "&drwNo=" + strconv.Itoa(drawNo)
	body, err := c.get(ctx, target, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch result page for draw %d: %w", drawNo, err)
	}
	return parsePage(body, drawNo)
}

// parsePage extracts a draw from the publisher's result page
func parsePage(body []byte, drawNo int) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse result page: %w", err)
	}

	win := doc.Find(".win_result").First()
	if win.Length() == 0 {
		return nil, ErrNotPublished
	}

	pageDrawNo, err := strconv.Atoi(digitsPattern.FindString(win.Find("h4 strong").Text()))
	if err != nil {
		return nil, fmt.Errorf("result page has no draw number")
	}
	if pageDrawNo != drawNo {
		// the page shows the latest draw when the requested one does not exist
		return nil, ErrNotPublished
	}

	var nums []int
	win.Find(".num.win span").Each(func(_ int, s *goquery.Selection) {
		if n, err := strconv.Atoi(strings.TrimSpace(s.Text())); err == nil {
			nums = append(nums, n)
		}
	})
	if len(nums) != 6 {
		return nil, fmt.Errorf("result page for draw %d lists %d numbers", drawNo, len(nums))
	}
	sort.Ints(nums)

	bonus, err := strconv.Atoi(strings.TrimSpace(win.Find(".num.bonus span").First().Text()))
	if err != nil {
		return nil, fmt.Errorf("result page for draw %d has no bonus number", drawNo)
	}

	m := pageDatePattern.FindStringSubmatch(win.Find("p.desc").Text())
	if m == nil {
		return nil, fmt.Errorf("result page for draw %d has no date", drawNo)
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])

	var prize int64
	cell := doc.Find("table.tbl_data tbody tr").First().Find("td").Eq(3).Text()
	if digits := strings.Join(digitsPattern.FindAllString(cell, -1), ""); digits != "" {
		prize, _ = strconv.ParseInt(digits, 10, 64)
	}

	return &Result{
		DrawNo:   drawNo,
		DrawDate: fmt.Sprintf("%04d-%02d-%02d", y, mo, d),
		Numbers:  nums,
		Bonus:    bonus,
		Prize1st: prize,
	}, nil
}
