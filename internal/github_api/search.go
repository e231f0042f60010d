package githubapi

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

type SearchQuery struct {
	Language        string
	AdditionalQuery string
	// YYYY-MM-DD, inclusive
	CreatedFrom string
	CreatedTo   string
	PerPage     int
	// Maximum repositories to return, 0 means no limit
	Limit int
}

func (q SearchQuery) String() string {
	parts := make([]string, 0, 3)
	if q.Language != "" {
		parts = append(parts, "language:"+q.Language)
	}
	if extra := strings.TrimSpace(q.AdditionalQuery); extra != "" {
		parts = append(parts, extra)
	}
	if q.CreatedFrom != "" && q.CreatedTo != "" {
		parts = append(parts, fmt.Sprintf("created:%s..%s", q.CreatedFrom, q.CreatedTo))
	}
	return strings.Join(parts, " ")
}

func (c *Caller) SearchURL(q SearchQuery) string {
	perPage := q.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = 100
	}
	return fmt.Sprintf("%s/search/repositories?q=%s&per_page=%s", c.opts.BaseURL, url.QueryEscape(q.String()), strconv.Itoa(perPage))
}

// SearchRepositories follows the next relation until the limit is reached or
// the results run out. A non-fatal error on a later page ends the search with
// what was collected so far.
func (c *Caller) SearchRepositories(ctx context.Context, q SearchQuery) ([]RepositoryItem, error) {
	c.Logger.Info(ctx, "Searching repositories: %s", q.String())

	var repos []RepositoryItem
	page := 0
	for next := c.SearchURL(q); next != ""; {
		page++
		var resp SearchResponse
		header, err := c.GetJSON(ctx, next, &resp)
		if err != nil {
			if IsFatal(err) || len(repos) == 0 {
				return repos, err
			}
			c.Logger.Error(ctx, "Search stopped at page %d: %v", page, err)
			break
		}

		repos = append(repos, resp.Items...)
		c.Logger.Info(ctx, "Total repositories found: %d, page: %d, items received: %d",
			resp.TotalCount, page, len(resp.Items))

		if q.Limit > 0 && len(repos) >= q.Limit {
			break
		}
		next = NextLink(header.Get("Link"))
	}

	if q.Limit > 0 && len(repos) > q.Limit {
		repos = repos[:q.Limit]
	}
	if len(repos) >= 1000 {
		c.Logger.Warn(ctx, "GitHub API only provides access to the first 1,000 search results")
	}
	return repos, nil
}

var linkRe = regexp.MustCompile(`<([^>]+)>\s*;\s*rel="([^"]+)"`)

// NextLink extracts the rel="next" URL from a Link header.
func NextLink(header string) string {
	for _, m := range linkRe.FindAllStringSubmatch(header, -1) {
		for _, rel := range strings.Fields(m[2]) {
			if rel == "next" {
				return m[1]
			}
		}
	}
	return ""
}
