package mailstore

import (
	"context"
	"sort"
	"strings"
)

// SearchResult tags a matched row with which table it came from so callers
// can tell received and sent results apart after the merge.
type SearchResult struct {
	Received *ReceivedRow
	Sent     *SentRow
}

func (s SearchResult) date() (t int64) {
	if s.Received != nil {
		return s.Received.Date.Unix()
	}
	return s.Sent.Date.Unix()
}

// Search matches query as a case-insensitive substring against subject,
// from_addr, and each decoded to_addrs entry, across both tables
// (subject to includeReceived/includeSent), merging and sorting by date
// DESC before truncating to limit.
func (r *Repository) Search(ctx context.Context, query string, includeReceived, includeSent bool, limit int) ([]SearchResult, error) {
	var results []SearchResult

	if includeReceived {
		rows, err := r.ListReceived(ctx, ListFilter{IncludeDeleted: true, IncludeSpam: true, IncludeRecalled: true})
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if matchesQuery(query, row.Subject, row.FromAddr, row.ToAddrs) {
				results = append(results, SearchResult{Received: row})
			}
		}
	}

	if includeSent {
		rows, err := r.ListSent(ctx, SentFilter{IncludeSpam: true})
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if matchesQuery(query, row.Subject, row.FromAddr, row.ToAddrs) {
				results = append(results, SearchResult{Sent: row})
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].date() > results[j].date() })

	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

func matchesQuery(query, subject, fromAddr string, toAddrs []string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(subject), q) {
		return true
	}
	if strings.Contains(strings.ToLower(fromAddr), q) {
		return true
	}
	for _, to := range toAddrs {
		if strings.Contains(strings.ToLower(to), q) {
			return true
		}
	}
	return false
}
