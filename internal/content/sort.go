package content

import "sort"

// sortViews re-sorts a joined page in memory. Latest/oldest order by post
// creation time; most-commented orders by live comment count descending
// with creation time then id as tie-breaks so the order is deterministic.
func sortViews(views []*PostView, by Sort) {
	switch by {
	case SortLatest:
		sort.SliceStable(views, func(i, j int) bool {
			return views[i].CreatedAt.After(views[j].CreatedAt)
		})
	case SortOldest:
		sort.SliceStable(views, func(i, j int) bool {
			return views[i].CreatedAt.Before(views[j].CreatedAt)
		})
	case SortMostCommented:
		sort.SliceStable(views, func(i, j int) bool {
			if views[i].CommentCount != views[j].CommentCount {
				return views[i].CommentCount > views[j].CommentCount
			}
			if !views[i].CreatedAt.Equal(views[j].CreatedAt) {
				return views[i].CreatedAt.After(views[j].CreatedAt)
			}
			return views[i].ID > views[j].ID
		})
	}
}

// pageBounds computes pagination metadata over live (post-filtered) rows.
func pageBounds(total int64, limit, offset int) (nextOffset *int, hasNext bool) {
	end := offset + limit
	if int64(end) < total {
		return &end, true
	}
	return nil, false
}
