package recordapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"healthmate/internal/domain"
)

// Resource is one record collection of the backend, e.g. /meal-logs.
type Resource[R domain.Record, D domain.Draft[D]] struct {
	client *Client
	path   string
}

// ListByDate returns the records of userID on date in server order.
func (r *Resource[R, D]) ListByDate(ctx context.Context, userID string, date domain.LogDate) ([]R, error) {
	q := url.Values{
		"log_date": {date.String()},
		"user_id":  {userID},
	}
	return r.list(ctx, "/by-date", q)
}

// Create posts draft and returns the record the server created.
func (r *Resource[R, D]) Create(ctx context.Context, draft D) (R, error) {
	var out R
	if err := r.client.do(ctx, http.MethodPost, r.path, nil, draft, &out); err != nil {
		var zero R
		return zero, fmt.Errorf("create %s: %w", r.path, err)
	}
	return out, nil
}

// Today lists userID's records for the backend's current date.
func (r *Resource[R, D]) Today(ctx context.Context, userID string) ([]R, error) {
	return r.list(ctx, "/today", url.Values{"user_id": {userID}})
}

// Week lists userID's records for the last seven days, oldest first.
func (r *Resource[R, D]) Week(ctx context.Context, userID string) ([]R, error) {
	return r.list(ctx, "/week", url.Values{"user_id": {userID}})
}

// All lists every record of userID, newest first. The backend serves it for
// health logs only.
func (r *Resource[R, D]) All(ctx context.Context, userID string) ([]R, error) {
	return r.list(ctx, "/all", url.Values{"user_id": {userID}})
}

func (r *Resource[R, D]) list(ctx context.Context, suffix string, q url.Values) ([]R, error) {
	var out []R
	if err := r.client.do(ctx, http.MethodGet, r.path+suffix, q, nil, &out); err != nil {
		return nil, fmt.Errorf("list %s%s: %w", r.path, suffix, err)
	}
	return out, nil
}
