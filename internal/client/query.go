package client

import (
	"context"
	"net/url"

	"github.com/artevasinkaizen-cmd/partesapp/internal/storage"
)

// MissingIDMessage is returned when an update or delete is executed without
// an id having been captured through Eq("id", ...).
const MissingIDMessage = "Missing ID for update/delete"

type pendingKind int

const (
	pendingNone pendingKind = iota
	pendingUpdate
	pendingDelete
)

// QueryBuilder accumulates a query against one table. Select/Order/Eq chain;
// InsertOne fires immediately; Update/Delete defer until Exec.
type QueryBuilder struct {
	client *Client
	table  string
	params map[string]string
	order  string

	pending     pendingKind
	pendingBody any
	pendingID   string
}

// Select is accepted for source compatibility; column projection is not
// applied by the server.
func (q *QueryBuilder) Select(columns ...string) *QueryBuilder {
	return q
}

// Order records an ordering specification. The server reserves the parameter
// without applying it.
func (q *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.order = column + "." + dir
	return q
}

// Eq adds a column-equality filter. For a pending update or delete, an id
// equality captures the target instead.
func (q *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	if q.pending != pendingNone && column == "id" {
		q.pendingID = storage.Stringify(value)
		return q
	}
	q.params[column] = storage.Stringify(value)
	return q
}

// InsertOne posts a row immediately and returns the created record wrapped
// in a single-element array, per the wire contract.
func (q *QueryBuilder) InsertOne(ctx context.Context, row any) Result {
	return q.client.request(ctx, "POST", "/"+q.table, row)
}

// Update defers a patch until Exec; the target id comes from Eq("id", ...).
func (q *QueryBuilder) Update(patch any) *QueryBuilder {
	q.pending = pendingUpdate
	q.pendingBody = patch
	return q
}

// Delete defers a removal until Exec; the target id comes from Eq("id", ...).
func (q *QueryBuilder) Delete() *QueryBuilder {
	q.pending = pendingDelete
	return q
}

// Exec runs the accumulated query: the pending update/delete when one was
// staged, otherwise a filtered select.
func (q *QueryBuilder) Exec(ctx context.Context) Result {
	switch q.pending {
	case pendingUpdate:
		if q.pendingID == "" {
			return Result{Error: &Error{Message: MissingIDMessage}}
		}
		return q.client.request(ctx, "PATCH", "/"+q.table+"/"+url.PathEscape(q.pendingID), q.pendingBody)
	case pendingDelete:
		if q.pendingID == "" {
			return Result{Error: &Error{Message: MissingIDMessage}}
		}
		return q.client.request(ctx, "DELETE", "/"+q.table+"/"+url.PathEscape(q.pendingID), nil)
	}
	return q.Find(ctx)
}

// Find issues the filtered select regardless of any staged mutation.
func (q *QueryBuilder) Find(ctx context.Context) Result {
	values := url.Values{}
	for k, v := range q.params {
		values.Set(k, v)
	}
	if q.order != "" {
		values.Set("order", q.order)
	}
	path := "/" + q.table
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}
	return q.client.request(ctx, "GET", path, nil)
}

// UpdateByID patches a record in one call, bypassing the deferred chain.
func (q *QueryBuilder) UpdateByID(ctx context.Context, id any, patch any) Result {
	return q.Update(patch).Eq("id", id).Exec(ctx)
}

// DeleteByID removes a record in one call, bypassing the deferred chain.
func (q *QueryBuilder) DeleteByID(ctx context.Context, id any) Result {
	return q.Delete().Eq("id", id).Exec(ctx)
}
