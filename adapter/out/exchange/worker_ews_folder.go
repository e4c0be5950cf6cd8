package exchange

import (
	"context"
	"fmt"
	"time"

	"exchange_calendar/core/domain"
	"exchange_calendar/core/port/out"
)

const (
	defaultPageSize = 100
	getItemBatch    = 100
	maxPages        = 100
)

var findItemFields = []fieldURI{
	{FieldURI: "item:Subject"},
	{FieldURI: "calendar:Start"},
	{FieldURI: "calendar:End"},
	{FieldURI: "calendar:Location"},
	{FieldURI: "calendar:IsAllDayEvent"},
	{FieldURI: "calendar:UID"},
}

// Folder is a resolved EWS calendar folder.
type Folder struct {
	client   *Client
	id       folderID
	name     string
	loc      *time.Location
	pageSize int
}

var _ out.CalendarFolder = (*Folder)(nil)

func (f *Folder) Name() string { return f.name }

func (f *Folder) ID() string { return f.id.ID }

// Filter finds the calendar items matching every bound of q, in server
// order, and loads their text bodies.
func (f *Folder) Filter(ctx context.Context, q out.CalendarQuery) ([]*domain.CandidateEvent, error) {
	raw, err := f.findItems(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return []*domain.CandidateEvent{}, nil
	}

	bodies, err := f.textBodies(ctx, raw)
	if err != nil {
		return nil, err
	}

	events := make([]*domain.CandidateEvent, 0, len(raw))
	for _, item := range raw {
		ev, err := toCandidate(item, f.loc)
		if err != nil {
			return nil, err
		}
		ev.TextBody = bodies[item.ItemID.ID]
		events = append(events, ev)
	}
	return events, nil
}

func (f *Folder) findItems(ctx context.Context, q out.CalendarQuery) ([]calendarItem, error) {
	pageSize := f.pageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	var items []calendarItem
	offset := 0
	for page := 0; page < maxPages; page++ {
		res, err := f.client.call(ctx, "FindItem", body{FindItem: &findItemRequest{
			Traversal: "Shallow",
			ItemShape: itemShape{
				BaseShape:            "IdOnly",
				AdditionalProperties: &additionalProperties{FieldURI: findItemFields},
			},
			IndexedPageItemView: indexedPageItemView{
				MaxEntriesReturned: pageSize,
				Offset:             offset,
				BasePoint:          "Beginning",
			},
			Restriction:     buildRestriction(q),
			ParentFolderIds: folderIds{FolderID: &f.id},
		}})
		if err != nil {
			return nil, err
		}
		if res.FindItemResponse == nil || len(res.FindItemResponse.Messages) == 0 {
			return nil, fmt.Errorf("FindItem: %w", ErrUnexpectedBody)
		}

		msg := res.FindItemResponse.Messages[0]
		if err := msg.err(); err != nil {
			return nil, fmt.Errorf("FindItem: %w", err)
		}

		items = append(items, msg.RootFolder.Items...)
		if msg.RootFolder.IncludesLastItemInRange || len(msg.RootFolder.Items) == 0 {
			return items, nil
		}

		next := msg.RootFolder.IndexedPagingOffset
		if next <= offset {
			next = offset + len(msg.RootFolder.Items)
		}
		offset = next
	}
	return items, nil
}

// textBodies loads item:TextBody, which FindItem cannot return.
func (f *Folder) textBodies(ctx context.Context, items []calendarItem) (map[string]string, error) {
	bodies := make(map[string]string, len(items))

	for start := 0; start < len(items); start += getItemBatch {
		end := min(start+getItemBatch, len(items))

		ids := make([]itemID, 0, end-start)
		for _, item := range items[start:end] {
			ids = append(ids, item.ItemID)
		}

		res, err := f.client.call(ctx, "GetItem", body{GetItem: &getItemRequest{
			ItemShape: itemShape{
				BaseShape:            "IdOnly",
				BodyType:             "Text",
				AdditionalProperties: &additionalProperties{FieldURI: []fieldURI{{FieldURI: "item:TextBody"}}},
			},
			ItemIds: itemIds{ItemID: ids},
		}})
		if err != nil {
			return nil, err
		}
		if res.GetItemResponse == nil {
			return nil, fmt.Errorf("GetItem: %w", ErrUnexpectedBody)
		}

		for _, msg := range res.GetItemResponse.Messages {
			if err := msg.err(); err != nil {
				// 조회 사이에 삭제된 항목은 본문 없이 진행
				if msg.ResponseCode == "ErrorItemNotFound" {
					continue
				}
				return nil, fmt.Errorf("GetItem: %w", err)
			}
			for _, item := range msg.Items {
				bodies[item.ItemID.ID] = item.TextBody
			}
		}
	}
	return bodies, nil
}

// buildRestriction ANDs the set bounds of q; nil when q has none.
func buildRestriction(q out.CalendarQuery) *restriction {
	if q.IsEmpty() {
		return nil
	}

	var conds []comparison
	if q.StartBefore != nil {
		conds = append(conds, newComparison("t:IsLessThan", "calendar:Start", *q.StartBefore))
	}
	if q.EndAfter != nil {
		conds = append(conds, newComparison("t:IsGreaterThan", "calendar:End", *q.EndAfter))
	}
	if q.EndBefore != nil {
		conds = append(conds, newComparison("t:IsLessThan", "calendar:End", *q.EndBefore))
	}
	return &restriction{And: andExpression{Conditions: conds}}
}

func newComparison(op, field string, value time.Time) comparison {
	c := comparison{
		FieldURI: fieldURI{FieldURI: field},
		Constant: fieldURIConstant{Constant: constant{Value: formatDateTime(value)}},
	}
	c.XMLName.Local = op
	return c
}
