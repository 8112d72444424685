package server

import (
	"context"
	"fmt"
	"strings"

	"kinbridge/internal/api"
	"kinbridge/internal/config"
	"kinbridge/internal/kintone"
	"kinbridge/internal/notify"
)

const (
	searchLimit  = 50
	historyLimit = 100
)

// Directory answers company, record and history lookups against the uid
// master and inbound apps.
type Directory struct {
	records RecordStore
	cfg     *config.Config
	fields  config.FieldMap
}

// NewDirectory creates a Directory over records.
func NewDirectory(records RecordStore, cfg *config.Config, fields config.FieldMap) *Directory {
	return &Directory{records: records, cfg: cfg, fields: fields}
}

func (d *Directory) uidApp() (kintone.App, error) {
	if d.records == nil {
		return kintone.App{}, &config.MissingError{Keys: []string{"kintone.base_url"}}
	}
	if err := d.cfg.RequireUIDApp(); err != nil {
		return kintone.App{}, err
	}
	return kintone.App{ID: d.cfg.Kintone.UIDAppID, Token: d.cfg.Kintone.UIDAPIToken}, nil
}

func (d *Directory) inboundApp() (kintone.App, error) {
	if d.records == nil {
		return kintone.App{}, &config.MissingError{Keys: []string{"kintone.base_url"}}
	}
	if err := d.cfg.RequireInboundApp(); err != nil {
		return kintone.App{}, err
	}
	return kintone.App{ID: d.cfg.Kintone.InboundAppID, Token: d.cfg.Kintone.InboundAPIToken}, nil
}

// ResolveCompany maps a user id to its company id. A uid without a master
// record, or whose record has no company id, wraps kintone.ErrNotFound.
func (d *Directory) ResolveCompany(ctx context.Context, uid string) (string, error) {
	app, err := d.uidApp()
	if err != nil {
		return "", err
	}

	fields := d.fields.UIDMaster
	query := kintone.NewQuery().Where(kintone.Eq(fields.UID, uid)).Limit(1).String()
	records, err := d.records.QueryRecords(ctx, app, query)
	if err != nil {
		return "", fmt.Errorf("resolve uid: %w", err)
	}
	if len(records) == 0 {
		return "", fmt.Errorf("uid %q: %w", uid, kintone.ErrNotFound)
	}
	companyID, ok := records[0].Text(fields.CompanyID)
	if !ok || strings.TrimSpace(companyID) == "" {
		return "", fmt.Errorf("company id for uid %q: %w", uid, kintone.ErrNotFound)
	}
	return companyID, nil
}

// Search lists the company's inbound records still awaiting an invoice:
// upload flag done or blank, and unit price flag not done.
func (d *Directory) Search(ctx context.Context, uid string) (api.SearchResponse, error) {
	companyID, err := d.ResolveCompany(ctx, uid)
	if err != nil {
		return api.SearchResponse{}, err
	}
	app, err := d.inboundApp()
	if err != nil {
		return api.SearchResponse{}, err
	}

	fields := d.fields.Inbound
	uploaded := d.cfg.Attachments
	query := kintone.NewQuery().
		Where(kintone.Eq(fields.CompanyID, companyID)).
		Where(kintone.Or(
			kintone.Eq(uploaded.UploadedField, uploaded.UploadedValue),
			kintone.Eq(uploaded.UploadedField, ""),
		)).
		Where(kintone.NotIn(fields.UnitPriceFlag, uploaded.UploadedValue)).
		OrderBy(fields.RecordNumber, true).
		Limit(searchLimit).
		String()

	records, err := d.records.QueryRecords(ctx, app, query)
	if err != nil {
		return api.SearchResponse{}, fmt.Errorf("search records: %w", err)
	}

	resp := api.SearchResponse{Records: make([]api.SearchRecord, 0, len(records)), CompanyID: companyID}
	for _, rec := range records {
		resp.Records = append(resp.Records, d.searchRecord(rec))
	}
	return resp, nil
}

func (d *Directory) searchRecord(rec kintone.Record) api.SearchRecord {
	fields := d.fields.Inbound
	id, _ := rec.ID()
	baseDate, _ := rec.Text(fields.BaseDate)
	out := api.SearchRecord{RecordID: id, BaseDate: baseDate, ItemTable: []api.SearchItem{}}

	rows, _ := rec.Table(fields.ItemTable)
	for _, row := range rows {
		name, _ := row.Value.Text(fields.ItemName)
		qty, _ := row.Value.Number(fields.Qty)
		lots, ok := row.Value.Strings(fields.DesignLot)
		if !ok {
			lots = []string{}
		}
		out.ItemTable = append(out.ItemTable, api.SearchItem{ItemName: name, Qty: qty, DesignLot: lots})
	}
	return out
}

// History lists the company's most recent inbound records.
func (d *Directory) History(ctx context.Context, companyID string) ([]api.HistoryItem, error) {
	app, err := d.inboundApp()
	if err != nil {
		return nil, err
	}

	fields := d.fields.Inbound
	query := kintone.NewQuery().
		Where(kintone.Eq(fields.CompanyID, companyID)).
		OrderBy(fields.CreatedAt, true).
		Limit(historyLimit).
		String()
	records, err := d.records.QueryRecords(ctx, app, query)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	items := make([]api.HistoryItem, 0, len(records))
	for _, rec := range records {
		id, _ := rec.ID()
		qtySum, _ := rec.Number(fields.QtySum)
		canceled, _ := rec.Strings(fields.Cancel)
		items = append(items, api.HistoryItem{
			RecordID:    id,
			CreatedAt:   rec.TextOr(fields.CreatedAt, ""),
			PlannedDate: rec.TextOr(fields.PlannedDate, ""),
			SlipNo:      rec.TextOr(fields.SlipNo, ""),
			Status:      rec.TextOr(fields.Status, ""),
			QtySum:      qtySum,
			IsCanceled:  len(canceled) > 0,
		})
	}
	return items, nil
}

// Cancel marks an inbound record as canceled on behalf of uid and returns
// the uid's company id.
func (d *Directory) Cancel(ctx context.Context, recordID, uid string) (string, error) {
	companyID, err := d.ResolveCompany(ctx, uid)
	if err != nil {
		return "", err
	}
	app, err := d.inboundApp()
	if err != nil {
		return "", err
	}

	fields := d.fields.Inbound
	updates := kintone.Updates{}.Set(fields.Cancel, []string{fields.CancelValue})
	if err := d.records.UpdateRecord(ctx, app, recordID, updates); err != nil {
		return "", fmt.Errorf("cancel record %s: %w", recordID, err)
	}
	return companyID, nil
}

// InvoiceUpload collects the chat notification details for an uploaded
// invoice from the inbound record.
func (d *Directory) InvoiceUpload(ctx context.Context, recordID, fileName, userName string) (notify.InvoiceUpload, error) {
	app, err := d.inboundApp()
	if err != nil {
		return notify.InvoiceUpload{}, err
	}

	rec, err := d.records.GetRecord(ctx, app, recordID)
	if err != nil {
		return notify.InvoiceUpload{}, fmt.Errorf("read record %s: %w", recordID, err)
	}

	fields := d.fields.Inbound
	return notify.InvoiceUpload{
		UserName:    userName,
		CompanyName: rec.TextOr(fields.CompanyName, ""),
		PlannedDate: rec.TextOr(fields.BaseDate, ""),
		FileName:    fileName,
		RecordURL:   d.records.RecordURL(app, recordID),
	}, nil
}
