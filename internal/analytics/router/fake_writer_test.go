package router

import (
	"context"

	"github.com/okanvural/pickflow-backend/internal/analytics/types"
)

type fakeWriter struct {
	scans        []types.ScanEventRow
	fulfillments []types.FulfillmentEventRow
}

func (f *fakeWriter) InsertScan(_ context.Context, row types.ScanEventRow) error {
	f.scans = append(f.scans, row)
	return nil
}

func (f *fakeWriter) InsertFulfillment(_ context.Context, row types.FulfillmentEventRow) error {
	f.fulfillments = append(f.fulfillments, row)
	return nil
}
