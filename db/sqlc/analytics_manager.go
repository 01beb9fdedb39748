package sqlc

import (
	"context"
	"fmt"
	"time"

	"github.com/sqlc-dev/pqtype"
)

const RecordTimeout = time.Second * 10

// DbManager groups the managers sharing one Querier.
type DbManager struct {
	Analytics *AnalyticsManager
}

func NewDbManager(queries Querier) *DbManager {
	return &DbManager{
		Analytics: NewAnalyticsManager(queries),
	}
}

type AnalyticsEvent uint8

const (
	AnalyticsGameCreated AnalyticsEvent = iota
	AnalyticsGameFinished
	AnalyticsGameAbandoned
)

func (e AnalyticsEvent) String() string {
	switch e {
	case AnalyticsGameCreated:
		return "game created"
	case AnalyticsGameFinished:
		return "game finished"
	case AnalyticsGameAbandoned:
		return "game abandoned"
	}
	return "unknown"
}

type AnalyticsManager struct {
	queries Querier
}

func NewAnalyticsManager(queries Querier) *AnalyticsManager {
	return &AnalyticsManager{queries: queries}
}

// Record bumps the counter behind event for this server.
func (a *AnalyticsManager) Record(ctx context.Context, event AnalyticsEvent, serverIpNet pqtype.Inet) error {
	switch event {
	case AnalyticsGameCreated:
		return a.queries.IncrementGamesCreatedCount(ctx, serverIpNet)
	case AnalyticsGameFinished:
		return a.queries.IncrementGamesFinishedCount(ctx, serverIpNet)
	case AnalyticsGameAbandoned:
		return a.queries.IncrementGamesAbandonedCount(ctx, serverIpNet)
	}
	return fmt.Errorf("unknown analytics event: %d", event)
}

// RecordDetached is Record bounded by RecordTimeout and detached from
// any request context, for writes that outlive the connection.
func (a *AnalyticsManager) RecordDetached(event AnalyticsEvent, serverIpNet pqtype.Inet) error {
	ctx, cancel := context.WithTimeout(context.Background(), RecordTimeout)
	defer cancel()
	return a.Record(ctx, event, serverIpNet)
}

func (a *AnalyticsManager) GetGamesCreatedCount(ctx context.Context, serverIpNet pqtype.Inet) (int64, error) {
	return a.queries.GetGamesCreatedCount(ctx, serverIpNet)
}

func (a *AnalyticsManager) GetGamesFinishedCount(ctx context.Context, serverIpNet pqtype.Inet) (int64, error) {
	return a.queries.GetGamesFinishedCount(ctx, serverIpNet)
}

func (a *AnalyticsManager) GetGamesAbandonedCount(ctx context.Context, serverIpNet pqtype.Inet) (int64, error) {
	return a.queries.GetGamesAbandonedCount(ctx, serverIpNet)
}
