package rportal

// dryrun.go contains a connector that only logs what would be sent.

import (
	"context"

	"github.com/google/uuid"
	"github.com/rpgo/rpgo/model"
	"github.com/rs/zerolog"
)

// DryRun accepts every call, assigns random identifiers and logs the call.
type DryRun struct {
	logger zerolog.Logger
}

// NewDryRun creates a dry-run connector.
func NewDryRun(logger zerolog.Logger) *DryRun {
	return &DryRun{logger: logger}
}

func (d *DryRun) StartLaunch(ctx context.Context) (string, error) {
	id := uuid.NewString()
	d.logger.Info().Str("launch", id).Msg("[dry-run] start launch")
	return id, nil
}

func (d *DryRun) FinishLaunch(ctx context.Context, launchID string) error {
	d.logger.Info().Str("launch", launchID).Msg("[dry-run] finish launch")
	return nil
}

func (d *DryRun) StartRootItem(ctx context.Context, item model.StartItem) (string, error) {
	id := uuid.NewString()
	d.logger.Info().
		Str("id", id).
		Str("type", string(item.Type)).
		Str("name", item.Name).
		Msg("[dry-run] start root item")
	return id, nil
}

func (d *DryRun) StartChildItem(ctx context.Context, item model.StartItem, parentID string) (string, error) {
	id := uuid.NewString()
	d.logger.Info().
		Str("id", id).
		Str("parent", parentID).
		Str("type", string(item.Type)).
		Str("name", item.Name).
		Msg("[dry-run] start child item")
	return id, nil
}

func (d *DryRun) FinishItem(ctx context.Context, item model.FinishItem) error {
	d.logger.Info().
		Str("id", item.ID).
		Str("status", string(item.Status)).
		Msg("[dry-run] finish item")
	return nil
}

func (d *DryRun) SendLog(ctx context.Context, itemID string, entry model.LogEntry) error {
	d.logger.Info().
		Str("item", itemID).
		Str("level", string(entry.Level)).
		Str("message", entry.Message).
		Msg("[dry-run] log")
	return nil
}
