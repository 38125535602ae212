package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/category-allocator/internal/config"
	"github.com/jakechorley/category-allocator/pkg/core/services"
	"github.com/jakechorley/category-allocator/pkg/db"
	"github.com/jakechorley/category-allocator/pkg/recordstore"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg        *config.Config
	Store      recordstore.Store
	History    db.HistoryStore
	StateStore services.StateStore
	Logger     *zap.Logger
	Ctx        context.Context
}

// withState loads the workflow state, runs fn against it and saves it if fn succeeds
func (app *AppContext) withState(fn func(state *services.WorkflowState) error) error {
	state, err := app.StateStore.Load()
	if err != nil {
		return fmt.Errorf("failed to load workflow state: %w", err)
	}

	if err := fn(state); err != nil {
		return err
	}

	if err := app.StateStore.Save(state); err != nil {
		return fmt.Errorf("failed to save workflow state: %w", err)
	}
	return nil
}
