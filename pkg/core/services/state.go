package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/jakechorley/category-allocator/pkg/core/allocator"
	"github.com/jakechorley/category-allocator/pkg/core/model"
)

// Step is the furthest workflow stage the user can act on
type Step int

const (
	// StepSelectCategory: categories may be loaded and one selected
	StepSelectCategory Step = 1
	// StepLoadProducts: a category is selected, products can be loaded
	StepLoadProducts Step = 2
	// StepAllocate: products are loaded, an allocation can be computed
	StepAllocate Step = 3
	// StepWrite: an allocation is ready to be written to the target table
	StepWrite Step = 4
)

func (s Step) String() string {
	switch s {
	case StepSelectCategory:
		return "1 (select category)"
	case StepLoadProducts:
		return "2 (load products)"
	case StepAllocate:
		return "3 (allocate)"
	case StepWrite:
		return "4 (write results)"
	}
	return fmt.Sprintf("%d", int(s))
}

// Workflow gating errors
var (
	ErrNoCategoriesLoaded = errors.New("no categories loaded, run loadCategories first")
	ErrNoCategorySelected = errors.New("no category selected, run selectCategory first")
	ErrNoProductsLoaded   = errors.New("no products loaded, run loadProducts first")
	ErrNoAllocation       = errors.New("no allocation to write, run allocate first")
)

// WorkflowState is everything carried between workflow stages. It is
// serialisable so each CLI invocation can pick up where the last one stopped.
type WorkflowState struct {
	SessionID        string            `json:"sessionID"`
	Step             Step              `json:"step"`
	SelectedCategory string            `json:"selectedCategory,omitempty"`
	CategoryRows     []model.Row       `json:"categoryRows"`
	ProductRows      []model.Row       `json:"productRows"`
	Result           *allocator.Result `json:"result,omitempty"`
	// RunID identifies Result in the allocation history
	RunID     string    `json:"runID,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewWorkflowState returns an empty state with a fresh session ID
func NewWorkflowState() *WorkflowState {
	return &WorkflowState{
		SessionID: uuid.New().String(),
		Step:      StepSelectCategory,
	}
}

// clearSelection drops the category choice and everything derived from it
func (s *WorkflowState) clearSelection() {
	s.SelectedCategory = ""
	s.clearProducts()
	s.Step = StepSelectCategory
}

// clearProducts drops the product rows and any allocation made from them
func (s *WorkflowState) clearProducts() {
	s.ProductRows = nil
	s.clearResult()
	if s.Step > StepLoadProducts {
		s.Step = StepLoadProducts
	}
}

func (s *WorkflowState) clearResult() {
	s.Result = nil
	s.RunID = ""
	if s.Step > StepAllocate {
		s.Step = StepAllocate
	}
}

// StateStore persists workflow state between invocations
type StateStore interface {
	Load() (*WorkflowState, error)
	Save(state *WorkflowState) error
}

const (
	stateDirName   = ".category-allocator"
	stateFilePerms = 0600
	stateDirPerms  = 0700
)

// FileStateStore keeps workflow state in a JSON file
type FileStateStore struct {
	path string
}

// NewFileStateStore stores state in ~/.category-allocator/state-<env>.json
func NewFileStateStore(env string) (*FileStateStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	return NewFileStateStoreAt(filepath.Join(homeDir, stateDirName, fmt.Sprintf("state-%s.json", env))), nil
}

// NewFileStateStoreAt stores state at an explicit path
func NewFileStateStoreAt(path string) *FileStateStore {
	return &FileStateStore{path: path}
}

// Path returns the state file location
func (s *FileStateStore) Path() string {
	return s.path
}

// Load reads the saved state, or returns a fresh state if none has been saved
func (s *FileStateStore) Load() (*WorkflowState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return NewWorkflowState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state WorkflowState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", s.path, err)
	}
	if state.SessionID == "" {
		state.SessionID = uuid.New().String()
	}
	if state.Step < StepSelectCategory {
		state.Step = StepSelectCategory
	}

	return &state, nil
}

// Save writes the state atomically
func (s *FileStateStore) Save(state *WorkflowState) error {
	if err := os.MkdirAll(filepath.Dir(s.path), stateDirPerms); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, stateFilePerms); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}
