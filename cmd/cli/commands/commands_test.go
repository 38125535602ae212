package commands

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/category-allocator/internal/config"
	"github.com/jakechorley/category-allocator/pkg/core/allocator"
	"github.com/jakechorley/category-allocator/pkg/core/model"
	"github.com/jakechorley/category-allocator/pkg/core/services"
	"github.com/jakechorley/category-allocator/pkg/recordstore"
)

var (
	categoryTable = model.TableRef{DatasetID: "app", TableID: "tblCategories"}
	productTable  = model.TableRef{DatasetID: "app", TableID: "tblProducts"}
	targetTable   = model.TableRef{DatasetID: "app", TableID: "tblTarget"}
)

type fakeStore struct {
	tables  map[model.TableRef][]model.Row
	written []model.Row
}

func (f *fakeStore) FetchAll(ctx context.Context, table model.TableRef) ([]model.Row, error) {
	rows, ok := f.tables[table]
	if !ok {
		return nil, errors.New("table not found")
	}
	return model.CloneRows(rows), nil
}

func (f *fakeStore) ClearAndOverwrite(ctx context.Context, table model.TableRef, rows []model.Row) (*recordstore.WriteResult, error) {
	f.written = rows
	return &recordstore.WriteResult{
		Success:      true,
		Message:      "overwrote " + table.String(),
		SuccessCount: len(rows),
		Errors:       []string{},
	}, nil
}

func newTestApp(t *testing.T) (*AppContext, *fakeStore) {
	t.Helper()

	store := &fakeStore{tables: map[model.TableRef][]model.Row{
		categoryTable: {
			{"Tên danh mục": "Áo thun", "Mã danh mục": "AO-01", "Số lượng cần": 6.0, "SL bán dự kiến 6/2025": 7.0},
			{"Tên danh mục": "Áo thun", "Mã danh mục": "AO-01", "Số lượng cần": 4.5, "SL bán dự kiến 6/2025": 3.0},
			{"Tên danh mục": "Quần", "Mã danh mục": "QU-01", "Số lượng cần": 100.0},
		},
		productTable: {
			{"Tên sản phẩm": "Áo A", "Tổng lượng hàng": 10.0, "SL bán": 5.0},
			{"Tên sản phẩm": "Áo B", "Tổng lượng hàng": 20.0, "SL bán": 4.0},
			{"Tên sản phẩm": "Áo C", "Tổng lượng hàng": 3.0, "SL bán": 0.0},
		},
	}}

	app := &AppContext{
		Cfg: &config.Config{
			Backend:       config.BackendSheets,
			CategoryTable: categoryTable,
			ProductTable:  productTable,
			TargetTable:   targetTable,
			Fields:        config.DefaultFieldNames(),
			Policy:        allocator.PolicyMOH,
			TotalRounding: allocator.RoundingTruncate,
			BatchSize:     100,
		},
		Store:      store,
		StateStore: services.NewFileStateStoreAt(filepath.Join(t.TempDir(), "state.json")),
		Logger:     zap.NewNop(),
		Ctx:        context.Background(),
	}
	return app, store
}

func run(t *testing.T, cmd *cobra.Command, input string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(input))
	err := runCommand(cmd, args)
	return out.String(), err
}

func TestWorkflowCommands(t *testing.T) {
	app, store := newTestApp(t)

	out, err := run(t, LoadCategoriesCmd(app), "")
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 3 category rows")
	assert.Contains(t, out, "Found 2 categories")

	out, err = run(t, ListCategoriesCmd(app), "")
	require.NoError(t, err)
	assert.Contains(t, out, "1. AO-01")
	assert.Contains(t, out, "2. QU-01")

	out, err = run(t, SelectCategoryCmd(app), "", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Selected category: AO-01")
	assert.Contains(t, out, "Tên danh mục")
	assert.Contains(t, out, "Áo thun")

	out, err = run(t, LoadProductsCmd(app), "")
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 3 products")
	assert.Contains(t, out, "Áo B")

	out, err = run(t, AllocateCmd(app), "")
	require.NoError(t, err)
	assert.Contains(t, out, "Total requested: 10")
	assert.Contains(t, out, "Allocated total: 10")
	assert.Contains(t, out, "Next: writeResults")

	out, err = run(t, StatusCmd(app), "")
	require.NoError(t, err)
	assert.Contains(t, out, "AO-01")
	assert.Contains(t, out, "10 of 10 units (moh)")

	out, err = run(t, WriteResultsCmd(app), "", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Written: 3")

	require.Len(t, store.written, 3)
	assert.Equal(t, 10, store.written[0]["SL phân bổ"])
	assert.Equal(t, 0, store.written[1]["SL phân bổ"])
}

func TestSelectCategoryCmd_RequiresLoadedCategories(t *testing.T) {
	app, _ := newTestApp(t)

	_, err := run(t, SelectCategoryCmd(app), "", "AO-01")
	assert.ErrorIs(t, err, services.ErrNoCategoriesLoaded)
}

func TestAllocateCmd_RejectsUnknownPolicy(t *testing.T) {
	app, _ := newTestApp(t)

	_, err := run(t, AllocateCmd(app), "", "--policy", "random")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown policy")
}

func TestAllocateCmd_DryRunKeepsNothing(t *testing.T) {
	app, _ := newTestApp(t)
	_, err := run(t, LoadCategoriesCmd(app), "")
	require.NoError(t, err)
	_, err = run(t, SelectCategoryCmd(app), "", "AO-01")
	require.NoError(t, err)
	_, err = run(t, LoadProductsCmd(app), "")
	require.NoError(t, err)

	out, err := run(t, AllocateCmd(app), "", "--dry-run", "--policy", "even")
	require.NoError(t, err)
	assert.Contains(t, out, "dry run")
	assert.Contains(t, out, "Policy:          even")
	assert.Contains(t, out, "Range:           3–4")

	_, err = run(t, WriteResultsCmd(app), "", "--yes")
	assert.ErrorIs(t, err, services.ErrNoAllocation)
}

func TestWriteResultsCmd_Cancelled(t *testing.T) {
	app, store := newTestApp(t)
	for _, step := range []struct {
		cmd  *cobra.Command
		args []string
	}{
		{LoadCategoriesCmd(app), nil},
		{SelectCategoryCmd(app), []string{"AO-01"}},
		{LoadProductsCmd(app), nil},
		{AllocateCmd(app), nil},
	} {
		_, err := run(t, step.cmd, "", step.args...)
		require.NoError(t, err)
	}

	out, err := run(t, WriteResultsCmd(app), "n\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")
	assert.Nil(t, store.written)
}

func TestHistoryCmd_Disabled(t *testing.T) {
	app, _ := newTestApp(t)

	_, err := run(t, HistoryCmd(app), "")
	assert.ErrorIs(t, err, services.ErrHistoryDisabled)

	_, err = run(t, HistoryCmd(app), "", "zero")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positive number")
}

func TestResetCmd(t *testing.T) {
	app, _ := newTestApp(t)
	_, err := run(t, LoadCategoriesCmd(app), "")
	require.NoError(t, err)

	out, err := run(t, ResetCmd(app), "")
	require.NoError(t, err)
	assert.Contains(t, out, "Workflow reset")

	state, err := app.StateStore.Load()
	require.NoError(t, err)
	assert.Nil(t, state.CategoryRows)
	assert.Equal(t, services.StepSelectCategory, state.Step)
}

func TestParseCommandLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected []string
		wantErr  bool
	}{
		{"simple", "selectCategory AO-01", []string{"selectCategory", "AO-01"}, false},
		{"extra spaces", "  allocate   --dry-run ", []string{"allocate", "--dry-run"}, false},
		{"double quotes", `selectCategory "Áo thun nam"`, []string{"selectCategory", "Áo thun nam"}, false},
		{"single quotes", "selectCategory 'AO 01'", []string{"selectCategory", "AO 01"}, false},
		{"empty quotes", `selectCategory ""`, []string{"selectCategory", ""}, false},
		{"unclosed quote", `selectCategory "AO-01`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := parseCommandLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, args)
		})
	}
}

func TestRunSession(t *testing.T) {
	var got []string
	echo := &cobra.Command{
		Use:   "echo <text>",
		Short: "Echo text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			got = append(got, args[0])
			return nil
		},
	}
	commands := map[string]*cobra.Command{"echo": echo}

	var out bytes.Buffer
	input := "echo 'a b'\nnope\necho\nhelp\nexit\necho never\n"
	require.NoError(t, runSession(strings.NewReader(input), &out, commands))

	assert.Equal(t, []string{"a b"}, got)
	assert.Contains(t, out.String(), "Unknown command: nope")
	assert.Contains(t, out.String(), "accepts 1 arg(s)")
	assert.Contains(t, out.String(), "Echo text")
	assert.Contains(t, out.String(), "Goodbye")
}

func TestInteractiveCmd_ConfirmReadsSessionInput(t *testing.T) {
	app, store := newTestApp(t)

	root := &cobra.Command{Use: "allocator"}
	root.AddCommand(
		LoadCategoriesCmd(app),
		SelectCategoryCmd(app),
		LoadProductsCmd(app),
		AllocateCmd(app),
		WriteResultsCmd(app),
		InteractiveCmd(app),
	)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader("loadCategories\nselectCategory 1\nloadProducts\nallocate\nwriteResults\ny\nexit\n"))
	root.SetArgs([]string{"interactive"})

	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "Continue? [y/N]")
	assert.Contains(t, out.String(), "Written: 3")
	assert.NotContains(t, out.String(), "Cancelled")
	assert.NotContains(t, out.String(), "Unknown command: y")
	require.Len(t, store.written, 3)
	assert.Equal(t, 10, store.written[0]["SL phân bổ"])
}

func TestConfirm_LeavesFollowingLines(t *testing.T) {
	var out bytes.Buffer
	reader := bufio.NewReader(strings.NewReader("y\nexit\n"))

	ok, err := confirm(reader, &out, "continue? ")
	require.NoError(t, err)
	assert.True(t, ok)

	rest, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "exit\n", rest)
}

func TestRunCommand_ResetsFlags(t *testing.T) {
	var seen []bool
	cmd := &cobra.Command{
		Use:  "allocate",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			seen = append(seen, dryRun)
			return nil
		},
	}
	cmd.Flags().Bool("dry-run", false, "")

	require.NoError(t, runCommand(cmd, []string{"--dry-run"}))
	require.NoError(t, runCommand(cmd, nil))
	assert.Equal(t, []bool{true, false}, seen)
}

func TestPrintRowPreview(t *testing.T) {
	rows := []model.Row{
		{"name": "Áo A", "qty": 3.0},
		{"name": strings.Repeat("x", 40)},
		{"name": "Áo C", "qty": 1.0},
	}

	var out bytes.Buffer
	printRowPreview(&out, rows, []string{"name", "qty"}, 2)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "name"))
	assert.Contains(t, lines[2], "Áo A")
	assert.Contains(t, lines[3], strings.Repeat("x", maxCellWidth-1)+"…")
	assert.Contains(t, lines[3], "—")
	assert.Contains(t, lines[4], "1 more rows")

	out.Reset()
	printRowPreview(&out, rows, nil, 2)
	assert.Contains(t, out.String(), "no preview columns")
}

func TestPrintWriteResult(t *testing.T) {
	var out bytes.Buffer
	printWriteResult(&out, &recordstore.WriteResult{
		Success:      true,
		Message:      "overwrite of app/tbl: 100 rows written, 20 rows failed",
		DeletedCount: 7,
		SuccessCount: 100,
		ErrorCount:   20,
		Errors:       []string{"batch 2/2 failed: boom"},
	})

	assert.Contains(t, out.String(), "⚠️")
	assert.Contains(t, out.String(), "Deleted: 7")
	assert.Contains(t, out.String(), "Failed:  20")
	assert.Contains(t, out.String(), "batch 2/2 failed: boom")
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer

	ok, err := confirm(strings.NewReader("yes\n"), &out, "continue? ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "continue? ", out.String())

	ok, err = confirm(strings.NewReader("\n"), &out, "continue? ")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = confirm(strings.NewReader("Y"), &out, "continue? ")
	require.NoError(t, err)
	assert.True(t, ok)
}
