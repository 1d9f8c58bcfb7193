package main

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"onthesis/app"
	"onthesis/domain/dataset"
	apperrors "onthesis/internal/errors"
	"onthesis/internal/migration"
	"onthesis/internal/stats"
)

func newPreviewCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "preview FILE",
		Short: "Detect the header row and column types of a CSV or Excel file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contents, err := os.ReadFile(args[0])
			if err != nil {
				return apperrors.ValidationError(err.Error())
			}
			result, err := s.container.Workspace.Preview(contents, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newImportCmd(s *session) *cobra.Command {
	var headerRow int

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the project's table with a CSV or Excel file",
		Long: `Import reads FILE, detects its header row unless --header-row is given,
and replaces the project's table. The analysis history is kept.

Example: onthesis import survey.xlsx --project thesis --header-row 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contents, err := os.ReadFile(args[0])
			if err != nil {
				return apperrors.ValidationError(err.Error())
			}
			result, err := s.container.Workspace.Import(cmd.Context(), s.userID, s.projectID, contents, args[0], headerRow)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().IntVar(&headerRow, "header-row", -1, "Zero-based header row; negative detects it")
	return cmd
}

func newAnalyzeCmd(s *session) *cobra.Command {
	var rawParams string

	cmd := &cobra.Command{
		Use:   "analyze TYPE",
		Short: "Run a statistical analysis",
		Long: `Run one of the registered analyses on the project's dataset and record it
in the analysis history.

Example: onthesis analyze independent-ttest --params '{"group_var":"gender","test_vars":["score"]}'`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: stats.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(rawParams)
			if err != nil {
				return err
			}
			result, err := s.container.Analysis.Execute(cmd.Context(), app.AnalysisRequest{
				UserID:    s.userID,
				ProjectID: s.projectID,
				Type:      args[0],
				Params:    params,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&rawParams, "params", "", "Named parameters as a JSON object")
	return cmd
}

func newPrepareCmd(s *session) *cobra.Command {
	var rawParams string

	cmd := &cobra.Command{
		Use:       "prepare ACTION",
		Short:     "Clean the dataset: missing_values, remove_duplicates or find_replace",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{app.ActionMissingValues, app.ActionRemoveDuplicates, app.ActionFindReplace},
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(rawParams)
			if err != nil {
				return err
			}
			result, err := s.container.Analysis.PerformDataPreparation(cmd.Context(), app.PreparationRequest{
				UserID:    s.userID,
				ProjectID: s.projectID,
				Action:    args[0],
				Params:    params,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&rawParams, "params", "", "Action parameters as a JSON object")
	return cmd
}

func newSearchCmd(s *session) *cobra.Command {
	var columns []string

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Find cells containing QUERY, case-insensitively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := stats.Params{"query": args[0]}
			if len(columns) > 0 {
				params["columns"] = columns
			}
			result, err := s.container.Analysis.RunReadOnlyAction(cmd.Context(), s.userID, s.projectID, app.ActionSearchData, params)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringSliceVar(&columns, "columns", nil, "Columns to search (default all)")
	return cmd
}

func newScanCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Report missing values, outliers and duplicates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := s.container.Analysis.RunReadOnlyAction(cmd.Context(), s.userID, s.projectID, app.ActionSmartScan, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

func newHistoryCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List or edit the analysis history",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List analyses, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				entries, err := s.container.Analysis.History(cmd.Context(), s.userID, s.projectID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), entries)
			},
		},
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete one history entry",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := s.container.Analysis.DeleteHistoryEntry(cmd.Context(), s.userID, s.projectID, args[0]); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]string{"deleted": args[0]})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every history entry",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := s.container.Analysis.ClearHistory(cmd.Context(), s.userID, s.projectID); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]string{"status": "cleared"})
			},
		},
	)
	return cmd
}

func newDataCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "data",
		Short: "Print the data grid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := s.container.Workspace.Data(cmd.Context(), s.userID, s.projectID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
}

func newVariablesCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "variables",
		Short: "Print the variable view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := s.container.Workspace.Variables(cmd.Context(), s.userID, s.projectID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), vars)
		},
	}
}

func newSetVariableCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "set-variable NAME FIELD VALUE",
		Short: "Edit a variable's name, type, measure, role or label",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := s.container.Workspace.UpdateVariable(cmd.Context(), s.userID, s.projectID,
				args[0], dataset.VariableField(args[1]), args[2])
			if err != nil {
				return err
			}
			if !ok {
				return apperrors.Validationf("update of %s.%s to %q was rejected", args[0], args[1], args[2])
			}
			return printJSON(cmd.OutOrStdout(), map[string]bool{"updated": true})
		},
	}
}

func newSetCellCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "set-cell ROW COL VALUE",
		Short: "Write one cell; COL is an index or a column name",
		Long: `Write VALUE into the cell at ROW and COL. A ROW past the last row appends
one row. An empty VALUE clears the cell.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			row, err := strconv.Atoi(args[0])
			if err != nil {
				return apperrors.Validationf("invalid row %q", args[0])
			}
			col, err := s.columnIndex(cmd, args[1])
			if err != nil {
				return err
			}
			if err := s.container.Workspace.UpdateCell(ctx, s.userID, s.projectID, row, col, args[2]); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]bool{"updated": true})
		},
	}
}

// columnIndex accepts a zero-based index or a column name.
func (s *session) columnIndex(cmd *cobra.Command, arg string) (int, error) {
	if i, err := strconv.Atoi(arg); err == nil {
		return i, nil
	}
	vars, err := s.container.Workspace.Variables(cmd.Context(), s.userID, s.projectID)
	if err != nil {
		return 0, err
	}
	for i, v := range vars {
		if v.Name == arg {
			return i, nil
		}
	}
	return 0, apperrors.NotFound("column " + arg)
}

func newAddColumnCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "add-column NAME",
		Short: "Append an empty column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.container.Workspace.AddColumn(cmd.Context(), s.userID, s.projectID, args[0]); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{"added": args[0]})
		},
	}
}

func newRemoveColumnCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-column NAME",
		Short: "Drop a column and its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.container.Workspace.RemoveColumn(cmd.Context(), s.userID, s.projectID, args[0]); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{"removed": args[0]})
		},
	}
}

func newExportCmd(s *session) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the table as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return s.container.Workspace.Export(cmd.Context(), s.userID, s.projectID, cmd.OutOrStdout())
			}
			f, err := os.Create(out)
			if err != nil {
				return apperrors.ValidationError(err.Error())
			}
			if err := s.container.Workspace.Export(cmd.Context(), s.userID, s.projectID, f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output file (default stdout)")
	return cmd
}

func newResetCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the table, variables and history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.container.Workspace.Reset(cmd.Context(), s.userID, s.projectID); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{"status": "reset"})
		},
	}
}

func newMigrateCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the dataset blob table in DATABASE_URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.container.Config.Storage.DatabaseURL == "" {
				return apperrors.ConfigInvalid("DATABASE_URL is required")
			}
			if err := s.container.InitDatabase(cmd.Context()); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"status":  "migrated",
				"version": migration.NewRunner().Version(),
			})
		},
	}
}
