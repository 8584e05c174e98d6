package cmd

import (
	"fmt"

	"github.com/theirongolddev/evmboard/internal/cli"

	"github.com/spf13/cobra"
)

var flagCategoryDescription string

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage project categories",
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories with their project counts",
	Args:  cobra.NoArgs,
	RunE:  runCategoryList,
}

var categoryAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a category",
	Args:  cobra.ExactArgs(1),
	RunE:  runCategoryAdd,
}

func init() {
	categoryAddCmd.Flags().StringVar(&flagCategoryDescription, "description", "", "Category description")
	categoryCmd.AddCommand(categoryListCmd, categoryAddCmd)
	rootCmd.AddCommand(categoryCmd)
}

func runCategoryList(_ *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	cats, err := st.Categories()
	if err != nil {
		return err
	}
	groups, err := st.ProjectsByCategory()
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(cats))
	for _, c := range cats {
		rows = append(rows, []string{
			c.Name,
			cli.FormatNumber(int64(len(groups[c.Name]))),
			truncate(orDash(c.Description), 40),
		})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "CATEGORIES",
		Headers: []string{"Category", "Projects", "Description"},
		Rows:    rows,
	}))
	return nil
}

func runCategoryAdd(_ *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if _, err := st.AddCategory(args[0], flagCategoryDescription); err != nil {
		return err
	}
	fmt.Printf("  Added category %q\n", args[0])
	return nil
}
