package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"solar-pricing/core/output"
	"solar-pricing/core/resolver"
	"solar-pricing/core/types"
	apperrors "solar-pricing/internal/errors"
)

var (
	productModel string
	productAttrs []string
)

var productCmd = &cobra.Command{
	Use:   "product",
	Short: "Manage the storage product catalog",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var productAddCmd = &cobra.Command{
	Use:     "add <id>",
	Short:   "Add or replace a storage product",
	Example: `  solar-pricing product add 101 --model "Tesla Powerwall 2" --attr capacity_kwh=13.5`,
	Args:    cobra.ExactArgs(1),
	RunE:    runProductAdd,
}

var productGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a storage product and the matrix column it resolves to",
	Args:  cobra.ExactArgs(1),
	RunE:  runProductGet,
}

func init() {
	productAddCmd.Flags().StringVar(&productModel, "model", "", "storage model name as used in the matrix")
	productAddCmd.Flags().StringArrayVar(&productAttrs, "attr", nil, "extra attribute as key=value (repeatable)")
	_ = productAddCmd.MarkFlagRequired("model")

	productCmd.AddCommand(productAddCmd)
	productCmd.AddCommand(productGetCmd)
	rootCmd.AddCommand(productCmd)
}

func runProductAdd(cmd *cobra.Command, args []string) error {
	id, err := parseProductID(args[0])
	if err != nil {
		return err
	}
	attrs, err := parseAttributes(productAttrs)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	product := &types.Product{ID: id, ModelName: strings.TrimSpace(productModel), Attributes: attrs}
	if err := store.PutProduct(cmd.Context(), product); err != nil {
		return err
	}
	return render(cmd, &output.Report{Title: "Product saved", Table: productTable(product)})
}

func runProductGet(cmd *cobra.Command, args []string) error {
	id, err := parseProductID(args[0])
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	product, err := store.GetProduct(cmd.Context(), id)
	if err != nil {
		return err
	}
	return render(cmd, &output.Report{Title: "Product", Table: productTable(product)})
}

func parseProductID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id <= 0 {
		return 0, apperrors.Newf(apperrors.TypeInput, "invalid product id %q", s)
	}
	return id, nil
}

// parseAttributes reads key=value pairs. Values that decode as JSON keep
// their type, anything else is stored as a string.
func parseAttributes(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	attrs := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, apperrors.Newf(apperrors.TypeInput, "attribute must be key=value, got %q", pair)
		}
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			attrs[key] = decoded
		} else {
			attrs[key] = value
		}
	}
	return attrs, nil
}

func productTable(p *types.Product) *output.Table {
	t := &output.Table{
		Headers: []string{"FIELD", "VALUE"},
		Rows: [][]string{
			{"id", strconv.Itoa(p.ID)},
			{"model", p.ModelName},
			{"matrix column", resolver.NormalizeStorageName(p.ModelName)},
		},
	}
	for _, key := range sortedKeys(p.Attributes) {
		t.Rows = append(t.Rows, []string{key, fmt.Sprint(p.Attributes[key])})
	}
	return t
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
