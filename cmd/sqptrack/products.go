package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sqptrack/internal/products"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Manage the product registry",
	Long: `Manage the ASINs sqptrack knows about.

Commands that take --asin fall back to the single active product, so
registering your products up front saves typing the ASIN every week.

Registry location: .sqptrack/PRODUCTS.toml`,
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered products",
	Run:   runProductsList,
}

var productsAddCmd = &cobra.Command{
	Use:   "add <asin>",
	Short: "Register a product",
	Args:  cobra.ExactArgs(1),
	RunE:  runProductsAdd,
}

var productsPauseCmd = &cobra.Command{
	Use:   "pause <asin>",
	Short: "Pause tracking for a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setProductStatus(args[0], products.StatusPaused)
	},
}

var productsResumeCmd = &cobra.Command{
	Use:   "resume <asin>",
	Short: "Resume tracking for a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setProductStatus(args[0], products.StatusActive)
	},
}

var (
	productsAddTitle string
	productsAddNotes string
)

func init() {
	rootCmd.AddCommand(productsCmd)

	productsCmd.AddCommand(productsListCmd)
	productsCmd.AddCommand(productsAddCmd)
	productsCmd.AddCommand(productsPauseCmd)
	productsCmd.AddCommand(productsResumeCmd)

	productsAddCmd.Flags().StringVar(&productsAddTitle, "title", "", "Product title")
	productsAddCmd.Flags().StringVar(&productsAddNotes, "notes", "", "Free-form notes")
}

// ProductsResponse lists the registered products
type ProductsResponse struct {
	Products    []products.Product `json:"products"`
	ActiveCount int                `json:"activeCount"`
}

func runProductsList(cmd *cobra.Command, args []string) {
	root := mustGetRoot()

	registry, err := products.Load(root)
	if err != nil {
		exitWithError(err)
	}

	resp := &ProductsResponse{
		Products:    registry.Products,
		ActiveCount: len(registry.Active()),
	}

	output, err := FormatResponse(resp, OutputFormat(outputFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(output)
}

func runProductsAdd(cmd *cobra.Command, args []string) error {
	root := mustGetRoot()

	registry, err := products.Load(root)
	if err != nil {
		return err
	}
	p := products.Product{
		ASIN:  args[0],
		Title: productsAddTitle,
		Notes: productsAddNotes,
	}
	if err := registry.Add(p); err != nil {
		return err
	}
	if err := registry.Save(root); err != nil {
		return err
	}

	fmt.Printf("✓ Registered %s\n", products.NormalizeASIN(args[0]))
	return nil
}

func setProductStatus(asin, status string) error {
	root := mustGetRoot()

	registry, err := products.Load(root)
	if err != nil {
		return err
	}
	if err := registry.SetStatus(asin, status); err != nil {
		return err
	}
	if err := registry.Save(root); err != nil {
		return err
	}

	fmt.Printf("✓ %s is now %s\n", products.NormalizeASIN(asin), status)
	return nil
}
