package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/msomdec/shelfly/internal/domain"
)

func newProductCommand(a *app) *cobra.Command {
	cmd := groupCommand("product", "Inventory operations")
	cmd.AddCommand(newProductAddCommand(a))
	cmd.AddCommand(newProductListCommand(a))
	cmd.AddCommand(newProductShowCommand(a))
	cmd.AddCommand(newProductUpdateCommand(a))
	cmd.AddCommand(newProductDeleteCommand(a))
	cmd.AddCommand(newProductCountCommand(a))
	cmd.AddCommand(newProductSummaryCommand(a))
	return cmd
}

// resolveImage turns the --image / --image-uri flags into a product image URI.
// A local file is copied into the store; a URI is kept as given.
func resolveImage(cmd *cobra.Command, a *app, imagePath, imageURI string) (string, error) {
	if imagePath == "" {
		return imageURI, nil
	}
	if imageURI != "" {
		return "", fmt.Errorf("%w: use either --image or --image-uri", domain.ErrInvalidInput)
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	return a.images.Save(commandContext(cmd), data)
}

func newProductAddCommand(a *app) *cobra.Command {
	var (
		owner, name         string
		quantity            int64
		price               float64
		imagePath, imageURI string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, err := resolveImage(cmd, a, imagePath, imageURI)
			if err != nil {
				return err
			}

			product := &domain.Product{
				OwnerEmail: owner,
				Name:       name,
				Quantity:   quantity,
				Price:      price,
				ImageURI:   uri,
			}
			id, err := a.products.InsertProduct(commandContext(cmd), product)
			if err != nil {
				if uri != imageURI {
					if derr := a.images.Delete(commandContext(cmd), uri); derr != nil {
						slog.Warn("discard unused product image", "uri", uri, "error", derr)
					}
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added product %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner email")
	cmd.Flags().StringVar(&name, "name", "", "Product name")
	cmd.Flags().Int64Var(&quantity, "quantity", 0, "Quantity in stock")
	cmd.Flags().Float64Var(&price, "price", 0, "Unit price")
	cmd.Flags().StringVar(&imagePath, "image", "", "JPEG or PNG file to store with the product")
	cmd.Flags().StringVar(&imageURI, "image-uri", "", "External image reference")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newProductListCommand(a *app) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an owner's products, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			products, err := a.products.GetProductsByOwner(commandContext(cmd), owner)
			if err != nil {
				return err
			}
			if len(products) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no products")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tQTY\tPRICE\tIMAGE")
			for _, p := range products {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", p.ID, p.Name, p.Quantity, formatPrice(p.Price), p.ImageURI)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner email")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newProductShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := a.products.GetProductByID(commandContext(cmd), id)
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("%w: product %d", domain.ErrNotFound, id)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:       %d\n", p.ID)
			fmt.Fprintf(out, "owner:    %s\n", p.OwnerEmail)
			fmt.Fprintf(out, "name:     %s\n", p.Name)
			fmt.Fprintf(out, "quantity: %d\n", p.Quantity)
			fmt.Fprintf(out, "price:    %s\n", formatPrice(p.Price))
			if p.ImageURI != "" {
				fmt.Fprintf(out, "image:    %s\n", p.ImageURI)
			}
			fmt.Fprintf(out, "created:  %s\n", p.CreatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func newProductUpdateCommand(a *app) *cobra.Command {
	var (
		name                string
		quantity            int64
		price               float64
		imagePath, imageURI string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a product; unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			patch := domain.ProductUpdate{ID: id}
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("quantity") {
				patch.Quantity = &quantity
			}
			if flags.Changed("price") {
				patch.Price = &price
			}
			if flags.Changed("image") || flags.Changed("image-uri") {
				uri, err := resolveImage(cmd, a, imagePath, imageURI)
				if err != nil {
					return err
				}
				patch.ImageURI = &uri
			}

			p, err := a.products.PatchProduct(commandContext(cmd), patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated product %d: %s x%d @ %s\n", p.ID, p.Name, p.Quantity, formatPrice(p.Price))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Product name")
	cmd.Flags().Int64Var(&quantity, "quantity", 0, "Quantity in stock")
	cmd.Flags().Float64Var(&price, "price", 0, "Unit price")
	cmd.Flags().StringVar(&imagePath, "image", "", "JPEG or PNG file to store with the product")
	cmd.Flags().StringVar(&imageURI, "image-uri", "", "External image reference (empty clears the image)")
	return cmd
}

func newProductDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.products.DeleteProductByID(commandContext(cmd), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted product %d\n", id)
			return nil
		},
	}
}

func newProductCountCommand(a *app) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Print the number of products an owner has",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.products.CountProductsForOwner(commandContext(cmd), owner)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner email")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newProductSummaryCommand(a *app) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print inventory totals for an owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.products.Summary(commandContext(cmd), owner)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "products:    %d\n", s.ProductCount)
			fmt.Fprintf(out, "items:       %d\n", s.TotalQuantity)
			fmt.Fprintf(out, "low stock:   %d (quantity <= %d)\n", s.LowStockCount, domain.LowStockThreshold)
			fmt.Fprintf(out, "total value: %s\n", s.TotalValue.StringFixed(2))
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner email")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid product id %q", domain.ErrInvalidInput, s)
	}
	return id, nil
}

func formatPrice(price float64) string {
	return decimal.NewFromFloat(price).StringFixed(2)
}
