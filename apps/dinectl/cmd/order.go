package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	dinetap "github.com/dinetap/dinetap-go"
	"github.com/dinetap/dinetap-go/apps/dinectl/cmd/config"
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Place and track orders",
}

var orderPlaceCmd = &cobra.Command{
	Use:   "place ITEM_ID[xQTY]...",
	Short: "Place an order for one or more menu items",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		ctxCfg, err := config.GetCurrentContext()
		if err != nil {
			return err
		}

		items := make([]dinetap.OrderItem, 0, len(args))
		for _, arg := range args {
			id, qty := arg, 1
			if idx := strings.LastIndex(arg, "x"); idx > 0 {
				if n, convErr := strconv.Atoi(arg[idx+1:]); convErr == nil && n > 0 {
					id, qty = arg[:idx], n
				}
			}
			items = append(items, dinetap.OrderItem{MenuItemID: id, Quantity: qty})
		}

		order, err := client.Orders.Create(cmd.Context(), &dinetap.OrderRequest{
			TableCode: ctxCfg.TableCode,
			Items:     items,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Order %s placed, total %.2f, status %s\n", order.ID, order.Total, order.Status)
		return nil
	},
}

var orderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		orders, err := client.Orders.Mine(cmd.Context())
		if err != nil {
			return err
		}
		if len(orders) == 0 {
			fmt.Println("No orders.")
			return nil
		}
		out, err := yaml.Marshal(orders)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

var orderTrackCmd = &cobra.Command{
	Use:   "track ORDER_ID",
	Short: "Follow an order until it is delivered or cancelled",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		updates := client.Orders.Track(cmd.Context(), args[0], 5*time.Second)
		for order := range updates {
			fmt.Printf("%s  %s\n", time.Now().Format(time.TimeOnly), order.Status)
		}
		if cmd.Context().Err() != nil {
			return errors.New("tracking interrupted")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(orderCmd)
	orderCmd.AddCommand(orderPlaceCmd)
	orderCmd.AddCommand(orderListCmd)
	orderCmd.AddCommand(orderTrackCmd)
}
