package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dinetap/dinetap-go/apps/dinectl/cmd/config"
)

var callWaiterCmd = &cobra.Command{
	Use:   "call-waiter [REASON...]",
	Short: "Call a waiter to your table",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		ctxCfg, err := config.GetCurrentContext()
		if err != nil {
			return err
		}
		if ctxCfg.TableCode == "" {
			return fmt.Errorf("current context has no table code; set one with 'dinectl config set-context %s --server ... --table CODE'", ctxCfg.Name)
		}

		call, err := client.WaiterCalls.Create(cmd.Context(), ctxCfg.TableCode, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Printf("Waiter called (request %s).\n", call.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(callWaiterCmd)
}
