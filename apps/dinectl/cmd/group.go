package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dinetap/dinetap-go/apps/dinectl/cmd/config"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Create, join and watch group orders",
}

var groupCreateCmd = &cobra.Command{
	Use:   "create HOST_NAME",
	Short: "Open a group order at your table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		ctxCfg, err := config.GetCurrentContext()
		if err != nil {
			return err
		}

		group, err := client.GroupOrders.Create(cmd.Context(), ctxCfg.TableCode, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Group order %s created. Share join code: %s\n", group.ID, group.JoinCode)
		return nil
	},
}

var groupJoinCmd = &cobra.Command{
	Use:   "join JOIN_CODE YOUR_NAME",
	Short: "Join a group order by its code",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		group, err := client.GroupOrders.Join(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Joined group order %s (%d participants).\n", group.ID, len(group.Participants))
		return nil
	},
}

var groupWatchCmd = &cobra.Command{
	Use:   "watch GROUP_ID",
	Short: "Watch a group order for changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		updates := client.GroupOrders.Watch(cmd.Context(), args[0], 3*time.Second)
		for group := range updates {
			status := "open"
			if group.Locked {
				status = "locked"
			}
			fmt.Printf("%s  %d participants, %d items, %s\n",
				group.UpdatedAt.Format(time.TimeOnly), len(group.Participants), len(group.Items), status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(groupCmd)
	groupCmd.AddCommand(groupCreateCmd)
	groupCmd.AddCommand(groupJoinCmd)
	groupCmd.AddCommand(groupWatchCmd)
}
