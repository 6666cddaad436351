package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dinetap/dinetap-go/apps/dinectl/cmd/config"
)

var menuOutput string

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Show the current venue's menu",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		ctxCfg, err := config.GetCurrentContext()
		if err != nil {
			return err
		}

		menu, err := client.Menu.Get(cmd.Context(), ctxCfg.VenueID)
		if err != nil {
			return err
		}

		if menuOutput == "yaml" {
			out, err := yaml.Marshal(menu)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		}

		byCategory := make(map[string][]int)
		for i, item := range menu.Items {
			byCategory[item.CategoryID] = append(byCategory[item.CategoryID], i)
		}
		for _, cat := range menu.Categories {
			fmt.Printf("%s\n", cat.Name)
			for _, i := range byCategory[cat.ID] {
				item := menu.Items[i]
				marker := " "
				if !item.Available {
					marker = "x"
				}
				fmt.Printf("  [%s] %-30s %8.2f  (%s)\n", marker, item.Name, item.Price, item.ID)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(menuCmd)
	menuCmd.Flags().StringVarP(&menuOutput, "output", "o", "", "output format, one of: yaml")
}
