package main

import (
	"github.com/spf13/cobra"

	"kinbridge/internal/api"
	"kinbridge/internal/config"
)

func newResolveCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <uid>",
		Short: "Resolve a user id to its company id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(cfg.APIURL)
			resp, err := client.ResolveCompany(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(resp)
			}
			return writePlain("%s\n", resp.CompanyID)
		},
	}
}
