package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"go.eggybyte.com/carddesk/core/errors"
	"go.eggybyte.com/carddesk/internal/model"
	"go.eggybyte.com/carddesk/internal/registry"
)

func newClientsCmd(flags *globalFlags) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "Run Client Registry operations",
	}
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print records as JSON")

	connect := func(cmd *cobra.Command) (*registry.Client, error) {
		cfg, _, logger, err := flags.load(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return nil, err
		}
		return newRegistry(cfg, logger)
	}
	output := func(cmd *cobra.Command, v any, clients []model.Client) error {
		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		}
		return printTable(cmd.OutOrStdout(), clients)
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := connect(cmd)
			if err != nil {
				return err
			}
			clients, err := reg.List(cmd.Context())
			if err != nil {
				return err
			}
			return output(cmd, clients, clients)
		},
	}

	form := model.DefaultForm()
	var status string
	add := &cobra.Command{
		Use:   "add",
		Short: "Submit a card request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := model.ParseCardStatus(status)
			if err != nil {
				return errors.Wrap(errors.CodeInvalidArgument, "clients add", err)
			}
			form.CardStatus = parsed
			if err := form.Validate(); err != nil {
				return err
			}
			reg, err := connect(cmd)
			if err != nil {
				return err
			}
			created, err := reg.Create(cmd.Context(), form)
			if err != nil {
				return err
			}
			return output(cmd, created, []model.Client{created})
		},
	}
	add.Flags().StringVar(&form.FirstName, "first", "", "First name")
	add.Flags().StringVar(&form.LastName, "last", "", "Last name")
	add.Flags().StringVar(&form.OIB, "oib", "", "OIB")
	add.Flags().StringVar(&status, "status", string(model.StatusPending), "PENDING, APPROVED or REJECTED")
	for _, name := range []string{"first", "last", "oib"} {
		_ = add.MarkFlagRequired(name)
	}

	del := &cobra.Command{
		Use:   "delete <oib>",
		Short: "Delete a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := connect(cmd)
			if err != nil {
				return err
			}
			if err := reg.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	setStatus := &cobra.Command{
		Use:       "set-status <oib> <PENDING|APPROVED|REJECTED>",
		Short:     "Change a client's card status",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(model.StatusPending), string(model.StatusApproved), string(model.StatusRejected)},
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := model.ParseCardStatus(args[1])
			if err != nil {
				return errors.Wrap(errors.CodeInvalidArgument, "clients set-status", err)
			}
			reg, err := connect(cmd)
			if err != nil {
				return err
			}
			updated, err := reg.UpdateStatus(cmd.Context(), args[0], parsed)
			if err != nil {
				return err
			}
			return output(cmd, updated, []model.Client{updated})
		},
	}

	cmd.AddCommand(list, add, del, setStatus)
	return cmd
}

func printTable(w io.Writer, clients []model.Client) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tOIB\tSTATUS")
	for _, c := range clients {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", c.ID, c.FullName(), c.OIB, c.CardStatus)
	}
	return tw.Flush()
}
