package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"dormcore/internal/core"
	"dormcore/internal/export"
	"dormcore/internal/report"
	"dormcore/pkg/domain"
)

type contractFlags struct {
	code, start, end, price, deposit, method, status string
	student, room                                    int
}

func (f *contractFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.code, "code", "", "contract code (generated when blank)")
	fs.IntVar(&f.student, "student", 0, "student id")
	fs.IntVar(&f.room, "room", 0, "room id")
	fs.StringVar(&f.start, "start", "", "start date (YYYY-MM-DD)")
	fs.StringVar(&f.end, "end", "", "end date (YYYY-MM-DD)")
	fs.StringVar(&f.price, "price", "", "monthly price")
	fs.StringVar(&f.deposit, "deposit", "", "deposit amount")
	fs.StringVar(&f.method, "method", "", "payment method (default MONTHLY)")
	fs.StringVar(&f.status, "status", "", "ACTIVE|EXPIRED|TERMINATED|PENDING")
}

func (f *contractFlags) apply(fs *pflag.FlagSet, c *domain.Contract) error {
	var err error
	if fs.Changed("code") {
		c.Code = f.code
	}
	if fs.Changed("student") {
		c.StudentID = f.student
	}
	if fs.Changed("room") {
		c.RoomID = f.room
	}
	if fs.Changed("start") {
		if c.StartDate, err = domain.ParseDate(f.start); err != nil {
			return err
		}
	}
	if fs.Changed("end") {
		if c.EndDate, err = domain.ParseDate(f.end); err != nil {
			return err
		}
	}
	if fs.Changed("price") {
		if c.Price, err = domain.ParseMoney(f.price); err != nil {
			return err
		}
	}
	if fs.Changed("deposit") {
		if c.Deposit, err = domain.ParseMoney(f.deposit); err != nil {
			return err
		}
	}
	if fs.Changed("method") {
		c.PaymentMethod = f.method
	}
	if fs.Changed("status") {
		c.Status = domain.ContractStatus(f.status)
	}
	return nil
}

func newContractsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "contracts", Aliases: []string{"contract"}, Short: "Manage rental contracts"}
	show := func(cmd *cobra.Command, repo *core.Repository, list []domain.Contract) error {
		snap := repo.Snapshot()
		snap.Contracts = list
		return printTable(cmd, export.ContractsTable, snap)
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every contract",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := opts.repo(cmd)
			if err != nil {
				return err
			}
			return show(cmd, repo, repo.ListContracts())
		},
	}

	active := &cobra.Command{
		Use:   "active",
		Short: "List active contracts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := opts.repo(cmd)
			if err != nil {
				return err
			}
			return show(cmd, repo, repo.ActiveContracts())
		},
	}

	var days int
	expiring := &cobra.Command{
		Use:   "expiring",
		Short: "List active contracts ending soon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := opts.repo(cmd)
			if err != nil {
				return err
			}
			return show(cmd, repo, repo.ExpiringContracts(days))
		},
	}
	expiring.Flags().IntVar(&days, "days", report.ExpiryWindowDays, "look-ahead window in days")

	byStudent := &cobra.Command{
		Use:   "by-student <student-id>",
		Short: "List the contracts of a student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			repo, err := opts.repo(cmd)
			if err != nil {
				return err
			}
			return show(cmd, repo, repo.ContractsByStudent(id))
		},
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			repo, err := opts.repo(cmd)
			if err != nil {
				return err
			}
			c, ok := repo.GetContract(id)
			if !ok {
				return notFound(domain.KindContract, id)
			}
			return show(cmd, repo, []domain.Contract{c})
		},
	}

	var addFlags contractFlags
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a contract between a student and a room",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var c domain.Contract
			if err := addFlags.apply(cmd.Flags(), &c); err != nil {
				return err
			}
			repo, err := opts.repo(cmd)
			if err != nil {
				return err
			}
			created, err := repo.AddContract(cmd.Context(), c)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added contract %d (%s)\n", created.ID, created.Code)
			return nil
		},
	}
	addFlags.register(add.Flags())

	var updateFlags contractFlags
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the given fields of a contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			repo, err := opts.repo(cmd)
			if err != nil {
				return err
			}
			c, ok := repo.GetContract(id)
			if !ok {
				return notFound(domain.KindContract, id)
			}
			if err := updateFlags.apply(cmd.Flags(), &c); err != nil {
				return err
			}
			if _, err := repo.UpdateContract(cmd.Context(), c); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated contract %d\n", id)
			return nil
		},
	}
	updateFlags.register(update.Flags())

	terminate := &cobra.Command{
		Use:   "terminate <id>",
		Short: "End an active contract early",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			repo, err := opts.repo(cmd)
			if err != nil {
				return err
			}
			c, err := repo.TerminateContract(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Contract %s is now %s\n", c.Code, c.Status)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			repo, err := opts.repo(cmd)
			if err != nil {
				return err
			}
			if err := repo.DeleteContract(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted contract %d\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, active, expiring, byStudent, get, add, update, terminate, del)
	return cmd
}
