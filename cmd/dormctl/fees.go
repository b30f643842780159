package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"dormcore/internal/core"
	"dormcore/internal/export"
	"dormcore/pkg/domain"
)

type feeFlags struct {
	code, kind, amount, due, method, status, description string
	student                                              int
}

func (f *feeFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.code, "code", "", "fee code (generated when blank)")
	fs.IntVar(&f.student, "student", 0, "student id")
	fs.StringVar(&f.kind, "kind", "", "ROOM|ELECTRICITY|WATER|CLEANING|INTERNET|MAINTENANCE")
	fs.StringVar(&f.amount, "amount", "", "amount, e.g. 45.50")
	fs.StringVar(&f.due, "due", "", "due date (YYYY-MM-DD)")
	fs.StringVar(&f.method, "method", "", "payment method (default CASH)")
	fs.StringVar(&f.status, "status", "", "PENDING|PAID|OVERDUE|CANCELLED")
	fs.StringVar(&f.description, "description", "", "free text note")
}

func (f *feeFlags) apply(fs *pflag.FlagSet, fee *domain.Fee) error {
	var err error
	if fs.Changed("code") {
		fee.Code = f.code
	}
	if fs.Changed("student") {
		fee.StudentID = f.student
	}
	if fs.Changed("kind") {
		if fee.Kind, err = domain.ParseFeeKind(f.kind); err != nil {
			return err
		}
	}
	if fs.Changed("amount") {
		if fee.Amount, err = domain.ParseMoney(f.amount); err != nil {
			return err
		}
	}
	if fs.Changed("due") {
		if fee.DueDate, err = domain.ParseDate(f.due); err != nil {
			return err
		}
	}
	if fs.Changed("method") {
		fee.PaymentMethod = f.method
	}
	if fs.Changed("status") {
		fee.Status = domain.PaymentStatus(f.status)
	}
	if fs.Changed("description") {
		d := f.description
		fee.Description = &d
	}
	return nil
}

func newFeesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "fees", Aliases: []string{"fee"}, Short: "Manage student fees"}
	show := func(cmd *cobra.Command, repo *core.Repository, list []domain.Fee) error {
		snap := repo.Snapshot()
		snap.Fees = list
		return printTable(cmd, export.FeesTable, snap)
	}
	withID := func(use, short string, run func(cmd *cobra.Command, repo *core.Repository, id int) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
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
				return run(cmd, repo, id)
			},
		}
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every fee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := opts.repo(cmd)
			if err != nil {
				return err
			}
			return show(cmd, repo, repo.ListFees())
		},
	}

	overdue := &cobra.Command{
		Use:   "overdue",
		Short: "List overdue fees, including pending fees past their due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := opts.repo(cmd)
			if err != nil {
				return err
			}
			return show(cmd, repo, repo.OverdueFees())
		},
	}

	markOverdue := &cobra.Command{
		Use:   "mark-overdue",
		Short: "Move pending fees past their due date to OVERDUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := opts.repo(cmd)
			if err != nil {
				return err
			}
			n, err := repo.MarkOverdueFees(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d fees overdue\n", n)
			return nil
		},
	}

	totals := &cobra.Command{
		Use:   "totals",
		Short: "Print billed amounts per fee kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := opts.repo(cmd)
			if err != nil {
				return err
			}
			byKind := repo.FeeTotalsByKind()
			t := export.Table{Name: "Fee Totals", Headers: []string{"Type", "Amount"}}
			for _, k := range domain.FeeKinds() {
				t.Rows = append(t.Rows, []string{k.DisplayName(), byKind[k].String()})
			}
			return export.WriteTableText(cmd.OutOrStdout(), t)
		},
	}

	get := withID("get <id>", "Show one fee", func(cmd *cobra.Command, repo *core.Repository, id int) error {
		f, ok := repo.GetFee(id)
		if !ok {
			return notFound(domain.KindFee, id)
		}
		return show(cmd, repo, []domain.Fee{f})
	})

	byStudent := withID("by-student <student-id>", "List the fees of a student", func(cmd *cobra.Command, repo *core.Repository, id int) error {
		return show(cmd, repo, repo.FeesByStudent(id))
	})

	unpaid := withID("unpaid <student-id>", "Print the outstanding balance of a student", func(cmd *cobra.Command, repo *core.Repository, id int) error {
		if _, ok := repo.GetStudent(id); !ok {
			return notFound(domain.KindStudent, id)
		}
		fmt.Fprintln(cmd.OutOrStdout(), repo.UnpaidTotal(id))
		return nil
	})

	var method string
	pay := withID("pay <id>", "Record payment of a pending or overdue fee", func(cmd *cobra.Command, repo *core.Repository, id int) error {
		f, err := repo.RecordFeePayment(cmd.Context(), id, method)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Fee %s paid on %s by %s\n", f.Code, domain.FormatDate(*f.PaidDate), f.PaymentMethod)
		return nil
	})
	pay.Flags().StringVar(&method, "method", "", "payment method; keeps the recorded one when blank")

	del := withID("delete <id>", "Remove a fee", func(cmd *cobra.Command, repo *core.Repository, id int) error {
		if err := repo.DeleteFee(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted fee %d\n", id)
		return nil
	})

	var addFlags feeFlags
	add := &cobra.Command{
		Use:   "add",
		Short: "Issue a fee to a student",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var f domain.Fee
			if err := addFlags.apply(cmd.Flags(), &f); err != nil {
				return err
			}
			repo, err := opts.repo(cmd)
			if err != nil {
				return err
			}
			created, err := repo.AddFee(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added fee %d (%s)\n", created.ID, created.Code)
			return nil
		},
	}
	addFlags.register(add.Flags())

	var updateFlags feeFlags
	update := withID("update <id>", "Change the given fields of a fee", func(cmd *cobra.Command, repo *core.Repository, id int) error {
		f, ok := repo.GetFee(id)
		if !ok {
			return notFound(domain.KindFee, id)
		}
		if err := updateFlags.apply(cmd.Flags(), &f); err != nil {
			return err
		}
		if _, err := repo.UpdateFee(cmd.Context(), f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated fee %d\n", id)
		return nil
	})
	updateFlags.register(update.Flags())

	var gen struct{ kind, amount, due string }
	generate := &cobra.Command{
		Use:   "generate [student-id...]",
		Short: "Issue one fee per listed student, or per active student when none are listed",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseFeeKind(gen.kind)
			if err != nil {
				return err
			}
			amount, err := domain.ParseMoney(gen.amount)
			if err != nil {
				return err
			}
			due, err := domain.ParseDate(gen.due)
			if err != nil {
				return err
			}
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			repo, err := opts.repo(cmd)
			if err != nil {
				return err
			}
			created, err := repo.GenerateMonthlyFees(cmd.Context(), kind, amount, due, ids...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated %d %s fees\n", len(created), kind.DisplayName())
			return nil
		},
	}
	generate.Flags().StringVar(&gen.kind, "kind", string(domain.FeeRoom), "fee kind")
	generate.Flags().StringVar(&gen.amount, "amount", "", "amount per student")
	generate.Flags().StringVar(&gen.due, "due", "", "due date (YYYY-MM-DD)")
	_ = generate.MarkFlagRequired("amount")
	_ = generate.MarkFlagRequired("due")

	cmd.AddCommand(list, overdue, markOverdue, totals, get, byStudent, unpaid, pay, add, update, del, generate)
	return cmd
}
