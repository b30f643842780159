package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"dormcore/internal/core"
	"dormcore/internal/export"
	"dormcore/pkg/domain"
)

type roomFlags struct {
	number   string
	capacity int
	price    string
}

func (f *roomFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.number, "number", "", "room number")
	fs.IntVar(&f.capacity, "capacity", 0, "number of beds")
	fs.StringVar(&f.price, "price", "", "monthly price, e.g. 120.00")
}

func (f *roomFlags) apply(fs *pflag.FlagSet, r *domain.Room) error {
	if fs.Changed("number") {
		r.Number = f.number
	}
	if fs.Changed("capacity") {
		r.Capacity = f.capacity
	}
	if fs.Changed("price") {
		p, err := domain.ParseMoney(f.price)
		if err != nil {
			return err
		}
		r.Price = p
	}
	return nil
}

func newRoomsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "rooms", Aliases: []string{"room"}, Short: "Manage rooms"}
	show := func(cmd *cobra.Command, repo *core.Repository, rooms []domain.Room) error {
		snap := repo.Snapshot()
		snap.Rooms = rooms
		return printTable(cmd, export.RoomsTable, snap)
	}
	listing := func(use, short string, pick func(*core.Repository) []domain.Room) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				repo, err := opts.repo(cmd)
				if err != nil {
					return err
				}
				return show(cmd, repo, pick(repo))
			},
		}
	}

	list := listing("list", "List every room", (*core.Repository).ListRooms)
	available := listing("available", "List rooms with at least one free bed", (*core.Repository).AvailableRooms)

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one room with its occupancy",
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
			room, ok := repo.GetRoom(id)
			if !ok {
				return notFound(domain.KindRoom, id)
			}
			return show(cmd, repo, []domain.Room{room})
		},
	}

	search := &cobra.Command{
		Use:   "search <term>",
		Short: "Find rooms by number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.repo(cmd)
			if err != nil {
				return err
			}
			return show(cmd, repo, repo.SearchRooms(args[0]))
		},
	}

	occupancy := &cobra.Command{
		Use:   "occupancy <id>",
		Short: "Print occupied and free beds of a room",
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
			occ, err := repo.Occupancy(id)
			if err != nil {
				return err
			}
			free, err := repo.AvailableBeds(id)
			if err != nil {
				return err
			}
			full, err := repo.IsRoomFull(id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "occupied=%d available=%d full=%t\n", occ, free, full)
			return nil
		},
	}

	var addFlags roomFlags
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a room",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var room domain.Room
			if err := addFlags.apply(cmd.Flags(), &room); err != nil {
				return err
			}
			repo, err := opts.repo(cmd)
			if err != nil {
				return err
			}
			created, err := repo.AddRoom(cmd.Context(), room)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added room %d (%s)\n", created.ID, created.Number)
			return nil
		},
	}
	addFlags.register(add.Flags())

	var updateFlags roomFlags
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the given fields of a room",
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
			room, ok := repo.GetRoom(id)
			if !ok {
				return notFound(domain.KindRoom, id)
			}
			if err := updateFlags.apply(cmd.Flags(), &room); err != nil {
				return err
			}
			if _, err := repo.UpdateRoom(cmd.Context(), room); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated room %d\n", id)
			return nil
		},
	}
	updateFlags.register(update.Flags())

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a room, unassigning its students and dropping its contracts",
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
			if err := repo.DeleteRoom(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted room %d\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, available, get, search, occupancy, add, update, del)
	return cmd
}
