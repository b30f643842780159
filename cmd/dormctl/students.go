package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"dormcore/internal/core"
	"dormcore/internal/export"
	"dormcore/pkg/domain"
)

// printTable writes one listing. snap supplies the lookups for related ids.
func printTable(cmd *cobra.Command, build func(domain.Snapshot) export.Table, snap domain.Snapshot) error {
	return export.WriteTableText(cmd.OutOrStdout(), build(snap))
}

type studentFlags struct {
	code, name, birth, gender, phone, email, hometown, status string
	room                                                      int
}

func (f *studentFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.code, "code", "", "student code")
	fs.StringVar(&f.name, "name", "", "full name")
	fs.StringVar(&f.birth, "birth", "", "birth date (YYYY-MM-DD)")
	fs.StringVar(&f.gender, "gender", "", "gender")
	fs.StringVar(&f.phone, "phone", "", "phone number")
	fs.StringVar(&f.email, "email", "", "email address")
	fs.StringVar(&f.hometown, "hometown", "", "hometown")
	fs.StringVar(&f.status, "status", "", "ACTIVE|INACTIVE|GRADUATED")
	fs.IntVar(&f.room, "room", 0, "room id (0 leaves the student unassigned)")
}

// apply copies the flags that were set onto s.
func (f *studentFlags) apply(fs *pflag.FlagSet, s *domain.Student) error {
	set := fs.Changed
	if set("code") {
		s.Code = f.code
	}
	if set("name") {
		s.Name = f.name
	}
	if set("birth") {
		d, err := domain.ParseDate(f.birth)
		if err != nil {
			return err
		}
		s.BirthDate = d
	}
	if set("gender") {
		s.Gender = f.gender
	}
	if set("phone") {
		s.Phone = f.phone
	}
	if set("email") {
		s.Email = f.email
	}
	if set("hometown") {
		s.Hometown = f.hometown
	}
	if set("status") {
		s.Status = domain.StudentStatus(f.status)
	}
	if set("room") {
		s.RoomID = f.room
	}
	return nil
}

func newStudentsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "students", Aliases: []string{"student"}, Short: "Manage students"}
	withStudents := func(cmd *cobra.Command, repo *core.Repository, list []domain.Student) error {
		snap := repo.Snapshot()
		snap.Students = list
		return printTable(cmd, export.StudentsTable, snap)
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every student",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := opts.repo(cmd)
			if err != nil {
				return err
			}
			return withStudents(cmd, repo, repo.ListStudents())
		},
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one student",
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
			s, ok := repo.GetStudent(id)
			if !ok {
				return notFound(domain.KindStudent, id)
			}
			return withStudents(cmd, repo, []domain.Student{s})
		},
	}

	search := &cobra.Command{
		Use:   "search <term>",
		Short: "Find students by code, name, email or hometown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.repo(cmd)
			if err != nil {
				return err
			}
			return withStudents(cmd, repo, repo.SearchStudents(args[0]))
		},
	}

	inRoom := &cobra.Command{
		Use:   "in-room <room-id>",
		Short: "List the students assigned to a room",
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
			if _, ok := repo.GetRoom(id); !ok {
				return notFound(domain.KindRoom, id)
			}
			return withStudents(cmd, repo, repo.StudentsInRoom(id))
		},
	}

	var addFlags studentFlags
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a student",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var s domain.Student
			if err := addFlags.apply(cmd.Flags(), &s); err != nil {
				return err
			}
			repo, err := opts.repo(cmd)
			if err != nil {
				return err
			}
			created, err := repo.AddStudent(cmd.Context(), s)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added student %d (%s)\n", created.ID, created.Code)
			return nil
		},
	}
	addFlags.register(add.Flags())

	var updateFlags studentFlags
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the given fields of a student",
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
			s, ok := repo.GetStudent(id)
			if !ok {
				return notFound(domain.KindStudent, id)
			}
			if err := updateFlags.apply(cmd.Flags(), &s); err != nil {
				return err
			}
			if _, err := repo.UpdateStudent(cmd.Context(), s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated student %d\n", id)
			return nil
		},
	}
	updateFlags.register(update.Flags())

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a student with its contracts and fees",
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
			if err := repo.DeleteStudent(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted student %d\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, get, search, inRoom, add, update, del)
	return cmd
}

func newAssignCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <student-id> <room-id>",
		Short: "Place a student in a room with a free bed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			repo, err := opts.repo(cmd)
			if err != nil {
				return err
			}
			if err := repo.AssignStudentToRoom(cmd.Context(), ids[0], ids[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Assigned student %d to room %d\n", ids[0], ids[1])
			return nil
		},
	}
}

func newUnassignCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unassign <student-id>",
		Short: "Take a student out of their room",
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
			if err := repo.RemoveStudentFromRoom(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed student %d from their room\n", id)
			return nil
		},
	}
}
