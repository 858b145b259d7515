package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"seams/internal/model"
	"seams/internal/repository"
	"seams/internal/repository/sqlite"
)

func usersCommand(e *env) *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Manage registered annotators",
	}

	usersCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := e.users()
			if err != nil {
				return err
			}
			list, err := users.List()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tEMAIL\tAFFILIATION\tCREATED")
			for _, u := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.Name, u.Email, u.Affiliation, u.CreatedAt.Format(time.DateTime))
			}
			return w.Flush()
		},
	})

	var u model.User
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Register a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := e.users()
			if err != nil {
				return err
			}
			u.Normalize()
			if !u.Complete() {
				return repository.ErrInvalidUser
			}
			u.CreatedAt = time.Now().UTC()
			if _, err := users.Insert(&u); err != nil {
				return err
			}
			log, err := e.logger()
			if err != nil {
				return err
			}
			log.Info("Added user %s from the command line", u.Name)
			fmt.Fprintf(cmd.OutOrStdout(), "Added user %s\n", u.Name)
			return nil
		},
	}
	addCmd.Flags().StringVar(&u.Name, "name", "", "User name")
	addCmd.Flags().StringVar(&u.Email, "email", "", "E-mail address")
	addCmd.Flags().StringVar(&u.Affiliation, "affiliation", "", "Affiliation")
	usersCmd.AddCommand(addCmd)

	usersCmd.AddCommand(&cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := e.users()
			if err != nil {
				return err
			}
			if err := users.DeleteByName(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %s\n", args[0])
			return nil
		},
	})

	return usersCmd
}

// users opens the user repository, recreating the table if it was dropped.
func (e *env) users() (*sqlite.UserRepository, error) {
	db, err := e.database()
	if err != nil {
		return nil, err
	}
	repo := sqlite.NewUserRepository(db)
	if _, err := repo.CreateTable(); err != nil {
		return nil, err
	}
	return repo, nil
}
