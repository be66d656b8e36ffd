package main

import (
	"fmt"
	"strings"

	"github.com/inkwell-cms/inkwell/internal/config"
	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/modules/auth/user"
	"github.com/inkwell-cms/inkwell/internal/modules/content/post"
	"github.com/inkwell-cms/inkwell/internal/repository"
	"github.com/spf13/cobra"
)

func newMigrateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := flags.open()
			if err != nil {
				return err
			}
			defer e.closer()
			fmt.Fprintf(cmd.OutOrStdout(), "schema is up to date (%s)\n", e.cfg.Database.Driver)
			return nil
		},
	}
}

func newUserCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	dto := user.CreateUserDTO{}
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account, bypassing the registration settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := flags.open()
			if err != nil {
				return err
			}
			defer e.closer()

			dto.EmailVerified = true
			svc := user.NewService(repository.NewUserRepository(e.db), nil, e.cfg.Security, user.WithLogger(e.log))
			u, err := svc.Create(cmd.Context(), &dto)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) id=%s\n", u.Username, u.Role, u.ID)
			return nil
		},
	}
	create.Flags().StringVar(&dto.Username, "username", "", "login name")
	create.Flags().StringVar(&dto.Email, "email", "", "email address")
	create.Flags().StringVar(&dto.Password, "password", "", "initial password")
	create.Flags().StringVar(&dto.Name, "name", "", "display name")
	create.Flags().StringVar(&dto.Role, "role", models.RoleAdmin,
		"one of "+strings.Join([]string{models.RoleSubscriber, models.RoleAuthor, models.RoleEditor, models.RoleAdmin}, ", "))
	for _, name := range []string{"username", "email", "password"} {
		_ = create.MarkFlagRequired(name)
	}

	cmd.AddCommand(create)
	return cmd
}

func newPublishCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "publish-scheduled",
		Short: "Publish posts whose scheduled time has passed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := flags.open()
			if err != nil {
				return err
			}
			defer e.closer()

			ctx := cmd.Context()
			idx, err := e.searchService(ctx)
			if err != nil {
				return err
			}
			svc := post.NewService(
				repository.NewPostRepository(e.db),
				repository.NewCategoryRepository(e.db),
				repository.NewTagRepository(e.db),
				repository.NewSlugTrackerRepository(e.db),
				post.WithIndexer(idx),
				post.WithLogger(e.log),
			)
			n, err := svc.PublishDue(ctx)
			idx.Wait()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d post(s)\n", n)
			return nil
		},
	}
}

func newReindexCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from published content",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := flags.open()
			if err != nil {
				return err
			}
			defer e.closer()

			if e.cfg.Search.Driver != config.SearchElasticsearch {
				fmt.Fprintln(cmd.OutOrStdout(), "search.driver is database, nothing to rebuild")
				return nil
			}
			idx, err := e.searchService(cmd.Context())
			if err != nil {
				return err
			}
			n, err := idx.Reindex(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d document(s)\n", n)
			return nil
		},
	}
}
