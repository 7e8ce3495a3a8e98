package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/mfarrow/taskhive/internal/config"
	"github.com/mfarrow/taskhive/internal/task"
	"github.com/mfarrow/taskhive/internal/tasklist"
	"github.com/mfarrow/taskhive/internal/team"
	"github.com/mfarrow/taskhive/internal/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo users, a team, and sample task lists",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

type demoUser struct {
	email     string
	password  string
	firstName string
	lastName  string
}

var demoUsers = []demoUser{
	{email: "alice@taskhive.dev", password: "alice-password", firstName: "Alice", lastName: "Nguyen"},
	{email: "bob@taskhive.dev", password: "bob-password", firstName: "Bob", lastName: "Okafor"},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	userStore := user.NewStore(pool)
	teamStore := team.NewStore(pool)
	listStore := tasklist.NewStore(pool)
	taskStore := task.NewStore(pool)

	teamService := team.NewService(teamStore, userStore, nil)
	listService := tasklist.NewService(listStore, teamService)
	taskService := task.NewService(taskStore, listService)

	users := make([]*user.User, 0, len(demoUsers))
	for _, d := range demoUsers {
		existing, err := userStore.GetByEmail(ctx, d.email)
		if err != nil {
			return err
		}
		if existing != nil {
			slog.Info("user already exists, skipping", "email", d.email)
			users = append(users, existing)
			continue
		}

		first, last := d.firstName, d.lastName
		u, err := userStore.Create(ctx, user.CreateUserInput{
			Email:     d.email,
			Password:  d.password,
			FirstName: &first,
			LastName:  &last,
		})
		if err != nil {
			return fmt.Errorf("creating user %s: %w", d.email, err)
		}
		slog.Info("created user", "email", u.Email, "password", d.password)
		users = append(users, u)
	}

	alice, bob := users[0], users[1]

	desc := "Demo team seeded for local development"
	t, err := teamService.Create(ctx, alice.ID, "Platform Team", &desc)
	if err != nil {
		return fmt.Errorf("creating team: %w", err)
	}
	if _, err := teamService.AddMember(ctx, t.ID, alice.ID, alice.Email, bob.Email); err != nil {
		return fmt.Errorf("adding member: %w", err)
	}
	slog.Info("created team", "name", t.Name, "id", t.ID)

	personal, err := listService.Create(ctx, alice.ID, "Inbox", tasklist.ScopePersonal, nil)
	if err != nil {
		return fmt.Errorf("creating personal list: %w", err)
	}
	shared, err := listService.Create(ctx, alice.ID, "Sprint Board", tasklist.ScopeTeam, &t.ID)
	if err != nil {
		return fmt.Errorf("creating team list: %w", err)
	}

	seedTasks := []task.CreateTaskInput{
		{ListID: personal.ID, Title: "Review pull requests", Priority: task.PriorityMedium, Status: task.StatusTodo},
		{ListID: personal.ID, Title: "Book dentist appointment", Priority: task.PriorityLow, Status: task.StatusTodo},
		{ListID: shared.ID, Title: "Fix login redirect", Priority: task.PriorityHigh, Status: task.StatusInProgress},
		{ListID: shared.ID, Title: "Write release notes", Priority: task.PriorityMedium, Status: task.StatusDone},
	}
	for _, in := range seedTasks {
		if _, err := taskService.Create(ctx, alice.ID, in); err != nil {
			return fmt.Errorf("creating task %q: %w", in.Title, err)
		}
	}

	slog.Info("seed complete",
		"users", len(users),
		"lists", 2,
		"tasks", len(seedTasks),
	)
	return nil
}
