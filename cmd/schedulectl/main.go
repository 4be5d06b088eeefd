package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-schedule-api/internal/models"
	"github.com/noah-isme/tutoring-schedule-api/internal/repository"
	"github.com/noah-isme/tutoring-schedule-api/internal/schedule"
	"github.com/noah-isme/tutoring-schedule-api/internal/seed"
	"github.com/noah-isme/tutoring-schedule-api/internal/service"
	"github.com/noah-isme/tutoring-schedule-api/pkg/config"
	"github.com/noah-isme/tutoring-schedule-api/pkg/database"
	"github.com/noah-isme/tutoring-schedule-api/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "schedulectl",
		Short:         "Administer the tutoring schedule database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newAddUserCmd())
	root.AddCommand(newSeatsCmd())
	return root
}

// app holds what every subcommand needs; the cache is always off here so
// writes go straight to the database.
type app struct {
	cfg    *config.Config
	db     *sqlx.DB
	grid   schedule.Grid
	logger *zap.Logger
}

func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	loc, err := cfg.Schedule.Location()
	if err != nil {
		return nil, fmt.Errorf("schedule config: %w", err)
	}
	grid, err := schedule.NewGrid(cfg.Schedule.TimeSlots, cfg.Schedule.MaxCapacity, cfg.Schedule.WeekDays, loc)
	if err != nil {
		return nil, fmt.Errorf("schedule config: %w", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &app{cfg: cfg, db: db, grid: grid, logger: logr}, nil
}

func (a *app) close() {
	_ = a.db.Close()
	_ = a.logger.Sync()
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()
			if err := database.Migrate(cmd.Context(), a.db, a.logger); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load tutors and students from a YAML fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close() //nolint:errcheck
			fixture, err := seed.Parse(f)
			if err != nil {
				return err
			}

			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()

			validate := validator.New()
			tutors := service.NewTutorService(repository.NewTutorRepository(a.db), a.grid, nil, validate, a.logger)
			students := service.NewStudentService(repository.NewStudentRepository(a.db), a.grid, nil, validate, a.logger)
			res, err := seed.Load(cmd.Context(), fixture, tutors, students)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d tutor(s), %d student(s)\n", res.Tutors, res.Students)
			return err
		},
	}
}

func newAddUserCmd() *cobra.Command {
	var req service.CreateUserRequest
	var role string
	cmd := &cobra.Command{
		Use:   "adduser --email <email> --name <name> --password <password> --role ADMIN|TUTOR",
		Short: "Create a login account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.Role = models.UserRole(strings.ToUpper(strings.TrimSpace(role)))
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()

			auth := service.NewAuthService(repository.NewUserRepository(a.db), validator.New(), a.logger, service.AuthConfig{
				AccessTokenSecret: a.cfg.JWT.Secret,
				AccessTokenExpiry: a.cfg.JWT.Expiration,
				Issuer:            a.cfg.JWT.Issuer,
			})
			user, err := auth.CreateUser(cmd.Context(), req)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", user.Role, user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "login email")
	cmd.Flags().StringVar(&req.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (min 8 characters)")
	cmd.Flags().StringVar(&role, "role", string(models.RoleAdmin), "ADMIN or TUTOR")
	cmd.Flags().StringVar(&req.TutorID, "tutor-id", "", "tutor the account views (TUTOR only)")
	return cmd
}

func newSeatsCmd() *cobra.Command {
	var week, category string
	cmd := &cobra.Command{
		Use:   "seats --week YYYY-MM-DD [--category math]",
		Short: "Print open seats for a week",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()

			seats := service.NewSeatService(repository.NewTutorRepository(a.db), repository.NewSessionRepository(a.db), a.grid, a.logger)
			weekStart, open, err := seats.Seats(cmd.Context(), week, category)
			if err != nil {
				return err
			}
			return printSeats(cmd, weekStart, open)
		},
	}
	cmd.Flags().StringVar(&week, "week", "", "any date in the week (default: current week)")
	cmd.Flags().StringVar(&category, "category", "", "tutor category")
	return cmd
}

func printSeats(cmd *cobra.Command, weekStart string, seats []models.Seat) error {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "week of %s: %d open seat(s)\n", weekStart, len(seats))
	if len(seats) == 0 {
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATE\tDAY\tTIME\tTUTOR\tCATEGORY\tOCCUPIED\tREMAINING")
	for _, s := range seats {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n", s.Date, s.DayName, s.Time, s.Tutor.Name, s.Tutor.Category, s.Occupied, s.SeatsRemaining)
	}
	return w.Flush()
}
