package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"contest-service/internal/app"
	"contest-service/internal/config"
	"contest-service/internal/domain"
	"github.com/spf13/cobra"
)

// NewAdminCmd groups the contest control commands. They act on the configured
// store directly; a running server picks the changes up on its next read.
func NewAdminCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Control the contest without going through the HTTP API",
	}
	cmd.AddCommand(
		adminStatusCmd(configPath),
		adminContestsCmd(configPath),
		adminStartCmd(configPath),
		adminStopCmd(configPath),
		adminResetCmd(configPath),
		adminAddProblemCmd(configPath),
		adminRegisterCmd(configPath),
	)
	return cmd
}

// withService loads config, wires the service and runs fn against it.
func withService(cmd *cobra.Command, configPath string, fn func(svc *app.ContestService) (any, error)) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	rt, err := openRuntime(cmd.Context(), cfg, logger.Logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := fn(rt.service)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func adminStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the contest status and remaining time",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, *configPath, func(svc *app.ContestService) (any, error) {
				return svc.State(cmd.Context())
			})
		},
	}
}

func adminContestsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "contests",
		Short: "List contest ids known from the problem set",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, *configPath, func(svc *app.ContestService) (any, error) {
				return svc.ListContests(cmd.Context())
			})
		},
	}
}

func adminStartCmd(configPath *string) *cobra.Command {
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "start CONTEST_ID",
		Short: "Start a contest now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if duration <= 0 {
				cfg, err := config.Load(*configPath)
				if err != nil {
					return err
				}
				duration = contestDuration(cfg)
			}
			return withService(cmd, *configPath, func(svc *app.ContestService) (any, error) {
				return svc.StartContest(cmd.Context(), args[0], duration)
			})
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 0, "contest length (default contest.default_duration)")
	return cmd
}

func adminStopCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "End the contest immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, *configPath, func(svc *app.ContestService) (any, error) {
				return svc.StopContest(cmd.Context())
			})
		},
	}
}

func adminResetCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Zero every participant's score and solved problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, *configPath, func(svc *app.ContestService) (any, error) {
				if err := svc.ResetScores(cmd.Context()); err != nil {
					return nil, err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "scores reset")
				return nil, nil
			})
		},
	}
}

func adminAddProblemCmd(configPath *string) *cobra.Command {
	var problem domain.Problem
	cmd := &cobra.Command{
		Use:   "add-problem",
		Short: "Append a problem to a contest",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, *configPath, func(svc *app.ContestService) (any, error) {
				return svc.AddProblem(cmd.Context(), problem)
			})
		},
	}
	cmd.Flags().StringVar(&problem.ContestID, "contest", "", "contest id")
	cmd.Flags().IntVar(&problem.Sequence, "seq", 1, "sequence number within the contest")
	cmd.Flags().StringVar(&problem.Body, "body", "", "problem text")
	cmd.Flags().StringVar(&problem.Answer, "answer", "", "expected answer")
	cmd.Flags().IntVar(&problem.Points, "points", app.DefaultPoints, "points awarded")
	return cmd
}

func adminRegisterCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "register USER_ID[:NAME]...",
		Short: "Register participants",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			users := make([]domain.User, 0, len(args))
			for _, arg := range args {
				id, name, _ := strings.Cut(arg, ":")
				users = append(users, domain.User{UserID: id, DisplayName: name})
			}
			return withService(cmd, *configPath, func(svc *app.ContestService) (any, error) {
				return svc.RegisterUsers(cmd.Context(), users)
			})
		},
	}
}
